package matching

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/launchpath/resource-engine/internal/scoring"
	"github.com/launchpath/resource-engine/internal/storage/models"
	"github.com/launchpath/resource-engine/pkg/logger"
)

// Factor names used in score breakdowns.
const (
	FactorPhase      = "phase"
	FactorIdeaType   = "idea_type"
	FactorKeyword    = "keyword"
	FactorExperience = "experience"
	FactorPopularity = "popularity"
)

const (
	weightPhase      = 0.40
	weightIdeaType   = 0.25
	weightKeyword    = 0.20
	weightExperience = 0.10
	weightPopularity = 0.05

	// neutralScore is returned for any factor whose inputs are missing, so
	// partial data degrades the ranking instead of failing it.
	neutralScore = 0.5

	genericIdeaTypeScore = 0.6
	adjacentPhaseScore   = 0.5
)

// Catalog is the read-only candidate provider the matcher scores against.
type Catalog interface {
	FindActiveCandidates(ctx context.Context, filter models.CandidateFilter, limit int) ([]*models.Resource, error)
}

type Engine struct {
	catalog  Catalog
	poolSize int
	weights  map[string]float64
}

func NewEngine(catalog Catalog, poolSize int) (*Engine, error) {
	weights := map[string]float64{
		FactorPhase:      weightPhase,
		FactorIdeaType:   weightIdeaType,
		FactorKeyword:    weightKeyword,
		FactorExperience: weightExperience,
		FactorPopularity: weightPopularity,
	}

	if err := scoring.ValidateWeights(weights); err != nil {
		return nil, fmt.Errorf("matching engine: %w", err)
	}

	if poolSize <= 0 {
		poolSize = 200
	}

	return &Engine{
		catalog:  catalog,
		poolSize: poolSize,
		weights:  weights,
	}, nil
}

// ScoreResource combines the five matching factors into a single [0,1]
// relevance score. Breakdown entries hold each factor's weighted
// contribution, so they sum to the final (unrounded) score.
func (e *Engine) ScoreResource(resource *models.Resource, mctx models.MatchingContext) models.ScoredResource {
	subScores := map[string]float64{
		FactorPhase:      e.phaseScore(resource, mctx.Phase),
		FactorIdeaType:   e.ideaTypeScore(resource, mctx.IdeaType),
		FactorKeyword:    e.keywordScore(resource, mctx.StepKeywords),
		FactorExperience: e.experienceScore(resource, mctx.UserExperience),
		FactorPopularity: scoring.RatingViewBlend(resource),
	}

	breakdown := make(map[string]float64, len(subScores))
	total := 0.0
	dominant := ""
	dominantValue := -1.0

	for factor, sub := range subScores {
		contribution := e.weights[factor] * sub
		breakdown[factor] = contribution
		total += contribution
		if contribution > dominantValue {
			dominant = factor
			dominantValue = contribution
		}
	}

	return models.ScoredResource{
		Resource:  resource,
		Score:     scoring.Round2(scoring.Clamp(total)),
		Breakdown: breakdown,
		Reason:    dominant,
	}
}

func (e *Engine) phaseScore(resource *models.Resource, phase models.Phase) float64 {
	if !phase.Valid() {
		return neutralScore
	}
	if resource.HasPhase(phase) {
		return 1.0
	}

	target := phase.Index()
	for _, p := range resource.PhaseRelevance {
		idx := p.Index()
		if idx < 0 {
			continue
		}
		if idx == target-1 || idx == target+1 {
			return adjacentPhaseScore
		}
	}
	return 0
}

func (e *Engine) ideaTypeScore(resource *models.Resource, ideaType models.IdeaType) float64 {
	if !ideaType.Valid() {
		return neutralScore
	}
	if resource.HasIdeaType(ideaType) {
		return 1.0
	}
	// No declared idea types means the resource applies to all of them.
	if len(resource.IdeaTypes) == 0 {
		return genericIdeaTypeScore
	}
	return 0
}

func (e *Engine) keywordScore(resource *models.Resource, keywords []string) float64 {
	contextTokens := scoring.NormalizeKeywords(keywords)
	if len(contextTokens) == 0 {
		return neutralScore
	}

	resourceTokens := scoring.Tokenize(resource.Title + " " + resource.Description)
	return scoring.Jaccard(contextTokens, resourceTokens)
}

func (e *Engine) experienceScore(resource *models.Resource, experience models.Difficulty) float64 {
	userLevel := experience.Level()
	resourceLevel := resource.Difficulty.Level()
	if userLevel < 0 || resourceLevel < 0 {
		return neutralScore
	}

	distance := userLevel - resourceLevel
	if distance < 0 {
		distance = -distance
	}

	switch distance {
	case 0:
		return 1.0
	case 1:
		return 0.6
	default:
		return 0.2
	}
}

// MatchResourcesToStep fetches active candidates for the context, scores
// them all, and returns the top results with previously viewed resources
// removed. Free-tier contexts never see premium resources.
func (e *Engine) MatchResourcesToStep(ctx context.Context, mctx models.MatchingContext, limit int) ([]models.ScoredResource, error) {
	filter := models.CandidateFilter{
		IncludePremium: mctx.UserTier != models.TierFree && mctx.UserTier != "",
	}

	candidates, err := e.catalog.FindActiveCandidates(ctx, filter, e.poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch match candidates: %w", err)
	}

	scored := make([]models.ScoredResource, 0, len(candidates))
	for _, resource := range candidates {
		scored = append(scored, e.ScoreResource(resource, mctx))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Resource.ID < scored[j].Resource.ID
	})

	viewed := scoring.ToSet(mctx.PreviouslyViewed)
	results := make([]models.ScoredResource, 0, limit)
	for _, item := range scored {
		if _, seen := viewed[item.Resource.ID]; seen {
			continue
		}
		results = append(results, item)
		if limit > 0 && len(results) >= limit {
			break
		}
	}

	logger.Debug("Step matching completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(results)),
		zap.String("phase", string(mctx.Phase)),
	)

	return results, nil
}

// GetPhaseResources ranks resources for a lifecycle phase without any
// step-specific keywords or history.
func (e *Engine) GetPhaseResources(ctx context.Context, phase models.Phase, ideaType models.IdeaType, tier models.Tier, limit int) ([]models.ScoredResource, error) {
	mctx := models.MatchingContext{
		Phase:    phase,
		IdeaType: ideaType,
		UserTier: tier,
	}
	return e.MatchResourcesToStep(ctx, mctx, limit)
}
