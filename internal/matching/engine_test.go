package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpath/resource-engine/internal/storage/models"
)

type fakeCatalog struct {
	resources []*models.Resource
}

func (f *fakeCatalog) FindActiveCandidates(_ context.Context, filter models.CandidateFilter, limit int) ([]*models.Resource, error) {
	excluded := make(map[int64]struct{}, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = struct{}{}
	}

	out := make([]*models.Resource, 0, len(f.resources))
	for _, r := range f.resources {
		if !r.IsActive {
			continue
		}
		if r.IsPremium && !filter.IncludePremium {
			continue
		}
		if _, skip := excluded[r.ID]; skip {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func newTestEngine(t *testing.T, resources ...*models.Resource) *Engine {
	t.Helper()
	engine, err := NewEngine(&fakeCatalog{resources: resources}, 200)
	require.NoError(t, err)
	return engine
}

func resource(id int64, opts func(*models.Resource)) *models.Resource {
	r := &models.Resource{
		ID:       id,
		Title:    "Resource",
		IsActive: true,
	}
	if opts != nil {
		opts(r)
	}
	return r
}

func TestScoreResourceExactMatch(t *testing.T) {
	engine := newTestEngine(t)

	r := resource(1, func(r *models.Resource) {
		r.Title = "Customer interview guide"
		r.Description = "How to run customer discovery interviews"
		r.PhaseRelevance = []models.Phase{models.PhaseResearch}
		r.IdeaTypes = []models.IdeaType{models.IdeaTypeSoftware}
		r.Difficulty = models.DifficultyBeginner
		r.AverageRating = 500
		r.ViewCount = 1000
	})

	scored := engine.ScoreResource(r, models.MatchingContext{
		Phase:          models.PhaseResearch,
		IdeaType:       models.IdeaTypeSoftware,
		StepKeywords:   []string{"customer", "interview", "guide", "discovery"},
		UserExperience: models.DifficultyBeginner,
	})

	assert.GreaterOrEqual(t, scored.Score, 0.8)
	assert.LessOrEqual(t, scored.Score, 1.0)
	assert.Equal(t, FactorPhase, scored.Reason)
	assert.Len(t, scored.Breakdown, 5)

	// Breakdown entries are weighted contributions bounded by their weights.
	assert.InDelta(t, 0.40, scored.Breakdown[FactorPhase], 1e-9)
	assert.InDelta(t, 0.25, scored.Breakdown[FactorIdeaType], 1e-9)
	assert.InDelta(t, 0.10, scored.Breakdown[FactorExperience], 1e-9)
}

func TestScoreResourceNeutralDefaults(t *testing.T) {
	engine := newTestEngine(t)

	// No context data, no resource attributes: every factor except
	// popularity resolves to its neutral or zero value.
	r := resource(1, nil)
	scored := engine.ScoreResource(r, models.MatchingContext{})

	assert.InDelta(t, 0.40*0.5, scored.Breakdown[FactorPhase], 1e-9)
	assert.InDelta(t, 0.25*0.5, scored.Breakdown[FactorIdeaType], 1e-9)
	assert.InDelta(t, 0.20*0.5, scored.Breakdown[FactorKeyword], 1e-9)
	assert.InDelta(t, 0.10*0.5, scored.Breakdown[FactorExperience], 1e-9)
	assert.InDelta(t, 0.0, scored.Breakdown[FactorPopularity], 1e-9)
	assert.InDelta(t, 0.48, scored.Score, 0.01)
}

func TestPhaseAdjacency(t *testing.T) {
	engine := newTestEngine(t)

	exact := resource(1, func(r *models.Resource) {
		r.PhaseRelevance = []models.Phase{models.PhaseResearch}
	})
	adjacent := resource(2, func(r *models.Resource) {
		r.PhaseRelevance = []models.Phase{models.PhaseValidation}
	})
	distant := resource(3, func(r *models.Resource) {
		r.PhaseRelevance = []models.Phase{models.PhaseLaunch}
	})

	mctx := models.MatchingContext{Phase: models.PhaseResearch}

	exactScore := engine.ScoreResource(exact, mctx).Breakdown[FactorPhase]
	adjacentScore := engine.ScoreResource(adjacent, mctx).Breakdown[FactorPhase]
	distantScore := engine.ScoreResource(distant, mctx).Breakdown[FactorPhase]

	assert.InDelta(t, 0.40*1.0, exactScore, 1e-9)
	assert.InDelta(t, 0.40*0.5, adjacentScore, 1e-9)
	assert.InDelta(t, 0.0, distantScore, 1e-9)
}

func TestIdeaTypeGenericResource(t *testing.T) {
	engine := newTestEngine(t)

	generic := resource(1, nil)
	mismatched := resource(2, func(r *models.Resource) {
		r.IdeaTypes = []models.IdeaType{models.IdeaTypeService}
	})

	mctx := models.MatchingContext{IdeaType: models.IdeaTypeSoftware}

	assert.InDelta(t, 0.25*0.6, engine.ScoreResource(generic, mctx).Breakdown[FactorIdeaType], 1e-9)
	assert.InDelta(t, 0.0, engine.ScoreResource(mismatched, mctx).Breakdown[FactorIdeaType], 1e-9)
}

func TestExperienceDistance(t *testing.T) {
	engine := newTestEngine(t)

	mctx := models.MatchingContext{UserExperience: models.DifficultyBeginner}

	beginner := resource(1, func(r *models.Resource) { r.Difficulty = models.DifficultyBeginner })
	intermediate := resource(2, func(r *models.Resource) { r.Difficulty = models.DifficultyIntermediate })
	advanced := resource(3, func(r *models.Resource) { r.Difficulty = models.DifficultyAdvanced })

	assert.InDelta(t, 0.10*1.0, engine.ScoreResource(beginner, mctx).Breakdown[FactorExperience], 1e-9)
	assert.InDelta(t, 0.10*0.6, engine.ScoreResource(intermediate, mctx).Breakdown[FactorExperience], 1e-9)
	assert.InDelta(t, 0.10*0.2, engine.ScoreResource(advanced, mctx).Breakdown[FactorExperience], 1e-9)
}

func TestPopularityBreaksAttributeTies(t *testing.T) {
	popular := resource(1, func(r *models.Resource) {
		r.PhaseRelevance = []models.Phase{models.PhaseResearch}
		r.AverageRating = 450
		r.ViewCount = 800
	})
	obscure := resource(2, func(r *models.Resource) {
		r.PhaseRelevance = []models.Phase{models.PhaseResearch}
		r.AverageRating = 100
		r.ViewCount = 10
	})

	engine := newTestEngine(t, obscure, popular)

	results, err := engine.MatchResourcesToStep(context.Background(), models.MatchingContext{
		Phase: models.PhaseResearch,
	}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, int64(1), results[0].Resource.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestFreeTierNeverSeesPremium(t *testing.T) {
	free := resource(1, func(r *models.Resource) {
		r.PhaseRelevance = []models.Phase{models.PhaseResearch}
	})
	premium := resource(2, func(r *models.Resource) {
		r.PhaseRelevance = []models.Phase{models.PhaseResearch}
		r.IsPremium = true
		r.AverageRating = 500
	})

	engine := newTestEngine(t, free, premium)

	mctx := models.MatchingContext{Phase: models.PhaseResearch, UserTier: models.TierFree}
	results, err := engine.MatchResourcesToStep(context.Background(), mctx, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].Resource.ID)

	// Unknown tier is treated as free.
	mctx.UserTier = ""
	results, err = engine.MatchResourcesToStep(context.Background(), mctx, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	mctx.UserTier = models.TierPro
	results, err = engine.MatchResourcesToStep(context.Background(), mctx, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestPreviouslyViewedExcluded(t *testing.T) {
	a := resource(1, func(r *models.Resource) {
		r.PhaseRelevance = []models.Phase{models.PhaseResearch}
	})
	b := resource(2, func(r *models.Resource) {
		r.PhaseRelevance = []models.Phase{models.PhaseResearch}
	})

	engine := newTestEngine(t, a, b)

	results, err := engine.MatchResourcesToStep(context.Background(), models.MatchingContext{
		Phase:            models.PhaseResearch,
		PreviouslyViewed: []int64{1},
	}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].Resource.ID)
}

func TestMatchLimitAndOrdering(t *testing.T) {
	resources := make([]*models.Resource, 0, 6)
	for i := int64(1); i <= 6; i++ {
		rating := int(i) * 80
		resources = append(resources, resource(i, func(r *models.Resource) {
			r.PhaseRelevance = []models.Phase{models.PhaseValidation}
			r.AverageRating = rating
		}))
	}

	engine := newTestEngine(t, resources...)

	results, err := engine.MatchResourcesToStep(context.Background(), models.MatchingContext{
		Phase: models.PhaseValidation,
	}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.Equal(t, int64(6), results[0].Resource.ID)
}

func TestGetPhaseResources(t *testing.T) {
	a := resource(1, func(r *models.Resource) {
		r.PhaseRelevance = []models.Phase{models.PhaseLaunch}
		r.AverageRating = 400
	})
	b := resource(2, func(r *models.Resource) {
		r.PhaseRelevance = []models.Phase{models.PhaseResearch}
	})

	engine := newTestEngine(t, a, b)

	results, err := engine.GetPhaseResources(context.Background(), models.PhaseLaunch, "", models.TierFree, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, int64(1), results[0].Resource.ID)
}
