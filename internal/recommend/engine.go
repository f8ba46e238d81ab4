package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/launchpath/resource-engine/internal/cache"
	"github.com/launchpath/resource-engine/internal/metrics"
	"github.com/launchpath/resource-engine/internal/scoring"
	"github.com/launchpath/resource-engine/internal/storage/models"
	"github.com/launchpath/resource-engine/pkg/logger"
	"github.com/launchpath/resource-engine/pkg/utils"
)

// Factor names used in recommendation score breakdowns.
const (
	FactorCollaborative = "collaborative"
	FactorContent       = "content"
	FactorPopularity    = "popularity"
	FactorDiversity     = "diversity"
)

const (
	weightCollaborative = 0.40
	weightContent       = 0.35
	weightPopularity    = 0.15

	neutralContentScore = 0.5

	taskPhaseBonus    = 0.10
	taskIdeaTypeBonus = 0.05
)

// Catalog is the read-only resource provider. FindActiveCandidates returns
// active resources sorted by rating descending.
type Catalog interface {
	FindActiveCandidates(ctx context.Context, filter models.CandidateFilter, limit int) ([]*models.Resource, error)
	FindByIDs(ctx context.Context, ids []int64) ([]*models.Resource, error)
	AccessCountsSince(ctx context.Context, since time.Time) (map[int64]int64, error)
}

// History is the append-only interaction provider.
type History interface {
	GetBookmarkedResourceIDs(ctx context.Context, userID string) ([]int64, error)
	GetAccessedResourceIDs(ctx context.Context, userID string) ([]int64, error)
	GetInteractedResourceIDs(ctx context.Context, userID string) ([]int64, error)
	GetRecentInteractions(ctx context.Context, userID string, limit int) ([]models.InteractionRecord, error)
	FindSimilarUserCandidates(ctx context.Context, resourceIDs []int64, excludeUserID string, minOverlap, limit int) ([]models.UserOverlap, error)
}

type Config struct {
	CandidatePoolSize  int
	MaxSimilarUsers    int
	MinUserOverlap     int
	RecentInteractions int
	DefaultLimit       int
	MaxLimit           int
	RecommendationTTL  time.Duration
	TrendingTTL        time.Duration
	SimilarTTL         time.Duration
}

type Engine struct {
	catalog Catalog
	history History
	cache   cache.Store

	poolSize           int
	maxSimilarUsers    int
	minUserOverlap     int
	recentInteractions int
	defaultLimit       int
	maxLimit           int
	recommendationTTL  time.Duration
	trendingTTL        time.Duration
	similarTTL         time.Duration
}

func NewEngine(catalog Catalog, history History, cacheStore cache.Store, cfg Config) (*Engine, error) {
	weights := map[string]float64{
		FactorCollaborative: weightCollaborative,
		FactorContent:       weightContent,
		FactorPopularity:    weightPopularity,
		FactorDiversity:     diversityWeight,
	}
	if err := scoring.ValidateWeights(weights); err != nil {
		return nil, fmt.Errorf("recommendation engine: %w", err)
	}

	e := &Engine{
		catalog:            catalog,
		history:            history,
		cache:              cacheStore,
		poolSize:           cfg.CandidatePoolSize,
		maxSimilarUsers:    cfg.MaxSimilarUsers,
		minUserOverlap:     cfg.MinUserOverlap,
		recentInteractions: cfg.RecentInteractions,
		defaultLimit:       cfg.DefaultLimit,
		maxLimit:           cfg.MaxLimit,
		recommendationTTL:  cfg.RecommendationTTL,
		trendingTTL:        cfg.TrendingTTL,
		similarTTL:         cfg.SimilarTTL,
	}

	if e.poolSize <= 0 {
		e.poolSize = 200
	}
	if e.maxSimilarUsers <= 0 {
		e.maxSimilarUsers = 20
	}
	if e.minUserOverlap <= 0 {
		e.minUserOverlap = minSharedResources
	}
	if e.recentInteractions <= 0 {
		e.recentInteractions = 10
	}
	if e.defaultLimit <= 0 {
		e.defaultLimit = 10
	}
	if e.maxLimit <= 0 {
		e.maxLimit = 50
	}
	if e.recommendationTTL <= 0 {
		e.recommendationTTL = time.Hour
	}
	if e.trendingTTL <= 0 {
		e.trendingTTL = 15 * time.Minute
	}
	if e.similarTTL <= 0 {
		e.similarTTL = 30 * time.Minute
	}

	return e, nil
}

// GetRecommendations produces a personalized, diversity-adjusted ranking
// for the user. The diversified list (before exclusions and limit) is
// cached per (userID, analysisID) for the recommendation TTL; exclusion
// filtering and truncation always run fresh, so excluded ids are honored
// even on cache hits. Interaction writes elsewhere do not invalidate the
// cache; staleness up to the TTL is accepted.
func (e *Engine) GetRecommendations(ctx context.Context, rctx models.RecommendationContext) ([]models.ScoredResource, error) {
	start := time.Now()
	key := recommendationCacheKey(rctx.UserID, rctx.AnalysisID)

	interacted, err := e.fetchInteractedSet(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}

	ranked, cached := e.loadCachedRanking(ctx, key)
	if cached {
		metrics.CacheHits.WithLabelValues("recommendation").Inc()
	} else {
		metrics.CacheMisses.WithLabelValues("recommendation").Inc()

		ranked, err = e.computeRecommendations(ctx, rctx, interacted)
		if err != nil {
			return nil, err
		}

		// A cancelled request must not poison the cache with a partial
		// ranking.
		if ctx.Err() == nil {
			e.storeCachedRanking(ctx, key, ranked, e.recommendationTTL)
		}
	}

	excluded := scoring.ToSet(rctx.ExcludeResourceIDs)
	for id := range interacted {
		excluded[id] = struct{}{}
	}

	limit := e.clampLimit(rctx.Limit)
	results := make([]models.ScoredResource, 0, limit)
	for _, item := range ranked {
		if _, skip := excluded[item.Resource.ID]; skip {
			continue
		}
		if rctx.UserTier == models.TierFree || rctx.UserTier == "" {
			if item.Resource.IsPremium {
				continue
			}
		}
		results = append(results, item)
		if len(results) >= limit {
			break
		}
	}

	metrics.RecommendationDuration.WithLabelValues("personalized").Observe(time.Since(start).Seconds())
	logger.Debug("Recommendations generated",
		zap.String("user_id", rctx.UserID),
		zap.Bool("cache_hit", cached),
		zap.Int("results", len(results)),
	)

	return results, nil
}

func (e *Engine) computeRecommendations(ctx context.Context, rctx models.RecommendationContext, interacted map[int64]struct{}) ([]models.ScoredResource, error) {
	excludeIDs := make([]int64, 0, len(interacted))
	for id := range interacted {
		excludeIDs = append(excludeIDs, id)
	}

	candidates, err := e.catalog.FindActiveCandidates(ctx, models.CandidateFilter{
		IncludePremium: true,
		ExcludeIDs:     excludeIDs,
	}, e.poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recommendation candidates: %w", err)
	}

	neighbors, err := e.findSimilarUsers(ctx, rctx.UserID, interacted)
	if err != nil {
		return nil, err
	}

	references, err := e.recentReferenceResources(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}

	scored := make([]models.ScoredResource, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, e.scoreCandidate(candidate, rctx, neighbors, references))
	}
	metrics.CandidatesScored.Observe(float64(len(scored)))

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Resource.ID < scored[j].Resource.ID
	})

	return rerankForDiversity(scored), nil
}

// scoreCandidate blends the collaborative, content, and popularity terms.
// The returned score is the weighted base rescaled to [0,1]; the diversity
// pass folds its own term back in so the final score is the convex
// combination {collaborative 0.40, content 0.35, popularity 0.15,
// diversity 0.10}.
func (e *Engine) scoreCandidate(candidate *models.Resource, rctx models.RecommendationContext, neighbors []similarUser, references []*models.Resource) models.ScoredResource {
	collaborative := collaborativeScore(candidate.ID, neighbors)
	content := e.contentScore(candidate, rctx, references)
	popularity := scoring.Popularity(candidate)

	breakdown := map[string]float64{
		FactorCollaborative: weightCollaborative * collaborative,
		FactorContent:       weightContent * content,
		FactorPopularity:    weightPopularity * popularity,
	}

	base := breakdown[FactorCollaborative] + breakdown[FactorContent] + breakdown[FactorPopularity]

	dominant := FactorCollaborative
	for factor, contribution := range breakdown {
		if contribution > breakdown[dominant] {
			dominant = factor
		}
	}

	return models.ScoredResource{
		Resource:  candidate,
		Score:     scoring.Clamp(base / (1 - diversityWeight)),
		Breakdown: breakdown,
		Reason:    dominant,
	}
}

// contentScore averages attribute similarity against the user's most
// recent interacted resources, with a small bonus when the candidate
// matches the task context the caller resolved from the analysis. With no
// history the term is neutral so popularity and task fit drive cold-start
// rankings deterministically.
func (e *Engine) contentScore(candidate *models.Resource, rctx models.RecommendationContext, references []*models.Resource) float64 {
	score := neutralContentScore
	if len(references) > 0 {
		total := 0.0
		for _, reference := range references {
			total += scoring.ContentSimilarity(candidate, reference)
		}
		score = total / float64(len(references))
	}

	if rctx.TaskPhase.Valid() && candidate.HasPhase(rctx.TaskPhase) {
		score += taskPhaseBonus
	}
	if rctx.TaskIdeaType.Valid() && candidate.HasIdeaType(rctx.TaskIdeaType) {
		score += taskIdeaTypeBonus
	}

	return scoring.Clamp(score)
}

// fetchInteractedSet unions bookmarked and accessed ids. The two reads are
// independent and commute, so they run concurrently.
func (e *Engine) fetchInteractedSet(ctx context.Context, userID string) (map[int64]struct{}, error) {
	var (
		wg            sync.WaitGroup
		bookmarked    []int64
		accessed      []int64
		bookmarkedErr error
		accessedErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		bookmarked, bookmarkedErr = e.history.GetBookmarkedResourceIDs(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		accessed, accessedErr = e.history.GetAccessedResourceIDs(ctx, userID)
	}()
	wg.Wait()

	if bookmarkedErr != nil {
		return nil, fmt.Errorf("failed to fetch bookmarked ids: %w", bookmarkedErr)
	}
	if accessedErr != nil {
		return nil, fmt.Errorf("failed to fetch accessed ids: %w", accessedErr)
	}

	interacted := make(map[int64]struct{}, len(bookmarked)+len(accessed))
	for _, id := range bookmarked {
		interacted[id] = struct{}{}
	}
	for _, id := range accessed {
		interacted[id] = struct{}{}
	}
	return interacted, nil
}

func (e *Engine) recentReferenceResources(ctx context.Context, userID string) ([]*models.Resource, error) {
	recent, err := e.history.GetRecentInteractions(ctx, userID, e.recentInteractions)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent interactions: %w", err)
	}
	if len(recent) == 0 {
		return nil, nil
	}

	seen := make(map[int64]struct{}, len(recent))
	ids := make([]int64, 0, len(recent))
	for _, record := range recent {
		if _, dup := seen[record.ResourceID]; dup {
			continue
		}
		seen[record.ResourceID] = struct{}{}
		ids = append(ids, record.ResourceID)
	}

	references, err := e.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference resources: %w", err)
	}
	return references, nil
}

// ClearCache drops all cached recommendation sets for one user.
func (e *Engine) ClearCache(ctx context.Context, userID string) error {
	return e.cache.DeleteByPrefix(ctx, "rec:"+userID+":")
}

// ClearAllCache drops every cached ranking the engine owns.
func (e *Engine) ClearAllCache(ctx context.Context) error {
	for _, prefix := range []string{"rec:", "similar:", "trending:"} {
		if err := e.cache.DeleteByPrefix(ctx, prefix); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.defaultLimit
	}
	if limit > e.maxLimit {
		return e.maxLimit
	}
	return limit
}

func recommendationCacheKey(userID, analysisID string) string {
	return fmt.Sprintf("rec:%s:%s", userID, utils.HashString(analysisID))
}

// loadCachedRanking reads a cached ranking; backend failures count as
// misses so the request falls back to uncached computation.
func (e *Engine) loadCachedRanking(ctx context.Context, key string) ([]models.ScoredResource, bool) {
	data, found, err := e.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("Cache lookup failed, recomputing", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}

	var ranked []models.ScoredResource
	if err := json.Unmarshal(data, &ranked); err != nil {
		logger.Warn("Dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return ranked, true
}

func (e *Engine) storeCachedRanking(ctx context.Context, key string, ranked []models.ScoredResource, ttl time.Duration) {
	data, err := json.Marshal(ranked)
	if err != nil {
		logger.Warn("Failed to marshal ranking for cache", zap.Error(err))
		return
	}
	if err := e.cache.Set(ctx, key, data, ttl); err != nil {
		logger.Warn("Failed to cache ranking", zap.String("key", key), zap.Error(err))
	}
}
