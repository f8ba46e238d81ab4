package recommend

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/launchpath/resource-engine/internal/metrics"
	"github.com/launchpath/resource-engine/internal/scoring"
	"github.com/launchpath/resource-engine/internal/storage/models"
	"github.com/launchpath/resource-engine/pkg/logger"
)

// GetSimilarResources ranks active resources by pure content similarity to
// the given resource. An unknown id yields an empty result, not an error.
func (e *Engine) GetSimilarResources(ctx context.Context, resourceID int64, limit int) ([]models.ScoredResource, error) {
	key := fmt.Sprintf("similar:%d", resourceID)

	ranked, cached := e.loadCachedRanking(ctx, key)
	if cached {
		metrics.CacheHits.WithLabelValues("similar").Inc()
		return e.truncate(ranked, limit), nil
	}
	metrics.CacheMisses.WithLabelValues("similar").Inc()

	base, err := e.catalog.FindByIDs(ctx, []int64{resourceID})
	if err != nil {
		return nil, fmt.Errorf("failed to load resource %d: %w", resourceID, err)
	}
	if len(base) == 0 {
		logger.Debug("Similar resources requested for unknown id", zap.Int64("resource_id", resourceID))
		return nil, nil
	}
	reference := base[0]

	candidates, err := e.catalog.FindActiveCandidates(ctx, models.CandidateFilter{
		IncludePremium: true,
		ExcludeIDs:     []int64{resourceID},
	}, e.poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch similarity candidates: %w", err)
	}

	ranked = make([]models.ScoredResource, 0, len(candidates))
	for _, candidate := range candidates {
		similarity := scoring.ContentSimilarity(reference, candidate)
		ranked = append(ranked, models.ScoredResource{
			Resource: candidate,
			Score:    scoring.Round2(similarity),
			Breakdown: map[string]float64{
				FactorContent: similarity,
			},
			Reason: FactorContent,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Resource.ID < ranked[j].Resource.ID
	})

	if ctx.Err() == nil {
		e.storeCachedRanking(ctx, key, ranked, e.similarTTL)
	}

	return e.truncate(ranked, limit), nil
}

func (e *Engine) truncate(items []models.ScoredResource, limit int) []models.ScoredResource {
	limit = e.clampLimit(limit)
	if len(items) <= limit {
		return items
	}
	return items[:limit]
}
