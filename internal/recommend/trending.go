package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/launchpath/resource-engine/internal/metrics"
	"github.com/launchpath/resource-engine/internal/scoring"
	"github.com/launchpath/resource-engine/internal/storage/models"
	"github.com/launchpath/resource-engine/pkg/logger"
)

type Timeframe string

const (
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
)

func (t Timeframe) Valid() bool {
	switch t {
	case TimeframeDay, TimeframeWeek, TimeframeMonth:
		return true
	}
	return false
}

func (t Timeframe) window() time.Duration {
	switch t {
	case TimeframeDay:
		return 24 * time.Hour
	case TimeframeMonth:
		return 30 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

const (
	trendingRecencyWeight = 0.7
	trendingRatingWeight  = 0.3
)

// GetTrendingResources ranks by recent access volume blended with rating:
// 0.7·normalized recent accesses + 0.3·normalized rating. When the window
// holds no access data at all the ranking falls back to rating alone.
func (e *Engine) GetTrendingResources(ctx context.Context, timeframe Timeframe, limit int) ([]models.ScoredResource, error) {
	if !timeframe.Valid() {
		timeframe = TimeframeWeek
	}
	key := fmt.Sprintf("trending:%s", timeframe)

	ranked, cached := e.loadCachedRanking(ctx, key)
	if cached {
		metrics.CacheHits.WithLabelValues("trending").Inc()
		return e.truncate(ranked, limit), nil
	}
	metrics.CacheMisses.WithLabelValues("trending").Inc()

	since := time.Now().Add(-timeframe.window())
	counts, err := e.catalog.AccessCountsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch access counts: %w", err)
	}

	if len(counts) == 0 {
		ranked, err = e.trendingByRating(ctx)
	} else {
		ranked, err = e.trendingByAccess(ctx, counts)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Resource.ID < ranked[j].Resource.ID
	})

	if ctx.Err() == nil {
		e.storeCachedRanking(ctx, key, ranked, e.trendingTTL)
	}

	logger.Debug("Trending computed",
		zap.String("timeframe", string(timeframe)),
		zap.Int("with_access_data", len(counts)),
	)

	return e.truncate(ranked, limit), nil
}

func (e *Engine) trendingByAccess(ctx context.Context, counts map[int64]int64) ([]models.ScoredResource, error) {
	ids := make([]int64, 0, len(counts))
	var maxCount int64
	for id, count := range counts {
		ids = append(ids, id)
		if count > maxCount {
			maxCount = count
		}
	}

	resources, err := e.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load trending resources: %w", err)
	}

	ranked := make([]models.ScoredResource, 0, len(resources))
	for _, resource := range resources {
		if !resource.IsActive {
			continue
		}

		recency := scoring.Clamp(float64(counts[resource.ID]) / float64(maxCount))
		rating := scoring.NormalizedRating(resource)
		score := trendingRecencyWeight*recency + trendingRatingWeight*rating

		ranked = append(ranked, models.ScoredResource{
			Resource: resource,
			Score:    scoring.Round2(scoring.Clamp(score)),
			Breakdown: map[string]float64{
				"recency": trendingRecencyWeight * recency,
				"rating":  trendingRatingWeight * rating,
			},
			Reason: "recency",
		})
	}
	return ranked, nil
}

func (e *Engine) trendingByRating(ctx context.Context) ([]models.ScoredResource, error) {
	candidates, err := e.catalog.FindActiveCandidates(ctx, models.CandidateFilter{IncludePremium: true}, e.poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rating fallback candidates: %w", err)
	}

	ranked := make([]models.ScoredResource, 0, len(candidates))
	for _, resource := range candidates {
		rating := scoring.NormalizedRating(resource)
		ranked = append(ranked, models.ScoredResource{
			Resource: resource,
			Score:    scoring.Round2(rating),
			Breakdown: map[string]float64{
				"rating": rating,
			},
			Reason: "rating",
		})
	}
	return ranked, nil
}
