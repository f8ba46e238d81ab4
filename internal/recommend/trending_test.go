package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpath/resource-engine/internal/storage/models"
)

func TestTimeframe(t *testing.T) {
	assert.True(t, TimeframeDay.Valid())
	assert.True(t, TimeframeWeek.Valid())
	assert.True(t, TimeframeMonth.Valid())
	assert.False(t, Timeframe("year").Valid())
}

func TestGetTrendingResourcesByAccess(t *testing.T) {
	catalog := &fakeCatalog{
		resources: map[int64]*models.Resource{
			1: catalogResource(1, nil),
			2: catalogResource(2, nil),
			3: catalogResource(3, func(r *models.Resource) { r.IsActive = false }),
		},
		counts: map[int64]int64{1: 10, 2: 5, 3: 100},
	}

	engine := newTestEngine(t, catalog, emptyHistory(), nil)

	results, err := engine.GetTrendingResources(context.Background(), TimeframeWeek, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Inactive resources never trend, even with the most accesses.
	for _, item := range results {
		assert.NotEqual(t, int64(3), item.Resource.ID)
	}

	assert.Equal(t, int64(1), results[0].Resource.ID)
	assert.Equal(t, "recency", results[0].Reason)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestGetTrendingResourcesRatingFallback(t *testing.T) {
	catalog := &fakeCatalog{
		resources: map[int64]*models.Resource{
			1: catalogResource(1, func(r *models.Resource) { r.AverageRating = 200 }),
			2: catalogResource(2, func(r *models.Resource) { r.AverageRating = 450 }),
		},
	}

	engine := newTestEngine(t, catalog, emptyHistory(), nil)

	results, err := engine.GetTrendingResources(context.Background(), TimeframeDay, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, int64(2), results[0].Resource.ID)
	assert.Equal(t, "rating", results[0].Reason)
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)
}

func TestGetTrendingResourcesInvalidTimeframe(t *testing.T) {
	catalog := &fakeCatalog{
		resources: map[int64]*models.Resource{
			1: catalogResource(1, nil),
		},
		counts: map[int64]int64{1: 3},
	}

	engine := newTestEngine(t, catalog, emptyHistory(), nil)
	ctx := context.Background()

	// An unknown timeframe falls back to the weekly window and shares its
	// cache entry.
	_, err := engine.GetTrendingResources(ctx, Timeframe("bogus"), 10)
	require.NoError(t, err)

	results, err := engine.GetTrendingResources(ctx, TimeframeWeek, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}
