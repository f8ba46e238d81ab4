package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpath/resource-engine/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.InitSchema())
	return client
}

func seedResource(t *testing.T, client *Client, opts func(*models.Resource)) int64 {
	t.Helper()

	now := time.Now()
	r := &models.Resource{
		Title:          "Resource",
		Description:    "Description",
		Type:           models.ResourceTypeArticle,
		PhaseRelevance: []models.Phase{models.PhaseResearch},
		IdeaTypes:      []models.IdeaType{models.IdeaTypeSoftware},
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if opts != nil {
		opts(r)
	}

	id, err := client.InsertResource(context.Background(), r)
	require.NoError(t, err)
	return id
}

func TestInsertAndFindResource(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	categoryID := int64(7)
	id := seedResource(t, client, func(r *models.Resource) {
		r.Title = "Customer interview guide"
		r.CategoryID = &categoryID
		r.Difficulty = models.DifficultyBeginner
		r.AverageRating = 450
		r.ViewCount = 800
		r.IsPremium = true
	})
	require.Greater(t, id, int64(0))

	found, err := client.FindByIDs(ctx, []int64{id})
	require.NoError(t, err)
	require.Len(t, found, 1)

	r := found[0]
	assert.Equal(t, "Customer interview guide", r.Title)
	require.NotNil(t, r.CategoryID)
	assert.Equal(t, int64(7), *r.CategoryID)
	assert.Equal(t, models.DifficultyBeginner, r.Difficulty)
	assert.Equal(t, []models.Phase{models.PhaseResearch}, r.PhaseRelevance)
	assert.Equal(t, []models.IdeaType{models.IdeaTypeSoftware}, r.IdeaTypes)
	assert.Equal(t, 450, r.AverageRating)
	assert.True(t, r.IsPremium)
	assert.True(t, r.IsActive)
}

func TestFindByIDsEmpty(t *testing.T) {
	client := newTestClient(t)

	found, err := client.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFindActiveCandidatesFiltering(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	active := seedResource(t, client, func(r *models.Resource) { r.AverageRating = 300 })
	seedResource(t, client, func(r *models.Resource) { r.IsActive = false })
	premium := seedResource(t, client, func(r *models.Resource) {
		r.IsPremium = true
		r.AverageRating = 500
	})

	// Free view: only the active non-premium resource.
	found, err := client.FindActiveCandidates(ctx, models.CandidateFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, active, found[0].ID)

	// Premium view is rating-ordered.
	found, err = client.FindActiveCandidates(ctx, models.CandidateFilter{IncludePremium: true}, 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, premium, found[0].ID)

	// Exclusions are applied in the query.
	found, err = client.FindActiveCandidates(ctx, models.CandidateFilter{
		IncludePremium: true,
		ExcludeIDs:     []int64{premium},
	}, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, active, found[0].ID)
}

func TestInteractionAndBookmarkHistory(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	r1 := seedResource(t, client, nil)
	r2 := seedResource(t, client, nil)
	r3 := seedResource(t, client, nil)

	for _, resourceID := range []int64{r1, r1, r2} {
		require.NoError(t, client.InsertInteraction(ctx, &models.InteractionRecord{
			UserID:     "u1",
			ResourceID: resourceID,
			AccessType: models.AccessView,
			CreatedAt:  time.Now(),
		}))
	}
	require.NoError(t, client.InsertBookmark(ctx, "u1", r3))
	// Duplicate bookmarks are ignored.
	require.NoError(t, client.InsertBookmark(ctx, "u1", r3))

	accessed, err := client.GetAccessedResourceIDs(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{r1, r2}, accessed)

	bookmarked, err := client.GetBookmarkedResourceIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []int64{r3}, bookmarked)

	interacted, err := client.GetInteractedResourceIDs(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{r1, r2, r3}, interacted)

	// Unknown users have empty histories.
	interacted, err = client.GetInteractedResourceIDs(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, interacted)
}

func TestGetRecentInteractionsOrder(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	r1 := seedResource(t, client, nil)
	r2 := seedResource(t, client, nil)

	base := time.Now().Add(-time.Hour)
	require.NoError(t, client.InsertInteraction(ctx, &models.InteractionRecord{
		UserID: "u1", ResourceID: r1, AccessType: models.AccessView, CreatedAt: base,
	}))
	require.NoError(t, client.InsertInteraction(ctx, &models.InteractionRecord{
		UserID: "u1", ResourceID: r2, AccessType: models.AccessDownload, CreatedAt: base.Add(time.Minute),
	}))

	records, err := client.GetRecentInteractions(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, r2, records[0].ResourceID)
	assert.Equal(t, models.AccessDownload, records[0].AccessType)
	assert.Equal(t, r1, records[1].ResourceID)

	records, err = client.GetRecentInteractions(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFindSimilarUserCandidates(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	r1 := seedResource(t, client, nil)
	r2 := seedResource(t, client, nil)
	r3 := seedResource(t, client, nil)

	interactions := []struct {
		user     string
		resource int64
	}{
		{"u1", r1}, {"u1", r2},
		{"u2", r1}, {"u2", r2}, {"u2", r3},
		{"u3", r1},
	}
	for _, i := range interactions {
		require.NoError(t, client.InsertInteraction(ctx, &models.InteractionRecord{
			UserID: i.user, ResourceID: i.resource, AccessType: models.AccessView, CreatedAt: time.Now(),
		}))
	}
	// Bookmarks count toward overlap too.
	require.NoError(t, client.InsertBookmark(ctx, "u3", r2))

	overlaps, err := client.FindSimilarUserCandidates(ctx, []int64{r1, r2}, "u1", 2, 20)
	require.NoError(t, err)
	require.Len(t, overlaps, 2)

	assert.Equal(t, "u2", overlaps[0].UserID)
	assert.Equal(t, 2, overlaps[0].OverlapCount)
	assert.Equal(t, "u3", overlaps[1].UserID)
	assert.Equal(t, 2, overlaps[1].OverlapCount)

	// A higher floor drops everyone.
	overlaps, err = client.FindSimilarUserCandidates(ctx, []int64{r1, r2}, "u1", 3, 20)
	require.NoError(t, err)
	assert.Empty(t, overlaps)

	overlaps, err = client.FindSimilarUserCandidates(ctx, nil, "u1", 2, 20)
	require.NoError(t, err)
	assert.Nil(t, overlaps)
}

func TestAccessCountsSince(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	r1 := seedResource(t, client, nil)
	r2 := seedResource(t, client, nil)

	now := time.Now()
	old := now.Add(-48 * time.Hour)

	require.NoError(t, client.InsertInteraction(ctx, &models.InteractionRecord{
		UserID: "u1", ResourceID: r1, AccessType: models.AccessView, CreatedAt: old,
	}))
	require.NoError(t, client.InsertInteraction(ctx, &models.InteractionRecord{
		UserID: "u1", ResourceID: r1, AccessType: models.AccessView, CreatedAt: now,
	}))
	require.NoError(t, client.InsertInteraction(ctx, &models.InteractionRecord{
		UserID: "u2", ResourceID: r2, AccessType: models.AccessView, CreatedAt: now,
	}))

	counts, err := client.AccessCountsSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[r1])
	assert.Equal(t, int64(1), counts[r2])

	counts, err = client.AccessCountsSince(ctx, old.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[r1])
}
