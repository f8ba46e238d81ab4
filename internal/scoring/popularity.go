package scoring

import "github.com/launchpath/resource-engine/internal/storage/models"

const (
	maxRating = 500.0

	// Saturation points: engagement above these counts no longer raises
	// the popularity score.
	viewSaturation     = 1000.0
	bookmarkSaturation = 100.0

	popularityRatingWeight   = 0.5
	popularityViewWeight     = 0.3
	popularityBookmarkWeight = 0.2

	blendRatingWeight = 0.7
	blendViewWeight   = 0.3
)

// Popularity normalizes engagement signals into [0,1]:
// 0.5·rating + 0.3·views + 0.2·bookmarks, each term saturating at its cap.
func Popularity(r *models.Resource) float64 {
	rating := Clamp(float64(r.AverageRating) / maxRating)
	views := Clamp(float64(r.ViewCount) / viewSaturation)
	bookmarks := Clamp(float64(r.BookmarkCount) / bookmarkSaturation)

	return Clamp(popularityRatingWeight*rating +
		popularityViewWeight*views +
		popularityBookmarkWeight*bookmarks)
}

// RatingViewBlend is the simpler rating/view popularity term used by the
// step matching scorer.
func RatingViewBlend(r *models.Resource) float64 {
	rating := Clamp(float64(r.AverageRating) / maxRating)
	views := Clamp(float64(r.ViewCount) / viewSaturation)

	return Clamp(blendRatingWeight*rating + blendViewWeight*views)
}

// NormalizedRating maps the 0-500 stored rating to [0,1].
func NormalizedRating(r *models.Resource) float64 {
	return Clamp(float64(r.AverageRating) / maxRating)
}
