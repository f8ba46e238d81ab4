package scoring

import "github.com/launchpath/resource-engine/internal/storage/models"

const (
	contentCategoryWeight = 0.3
	contentPhaseWeight    = 0.25
	contentIdeaTypeWeight = 0.25
	contentTypeWeight     = 0.2
)

// ContentSimilarity scores attribute overlap between two resources in
// [0,1]. Symmetric; callers are expected not to compare a resource with
// itself.
func ContentSimilarity(a, b *models.Resource) float64 {
	score := 0.0

	if a.CategoryID != nil && b.CategoryID != nil && *a.CategoryID == *b.CategoryID {
		score += contentCategoryWeight
	}

	score += contentPhaseWeight * Jaccard(ToSet(a.PhaseRelevance), ToSet(b.PhaseRelevance))
	score += contentIdeaTypeWeight * Jaccard(ToSet(a.IdeaTypes), ToSet(b.IdeaTypes))

	if a.Type != "" && a.Type == b.Type {
		score += contentTypeWeight
	}

	return Clamp(score)
}
