package recommend

import (
	"sort"

	"github.com/launchpath/resource-engine/internal/scoring"
	"github.com/launchpath/resource-engine/internal/storage/models"
)

const (
	categoryPenaltyStep = 0.1
	typePenaltyStep     = 0.05
	diversityWeight     = 0.10
)

// rerankForDiversity penalizes categories and resource types that are
// already represented earlier in the ranked list:
//
//	diversityScore = max(0, 1 - 0.1·priorSameCategory - 0.05·priorSameType)
//	adjusted       = raw·(1-DIVERSITY_WEIGHT) + diversityScore·DIVERSITY_WEIGHT
//
// The walk is order-dependent and counts update after each item is scored,
// so re-applying the pass to its own output is not idempotent. Input order
// must be descending by raw score.
func rerankForDiversity(items []models.ScoredResource) []models.ScoredResource {
	categoryCounts := make(map[int64]int)
	typeCounts := make(map[models.ResourceType]int)

	reranked := make([]models.ScoredResource, len(items))
	for i, item := range items {
		penalty := 0.0
		if item.Resource.CategoryID != nil {
			penalty += categoryPenaltyStep * float64(categoryCounts[*item.Resource.CategoryID])
		}
		penalty += typePenaltyStep * float64(typeCounts[item.Resource.Type])

		diversityScore := 1.0 - penalty
		if diversityScore < 0 {
			diversityScore = 0
		}

		adjusted := item.Score*(1-diversityWeight) + diversityScore*diversityWeight
		item.Score = scoring.Round2(scoring.Clamp(adjusted))
		if item.Breakdown != nil {
			item.Breakdown[FactorDiversity] = diversityWeight * diversityScore
		}
		reranked[i] = item

		if item.Resource.CategoryID != nil {
			categoryCounts[*item.Resource.CategoryID]++
		}
		typeCounts[item.Resource.Type]++
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		if reranked[i].Score != reranked[j].Score {
			return reranked[i].Score > reranked[j].Score
		}
		return reranked[i].Resource.ID < reranked[j].Resource.ID
	})

	return reranked
}
