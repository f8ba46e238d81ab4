package recommend

import (
	"context"
	"fmt"

	"github.com/launchpath/resource-engine/internal/scoring"
)

const (
	// minSimilarityThreshold is the Jaccard floor below which an
	// overlapping user carries no vote.
	minSimilarityThreshold = 0.1

	// minSharedResources is the default raw overlap required before a user
	// is even considered as a similarity candidate.
	minSharedResources = 2
)

// similarUser is a neighbor in the user-based kNN filter: their full
// interacted set and the Jaccard similarity to the target user.
type similarUser struct {
	userID     string
	similarity float64
	interacted map[int64]struct{}
}

// findSimilarUsers runs the candidate query (users sharing at least the
// configured minimum of interactions, ranked by raw overlap) and keeps the
// neighbors whose full-set Jaccard similarity clears the threshold.
func (e *Engine) findSimilarUsers(ctx context.Context, userID string, interacted map[int64]struct{}) ([]similarUser, error) {
	if len(interacted) == 0 {
		return nil, nil
	}

	interactedIDs := make([]int64, 0, len(interacted))
	for id := range interacted {
		interactedIDs = append(interactedIDs, id)
	}

	candidates, err := e.history.FindSimilarUserCandidates(ctx, interactedIDs, userID, e.minUserOverlap, e.maxSimilarUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to find similar user candidates: %w", err)
	}

	neighbors := make([]similarUser, 0, len(candidates))
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		theirIDs, err := e.history.GetInteractedResourceIDs(ctx, candidate.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load interactions for user %s: %w", candidate.UserID, err)
		}

		theirSet := scoring.ToSet(theirIDs)
		similarity := scoring.Jaccard(interacted, theirSet)
		if similarity < minSimilarityThreshold {
			continue
		}

		neighbors = append(neighbors, similarUser{
			userID:     candidate.UserID,
			similarity: similarity,
			interacted: theirSet,
		})
	}

	return neighbors, nil
}

// collaborativeScore is the similarity-weighted vote of the neighbors who
// interacted with the resource, normalized by the total neighbor weight.
// Returns 0 with no qualifying neighbors (cold start).
func collaborativeScore(resourceID int64, neighbors []similarUser) float64 {
	if len(neighbors) == 0 {
		return 0
	}

	var votes, totalWeight float64
	for _, neighbor := range neighbors {
		totalWeight += neighbor.similarity
		if _, ok := neighbor.interacted[resourceID]; ok {
			votes += neighbor.similarity
		}
	}

	if totalWeight == 0 {
		return 0
	}

	return scoring.Clamp(votes / totalWeight)
}
