package handlers

import (
	"github.com/launchpath/resource-engine/internal/metrics"
	"github.com/launchpath/resource-engine/internal/storage/models"
)

type resourceResponse struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	CategoryID     *int64   `json:"category_id,omitempty"`
	Type           string   `json:"resource_type"`
	PhaseRelevance []string `json:"phase_relevance"`
	IdeaTypes      []string `json:"idea_types"`
	Difficulty     string   `json:"difficulty,omitempty"`
	AverageRating  int      `json:"average_rating"`
	ViewCount      int64    `json:"view_count"`
	BookmarkCount  int64    `json:"bookmark_count"`
	IsPremium      bool     `json:"is_premium"`
}

type scoredResponse struct {
	Resource  resourceResponse   `json:"resource"`
	Score     float64            `json:"score"`
	Breakdown map[string]float64 `json:"breakdown"`
	Reason    string             `json:"reason"`
}

func toScoredResponses(items []models.ScoredResource) []scoredResponse {
	out := make([]scoredResponse, 0, len(items))
	for _, item := range items {
		out = append(out, scoredResponse{
			Resource:  toResourceResponse(item.Resource),
			Score:     item.Score,
			Breakdown: item.Breakdown,
			Reason:    item.Reason,
		})
	}
	return out
}

func toResourceResponse(r *models.Resource) resourceResponse {
	phases := make([]string, 0, len(r.PhaseRelevance))
	for _, p := range r.PhaseRelevance {
		phases = append(phases, string(p))
	}
	ideaTypes := make([]string, 0, len(r.IdeaTypes))
	for _, t := range r.IdeaTypes {
		ideaTypes = append(ideaTypes, string(t))
	}

	return resourceResponse{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		CategoryID:     r.CategoryID,
		Type:           string(r.Type),
		PhaseRelevance: phases,
		IdeaTypes:      ideaTypes,
		Difficulty:     string(r.Difficulty),
		AverageRating:  r.AverageRating,
		ViewCount:      r.ViewCount,
		BookmarkCount:  r.BookmarkCount,
		IsPremium:      r.IsPremium,
	}
}

func observeTopScore(results []models.ScoredResource) {
	if len(results) > 0 {
		metrics.ResultScore.Observe(results[0].Score)
	}
}
