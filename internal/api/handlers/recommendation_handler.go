package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/launchpath/resource-engine/internal/metrics"
	"github.com/launchpath/resource-engine/internal/recommend"
	"github.com/launchpath/resource-engine/internal/storage/models"
	"github.com/launchpath/resource-engine/pkg/logger"
)

type RecommendationHandler struct {
	engine *recommend.Engine
}

func NewRecommendationHandler(engine *recommend.Engine) *RecommendationHandler {
	return &RecommendationHandler{
		engine: engine,
	}
}

func (h *RecommendationHandler) HandleRecommendations(c *fiber.Ctx) error {
	var req struct {
		UserID             string  `json:"user_id"`
		AnalysisID         string  `json:"analysis_id"`
		UserTier           string  `json:"user_tier"`
		TaskPhase          string  `json:"task_phase"`
		TaskIdeaType       string  `json:"task_idea_type"`
		Limit              int     `json:"limit"`
		ExcludeResourceIDs []int64 `json:"exclude_resource_ids"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse recommendation request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	rctx := models.RecommendationContext{
		UserID:             req.UserID,
		AnalysisID:         req.AnalysisID,
		UserTier:           models.Tier(req.UserTier),
		TaskPhase:          models.Phase(req.TaskPhase),
		TaskIdeaType:       models.IdeaType(req.TaskIdeaType),
		Limit:              req.Limit,
		ExcludeResourceIDs: req.ExcludeResourceIDs,
	}

	results, err := h.engine.GetRecommendations(c.Context(), rctx)
	if err != nil {
		metrics.RequestTotal.WithLabelValues("recommendations", "error").Inc()
		logger.Error("Failed to generate recommendations", zap.Error(err), zap.String("user_id", req.UserID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate recommendations",
		})
	}

	metrics.RequestTotal.WithLabelValues("recommendations", "ok").Inc()
	observeTopScore(results)

	return c.JSON(fiber.Map{
		"user_id": req.UserID,
		"count":   len(results),
		"results": toScoredResponses(results),
	})
}

func (h *RecommendationHandler) GetSimilarResources(c *fiber.Ctx) error {
	resourceID, err := c.ParamsInt("id")
	if err != nil || resourceID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resource id",
		})
	}

	limit := c.QueryInt("limit")

	results, err := h.engine.GetSimilarResources(c.Context(), int64(resourceID), limit)
	if err != nil {
		metrics.RequestTotal.WithLabelValues("similar", "error").Inc()
		logger.Error("Failed to fetch similar resources", zap.Error(err), zap.Int("resource_id", resourceID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch similar resources",
		})
	}

	metrics.RequestTotal.WithLabelValues("similar", "ok").Inc()

	return c.JSON(fiber.Map{
		"resource_id": resourceID,
		"count":       len(results),
		"results":     toScoredResponses(results),
	})
}

func (h *RecommendationHandler) GetTrendingResources(c *fiber.Ctx) error {
	timeframe := recommend.Timeframe(c.Query("timeframe", string(recommend.TimeframeWeek)))
	limit := c.QueryInt("limit")

	results, err := h.engine.GetTrendingResources(c.Context(), timeframe, limit)
	if err != nil {
		metrics.RequestTotal.WithLabelValues("trending", "error").Inc()
		logger.Error("Failed to fetch trending resources", zap.Error(err), zap.String("timeframe", string(timeframe)))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch trending resources",
		})
	}

	metrics.RequestTotal.WithLabelValues("trending", "ok").Inc()

	return c.JSON(fiber.Map{
		"timeframe": string(timeframe),
		"count":     len(results),
		"results":   toScoredResponses(results),
	})
}

func (h *RecommendationHandler) ClearUserCache(c *fiber.Ctx) error {
	userID := c.Params("userID")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userID is required",
		})
	}

	if err := h.engine.ClearCache(c.Context(), userID); err != nil {
		logger.Error("Failed to clear user cache", zap.Error(err), zap.String("user_id", userID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear cache",
		})
	}

	return c.JSON(fiber.Map{
		"status": "cleared",
	})
}

func (h *RecommendationHandler) ClearAllCache(c *fiber.Ctx) error {
	if err := h.engine.ClearAllCache(c.Context()); err != nil {
		logger.Error("Failed to clear caches", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear cache",
		})
	}

	return c.JSON(fiber.Map{
		"status": "cleared",
	})
}
