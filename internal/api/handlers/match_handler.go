package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/launchpath/resource-engine/internal/matching"
	"github.com/launchpath/resource-engine/internal/metrics"
	"github.com/launchpath/resource-engine/internal/storage/models"
	"github.com/launchpath/resource-engine/pkg/logger"
)

type MatchHandler struct {
	matcher *matching.Engine
}

func NewMatchHandler(matcher *matching.Engine) *MatchHandler {
	return &MatchHandler{
		matcher: matcher,
	}
}

func (h *MatchHandler) HandleMatch(c *fiber.Ctx) error {
	var req struct {
		Phase            string   `json:"phase"`
		IdeaType         string   `json:"idea_type"`
		StepKeywords     []string `json:"step_keywords"`
		UserExperience   string   `json:"user_experience"`
		PreviouslyViewed []int64  `json:"previously_viewed"`
		UserTier         string   `json:"user_tier"`
		Limit            int      `json:"limit"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse match request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	mctx := models.MatchingContext{
		Phase:            models.Phase(req.Phase),
		IdeaType:         models.IdeaType(req.IdeaType),
		StepKeywords:     req.StepKeywords,
		UserExperience:   models.Difficulty(req.UserExperience),
		PreviouslyViewed: req.PreviouslyViewed,
		UserTier:         models.Tier(req.UserTier),
	}

	start := time.Now()
	results, err := h.matcher.MatchResourcesToStep(c.Context(), mctx, req.Limit)
	metrics.MatchDuration.WithLabelValues("step").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RequestTotal.WithLabelValues("match", "error").Inc()
		logger.Error("Failed to match resources", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to match resources",
		})
	}

	metrics.RequestTotal.WithLabelValues("match", "ok").Inc()
	observeTopScore(results)

	return c.JSON(fiber.Map{
		"phase":   req.Phase,
		"count":   len(results),
		"results": toScoredResponses(results),
	})
}

func (h *MatchHandler) GetPhaseResources(c *fiber.Ctx) error {
	phase := models.Phase(c.Params("phase"))
	if !phase.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown phase",
		})
	}

	ideaType := models.IdeaType(c.Query("idea_type"))
	tier := models.Tier(c.Query("tier"))
	limit := c.QueryInt("limit")

	start := time.Now()
	results, err := h.matcher.GetPhaseResources(c.Context(), phase, ideaType, tier, limit)
	metrics.MatchDuration.WithLabelValues("phase").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RequestTotal.WithLabelValues("phase_resources", "error").Inc()
		logger.Error("Failed to fetch phase resources", zap.Error(err), zap.String("phase", string(phase)))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch phase resources",
		})
	}

	metrics.RequestTotal.WithLabelValues("phase_resources", "ok").Inc()

	return c.JSON(fiber.Map{
		"phase":   string(phase),
		"count":   len(results),
		"results": toScoredResponses(results),
	})
}
