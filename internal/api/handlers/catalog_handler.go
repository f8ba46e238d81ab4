package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/launchpath/resource-engine/internal/catalog"
	"github.com/launchpath/resource-engine/pkg/logger"
)

type CatalogHandler struct {
	importer *catalog.Importer
}

func NewCatalogHandler(importer *catalog.Importer) *CatalogHandler {
	return &CatalogHandler{
		importer: importer,
	}
}

func (h *CatalogHandler) ImportResources(c *fiber.Ctx) error {
	var req struct {
		Resources []catalog.ResourceInput `json:"resources"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse import request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if len(req.Resources) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Resources array is required",
		})
	}

	report, err := h.importer.ImportResources(c.Context(), req.Resources)
	if err != nil {
		logger.Error("Resource import failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to import resources",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *CatalogHandler) RecordInteraction(c *fiber.Ctx) error {
	var req struct {
		UserID     string `json:"user_id"`
		ResourceID int64  `json:"resource_id"`
		AccessType string `json:"access_type"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse interaction request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.UserID == "" || req.ResourceID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id and resource_id are required",
		})
	}

	if err := h.importer.RecordInteraction(c.Context(), req.UserID, req.ResourceID, req.AccessType); err != nil {
		logger.Error("Failed to record interaction", zap.Error(err), zap.String("user_id", req.UserID))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to record interaction",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "recorded",
	})
}

func (h *CatalogHandler) RecordBookmark(c *fiber.Ctx) error {
	var req struct {
		UserID     string `json:"user_id"`
		ResourceID int64  `json:"resource_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse bookmark request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.UserID == "" || req.ResourceID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id and resource_id are required",
		})
	}

	if err := h.importer.RecordBookmark(c.Context(), req.UserID, req.ResourceID); err != nil {
		logger.Error("Failed to record bookmark", zap.Error(err), zap.String("user_id", req.UserID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record bookmark",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "recorded",
	})
}
