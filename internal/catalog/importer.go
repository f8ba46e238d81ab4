package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/launchpath/resource-engine/internal/metrics"
	"github.com/launchpath/resource-engine/internal/storage/models"
	"github.com/launchpath/resource-engine/internal/storage/sqlite"
	"github.com/launchpath/resource-engine/pkg/logger"
)

// Importer populates the catalog and interaction-history store from plain
// records. The recommendation engine itself never writes; this is the
// ingest path for the collaborator it reads from.
type Importer struct {
	db *sqlite.Client
}

func NewImporter(db *sqlite.Client) *Importer {
	return &Importer{db: db}
}

type ResourceInput struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	CategoryID     *int64   `json:"category_id"`
	Type           string   `json:"resource_type"`
	PhaseRelevance []string `json:"phase_relevance"`
	IdeaTypes      []string `json:"idea_types"`
	Difficulty     string   `json:"difficulty"`
	AverageRating  int      `json:"average_rating"`
	ViewCount      int64    `json:"view_count"`
	BookmarkCount  int64    `json:"bookmark_count"`
	IsActive       bool     `json:"is_active"`
	IsPremium      bool     `json:"is_premium"`
}

type ImportReport struct {
	RunID    string   `json:"run_id"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

func (i *Importer) ImportResources(ctx context.Context, inputs []ResourceInput) (*ImportReport, error) {
	runID := uuid.New().String()
	report := &ImportReport{RunID: runID}

	logger.Info("Importing resources", zap.String("run_id", runID), zap.Int("count", len(inputs)))

	for index, input := range inputs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		resource, err := buildResource(input)
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("record %d: %v", index, err))
			continue
		}

		if _, err := i.db.InsertResource(ctx, resource); err != nil {
			return report, fmt.Errorf("failed to import record %d: %w", index, err)
		}

		report.Imported++
		metrics.ResourcesImported.Inc()
	}

	logger.Info("Resource import completed",
		zap.String("run_id", runID),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped),
	)

	return report, nil
}

func buildResource(input ResourceInput) (*models.Resource, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if input.AverageRating < 0 || input.AverageRating > 500 {
		return nil, fmt.Errorf("average_rating %d outside 0-500", input.AverageRating)
	}
	if input.ViewCount < 0 || input.BookmarkCount < 0 {
		return nil, fmt.Errorf("engagement counts must be non-negative")
	}

	phases := make([]models.Phase, 0, len(input.PhaseRelevance))
	for _, raw := range input.PhaseRelevance {
		phase := models.Phase(raw)
		if !phase.Valid() {
			return nil, fmt.Errorf("unknown phase %q", raw)
		}
		phases = append(phases, phase)
	}

	ideaTypes := make([]models.IdeaType, 0, len(input.IdeaTypes))
	for _, raw := range input.IdeaTypes {
		ideaType := models.IdeaType(raw)
		if !ideaType.Valid() {
			return nil, fmt.Errorf("unknown idea type %q", raw)
		}
		ideaTypes = append(ideaTypes, ideaType)
	}

	difficulty := models.Difficulty(input.Difficulty)
	if input.Difficulty != "" && difficulty.Level() < 0 {
		return nil, fmt.Errorf("unknown difficulty %q", input.Difficulty)
	}

	now := time.Now()
	return &models.Resource{
		Title:          input.Title,
		Description:    input.Description,
		CategoryID:     input.CategoryID,
		Type:           models.ResourceType(input.Type),
		PhaseRelevance: phases,
		IdeaTypes:      ideaTypes,
		Difficulty:     difficulty,
		AverageRating:  input.AverageRating,
		ViewCount:      input.ViewCount,
		BookmarkCount:  input.BookmarkCount,
		IsActive:       input.IsActive,
		IsPremium:      input.IsPremium,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// RecordInteraction appends a view/download/external-link event. The
// recommendation cache is deliberately not invalidated here; staleness up
// to the cache TTL is the documented consistency window.
func (i *Importer) RecordInteraction(ctx context.Context, userID string, resourceID int64, accessType string) error {
	access := models.AccessType(accessType)
	switch access {
	case models.AccessView, models.AccessDownload, models.AccessExternalLink:
	default:
		return fmt.Errorf("unknown access type %q", accessType)
	}

	record := &models.InteractionRecord{
		UserID:     userID,
		ResourceID: resourceID,
		AccessType: access,
		CreatedAt:  time.Now(),
	}

	if err := i.db.InsertInteraction(ctx, record); err != nil {
		return err
	}

	metrics.InteractionsRecorded.Inc()
	return nil
}

// RecordBookmark stores a bookmark; duplicates are ignored.
func (i *Importer) RecordBookmark(ctx context.Context, userID string, resourceID int64) error {
	return i.db.InsertBookmark(ctx, userID, resourceID)
}
