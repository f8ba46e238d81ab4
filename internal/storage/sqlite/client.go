package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/launchpath/resource-engine/internal/storage/models"
	"github.com/launchpath/resource-engine/pkg/logger"
	"github.com/launchpath/resource-engine/pkg/retry"
)

// Client implements the catalog and interaction-history collaborators on
// SQLite. The engine treats it as read-only during a scoring call; writes
// come from the importer and the interaction-recording endpoint.
type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err = db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category_id INTEGER,
		resource_type TEXT NOT NULL,
		phase_relevance TEXT NOT NULL DEFAULT '[]',
		idea_types TEXT NOT NULL DEFAULT '[]',
		difficulty TEXT,
		average_rating INTEGER NOT NULL DEFAULT 0,
		view_count INTEGER NOT NULL DEFAULT 0,
		bookmark_count INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_premium INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_resources_active ON resources(is_active);
	CREATE INDEX IF NOT EXISTS idx_resources_category ON resources(category_id);
	CREATE INDEX IF NOT EXISTS idx_resources_rating ON resources(average_rating);

	CREATE TABLE IF NOT EXISTS resource_interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		resource_id INTEGER NOT NULL,
		access_type TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (resource_id) REFERENCES resources(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_interactions_user ON resource_interactions(user_id);
	CREATE INDEX IF NOT EXISTS idx_interactions_resource ON resource_interactions(resource_id);
	CREATE INDEX IF NOT EXISTS idx_interactions_created ON resource_interactions(created_at);

	CREATE TABLE IF NOT EXISTS resource_bookmarks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		resource_id INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE(user_id, resource_id),
		FOREIGN KEY (resource_id) REFERENCES resources(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_bookmarks_user ON resource_bookmarks(user_id);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func writeRetryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 3
	cfg.InitialDelay = 50 * time.Millisecond
	cfg.IsRetryable = isBusy
	cfg.Logger = logger.Log
	return cfg
}

// isBusy reports transient lock contention under WAL; everything else is a
// real failure.
func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func (c *Client) InsertResource(ctx context.Context, resource *models.Resource) (int64, error) {
	phasesJSON, _ := json.Marshal(resource.PhaseRelevance)
	ideaTypesJSON, _ := json.Marshal(resource.IdeaTypes)

	query := `
		INSERT INTO resources (title, description, category_id, resource_type, phase_relevance,
			idea_types, difficulty, average_rating, view_count, bookmark_count, is_active,
			is_premium, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var id int64
	err := retry.Do(ctx, writeRetryConfig(), func() error {
		result, err := c.db.ExecContext(
			ctx,
			query,
			resource.Title,
			resource.Description,
			resource.CategoryID,
			string(resource.Type),
			string(phasesJSON),
			string(ideaTypesJSON),
			nullableString(string(resource.Difficulty)),
			resource.AverageRating,
			resource.ViewCount,
			resource.BookmarkCount,
			boolToInt(resource.IsActive),
			boolToInt(resource.IsPremium),
			resource.CreatedAt.Unix(),
			resource.UpdatedAt.Unix(),
		)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})

	if err != nil {
		return 0, fmt.Errorf("failed to insert resource: %w", err)
	}

	logger.Debug("Resource inserted", zap.Int64("resource_id", id), zap.String("title", resource.Title))
	return id, nil
}

func (c *Client) InsertInteraction(ctx context.Context, record *models.InteractionRecord) error {
	query := `INSERT INTO resource_interactions (user_id, resource_id, access_type, created_at) VALUES (?, ?, ?, ?)`

	err := retry.Do(ctx, writeRetryConfig(), func() error {
		_, err := c.db.ExecContext(
			ctx,
			query,
			record.UserID,
			record.ResourceID,
			string(record.AccessType),
			record.CreatedAt.Unix(),
		)
		return err
	})

	if err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}
	return nil
}

func (c *Client) InsertBookmark(ctx context.Context, userID string, resourceID int64) error {
	query := `INSERT OR IGNORE INTO resource_bookmarks (user_id, resource_id, created_at) VALUES (?, ?, ?)`

	err := retry.Do(ctx, writeRetryConfig(), func() error {
		_, err := c.db.ExecContext(ctx, query, userID, resourceID, time.Now().Unix())
		return err
	})

	if err != nil {
		return fmt.Errorf("failed to insert bookmark: %w", err)
	}
	return nil
}

func (c *Client) FindActiveCandidates(ctx context.Context, filter models.CandidateFilter, limit int) ([]*models.Resource, error) {
	var builder strings.Builder
	builder.WriteString(selectResourceColumns)
	builder.WriteString(" WHERE is_active = 1")

	args := make([]interface{}, 0, len(filter.ExcludeIDs)+1)

	if !filter.IncludePremium {
		builder.WriteString(" AND is_premium = 0")
	}

	if len(filter.ExcludeIDs) > 0 {
		builder.WriteString(" AND id NOT IN (")
		builder.WriteString(placeholders(len(filter.ExcludeIDs)))
		builder.WriteString(")")
		for _, id := range filter.ExcludeIDs {
			args = append(args, id)
		}
	}

	builder.WriteString(" ORDER BY average_rating DESC, id ASC LIMIT ?")
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	return scanResources(rows)
}

func (c *Client) FindByIDs(ctx context.Context, ids []int64) ([]*models.Resource, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := selectResourceColumns + " WHERE id IN (" + placeholders(len(ids)) + ")"
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources by ids: %w", err)
	}
	defer rows.Close()

	return scanResources(rows)
}

func (c *Client) GetBookmarkedResourceIDs(ctx context.Context, userID string) ([]int64, error) {
	query := `SELECT resource_id FROM resource_bookmarks WHERE user_id = ?`
	return c.queryIDs(ctx, query, userID)
}

func (c *Client) GetAccessedResourceIDs(ctx context.Context, userID string) ([]int64, error) {
	query := `SELECT DISTINCT resource_id FROM resource_interactions WHERE user_id = ?`
	return c.queryIDs(ctx, query, userID)
}

func (c *Client) GetInteractedResourceIDs(ctx context.Context, userID string) ([]int64, error) {
	query := `
		SELECT resource_id FROM resource_interactions WHERE user_id = ?
		UNION
		SELECT resource_id FROM resource_bookmarks WHERE user_id = ?
	`
	return c.queryIDs(ctx, query, userID, userID)
}

func (c *Client) GetRecentInteractions(ctx context.Context, userID string, limit int) ([]models.InteractionRecord, error) {
	query := `
		SELECT id, user_id, resource_id, access_type, created_at
		FROM resource_interactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent interactions: %w", err)
	}
	defer rows.Close()

	var records []models.InteractionRecord
	for rows.Next() {
		var r models.InteractionRecord
		var accessType string
		var createdAt int64

		if err := rows.Scan(&r.ID, &r.UserID, &r.ResourceID, &accessType, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction row: %w", err)
		}

		r.AccessType = models.AccessType(accessType)
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}

// FindSimilarUserCandidates returns users who interacted with at least
// minOverlap of the given resources, ranked by raw overlap. Fully
// parameterized; ids are never interpolated into SQL.
func (c *Client) FindSimilarUserCandidates(ctx context.Context, resourceIDs []int64, excludeUserID string, minOverlap, limit int) ([]models.UserOverlap, error) {
	if len(resourceIDs) == 0 {
		return nil, nil
	}

	marks := placeholders(len(resourceIDs))
	query := `
		SELECT user_id, COUNT(DISTINCT resource_id) AS overlap_count
		FROM (
			SELECT user_id, resource_id FROM resource_interactions
			UNION
			SELECT user_id, resource_id FROM resource_bookmarks
		)
		WHERE resource_id IN (` + marks + `) AND user_id != ?
		GROUP BY user_id
		HAVING overlap_count >= ?
		ORDER BY overlap_count DESC, user_id ASC
		LIMIT ?
	`

	args := make([]interface{}, 0, len(resourceIDs)+3)
	for _, id := range resourceIDs {
		args = append(args, id)
	}
	args = append(args, excludeUserID, minOverlap, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar user candidates: %w", err)
	}
	defer rows.Close()

	var overlaps []models.UserOverlap
	for rows.Next() {
		var o models.UserOverlap
		if err := rows.Scan(&o.UserID, &o.OverlapCount); err != nil {
			return nil, fmt.Errorf("failed to scan overlap row: %w", err)
		}
		overlaps = append(overlaps, o)
	}

	return overlaps, rows.Err()
}

func (c *Client) AccessCountsSince(ctx context.Context, since time.Time) (map[int64]int64, error) {
	query := `
		SELECT resource_id, COUNT(*) AS access_count
		FROM resource_interactions
		WHERE created_at >= ?
		GROUP BY resource_id
	`

	rows, err := c.db.QueryContext(ctx, query, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query access counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var resourceID, count int64
		if err := rows.Scan(&resourceID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan access count row: %w", err)
		}
		counts[resourceID] = count
	}

	return counts, rows.Err()
}

const selectResourceColumns = `
	SELECT id, title, description, category_id, resource_type, phase_relevance, idea_types,
		difficulty, average_rating, view_count, bookmark_count, is_active, is_premium,
		created_at, updated_at
	FROM resources`

func scanResources(rows *sql.Rows) ([]*models.Resource, error) {
	var resources []*models.Resource
	for rows.Next() {
		var r models.Resource
		var categoryID sql.NullInt64
		var difficulty sql.NullString
		var resourceType, phasesJSON, ideaTypesJSON string
		var isActive, isPremium int
		var createdAt, updatedAt int64

		err := rows.Scan(
			&r.ID,
			&r.Title,
			&r.Description,
			&categoryID,
			&resourceType,
			&phasesJSON,
			&ideaTypesJSON,
			&difficulty,
			&r.AverageRating,
			&r.ViewCount,
			&r.BookmarkCount,
			&isActive,
			&isPremium,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource row: %w", err)
		}

		if categoryID.Valid {
			id := categoryID.Int64
			r.CategoryID = &id
		}
		if difficulty.Valid {
			r.Difficulty = models.Difficulty(difficulty.String)
		}
		r.Type = models.ResourceType(resourceType)
		json.Unmarshal([]byte(phasesJSON), &r.PhaseRelevance)
		json.Unmarshal([]byte(ideaTypesJSON), &r.IdeaTypes)
		r.IsActive = isActive != 0
		r.IsPremium = isPremium != 0
		r.CreatedAt = time.Unix(createdAt, 0)
		r.UpdatedAt = time.Unix(updatedAt, 0)

		resources = append(resources, &r)
	}

	return resources, rows.Err()
}

func (c *Client) queryIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resource ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id row: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
