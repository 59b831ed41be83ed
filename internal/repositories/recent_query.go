package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/shared"
)

const recentQueryColumns = `id, sequence, query, normalized, filters, results_count, created_at, updated_at, deleted_at`

// RecentQueryRepository implements models.Repository[*models.RecentQuery] for locally submitted searches.
//
// Resubmitting a query moves its row to the top instead of inserting a duplicate.
type RecentQueryRepository struct {
	db *sql.DB
}

// NewRecentQueryRepository creates a new RecentQueryRepository with the given database connection
func NewRecentQueryRepository(db *sql.DB) *RecentQueryRepository {
	return &RecentQueryRepository{db: db}
}

// Create inserts a new [models.RecentQuery] into the database with generated ID and sequence
func (r *RecentQueryRepository) Create(q *models.RecentQuery) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	filters, err := q.FiltersJSON()
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}

	sequence, err := NextSequence(r.db, "recent_queries")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO recent_queries (id, sequence, query, normalized, filters, results_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, q.Query(), q.Normalized(), filters, q.ResultsCount(), q.CreatedAt(), q.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert recent query: %w", err)
	}

	q.SetID(id)
	q.SetSequence(sequence)
	return nil
}

// Get retrieves a recent query by ID, excluding soft-deleted rows
func (r *RecentQueryRepository) Get(id string) (*models.RecentQuery, error) {
	query := `SELECT ` + recentQueryColumns + ` FROM recent_queries WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetByNormalized retrieves the live row for a normalized query text
func (r *RecentQueryRepository) GetByNormalized(normalized string) (*models.RecentQuery, error) {
	query := `SELECT ` + recentQueryColumns + ` FROM recent_queries WHERE normalized = ? AND deleted_at IS NULL LIMIT 1`
	return r.scan(r.db.QueryRow(query, normalized))
}

// Update stores the filters and result count and moves the row to the top of the list.
func (r *RecentQueryRepository) Update(q *models.RecentQuery) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	filters, err := q.FiltersJSON()
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}

	sequence, err := NextSequence(r.db, "recent_queries")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now().UTC()

	query := `
		UPDATE recent_queries
		SET sequence = ?, query = ?, filters = ?, results_count = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, sequence, q.Query(), filters, q.ResultsCount(), now, q.ID())
	if err != nil {
		return fmt.Errorf("failed to update recent query: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: recent query %s", ErrNotFound, q.ID())
	}

	q.SetSequence(sequence)
	q.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes a recent query by ID
func (r *RecentQueryRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE recent_queries SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete recent query: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: recent query %s", ErrNotFound, id)
	}

	return nil
}

// Clear soft-deletes every live row and returns how many were removed.
func (r *RecentQueryRepository) Clear() (int64, error) {
	result, err := r.db.Exec(`UPDATE recent_queries SET deleted_at = ? WHERE deleted_at IS NULL`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to clear recent queries: %w", err)
	}
	return result.RowsAffected()
}

// List retrieves recent queries newest first, excluding soft-deleted rows.
//
// Supported criteria: "prefix" (string, matched against the normalized text) and "limit" (int).
func (r *RecentQueryRepository) List(criteria map[string]any) ([]*models.RecentQuery, error) {
	query := `SELECT ` + recentQueryColumns + ` FROM recent_queries WHERE deleted_at IS NULL`
	args := []any{}

	if prefix, ok := criteria["prefix"].(string); ok && prefix != "" {
		query += " AND normalized LIKE ? ESCAPE '\\'"
		args = append(args, escapeLike(shared.NormalizeQuery(prefix))+"%")
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent queries: %w", err)
	}
	defer rows.Close()

	var queries []*models.RecentQuery
	for rows.Next() {
		q, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return queries, nil
}

// Record upserts the query text with the filters and total of a committed result set.
func (r *RecentQueryRepository) Record(ctx context.Context, q models.SearchQuery, result *models.SearchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	count := 0
	if result != nil {
		count = result.Total
	}

	existing, err := r.GetByNormalized(shared.NormalizeQuery(q.Text))
	switch {
	case errors.Is(err, ErrNotFound):
		return r.Create(models.NewRecentQuery(q.Text, q.Filters, count))
	case err != nil:
		return err
	}

	existing.SetFilters(q.Filters)
	existing.SetResultsCount(count)
	return r.Update(existing)
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads a single row from either [sql.Row] or [sql.Rows] into a [models.RecentQuery]
func (r *RecentQueryRepository) scan(s scanner) (*models.RecentQuery, error) {
	var (
		id           string
		sequence     int
		text         string
		normalized   string
		rawFilters   string
		resultsCount int
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := s.Scan(&id, &sequence, &text, &normalized, &rawFilters, &resultsCount, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: recent query", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan recent query: %w", err)
	}

	var filters models.FilterSet
	if rawFilters != "" {
		if err := json.Unmarshal([]byte(rawFilters), &filters); err != nil {
			return nil, fmt.Errorf("%w: recent query filters: %v", shared.ErrDecodeResponse, err)
		}
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.RestoreRecentQuery(id, sequence, text, normalized, filters, resultsCount, createdAt, updatedAt, deleted), nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
