package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/streamgrid/internal/models"
)

// SearchHistoryRepository implements [models.SearchHistory] on the search_history table.
type SearchHistoryRepository struct {
	db *sql.DB
}

// NewSearchHistoryRepository creates a new [SearchHistoryRepository] with the given database connection
func NewSearchHistoryRepository(db *sql.DB) *SearchHistoryRepository {
	return &SearchHistoryRepository{db: db}
}

// Record inserts rec.
func (r *SearchHistoryRepository) Record(ctx context.Context, rec models.SearchRecord) error {
	if rec.SearchedAt.IsZero() {
		rec.SearchedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO search_history (entry_id, query, result_count, searched_at) VALUES (?, ?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, rec.EntryID, rec.Query, rec.ResultCount, rec.SearchedAt); err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. A non-positive limit returns everything.
func (r *SearchHistoryRepository) Recent(ctx context.Context, limit int) ([]models.SearchRecord, error) {
	query := `
		SELECT id, entry_id, query, result_count, searched_at
		FROM search_history
		ORDER BY id DESC
	`

	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query search history: %w", err)
	}
	defer rows.Close()

	var records []models.SearchRecord
	for rows.Next() {
		var rec models.SearchRecord
		if err := rows.Scan(&rec.ID, &rec.EntryID, &rec.Query, &rec.ResultCount, &rec.SearchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}
