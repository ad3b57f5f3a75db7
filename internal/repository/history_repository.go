// Package repository persists the resolve history audit log.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/clipfetch/clipfetch/internal/domain"
)

// HistoryRepository stores resolve records.
type HistoryRepository interface {
	Record(ctx context.Context, rec *domain.ResolveRecord) error
	List(ctx context.Context, query HistoryQuery) ([]domain.ResolveRecord, int, error)
	Close() error
}

// HistoryQuery filters and paginates history listings.
type HistoryQuery struct {
	Platform domain.Platform
	Status   string
	Limit    int
	Offset   int
}

// SQLiteHistoryRepository implements HistoryRepository on a local
// SQLite file.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository opens (and if needed creates) the history
// database.
func NewSQLiteHistoryRepository(path string) (*SQLiteHistoryRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS resolve_history (
			id TEXT PRIMARY KEY,
			platform TEXT NOT NULL,
			url TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			photo_count INTEGER NOT NULL DEFAULT 0,
			has_video INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_created_at ON resolve_history(created_at);
		CREATE INDEX IF NOT EXISTS idx_history_platform ON resolve_history(platform);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteHistoryRepository{db: db}, nil
}

// Close closes the underlying database.
func (r *SQLiteHistoryRepository) Close() error {
	return r.db.Close()
}

// Record inserts a resolve record, filling in ID and timestamp when
// the caller left them empty.
func (r *SQLiteHistoryRepository) Record(ctx context.Context, rec *domain.ResolveRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO resolve_history (id, platform, url, status, error, photo_count, has_video, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, string(rec.Platform), rec.URL, rec.Status, rec.Error, rec.PhotoCount, rec.HasVideo, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// List returns records newest first, plus the total match count for
// pagination.
func (r *SQLiteHistoryRepository) List(ctx context.Context, query HistoryQuery) ([]domain.ResolveRecord, int, error) {
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}

	where := "WHERE 1=1"
	var args []any
	if query.Platform != "" {
		where += " AND platform = ?"
		args = append(args, string(query.Platform))
	}
	if query.Status != "" {
		where += " AND status = ?"
		args = append(args, query.Status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM resolve_history "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, platform, url, status, error, photo_count, has_video, created_at
		FROM resolve_history `+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, append(args, query.Limit, query.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.ResolveRecord, 0, query.Limit)
	for rows.Next() {
		var rec domain.ResolveRecord
		var platform string
		var errStr sql.NullString
		if err := rows.Scan(&rec.ID, &platform, &rec.URL, &rec.Status, &errStr, &rec.PhotoCount, &rec.HasVideo, &rec.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan record: %w", err)
		}
		rec.Platform = domain.Platform(platform)
		rec.Error = errStr.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate records: %w", err)
	}

	return records, total, nil
}
