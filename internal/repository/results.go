package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/entity"
	"github.com/joseph-ayodele/docs-extractor/internal/results"
)

const resultsTable = "process_results"

var resultColumns = []string{
	"id", "file_path", "file_name", "document_type", "status",
	"data", "error", "page_failures", "processed_at", "created_at", "updated_at",
}

// ResultRepository persists ProcessResults; it is the results.Store write-through target.
type ResultRepository struct {
	db     *DB
	logger *slog.Logger
}

var _ results.Persister = (*ResultRepository)(nil)

func NewResultRepository(db *DB, logger *slog.Logger) *ResultRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultRepository{db: db, logger: logger}
}

// Save upserts r. created_at is kept from the first insert.
func (r *ResultRepository) Save(ctx context.Context, res *entity.ProcessResult) error {
	var data any
	if res.Data != nil {
		b, err := json.Marshal(res.Data)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		data = string(b)
	}
	var processedAt any
	if res.ProcessedAt != nil {
		processedAt = formatTime(*res.ProcessedAt)
	}
	updated := res.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	query, args := entsql.Dialect(r.db.Dialect).
		Insert(resultsTable).
		Columns(resultColumns...).
		Values(res.ID, res.File.Path, res.File.Name, res.DocumentType, string(res.Status),
			data, res.Error, res.PageFailures, processedAt, formatTime(updated), formatTime(updated)).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range resultColumns {
					if c == "id" || c == "created_at" {
						continue
					}
					u.SetExcluded(c)
				}
			}),
		).
		Query()

	if _, err := r.db.SQL.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("repository.results.save_failed", "id", res.ID, "error", err)
		return fmt.Errorf("save result %s: %w", res.ID, err)
	}
	return nil
}

// Get loads one result by id.
func (r *ResultRepository) Get(ctx context.Context, id string) (*entity.ProcessResult, error) {
	query, args := entsql.Dialect(r.db.Dialect).
		Select(resultColumns...).
		From(entsql.Table(resultsTable)).
		Where(entsql.EQ("id", id)).
		Query()
	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get result %s: %w", id, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", results.ErrNotFound, id)
	}
	return scanResult(rows)
}

// List returns every result in creation order.
func (r *ResultRepository) List(ctx context.Context) ([]*entity.ProcessResult, error) {
	query, args := entsql.Dialect(r.db.Dialect).
		Select(resultColumns...).
		From(entsql.Table(resultsTable)).
		OrderBy("created_at", "id").
		Query()
	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("repository.results.list_failed", "error", err)
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []*entity.ProcessResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Delete removes a result. Deleting a missing id is not an error.
func (r *ResultRepository) Delete(ctx context.Context, id string) error {
	query, args := entsql.Dialect(r.db.Dialect).
		Delete(resultsTable).
		Where(entsql.EQ("id", id)).
		Query()
	if _, err := r.db.SQL.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete result %s: %w", id, err)
	}
	return nil
}

func scanResult(rows *sql.Rows) (*entity.ProcessResult, error) {
	var (
		res         entity.ProcessResult
		status      string
		data        sql.NullString
		processedAt sql.NullString
		createdAt   string
		updatedAt   string
	)
	if err := rows.Scan(&res.ID, &res.File.Path, &res.File.Name, &res.DocumentType, &status,
		&data, &res.Error, &res.PageFailures, &processedAt, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scan result: %w", err)
	}
	res.Status = constants.ProcessStatus(status)
	if !res.Status.Valid() {
		return nil, fmt.Errorf("result %s has unknown status %q", res.ID, status)
	}
	if data.Valid && data.String != "" {
		var rec entity.DocumentRecord
		if err := json.Unmarshal([]byte(data.String), &rec); err != nil {
			return nil, fmt.Errorf("decode record of %s: %w", res.ID, err)
		}
		res.Data = &rec
	}
	if processedAt.Valid {
		t, err := parseTime(processedAt.String)
		if err != nil {
			return nil, err
		}
		res.ProcessedAt = &t
	}
	t, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	res.UpdatedAt = t
	return &res, nil
}

// Timestamps are stored as fixed-width UTC text so they sort the same way in
// sqlite and postgres.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339Nano, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, errors.Join(fmt.Errorf("parse time %q", s), err)
	}
	return t, nil
}
