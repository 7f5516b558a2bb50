package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	domain "github.com/ahmad9059/sehatscan/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save inserts an analysis record. Records are write-once; the upsert
// only guards against a retried insert with the same id.
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO health_analyses
  (id, owner_id, kind, payload_json, created_at)
VALUES (?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  owner_id=VALUES(owner_id), kind=VALUES(kind), payload_json=VALUES(payload_json);
`
	payload := string(a.RawPayload)
	if strings.TrimSpace(payload) == "" {
		// payload_json column requires valid JSON; use empty object
		payload = "{}"
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q, a.ID, a.OwnerID, a.Kind, payload, createdAt)
	return err
}

// Get by ID + owner. Returns (nil, nil) when the record does not exist
// or belongs to another owner.
func (r *AnalysisRepository) Get(ctx context.Context, owner string, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `
SELECT id, owner_id, kind, payload_json, created_at
FROM health_analyses
WHERE owner_id=? AND id=? LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, owner, id)
	a, err := scanAnalysis(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// List returns a page of the owner's analyses, newest first, optionally
// filtered by kind.
func (r *AnalysisRepository) List(ctx context.Context, owner string, kind domain.Kind, page, pageSize int) ([]*domain.Analysis, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	q := `
SELECT id, owner_id, kind, payload_json, created_at
FROM health_analyses
WHERE owner_id=?`
	args := []any{owner}
	if kind != "" {
		q += ` AND kind=?`
		args = append(args, kind)
	}
	q += `
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;`
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalyses(rows)
}

// ListAll returns the owner's full history, oldest first, the order the
// aggregation wants.
func (r *AnalysisRepository) ListAll(ctx context.Context, owner string) ([]*domain.Analysis, error) {
	const q = `
SELECT id, owner_id, kind, payload_json, created_at
FROM health_analyses
WHERE owner_id=?
ORDER BY created_at ASC, id ASC;
`
	rows, err := r.db.QueryContext(ctx, q, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalyses(rows)
}

// Delete removes one record, owner-scoped.
func (r *AnalysisRepository) Delete(ctx context.Context, owner string, id domain.AnalysisID) error {
	const q = `DELETE FROM health_analyses WHERE owner_id=? AND id=?;`
	res, err := r.db.ExecContext(ctx, q, owner, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
