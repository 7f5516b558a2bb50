package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	domain "github.com/ahmad9059/sehatscan/internal/domain/analysis"
)

// AnalysisRepository is the postgres flavor of the analysis store,
// selected with database.driver: postgres.
type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO health_analyses
  (id, owner_id, kind, payload_json, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET
  owner_id=EXCLUDED.owner_id,
  kind=EXCLUDED.kind,
  payload_json=EXCLUDED.payload_json;
`
	payload := string(a.RawPayload)
	if strings.TrimSpace(payload) == "" {
		payload = "{}"
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q, a.ID, a.OwnerID, a.Kind, payload, createdAt)
	return err
}

func (r *AnalysisRepository) Get(ctx context.Context, owner string, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `
SELECT id, owner_id, kind, payload_json, created_at
FROM health_analyses
WHERE owner_id=$1 AND id=$2 LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, owner, id)
	a, err := scanRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *AnalysisRepository) List(ctx context.Context, owner string, kind domain.Kind, page, pageSize int) ([]*domain.Analysis, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var rows *sql.Rows
	var err error
	if kind != "" {
		const q = `
SELECT id, owner_id, kind, payload_json, created_at
FROM health_analyses
WHERE owner_id=$1 AND kind=$2
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4;
`
		rows, err = r.db.QueryContext(ctx, q, owner, kind, pageSize, offset)
	} else {
		const q = `
SELECT id, owner_id, kind, payload_json, created_at
FROM health_analyses
WHERE owner_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;
`
		rows, err = r.db.QueryContext(ctx, q, owner, pageSize, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *AnalysisRepository) ListAll(ctx context.Context, owner string) ([]*domain.Analysis, error) {
	const q = `
SELECT id, owner_id, kind, payload_json, created_at
FROM health_analyses
WHERE owner_id=$1
ORDER BY created_at ASC, id ASC;
`
	rows, err := r.db.QueryContext(ctx, q, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *AnalysisRepository) Delete(ctx context.Context, owner string, id domain.AnalysisID) error {
	const q = `DELETE FROM health_analyses WHERE owner_id=$1 AND id=$2;`
	res, err := r.db.ExecContext(ctx, q, owner, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanRow(scan func(dest ...any) error) (*domain.Analysis, error) {
	var a domain.Analysis
	var payload string
	var created time.Time
	if err := scan(&a.ID, &a.OwnerID, &a.Kind, &payload, &created); err != nil {
		return nil, err
	}
	a.RawPayload = json.RawMessage(payload)
	a.CreatedAt = created
	return &a, nil
}

func collect(rows *sql.Rows) ([]*domain.Analysis, error) {
	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
