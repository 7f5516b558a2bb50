package mysql

import (
	"database/sql"
	"encoding/json"
	"time"

	domain "github.com/ahmad9059/sehatscan/internal/domain/analysis"
)

// scanAnalysis maps one row into the domain entity.
func scanAnalysis(scan func(dest ...any) error) (*domain.Analysis, error) {
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

func collectAnalyses(rows *sql.Rows) ([]*domain.Analysis, error) {
	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
