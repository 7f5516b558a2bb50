package analysis

import (
	"encoding/json"
	"strings"
	"time"
)

// AnalysisID identifier type
type AnalysisID string

// Kind enum. Selects validation rules, inference endpoint and timeout,
// and which structured fields are populated.
type Kind string

const (
	KindFace   Kind = "face"
	KindReport Kind = "report"
	KindRisk   Kind = "risk"
)

// MetricStatus enum
type MetricStatus string

const (
	StatusNormal   MetricStatus = "normal"
	StatusLow      MetricStatus = "low"
	StatusHigh     MetricStatus = "high"
	StatusCritical MetricStatus = "critical"
)

// Metric is one lab value extracted from a report. Value stays a string
// because lab reports mix numbers with text results ("positive", "trace");
// trend math parses floats and skips the rest.
type Metric struct {
	Name   string       `json:"name"`
	Value  string       `json:"value"`
	Unit   string       `json:"unit,omitempty"`
	Status MetricStatus `json:"status"`
}

// VisualMetrics are the fixed fields extracted from a face scan.
type VisualMetrics struct {
	RednessPercent    float64 `json:"redness_percent"`
	YellownessPercent float64 `json:"yellowness_percent"`
	PallorPercent     float64 `json:"pallor_percent"`
	SkinClarityScore  float64 `json:"skin_clarity_score"`
}

// Aggregate root: Analysis. One inference outcome, created once by the
// persistence step after a successful inference, never mutated.
type Analysis struct {
	ID         AnalysisID      `json:"id"`
	OwnerID    string          `json:"owner_id"`
	Kind       Kind            `json:"kind"`
	RawPayload json.RawMessage `json:"raw_payload,omitempty"`

	// Populated per kind: Metrics for report, Visual for face,
	// Narrative for risk.
	Metrics   []Metric       `json:"metrics,omitempty"`
	Visual    *VisualMetrics `json:"visual,omitempty"`
	Narrative string         `json:"narrative,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NormalizeMetricName folds a metric name for case-insensitive
// comparison: "Glucose" and "glucose" are the same metric.
func NormalizeMetricName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DecodeFields fills the kind-specific fields from RawPayload. Decode
// problems leave the fields empty rather than failing: a stored payload
// is already a validated inference result, and readers treat missing
// structure as "nothing to show".
func (a *Analysis) DecodeFields() {
	if len(a.RawPayload) == 0 {
		return
	}
	switch a.Kind {
	case KindReport:
		var body struct {
			Metrics []Metric `json:"metrics"`
		}
		if err := json.Unmarshal(a.RawPayload, &body); err == nil {
			a.Metrics = body.Metrics
		}
	case KindFace:
		var body struct {
			Visual *VisualMetrics `json:"visual_metrics"`
		}
		if err := json.Unmarshal(a.RawPayload, &body); err == nil {
			a.Visual = body.Visual
		}
	case KindRisk:
		var body struct {
			Narrative string `json:"narrative"`
		}
		if err := json.Unmarshal(a.RawPayload, &body); err == nil {
			a.Narrative = body.Narrative
		}
	}
}
