package inference

import (
	"context"

	"github.com/ahmad9059/sehatscan/internal/domain/analysis"
	"github.com/ahmad9059/sehatscan/internal/domain/outcome"
)

// RiskPayload is the combined input for a risk assessment, assembled
// from previously persisted analyses plus caller-supplied context.
type RiskPayload struct {
	LabData       []analysis.Metric       `json:"lab_data,omitempty"`
	VisualMetrics *analysis.VisualMetrics `json:"visual_metrics,omitempty"`
	UserData      map[string]any          `json:"user_data"`
}

// Client port for the external inference service. Each call is bound to
// a per-kind deadline and normalizes every failure mode into the
// outcome contract; callers never see transport errors directly.
type Client interface {
	AnalyzeArtifact(ctx context.Context, kind analysis.Kind, art *analysis.Artifact) outcome.Outcome
	AssessRisk(ctx context.Context, payload RiskPayload) outcome.Outcome
}
