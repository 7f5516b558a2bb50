package analyses

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ahmad9059/sehatscan/internal/application"
	"github.com/ahmad9059/sehatscan/internal/domain/analysis"
	"github.com/ahmad9059/sehatscan/internal/domain/identity"
	"github.com/ahmad9059/sehatscan/internal/domain/inference"
	"github.com/ahmad9059/sehatscan/internal/domain/outcome"
)

const archiveWindow = 30 * time.Second

// Service implements the per-kind analysis use-cases. It drives a
// request through validation, identity resolution, a deadline-bound
// inference call (with a concurrent best-effort archive for face
// scans), and persistence with graceful degradation.
// Safe for concurrent use.
type Service struct {
	Repo      analysis.Repository
	Inference inference.Client
	Artifacts analysis.ArtifactStore
	Identity  identity.Resolver
	Cache     analysis.Cache
	Clock     application.Clock
	Log       *zap.Logger

	MaxImageBytes    int64
	MaxDocumentBytes int64
}

// AnalyzeFace runs a face scan: validate -> auth -> inference + archive
// in parallel -> persist. Archive failure never fails the request.
func (s *Service) AnalyzeFace(ctx context.Context, art *analysis.Artifact) outcome.Outcome {
	if err := ValidateArtifact(art, ConstraintsFor(analysis.KindFace, s.MaxImageBytes, s.MaxDocumentBytes)); err != nil {
		return outcome.Fail(outcome.KindValidation, err.Error())
	}
	user, err := s.Identity.ResolveCaller(ctx)
	if err != nil {
		return outcome.Fail(outcome.KindAuth, "authentication required")
	}

	archived := s.startArchive(art)

	res := s.callInference(func() outcome.Outcome {
		return s.Inference.AnalyzeArtifact(ctx, analysis.KindFace, art)
	})
	if !res.Success {
		return res
	}

	// Merge the archive result only if it already settled; a late
	// result is discarded, never retrofitted.
	select {
	case ar, ok := <-archived:
		if ok {
			res.Data["source_artifact_url"] = ar.URL
			res.Data["source_artifact_key"] = ar.Key
			res.Data["source_artifact_name"] = ar.Name
			res.Data["source_artifact_size"] = ar.Size
		}
	default:
	}

	return s.persist(ctx, user.ID, analysis.KindFace, res.Data)
}

// AnalyzeReport runs a lab-report analysis: validate -> auth ->
// inference -> persist. No archive step for documents.
func (s *Service) AnalyzeReport(ctx context.Context, art *analysis.Artifact) outcome.Outcome {
	if err := ValidateArtifact(art, ConstraintsFor(analysis.KindReport, s.MaxImageBytes, s.MaxDocumentBytes)); err != nil {
		return outcome.Fail(outcome.KindValidation, err.Error())
	}
	user, err := s.Identity.ResolveCaller(ctx)
	if err != nil {
		return outcome.Fail(outcome.KindAuth, "authentication required")
	}

	res := s.callInference(func() outcome.Outcome {
		return s.Inference.AnalyzeArtifact(ctx, analysis.KindReport, art)
	})
	if !res.Success {
		return res
	}

	return s.persist(ctx, user.ID, analysis.KindReport, res.Data)
}

// RiskCommand selects the prior analyses and user context that feed a
// risk assessment.
type RiskCommand struct {
	ReportAnalysisID string         `json:"report_analysis_id"`
	FaceAnalysisID   string         `json:"face_analysis_id"`
	UserData         map[string]any `json:"user_data"`
}

// AssessRisk runs a risk assessment over previously persisted analyses.
// Its own validations run before anything else: at least one prior
// analysis id plus a user-context object must be supplied, and the
// referenced analyses must exist and belong to the caller.
func (s *Service) AssessRisk(ctx context.Context, cmd RiskCommand) outcome.Outcome {
	if cmd.ReportAnalysisID == "" && cmd.FaceAnalysisID == "" {
		return outcome.Fail(outcome.KindValidation, "at least one analysis (report or face) is required")
	}
	if len(cmd.UserData) == 0 {
		return outcome.Fail(outcome.KindValidation, "user context is required")
	}
	user, err := s.Identity.ResolveCaller(ctx)
	if err != nil {
		return outcome.Fail(outcome.KindAuth, "authentication required")
	}

	payload := inference.RiskPayload{UserData: cmd.UserData}

	if cmd.ReportAnalysisID != "" {
		rec, err := s.Repo.Get(ctx, user.ID, analysis.AnalysisID(cmd.ReportAnalysisID))
		if err != nil {
			return outcome.Fail(outcome.KindDatabase, "could not load the selected report analysis")
		}
		if rec == nil {
			return outcome.Fail(outcome.KindNotFound, "report analysis not found")
		}
		rec.DecodeFields()
		payload.LabData = rec.Metrics
	}
	if cmd.FaceAnalysisID != "" {
		rec, err := s.Repo.Get(ctx, user.ID, analysis.AnalysisID(cmd.FaceAnalysisID))
		if err != nil {
			return outcome.Fail(outcome.KindDatabase, "could not load the selected face analysis")
		}
		if rec == nil {
			return outcome.Fail(outcome.KindNotFound, "face analysis not found")
		}
		rec.DecodeFields()
		payload.VisualMetrics = rec.Visual
	}

	if len(payload.LabData) == 0 && payload.VisualMetrics == nil {
		return outcome.Fail(outcome.KindValidation, "no usable data in the selected analyses")
	}

	res := s.callInference(func() outcome.Outcome {
		return s.Inference.AssessRisk(ctx, payload)
	})
	if !res.Success {
		return res
	}

	return s.persist(ctx, user.ID, analysis.KindRisk, res.Data)
}

// callInference runs the gateway call behind a panic guard: a crash in
// the inference path is normalized to an unexpected failure, the caller
// never sees a raw internal fault.
func (s *Service) callInference(fn func() outcome.Outcome) (res outcome.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger().Error("inference call panicked", zap.Any("panic", r))
			res = outcome.Fail(outcome.KindUnexpected, "something went wrong, please try again")
		}
	}()
	return fn()
}

// startArchive uploads a copy of the source artifact in the background.
// The returned channel settles with at most one result; failures are
// logged and the channel is closed without a value.
func (s *Service) startArchive(art *analysis.Artifact) <-chan analysis.ArchiveResult {
	ch := make(chan analysis.ArchiveResult, 1)
	if s.Artifacts == nil {
		close(ch)
		return ch
	}
	go func() {
		defer close(ch)
		ctx, cancel := context.WithTimeout(context.Background(), archiveWindow)
		defer cancel()
		res, err := s.Artifacts.Archive(ctx, art.Name, art.ContentType, art.Data)
		if err != nil {
			s.logger().Warn("artifact archive failed", zap.String("name", art.Name), zap.Error(err))
			return
		}
		ch <- res
	}()
	return ch
}

// persist writes the inference result and eagerly invalidates the
// owner's cached views. A store failure degrades the response instead
// of failing it: the computed data is returned with a save warning.
func (s *Service) persist(ctx context.Context, ownerID string, kind analysis.Kind, data map[string]any) outcome.Outcome {
	raw, err := json.Marshal(data)
	if err != nil {
		s.logger().Error("result marshal failed", zap.String("kind", string(kind)), zap.Error(err))
		return outcome.Degraded(data, "analysis succeeded but could not be saved to your history")
	}

	rec := &analysis.Analysis{
		ID:         analysis.AnalysisID(uuid.New().String()),
		OwnerID:    ownerID,
		Kind:       kind,
		RawPayload: raw,
		CreatedAt:  s.Clock.Now(),
	}
	if err := s.Repo.Save(ctx, rec); err != nil {
		s.logger().Error("analysis save failed",
			zap.String("owner", ownerID), zap.String("kind", string(kind)), zap.Error(err))
		return outcome.Degraded(data, "analysis succeeded but could not be saved to your history")
	}

	s.invalidateCaches(ownerID)
	return outcome.OK(data, string(rec.ID))
}

// invalidateCaches drops the owner's cached digest, stats and list.
// Fire-and-forget: it never blocks or fails the response.
func (s *Service) invalidateCaches(ownerID string) {
	if s.Cache == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Cache.Delete(ctx,
			analysis.DigestCacheKey(ownerID),
			analysis.StatsCacheKey(ownerID),
			analysis.ListCacheKey(ownerID),
		)
	}()
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

//
// ==== READ SIDE ====
//

// Get returns one analysis scoped to its owner; (nil, nil) when absent.
func (s *Service) Get(ctx context.Context, owner string, id analysis.AnalysisID) (*analysis.Analysis, error) {
	rec, err := s.Repo.Get(ctx, owner, id)
	if err != nil || rec == nil {
		return rec, err
	}
	rec.DecodeFields()
	return rec, nil
}

// List returns a page of the owner's analyses, optionally filtered by
// kind. The unfiltered first page is cached briefly; any new write for
// the owner drops it.
func (s *Service) List(ctx context.Context, owner string, kind analysis.Kind, page, pageSize int) ([]*analysis.Analysis, error) {
	cacheable := kind == "" && page <= 1
	if cacheable && s.Cache != nil {
		if raw, ok := s.Cache.Get(ctx, analysis.ListCacheKey(owner)); ok {
			var out []*analysis.Analysis
			if err := json.Unmarshal([]byte(raw), &out); err == nil {
				return out, nil
			}
		}
	}

	out, err := s.Repo.List(ctx, owner, kind, page, pageSize)
	if err != nil {
		return nil, err
	}
	for _, rec := range out {
		rec.DecodeFields()
	}

	if cacheable && s.Cache != nil {
		if raw, err := json.Marshal(out); err == nil {
			s.Cache.SetWithTTL(ctx, analysis.ListCacheKey(owner), string(raw), 300)
		}
	}
	return out, nil
}

// Delete removes one analysis scoped to its owner and drops the
// owner's cached views.
func (s *Service) Delete(ctx context.Context, owner string, id analysis.AnalysisID) error {
	if err := s.Repo.Delete(ctx, owner, id); err != nil {
		return err
	}
	s.invalidateCaches(owner)
	return nil
}

// Stats returns per-kind counts plus the current abnormal-metric count
// for dashboards, cached per owner.
func (s *Service) Stats(ctx context.Context, owner string) (map[string]any, error) {
	if s.Cache != nil {
		if raw, ok := s.Cache.Get(ctx, analysis.StatsCacheKey(owner)); ok {
			var out map[string]any
			if err := json.Unmarshal([]byte(raw), &out); err == nil {
				return out, nil
			}
		}
	}

	records, err := s.Repo.ListAll(ctx, owner)
	if err != nil {
		return nil, err
	}

	counts := map[analysis.Kind]int{}
	abnormal := 0
	seen := map[string]bool{}
	// newest first: the first occurrence of a metric name is its
	// latest value
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		counts[rec.Kind]++
		if rec.Kind != analysis.KindReport {
			continue
		}
		rec.DecodeFields()
		for _, m := range rec.Metrics {
			key := analysis.NormalizeMetricName(m.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			if m.Status != analysis.StatusNormal && m.Status != "" {
				abnormal++
			}
		}
	}

	out := map[string]any{
		"total_analyses":   len(records),
		"face_scans":       counts[analysis.KindFace],
		"report_analyses":  counts[analysis.KindReport],
		"risk_assessments": counts[analysis.KindRisk],
		"abnormal_metrics": abnormal,
	}
	if s.Cache != nil {
		if raw, err := json.Marshal(out); err == nil {
			s.Cache.SetWithTTL(ctx, analysis.StatsCacheKey(owner), string(raw), 300)
		}
	}
	return out, nil
}
