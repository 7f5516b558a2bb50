package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ahmad9059/sehatscan/internal/domain/analysis"
)

type stubRepo struct {
	records []*analysis.Analysis
	calls   int
}

func (r *stubRepo) Save(ctx context.Context, a *analysis.Analysis) error { return nil }
func (r *stubRepo) Get(ctx context.Context, owner string, id analysis.AnalysisID) (*analysis.Analysis, error) {
	return nil, nil
}
func (r *stubRepo) List(ctx context.Context, owner string, kind analysis.Kind, page, pageSize int) ([]*analysis.Analysis, error) {
	return r.records, nil
}
func (r *stubRepo) ListAll(ctx context.Context, owner string) ([]*analysis.Analysis, error) {
	r.calls++
	return r.records, nil
}
func (r *stubRepo) Delete(ctx context.Context, owner string, id analysis.AnalysisID) error {
	return nil
}

type memCache struct {
	mu    sync.Mutex
	store map[string]string
}

func newMemCache() *memCache { return &memCache{store: map[string]string{}} }

func (c *memCache) Get(ctx context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	return v, ok
}
func (c *memCache) SetWithTTL(ctx context.Context, key, value string, ttlSeconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
}
func (c *memCache) Delete(ctx context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.store, k)
	}
}

func reportAt(day int, metrics ...analysis.Metric) *analysis.Analysis {
	raw, _ := json.Marshal(map[string]any{"metrics": metrics})
	return &analysis.Analysis{
		ID:         analysis.AnalysisID(fmt.Sprintf("rep-%d", day)),
		OwnerID:    "user-1",
		Kind:       analysis.KindReport,
		RawPayload: raw,
		CreatedAt:  time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC),
	}
}

func metric(name, value string, status analysis.MetricStatus) analysis.Metric {
	return analysis.Metric{Name: name, Value: value, Unit: "mg/dL", Status: status}
}

// sectionLines returns the "- " bullet lines directly under the given
// section header.
func sectionLines(text, header string) []string {
	var out []string
	in := false
	for _, line := range strings.Split(text, "\n") {
		switch {
		case line == header:
			in = true
		case in && strings.HasPrefix(line, "- "):
			out = append(out, line)
		case in:
			return out
		}
	}
	return out
}

func TestBuildDigest_NoData(t *testing.T) {
	text := buildDigest(nil)
	require.Contains(t, text, "No health data yet")
	require.Contains(t, text, "Get started")
}

func TestBuildDigest_DedupKeepsLatestPerName(t *testing.T) {
	records := []*analysis.Analysis{
		reportAt(1, metric("Glucose", "126", analysis.StatusHigh), metric("LDL", "180", analysis.StatusHigh)),
		reportAt(15, metric("GLUCOSE", "95", analysis.StatusNormal)),
	}
	text := buildDigest(records)

	// one glucose line in the metrics block, carrying the latest value
	metrics := sectionLines(text, "Latest metrics:")
	glucose := 0
	for _, line := range metrics {
		if strings.Contains(strings.ToLower(line), "glucose") {
			glucose++
			require.Contains(t, line, "95 mg/dL (normal)")
		}
	}
	require.Equal(t, 1, glucose)
}

func TestBuildDigest_AbnormalBlockUppercasesStatus(t *testing.T) {
	records := []*analysis.Analysis{
		reportAt(1, metric("LDL", "180", analysis.StatusHigh), metric("HDL", "55", analysis.StatusNormal)),
	}
	text := buildDigest(records)

	require.Contains(t, text, "Abnormal findings:")
	require.Contains(t, text, "LDL: 180 mg/dL [HIGH]")
	require.NotContains(t, text, "HDL: 55 mg/dL [")
}

func TestBuildDigest_ScenarioGlucoseImproving(t *testing.T) {
	records := []*analysis.Analysis{
		reportAt(1, metric("Glucose", "126", analysis.StatusHigh)),
		reportAt(20, metric("Glucose", "95", analysis.StatusNormal)),
	}
	text := buildDigest(records)

	require.Contains(t, text, "Glucose: 126 -> 95 mg/dL (improving)")
}

func TestBuildDigest_LineCapsHold(t *testing.T) {
	// 40 metrics, each with two observations so every one also trends
	var early, late []analysis.Metric
	for i := 0; i < 40; i++ {
		name := fmt.Sprintf("Metric%02d", i)
		early = append(early, metric(name, "10", analysis.StatusLow))
		late = append(late, metric(name, "12", analysis.StatusLow))
	}
	records := []*analysis.Analysis{reportAt(1, early...), reportAt(15, late...)}
	text := buildDigest(records)

	lines := strings.Split(text, "\n")
	metricLines, trendLines := 0, 0
	section := ""
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "Latest metrics:"):
			section = "metrics"
		case strings.HasPrefix(line, "Abnormal findings:"):
			section = "abnormal"
		case strings.HasPrefix(line, "Trends:"):
			section = "trends"
		case strings.HasPrefix(line, "- ") && section == "metrics":
			metricLines++
		case strings.HasPrefix(line, "- ") && section == "trends":
			trendLines++
		}
	}
	require.Equal(t, maxMetricLines, metricLines)
	require.Equal(t, maxTrendLines, trendLines)
}

func TestBuildDigest_FaceAndRiskLines(t *testing.T) {
	faceRaw, _ := json.Marshal(map[string]any{"visual_metrics": analysis.VisualMetrics{
		RednessPercent: 12.5, YellownessPercent: 3.2, PallorPercent: 8, SkinClarityScore: 86,
	}})
	riskRaw, _ := json.Marshal(map[string]any{"narrative": "Overall risk level: low\n\nConcerns:\n- Slight dehydration\n"})
	records := []*analysis.Analysis{
		{ID: "f1", OwnerID: "user-1", Kind: analysis.KindFace, RawPayload: faceRaw,
			CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "k1", OwnerID: "user-1", Kind: analysis.KindRisk, RawPayload: riskRaw,
			CreatedAt: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)},
	}
	text := buildDigest(records)

	require.Contains(t, text, "Face scan (2026-02-01): redness 12.5%, yellowness 3.2%")
	require.Contains(t, text, "Risk assessment (2026-02-02): overall level LOW")
	require.Contains(t, text, "concerns: Slight dehydration")
}

func TestBuildDigest_UnparsableNarrativeStillEmitsLine(t *testing.T) {
	riskRaw, _ := json.Marshal(map[string]any{"narrative": "freeform text without any markers"})
	records := []*analysis.Analysis{
		{ID: "k1", OwnerID: "user-1", Kind: analysis.KindRisk, RawPayload: riskRaw,
			CreatedAt: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)},
	}
	text := buildDigest(records)
	require.Contains(t, text, "Risk assessment (2026-02-02)")
}

func TestSummarize_CachesAndServesFromCache(t *testing.T) {
	repo := &stubRepo{records: []*analysis.Analysis{
		reportAt(1, metric("Glucose", "95", analysis.StatusNormal)),
	}}
	cache := newMemCache()
	svc := &Service{Repo: repo, Cache: cache}

	first, err := svc.Summarize(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)

	second, err := svc.Summarize(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.calls, "second call must be served from cache")

	// invalidation forces a recompute
	cache.Delete(context.Background(), analysis.DigestCacheKey("user-1"))
	_, err = svc.Summarize(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}

func TestSummarize_NoCacheDegradesToRecompute(t *testing.T) {
	repo := &stubRepo{}
	svc := &Service{Repo: repo}

	_, err := svc.Summarize(context.Background(), "user-1")
	require.NoError(t, err)
	_, err = svc.Summarize(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}
