package digest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ahmad9059/sehatscan/internal/domain/analysis"
)

// Output stays bounded no matter how long the history grows.
const (
	maxMetricLines  = 15
	maxTrendLines   = 10
	maxConcernLines = 3
	cacheTTLSeconds = 600
)

const dateLayout = "2006-01-02"

// Service folds a user's full analysis history into a compact,
// trend-annotated plain-text digest. Cached per owner; every new write
// for the owner invalidates the cache, so a recompute always sees the
// committed history.
type Service struct {
	Repo  analysis.Repository
	Cache analysis.Cache
	Log   *zap.Logger
}

// Summarize returns the owner's digest, recomputing on a cache miss.
func (s *Service) Summarize(ctx context.Context, owner string) (string, error) {
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, analysis.DigestCacheKey(owner)); ok {
			return cached, nil
		}
	}

	records, err := s.Repo.ListAll(ctx, owner)
	if err != nil {
		return "", err
	}

	text := buildDigest(records)

	if s.Cache != nil {
		s.Cache.SetWithTTL(ctx, analysis.DigestCacheKey(owner), text, cacheTTLSeconds)
	}
	return text, nil
}

// buildDigest runs the aggregation over time-ordered records. Pure
// function of its input.
func buildDigest(records []*analysis.Analysis) string {
	if len(records) == 0 {
		return noDataDigest()
	}

	var reports, faces, risks []*analysis.Analysis
	for _, rec := range records {
		rec.DecodeFields()
		switch rec.Kind {
		case analysis.KindReport:
			reports = append(reports, rec)
		case analysis.KindFace:
			faces = append(faces, rec)
		case analysis.KindRisk:
			risks = append(risks, rec)
		}
	}

	// Flatten every report metric, tagged with its source date.
	var flat []observation
	for _, rec := range reports {
		for _, m := range rec.Metrics {
			flat = append(flat, observation{metric: m, observedAt: rec.CreatedAt})
		}
	}

	latest := dedupLatest(flat)
	trends := computeTrends(flat)

	var b strings.Builder
	b.WriteString("Health profile\n")
	fmt.Fprintf(&b, "History: %d lab report(s), %d face scan(s), %d risk assessment(s) | %s to %s\n",
		len(reports), len(faces), len(risks),
		records[0].CreatedAt.Format(dateLayout),
		records[len(records)-1].CreatedAt.Format(dateLayout))

	if len(latest) > 0 {
		b.WriteString("Latest metrics:\n")
		for i, obs := range latest {
			if i >= maxMetricLines {
				break
			}
			fmt.Fprintf(&b, "- %s: %s%s (%s), %s\n",
				obs.metric.Name, obs.metric.Value, unitSuffix(obs.metric.Unit),
				statusLabel(obs.metric.Status), obs.observedAt.Format(dateLayout))
		}
	}

	var abnormal []observation
	for _, obs := range latest {
		if obs.metric.Status != analysis.StatusNormal && obs.metric.Status != "" {
			abnormal = append(abnormal, obs)
		}
	}
	if len(abnormal) > 0 {
		b.WriteString("Abnormal findings:\n")
		for i, obs := range abnormal {
			if i >= maxMetricLines {
				break
			}
			fmt.Fprintf(&b, "- %s: %s%s [%s]\n",
				obs.metric.Name, obs.metric.Value, unitSuffix(obs.metric.Unit),
				strings.ToUpper(string(obs.metric.Status)))
		}
	}

	if len(trends) > 0 {
		b.WriteString("Trends:\n")
		for i, t := range trends {
			if i >= maxTrendLines {
				break
			}
			fmt.Fprintf(&b, "- %s: %s -> %s%s (%s)\n",
				t.Name, t.EarliestValue, t.LatestValue, unitSuffix(t.Unit), t.Direction)
		}
	}

	if line, ok := faceLine(faces); ok {
		b.WriteString(line + "\n")
	}
	if line, ok := riskLine(risks); ok {
		b.WriteString(line + "\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// dedupLatest keeps, per case-insensitive metric name, only the reading
// with the latest observation date. Order is insertion order of first
// encounter; content is always the most recent value.
func dedupLatest(flat []observation) []observation {
	index := map[string]int{}
	var out []observation
	for _, obs := range flat {
		key := analysis.NormalizeMetricName(obs.metric.Name)
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			if obs.observedAt.After(out[i].observedAt) {
				out[i] = obs
			}
			continue
		}
		index[key] = len(out)
		out = append(out, obs)
	}
	return out
}

func faceLine(faces []*analysis.Analysis) (string, bool) {
	if len(faces) == 0 {
		return "", false
	}
	rec := faces[len(faces)-1]
	if rec.Visual == nil {
		return "", false
	}
	v := rec.Visual
	return fmt.Sprintf("Face scan (%s): redness %.1f%%, yellowness %.1f%%, pallor %.1f%%, skin clarity %.1f",
		rec.CreatedAt.Format(dateLayout),
		v.RednessPercent, v.YellownessPercent, v.PallorPercent, v.SkinClarityScore), true
}

func riskLine(risks []*analysis.Analysis) (string, bool) {
	if len(risks) == 0 {
		return "", false
	}
	rec := risks[len(risks)-1]
	if rec.Narrative == "" {
		return "", false
	}
	var parts []string
	if level, ok := extractRiskLevel(rec.Narrative); ok {
		parts = append(parts, "overall level "+level)
	}
	if concerns := extractConcerns(rec.Narrative, maxConcernLines); len(concerns) > 0 {
		parts = append(parts, "concerns: "+strings.Join(concerns, "; "))
	}
	line := fmt.Sprintf("Risk assessment (%s)", rec.CreatedAt.Format(dateLayout))
	if len(parts) > 0 {
		line += ": " + strings.Join(parts, " | ")
	}
	return line, true
}

func noDataDigest() string {
	return strings.Join([]string{
		"No health data yet.",
		"Get started:",
		"- Scan your face for a quick visual wellness check.",
		"- Upload a recent lab report to start tracking your metrics.",
		"- Once you have an analysis, run a risk assessment for a personalized overview.",
	}, "\n")
}

func unitSuffix(unit string) string {
	if unit == "" {
		return ""
	}
	return " " + unit
}

func statusLabel(s analysis.MetricStatus) string {
	if s == "" {
		return "unknown"
	}
	return string(s)
}
