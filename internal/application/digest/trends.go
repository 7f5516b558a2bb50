package digest

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/ahmad9059/sehatscan/internal/domain/analysis"
)

// Value changes smaller than this are noise, not a trend. Lab values
// carry at most three decimals.
const trendEpsilon = 0.001

const (
	directionImproving = "improving"
	directionWorsening = "worsening"
	directionStable    = "stable"
)

// observation is one metric reading tagged with its source date.
type observation struct {
	metric     analysis.Metric
	observedAt time.Time
}

// trend compares the earliest and latest reading of one metric.
type trend struct {
	Name          string
	EarliestValue string
	LatestValue   string
	Unit          string
	Direction     string
}

// computeTrends groups the flattened (pre-dedup) observations by
// case-insensitive metric name and derives a direction for every name
// with at least two date-ordered readings. Non-numeric values are
// skipped: no number, no trend.
func computeTrends(flat []observation) []trend {
	groups := map[string][]observation{}
	var order []string
	for _, obs := range flat {
		key := analysis.NormalizeMetricName(obs.metric.Name)
		if key == "" {
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], obs)
	}

	var out []trend
	for _, key := range order {
		obs := groups[key]
		sort.SliceStable(obs, func(i, j int) bool {
			return obs[i].observedAt.Before(obs[j].observedAt)
		})
		if len(obs) < 2 {
			continue
		}
		earliest, latest := obs[0], obs[len(obs)-1]
		ev, eok := parseValue(earliest.metric.Value)
		lv, lok := parseValue(latest.metric.Value)
		if !eok || !lok {
			continue
		}
		out = append(out, trend{
			Name:          latest.metric.Name,
			EarliestValue: earliest.metric.Value,
			LatestValue:   latest.metric.Value,
			Unit:          latest.metric.Unit,
			Direction:     direction(ev, lv, earliest.metric.Status, latest.metric.Status),
		})
	}
	return out
}

// direction decides improving/worsening/stable. Status transitions take
// priority; the abnormal-to-abnormal case falls back to a heuristic
// that reads the latest status label as a proxy for which direction is
// healthy, since the reference range itself is not available.
func direction(earliestVal, latestVal float64, earliestStatus, latestStatus analysis.MetricStatus) string {
	if math.Abs(latestVal-earliestVal) < trendEpsilon {
		return directionStable
	}
	earliestNormal := earliestStatus == analysis.StatusNormal
	latestNormal := latestStatus == analysis.StatusNormal
	switch {
	case latestNormal && !earliestNormal:
		return directionImproving
	case !latestNormal && earliestNormal:
		return directionWorsening
	case latestNormal && earliestNormal:
		return directionStable
	}
	// both abnormal
	if latestVal > earliestVal {
		if latestStatus == analysis.StatusLow {
			// rising back up toward the normal range
			return directionImproving
		}
		return directionWorsening
	}
	if latestStatus == analysis.StatusHigh {
		return directionImproving
	}
	return directionWorsening
}

func parseValue(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
