package digest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ahmad9059/sehatscan/internal/domain/analysis"
)

func obs(name, value string, status analysis.MetricStatus, day int) observation {
	return observation{
		metric:     analysis.Metric{Name: name, Value: value, Unit: "mg/dL", Status: status},
		observedAt: time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC),
	}
}

func TestComputeTrends_SkipsSingleObservation(t *testing.T) {
	trends := computeTrends([]observation{obs("Glucose", "95", analysis.StatusNormal, 1)})
	require.Empty(t, trends)
}

func TestComputeTrends_SkipsNonNumericValues(t *testing.T) {
	trends := computeTrends([]observation{
		obs("Ketones", "negative", analysis.StatusNormal, 1),
		obs("Ketones", "trace", analysis.StatusLow, 5),
	})
	require.Empty(t, trends)
}

func TestComputeTrends_CaseInsensitiveGrouping(t *testing.T) {
	trends := computeTrends([]observation{
		obs("Glucose", "126", analysis.StatusHigh, 1),
		obs("GLUCOSE", "95", analysis.StatusNormal, 10),
	})
	require.Len(t, trends, 1)
	require.Equal(t, "126", trends[0].EarliestValue)
	require.Equal(t, "95", trends[0].LatestValue)
}

func TestComputeTrends_OrderedByDateNotInput(t *testing.T) {
	// later reading appears first in the flattened input
	trends := computeTrends([]observation{
		obs("Glucose", "95", analysis.StatusNormal, 10),
		obs("Glucose", "126", analysis.StatusHigh, 1),
	})
	require.Len(t, trends, 1)
	require.Equal(t, directionImproving, trends[0].Direction)
}

func TestDirection_EpsilonIsStable(t *testing.T) {
	d := direction(95.0, 95.0005, analysis.StatusNormal, analysis.StatusHigh)
	require.Equal(t, directionStable, d)
}

func TestDirection_AbnormalToNormalImproves(t *testing.T) {
	d := direction(126, 95, analysis.StatusHigh, analysis.StatusNormal)
	require.Equal(t, directionImproving, d)
}

func TestDirection_NormalToAbnormalWorsens(t *testing.T) {
	d := direction(95, 126, analysis.StatusNormal, analysis.StatusHigh)
	require.Equal(t, directionWorsening, d)
}

func TestDirection_NormalToNormalStable(t *testing.T) {
	d := direction(90, 99, analysis.StatusNormal, analysis.StatusNormal)
	require.Equal(t, directionStable, d)
}

func TestDirection_BothAbnormalHeuristic(t *testing.T) {
	// rising while still low: climbing back toward the range
	require.Equal(t, directionImproving, direction(8, 10, analysis.StatusLow, analysis.StatusLow))
	// rising while high: moving further away
	require.Equal(t, directionWorsening, direction(126, 140, analysis.StatusHigh, analysis.StatusHigh))
	// falling while still high: dropping back toward the range
	require.Equal(t, directionImproving, direction(140, 126, analysis.StatusHigh, analysis.StatusHigh))
	// falling while low: moving further away
	require.Equal(t, directionWorsening, direction(10, 8, analysis.StatusLow, analysis.StatusLow))
	// falling to critical is never an improvement
	require.Equal(t, directionWorsening, direction(140, 60, analysis.StatusHigh, analysis.StatusCritical))
}
