package digest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleNarrative = `## Assessment

Overall risk level: **Moderate**

Key concerns:
- Elevated fasting glucose over the last two reports
- LDL cholesterol trending upward
- Mild facial redness may indicate inflammation
- Fourth concern that should be cut off

## Recommendations
- Schedule a follow-up lipid panel
`

func TestExtractRiskLevel(t *testing.T) {
	level, ok := extractRiskLevel(sampleNarrative)
	require.True(t, ok)
	require.Equal(t, "MODERATE", level)
}

func TestExtractRiskLevel_Variants(t *testing.T) {
	cases := map[string]string{
		"overall risk: low":              "LOW",
		"Overall Risk Level - High":      "HIGH",
		"Overall risk level: very  high": "VERY HIGH",
	}
	for in, want := range cases {
		level, ok := extractRiskLevel(in)
		require.True(t, ok, "input %q", in)
		require.Equal(t, want, level, "input %q", in)
	}
}

func TestExtractRiskLevel_NoMatch(t *testing.T) {
	_, ok := extractRiskLevel("Everything looks great, keep it up!")
	require.False(t, ok)
}

func TestExtractConcerns_CapsAtMax(t *testing.T) {
	concerns := extractConcerns(sampleNarrative, 3)
	require.Len(t, concerns, 3)
	require.Equal(t, "Elevated fasting glucose over the last two reports", concerns[0])
	require.NotContains(t, concerns, "Fourth concern that should be cut off")
}

func TestExtractConcerns_StopsAtNextSection(t *testing.T) {
	concerns := extractConcerns(sampleNarrative, 10)
	require.NotContains(t, concerns, "Schedule a follow-up lipid panel")
}

func TestExtractConcerns_NoSection(t *testing.T) {
	require.Empty(t, extractConcerns("No structured sections here.", 3))
}

func TestExtractConcerns_NumberedBullets(t *testing.T) {
	narrative := "Concerns:\n1. First item\n2) Second item\n"
	concerns := extractConcerns(narrative, 3)
	require.Equal(t, []string{"First item", "Second item"}, concerns)
}
