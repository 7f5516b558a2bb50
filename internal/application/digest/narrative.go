package digest

import (
	"regexp"
	"strings"
)

// Best-effort extraction from the free-form risk narrative. A pattern
// that does not match simply yields nothing; extraction never fails the
// digest.

var (
	riskLevelRe = regexp.MustCompile(`(?i)overall risk(?:\s+level)?\s*[:\-]?\s*\**\s*(very\s+high|low|moderate|medium|high|critical)`)
	concernsRe  = regexp.MustCompile(`(?i)(?:key\s+)?concerns?\s*\**\s*:?\s*$`)
	bulletRe    = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)
)

// extractRiskLevel pulls the "overall risk level" token out of the
// narrative, uppercased for emphasis. Returns ("", false) when no
// recognizable token is present.
func extractRiskLevel(narrative string) (string, bool) {
	m := riskLevelRe.FindStringSubmatch(narrative)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(strings.Join(strings.Fields(m[1]), " ")), true
}

// extractConcerns collects up to max short bullet items from a labeled
// concerns section of the narrative.
func extractConcerns(narrative string, max int) []string {
	var out []string
	inSection := false
	for _, line := range strings.Split(narrative, "\n") {
		trimmed := strings.TrimSpace(line)
		if concernsRe.MatchString(trimmed) {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		m := bulletRe.FindStringSubmatch(line)
		if m == nil {
			if trimmed == "" && len(out) > 0 {
				break
			}
			if trimmed != "" && !strings.HasPrefix(trimmed, "-") && len(out) > 0 {
				break
			}
			continue
		}
		item := strings.TrimSpace(strings.Trim(m[1], "*_ "))
		if item == "" {
			continue
		}
		if len(item) > 120 {
			item = item[:117] + "..."
		}
		out = append(out, item)
		if len(out) >= max {
			break
		}
	}
	return out
}
