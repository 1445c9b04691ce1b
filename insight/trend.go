package insight

import "strings"

var emphasisMarkers = strings.NewReplacer("**", "", "__", "")

// ExtractTrendLabel returns the text of the first "Trend Label:" line in a
// generated summary, with markdown emphasis removed. It reports false when
// the summary has no such line. A marker line with nothing after the colon
// yields an empty label.
func ExtractTrendLabel(summary string) (string, bool) {
	for _, line := range strings.Split(summary, "\n") {
		if !strings.Contains(line, TrendLabelMarker) {
			continue
		}
		_, label, _ := strings.Cut(line, ":")
		return strings.TrimSpace(emphasisMarkers.Replace(label)), true
	}
	return "", false
}
