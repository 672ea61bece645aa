package chart

import "strings"

// Type is a presentation hint for the dashboard, derived from result shape.
type Type string

const (
	Bar  Type = "bar"
	Line Type = "line"
)

// LineThreshold is the row count above which a series reads better as a line.
const LineThreshold = 10

var ratioMarkers = []string{"rate", "percentage"}

// Classify picks a chart for rows. Ratio-like columns in the first row win,
// then long results; everything else, including no rows, is a bar chart.
func Classify(rows []map[string]any) Type {
	if len(rows) == 0 {
		return Bar
	}
	for key := range rows[0] {
		if isRatioKey(key) {
			return Line
		}
	}
	if len(rows) > LineThreshold {
		return Line
	}
	return Bar
}

func isRatioKey(key string) bool {
	k := strings.ToLower(key)
	for _, marker := range ratioMarkers {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}
