package chart

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rows(n int, keys ...string) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		r := map[string]any{}
		for _, k := range keys {
			r[k] = i
		}
		out[i] = r
	}
	return out
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		rows []map[string]any
		want Type
	}{
		{"empty", nil, Bar},
		{"empty slice", []map[string]any{}, Bar},
		{"rate key", []map[string]any{{"defect_rate": 0.1}}, Line},
		{"percentage key, mixed case", []map[string]any{{"_id": "Line-A-Radial", "Uptime_Percentage": 97.5}}, Line},
		{"RATE upper", rows(2, "_id", "DEFECTRATE"), Line},
		{"many rows", rows(15, "_id", "total_production"), Line},
		{"exactly threshold", rows(LineThreshold, "_id", "total_production"), Bar},
		{"two plain rows", rows(2, "_id", "total_production"), Bar},
		{"one plain row", rows(1, "total"), Bar},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.rows))
		})
	}
}

func TestClassifyOnlyInspectsFirstRow(t *testing.T) {
	r := rows(3, "_id", "total")
	r[2]["defect_rate"] = 0.2
	assert.Equal(t, Bar, Classify(r), fmt.Sprint(r))
}
