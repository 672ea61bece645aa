package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const groupByLine = `[{"$match":{"date":{"$gte":"2024-12-01"}}},{"$group":{"_id":"$production_line","total":{"$sum":"$actual_production"}}},{"$sort":{"total":-1,"_id":1}}]`

func TestExtractStrict(t *testing.T) {
	ext := Extract("  " + groupByLine + "\n")

	assert.Equal(t, OutcomeStrict, ext.Outcome)
	assert.NoError(t, ext.Reason)
	assert.Equal(t, []string{"$match", "$group", "$sort"}, ext.Pipeline.Operators())
	assert.Equal(t, groupByLine, ext.Pipeline.String())
}

func TestExtractEmbeddedInProse(t *testing.T) {
	cases := map[string]string{
		"prose around":  "Here is the pipeline you asked for:\n" + groupByLine + "\nLet me know if you need more.",
		"code fence":    "```json\n" + groupByLine + "\n```",
		"fence + prose": "Sure!\n```\n" + groupByLine + "\n```\nThis groups by line.",
	}

	want := MustParse(groupByLine)
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			ext := Extract(text)
			require.False(t, ext.Degraded(), "reason: %v", ext.Reason)
			assert.True(t, ext.Pipeline.Equal(want))
			// key order inside $sort survives the round trip
			sort, ok := ext.Pipeline[2].Get("$sort")
			require.True(t, ok)
			assert.Equal(t, []string{"total", "_id"}, sort.Keys())
		})
	}
}

func TestExtractStrictBeatsBracketScan(t *testing.T) {
	// The fence is stripped before the full-text parse.
	ext := Extract("```json\n[{\"$limit\": 5}]\n```")
	assert.Equal(t, OutcomeStrict, ext.Outcome)
	assert.Equal(t, `[{"$limit":5}]`, ext.Pipeline.String())
}

func TestExtractTotality(t *testing.T) {
	inputs := map[string]string{
		"empty":             "",
		"whitespace":        "   \n\t",
		"no brackets":       "I cannot answer that question.",
		"only open":         `[{"$match": {}}`,
		"reversed brackets": `] nothing [`,
		"truncated":         `[{"$group": {"_id": "$production_line", "total": {"$sum": `,
		"not json":          `[{$group: {_id: '$production_line'}}]`,
		"empty array":       `[]`,
		"array of numbers":  `[1, 2, 3]`,
		"array of strings":  `Use ["$match", "$group"]`,
		"mixed array":       `[{"$match": {}}, 42]`,
		"object":            `{"$match": {}}`,
		"nested garbage":    `[[[[`,
		"python literal":    `[{'$match': {'x': True}}]`,
		"two arrays":        `first [{"$limit": 1}] then [{"$limit": 2}]`,
	}

	for name, text := range inputs {
		t.Run(name, func(t *testing.T) {
			var ext Extraction
			require.NotPanics(t, func() { ext = Extract(text) })
			assert.Equal(t, OutcomeFallback, ext.Outcome)
			assert.Error(t, ext.Reason)
			assert.True(t, ext.Pipeline.Equal(Fallback()))
		})
	}
}

func TestFallbackShape(t *testing.T) {
	fb := Fallback()
	require.Len(t, fb, 2)
	assert.Equal(t, []string{"$group", "$sort"}, fb.Operators())

	group, _ := fb[0].Get("$group")
	id, _ := group.Get("_id")
	assert.Equal(t, "$production_line", id.Str())
	total, _ := group.Get("total_production")
	sum, _ := total.Get("$sum")
	assert.Equal(t, "$actual_production", sum.Str())

	sort, _ := fb[1].Get("$sort")
	dir, _ := sort.Get("total_production")
	assert.Equal(t, int64(-1), dir.Number())

	// callers get their own copy
	fb[0] = Stage{Value: Object(F("$limit", Int(1)))}
	assert.Equal(t, "$group", Fallback()[0].Operator())
}

func TestExtractorGuard(t *testing.T) {
	x := Extractor{Guard: NewGuard(3, nil)}

	ok := x.Extract(`[{"$match": {"shift": "Day"}}, {"$count": "n"}]`)
	assert.Equal(t, OutcomeStrict, ok.Outcome)

	cases := map[string]struct {
		text string
		err  error
	}{
		"writer stage":  {`[{"$match": {}}, {"$out": "stolen"}]`, ErrOperatorNotAllowed},
		"lookup":        {`[{"$lookup": {"from": "users"}}]`, ErrOperatorNotAllowed},
		"too many":      {`[{"$match":{}},{"$match":{}},{"$match":{}},{"$match":{}}]`, ErrTooManyStages},
		"two operators": {`[{"$match": {}, "$limit": 1}]`, ErrStageOperator},
		"no operator":   {`[{"production_line": "Line-A-Radial"}]`, ErrStageOperator},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ext := x.Extract(tc.text)
			assert.Equal(t, OutcomeFallback, ext.Outcome)
			assert.ErrorIs(t, ext.Reason, tc.err)
			assert.True(t, ext.Pipeline.Equal(Fallback()))
		})
	}
}

func TestPipelineJSON(t *testing.T) {
	p := MustParse(groupByLine)

	b, err := json.Marshal(map[string]any{"pipeline": p})
	require.NoError(t, err)
	assert.JSONEq(t, `{"pipeline":`+groupByLine+`}`, string(b))

	var back struct {
		Pipeline Pipeline `json:"pipeline"`
	}
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Pipeline.Equal(p))
}
