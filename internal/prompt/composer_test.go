package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/genbi-manufacturing/backend/internal/storage/models"
)

func TestComposeDefaultCatalog(t *testing.T) {
	c := NewComposer(DefaultCatalog())
	p := c.Compose("Show production by line")

	assert.Equal(t, "Show production by line", p.User)
	assert.Equal(t, DefaultTemperature, p.Temperature)
	assert.Equal(t, DefaultMaxTokens, p.MaxTokens)

	for _, want := range []string{
		"- production_data: date, production_line, shift, tyre_type, planned_production, actual_production, defect_count, downtime_minutes",
		"- quality_metrics: date, production_line, defect_type, defect_count, severity, root_cause",
		"- equipment_downtime: date, equipment_type, equipment_id, downtime_minutes, reason, production_line",
		`- "defect rate" = defect_count / actual_production`,
		`- "last week" = last 7 days`,
		`- "production lines" = Line-A-Radial, Line-B-Bias, Line-C-HeavyDuty`,
		"Return ONLY a valid MongoDB aggregation pipeline as JSON array",
	} {
		assert.Contains(t, p.System, want)
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	a := NewComposer(DefaultCatalog()).Compose("defect rate last week")
	b := NewComposer(DefaultCatalog()).Compose("defect rate last week")
	assert.Equal(t, a, b)
	assert.NotContains(t, a.System, "defect rate last week", "query belongs in the user message only")
}

func TestComposeOptions(t *testing.T) {
	p := NewComposer(DefaultCatalog(), WithTemperature(0.3), WithMaxTokens(256), WithMaxTokens(0)).Compose("q")
	assert.Equal(t, float32(0.3), p.Temperature)
	assert.Equal(t, 256, p.MaxTokens)
}

func TestWithGlossary(t *testing.T) {
	base := DefaultCatalog()
	custom := base.WithGlossary([]models.SemanticMapping{
		{BusinessTerm: "scrap", DatabaseField: "defect_count", Description: "Scrapped tyres", TableName: "quality_metrics"},
	})

	sys := NewComposer(custom).Compose("q").System
	assert.Contains(t, sys, `- "scrap" = defect_count (quality_metrics): Scrapped tyres`)
	assert.False(t, strings.Contains(sys, `"efficiency"`))

	// base untouched, empty glossary is a no-op
	assert.Len(t, base.Glossary, len(DefaultGlossary()))
	assert.Equal(t, base, base.WithGlossary(nil))
}
