package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genbi-manufacturing/backend/internal/pipeline"
	"github.com/genbi-manufacturing/backend/internal/query"
)

type stubRepo struct {
	production func(p pipeline.Pipeline) ([]query.Record, error)
	quality    []query.Record
	downtime   []query.Record
	seen       []string
}

func (s *stubRepo) AggregateProduction(_ context.Context, p pipeline.Pipeline) ([]query.Record, error) {
	s.seen = append(s.seen, "production")
	return s.production(p)
}

func (s *stubRepo) AggregateQuality(_ context.Context, p pipeline.Pipeline) ([]query.Record, error) {
	s.seen = append(s.seen, "quality")
	return s.quality, nil
}

func (s *stubRepo) AggregateDowntime(_ context.Context, p pipeline.Pipeline) ([]query.Record, error) {
	s.seen = append(s.seen, "downtime")
	return s.downtime, nil
}

func TestOverview(t *testing.T) {
	repo := &stubRepo{
		production: func(p pipeline.Pipeline) ([]query.Record, error) {
			if p.Equal(productionSummary) {
				return []query.Record{{"_id": nil, "total_actual": 81000}}, nil
			}
			return []query.Record{{"_id": "Line-A-Radial", "production": 30000}}, nil
		},
		downtime: []query.Record{{"_id": "Mixer", "total_downtime": 900}},
	}

	o, err := NewSummary(repo).Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"production", "production", "quality", "downtime"}, repo.seen)
	assert.Equal(t, 81000, o.ProductionSummary["total_actual"])
	assert.Len(t, o.ProductionByLine, 1)
	assert.Len(t, o.EquipmentDowntime, 1)

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"defect_trends":[]`)
}

func TestOverviewEmptyDatabase(t *testing.T) {
	repo := &stubRepo{production: func(pipeline.Pipeline) ([]query.Record, error) { return nil, nil }}

	o, err := NewSummary(repo).Overview(context.Background())
	require.NoError(t, err)

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.JSONEq(t, `{"production_summary":{},"production_by_line":[],"defect_trends":[],"equipment_downtime":[]}`, string(data))
}

func TestOverviewError(t *testing.T) {
	repo := &stubRepo{production: func(pipeline.Pipeline) ([]query.Record, error) {
		return nil, errors.New("no reachable servers")
	}}

	_, err := NewSummary(repo).Overview(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "production summary")
	assert.Contains(t, err.Error(), "no reachable servers")
}

func TestDefectTrendsLimitsToSevenDays(t *testing.T) {
	assert.Equal(t, []string{"$group", "$sort", "$limit"}, defectTrends.Operators())
}
