package seed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genbi-manufacturing/backend/internal/storage/models"
)

var refTime = time.Date(2024, 12, 31, 9, 0, 0, 0, time.UTC)

func TestGenerateShape(t *testing.T) {
	ds := NewGenerator(42, 0).Generate(refTime)

	assert.Len(t, ds.Production, 30*3*2*3)
	assert.Len(t, ds.Quality, 30*3*5)
	assert.LessOrEqual(t, len(ds.Downtime), 30*5)
	assert.Len(t, ds.Mappings, 5)

	assert.Equal(t, "2024-12-01", ds.Production[0].Date)
	assert.Equal(t, "2024-12-30", ds.Production[len(ds.Production)-1].Date)

	ids := map[string]bool{}
	for _, r := range ds.Production {
		assert.False(t, ids[r.ID], "duplicate id %s", r.ID)
		ids[r.ID] = true
		assert.GreaterOrEqual(t, r.PlannedProduction, 800)
		assert.LessOrEqual(t, r.PlannedProduction, 1200)
		assert.GreaterOrEqual(t, r.ActualProduction, 700)
		assert.LessOrEqual(t, r.ActualProduction, 1100)
		assert.Contains(t, TyreTypes, r.TyreType)
	}
	for _, r := range ds.Downtime {
		assert.GreaterOrEqual(t, r.DowntimeMinutes, 30)
		assert.LessOrEqual(t, r.DowntimeMinutes, 480)
		assert.Contains(t, EquipmentTypes, r.EquipmentType)
	}
}

func TestGenerateDistinctTyresPerShift(t *testing.T) {
	ds := NewGenerator(7, 1).Generate(refTime)
	require.Len(t, ds.Production, 3*2*3)

	for i := 0; i < len(ds.Production); i += tyresPerShift {
		seen := map[string]bool{}
		for _, r := range ds.Production[i : i+tyresPerShift] {
			assert.False(t, seen[r.TyreType])
			seen[r.TyreType] = true
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := NewGenerator(1, 5).Generate(refTime)
	b := NewGenerator(1, 5).Generate(refTime)
	assert.Equal(t, a, b)

	c := NewGenerator(2, 5).Generate(refTime)
	assert.NotEqual(t, a.Production, c.Production)
}

type recorder struct {
	production int
	mappings   []string
	err        error
}

func (r *recorder) ReplaceFacts(_ context.Context, p []models.ProductionRecord, _ []models.QualityRecord, _ []models.DowntimeRecord) error {
	r.production = len(p)
	return r.err
}

func (r *recorder) UpsertMapping(_ context.Context, m *models.SemanticMapping) error {
	r.mappings = append(r.mappings, m.BusinessTerm)
	return nil
}

func TestLoad(t *testing.T) {
	ds := NewGenerator(3, 2).Generate(refTime)
	rec := &recorder{}

	require.NoError(t, Load(context.Background(), ds, rec, rec))
	assert.Equal(t, len(ds.Production), rec.production)
	assert.Equal(t, []string{"production efficiency", "defect rate", "downtime", "equipment availability", "quality issues"}, rec.mappings)
}

func TestLoadFactsError(t *testing.T) {
	rec := &recorder{err: errors.New("write concern")}
	err := Load(context.Background(), NewGenerator(3, 1).Generate(refTime), rec, rec)
	require.Error(t, err)
	assert.Empty(t, rec.mappings)
}
