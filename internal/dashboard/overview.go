package dashboard

import (
	"context"
	"fmt"

	"github.com/genbi-manufacturing/backend/internal/pipeline"
	"github.com/genbi-manufacturing/backend/internal/query"
)

var (
	productionSummary = pipeline.MustParse(`[
		{"$group": {"_id": null, "total_planned": {"$sum": "$planned_production"}, "total_actual": {"$sum": "$actual_production"}, "total_defects": {"$sum": "$defect_count"}, "total_downtime": {"$sum": "$downtime_minutes"}}}
	]`)

	productionByLine = pipeline.MustParse(`[
		{"$group": {"_id": "$production_line", "production": {"$sum": "$actual_production"}, "defects": {"$sum": "$defect_count"}}},
		{"$sort": {"production": -1}}
	]`)

	// most recent seven days, newest first
	defectTrends = pipeline.MustParse(`[
		{"$group": {"_id": "$date", "total_defects": {"$sum": "$defect_count"}}},
		{"$sort": {"_id": -1}},
		{"$limit": 7}
	]`)

	equipmentDowntime = pipeline.MustParse(`[
		{"$group": {"_id": "$equipment_type", "total_downtime": {"$sum": "$downtime_minutes"}}},
		{"$sort": {"total_downtime": -1}}
	]`)
)

type Overview struct {
	ProductionSummary query.Record   `json:"production_summary"`
	ProductionByLine  []query.Record `json:"production_by_line"`
	DefectTrends      []query.Record `json:"defect_trends"`
	EquipmentDowntime []query.Record `json:"equipment_downtime"`
}

type Summary struct {
	repo query.FactRepository
}

func NewSummary(repo query.FactRepository) *Summary {
	return &Summary{repo: repo}
}

// Overview runs the fixed dashboard aggregations. Unlike ProcessQuery each
// pipeline targets a known collection.
func (s *Summary) Overview(ctx context.Context) (*Overview, error) {
	summary, err := s.repo.AggregateProduction(ctx, productionSummary)
	if err != nil {
		return nil, fmt.Errorf("production summary: %w", err)
	}
	byLine, err := s.repo.AggregateProduction(ctx, productionByLine)
	if err != nil {
		return nil, fmt.Errorf("production by line: %w", err)
	}
	trends, err := s.repo.AggregateQuality(ctx, defectTrends)
	if err != nil {
		return nil, fmt.Errorf("defect trends: %w", err)
	}
	downtime, err := s.repo.AggregateDowntime(ctx, equipmentDowntime)
	if err != nil {
		return nil, fmt.Errorf("equipment downtime: %w", err)
	}

	o := &Overview{
		ProductionSummary: query.Record{},
		ProductionByLine:  nonNil(byLine),
		DefectTrends:      nonNil(trends),
		EquipmentDowntime: nonNil(downtime),
	}
	if len(summary) > 0 {
		o.ProductionSummary = summary[0]
	}
	return o, nil
}

func nonNil(rs []query.Record) []query.Record {
	if rs == nil {
		return []query.Record{}
	}
	return rs
}
