package models

import "time"

// SemanticMapping ties a business term to the field expression it means.
type SemanticMapping struct {
	ID            string    `json:"id,omitempty"`
	BusinessTerm  string    `json:"business_term"`
	DatabaseField string    `json:"database_field"`
	Description   string    `json:"description"`
	TableName     string    `json:"table_name"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// QueryRecord is the audit row written for every processed question.
type QueryRecord struct {
	ID               string    `json:"id"`
	QueryText        string    `json:"query"`
	CompletionSource string    `json:"completion_source"`
	Extraction       string    `json:"extraction"`
	Collection       string    `json:"collection"`
	Pipeline         string    `json:"pipeline"`
	ChartType        string    `json:"chart_type"`
	TotalRecords     int       `json:"total_records"`
	Failed           bool      `json:"failed"`
	Error            string    `json:"error,omitempty"`
	LatencyMS        int       `json:"latency_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// ProductionRecord is one line/shift/tyre-type row of production_data.
type ProductionRecord struct {
	ID                string `bson:"_id" json:"_id"`
	Date              string `bson:"date" json:"date"`
	ProductionLine    string `bson:"production_line" json:"production_line"`
	Shift             string `bson:"shift" json:"shift"`
	TyreType          string `bson:"tyre_type" json:"tyre_type"`
	PlannedProduction int    `bson:"planned_production" json:"planned_production"`
	ActualProduction  int    `bson:"actual_production" json:"actual_production"`
	DefectCount       int    `bson:"defect_count" json:"defect_count"`
	DowntimeMinutes   int    `bson:"downtime_minutes" json:"downtime_minutes"`
	OperatorID        string `bson:"operator_id" json:"operator_id"`
	RawMaterialUsage  int    `bson:"raw_material_usage" json:"raw_material_usage"`
	EnergyConsumption int    `bson:"energy_consumption" json:"energy_consumption"`
}

// QualityRecord is one defect-type row of quality_metrics.
type QualityRecord struct {
	ID             string `bson:"_id" json:"_id"`
	Date           string `bson:"date" json:"date"`
	ProductionLine string `bson:"production_line" json:"production_line"`
	DefectType     string `bson:"defect_type" json:"defect_type"`
	DefectCount    int    `bson:"defect_count" json:"defect_count"`
	Severity       string `bson:"severity" json:"severity"`
	RootCause      string `bson:"root_cause" json:"root_cause"`
}

// DowntimeRecord is one outage row of equipment_downtime.
type DowntimeRecord struct {
	ID              string `bson:"_id" json:"_id"`
	Date            string `bson:"date" json:"date"`
	EquipmentType   string `bson:"equipment_type" json:"equipment_type"`
	EquipmentID     string `bson:"equipment_id" json:"equipment_id"`
	DowntimeMinutes int    `bson:"downtime_minutes" json:"downtime_minutes"`
	Reason          string `bson:"reason" json:"reason"`
	ProductionLine  string `bson:"production_line" json:"production_line"`
}
