package prompt

import "github.com/genbi-manufacturing/backend/internal/storage/models"

// Collection describes one fact collection the model may target.
type Collection struct {
	Name   string
	Fields []string
}

// TimePhrase maps a relative time expression to what it means.
type TimePhrase struct {
	Phrase  string
	Meaning string
}

// Catalog is the static context the model sees. It is treated as read-only
// once handed to a Composer.
type Catalog struct {
	Collections     []Collection
	Glossary        []models.SemanticMapping
	ProductionLines []string
	TimeVocabulary  []TimePhrase
}

func DefaultCollections() []Collection {
	return []Collection{
		{
			Name:   "production_data",
			Fields: []string{"date", "production_line", "shift", "tyre_type", "planned_production", "actual_production", "defect_count", "downtime_minutes"},
		},
		{
			Name:   "quality_metrics",
			Fields: []string{"date", "production_line", "defect_type", "defect_count", "severity", "root_cause"},
		},
		{
			Name:   "equipment_downtime",
			Fields: []string{"date", "equipment_type", "equipment_id", "downtime_minutes", "reason", "production_line"},
		},
	}
}

// DefaultGlossary is used until the glossary store has been read.
func DefaultGlossary() []models.SemanticMapping {
	return []models.SemanticMapping{
		{BusinessTerm: "efficiency", DatabaseField: "actual_production / planned_production", Description: "Ratio of actual vs planned production", TableName: "production_data"},
		{BusinessTerm: "defect rate", DatabaseField: "defect_count / actual_production", Description: "Number of defects per unit produced", TableName: "production_data"},
		{BusinessTerm: "downtime", DatabaseField: "downtime_minutes", Description: "Equipment downtime in minutes", TableName: "production_data"},
	}
}

func DefaultProductionLines() []string {
	return []string{"Line-A-Radial", "Line-B-Bias", "Line-C-HeavyDuty"}
}

func DefaultTimeVocabulary() []TimePhrase {
	return []TimePhrase{
		{Phrase: "last week", Meaning: "last 7 days"},
		{Phrase: "this week", Meaning: "current week"},
	}
}

// DefaultCatalog is the tyre-plant catalog the service starts with.
func DefaultCatalog() Catalog {
	return Catalog{
		Collections:     DefaultCollections(),
		Glossary:        DefaultGlossary(),
		ProductionLines: DefaultProductionLines(),
		TimeVocabulary:  DefaultTimeVocabulary(),
	}
}

// WithGlossary returns a copy of c using the given glossary. An empty
// glossary keeps the current one.
func (c Catalog) WithGlossary(glossary []models.SemanticMapping) Catalog {
	if len(glossary) == 0 {
		return c
	}
	out := c
	out.Glossary = append([]models.SemanticMapping(nil), glossary...)
	return out
}
