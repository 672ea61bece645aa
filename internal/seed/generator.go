package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/genbi-manufacturing/backend/internal/prompt"
	"github.com/genbi-manufacturing/backend/internal/storage/models"
	"github.com/genbi-manufacturing/backend/pkg/logger"
)

const DefaultDays = 30

var (
	TyreTypes = []string{
		"175/70R13", "185/65R15", "205/55R16", "225/60R17",
		"245/45R18", "285/75R24.5", "315/80R22.5",
	}
	Shifts          = []string{"Day", "Night"}
	DefectTypes     = []string{"Bubbles", "Uneven_Tread", "Sidewall_Defect", "Bead_Separation", "Pressure_Leak"}
	Severities      = []string{"Low", "Medium", "High"}
	RootCauses      = []string{"Material Quality", "Equipment Calibration", "Operator Error", "Temperature Variation", "Pressure Issues"}
	EquipmentTypes  = []string{"Mixer", "Extruder", "Building_Machine", "Curing_Press", "Testing_Equipment"}
	DowntimeReasons = []string{"Scheduled Maintenance", "Breakdown", "Setup Change", "Material Shortage", "Quality Issues"}
)

const (
	tyresPerShift       = 3
	downtimeProbability = 0.3
	dateLayout          = "2006-01-02"
)

type Dataset struct {
	Production []models.ProductionRecord
	Quality    []models.QualityRecord
	Downtime   []models.DowntimeRecord
	Mappings   []models.SemanticMapping
}

// Generator produces synthetic plant data. The same seed and reference time
// always yield the same dataset.
type Generator struct {
	rng  *rand.Rand
	days int
}

func NewGenerator(seed int64, days int) *Generator {
	if days <= 0 {
		days = DefaultDays
	}
	return &Generator{rng: rand.New(rand.NewSource(seed)), days: days}
}

// Generate covers the g.days days ending the day before now.
func (g *Generator) Generate(now time.Time) Dataset {
	base := now.AddDate(0, 0, -g.days)
	lines := prompt.DefaultProductionLines()

	var ds Dataset
	for day := 0; day < g.days; day++ {
		date := base.AddDate(0, 0, day).Format(dateLayout)

		for _, line := range lines {
			for _, shift := range Shifts {
				for _, i := range g.rng.Perm(len(TyreTypes))[:tyresPerShift] {
					ds.Production = append(ds.Production, models.ProductionRecord{
						ID:                g.id(),
						Date:              date,
						ProductionLine:    line,
						Shift:             shift,
						TyreType:          TyreTypes[i],
						PlannedProduction: g.between(800, 1200),
						ActualProduction:  g.between(700, 1100),
						DefectCount:       g.between(5, 50),
						DowntimeMinutes:   g.between(0, 120),
						OperatorID:        fmt.Sprintf("OP%d", g.between(100, 999)),
						RawMaterialUsage:  g.between(500, 800),
						EnergyConsumption: g.between(2000, 3500),
					})
				}
			}

			for _, defect := range DefectTypes {
				ds.Quality = append(ds.Quality, models.QualityRecord{
					ID:             g.id(),
					Date:           date,
					ProductionLine: line,
					DefectType:     defect,
					DefectCount:    g.between(1, 20),
					Severity:       g.pick(Severities),
					RootCause:      g.pick(RootCauses),
				})
			}
		}

		for _, equipment := range EquipmentTypes {
			if g.rng.Float64() >= downtimeProbability {
				continue
			}
			ds.Downtime = append(ds.Downtime, models.DowntimeRecord{
				ID:              g.id(),
				Date:            date,
				EquipmentType:   equipment,
				EquipmentID:     fmt.Sprintf("%s_%d", equipment, g.between(1, 5)),
				DowntimeMinutes: g.between(30, 480),
				Reason:          g.pick(DowntimeReasons),
				ProductionLine:  g.pick(lines),
			})
		}
	}

	ds.Mappings = DefaultMappings()
	return ds
}

func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) pick(options []string) string {
	return options[g.rng.Intn(len(options))]
}

func (g *Generator) id() string {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// DefaultMappings is the glossary a fresh installation starts with.
func DefaultMappings() []models.SemanticMapping {
	return []models.SemanticMapping{
		{BusinessTerm: "production efficiency", DatabaseField: "actual_production / planned_production", Description: "Ratio of actual vs planned production", TableName: "production_data"},
		{BusinessTerm: "defect rate", DatabaseField: "defect_count / actual_production", Description: "Number of defects per unit produced", TableName: "production_data"},
		{BusinessTerm: "downtime", DatabaseField: "downtime_minutes", Description: "Equipment downtime in minutes", TableName: "production_data"},
		{BusinessTerm: "equipment availability", DatabaseField: "(1440 - downtime_minutes) / 1440", Description: "Percentage of time equipment was available", TableName: "equipment_downtime"},
		{BusinessTerm: "quality issues", DatabaseField: "defect_count", Description: "Total number of quality defects", TableName: "quality_metrics"},
	}
}

type FactWriter interface {
	ReplaceFacts(ctx context.Context, production []models.ProductionRecord, quality []models.QualityRecord, downtime []models.DowntimeRecord) error
}

type MappingWriter interface {
	UpsertMapping(ctx context.Context, m *models.SemanticMapping) error
}

// Load replaces the fact collections and upserts the glossary. Either writer
// may be nil to skip that part.
func Load(ctx context.Context, ds Dataset, facts FactWriter, mappings MappingWriter) error {
	if facts != nil {
		if err := facts.ReplaceFacts(ctx, ds.Production, ds.Quality, ds.Downtime); err != nil {
			return fmt.Errorf("failed to load facts: %w", err)
		}
	}
	if mappings != nil {
		for i := range ds.Mappings {
			if err := mappings.UpsertMapping(ctx, &ds.Mappings[i]); err != nil {
				return fmt.Errorf("failed to load mapping %q: %w", ds.Mappings[i].BusinessTerm, err)
			}
		}
	}

	logger.Info("Seed data loaded",
		zap.Int("production", len(ds.Production)),
		zap.Int("quality", len(ds.Quality)),
		zap.Int("downtime", len(ds.Downtime)),
		zap.Int("mappings", len(ds.Mappings)),
	)
	return nil
}
