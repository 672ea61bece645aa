package query

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/genbi-manufacturing/backend/internal/metrics"
	"github.com/genbi-manufacturing/backend/internal/pipeline"
	"github.com/genbi-manufacturing/backend/pkg/logger"
)

// Record is one output document of an aggregation.
type Record = map[string]any

const (
	CollectionProduction = "production_data"
	CollectionQuality    = "quality_metrics"
	CollectionDowntime   = "equipment_downtime"
)

// FactRepository runs a pipeline against each of the three read-only fact
// collections. Implementations must not modify data.
type FactRepository interface {
	AggregateProduction(ctx context.Context, p pipeline.Pipeline) ([]Record, error)
	AggregateQuality(ctx context.Context, p pipeline.Pipeline) ([]Record, error)
	AggregateDowntime(ctx context.Context, p pipeline.Pipeline) ([]Record, error)
}

type target struct {
	name string
	run  func(ctx context.Context, p pipeline.Pipeline) ([]Record, error)
}

// Executor tries collections in priority order and keeps the first non-empty
// result. An empty result from a collection is taken to mean the pipeline
// does not apply to it; there is no other routing.
type Executor struct {
	targets []target
}

// Result is what the executor found. Collection is empty when every
// collection returned nothing.
type Result struct {
	Collection string
	Records    []Record
	Attempts   int
}

func NewExecutor(repo FactRepository) *Executor {
	return &Executor{
		targets: []target{
			{name: CollectionProduction, run: repo.AggregateProduction},
			{name: CollectionQuality, run: repo.AggregateQuality},
			{name: CollectionDowntime, run: repo.AggregateDowntime},
		},
	}
}

// Execute stops at the first error; no later collection is tried after a failure.
func (x *Executor) Execute(ctx context.Context, p pipeline.Pipeline) (Result, error) {
	for i, t := range x.targets {
		start := time.Now()
		records, err := t.run(ctx, p)
		metrics.AggregateDuration.WithLabelValues(t.name).Observe(time.Since(start).Seconds())
		if err != nil {
			return Result{Attempts: i + 1}, fmt.Errorf("aggregate %s: %w", t.name, err)
		}
		if len(records) > 0 {
			return Result{Collection: t.name, Records: records, Attempts: i + 1}, nil
		}
		logger.Debug("Pipeline returned no rows, trying next collection",
			zap.String("collection", t.name),
		)
	}
	return Result{Records: []Record{}, Attempts: len(x.targets)}, nil
}
