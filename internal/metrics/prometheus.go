package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genbi_query_duration_seconds",
			Help:    "Query processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"status"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genbi_query_total",
			Help: "Total number of queries processed",
		},
		[]string{"status"},
	)

	CompletionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genbi_completion_total",
			Help: "Completions by source (model, cache, fallback)",
		},
		[]string{"source"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genbi_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	ExtractionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genbi_extraction_total",
			Help: "Pipeline extractions by outcome (strict, embedded, fallback)",
		},
		[]string{"outcome"},
	)

	CollectionHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genbi_collection_hits_total",
			Help: "Collection that produced the answer, or none",
		},
		[]string{"collection"},
	)

	AggregateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genbi_aggregate_duration_seconds",
			Help:    "Duration of a single aggregation against one collection",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"collection"},
	)

	ResultRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "genbi_result_rows",
			Help:    "Number of records returned per query",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 500},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genbi_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genbi_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	GlossaryTerms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "genbi_glossary_terms",
			Help: "Business terms in the active prompt catalog",
		},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(QueryDuration)
		prometheus.MustRegister(QueryTotal)
		prometheus.MustRegister(CompletionTotal)
		prometheus.MustRegister(LLMTokensUsed)
		prometheus.MustRegister(ExtractionTotal)
		prometheus.MustRegister(CollectionHits)
		prometheus.MustRegister(AggregateDuration)
		prometheus.MustRegister(ResultRows)
		prometheus.MustRegister(CacheHits)
		prometheus.MustRegister(CacheMisses)
		prometheus.MustRegister(GlossaryTerms)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
