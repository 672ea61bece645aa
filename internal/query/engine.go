package query

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/genbi-manufacturing/backend/internal/chart"
	"github.com/genbi-manufacturing/backend/internal/llm"
	"github.com/genbi-manufacturing/backend/internal/metrics"
	"github.com/genbi-manufacturing/backend/internal/pipeline"
	"github.com/genbi-manufacturing/backend/internal/prompt"
	"github.com/genbi-manufacturing/backend/internal/storage/models"
	"github.com/genbi-manufacturing/backend/pkg/logger"
)

// ErrExecution marks a hard failure: the pipeline could not be run against
// the data store. Everything else in a request degrades instead of failing.
var ErrExecution = errors.New("query execution failed")

// Completer produces raw model text for a prompt. It must not fail; see llm.Client.
// Remember is called only for completions that yielded a usable pipeline.
type Completer interface {
	Complete(ctx context.Context, p prompt.Prompt) llm.Completion
	Remember(ctx context.Context, p prompt.Prompt, c llm.Completion)
}

// AuditStore records processed queries. Failures are logged and ignored.
type AuditStore interface {
	InsertQueryRecord(ctx context.Context, rec *models.QueryRecord) error
}

// Phase names a step of ProcessQuery, reported through Request.OnPhase.
type Phase string

const (
	PhaseComposing  Phase = "composing"
	PhaseCompleting Phase = "completing"
	PhaseExtracting Phase = "extracting"
	PhaseExecuting  Phase = "executing"
	PhaseCharting   Phase = "charting"
)

type Request struct {
	Query string
	// OnPhase, if set, is called synchronously as each step starts.
	OnPhase func(Phase)
}

// Response is what the caller sees. How the pipeline was obtained is kept
// out of the JSON so a degraded answer looks like any other; it is recorded
// in the audit history instead.
type Response struct {
	ID               string            `json:"id"`
	Query            string            `json:"query"`
	Pipeline         pipeline.Pipeline `json:"pipeline"`
	Results          []Record          `json:"results"`
	ChartType        chart.Type        `json:"chart_type"`
	TotalRecords     int               `json:"total_records"`
	LLMResponse      string            `json:"llm_response"`
	Collection       string            `json:"collection,omitempty"`
	CompletionSource llm.Source        `json:"-"`
	Extraction       pipeline.Outcome  `json:"-"`
	LatencyMS        int64             `json:"latency_ms"`
}

type Options struct {
	Catalog       prompt.Catalog
	PromptOptions []prompt.Option
	// Guard, when set, rejects pipelines that fail its checks; they are
	// replaced by the fallback pipeline.
	Guard *pipeline.Guard
	Audit AuditStore
}

type Engine struct {
	composer   atomic.Pointer[prompt.Composer]
	promptOpts []prompt.Option
	llm        Completer
	extractor  pipeline.Extractor
	executor   *Executor
	audit      AuditStore
}

func NewEngine(completer Completer, repo FactRepository, opts Options) *Engine {
	e := &Engine{
		promptOpts: opts.PromptOptions,
		llm:        completer,
		extractor:  pipeline.Extractor{Guard: opts.Guard},
		executor:   NewExecutor(repo),
		audit:      opts.Audit,
	}
	e.SetCatalog(opts.Catalog)
	return e
}

// SetCatalog swaps the prompt context for subsequent requests. Requests
// already in flight keep the composer they started with.
func (e *Engine) SetCatalog(cat prompt.Catalog) {
	e.composer.Store(prompt.NewComposer(cat, e.promptOpts...))
	metrics.GlossaryTerms.Set(float64(len(cat.Glossary)))
	logger.Info("Prompt catalog updated", zap.Int("glossary_terms", len(cat.Glossary)))
}

// ProcessQuery answers one question. The only error it returns wraps
// ErrExecution; an unavailable model or unparseable output degrades to the
// fallback pipeline and still yields a response.
func (e *Engine) ProcessQuery(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	id := uuid.New().String()
	phase := func(p Phase) {
		if req.OnPhase != nil {
			req.OnPhase(p)
		}
	}

	logger.Info("Processing query",
		zap.String("id", id),
		zap.String("query", req.Query),
	)

	phase(PhaseComposing)
	p := e.composer.Load().Compose(req.Query)

	phase(PhaseCompleting)
	completion := e.llm.Complete(ctx, p)
	metrics.CompletionTotal.WithLabelValues(string(completion.Source)).Inc()
	if completion.Usage.TotalTokens > 0 {
		metrics.LLMTokensUsed.WithLabelValues("completion", "prompt").Add(float64(completion.Usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues("completion", "completion").Add(float64(completion.Usage.CompletionTokens))
	}
	if completion.Degraded() {
		logger.Warn("Using fallback completion",
			zap.String("id", id),
			zap.Error(completion.Reason),
		)
	}

	phase(PhaseExtracting)
	ext := e.extractor.Extract(completion.Text)
	metrics.ExtractionTotal.WithLabelValues(string(ext.Outcome)).Inc()
	if ext.Degraded() {
		logger.Warn("Pipeline extraction fell back to default pipeline",
			zap.String("id", id),
			zap.Error(ext.Reason),
		)
	} else {
		e.llm.Remember(ctx, p, completion)
	}

	phase(PhaseExecuting)
	result, err := e.executor.Execute(ctx, ext.Pipeline)
	if err != nil {
		elapsed := time.Since(start)
		logger.Error("Query execution failed",
			zap.String("id", id),
			zap.Int("attempts", result.Attempts),
			zap.Error(err),
		)
		metrics.QueryTotal.WithLabelValues("error").Inc()
		metrics.QueryDuration.WithLabelValues("error").Observe(elapsed.Seconds())
		e.record(ctx, &models.QueryRecord{
			ID:               id,
			QueryText:        req.Query,
			CompletionSource: string(completion.Source),
			Extraction:       string(ext.Outcome),
			Pipeline:         ext.Pipeline.String(),
			Failed:           true,
			Error:            err.Error(),
			LatencyMS:        int(elapsed.Milliseconds()),
		})
		return nil, fmt.Errorf("%w: %w", ErrExecution, err)
	}

	collection := result.Collection
	if collection == "" {
		collection = "none"
	}
	metrics.CollectionHits.WithLabelValues(collection).Inc()
	metrics.ResultRows.Observe(float64(len(result.Records)))

	phase(PhaseCharting)
	chartType := chart.Classify(result.Records)

	elapsed := time.Since(start)
	metrics.QueryTotal.WithLabelValues("success").Inc()
	metrics.QueryDuration.WithLabelValues("success").Observe(elapsed.Seconds())

	resp := &Response{
		ID:               id,
		Query:            req.Query,
		Pipeline:         ext.Pipeline,
		Results:          result.Records,
		ChartType:        chartType,
		TotalRecords:     len(result.Records),
		LLMResponse:      completion.Text,
		Collection:       result.Collection,
		CompletionSource: completion.Source,
		Extraction:       ext.Outcome,
		LatencyMS:        elapsed.Milliseconds(),
	}

	e.record(ctx, &models.QueryRecord{
		ID:               id,
		QueryText:        req.Query,
		CompletionSource: string(completion.Source),
		Extraction:       string(ext.Outcome),
		Collection:       result.Collection,
		Pipeline:         ext.Pipeline.String(),
		ChartType:        string(chartType),
		TotalRecords:     resp.TotalRecords,
		LatencyMS:        int(elapsed.Milliseconds()),
	})

	logger.Info("Query processed",
		zap.String("id", id),
		zap.String("collection", result.Collection),
		zap.String("chart_type", string(chartType)),
		zap.Int("records", resp.TotalRecords),
		zap.Duration("duration", elapsed),
	)

	return resp, nil
}

func (e *Engine) record(ctx context.Context, rec *models.QueryRecord) {
	if e.audit == nil {
		return
	}
	// the request may have been cancelled; the audit row should still land
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := e.audit.InsertQueryRecord(ctx, rec); err != nil {
		logger.Warn("Failed to record query", zap.String("id", rec.ID), zap.Error(err))
	}
}
