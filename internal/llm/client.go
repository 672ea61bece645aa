package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/genbi-manufacturing/backend/internal/prompt"
	"github.com/genbi-manufacturing/backend/pkg/circuitbreaker"
	"github.com/genbi-manufacturing/backend/pkg/logger"
	"github.com/genbi-manufacturing/backend/pkg/utils"
)

// FallbackCompletion is returned in place of model output whenever the
// completion service cannot be used. It is a plausible demo pipeline.
const FallbackCompletion = `[
    {"$match": {"date": {"$gte": "2024-12-01"}}},
    {"$group": {"_id": "$production_line", "total_production": {"$sum": "$actual_production"}, "total_defects": {"$sum": "$defect_count"}}},
    {"$addFields": {"defect_rate": {"$divide": ["$total_defects", "$total_production"]}}},
    {"$sort": {"total_production": -1}}
]`

const DefaultTimeout = 30 * time.Second

type Source string

const (
	SourceModel    Source = "model"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

var ErrNoChoices = errors.New("completion returned no choices")

// Completion is always usable text. When Source is SourceFallback, Reason
// holds what went wrong; it is for logs, not for callers to act on.
type Completion struct {
	Text   string
	Source Source
	Reason error
	Usage  Usage
}

func (c Completion) Degraded() bool {
	return c.Source == SourceFallback
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Cache stores model output by key. Implementations must be safe for
// concurrent use.
type Cache interface {
	GetCompletion(ctx context.Context, key string) (string, bool, error)
	SetCompletion(ctx context.Context, key, text string, ttl time.Duration) error
}

type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
	Cache    Cache
	CacheTTL time.Duration
	// Breaker is optional; when open, calls degrade without touching the network.
	Breaker *circuitbreaker.CircuitBreaker
}

type Client struct {
	client   *openai.Client
	model    string
	timeout  time.Duration
	cache    Cache
	cacheTTL time.Duration
	cb       *circuitbreaker.CircuitBreaker
}

func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	logger.Info("LLM client initialized",
		zap.String("base_url", oc.BaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", timeout),
		zap.Bool("cache", cfg.Cache != nil),
	)

	return &Client{
		client:   openai.NewClientWithConfig(oc),
		model:    cfg.Model,
		timeout:  timeout,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		cb:       cfg.Breaker,
	}
}

// NewBreaker is the breaker configuration used in front of the completion service.
func NewBreaker() *circuitbreaker.CircuitBreaker {
	return circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Logger:           logger.GetLogger(),
	})
}

// Complete makes at most one outbound call and never returns an error: every
// failure yields FallbackCompletion. Nothing is cached until the caller has
// found the text usable and passes it to Remember.
func (c *Client) Complete(ctx context.Context, p prompt.Prompt) Completion {
	key := c.cacheKey(p)
	if text, ok := c.lookup(ctx, key); ok {
		return Completion{Text: text, Source: SourceCache}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp openai.ChatCompletionResponse
	call := func() error {
		var err error
		resp, err = c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: p.System},
				{Role: openai.ChatMessageRoleUser, Content: p.User},
			},
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
		})
		if err != nil {
			return fmt.Errorf("failed to create completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return ErrNoChoices
		}
		return nil
	}

	var err error
	if c.cb != nil {
		err = c.cb.Execute(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		logger.Warn("Completion service unavailable, using fallback completion",
			zap.String("model", c.model),
			zap.Error(err),
		)
		return Completion{Text: FallbackCompletion, Source: SourceFallback, Reason: err}
	}

	text := resp.Choices[0].Message.Content

	logger.Debug("LLM completion generated",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return Completion{
		Text:   text,
		Source: SourceModel,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}

// Remember caches model output for p. Fallback and cached completions are
// ignored.
func (c *Client) Remember(ctx context.Context, p prompt.Prompt, out Completion) {
	if c.cache == nil || out.Source != SourceModel {
		return
	}
	if err := c.cache.SetCompletion(ctx, c.cacheKey(p), out.Text, c.cacheTTL); err != nil {
		logger.Warn("Failed to cache completion", zap.Error(err))
	}
}

func (c *Client) cacheKey(p prompt.Prompt) string {
	return utils.HashString(c.model + "\x00" + p.System + "\x00" + p.User)
}

func (c *Client) lookup(ctx context.Context, key string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	text, ok, err := c.cache.GetCompletion(ctx, key)
	if err != nil {
		logger.Warn("Completion cache lookup failed", zap.Error(err))
		return "", false
	}
	return text, ok
}
