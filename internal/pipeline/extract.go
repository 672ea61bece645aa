package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Outcome says how a pipeline was obtained from completion text.
type Outcome string

const (
	// OutcomeStrict: the whole text was the literal.
	OutcomeStrict Outcome = "strict"
	// OutcomeEmbedded: the literal was cut out of surrounding prose.
	OutcomeEmbedded Outcome = "embedded"
	// OutcomeFallback: nothing usable; the built-in pipeline was substituted.
	OutcomeFallback Outcome = "fallback"
)

// Extraction is the result of Extract. Pipeline is never empty.
type Extraction struct {
	Pipeline Pipeline
	Outcome  Outcome
	// Reason is set when Outcome is OutcomeFallback.
	Reason error
}

func (e Extraction) Degraded() bool {
	return e.Outcome == OutcomeFallback
}

var ErrNoBrackets = errors.New("no array literal found in text")

// Extract recovers a pipeline from free text and never fails. A full-text
// parse is tried first; only if that fails is the span between the first '['
// and the last ']' tried.
func Extract(text string) Extraction {
	return Extractor{}.Extract(text)
}

// Extractor is Extract with an optional Guard applied to whatever was parsed.
type Extractor struct {
	Guard *Guard
}

func (x Extractor) Extract(text string) Extraction {
	p, outcome, err := parseCompletion(text)
	if err == nil && x.Guard != nil {
		err = x.Guard.Check(p)
	}
	if err != nil {
		return Extraction{Pipeline: Fallback(), Outcome: OutcomeFallback, Reason: err}
	}
	return Extraction{Pipeline: p, Outcome: outcome}
}

func parseCompletion(text string) (Pipeline, Outcome, error) {
	trimmed := stripCodeFence(text)
	if p, err := Parse(trimmed); err == nil {
		return p, OutcomeStrict, nil
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return nil, OutcomeFallback, ErrNoBrackets
	}

	p, err := Parse(text[start : end+1])
	if err != nil {
		return nil, OutcomeFallback, fmt.Errorf("embedded literal: %w", err)
	}
	return p, OutcomeEmbedded, nil
}

// stripCodeFence removes a surrounding markdown fence such as ```json ... ```.
func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
