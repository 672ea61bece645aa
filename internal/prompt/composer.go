package prompt

import (
	"fmt"
	"strings"
)

const (
	DefaultTemperature float32 = 0.1
	DefaultMaxTokens           = 1000
)

// Prompt is the two-message request sent to the completion service.
type Prompt struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Composer renders the system context once and pairs it with each query.
type Composer struct {
	system      string
	temperature float32
	maxTokens   int
}

type Option func(*Composer)

func WithTemperature(t float32) Option {
	return func(c *Composer) { c.temperature = t }
}

func WithMaxTokens(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func NewComposer(catalog Catalog, opts ...Option) *Composer {
	c := &Composer{
		system:      renderSystem(catalog),
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Composer) Compose(query string) Prompt {
	return Prompt{
		System:      c.system,
		User:        query,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
}

func renderSystem(cat Catalog) string {
	var b strings.Builder

	b.WriteString("You are a GenBI expert for tyre manufacturing. Convert natural language queries to MongoDB aggregation pipelines.\n\n")

	b.WriteString("Available Collections:\n")
	for _, col := range cat.Collections {
		fmt.Fprintf(&b, "- %s: %s\n", col.Name, strings.Join(col.Fields, ", "))
	}

	b.WriteString("\nBusiness Terms:\n")
	for _, m := range cat.Glossary {
		fmt.Fprintf(&b, "- %q = %s", m.BusinessTerm, m.DatabaseField)
		if m.TableName != "" {
			fmt.Fprintf(&b, " (%s)", m.TableName)
		}
		if m.Description != "" {
			fmt.Fprintf(&b, ": %s", m.Description)
		}
		b.WriteString("\n")
	}
	for _, tp := range cat.TimeVocabulary {
		fmt.Fprintf(&b, "- %q = %s\n", tp.Phrase, tp.Meaning)
	}
	if len(cat.ProductionLines) > 0 {
		fmt.Fprintf(&b, "- \"production lines\" = %s\n", strings.Join(cat.ProductionLines, ", "))
	}

	b.WriteString("\nReturn ONLY a valid MongoDB aggregation pipeline as JSON array. Include proper date filtering and grouping.")

	return b.String()
}
