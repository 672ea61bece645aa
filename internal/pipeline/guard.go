package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultAllowedOperators are read-only stages confined to one collection.
// Writers ($out, $merge) and cross-collection stages ($lookup, $unionWith,
// $graphLookup) are left out.
var DefaultAllowedOperators = []string{
	"$match",
	"$group",
	"$sort",
	"$project",
	"$addFields",
	"$set",
	"$unset",
	"$limit",
	"$skip",
	"$unwind",
	"$count",
	"$sortByCount",
	"$bucket",
	"$bucketAuto",
	"$facet",
	"$replaceRoot",
	"$replaceWith",
	"$densify",
	"$fill",
	"$setWindowFields",
}

const DefaultMaxStages = 20

var (
	ErrTooManyStages      = errors.New("pipeline has too many stages")
	ErrOperatorNotAllowed = errors.New("pipeline operator not allowed")
	ErrStageOperator      = errors.New("stage must have exactly one operator key")
)

// Guard bounds what model output may ask the database to do.
type Guard struct {
	MaxStages int
	allowed   map[string]struct{}
}

// NewGuard builds a Guard. An empty allow-list means DefaultAllowedOperators;
// maxStages <= 0 means DefaultMaxStages.
func NewGuard(maxStages int, allowed []string) *Guard {
	if maxStages <= 0 {
		maxStages = DefaultMaxStages
	}
	if len(allowed) == 0 {
		allowed = DefaultAllowedOperators
	}
	g := &Guard{MaxStages: maxStages, allowed: make(map[string]struct{}, len(allowed))}
	for _, op := range allowed {
		g.allowed[op] = struct{}{}
	}
	return g
}

func (g *Guard) Check(p Pipeline) error {
	if len(p) > g.MaxStages {
		return fmt.Errorf("%w: %d > %d", ErrTooManyStages, len(p), g.MaxStages)
	}
	for i, s := range p {
		if s.Len() != 1 || !strings.HasPrefix(s.Operator(), "$") {
			return fmt.Errorf("%w: stage %d has keys %v", ErrStageOperator, i, s.Keys())
		}
		if _, ok := g.allowed[s.Operator()]; !ok {
			return fmt.Errorf("%w: %s", ErrOperatorNotAllowed, s.Operator())
		}
	}
	return nil
}
