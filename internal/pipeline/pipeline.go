package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Stage is one aggregation step. It is always an object; its operator and
// arguments are interpreted by the database, not here.
type Stage struct {
	Value
}

// Operator returns the first key of the stage, normally the only one.
func (s Stage) Operator() string {
	if len(s.fields) == 0 {
		return ""
	}
	return s.fields[0].Key
}

// Pipeline is an ordered, non-empty list of stages.
type Pipeline []Stage

var (
	ErrNotArray   = errors.New("pipeline literal is not an array")
	ErrEmpty      = errors.New("pipeline literal is empty")
	ErrStageShape = errors.New("pipeline stage is not an object")
)

// FromValue checks the structural boundary: a non-empty array of objects.
func FromValue(v Value) (Pipeline, error) {
	if v.Kind() != KindArray {
		return nil, fmt.Errorf("%w: got %s", ErrNotArray, v.Kind())
	}
	if v.Len() == 0 {
		return nil, ErrEmpty
	}

	p := make(Pipeline, 0, v.Len())
	for i, item := range v.Items() {
		if item.Kind() != KindObject {
			return nil, fmt.Errorf("%w: stage %d is %s", ErrStageShape, i, item.Kind())
		}
		p = append(p, Stage{Value: item})
	}
	return p, nil
}

// Parse parses a JSON array literal into a Pipeline.
func Parse(raw string) (Pipeline, error) {
	v, err := ParseValue(raw)
	if err != nil {
		return nil, err
	}
	return FromValue(v)
}

// MustParse is for pipelines written into the source.
func MustParse(raw string) Pipeline {
	p, err := Parse(raw)
	if err != nil {
		panic(fmt.Sprintf("pipeline: MustParse(%q): %v", raw, err))
	}
	return p
}

func (p Pipeline) Operators() []string {
	ops := make([]string, 0, len(p))
	for _, s := range p {
		ops = append(ops, s.Operator())
	}
	return ops
}

func (p Pipeline) Equal(o Pipeline) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if !p[i].Value.Equal(o[i].Value) {
			return false
		}
	}
	return true
}

// Mongo converts the pipeline for the driver's Aggregate call.
func (p Pipeline) Mongo() mongo.Pipeline {
	out := make(mongo.Pipeline, 0, len(p))
	for _, s := range p {
		out = append(out, s.BSON().(bson.D))
	}
	return out
}

func (p Pipeline) String() string {
	b, err := json.Marshal(p)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func (p Pipeline) MarshalJSON() ([]byte, error) {
	return Array(p.values()...).MarshalJSON()
}

func (p *Pipeline) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(strings.TrimSpace(string(data)))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Pipeline) values() []Value {
	vals := make([]Value, 0, len(p))
	for _, s := range p {
		vals = append(vals, s.Value)
	}
	return vals
}
