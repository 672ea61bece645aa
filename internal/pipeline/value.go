package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"go.mongodb.org/mongo-driver/bson"
)

type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a JSON-shaped tree. Object fields keep their source order, which
// matters to the aggregation engine for stages such as a multi-key $sort.
type Value struct {
	kind   Kind
	b      bool
	num    string
	s      string
	items  []Value
	fields []Field
}

type Field struct {
	Key   string
	Value Value
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func Array(items ...Value) Value { return Value{kind: KindArray, items: items} }
func Object(fields ...Field) Value {
	return Value{kind: KindObject, fields: fields}
}

func Int(n int64) Value { return Value{kind: KindNumber, num: strconv.FormatInt(n, 10)} }

// F builds a Field; it keeps object literals short.
func F(key string, v Value) Field { return Field{Key: key, Value: v} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) Bool() bool      { return v.b }
func (v Value) Str() string     { return v.s }
func (v Value) Items() []Value  { return v.items }
func (v Value) Fields() []Field { return v.fields }
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.fields)
	}
	return 0
}

// Number returns the numeric literal as int64 when it is integral, float64 otherwise.
func (v Value) Number() any {
	if i, err := strconv.ParseInt(v.num, 10, 64); err == nil {
		return i
	}
	f, _ := strconv.ParseFloat(v.num, 64)
	return f
}

// Get returns the first field named key.
func (v Value) Get(key string) (Value, bool) {
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Keys lists object keys in order.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.fields))
	for _, f := range v.fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// Equal compares structurally; object key order is significant.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return numbersEqual(v.num, o.num)
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for i := range v.fields {
			if v.fields[i].Key != o.fields[i].Key || !v.fields[i].Value.Equal(o.fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

func numbersEqual(a, b string) bool {
	if a == b {
		return true
	}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	return errA == nil && errB == nil && fa == fb
}

// ParseValue parses a single JSON literal. It rejects anything gjson does not
// consider valid JSON.
func ParseValue(raw string) (Value, error) {
	if !gjson.Valid(raw) {
		return Value{}, fmt.Errorf("invalid JSON literal")
	}
	return fromResult(gjson.Parse(raw)), nil
}

func fromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Null()
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		return Value{kind: KindNumber, num: r.Raw}
	case gjson.String:
		return String(r.Str)
	}

	if r.IsArray() {
		items := []Value{}
		r.ForEach(func(_, item gjson.Result) bool {
			items = append(items, fromResult(item))
			return true
		})
		return Value{kind: KindArray, items: items}
	}

	fields := []Field{}
	r.ForEach(func(key, item gjson.Result) bool {
		fields = append(fields, Field{Key: key.Str, Value: fromResult(item)})
		return true
	})
	return Value{kind: KindObject, fields: fields}
}

func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(string(data))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(v.num)
	case KindString:
		enc, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(enc)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := f.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot encode value of kind %d", v.kind)
	}
	return nil
}

// BSON converts the tree into driver types: objects become bson.D so field
// order survives the trip to the server.
func (v Value) BSON() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.Number()
	case KindString:
		return v.s
	case KindArray:
		arr := make(bson.A, 0, len(v.items))
		for _, item := range v.items {
			arr = append(arr, item.BSON())
		}
		return arr
	case KindObject:
		doc := make(bson.D, 0, len(v.fields))
		for _, f := range v.fields {
			doc = append(doc, bson.E{Key: f.Key, Value: f.Value.BSON()})
		}
		return doc
	}
	return nil
}
