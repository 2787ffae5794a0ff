package message

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Message is a JSON object document flowing through a pipeline.
//
// Field arguments are dotted paths ("customer.address.city"). Every
// constructor copies the document it is given, so a Message never aliases
// caller-owned maps or slices.
type Message struct {
	doc map[string]interface{}
}

func New(doc map[string]interface{}) *Message {
	if doc == nil {
		return &Message{doc: make(map[string]interface{})}
	}
	return &Message{doc: copyMap(doc)}
}

func Empty() *Message {
	return New(nil)
}

// Parse builds a Message from a JSON object.
func Parse(data []byte) (*Message, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("failed to parse message: payload is not a JSON object")
	}
	return &Message{doc: doc}, nil
}

func (m *Message) Clone() *Message {
	return &Message{doc: copyMap(m.doc)}
}

// Document returns a deep copy of the backing document.
func (m *Message) Document() map[string]interface{} {
	return copyMap(m.doc)
}

func (m *Message) Lookup(field string) (interface{}, bool) {
	var current interface{} = m.doc
	for _, part := range splitPath(field) {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func (m *Message) HasValue(field string) bool {
	_, ok := m.Lookup(field)
	return ok
}

func (m *Message) GetBool(field string, def bool) bool {
	v, ok := m.Lookup(field)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func (m *Message) GetInt(field string, def int) int {
	n, ok := m.integer(field)
	if !ok || n > math.MaxInt || n < math.MinInt {
		return def
	}
	return int(n)
}

func (m *Message) GetInt64(field string, def int64) int64 {
	n, ok := m.integer(field)
	if !ok {
		return def
	}
	return n
}

func (m *Message) GetFloat64(field string, def float64) float64 {
	v, ok := m.Lookup(field)
	if !ok {
		return def
	}
	f, ok := toFloat(v)
	if !ok {
		return def
	}
	return f
}

func (m *Message) GetString(field string, def string) string {
	v, ok := m.Lookup(field)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// GetText returns the string form of any value, the same form used by
// EvalExpression.
func (m *Message) GetText(field string) (string, bool) {
	v, ok := m.Lookup(field)
	if !ok {
		return "", false
	}
	return Text(v), true
}

// PutValue sets a scalar value, creating intermediate objects as needed.
func (m *Message) PutValue(field string, value interface{}) {
	m.put(field, normalize(value))
}

// PutRawValue sets a structurally arbitrary value (nested objects, lists,
// or any JSON-marshalable Go value). The value is copied.
func (m *Message) PutRawValue(field string, value interface{}) {
	m.put(field, normalize(value))
}

func (m *Message) ClearValue(field string) {
	parts := splitPath(field)
	if len(parts) == 0 {
		return
	}
	obj := m.doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := obj[part].(map[string]interface{})
		if !ok {
			return
		}
		obj = next
	}
	delete(obj, parts[len(parts)-1])
}

func (m *Message) put(field string, value interface{}) {
	parts := splitPath(field)
	if len(parts) == 0 {
		return
	}
	obj := m.doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := obj[part].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			obj[part] = next
		}
		obj = next
	}
	obj[parts[len(parts)-1]] = value
}

func (m *Message) integer(field string) (int64, bool) {
	v, ok := m.Lookup(field)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// ToLine serializes the message as compact single-line JSON.
func (m *Message) ToLine() string {
	data, err := json.Marshal(m.doc)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func (m *Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.doc)
}

func (m *Message) String() string {
	data, err := json.MarshalIndent(m.doc, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Text renders a document value as a string. Objects and arrays render as
// compact JSON and null renders as the empty string.
func Text(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func splitPath(field string) []string {
	if field == "" {
		return nil
	}
	return strings.Split(field, ".")
}
