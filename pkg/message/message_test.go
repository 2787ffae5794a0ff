package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CopiesDocument(t *testing.T) {
	doc := map[string]interface{}{
		"status": "paid",
		"items":  []interface{}{"a", "b"},
		"customer": map[string]interface{}{
			"name": "ada",
		},
	}

	msg := New(doc)
	doc["status"] = "refunded"
	doc["items"].([]interface{})[0] = "z"
	doc["customer"].(map[string]interface{})["name"] = "bob"

	assert.Equal(t, "paid", msg.GetString("status", ""))
	assert.Equal(t, "ada", msg.GetString("customer.name", ""))
	items, ok := msg.Lookup("items")
	require.True(t, ok)
	assert.Equal(t, []interface{}{"a", "b"}, items)
}

func TestClone_Independent(t *testing.T) {
	original, err := Parse([]byte(`{"id":"1","nested":{"count":2,"tags":["x"]}}`))
	require.NoError(t, err)

	clone := original.Clone()
	assert.Equal(t, original.ToLine(), clone.ToLine())

	clone.PutValue("nested.count", 3)
	clone.PutValue("id", "2")
	clone.ClearValue("nested.tags")
	assert.Equal(t, 2, original.GetInt("nested.count", 0))
	assert.Equal(t, "1", original.GetString("id", ""))
	assert.True(t, original.HasValue("nested.tags"))

	original.PutValue("extra", true)
	assert.False(t, clone.HasValue("extra"))
}

func TestTypedAccessors(t *testing.T) {
	msg, err := Parse([]byte(`{
		"flag": true,
		"count": 42,
		"big": 9007199254740993,
		"ratio": 0.25,
		"name": "ada",
		"nested": {"deep": {"value": 7}}
	}`))
	require.NoError(t, err)

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"bool present", msg.GetBool("flag", false), true},
		{"bool wrong type", msg.GetBool("name", false), false},
		{"bool absent", msg.GetBool("missing", true), true},
		{"int present", msg.GetInt("count", -1), 42},
		{"int from fraction", msg.GetInt("ratio", -1), -1},
		{"int wrong type", msg.GetInt("name", -1), -1},
		{"int nested", msg.GetInt("nested.deep.value", -1), 7},
		{"int64 present", msg.GetInt64("count", -1), int64(42)},
		{"float present", msg.GetFloat64("ratio", 0), 0.25},
		{"float from int", msg.GetFloat64("count", 0), float64(42)},
		{"float wrong type", msg.GetFloat64("flag", 1.5), 1.5},
		{"string present", msg.GetString("name", ""), "ada"},
		{"string wrong type", msg.GetString("count", "dflt"), "dflt"},
		{"string through scalar", msg.GetString("name.first", "dflt"), "dflt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestPutRawValue(t *testing.T) {
	msg := Empty()

	raw := map[string]interface{}{"lines": []interface{}{1, 2}}
	msg.PutRawValue("order", raw)
	raw["lines"] = "changed"

	lines, ok := msg.Lookup("order.lines")
	require.True(t, ok)
	assert.Equal(t, []interface{}{1, 2}, lines)

	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	msg.PutRawValue("point", point{X: 1, Y: 2})
	assert.Equal(t, 1, msg.GetInt("point.x", 0))
	assert.Equal(t, 2, msg.GetInt("point.y", 0))

	msg.PutRawValue("labels", []string{"a", "b"})
	assert.Equal(t, `{"labels":["a","b"],"order":{"lines":[1,2]},"point":{"x":1,"y":2}}`, msg.ToLine())
}

func TestPutValue_CreatesIntermediateObjects(t *testing.T) {
	msg := Empty()
	msg.PutValue("a.b.c", "x")
	assert.Equal(t, "x", msg.GetString("a.b.c", ""))

	msg.PutValue("a.b", "scalar")
	msg.PutValue("a.b.d", 1)
	assert.Equal(t, 1, msg.GetInt("a.b.d", 0))
}

func TestClearValue(t *testing.T) {
	msg := New(map[string]interface{}{
		"keep": 1,
		"drop": 2,
		"nested": map[string]interface{}{
			"drop": 3,
		},
	})

	msg.ClearValue("drop")
	msg.ClearValue("nested.drop")
	msg.ClearValue("missing.path")

	assert.False(t, msg.HasValue("drop"))
	assert.False(t, msg.HasValue("nested.drop"))
	assert.True(t, msg.HasValue("nested"))
	assert.True(t, msg.HasValue("keep"))
}

func TestEvalExpression(t *testing.T) {
	msg, err := Parse([]byte(`{
		"id": "o-1",
		"amount": 12,
		"price": 1.5,
		"paid": false,
		"customer": {"name": "ada", "tags": ["vip"]},
		"none": null
	}`))
	require.NoError(t, err)

	tests := []struct {
		expr string
		want string
	}{
		{"literal", "literal"},
		{"${id}", "o-1"},
		{"order ${id} for ${customer.name}", "order o-1 for ada"},
		{"${amount}", "12"},
		{"${price}", "1.5"},
		{"${paid}", "false"},
		{"${customer.tags}", `["vip"]`},
		{"${customer}", `{"name":"ada","tags":["vip"]}`},
		{"${none}", ""},
		{"[${missing}]", "[]"},
		{"${ id }", "o-1"},
		{"unterminated ${id", "unterminated ${id"},
		{"${id}${id}", "o-1o-1"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, msg.EvalExpression(tt.expr))
		})
	}
}

func TestParse_RejectsNonObjects(t *testing.T) {
	for _, input := range []string{`[1,2]`, `"text"`, `null`, `{broken`} {
		_, err := Parse([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestString_Pretty(t *testing.T) {
	msg := New(map[string]interface{}{"a": 1})
	assert.Equal(t, "{\n  \"a\": 1\n}", msg.String())
	assert.Equal(t, `{"a":1}`, msg.ToLine())
}
