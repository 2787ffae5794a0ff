package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{"simple equals", `msg.status == "active"`, false},
		{"numeric comparison", `msg.amount > 100.0`, false},
		{"pipeline variable", `pipeline == "main"`, false},
		{"invalid syntax", `invalid syntax here!!!`, true},
		{"undefined variable", `payload.status == "test"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCompileFilter_RejectsNonBool(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	_, err = eval.CompileFilter(`"text"`)
	assert.Error(t, err)

	_, err = eval.CompileFilter(`msg.amount > 10.0 && stream == "orders"`)
	assert.NoError(t, err)
}

func TestProgram_EvalBool(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	doc := map[string]interface{}{
		"status": "active",
		"amount": 150.0,
		"user":   map[string]interface{}{"tier": "premium"},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{`msg.status == "active"`, true},
		{`msg.amount > 1000.0`, false},
		{`msg.user.tier == "premium" && pipeline == "main"`, true},
		{`has(msg.email)`, false},
		{`msg.status in ["active", "pending"]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			prg, err := eval.CompileFilter(tt.expr)
			require.NoError(t, err)

			got, err := prg.EvalBool(context.Background(), Vars{Message: doc, Pipeline: "main"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProgram_EvalBool_MissingField(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	prg, err := eval.CompileFilter(`msg.missing == "x"`)
	require.NoError(t, err)

	_, err = prg.EvalBool(context.Background(), Vars{Message: map[string]interface{}{}})
	assert.Error(t, err)
}

func TestProgram_Eval(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	doc := map[string]interface{}{
		"first": "Ada",
		"last":  "Lovelace",
		"price": 10.0,
		"qty":   3.0,
	}

	tests := []struct {
		expr string
		want interface{}
	}{
		{`msg.first + " " + msg.last`, "Ada Lovelace"},
		{`msg.price * msg.qty`, 30.0},
		{`msg.qty > 2.0 ? "bulk" : "single"`, "bulk"},
		{`{"name": msg.first, "tags": ["a", "b"]}`, map[string]interface{}{
			"name": "Ada",
			"tags": []interface{}{"a", "b"},
		}},
		{`size(msg.first)`, 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			prg, err := eval.CompileTransform(tt.expr)
			require.NoError(t, err)

			got, err := prg.Eval(context.Background(), Vars{Message: doc})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
