package filter

import (
	"fmt"

	"eventflow/internal/constants"
	"eventflow/internal/engine"
	"eventflow/pkg/cel"
	"eventflow/pkg/metrics"
)

// Expression evaluates a CEL predicate over the message document. When
// evaluation fails (a missing field, a type mismatch) the result is decided
// by the fallback: allow passes the message, deny rejects it.
type Expression struct {
	program  *cel.Program
	fallback string
}

func NewExpression(evaluator *cel.Evaluator, expression, fallback string) (*Expression, error) {
	switch fallback {
	case "":
		fallback = constants.FallbackDeny
	case constants.FallbackAllow, constants.FallbackDeny:
	default:
		return nil, fmt.Errorf("unknown fallback %q", fallback)
	}

	program, err := evaluator.CompileFilter(expression)
	if err != nil {
		return nil, err
	}
	return &Expression{program: program, fallback: fallback}, nil
}

func (f *Expression) Passes(mc *engine.MessageContext) bool {
	vars := cel.Vars{
		Message:  mc.Message().Document(),
		Pipeline: mc.Pipeline(),
	}
	if stream := mc.Stream(); stream != nil {
		vars.Stream = stream.Name()
	}

	passed, err := f.program.EvalBool(mc.Context(), vars)
	if err == nil {
		return passed
	}

	metrics.FallbackUsageTotal.WithLabelValues("filter", f.fallback, "evaluation_error").Inc()
	mc.Warn("filter expression evaluation failed",
		"expression", f.program.Expression(),
		"fallback", f.fallback,
		"error", err,
	)
	return f.fallback == constants.FallbackAllow
}
