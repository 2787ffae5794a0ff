package processor

import (
	"eventflow/internal/engine"
	"eventflow/pkg/cel"
)

// Eval stores the result of a CEL expression in Field. Evaluation errors
// are warnings and leave the message unchanged.
type Eval struct {
	Field   string
	program *cel.Program
}

func NewEval(evaluator *cel.Evaluator, field, expression string) (*Eval, error) {
	program, err := evaluator.CompileTransform(expression)
	if err != nil {
		return nil, err
	}
	return &Eval{Field: field, program: program}, nil
}

func (p *Eval) Process(mc *engine.MessageContext) {
	vars := cel.Vars{
		Message:  mc.Message().Document(),
		Pipeline: mc.Pipeline(),
	}
	if stream := mc.Stream(); stream != nil {
		vars.Stream = stream.Name()
	}

	value, err := p.program.Eval(mc.Context(), vars)
	if err != nil {
		mc.Warn("eval expression failed", "expression", p.program.Expression(), "error", err)
		return
	}
	mc.Message().PutRawValue(p.Field, value)
}
