package cel

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/google/cel-go/cel"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	VarMessage  = "msg"
	VarPipeline = "pipeline"
	VarStream   = "stream"
	VarNow      = "now"
)

var jsonValueType = reflect.TypeOf(&structpb.Value{})

// Evaluator compiles expressions over a message document. Programs are
// compiled once at configuration time and evaluated per message.
type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable(VarMessage, cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable(VarPipeline, cel.StringType),
		cel.Variable(VarStream, cel.StringType),
		cel.Variable(VarNow, cel.TimestampType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateExpression(expression string) error {
	_, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	return nil
}

// CompileFilter compiles an expression that must produce a bool.
func (e *Evaluator) CompileFilter(expression string) (*Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	return e.program(expression, ast)
}

// CompileTransform compiles an expression of any result type.
func (e *Evaluator) CompileTransform(expression string) (*Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	return e.program(expression, ast)
}

func (e *Evaluator) program(expression string, ast *cel.Ast) (*Program, error) {
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return &Program{expression: expression, prg: prg}, nil
}

// Vars are the inputs of one evaluation.
type Vars struct {
	Message  map[string]interface{}
	Pipeline string
	Stream   string
}

func (v Vars) activation() map[string]interface{} {
	doc := v.Message
	if doc == nil {
		doc = map[string]interface{}{}
	}
	return map[string]interface{}{
		VarMessage:  doc,
		VarPipeline: v.Pipeline,
		VarStream:   v.Stream,
		VarNow:      time.Now(),
	}
}

type Program struct {
	expression string
	prg        cel.Program
}

func (p *Program) Expression() string {
	return p.expression
}

func (p *Program) EvalBool(ctx context.Context, vars Vars) (bool, error) {
	result, _, err := p.prg.ContextEval(ctx, vars.activation())
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

// Eval returns the result converted into the JSON document model (maps,
// slices, float64, string, bool, nil).
func (p *Program) Eval(ctx context.Context, vars Vars) (interface{}, error) {
	result, _, err := p.prg.ContextEval(ctx, vars.activation())
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	native, err := result.ConvertToNative(jsonValueType)
	if err != nil {
		return nil, fmt.Errorf("failed to convert CEL result %v: %w", result.Type(), err)
	}

	return native.(*structpb.Value).AsInterface(), nil
}
