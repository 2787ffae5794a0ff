// Package filter contains the built-in predicates used by pipeline rules.
// Operands are expressions: any ${path} span is replaced by the message
// field at that path before comparison.
package filter

import (
	"regexp"

	"eventflow/internal/engine"
)

// Equals passes when both operands evaluate to the same string.
type Equals struct {
	Left  string
	Right string
}

func NewEquals(left, right string) *Equals {
	return &Equals{Left: left, Right: right}
}

func (f *Equals) Passes(mc *engine.MessageContext) bool {
	msg := mc.Message()
	return msg.EvalExpression(f.Left) == msg.EvalExpression(f.Right)
}

func NewIsTrue(value string) *Equals {
	return NewEquals(value, "true")
}

func NewIsFalse(value string) *Equals {
	return NewEquals(value, "false")
}

// IsEmpty passes when the field is absent or renders as "".
type IsEmpty struct {
	Field string
}

func (f *IsEmpty) Passes(mc *engine.MessageContext) bool {
	text, ok := mc.Message().GetText(f.Field)
	return !ok || text == ""
}

// Has passes when the field is present, whatever its value.
type Has struct {
	Field string
}

func (f *Has) Passes(mc *engine.MessageContext) bool {
	return mc.Message().HasValue(f.Field)
}

// Or passes when any child passes. No children never pass.
type Or struct {
	Filters []engine.Filter
}

func (f *Or) Passes(mc *engine.MessageContext) bool {
	for _, child := range f.Filters {
		if child.Passes(mc) {
			return true
		}
	}
	return false
}

// And passes when every child passes. No children never pass, mirroring Or.
type And struct {
	Filters []engine.Filter
}

func (f *And) Passes(mc *engine.MessageContext) bool {
	if len(f.Filters) == 0 {
		return false
	}
	for _, child := range f.Filters {
		if !child.Passes(mc) {
			return false
		}
	}
	return true
}

type Not struct {
	Filter engine.Filter
}

func (f *Not) Passes(mc *engine.MessageContext) bool {
	return !f.Filter.Passes(mc)
}

// Matches passes when the evaluated value matches Pattern.
type Matches struct {
	Value   string
	Pattern *regexp.Regexp
}

func NewMatches(value, pattern string) (*Matches, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Matches{Value: value, Pattern: re}, nil
}

func (f *Matches) Passes(mc *engine.MessageContext) bool {
	return f.Pattern.MatchString(mc.Message().EvalExpression(f.Value))
}
