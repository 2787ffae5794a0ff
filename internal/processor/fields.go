// Package processor holds the built-in pipeline steps.
package processor

import (
	"eventflow/internal/engine"
)

// Set writes the expression-evaluated Value into Field as a string.
type Set struct {
	Field string `mapstructure:"field"`
	Value string `mapstructure:"value"`
}

func (p *Set) Process(mc *engine.MessageContext) {
	msg := mc.Message()
	msg.PutValue(p.Field, msg.EvalExpression(p.Value))
}

// SetRaw writes a structured value, copied, into Field.
type SetRaw struct {
	Field string      `mapstructure:"field"`
	Value interface{} `mapstructure:"value"`
}

func (p *SetRaw) Process(mc *engine.MessageContext) {
	mc.Message().PutRawValue(p.Field, p.Value)
}

type Clear struct {
	Fields []string `mapstructure:"fields"`
}

func (p *Clear) Process(mc *engine.MessageContext) {
	msg := mc.Message()
	for _, f := range p.Fields {
		msg.ClearValue(f)
	}
}

type Mapping struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

// Map copies each From field into To, in order. Absent sources are skipped.
// With Move set the source field is cleared afterwards.
type Map struct {
	Mappings []Mapping `mapstructure:"mappings"`
	Move     bool      `mapstructure:"move"`
}

func (p *Map) Process(mc *engine.MessageContext) {
	msg := mc.Message()
	for _, m := range p.Mappings {
		v, ok := msg.Lookup(m.From)
		if !ok {
			continue
		}
		msg.PutRawValue(m.To, v)
		if p.Move && m.From != m.To {
			msg.ClearValue(m.From)
		}
	}
}
