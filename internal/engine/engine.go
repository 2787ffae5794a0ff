// Package engine holds the pipeline execution core: filters, processors,
// rules, pipelines, the per-stream and per-message contexts, and the Source
// and Sink contracts that connectors implement.
package engine

// Filter is a predicate over a message in context. Implementations must not
// mutate the message and must be safe for concurrent use.
type Filter interface {
	Passes(mc *MessageContext) bool
}

type FilterFunc func(mc *MessageContext) bool

func (f FilterFunc) Passes(mc *MessageContext) bool {
	return f(mc)
}

// Processor is a side-effecting step. It may hold configuration but no
// per-message state; per-message effects go through mc.
type Processor interface {
	Process(mc *MessageContext)
}

type ProcessorFunc func(mc *MessageContext)

func (f ProcessorFunc) Process(mc *MessageContext) {
	f(mc)
}

// Rule pairs an optional Filter with two processor branches. A nil Filter
// always selects Then.
type Rule struct {
	Name   string
	Filter Filter
	Then   []Processor
	Else   []Processor
}

func (r Rule) branch(mc *MessageContext) []Processor {
	if r.Filter == nil || r.Filter.Passes(mc) {
		return r.Then
	}
	return r.Else
}
