package source

import (
	"fmt"

	"eventflow/pkg/message"
)

// Routing picks the entry pipeline of an inbound message: the value of
// RoutingField when the record carries one, Pipeline otherwise.
type Routing struct {
	Pipeline     string `mapstructure:"pipeline"`
	RoutingField string `mapstructure:"routing_field"`
}

func (r Routing) Validate() error {
	if r.Pipeline == "" && r.RoutingField == "" {
		return fmt.Errorf("source needs a pipeline or a routing_field")
	}
	return nil
}

func (r Routing) Route(msg *message.Message) *message.Routed {
	pipeline := r.Pipeline
	if r.RoutingField != "" {
		if v, ok := msg.GetText(r.RoutingField); ok && v != "" {
			pipeline = v
		}
	}
	return message.NewRouted(msg, pipeline)
}
