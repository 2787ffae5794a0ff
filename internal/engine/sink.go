package engine

import (
	"context"

	"eventflow/pkg/message"
)

// Sink is a delivery endpoint. Process runs synchronously on the calling
// goroutine; sinks that buffer guard their buffer themselves and drain it on
// Flush and Close.
type Sink interface {
	Init(ctx context.Context) error
	Process(mc *MessageContext)
	// ProcessMessage is the context-free variant for callers that only hold
	// a message.
	ProcessMessage(msg *message.Message)
	Flush(ctx context.Context) error
	// Close releases resources and keeps going when a step fails.
	Close(ctx context.Context) error
}
