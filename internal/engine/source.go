package engine

import (
	"context"
	"time"

	apperrors "eventflow/pkg/errors"
	"eventflow/pkg/message"
)

var ErrRequeueUnsupported = apperrors.ErrUnsupported.WithMessage("source does not support requeue")

// Source is the origin of inbound messages.
type Source interface {
	// IsEOF reports whether a bounded source is exhausted. Unbounded
	// sources always return false.
	IsEOF() bool

	// GetNextMessage blocks for at most waitAtMost. A nil result means
	// "nothing right now, try again"; fetch problems are reported through
	// stream.Warn.
	GetNextMessage(ctx context.Context, stream StreamContext, waitAtMost time.Duration) *message.Routed

	// Requeue schedules routed for redelivery through this source. Sources
	// that cannot redeliver return ErrRequeueUnsupported.
	Requeue(routed *message.Routed) error

	// MarkComplete acknowledges a value previously returned by
	// GetNextMessage. The pointer identifies the delivery.
	MarkComplete(ctx context.Context, stream StreamContext, routed *message.Routed) error

	Close() error
}
