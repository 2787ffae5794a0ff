package sink

import (
	"eventflow/internal/engine"
	"eventflow/internal/logger"
	"eventflow/pkg/metrics"
)

// reporter records the outcome of one delivery. Failures go through the
// message context when there is one, so they count as stream warnings.
type reporter struct {
	name string
	log  logger.Logger
}

func (r reporter) report(mc *engine.MessageContext, err error) {
	if err == nil {
		metrics.IncSinkDelivery(r.name, "success")
		if mc != nil {
			mc.Metrics().Counter("sink", r.name, "delivered").Inc()
		}
		return
	}

	metrics.IncSinkDelivery(r.name, "error")
	if mc != nil {
		mc.Metrics().Counter("sink", r.name, "failed").Inc()
		mc.Warn("Sink delivery failed", "sink", r.name, "error", err)
		return
	}
	r.log.Warnw("Sink delivery failed", "sink", r.name, "error", err)
}

func streamName(mc *engine.MessageContext) string {
	if mc.Stream() == nil {
		return ""
	}
	return mc.Stream().Name()
}
