package processor

import (
	"fmt"

	"golang.org/x/time/rate"

	"eventflow/internal/engine"
)

const (
	ThrottleWait = "wait"
	ThrottleDrop = "drop"
)

// Throttle limits the rate at which messages pass. In wait mode the
// traversal blocks until a token is available; in drop mode messages over
// the limit end their traversal.
type Throttle struct {
	limiter *rate.Limiter
	mode    string
}

func NewThrottle(rps float64, burst int, mode string) (*Throttle, error) {
	if rps <= 0 {
		return nil, fmt.Errorf("throttle rate must be positive")
	}
	if burst <= 0 {
		burst = 1
	}
	switch mode {
	case "":
		mode = ThrottleWait
	case ThrottleWait, ThrottleDrop:
	default:
		return nil, fmt.Errorf("unknown throttle mode %q", mode)
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(rps), burst), mode: mode}, nil
}

func (p *Throttle) Process(mc *engine.MessageContext) {
	if p.mode == ThrottleDrop {
		if !p.limiter.Allow() {
			mc.Metrics().Counter("processor", "throttle", "dropped").Inc()
			mc.Stop()
		}
		return
	}

	if err := p.limiter.Wait(mc.Context()); err != nil {
		mc.Warn("throttle wait interrupted, message dropped", "error", err)
		mc.Stop()
	}
}
