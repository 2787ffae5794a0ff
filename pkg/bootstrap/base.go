package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"eventflow/internal/config"
	"eventflow/internal/logger"
)

type shutdownStep struct {
	name string
	fn   func(ctx context.Context) error
}

// Base carries what every command shares: configuration, logger and the
// ordered list of shutdown steps.
type Base struct {
	Config *config.Config
	Logger logger.Logger

	mu    sync.Mutex
	steps []shutdownStep
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	if log == nil {
		log = logger.NopLogger()
	}
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// OnShutdown registers fn to run during Shutdown. Steps run in reverse
// registration order, so resources close before what they depend on.
func (b *Base) OnShutdown(name string, fn func(ctx context.Context) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steps = append(b.steps, shutdownStep{name: name, fn: fn})
}

// Shutdown runs every registered step once, even when earlier ones fail.
func (b *Base) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	steps := b.steps
	b.steps = nil
	b.mu.Unlock()

	b.Logger.InfowCtx(ctx, "Shutting down application...")

	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		if err := step.fn(ctx); err != nil {
			b.Logger.ErrorwCtx(ctx, "Shutdown step failed", "step", step.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	b.Logger.InfowCtx(ctx, "Application exited successfully")
	return nil
}
