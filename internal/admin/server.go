// Package admin exposes the engine's HTTP surface: health, metrics and a
// small JSON API over streams, pipelines and aging queues.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventflow/internal/aging"
	"eventflow/internal/config"
	"eventflow/internal/engine"
	"eventflow/internal/logger"
	"eventflow/internal/registry"
	"eventflow/internal/runner"
	"eventflow/pkg/health"
	"eventflow/pkg/middleware"
	"eventflow/pkg/ratelimit"
	"eventflow/pkg/tracing"
)

type Options struct {
	Server      config.ServerConfig
	ServiceName string
	Group       *runner.Group
	Pipelines   engine.PipelineSet
	Aging       []*aging.Aging
	Health      *health.CheckerRegistry
	Registry    *registry.Registry
	Logger      logger.Logger
}

type Server struct {
	opts    Options
	router  *gin.Engine
	limiter *ratelimit.Limiter
	server  *http.Server
	log     logger.Logger
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.NopLogger()
	}
	if opts.Health == nil {
		opts.Health = health.NewCheckerRegistry()
	}
	if opts.Group == nil {
		opts.Group = runner.NewGroup()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.Recovery(opts.Logger))
	router.Use(middleware.RequestID())
	router.Use(tracing.GinMiddleware(opts.ServiceName))
	router.Use(middleware.Logger(opts.Logger))

	s := &Server{opts: opts, router: router, log: opts.Logger}
	if opts.Server.RateLimit.Enabled {
		s.limiter = ratelimit.NewLimiter(ratelimit.FromSettings(opts.Server.RateLimit))
	}

	NewHandler(opts, s.limiter).RegisterRoutes(router)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Server.Port),
		Handler:      router,
		ReadTimeout:  opts.Server.ReadTimeout,
		WriteTimeout: opts.Server.WriteTimeout,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done or the listener fails. Shutdown stops the
// listener.
func (s *Server) Run(ctx context.Context) error {
	if s.limiter != nil {
		go s.limiter.RunCleanup(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfowCtx(ctx, "Admin server starting", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("admin server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
