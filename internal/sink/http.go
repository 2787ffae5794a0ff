package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"eventflow/internal/constants"
	"eventflow/internal/engine"
	"eventflow/internal/logger"
	"eventflow/pkg/circuitbreaker"
	"eventflow/pkg/message"
	"eventflow/pkg/metrics"
	"eventflow/pkg/retry"
)

type HTTPConfig struct {
	URL     string            `mapstructure:"url"`
	Method  string            `mapstructure:"method"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout"`
	Retry   retry.Policy      `mapstructure:"retry"`
}

// HTTP sends each message as a JSON request body. Server errors and
// transport failures are retried; client errors are not. All attempts go
// through a circuit breaker.
type HTTP struct {
	client  *http.Client
	url     string
	method  string
	headers map[string]string
	policy  retry.Policy
	breaker *circuitbreaker.Wrapper
	reporter
}

func NewHTTP(name string, cfg HTTPConfig, breaker circuitbreaker.Config, log logger.Logger) (*HTTP, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("http sink %s needs a url", name)
	}
	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	if log == nil {
		log = logger.NopLogger()
	}
	breaker.Name = "sink." + name
	return &HTTP{
		client:   &http.Client{Timeout: timeout},
		url:      cfg.URL,
		method:   method,
		headers:  cfg.Headers,
		policy:   cfg.Retry,
		breaker:  circuitbreaker.NewWrapper(breaker),
		reporter: reporter{name: name, log: log},
	}, nil
}

func (h *HTTP) Init(context.Context) error {
	return nil
}

func (h *HTTP) Process(mc *engine.MessageContext) {
	h.report(mc, h.send(mc.Context(), mc.Message()))
}

func (h *HTTP) ProcessMessage(msg *message.Message) {
	h.report(nil, h.send(context.Background(), msg))
}

func (h *HTTP) send(ctx context.Context, msg *message.Message) error {
	url := msg.EvalExpression(h.url)
	body := []byte(msg.ToLine())

	return retry.RetryWithCallback(ctx, h.policy, func() error {
		_, err := h.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
			return nil, h.do(ctx, url, body)
		})
		return err
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues("sink."+h.name, url).Inc()
		h.log.WarnwCtx(ctx, "Retrying http delivery",
			"sink", h.name,
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
		)
	})
}

func (h *HTTP) do(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, h.method, url, bytes.NewReader(body))
	if err != nil {
		return retry.Fatal(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= constants.HTTPStatusOKMin && resp.StatusCode < constants.HTTPStatusOKMax {
		return nil
	}
	err = fmt.Errorf("endpoint returned status: %d", resp.StatusCode)
	if resp.StatusCode < http.StatusInternalServerError && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Fatal(err)
	}
	return err
}

func (h *HTTP) Flush(context.Context) error {
	return nil
}

func (h *HTTP) Close(context.Context) error {
	h.client.CloseIdleConnections()
	return nil
}
