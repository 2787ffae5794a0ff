package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventflow/internal/aging"
	"eventflow/internal/config"
	"eventflow/internal/engine"
	"eventflow/internal/registry"
	"eventflow/internal/runner"
	"eventflow/internal/source"
	"eventflow/pkg/health"
)

type fixture struct {
	server *Server
	group  *runner.Group
	memory *source.Memory
	health *health.CheckerRegistry
}

func newFixture(t *testing.T, server config.ServerConfig) *fixture {
	t.Helper()

	pipelines := engine.NewPipelineSet(
		engine.NewPipeline("main", engine.Rule{Name: "first"}, engine.Rule{Name: "second"}),
		engine.NewPipeline("retry"),
	)
	memory := source.NewMemory(source.Routing{Pipeline: "main"})
	bulk, err := source.NewBulk("test", source.Routing{Pipeline: "main"}, time.Second, source.SliceLoader())
	require.NoError(t, err)

	group := runner.NewGroup(
		runner.New(engine.NewStream(engine.StreamConfig{Name: "live", Source: memory, Pipelines: pipelines}), 0, nil),
		runner.New(engine.NewStream(engine.StreamConfig{Name: "batch", Source: bulk, Pipelines: pipelines}), 0, nil),
	)

	checks := health.NewCheckerRegistry()
	s := NewServer(Options{
		Server:    server,
		Group:     group,
		Pipelines: pipelines,
		Aging:     []*aging.Aging{aging.New(aging.Config{Name: "slow", OnComplete: "retry"}, nil)},
		Health:    checks,
		Registry:  registry.Default(),
	})
	return &fixture{server: s, group: group, memory: memory, health: checks}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})

	rec := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	f.health.Register(health.NewCheckerFunc("db", func(context.Context) error { return errors.New("down") }))
	rec = f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report health.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, health.StatusUnhealthy, report.Checks["db"].Status)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})
	rec := f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSwaggerUI(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})
	rec := f.do(http.MethodGet, "/swagger/index.html", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "swagger-ui")
}

func TestStreams(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})

	rec := f.do(http.MethodGet, "/api/v1/streams", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var statuses []runner.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, 2)
	assert.Equal(t, "live", statuses[0].Stream)
	assert.Equal(t, runner.StatePending, statuses[0].State)

	rec = f.do(http.MethodGet, "/api/v1/streams/batch", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/streams/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInjectMessage(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})

	rec := f.do(http.MethodPost, "/api/v1/streams/live/messages?pipeline=retry", `{"amount":3}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp injectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "retry", resp.Pipeline)

	require.Equal(t, 1, f.memory.Len())
	live, ok := f.group.Get("live")
	require.True(t, ok)
	routed := f.memory.GetNextMessage(context.Background(), live.Stream(), time.Millisecond)
	require.NotNil(t, routed)
	assert.Equal(t, "retry", routed.Pipeline)
	assert.Equal(t, resp.ID, routed.Message.GetString("id", ""))
	assert.Equal(t, 3, routed.Message.GetInt("amount", 0))

	rec = f.do(http.MethodPost, "/api/v1/streams/live/messages?pipeline=main", `{"id":"given"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "given", resp.ID)
}

func TestInjectMessage_Errors(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"unknown stream", "/api/v1/streams/nope/messages?pipeline=main", `{}`, http.StatusNotFound},
		{"no pipeline", "/api/v1/streams/live/messages", `{}`, http.StatusBadRequest},
		{"not an object", "/api/v1/streams/live/messages?pipeline=main", `[1]`, http.StatusBadRequest},
		{"undefined pipeline", "/api/v1/streams/live/messages?pipeline=ghost", `{}`, http.StatusNotFound},
		{"source without requeue", "/api/v1/streams/batch/messages?pipeline=main", `{}`, http.StatusNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.want, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error_code"])
		})
	}
	assert.Equal(t, 0, f.memory.Len())
}

func TestPipelinesAgingComponents(t *testing.T) {
	f := newFixture(t, config.ServerConfig{})

	rec := f.do(http.MethodGet, "/api/v1/pipelines", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pipelines []pipelineView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pipelines))
	require.Len(t, pipelines, 2)
	assert.Equal(t, pipelineView{Name: "main", Rules: []string{"first", "second"}}, pipelines[0])

	rec = f.do(http.MethodGet, "/api/v1/aging", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var queues []agingView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queues))
	require.Len(t, queues, 1)
	assert.Equal(t, "slow", queues[0].Name)
	assert.Equal(t, "retry", queues[0].OnComplete)
	assert.Equal(t, 0, queues[0].Pending)

	rec = f.do(http.MethodGet, "/api/v1/components", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var types map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &types))
	assert.Contains(t, types["sinks"], "http")
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, config.ServerConfig{RateLimit: config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}})

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/streams", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodGet, "/api/v1/streams", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "").Code)
}
