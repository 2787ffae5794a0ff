package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"eventflow/internal/aging"
	"eventflow/internal/engine"
	"eventflow/internal/logger"
	"eventflow/internal/registry"
	"eventflow/internal/runner"
	apperrors "eventflow/pkg/errors"
	"eventflow/pkg/health"
	"eventflow/pkg/message"
	"eventflow/pkg/ratelimit"
)

type Handler struct {
	group     *runner.Group
	pipelines engine.PipelineSet
	aging     []*aging.Aging
	health    *health.CheckerRegistry
	registry  *registry.Registry
	limiter   *ratelimit.Limiter
	logger    logger.Logger
}

func NewHandler(opts Options, limiter *ratelimit.Limiter) *Handler {
	return &Handler{
		group:     opts.Group,
		pipelines: opts.Pipelines,
		aging:     opts.Aging,
		health:    opts.Health,
		registry:  opts.Registry,
		limiter:   limiter,
		logger:    opts.Logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	if h.limiter != nil {
		v1.Use(ratelimit.Middleware(h.limiter))
	}
	{
		streams := v1.Group("/streams")
		{
			streams.GET("", h.ListStreams)
			streams.GET("/:name", h.GetStream)
			streams.POST("/:name/messages", h.InjectMessage)
		}
		v1.GET("/pipelines", h.ListPipelines)
		v1.GET("/aging", h.ListAging)
		v1.GET("/components", h.ListComponents)
	}
}

func (h *Handler) HandleError(c *gin.Context, err error) {
	status := apperrors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, apperrors.ToErrorResponse(err))
}

// Health godoc
// @Summary      Engine health
// @Description  Run every registered checker. Unhealthy reports answer 503
// @Tags         health
// @Produce      json
// @Success      200  {object}  health.Health
// @Failure      503  {object}  health.Health
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	report := h.health.Check(c.Request.Context())
	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

// ListStreams godoc
// @Summary      List streams
// @Description  Get the run status of every enabled stream
// @Tags         streams
// @Produce      json
// @Success      200  {array}  runner.Status
// @Router       /api/v1/streams [get]
func (h *Handler) ListStreams(c *gin.Context) {
	c.JSON(http.StatusOK, h.group.Statuses())
}

// GetStream godoc
// @Summary      Get a stream
// @Tags         streams
// @Produce      json
// @Param        name  path      string  true  "Stream name"
// @Success      200   {object}  runner.Status
// @Failure      404   {object}  map[string]interface{}
// @Router       /api/v1/streams/{name} [get]
func (h *Handler) GetStream(c *gin.Context) {
	r, ok := h.group.Get(c.Param("name"))
	if !ok {
		h.HandleError(c, apperrors.ErrNotFound.WithMessage("stream not found").WithDetail("stream", c.Param("name")))
		return
	}
	c.JSON(http.StatusOK, r.Status())
}

type injectResponse struct {
	ID       string `json:"id"`
	Stream   string `json:"stream"`
	Pipeline string `json:"pipeline"`
}

// InjectMessage hands a JSON document to a stream through its source's
// requeue path. The target pipeline comes from the pipeline query
// parameter. Documents without an id get a generated one.
//
// @Summary      Inject a message
// @Tags         streams
// @Accept       json
// @Produce      json
// @Param        name      path      string                  true  "Stream name"
// @Param        pipeline  query     string                  true  "Target pipeline"
// @Param        message   body      map[string]interface{}  true  "Message document"
// @Success      202       {object}  injectResponse
// @Failure      400       {object}  map[string]interface{}
// @Failure      404       {object}  map[string]interface{}
// @Failure      501       {object}  map[string]interface{}
// @Router       /api/v1/streams/{name}/messages [post]
func (h *Handler) InjectMessage(c *gin.Context) {
	name := c.Param("name")
	r, ok := h.group.Get(name)
	if !ok {
		h.HandleError(c, apperrors.ErrNotFound.WithMessage("stream not found").WithDetail("stream", name))
		return
	}

	pipeline := c.Query("pipeline")
	if pipeline == "" {
		h.HandleError(c, apperrors.ErrValidation.WithMessage("pipeline query parameter is required"))
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		h.HandleError(c, apperrors.ErrValidation.WithMessage("unreadable body").WithCause(err))
		return
	}
	msg, err := message.Parse(body)
	if err != nil {
		h.HandleError(c, apperrors.ErrValidation.WithMessage("body must be a JSON object").WithCause(err))
		return
	}

	id, ok := msg.GetText("id")
	if !ok || id == "" {
		id = uuid.NewString()
		msg.PutValue("id", id)
	}

	if err := r.Stream().Requeue(message.NewRouted(msg, pipeline)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.InfowCtx(c.Request.Context(), "Message injected", "stream", name, "pipeline", pipeline, "id", id)
	c.JSON(http.StatusAccepted, injectResponse{ID: id, Stream: name, Pipeline: pipeline})
}

type pipelineView struct {
	Name  string   `json:"name"`
	Rules []string `json:"rules"`
}

// ListPipelines godoc
// @Summary      List pipelines
// @Description  Get every pipeline with the names of its rules
// @Tags         pipelines
// @Produce      json
// @Success      200  {array}  pipelineView
// @Router       /api/v1/pipelines [get]
func (h *Handler) ListPipelines(c *gin.Context) {
	out := make([]pipelineView, 0, len(h.pipelines))
	for _, name := range h.pipelines.Names() {
		p, _ := h.pipelines.Get(name)
		view := pipelineView{Name: name, Rules: make([]string, 0, len(p.Rules()))}
		for _, r := range p.Rules() {
			view.Rules = append(view.Rules, r.Name)
		}
		out = append(out, view)
	}
	c.JSON(http.StatusOK, out)
}

type agingView struct {
	Name       string        `json:"name"`
	OnComplete string        `json:"on_complete"`
	Pending    int           `json:"pending"`
	Entries    []aging.Entry `json:"entries"`
}

// ListAging godoc
// @Summary      List aging queues
// @Description  Get every aging queue with its pending entries
// @Tags         aging
// @Produce      json
// @Success      200  {array}  agingView
// @Router       /api/v1/aging [get]
func (h *Handler) ListAging(c *gin.Context) {
	out := make([]agingView, 0, len(h.aging))
	for _, a := range h.aging {
		entries := a.Pending()
		out = append(out, agingView{
			Name:       a.Name(),
			OnComplete: a.OnComplete(),
			Pending:    len(entries),
			Entries:    entries,
		})
	}
	c.JSON(http.StatusOK, out)
}

// ListComponents godoc
// @Summary      List component types
// @Description  Get the registered source, filter, processor and sink types
// @Tags         components
// @Produce      json
// @Success      200  {object}  map[string][]string
// @Router       /api/v1/components [get]
func (h *Handler) ListComponents(c *gin.Context) {
	if h.registry == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, h.registry.Types())
}
