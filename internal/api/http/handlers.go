package http

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/logging"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

// DefaultInvokeTimeout bounds a command when the request sets none.
const DefaultInvokeTimeout = 30 * time.Second

// Controller is the node surface the API drives.
type Controller interface {
	ID() string
	Name() string
	CommandNames() []string
	Invoke(ctx context.Context, inv types.Invocation) (any, error)
	Components(ctx context.Context) ([]types.Component, error)
}

// InvokeRequest is the body of POST /invoke.
type InvokeRequest struct {
	Command   string         `json:"command" binding:"required"`
	Arguments []string       `json:"arguments"`
	Options   map[string]any `json:"options"`
	// Timeout is a Go duration string such as "5s".
	Timeout string `json:"timeout"`
}

// SendRequest is the body of POST /components/:label/send.
type SendRequest struct {
	Message string `json:"message" binding:"required"`
}

// Handlers contains all HTTP handlers
type Handlers struct {
	node    Controller
	tracer  *tracing.Tracer
	logger  *logging.Logger
	started time.Time
}

// NewHandlers creates a new handler set. tracer may be nil.
func NewHandlers(node Controller, tracer *tracing.Tracer, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		node:    node,
		tracer:  tracer,
		logger:  logger.Named("api"),
		started: time.Now(),
	}
}

// Register mounts the control routes on r.
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/health", h.Health)
	r.GET("/commands", h.Commands)
	r.POST("/invoke", h.Invoke)
	r.GET("/status", h.Status)
	r.GET("/components", h.ListComponents)
	r.DELETE("/components/:label", h.Kill)
	r.POST("/components/:label/send", h.Send)
}

// Health handles liveness checks
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"node":   h.node.Name(),
		"id":     h.node.ID(),
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// Commands lists the dispatcher's command names
func (h *Handlers) Commands(c *gin.Context) {
	names := h.node.CommandNames()
	sort.Strings(names)
	c.JSON(http.StatusOK, gin.H{"commands": names})
}

// Invoke runs one command
func (h *Handlers) Invoke(c *gin.Context) {
	var req InvokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error(), "code": types.CodeSyntax})
		return
	}
	timeout := DefaultInvokeTimeout
	if req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeout " + req.Timeout, "code": types.CodeSyntax})
			return
		}
		timeout = d
	}

	words := append(strings.Fields(req.Command), req.Arguments...)
	result, inv, err := h.run(c.Request.Context(), words, types.Settings(req.Options), timeout)
	if err != nil {
		h.fail(c, inv.FullName, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"command": inv.FullName, "result": render(result)})
}

// Status returns the aggregated node status in the requested encoding
func (h *Handlers) Status(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	opts := types.Settings{}
	opts.Put("status.format", format)

	result, _, err := h.run(c.Request.Context(), []string{"status"}, opts, DefaultInvokeTimeout)
	if err != nil {
		h.fail(c, "status", err)
		return
	}
	doc, _ := result.(string)
	contentType := "application/json"
	if format == "yaml" {
		contentType = "application/yaml"
	}
	c.Data(http.StatusOK, contentType, []byte(doc))
}

// ListComponents lists registered components by label
func (h *Handlers) ListComponents(c *gin.Context) {
	comps, err := h.node.Components(c.Request.Context())
	if err != nil {
		h.fail(c, "components", err)
		return
	}
	infos := make([]types.ComponentInfo, 0, len(comps))
	for _, comp := range comps {
		infos = append(infos, comp.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Label < infos[j].Label })
	c.JSON(http.StatusOK, gin.H{"components": infos, "count": len(infos)})
}

// Kill terminates one component
func (h *Handlers) Kill(c *gin.Context) {
	label := c.Param("label")
	result, _, err := h.run(c.Request.Context(), []string{"kill", label}, nil, DefaultInvokeTimeout)
	if err != nil {
		h.fail(c, "kill", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"label": label, "result": render(result)})
}

// Send delivers an atom to one component and returns its reply
func (h *Handlers) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error(), "code": types.CodeSyntax})
		return
	}
	label := c.Param("label")
	result, _, err := h.run(c.Request.Context(), []string{"send", label, req.Message}, nil, DefaultInvokeTimeout)
	if err != nil {
		h.fail(c, "send", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"label": label, "result": render(result)})
}

func (h *Handlers) run(ctx context.Context, words []string, opts types.Settings, timeout time.Duration) (any, types.Invocation, error) {
	inv, err := types.ParseInvocation(words, opts, h.node.CommandNames())
	if err != nil {
		return nil, inv, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if h.tracer != nil {
		var span *tracing.Span
		span, ctx = h.tracer.StartSpan(ctx, "invoke "+inv.FullName)
		defer func() { h.tracer.Submit(span) }()
		span.SetTag("command", inv.FullName)
		result, err := h.node.Invoke(ctx, inv)
		span.SetError(err)
		return result, inv, err
	}
	result, err := h.node.Invoke(ctx, inv)
	return result, inv, err
}

func (h *Handlers) fail(c *gin.Context, command string, err error) {
	code := types.CodeOf(err)
	if code == types.CodeUnspecified && errors.Is(err, context.DeadlineExceeded) {
		code = types.CodeRequestTimeout
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("Command failed", zap.String("command", command), zap.String("code", string(code)), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func statusFor(code types.Code) int {
	switch code {
	case types.CodeSyntax:
		return http.StatusBadRequest
	case types.CodeUnknownComponent:
		return http.StatusNotFound
	case types.CodeDuplicateLabel:
		return http.StatusConflict
	case types.CodeInvalidComponent:
		return http.StatusUnprocessableEntity
	case types.CodeRequestTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// render turns command results into JSON-friendly values.
func render(v any) any {
	switch v := v.(type) {
	case *actor.Actor:
		return v.String()
	case actor.Atom:
		return string(v)
	case []byte:
		return string(v)
	case error:
		return v.Error()
	default:
		return v
	}
}
