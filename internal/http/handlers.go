package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mcptools/bashserver/internal/providers/shell"
	"github.com/mcptools/bashserver/internal/service"
	"github.com/mcptools/bashserver/internal/session"
	"github.com/mcptools/bashserver/internal/shared/id"
	"github.com/mcptools/bashserver/internal/types"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	registry       *service.Registry
	sessionManager *session.Manager
}

// NewHandlers creates a new handler set
func NewHandlers(registry *service.Registry, sessionManager *session.Manager) *Handlers {
	return &Handlers{
		registry:       registry,
		sessionManager: sessionManager,
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "bashserver",
		"version": shell.Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"active_sessions":  h.sessionManager.Count(),
		"service_registry": h.registry.Stats(),
	})
}

// ListServices lists registered providers and their tools
func (h *Handlers) ListServices(c *gin.Context) {
	services := h.registry.List(nil)
	c.JSON(http.StatusOK, gin.H{
		"services": services,
		"count":    len(services),
	})
}

// ListSessions lists live shell sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	summaries := h.sessionManager.List()
	c.JSON(http.StatusOK, gin.H{
		"sessions": summaries,
		"count":    len(summaries),
	})
}

// ExecuteService executes a service tool
func (h *Handlers) ExecuteService(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requestID := id.NewRequestID().String()
	ctx := &types.Context{RequestID: &requestID}

	result, err := h.registry.Execute(c.Request.Context(), req.ToolID, req.Params, ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
