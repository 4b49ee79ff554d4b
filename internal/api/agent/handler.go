package agent

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-agent-gateway/internal/domain"
	"ai-agent-gateway/internal/service"
)

// Handler handles agent API requests
type Handler struct {
	agentService *service.AgentService
}

// NewHandler creates a new agent handler
func NewHandler(agentService *service.AgentService) *Handler {
	return &Handler{agentService: agentService}
}

// RegisterRoutes registers agent routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/search", h.Search)
	r.POST("/search-and-analyze", h.SearchAndAnalyze)
	r.POST("/analyze", h.Analyze)
	r.POST("/chat", h.Chat)
	r.POST("/chat/stream", h.ChatStream)
	r.GET("/status", h.Status)
	r.GET("/models", h.Models)
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions/:id/messages", h.SessionMessages)
}

// writeError renders the tagged error envelope so clients can branch on the
// failure kind instead of string-sniffing payload text.
func writeError(c *gin.Context, err error) {
	kind := domain.ErrorKind(err)
	status := http.StatusInternalServerError
	switch kind {
	case "invalid_input":
		status = http.StatusBadRequest
	case "not_found":
		status = http.StatusNotFound
	case "model_unavailable", "provider_unavailable":
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": gin.H{"kind": kind, "message": err.Error()}})
}

// Search performs a web search
func (h *Handler) Search(c *gin.Context) {
	var req domain.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	resp, err := h.agentService.Search(c.Request.Context(), req.Query, req.NumResults)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SearchAndAnalyze performs a search then analyzes the results
func (h *Handler) SearchAndAnalyze(c *gin.Context) {
	var req domain.SearchAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	resp, err := h.agentService.SearchAndAnalyze(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Analyze analyzes arbitrary content
func (h *Handler) Analyze(c *gin.Context) {
	var req domain.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	resp, err := h.agentService.Analyze(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Chat handles a chat message
func (h *Handler) Chat(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	resp, err := h.agentService.Chat(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ChatStream handles a streaming chat message (SSE)
func (h *Handler) ChatStream(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	// Validation errors surface as JSON before the stream starts.
	if err := req.Validate(); err != nil {
		writeError(c, err)
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	flusher, _ := c.Writer.(http.Flusher)
	send := func(chunk domain.StreamChunk) {
		data, _ := json.Marshal(chunk)
		fmt.Fprintf(c.Writer, "data: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
	}

	err := h.agentService.ChatStream(c.Request.Context(), &req, func(chunk string) error {
		send(domain.StreamChunk{Chunk: chunk})
		return nil
	})
	if err != nil {
		send(domain.StreamChunk{Error: err.Error()})
		return
	}
	send(domain.StreamChunk{Done: true})
}

// Status reports inference endpoint health
func (h *Handler) Status(c *gin.Context) {
	status := h.agentService.Status(c.Request.Context())
	c.JSON(http.StatusOK, status)
}

// Models lists available models
func (h *Handler) Models(c *gin.Context) {
	resp, err := h.agentService.Models(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreateSession opens a server-side conversation
func (h *Handler) CreateSession(c *gin.Context) {
	session, err := h.agentService.CreateSession()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// SessionMessages returns the stored transcript of a session
func (h *Handler) SessionMessages(c *gin.Context) {
	sessionID := c.Param("id")

	messages, err := h.agentService.SessionMessages(sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "messages": messages})
}
