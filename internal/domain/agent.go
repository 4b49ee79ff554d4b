package domain

import (
	"strings"
	"time"
)

// SearchResult is a single ranked result from the web search provider.
type SearchResult struct {
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Fallback bool   `json:"fallback,omitempty"`
}

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role      string `json:"role"` // user, assistant
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"` // ISO-8601
}

// Session is a server-side conversation store entry. Sessions are optional:
// clients that resend their own history never create one.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StoredMessage is a persisted chat turn belonging to a session.
type StoredMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AgentStatus reports inference endpoint reachability.
type AgentStatus struct {
	Status          string   `json:"status"` // healthy, unhealthy
	Detail          string   `json:"detail,omitempty"`
	AvailableModels []string `json:"available_models,omitempty"`
	ModelAvailable  bool     `json:"model_available"`
}

// SearchRequest asks the gateway for web results.
type SearchRequest struct {
	Query      string `json:"query" binding:"required"`
	NumResults int    `json:"num_results"`
}

// SearchResponse wraps a result set. Degraded marks fallback content.
type SearchResponse struct {
	Query     string         `json:"query"`
	Results   []SearchResult `json:"results"`
	Degraded  bool           `json:"degraded"`
	Timestamp string         `json:"timestamp"`
}

// AnalyzeRequest asks the model to analyze arbitrary content.
type AnalyzeRequest struct {
	Content        string `json:"content" binding:"required"`
	AnalysisPrompt string `json:"analysis_prompt"`
	AnalysisType   string `json:"analysis_type"`
}

// AnalyzeResponse carries the model's analysis text.
type AnalyzeResponse struct {
	Content      string `json:"content"`
	AnalysisType string `json:"analysis_type"`
	Analysis     string `json:"analysis"`
	Timestamp    string `json:"timestamp"`
}

// SearchAnalyzeRequest drives the combined search-then-analyze operation.
type SearchAnalyzeRequest struct {
	Query          string `json:"query" binding:"required"`
	AnalysisPrompt string `json:"analysis_prompt"`
}

// SearchAnalyzeResponse pairs the result set with the model's reading of it.
type SearchAnalyzeResponse struct {
	Query         string         `json:"query"`
	SearchResults []SearchResult `json:"search_results"`
	Analysis      string         `json:"analysis"`
	Degraded      bool           `json:"degraded"`
	Timestamp     string         `json:"timestamp"`
}

// ChatRequest is one chat submission. ConversationHistory is
// client-authoritative; SessionID opts into the server-side store.
type ChatRequest struct {
	Message             string        `json:"message" binding:"required"`
	ConversationHistory []ChatMessage `json:"conversation_history"`
	SystemPrompt        string        `json:"system_prompt"`
	SessionID           string        `json:"session_id,omitempty"`
}

// Validate rejects blank messages before any outbound call is made.
func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrInvalidInput
	}
	return nil
}

// ChatResponse is the assistant's reply to one chat submission.
type ChatResponse struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

// StreamChunk is one SSE payload of a streaming chat response.
type StreamChunk struct {
	Chunk string `json:"chunk,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
}

// ModelsResponse lists models known to the inference endpoint.
type ModelsResponse struct {
	Models    []string `json:"models"`
	Connected bool     `json:"connected"`
}
