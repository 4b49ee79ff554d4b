package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"ai-agent-gateway/internal/config"
	"ai-agent-gateway/internal/domain"
	"ai-agent-gateway/pkg/llm"
	"ai-agent-gateway/pkg/websearch"
)

// AgentService orchestrates the gateway operations: web search, analysis,
// chat, and inference endpoint introspection. It holds no per-request state;
// the optional session store and the search cache are the only things that
// outlive a request.
type AgentService struct {
	cfg      *config.Config
	logger   *zap.Logger
	provider llm.Provider
	searcher websearch.WebSearcher
	sessions SessionStore
	cache    *gocache.Cache
}

// SessionStore is the server-side conversation store consumed by the service.
type SessionStore interface {
	Create(session *domain.Session) error
	Get(id string) (*domain.Session, error)
	Touch(id string) error
	CreateMessage(message *domain.StoredMessage) error
	GetMessages(sessionID string) ([]*domain.StoredMessage, error)
}

// NewAgentService creates a new agent service. sessions may be nil, in which
// case session-backed chat is unavailable and history stays client-side.
func NewAgentService(
	cfg *config.Config,
	logger *zap.Logger,
	provider llm.Provider,
	searcher websearch.WebSearcher,
	sessions SessionStore,
) *AgentService {
	var cache *gocache.Cache
	if cfg.Cache.Enabled {
		cache = gocache.New(cfg.Cache.TTL, 10*time.Minute)
	}
	return &AgentService{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		searcher: searcher,
		sessions: sessions,
		cache:    cache,
	}
}

// Search performs a web search. Provider failures and empty result sets
// degrade to the fixed fallback set; callers never see a search error.
func (s *AgentService) Search(ctx context.Context, query string, numResults int) (*domain.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if numResults <= 0 {
		numResults = s.cfg.Search.MaxResults
	}
	if numResults > s.cfg.Search.MaxResults {
		numResults = s.cfg.Search.MaxResults
	}

	resp := &domain.SearchResponse{
		Query:     query,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	cacheKey := fmt.Sprintf("%s|%d", query, numResults)
	if s.cache != nil {
		if cached, found := s.cache.Get(cacheKey); found {
			resp.Results = cached.([]domain.SearchResult)
			return resp, nil
		}
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.cfg.Search.Timeout)
	defer cancel()

	raw, err := s.searcher.Search(searchCtx, query, numResults)
	if err != nil || len(raw) == 0 {
		if err != nil {
			s.logger.Warn("search provider failed, serving fallback results",
				zap.String("query", query), zap.Error(err))
		} else {
			s.logger.Warn("search provider returned no results, serving fallback results",
				zap.String("query", query))
		}
		fb := fallbackResults(query)
		if len(fb) > numResults {
			fb = fb[:numResults]
		}
		resp.Results = fb
		resp.Degraded = true
		return resp, nil
	}

	results := make([]domain.SearchResult, len(raw))
	for i, r := range raw {
		results[i] = domain.SearchResult{
			Title:   r.Title,
			Snippet: r.Snippet,
			Source:  r.Source,
			URL:     r.URL,
		}
	}
	resp.Results = results

	// Only genuine provider responses are worth caching.
	if s.cache != nil {
		s.cache.Set(cacheKey, results, gocache.DefaultExpiration)
	}

	return resp, nil
}

// Analyze runs a single inference call over arbitrary content.
func (s *AgentService) Analyze(ctx context.Context, req *domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrInvalidInput)
	}

	analysisType, systemPrompt := analysisSystemPrompt(req.AnalysisType)
	if req.AnalysisPrompt != "" {
		systemPrompt = req.AnalysisPrompt
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Please analyze this content: %s", content)},
	}

	analysis, err := s.provider.Chat(ctx, messages)
	if err != nil {
		s.logger.Error("analysis inference failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}

	return &domain.AnalyzeResponse{
		Content:      content,
		AnalysisType: analysisType,
		Analysis:     analysis,
		Timestamp:    time.Now().Format(time.RFC3339),
	}, nil
}

// SearchAndAnalyze composes Search then one inference call over the results.
// A failed search still produces an analysis over the fallback set.
func (s *AgentService) SearchAndAnalyze(ctx context.Context, req *domain.SearchAnalyzeRequest) (*domain.SearchAnalyzeResponse, error) {
	searchResp, err := s.Search(ctx, req.Query, 0)
	if err != nil {
		return nil, err
	}

	analysisPrompt := req.AnalysisPrompt
	if analysisPrompt == "" {
		analysisPrompt = defaultAnalysisPrompt
	}

	contextBlock := formatSearchContext(searchResp.Query, searchResp.Results)
	messages := []llm.Message{
		{Role: "system", Content: searchAnalysisSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("%s\n\n%s", analysisPrompt, contextBlock)},
	}

	analysis, err := s.provider.Chat(ctx, messages)
	if err != nil {
		s.logger.Error("search analysis inference failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}

	return &domain.SearchAnalyzeResponse{
		Query:         searchResp.Query,
		SearchResults: searchResp.Results,
		Analysis:      analysis,
		Degraded:      searchResp.Degraded,
		Timestamp:     time.Now().Format(time.RFC3339),
	}, nil
}

// Chat forwards one chat turn to the model and returns the reply. With a
// session id the turn pair is persisted server-side and stored history wins
// over the client-sent history.
func (s *AgentService) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	history, err := s.prepareChat(req)
	if err != nil {
		return nil, err
	}

	messages := buildChatMessages(req.SystemPrompt, history, req.Message, s.cfg.Chat.HistoryBudget)

	reply, err := s.provider.Chat(ctx, messages)
	if err != nil {
		s.logger.Error("chat inference failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}

	if req.SessionID != "" {
		s.persistTurn(req.SessionID, req.Message, reply)
	}

	return &domain.ChatResponse{
		SessionID: req.SessionID,
		Message:   req.Message,
		Response:  reply,
		Timestamp: time.Now().Format(time.RFC3339),
	}, nil
}

// ChatStream is Chat with the reply streamed chunk by chunk through fn.
func (s *AgentService) ChatStream(ctx context.Context, req *domain.ChatRequest, fn func(chunk string) error) error {
	history, err := s.prepareChat(req)
	if err != nil {
		return err
	}

	messages := buildChatMessages(req.SystemPrompt, history, req.Message, s.cfg.Chat.HistoryBudget)

	var reply strings.Builder
	err = s.provider.ChatStream(ctx, messages, func(chunk string) error {
		reply.WriteString(chunk)
		return fn(chunk)
	})
	if err != nil {
		s.logger.Error("streaming chat inference failed", zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}

	if req.SessionID != "" {
		s.persistTurn(req.SessionID, req.Message, reply.String())
	}
	return nil
}

// prepareChat validates the request and resolves the effective history.
func (s *AgentService) prepareChat(req *domain.ChatRequest) ([]domain.ChatMessage, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}

	if req.SessionID == "" {
		return req.ConversationHistory, nil
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("%w: session store not configured", domain.ErrNotFound)
	}

	session, err := s.sessions.Get(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, req.SessionID)
	}

	stored, err := s.sessions.GetMessages(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session messages: %w", err)
	}
	history := make([]domain.ChatMessage, len(stored))
	for i, m := range stored {
		history[i] = domain.ChatMessage{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.CreatedAt.Format(time.RFC3339),
		}
	}
	return history, nil
}

// persistTurn best-effort stores a user/assistant turn pair. Persistence
// failures are logged, never surfaced: the reply already exists.
func (s *AgentService) persistTurn(sessionID, userMsg, assistantMsg string) {
	if s.sessions == nil {
		return
	}
	for _, m := range []*domain.StoredMessage{
		{SessionID: sessionID, Role: "user", Content: userMsg},
		{SessionID: sessionID, Role: "assistant", Content: assistantMsg},
	} {
		if err := s.sessions.CreateMessage(m); err != nil {
			s.logger.Warn("failed to persist chat message",
				zap.String("session_id", sessionID), zap.Error(err))
			return
		}
	}
	if err := s.sessions.Touch(sessionID); err != nil {
		s.logger.Warn("failed to refresh session", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// CreateSession opens a new server-side conversation.
func (s *AgentService) CreateSession() (*domain.Session, error) {
	if s.sessions == nil {
		return nil, fmt.Errorf("%w: session store not configured", domain.ErrNotFound)
	}
	session := &domain.Session{}
	if err := s.sessions.Create(session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// SessionMessages returns the stored transcript of a session.
func (s *AgentService) SessionMessages(sessionID string) ([]*domain.StoredMessage, error) {
	if s.sessions == nil {
		return nil, fmt.Errorf("%w: session store not configured", domain.ErrNotFound)
	}
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	return s.sessions.GetMessages(sessionID)
}

// Status probes the inference endpoint. Unreachability is a valid result,
// never an error.
func (s *AgentService) Status(ctx context.Context) *domain.AgentStatus {
	timeout := s.cfg.Ollama.ProbeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	models, err := s.provider.ListModels(probeCtx)
	if err != nil {
		return &domain.AgentStatus{
			Status: "unhealthy",
			Detail: err.Error(),
		}
	}

	status := &domain.AgentStatus{
		Status:          "healthy",
		AvailableModels: models,
	}
	for _, m := range models {
		if m == s.cfg.Ollama.Model {
			status.ModelAvailable = true
			break
		}
	}
	return status
}

// Models lists the models known to the inference endpoint.
func (s *AgentService) Models(ctx context.Context) (*domain.ModelsResponse, error) {
	models, err := s.provider.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	return &domain.ModelsResponse{Models: models, Connected: true}, nil
}
