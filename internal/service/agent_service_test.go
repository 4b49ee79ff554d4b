package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ai-agent-gateway/internal/config"
	"ai-agent-gateway/internal/domain"
	"ai-agent-gateway/pkg/llm"
	"ai-agent-gateway/pkg/websearch/models"
)

type fakeLLM struct {
	reply     string
	chunks    []string
	models    []string
	err       error
	lastChat  []llm.Message
	chatCalls int
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	f.chatCalls++
	f.lastChat = history
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) ChatStream(ctx context.Context, history []llm.Message, fn func(string) error, opts ...llm.Option) error {
	f.chatCalls++
	f.lastChat = history
	if f.err != nil {
		return f.err
	}
	for _, c := range f.chunks {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeLLM) ListModels(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.models, nil
}

func (f *fakeLLM) Ping(ctx context.Context) error { return f.err }

type fakeSearcher struct {
	results []models.Result
	err     error
	calls   int
}

func (f *fakeSearcher) Search(ctx context.Context, q string, k int) ([]models.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > k {
		return f.results[:k], nil
	}
	return f.results, nil
}

type memorySessions struct {
	sessions map[string]*domain.Session
	messages map[string][]*domain.StoredMessage
}

func newMemorySessions() *memorySessions {
	return &memorySessions{
		sessions: map[string]*domain.Session{},
		messages: map[string][]*domain.StoredMessage{},
	}
}

func (m *memorySessions) Create(s *domain.Session) error {
	if s.ID == "" {
		s.ID = "sess-1"
	}
	now := time.Now()
	s.CreatedAt, s.UpdatedAt, s.ExpiresAt = now, now, now.Add(time.Hour)
	m.sessions[s.ID] = s
	return nil
}

func (m *memorySessions) Get(id string) (*domain.Session, error) { return m.sessions[id], nil }
func (m *memorySessions) Touch(id string) error                  { return nil }

func (m *memorySessions) CreateMessage(msg *domain.StoredMessage) error {
	msg.CreatedAt = time.Now()
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], msg)
	return nil
}

func (m *memorySessions) GetMessages(sessionID string) ([]*domain.StoredMessage, error) {
	return m.messages[sessionID], nil
}

func testConfig() *config.Config {
	return &config.Config{
		Ollama: config.OllamaConfig{Model: "llama3.2:latest"},
		Search: config.SearchConfig{MaxResults: 5, Timeout: time.Second},
		Chat:   config.ChatConfig{HistoryBudget: 16000},
	}
}

func newTestService(cfg *config.Config, provider llm.Provider, searcher *fakeSearcher, sessions SessionStore) *AgentService {
	return NewAgentService(cfg, zap.NewNop(), provider, searcher, sessions)
}

func TestSearchReturnsProviderResults(t *testing.T) {
	searcher := &fakeSearcher{results: []models.Result{
		{Title: "Paris", URL: "https://en.wikipedia.org/wiki/Paris", Snippet: "Capital of France", Source: "en.wikipedia.org"},
		{Title: "France", URL: "https://en.wikipedia.org/wiki/France", Snippet: "Country in Europe", Source: "en.wikipedia.org"},
	}}
	svc := newTestService(testConfig(), &fakeLLM{}, searcher, nil)

	resp, err := svc.Search(context.Background(), "capital of France", 5)
	require.NoError(t, err)
	assert.False(t, resp.Degraded)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Paris", resp.Results[0].Title)
	assert.False(t, resp.Results[0].Fallback)
}

func TestSearchClampsNumResults(t *testing.T) {
	results := make([]models.Result, 10)
	for i := range results {
		results[i] = models.Result{Title: "r", URL: "https://example.org", Snippet: "s", Source: "example.org"}
	}
	searcher := &fakeSearcher{results: results}
	svc := newTestService(testConfig(), &fakeLLM{}, searcher, nil)

	resp, err := svc.Search(context.Background(), "query", 100)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(resp.Results), 5)
}

func TestSearchFallbackRespectsNumResults(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("connection refused")}
	svc := newTestService(testConfig(), &fakeLLM{}, searcher, nil)

	resp, err := svc.Search(context.Background(), "capital of France", 1)
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.LessOrEqual(t, len(resp.Results), 1)
}

func TestSearchDegradesToFallbackOnProviderError(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("connection refused")}
	svc := newTestService(testConfig(), &fakeLLM{}, searcher, nil)

	resp, err := svc.Search(context.Background(), "anything", 5)
	require.NoError(t, err, "provider failure must never surface as an error")
	assert.True(t, resp.Degraded)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		assert.True(t, r.Fallback)
		assert.NotEmpty(t, r.Title)
	}
}

func TestSearchDegradesToFallbackOnEmptyResults(t *testing.T) {
	svc := newTestService(testConfig(), &fakeLLM{}, &fakeSearcher{}, nil)

	resp, err := svc.Search(context.Background(), "obscure query", 5)
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.NotEmpty(t, resp.Results)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	searcher := &fakeSearcher{}
	svc := newTestService(testConfig(), &fakeLLM{}, searcher, nil)

	_, err := svc.Search(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, searcher.calls, "no outbound call for invalid input")
}

func TestSearchCachesProviderResults(t *testing.T) {
	cfg := testConfig()
	cfg.Cache = config.CacheConfig{Enabled: true, TTL: time.Minute}
	searcher := &fakeSearcher{results: []models.Result{{Title: "hit", URL: "https://example.org", Source: "example.org"}}}
	svc := newTestService(cfg, &fakeLLM{}, searcher, nil)

	_, err := svc.Search(context.Background(), "repeat", 3)
	require.NoError(t, err)
	resp, err := svc.Search(context.Background(), "repeat", 3)
	require.NoError(t, err)

	assert.Equal(t, 1, searcher.calls, "second identical search should hit the cache")
	assert.Equal(t, "hit", resp.Results[0].Title)
}

func TestSearchDoesNotCacheFallback(t *testing.T) {
	cfg := testConfig()
	cfg.Cache = config.CacheConfig{Enabled: true, TTL: time.Minute}
	searcher := &fakeSearcher{err: errors.New("down")}
	svc := newTestService(cfg, &fakeLLM{}, searcher, nil)

	_, err := svc.Search(context.Background(), "repeat", 3)
	require.NoError(t, err)
	_, err = svc.Search(context.Background(), "repeat", 3)
	require.NoError(t, err)

	assert.Equal(t, 2, searcher.calls, "fallback content must not be cached")
}

func TestSearchAndAnalyzeUsesFallbackWhenSearchFails(t *testing.T) {
	provider := &fakeLLM{reply: "analysis of fallback content"}
	searcher := &fakeSearcher{err: errors.New("down")}
	svc := newTestService(testConfig(), provider, searcher, nil)

	resp, err := svc.SearchAndAnalyze(context.Background(), &domain.SearchAnalyzeRequest{Query: "capital of France"})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.NotEmpty(t, resp.SearchResults)
	assert.Equal(t, "analysis of fallback content", resp.Analysis)
	assert.Equal(t, 1, provider.chatCalls)
}

func TestSearchAndAnalyzeModelFailure(t *testing.T) {
	provider := &fakeLLM{err: errors.New("ollama down")}
	searcher := &fakeSearcher{results: []models.Result{{Title: "r", URL: "https://example.org", Source: "example.org"}}}
	svc := newTestService(testConfig(), provider, searcher, nil)

	_, err := svc.SearchAndAnalyze(context.Background(), &domain.SearchAnalyzeRequest{Query: "q"})
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestChatForwardsHistoryInOrder(t *testing.T) {
	provider := &fakeLLM{reply: "hello back"}
	svc := newTestService(testConfig(), provider, &fakeSearcher{}, nil)

	resp, err := svc.Chat(context.Background(), &domain.ChatRequest{
		Message:      "third",
		SystemPrompt: "be brief",
		ConversationHistory: []domain.ChatMessage{
			{Role: "user", Content: "first"},
			{Role: "assistant", Content: "second"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello back", resp.Response)

	require.Len(t, provider.lastChat, 4)
	assert.Equal(t, "system", provider.lastChat[0].Role)
	assert.Equal(t, "first", provider.lastChat[1].Content)
	assert.Equal(t, "second", provider.lastChat[2].Content)
	assert.Equal(t, llm.Message{Role: "user", Content: "third"}, provider.lastChat[3])
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	provider := &fakeLLM{}
	svc := newTestService(testConfig(), provider, &fakeSearcher{}, nil)

	_, err := svc.Chat(context.Background(), &domain.ChatRequest{Message: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, provider.chatCalls)
}

func TestChatModelFailure(t *testing.T) {
	provider := &fakeLLM{err: errors.New("connection refused")}
	svc := newTestService(testConfig(), provider, &fakeSearcher{}, nil)

	_, err := svc.Chat(context.Background(), &domain.ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestChatWithSessionPersistsTurns(t *testing.T) {
	sessions := newMemorySessions()
	provider := &fakeLLM{reply: "stored reply"}
	svc := newTestService(testConfig(), provider, &fakeSearcher{}, sessions)

	session, err := svc.CreateSession()
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), &domain.ChatRequest{Message: "remember me", SessionID: session.ID})
	require.NoError(t, err)

	stored, err := svc.SessionMessages(session.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "user", stored[0].Role)
	assert.Equal(t, "remember me", stored[0].Content)
	assert.Equal(t, "assistant", stored[1].Role)
	assert.Equal(t, "stored reply", stored[1].Content)
}

func TestChatWithSessionUsesStoredHistory(t *testing.T) {
	sessions := newMemorySessions()
	provider := &fakeLLM{reply: "ok"}
	svc := newTestService(testConfig(), provider, &fakeSearcher{}, sessions)

	session, err := svc.CreateSession()
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), &domain.ChatRequest{Message: "first", SessionID: session.ID})
	require.NoError(t, err)
	_, err = svc.Chat(context.Background(), &domain.ChatRequest{Message: "second", SessionID: session.ID})
	require.NoError(t, err)

	// Second call: stored turn pair plus the new message.
	require.Len(t, provider.lastChat, 3)
	assert.Equal(t, "first", provider.lastChat[0].Content)
	assert.Equal(t, "second", provider.lastChat[2].Content)
}

func TestChatUnknownSession(t *testing.T) {
	svc := newTestService(testConfig(), &fakeLLM{}, &fakeSearcher{}, newMemorySessions())

	_, err := svc.Chat(context.Background(), &domain.ChatRequest{Message: "hi", SessionID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChatStreamRelaysChunks(t *testing.T) {
	provider := &fakeLLM{chunks: []string{"hel", "lo"}}
	svc := newTestService(testConfig(), provider, &fakeSearcher{}, nil)

	var got []string
	err := svc.ChatStream(context.Background(), &domain.ChatRequest{Message: "hi"}, func(chunk string) error {
		got = append(got, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hel", "lo"}, got)
}

func TestStatusNeverErrors(t *testing.T) {
	svc := newTestService(testConfig(), &fakeLLM{err: errors.New("unreachable")}, &fakeSearcher{}, nil)

	status := svc.Status(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.NotEmpty(t, status.Detail)
}

func TestStatusHealthyReportsModelAvailability(t *testing.T) {
	svc := newTestService(testConfig(), &fakeLLM{models: []string{"llama3.2:latest", "qwen2.5:7b"}}, &fakeSearcher{}, nil)

	status := svc.Status(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.True(t, status.ModelAvailable)
	assert.Equal(t, []string{"llama3.2:latest", "qwen2.5:7b"}, status.AvailableModels)
}

type hangingLLM struct{ fakeLLM }

func (h *hangingLLM) ListModels(ctx context.Context) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStatusProbeHonorsConfiguredTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Ollama.ProbeTimeout = 10 * time.Millisecond
	svc := newTestService(cfg, &hangingLLM{}, &fakeSearcher{}, nil)

	done := make(chan *domain.AgentStatus, 1)
	go func() { done <- svc.Status(context.Background()) }()

	select {
	case status := <-done:
		assert.Equal(t, "unhealthy", status.Status)
	case <-time.After(time.Second):
		t.Fatal("status probe did not time out")
	}
}

func TestModelsIdempotent(t *testing.T) {
	svc := newTestService(testConfig(), &fakeLLM{models: []string{"a", "b"}}, &fakeSearcher{}, nil)

	first, err := svc.Models(context.Background())
	require.NoError(t, err)
	second, err := svc.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Models, second.Models)
}

func TestModelsUnreachable(t *testing.T) {
	svc := newTestService(testConfig(), &fakeLLM{err: errors.New("unreachable")}, &fakeSearcher{}, nil)

	_, err := svc.Models(context.Background())
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestAnalyzeUsesTypePrompt(t *testing.T) {
	provider := &fakeLLM{reply: "a summary"}
	svc := newTestService(testConfig(), provider, &fakeSearcher{}, nil)

	resp, err := svc.Analyze(context.Background(), &domain.AnalyzeRequest{Content: "long text", AnalysisType: "summarize"})
	require.NoError(t, err)
	assert.Equal(t, "summarize", resp.AnalysisType)
	assert.Equal(t, "a summary", resp.Analysis)
	require.Len(t, provider.lastChat, 2)
	assert.Contains(t, provider.lastChat[0].Content, "concise summaries")
}

func TestAnalyzeUnknownTypeFallsBackToGeneral(t *testing.T) {
	provider := &fakeLLM{reply: "x"}
	svc := newTestService(testConfig(), provider, &fakeSearcher{}, nil)

	resp, err := svc.Analyze(context.Background(), &domain.AnalyzeRequest{Content: "text", AnalysisType: "nonsense"})
	require.NoError(t, err)
	assert.Equal(t, "general", resp.AnalysisType)
}
