// Package client is a typed client for the agent gateway. It mirrors the
// browser UI's interaction model: independent Search / Analysis / Chat
// regions, each guarded by a busy flag and a monotonic request token so a
// stale response can be discarded when a newer request has since started.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-agent-gateway/internal/domain"
)

// APIError is the gateway's tagged error envelope.
type APIError struct {
	StatusCode int
	Kind       string `json:"kind"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Client talks to a running agent gateway.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	search   region
	analysis region
	chat     region
}

// New creates a gateway client. A zero timeout leaves requests governed by
// the context alone, matching the browser's behavior.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// SearchBusy reports whether a search request is in flight.
func (c *Client) SearchBusy() bool { return c.search.isBusy() }

// AnalysisBusy reports whether an analysis request is in flight.
func (c *Client) AnalysisBusy() bool { return c.analysis.isBusy() }

// ChatBusy reports whether a chat request is in flight.
func (c *Client) ChatBusy() bool { return c.chat.isBusy() }

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error APIError `json:"error"`
		}
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Kind != "" {
			envelope.Error.StatusCode = resp.StatusCode
			return &envelope.Error
		}
		return fmt.Errorf("gateway error: status %d, body: %s", resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// Search runs a web search through the gateway. Stale responses (a newer
// search started while this one was in flight) return ErrStale.
func (c *Client) Search(ctx context.Context, query string, numResults int) (*domain.SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrInvalidInput
	}

	token := c.search.begin()
	defer c.search.end()

	var out domain.SearchResponse
	err := c.postJSON(ctx, "/api/agent/search", domain.SearchRequest{Query: query, NumResults: numResults}, &out)
	if err != nil {
		return nil, err
	}
	if !c.search.current(token) {
		return nil, ErrStale
	}
	return &out, nil
}

// SearchAndAnalyze runs the combined search-then-analyze operation. It
// occupies both the search and analysis regions: from the client's point of
// view this is one request that is both things at once.
func (c *Client) SearchAndAnalyze(ctx context.Context, query, analysisPrompt string) (*domain.SearchAnalyzeResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrInvalidInput
	}

	token := c.analysis.begin()
	c.search.begin()
	defer c.search.end()
	defer c.analysis.end()

	var out domain.SearchAnalyzeResponse
	err := c.postJSON(ctx, "/api/agent/search-and-analyze",
		domain.SearchAnalyzeRequest{Query: query, AnalysisPrompt: analysisPrompt}, &out)
	if err != nil {
		return nil, err
	}
	if !c.analysis.current(token) {
		return nil, ErrStale
	}
	return &out, nil
}

// Analyze asks the model to analyze arbitrary content.
func (c *Client) Analyze(ctx context.Context, content, analysisPrompt, analysisType string) (*domain.AnalyzeResponse, error) {
	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrInvalidInput
	}

	var out domain.AnalyzeResponse
	err := c.postJSON(ctx, "/api/agent/analyze", domain.AnalyzeRequest{
		Content:        content,
		AnalysisPrompt: analysisPrompt,
		AnalysisType:   analysisType,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat sends one chat turn.
func (c *Client) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out domain.ChatResponse
	if err := c.postJSON(ctx, "/api/agent/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChatStream sends one chat turn and delivers reply chunks to fn in order.
// It returns the assembled reply once the stream completes.
func (c *Client) ChatStream(ctx context.Context, req *domain.ChatRequest, fn func(chunk string)) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/api/agent/chat/stream", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		var envelope struct {
			Error APIError `json:"error"`
		}
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Kind != "" {
			envelope.Error.StatusCode = resp.StatusCode
			return "", &envelope.Error
		}
		return "", fmt.Errorf("gateway error: status %d, body: %s", resp.StatusCode, string(raw))
	}

	var reply strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var chunk domain.StreamChunk
		if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &chunk); err != nil {
			continue
		}
		if chunk.Error != "" {
			return reply.String(), fmt.Errorf("stream error: %s", chunk.Error)
		}
		if chunk.Chunk != "" {
			reply.WriteString(chunk.Chunk)
			if fn != nil {
				fn(chunk.Chunk)
			}
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return reply.String(), err
	}
	return reply.String(), nil
}

// Status probes the gateway's view of the inference endpoint. Poll it; the
// first answer goes stale the moment the backend restarts.
func (c *Client) Status(ctx context.Context) (*domain.AgentStatus, error) {
	var out domain.AgentStatus
	if err := c.getJSON(ctx, "/api/agent/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Models lists the models known to the inference endpoint.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	var out domain.ModelsResponse
	if err := c.getJSON(ctx, "/api/agent/models", &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// CreateSession opens a server-side conversation.
func (c *Client) CreateSession(ctx context.Context) (*domain.Session, error) {
	var out domain.Session
	if err := c.postJSON(ctx, "/api/agent/sessions", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
