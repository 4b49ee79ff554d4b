package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"ai-agent-gateway/pkg/websearch/models"
)

// BaseURL is overridable for tests.
var BaseURL = "https://api.duckduckgo.com"

// Search queries the keyless DuckDuckGo instant-answer API. Coverage is
// thinner than the paid providers but it works without credentials, which
// makes it the development default.
type Search struct{}

type instantAnswer struct {
	Heading       string         `json:"Heading"`
	AbstractText  string         `json:"AbstractText"`
	AbstractURL   string         `json:"AbstractURL"`
	RelatedTopics []relatedTopic `json:"RelatedTopics"`
}

type relatedTopic struct {
	Text     string         `json:"Text"`
	FirstURL string         `json:"FirstURL"`
	Topics   []relatedTopic `json:"Topics"`
}

func (s Search) Search(ctx context.Context, q string, k int) ([]models.Result, error) {
	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1", BaseURL, url.QueryEscape(q))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo: status %d", resp.StatusCode)
	}

	var raw instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var out []models.Result
	if raw.AbstractText != "" {
		out = append(out, models.Result{
			Title:   raw.Heading,
			URL:     raw.AbstractURL,
			Snippet: raw.AbstractText,
			Source:  hostOf(raw.AbstractURL),
		})
	}
	out = appendTopics(out, raw.RelatedTopics, k)
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// appendTopics flattens the one-level-nested topic groups the API returns.
func appendTopics(out []models.Result, topics []relatedTopic, k int) []models.Result {
	for _, t := range topics {
		if len(out) >= k {
			break
		}
		if len(t.Topics) > 0 {
			out = appendTopics(out, t.Topics, k)
			continue
		}
		if t.Text == "" || t.FirstURL == "" {
			continue
		}
		out = append(out, models.Result{
			Title:   topicTitle(t.Text),
			URL:     t.FirstURL,
			Snippet: t.Text,
			Source:  hostOf(t.FirstURL),
		})
	}
	return out
}

// topicTitle extracts the leading phrase of a "Title - description" text.
func topicTitle(text string) string {
	if i := strings.Index(text, " - "); i > 0 {
		return text[:i]
	}
	return text
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
