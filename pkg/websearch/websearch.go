package websearch

import (
	"context"
	"fmt"

	"ai-agent-gateway/pkg/websearch/brave"
	"ai-agent-gateway/pkg/websearch/duckduckgo"
	"ai-agent-gateway/pkg/websearch/models"
	"ai-agent-gateway/pkg/websearch/serper"
)

// WebSearcher queries a web search provider for ranked results.
type WebSearcher interface {
	Search(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	DuckDuckGoProvider Provider = "duckduckgo"
	SerperProvider     Provider = "serper"
	BraveProvider      Provider = "brave"
)

// NewWebSearcher returns the searcher for the named provider.
func NewWebSearcher(provider Provider, apiKey string) (WebSearcher, error) {
	switch provider {
	case DuckDuckGoProvider:
		return duckduckgo.Search{}, nil
	case SerperProvider:
		return serper.Search{ApiKey: apiKey}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey}, nil
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", provider)
	}
}
