package service

import (
	"fmt"
	"strings"

	"ai-agent-gateway/internal/domain"
	"ai-agent-gateway/pkg/llm"
)

// Canned system prompts per analysis type.
var analysisPrompts = map[string]string{
	"general":       "You are an AI assistant that analyzes content and provides insights. Analyze the given content and provide a comprehensive summary with key insights.",
	"summarize":     "You are an AI assistant that creates concise summaries. Summarize the given content in a clear and concise manner.",
	"extract_facts": "You are an AI assistant that extracts key facts and information. Extract the most important facts and information from the given content.",
	"sentiment":     "You are an AI assistant that analyzes sentiment. Analyze the sentiment and tone of the given content.",
}

const searchAnalysisSystemPrompt = "You are an AI assistant that analyzes search results. Provide insights, summaries, and answer questions based on the search results provided."

const defaultAnalysisPrompt = "Analyze these search results and provide insights"

// analysisSystemPrompt resolves an analysis type to its system prompt,
// defaulting to general for unknown types.
func analysisSystemPrompt(analysisType string) (string, string) {
	if analysisType == "" {
		analysisType = "general"
	}
	prompt, ok := analysisPrompts[analysisType]
	if !ok {
		analysisType = "general"
		prompt = analysisPrompts["general"]
	}
	return analysisType, prompt
}

// fallbackResults is the fixed placeholder set served when the search
// provider is unreachable or returns nothing. Callers always get content.
func fallbackResults(query string) []domain.SearchResult {
	return []domain.SearchResult{
		{
			Title:    fmt.Sprintf("Search result for %q - Result 1", query),
			URL:      "https://example.com/result1",
			Snippet:  fmt.Sprintf("This is a search result for the query %q. It contains relevant information about the topic.", query),
			Source:   "example.com",
			Fallback: true,
		},
		{
			Title:    fmt.Sprintf("Search result for %q - Result 2", query),
			URL:      "https://example.com/result2",
			Snippet:  fmt.Sprintf("Another relevant search result for %q with additional information and context.", query),
			Source:   "example.com",
			Fallback: true,
		},
		{
			Title:    fmt.Sprintf("Search result for %q - Result 3", query),
			URL:      "https://example.com/result3",
			Snippet:  fmt.Sprintf("A third search result providing more details about %q and related topics.", query),
			Source:   "example.com",
			Fallback: true,
		},
	}
}

// formatSearchContext renders a result set as numbered context for the model.
func formatSearchContext(query string, results []domain.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search query: %s\n\nSearch results:\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n%s\nSource: %s\n\n", i+1, r.Title, r.Snippet, r.Source)
	}
	return b.String()
}

// buildChatMessages assembles the prompt for one chat turn: system prompt,
// prior history (budget-capped), then the new message. The system prompt and
// the new message are never dropped.
func buildChatMessages(systemPrompt string, history []domain.ChatMessage, message string, budget int) []llm.Message {
	history = truncateHistory(history, budget)

	messages := make([]llm.Message, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	}
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: message})
	return messages
}

// truncateHistory drops the oldest turns until the remaining content fits the
// character budget. A budget of zero or less disables truncation.
func truncateHistory(history []domain.ChatMessage, budget int) []domain.ChatMessage {
	if budget <= 0 {
		return history
	}
	total := 0
	for _, m := range history {
		total += len(m.Content)
	}
	start := 0
	for start < len(history) && total > budget {
		total -= len(history[start].Content)
		start++
	}
	return history[start:]
}
