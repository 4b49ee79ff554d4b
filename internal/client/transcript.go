package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-agent-gateway/internal/domain"
)

// Transcript is an append-only chat log with optimistic append: Send puts
// the user's message into the log synchronously, before the network round
// trip, so the caller always sees their own message instantly. Messages are
// never mutated after creation.
type Transcript struct {
	client       *Client
	systemPrompt string
	sessionID    string

	messages []domain.ChatMessage
}

// NewTranscript creates a transcript bound to a gateway client.
func NewTranscript(c *Client, systemPrompt string) *Transcript {
	return &Transcript{client: c, systemPrompt: systemPrompt}
}

// BindSession attaches a server-side session id; subsequent sends persist
// turns on the gateway.
func (t *Transcript) BindSession(sessionID string) {
	t.sessionID = sessionID
}

// Messages returns a copy of the transcript so far.
func (t *Transcript) Messages() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages in the transcript.
func (t *Transcript) Len() int {
	return len(t.messages)
}

func (t *Transcript) append(role, content string) {
	t.messages = append(t.messages, domain.ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// request builds the chat request from everything before the optimistic
// user entry, which is resent as the new message.
func (t *Transcript) request(message string) *domain.ChatRequest {
	history := make([]domain.ChatMessage, len(t.messages)-1)
	copy(history, t.messages[:len(t.messages)-1])
	return &domain.ChatRequest{
		Message:             message,
		ConversationHistory: history,
		SystemPrompt:        t.systemPrompt,
		SessionID:           t.sessionID,
	}
}

// Send submits one chat message. The user message is appended before the
// call; the assistant reply (or a literal error line, so the transcript
// never loses a turn) is appended when the call settles.
func (t *Transcript) Send(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", domain.ErrInvalidInput
	}

	t.append("user", message)

	t.client.chat.begin()
	defer t.client.chat.end()

	resp, err := t.client.Chat(ctx, t.request(message))
	if err != nil {
		fallback := fmt.Sprintf("Error: %v", err)
		t.append("assistant", fallback)
		return fallback, err
	}

	t.append("assistant", resp.Response)
	return resp.Response, nil
}

// SendStream is Send over the streaming endpoint; chunks go to fn as they
// arrive and the assembled reply is appended once the stream closes.
func (t *Transcript) SendStream(ctx context.Context, message string, fn func(chunk string)) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", domain.ErrInvalidInput
	}

	t.append("user", message)

	t.client.chat.begin()
	defer t.client.chat.end()

	reply, err := t.client.ChatStream(ctx, t.request(message), fn)
	if err != nil {
		if reply == "" {
			reply = fmt.Sprintf("Error: %v", err)
		}
		t.append("assistant", reply)
		return reply, err
	}

	t.append("assistant", reply)
	return reply, nil
}
