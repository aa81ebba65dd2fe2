package ai

import (
	"context"
	"errors"
)

// Message is one turn of conversation history sent to a backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the single capability the chat layer needs from a backend.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// StreamProvider is an optional interface. Providers may implement streaming chat.
type StreamProvider interface {
	StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error)
}

// ContextResetter is an optional interface for backends that keep
// session-affinity state server-side. Dropping that state is best-effort;
// conversation visibility is enforced by the session's reset watermark
// regardless of whether this call succeeds.
type ContextResetter interface {
	ResetContext(ctx context.Context) error
}

var (
	// ErrUnavailable marks transport failures and backend 5xx responses.
	// Callers may retry; the user's message is already persisted.
	ErrUnavailable = errors.New("ai: backend unavailable")

	// ErrConfig marks missing credentials or an unroutable model.
	ErrConfig = errors.New("ai: backend misconfigured")
)
