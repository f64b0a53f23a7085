package types

import "context"

type ConversationStore interface {
	Create(ctx context.Context, conv *Conversation) error
	// Get returns ErrConversationNotFound when the id is unknown.
	Get(ctx context.Context, id string) (*Conversation, error)
	Save(ctx context.Context, conv *Conversation) error
	// History returns the owner's conversations, newest first.
	History(ctx context.Context, owner string, limit int) ([]*Conversation, error)
}

// Usage is the token consumption of one owner within one accounting window.
type Usage struct {
	Owner        string `json:"owner"`
	Window       string `json:"window"`
	InputTokens  int64  `json:"inputTokens"`
	OutputTokens int64  `json:"outputTokens"`
	TotalTokens  int64  `json:"totalTokens"`
	Calls        int64  `json:"calls"`
}

type UsageTracker interface {
	Record(ctx context.Context, owner string, inputTokens, outputTokens int) error
	CurrentWindow(ctx context.Context, owner string) (Usage, error)
}
