package types

import (
	"errors"
	"time"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotOwner             = errors.New("conversation belongs to another operator")
)

// Conversation is the persisted aggregate: an append-only transcript
// plus the queue of work not yet folded into it.
type Conversation struct {
	ID         string    `json:"id"`
	Owner      string    `json:"owner"`
	Transcript []Message `json:"transcript"`
	Pending    []Message `json:"pending"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func NewConversation(owner string, seed ...Message) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:         newID(),
		Owner:      owner,
		Transcript: CloneMessages(seed),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (c *Conversation) Append(m Message) {
	c.Transcript = append(c.Transcript, m)
}

// Tail returns the last count transcript messages. A negative count
// returns the whole transcript.
func (c *Conversation) Tail(count int) []Message {
	if count < 0 || count >= len(c.Transcript) {
		return c.Transcript
	}
	return c.Transcript[len(c.Transcript)-count:]
}

// PendingIndex returns the position of the pending message with the given id, or -1.
func (c *Conversation) PendingIndex(id string) int {
	for i, m := range c.Pending {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Suspended reports whether the conversation is waiting on an approval decision.
func (c *Conversation) Suspended() bool {
	if len(c.Pending) == 0 {
		return false
	}
	head := c.Pending[0]
	return head.Kind == KindToolExecute && head.Tool != nil &&
		head.Tool.ApprovalRequired.IsTrue() && !head.Tool.Approved.IsSet()
}

func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Transcript = CloneMessages(c.Transcript)
	cp.Pending = CloneMessages(c.Pending)
	return &cp
}
