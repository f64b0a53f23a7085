package store

import (
	"context"
	"sort"
	"sync"

	"github.com/coachworks/agentchat/core/types"
)

// Memory is a ConversationStore kept in process memory. Conversations are
// copied on the way in and out so callers never share state with the store.
type Memory struct {
	sync.RWMutex
	conversations map[string]*types.Conversation
}

func NewMemory() *Memory {
	return &Memory{conversations: make(map[string]*types.Conversation)}
}

func (m *Memory) Create(_ context.Context, conv *types.Conversation) error {
	m.Lock()
	defer m.Unlock()
	m.conversations[conv.ID] = conv.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*types.Conversation, error) {
	m.RLock()
	defer m.RUnlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, types.ErrConversationNotFound
	}
	return c.Clone(), nil
}

func (m *Memory) Save(_ context.Context, conv *types.Conversation) error {
	m.Lock()
	defer m.Unlock()
	if _, ok := m.conversations[conv.ID]; !ok {
		return types.ErrConversationNotFound
	}
	m.conversations[conv.ID] = conv.Clone()
	return nil
}

func (m *Memory) History(_ context.Context, owner string, limit int) ([]*types.Conversation, error) {
	m.RLock()
	defer m.RUnlock()

	var out []*types.Conversation
	for _, c := range m.conversations {
		if c.Owner == owner {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
