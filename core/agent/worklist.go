package agent

import "github.com/coachworks/agentchat/core/types"

// worklist is the deque drained by a single orchestration run. It is local
// to the run; only its remainder is written back to the conversation.
type worklist struct {
	items []types.Message
}

func newWorklist(items []types.Message) *worklist {
	return &worklist{items: append([]types.Message(nil), items...)}
}

func (w *worklist) Len() int { return len(w.items) }

func (w *worklist) PopFront() types.Message {
	m := w.items[0]
	w.items = w.items[1:]
	return m
}

func (w *worklist) PushFront(m types.Message) {
	w.items = append([]types.Message{m}, w.items...)
}

func (w *worklist) PushBack(ms ...types.Message) {
	w.items = append(w.items, ms...)
}

// Drain empties the worklist and returns what was left in order.
func (w *worklist) Drain() []types.Message {
	rest := w.items
	w.items = nil
	return rest
}
