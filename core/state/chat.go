package state

import (
	"context"
	"fmt"

	"github.com/coachworks/agentchat/core/agent"
	"github.com/coachworks/agentchat/core/types"
	"github.com/mudler/xlog"
)

const (
	DefaultTranscriptCount = 30
	HistoryLimit           = 10
	HistoryLabelLayout     = "Jan 2, 2006 3:04 PM"
)

type HistoryEntry struct {
	ConversationID string `json:"conversationId"`
	Label          string `json:"label"`
}

// Result is what a submission returns: the transcript messages added by
// the run and whatever is left pending (non-empty only while suspended).
type Result struct {
	Messages []types.Message `json:"messages"`
	Pending  []types.Message `json:"pending"`
}

// AgentChat is the boundary the API layer talks to.
type AgentChat struct {
	store        types.ConversationStore
	orchestrator *agent.Orchestrator
	pool         *Pool
}

func NewAgentChat(store types.ConversationStore, orchestrator *agent.Orchestrator, pool *Pool) *AgentChat {
	return &AgentChat{
		store:        store,
		orchestrator: orchestrator,
		pool:         pool,
	}
}

// Initiate creates a seeded conversation. No model call happens.
func (a *AgentChat) Initiate(ctx context.Context, operator string) (*types.Conversation, error) {
	seed, err := a.orchestrator.Seed(operator)
	if err != nil {
		return nil, fmt.Errorf("seeding conversation: %w", err)
	}
	conv := types.NewConversation(operator, seed...)
	if err := a.store.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	xlog.Info("Conversation initiated", "conversation", conv.ID, "operator", operator)
	return conv, nil
}

// Transcript returns the last count messages. Zero means the default of
// 30, a negative count the whole transcript.
func (a *AgentChat) Transcript(ctx context.Context, id string, count int, operator string) ([]types.Message, error) {
	conv, err := a.load(ctx, id, operator)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		count = DefaultTranscriptCount
	}
	return conv.Tail(count), nil
}

func (a *AgentChat) History(ctx context.Context, operator string) ([]HistoryEntry, error) {
	convs, err := a.store.History(ctx, operator, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	out := make([]HistoryEntry, 0, len(convs))
	for _, c := range convs {
		out = append(out, HistoryEntry{
			ConversationID: c.ID,
			Label:          c.CreatedAt.Format(HistoryLabelLayout),
		})
	}
	return out, nil
}

// SubmitMessage puts a USER message ahead of anything pending and runs.
func (a *AgentChat) SubmitMessage(ctx context.Context, id, text, operator string) (*Result, error) {
	return a.run(ctx, id, operator, func(conv *types.Conversation) {
		user := types.NewMessage(types.KindUser, text)
		conv.Pending = append([]types.Message{user}, conv.Pending...)
	})
}

// SubmitDecision resolves a pending tool call. Only an explicit true runs
// the tool; false and unset both deny it. The resolved call becomes the
// only pending item: anything queued behind it is dropped. An id that is
// not pending is reported to the model as a SYSTEM error instead.
func (a *AgentChat) SubmitDecision(ctx context.Context, id, messageID string, approved types.Tristate, operator string) (*Result, error) {
	return a.run(ctx, id, operator, func(conv *types.Conversation) {
		idx := conv.PendingIndex(messageID)
		if idx < 0 || conv.Pending[idx].Tool == nil {
			xlog.Warn("Decision for unknown pending message", "conversation", conv.ID, "message", messageID)
			conv.Pending = []types.Message{types.NewErrorMessage(types.KindSystem, types.ErrorCodeDecisionNotFound,
				fmt.Sprintf("No pending action with id %s was found. It may have been handled already.", messageID))}
			return
		}

		m := conv.Pending[idx]
		m.Tool.Approved = types.Bool(approved.IsTrue())
		if dropped := len(conv.Pending) - 1; dropped > 0 {
			xlog.Info("Dropping queued work after decision", "conversation", conv.ID, "count", dropped)
		}
		conv.Pending = []types.Message{m}
	})
}

func (a *AgentChat) run(ctx context.Context, id, operator string, enqueue func(*types.Conversation)) (*Result, error) {
	release, err := a.pool.Acquire(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("waiting for conversation %s: %w", id, err)
	}
	defer release()

	conv, err := a.load(ctx, id, operator)
	if err != nil {
		return nil, err
	}

	enqueue(conv)
	added, err := a.orchestrator.Run(ctx, conv)
	if err != nil {
		return nil, err
	}
	return &Result{Messages: added, Pending: conv.Pending}, nil
}

func (a *AgentChat) load(ctx context.Context, id, operator string) (*types.Conversation, error) {
	conv, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.Owner != operator {
		return nil, types.ErrNotOwner
	}
	return conv, nil
}
