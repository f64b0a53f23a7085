package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coachworks/agentchat/core/types"
	"github.com/mudler/xlog"
)

// ToolExecutor is what the orchestrator needs from the tool registry.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, inputs map[string]string, caller string) string
	PreviewRequired(name string) bool
	Definitions() []types.ToolDefinition
}

// Orchestrator drains a conversation's pending queue, alternating language
// model calls and tool calls, until the queue is empty or a tool call
// waits for operator approval.
type Orchestrator struct {
	model types.LanguageModel
	tools ToolExecutor
	store types.ConversationStore
	*options
}

func New(model types.LanguageModel, tools ToolExecutor, store types.ConversationStore, opts ...Option) (*Orchestrator, error) {
	if model == nil || tools == nil || store == nil {
		return nil, errors.New("orchestrator needs a model, a tool executor and a store")
	}
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		model:   model,
		tools:   tools,
		store:   store,
		options: options,
	}, nil
}

// Run processes conv.Pending and persists the result. It returns the
// messages appended to the transcript during the run. The caller must
// hold the conversation lock.
func (o *Orchestrator) Run(ctx context.Context, conv *types.Conversation) ([]types.Message, error) {
	start := len(conv.Transcript)
	work := newWorklist(conv.Pending)
	conv.Pending = nil

	for work.Len() > 0 {
		m := work.PopFront()
		xlog.Debug("Processing message", "conversation", conv.ID, "kind", m.Kind, "message", m.ID)

		switch {
		case m.Kind.FeedsModel():
			conv.Append(m)
			work.PushBack(o.complete(ctx, conv)...)

		case m.Kind == types.KindToolExecute && m.Tool != nil:
			call := m.Tool
			if !call.ApprovalRequired.IsSet() {
				call.ApprovalRequired = types.Bool(o.tools.PreviewRequired(call.Name))
			}

			switch {
			case call.ApprovalRequired.IsTrue() && !call.Approved.IsSet():
				xlog.Info("Tool call awaits approval", "conversation", conv.ID, "tool", call.Name, "message", m.ID)
				conv.Pending = append([]types.Message{m}, work.Drain()...)
				conv.Append(m.Clone())
				return o.persist(ctx, conv, start)

			case call.Approved.IsFalse():
				xlog.Info("Tool call denied", "conversation", conv.ID, "tool", call.Name, "message", m.ID)
				conv.Append(m)
				conv.Append(types.NewMessage(types.KindUserInternal, fmt.Sprintf(o.deniedText, call.Name)))
				work.PushBack(o.complete(ctx, conv)...)

			default:
				result := o.execute(ctx, conv.Owner, call)
				conv.Append(m)
				work.PushFront(types.NewToolResult(result))
			}

		default:
			conv.Append(m)
		}
	}

	return o.persist(ctx, conv, start)
}

func (o *Orchestrator) persist(ctx context.Context, conv *types.Conversation, start int) ([]types.Message, error) {
	conv.UpdatedAt = time.Now().UTC()
	// The run may have been cut short by the caller; the state still has to land.
	if err := o.store.Save(context.WithoutCancel(ctx), conv); err != nil {
		return nil, fmt.Errorf("saving conversation %s: %w", conv.ID, err)
	}
	return conv.Transcript[start:], nil
}

// complete calls the model on a snapshot of the conversation. A call that
// outlives the model timeout is abandoned in favour of the apology message.
func (o *Orchestrator) complete(ctx context.Context, conv *types.Conversation) []types.Message {
	ctx, cancel := context.WithTimeout(ctx, o.modelTimeout)
	defer cancel()

	snapshot := conv.Clone()
	done := make(chan []types.Message, 1)
	go func() {
		done <- o.model.Complete(ctx, snapshot)
	}()

	select {
	case out := <-done:
		return out
	case <-ctx.Done():
		xlog.Warn("Language model call timed out", "conversation", conv.ID, "timeout", o.modelTimeout, "error", ctx.Err())
		return []types.Message{types.NewApology()}
	}
}

func (o *Orchestrator) execute(ctx context.Context, caller string, call *types.ToolCall) string {
	ctx, cancel := context.WithTimeout(ctx, o.toolTimeout)
	defer cancel()

	done := make(chan string, 1)
	go func() {
		done <- o.tools.Execute(ctx, call.Name, call.Inputs, caller)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		xlog.Warn("Tool call timed out", "tool", call.Name, "timeout", o.toolTimeout)
		return fmt.Sprintf("Tool %q did not finish within %s.", call.Name, o.toolTimeout)
	}
}
