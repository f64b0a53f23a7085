package types

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindUser          Kind = "USER"
	KindSystem        Kind = "SYSTEM"
	KindUserInternal  Kind = "USER_INTERNAL"
	KindMemory        Kind = "MEMORY"
	KindAgent         Kind = "AGENT"
	KindSwitch        Kind = "SWITCH"
	KindAgentInternal Kind = "AGENT_INTERNAL"
	KindToolExecute   Kind = "TOOL_EXECUTE"
	KindToolResult    Kind = "TOOL_RESULT"
)

var Kinds = []Kind{
	KindUser,
	KindSystem,
	KindUserInternal,
	KindMemory,
	KindAgent,
	KindSwitch,
	KindAgentInternal,
	KindToolExecute,
	KindToolResult,
}

func (k Kind) Valid() bool {
	return slices.Contains(Kinds, k)
}

// FeedsModel reports whether appending a message of this kind
// is followed by a language model call.
func (k Kind) FeedsModel() bool {
	switch k {
	case KindUser, KindToolResult, KindSystem, KindUserInternal:
		return true
	}
	return false
}

const (
	ApologyText    = "I apologize, but I'm having difficulty responding right now. Please try again in a moment."
	ParseErrorText = "A parsing error occurred while reading the model response."
)

const (
	ErrorCodeProvider         = "provider_error"
	ErrorCodeParse            = "parse_error"
	ErrorCodeDecisionNotFound = "decision_not_found"
)

var ErrInvalidMessage = errors.New("invalid message")

type PlanStep struct {
	Step   string            `json:"step"`
	Tool   string            `json:"tool,omitempty"`
	Inputs map[string]string `json:"inputs,omitempty"`
}

// ToolCall is the payload of a TOOL_EXECUTE message.
type ToolCall struct {
	Name             string            `json:"name"`
	Inputs           map[string]string `json:"inputs,omitempty"`
	ApprovalRequired Tristate          `json:"approvalRequired"`
	Approved         Tristate          `json:"approved"`
}

// Message is one entry of a transcript or of the pending queue.
// Tool is set only on TOOL_EXECUTE messages and Plan only on
// AGENT_INTERNAL messages; use the constructors to build them.
type Message struct {
	ID        string     `json:"id"`
	Kind      Kind       `json:"kind"`
	Text      string     `json:"text,omitempty"`
	Tool      *ToolCall  `json:"tool,omitempty"`
	Plan      []PlanStep `json:"plan,omitempty"`
	ErrorCode string     `json:"errorCode,omitempty"`
	ErrorText string     `json:"errorText,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func newID() string {
	return uuid.New().String()
}

func NewMessage(kind Kind, text string) Message {
	return Message{
		ID:        newID(),
		Kind:      kind,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}

// NewToolExecute builds a tool invocation request. Approved always starts unset.
func NewToolExecute(text, tool string, inputs map[string]string, approvalRequired Tristate) Message {
	m := NewMessage(KindToolExecute, text)
	m.Tool = &ToolCall{
		Name:             tool,
		Inputs:           maps.Clone(inputs),
		ApprovalRequired: approvalRequired,
	}
	return m
}

func NewToolResult(text string) Message {
	return NewMessage(KindToolResult, text)
}

func NewAgentInternal(text string, plan []PlanStep) Message {
	m := NewMessage(KindAgentInternal, text)
	m.Plan = clonePlan(plan)
	return m
}

// NewErrorMessage builds a message that represents a failure.
func NewErrorMessage(kind Kind, code, text string) Message {
	m := NewMessage(kind, text)
	m.ErrorCode = code
	m.ErrorText = text
	return m
}

func NewApology() Message {
	return NewErrorMessage(KindAgent, ErrorCodeProvider, ApologyText)
}

func NewParseError() Message {
	return NewErrorMessage(KindSystem, ErrorCodeParse, ParseErrorText)
}

func (m Message) IsError() bool {
	return m.ErrorCode != ""
}

// Validate rejects payloads attached to the wrong kind.
func (m Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	if !m.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMessage, m.Kind)
	}
	if m.Kind == KindToolExecute {
		if m.Tool == nil || m.Tool.Name == "" {
			return fmt.Errorf("%w: TOOL_EXECUTE without tool name", ErrInvalidMessage)
		}
	} else if m.Tool != nil {
		return fmt.Errorf("%w: tool payload on %s", ErrInvalidMessage, m.Kind)
	}
	if m.Kind != KindAgentInternal && len(m.Plan) > 0 {
		return fmt.Errorf("%w: plan on %s", ErrInvalidMessage, m.Kind)
	}
	return nil
}

func (m Message) Clone() Message {
	c := m
	if m.Tool != nil {
		t := *m.Tool
		t.Inputs = maps.Clone(m.Tool.Inputs)
		c.Tool = &t
	}
	c.Plan = clonePlan(m.Plan)
	return c
}

func clonePlan(plan []PlanStep) []PlanStep {
	if plan == nil {
		return nil
	}
	out := make([]PlanStep, len(plan))
	for i, s := range plan {
		out[i] = PlanStep{Step: s.Step, Tool: s.Tool, Inputs: maps.Clone(s.Inputs)}
	}
	return out
}

func CloneMessages(in []Message) []Message {
	if in == nil {
		return nil
	}
	out := make([]Message, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}
