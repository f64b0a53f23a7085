package types

import (
	"context"
	"sort"

	"github.com/sashabaranov/go-openai/jsonschema"
)

type ToolDefinition struct {
	Properties  map[string]jsonschema.Definition
	Required    []string
	Name        ToolName
	Description string
}

type ToolName string

func (t ToolName) Is(name string) bool {
	return string(t) == name
}

func (t ToolName) String() string {
	return string(t)
}

// InputNames lists the declared input names in a stable order.
func (d ToolDefinition) InputNames() []string {
	names := make([]string, 0, len(d.Properties))
	for n := range d.Properties {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Tool is something the agent can call. Implementations report failures
// in the returned text instead of returning errors.
type Tool interface {
	Definition() ToolDefinition
	PreviewRequired() bool
	Execute(ctx context.Context, inputs map[string]string) string
}

// LanguageModel turns a conversation into new messages. It never fails:
// provider and parse errors come back as fallback messages.
type LanguageModel interface {
	Complete(ctx context.Context, conv *Conversation) []Message
}
