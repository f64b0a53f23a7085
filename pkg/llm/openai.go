package llm

import (
	"context"

	"github.com/coachworks/agentchat/core/types"
	"github.com/mudler/xlog"
	"github.com/sashabaranov/go-openai"
)

// ChatCompleter is the part of *openai.Client the model needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIModel talks to an OpenAI compatible chat completions endpoint and
// asks for the actions schema as strict structured output.
type OpenAIModel struct {
	client ChatCompleter
	model  string
	*options
}

func NewOpenAIModel(client ChatCompleter, model string, opts ...Option) *OpenAIModel {
	return &OpenAIModel{
		client:  client,
		model:   model,
		options: newOptions(opts...),
	}
}

func (m *OpenAIModel) Request(conv *types.Conversation) openai.ChatCompletionRequest {
	window := conv.Tail(m.window)
	messages := make([]openai.ChatCompletionMessage, 0, len(window))
	for _, msg := range window {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    Role(msg.Kind),
			Content: Content(msg),
		})
	}

	schema := ActionsSchema()
	return openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    messages,
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "actions",
				Schema: &schema,
				Strict: true,
			},
		},
	}
}

func (m *OpenAIModel) Complete(ctx context.Context, conv *types.Conversation) []types.Message {
	resp, err := m.client.CreateChatCompletion(ctx, m.Request(conv))
	if err != nil {
		xlog.Error("Chat completion failed", "conversation", conv.ID, "model", m.model, "error", err)
		return []types.Message{types.NewApology()}
	}

	m.record(ctx, conv.Owner, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		xlog.Warn("Chat completion returned no choices", "conversation", conv.ID)
		return []types.Message{types.NewApology()}
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" || choice.FinishReason == openai.FinishReasonContentFilter {
		xlog.Warn("Model refused to answer", "conversation", conv.ID, "refusal", choice.Message.Refusal)
		return []types.Message{types.NewApology()}
	}

	xlog.Debug("Model output", "conversation", conv.ID, "content", choice.Message.Content)
	return ParseActions(choice.Message.Content)
}

func (o *options) record(ctx context.Context, owner string, in, out int) {
	if o.usage == nil || owner == "" {
		return
	}
	if err := o.usage.Record(ctx, owner, in, out); err != nil {
		xlog.Error("Error recording token usage", "owner", owner, "error", err)
	}
}
