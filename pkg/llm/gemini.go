package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/coachworks/agentchat/core/types"
	"github.com/mudler/xlog"
	"google.golang.org/genai"
)

// ContentGenerator is satisfied by (*genai.Client).Models.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewGeminiGenerator opens a Gemini API client.
func NewGeminiGenerator(ctx context.Context, apiKey string) (ContentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return client.Models, nil
}

type GeminiModel struct {
	client ContentGenerator
	model  string
	*options
}

func NewGeminiModel(client ContentGenerator, model string, opts ...Option) *GeminiModel {
	return &GeminiModel{
		client:  client,
		model:   model,
		options: newOptions(opts...),
	}
}

// Contents splits the window into a system instruction, made of the leading
// system messages, and the turns that follow. Gemini only knows user and
// model roles, so later system messages travel as tagged user turns.
func (g *GeminiModel) Contents(conv *types.Conversation) (*genai.Content, []*genai.Content) {
	window := conv.Tail(g.window)

	var system []string
	i := 0
	for ; i < len(window) && Role(window[i].Kind) == RoleSystem; i++ {
		system = append(system, Content(window[i]))
	}

	var contents []*genai.Content
	for _, msg := range window[i:] {
		switch Role(msg.Kind) {
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(Content(msg), genai.RoleModel))
		case RoleSystem:
			contents = append(contents, genai.NewContentFromText("[system] "+Content(msg), genai.RoleUser))
		default:
			contents = append(contents, genai.NewContentFromText(Content(msg), genai.RoleUser))
		}
	}

	var instruction *genai.Content
	if len(system) > 0 {
		instruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return instruction, contents
}

func (g *GeminiModel) Config(instruction *genai.Content) *genai.GenerateContentConfig {
	temp := g.temperature
	return &genai.GenerateContentConfig{
		SystemInstruction: instruction,
		Temperature:       &temp,
		MaxOutputTokens:   int32(g.maxTokens),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    geminiActionsSchema(),
	}
}

func (g *GeminiModel) Complete(ctx context.Context, conv *types.Conversation) []types.Message {
	instruction, contents := g.Contents(conv)
	if len(contents) == 0 {
		// Gemini rejects a request made only of a system instruction.
		contents = []*genai.Content{genai.NewContentFromText("Continue.", genai.RoleUser)}
	}

	res, err := g.client.GenerateContent(ctx, g.model, contents, g.Config(instruction))
	if err != nil {
		xlog.Error("Gemini generate content failed", "conversation", conv.ID, "model", g.model, "error", err)
		return []types.Message{types.NewApology()}
	}

	if res.UsageMetadata != nil {
		g.record(ctx, conv.Owner, int(res.UsageMetadata.PromptTokenCount), int(res.UsageMetadata.CandidatesTokenCount))
	}

	if res.PromptFeedback != nil && res.PromptFeedback.BlockReason != "" {
		xlog.Warn("Gemini blocked the prompt", "conversation", conv.ID, "reason", res.PromptFeedback.BlockReason)
		return []types.Message{types.NewApology()}
	}
	if len(res.Candidates) == 0 {
		xlog.Warn("Gemini returned no candidates", "conversation", conv.ID)
		return []types.Message{types.NewApology()}
	}

	text := res.Text()
	xlog.Debug("Model output", "conversation", conv.ID, "content", text)
	return ParseActions(text)
}

func geminiInputsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":  {Type: genai.TypeString},
				"value": {Type: genai.TypeString},
			},
			Required: []string{"name", "value"},
		},
	}
}

// geminiActionsSchema mirrors ActionsSchema in genai's schema dialect.
func geminiActionsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"actions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"type":    {Type: genai.TypeString, Enum: kindNames()},
						"message": {Type: genai.TypeString},
						"tool":    {Type: genai.TypeString},
						"inputs":  geminiInputsSchema(),
						"plan": {
							Type: genai.TypeArray,
							Items: &genai.Schema{
								Type: genai.TypeObject,
								Properties: map[string]*genai.Schema{
									"step":   {Type: genai.TypeString},
									"tool":   {Type: genai.TypeString},
									"inputs": geminiInputsSchema(),
								},
								Required: []string{"step"},
							},
						},
						"approvalRequired": {Type: genai.TypeString, Enum: []string{"unset", "true", "false"}},
					},
					Required: []string{"type", "message"},
				},
			},
		},
		Required: []string{"actions"},
	}
}
