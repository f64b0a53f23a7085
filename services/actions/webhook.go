package actions

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/coachworks/agentchat/core/action"
	"github.com/coachworks/agentchat/core/types"
	"github.com/coachworks/agentchat/pkg/config"
)

// NewWebhook constructs a WebhookAction using provided configuration values.
func NewWebhook(cfg map[string]string) *WebhookAction {
	wa := &WebhookAction{
		url:             strings.TrimSpace(cfg["url"]),
		method:          strings.ToUpper(strings.TrimSpace(cfg["method"])),
		contentType:     strings.TrimSpace(cfg["contentType"]),
		payloadTemplate: cfg["payloadTemplate"],
		client:          http.DefaultClient,
	}
	if wa.method == "" {
		wa.method = http.MethodPost
	}
	return wa
}

type WebhookAction struct {
	url             string
	method          string
	contentType     string
	payloadTemplate string
	client          *http.Client
}

func (a *WebhookAction) Definition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "webhook",
		Description: "Notify the configured external system over HTTP. The payload is inserted into the configured request template.",
		Properties: map[string]jsonschema.Definition{
			"payload": {
				Type:        jsonschema.String,
				Description: "Payload/body to send with the request.",
			},
		},
		Required: []string{"payload"},
	}
}

// PreviewRequired is true: the receiving system acts on the request.
func (a *WebhookAction) PreviewRequired() bool { return true }

func (a *WebhookAction) Execute(ctx context.Context, inputs map[string]string) string {
	params := action.Params(inputs)
	if a.url == "" {
		return "Webhook is not configured: no URL set."
	}

	in := params["payload"]
	payload := in
	if a.payloadTemplate != "" {
		payload = strings.ReplaceAll(a.payloadTemplate, "{{payload}}", in)
	}

	var body io.Reader
	if a.method != http.MethodGet && payload != "" {
		body = bytes.NewBufferString(payload)
	}

	req, err := http.NewRequestWithContext(ctx, a.method, a.url, body)
	if err != nil {
		return fmt.Sprintf("Webhook request could not be built: %v", err)
	}
	if a.contentType != "" {
		req.Header.Set("Content-Type", a.contentType)
	}
	if caller := params.Caller(); caller != "" {
		req.Header.Set("X-Operator-ID", caller)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Sprintf("Webhook request failed: %v", err)
	}
	defer resp.Body.Close()

	respBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	respBody := string(respBytes)
	if len(respBody) > 4096 {
		respBody = respBody[:4096] + "... (truncated)"
	}

	if resp.StatusCode >= 400 {
		return fmt.Sprintf("Webhook returned %d %s: %s", resp.StatusCode, http.StatusText(resp.StatusCode), respBody)
	}
	if respBody == "" {
		return http.StatusText(resp.StatusCode)
	}
	return respBody
}

// WebhookConfigMeta returns the metadata for Webhook action configuration fields
func WebhookConfigMeta() []config.Field {
	return []config.Field{
		{
			Name:     "url",
			Label:    "URL",
			Type:     config.FieldTypeText,
			Required: true,
			HelpText: "Destination URL for the webhook",
		},
		{
			Name:         "method",
			Label:        "HTTP Method",
			Type:         config.FieldTypeSelect,
			Options:      []config.FieldOption{{Value: http.MethodGet, Label: "GET"}, {Value: http.MethodPost, Label: "POST"}, {Value: http.MethodPut, Label: "PUT"}},
			DefaultValue: http.MethodPost,
			HelpText:     "HTTP method to use",
		},
		{
			Name:  "contentType",
			Label: "Content Type",
			Type:  config.FieldTypeSelect,
			Options: []config.FieldOption{
				{Value: "application/json", Label: "application/json"},
				{Value: "text/plain", Label: "text/plain"},
			},
			HelpText: "Content-Type header to send",
		},
		{
			Name:     "payloadTemplate",
			Label:    "Payload Template",
			Type:     config.FieldTypeTextarea,
			HelpText: "Optional template used to craft the request body. Use '{{payload}}' as placeholder for the runtime payload.",
		},
	}
}
