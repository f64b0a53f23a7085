package actions

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/mudler/xlog"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/coachworks/agentchat/core/action"
	"github.com/coachworks/agentchat/core/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// bearerTokenRoundTripper injects a bearer token into HTTP requests
type bearerTokenRoundTripper struct {
	token string
	base  http.RoundTripper
}

func (rt *bearerTokenRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.token != "" {
		req.Header.Set("Authorization", "Bearer "+rt.token)
	}
	return rt.base.RoundTrip(req)
}

func newBearerTokenRoundTripper(token string, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &bearerTokenRoundTripper{
		token: token,
		base:  base,
	}
}

// ConnectMCP opens a session with an MCP server over the streamable HTTP
// transport.
func ConnectMCP(ctx context.Context, url, token string) (*mcp.ClientSession, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "agentchat", Version: "v1.0.0"}, nil)

	httpclient := &http.Client{
		Timeout:   360 * time.Second,
		Transport: newBearerTokenRoundTripper(token, http.DefaultTransport),
	}
	transport := &mcp.StreamableClientTransport{Endpoint: url, HTTPClient: httpclient}

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to MCP server %s: %w", url, err)
	}
	return session, nil
}

// MCPTools lists the tools a session offers. Remote tools may have side
// effects nobody declared, so they all require approval.
func MCPTools(ctx context.Context, session *mcp.ClientSession) ([]types.Tool, error) {
	res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("listing MCP tools: %w", err)
	}

	tools := make([]types.Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		def, err := mcpDefinition(t)
		if err != nil {
			xlog.Warn("Skipping MCP tool with unreadable schema", "tool", t.Name, "error", err)
			continue
		}
		tools = append(tools, &MCPAction{session: session, definition: def})
	}
	return tools, nil
}

func mcpDefinition(t *mcp.Tool) (types.ToolDefinition, error) {
	def := types.ToolDefinition{
		Name:        types.ToolName(t.Name),
		Description: t.Description,
	}
	if t.InputSchema == nil {
		return def, nil
	}

	raw, err := json.Marshal(t.InputSchema)
	if err != nil {
		return def, err
	}
	var schema struct {
		Properties map[string]jsonschema.Definition `json:"properties"`
		Required   []string                         `json:"required"`
	}
	if err := json.Unmarshal(raw, &schema); err != nil {
		return def, err
	}
	def.Properties = schema.Properties
	def.Required = schema.Required
	return def, nil
}

type MCPAction struct {
	session    *mcp.ClientSession
	definition types.ToolDefinition
}

func (m *MCPAction) Definition() types.ToolDefinition { return m.definition }

func (m *MCPAction) PreviewRequired() bool { return true }

func (m *MCPAction) Execute(ctx context.Context, inputs map[string]string) string {
	params := action.Params(inputs)
	args := make(map[string]any, len(params))
	for k, v := range params {
		if k != action.CallerKey {
			args[k] = v
		}
	}

	name := m.definition.Name.String()
	res, err := m.session.CallTool(ctx, &mcp.CallToolParams{
		Meta:      mcp.Meta{"caller": params.Caller()},
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		xlog.Error("MCP tool call failed", "tool", name, "error", err)
		return fmt.Sprintf("Tool %q failed: %v", name, err)
	}

	var sb strings.Builder
	for _, c := range res.Content {
		if text, ok := c.(*mcp.TextContent); ok {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(text.Text)
		}
	}
	if res.IsError {
		return fmt.Sprintf("Tool %q reported an error: %s", name, sb.String())
	}
	if sb.Len() == 0 {
		return fmt.Sprintf("Tool %q returned no text.", name)
	}
	return sb.String()
}
