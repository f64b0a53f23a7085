package llm

import (
	"fmt"
	"strings"

	"github.com/coachworks/agentchat/core/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/mudler/xlog"
	"github.com/sashabaranov/go-openai/jsonschema"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultContextWindow is how many of the most recent transcript messages
// are sent to the model. Older messages, seed prompts included, fall out of view.
const DefaultContextWindow = 30

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ModelKinds are the kinds a model may produce.
var ModelKinds = []types.Kind{
	types.KindAgent,
	types.KindAgentInternal,
	types.KindToolExecute,
	types.KindSwitch,
	types.KindMemory,
}

// Role maps a message kind to the chat role it is sent with.
func Role(k types.Kind) string {
	switch k {
	case types.KindUser:
		return RoleUser
	case types.KindAgent, types.KindAgentInternal, types.KindToolExecute, types.KindSwitch:
		return RoleAssistant
	default:
		return RoleSystem
	}
}

// Content renders a message the way the model sees it. Tool requests are
// replayed in the same shape the model emits them.
func Content(m types.Message) string {
	switch {
	case m.Kind == types.KindToolExecute && m.Tool != nil:
		b, err := json.Marshal(map[string]any{
			"type":    m.Kind,
			"message": m.Text,
			"tool":    m.Tool.Name,
			"inputs":  m.Tool.Inputs,
		})
		if err != nil {
			return m.Text
		}
		return string(b)
	case m.Kind == types.KindAgentInternal && len(m.Plan) > 0:
		var sb strings.Builder
		sb.WriteString(m.Text)
		sb.WriteString("\nPlan:")
		for i, s := range m.Plan {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, s.Step)
			if s.Tool != "" {
				fmt.Fprintf(&sb, " (%s)", s.Tool)
			}
		}
		return sb.String()
	}
	return m.Text
}

func kindNames() []string {
	names := make([]string, len(ModelKinds))
	for i, k := range ModelKinds {
		names[i] = string(k)
	}
	return names
}

func inputsSchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type:        jsonschema.Array,
		Description: "Named string arguments for the tool",
		Items: &jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"name":  {Type: jsonschema.String},
				"value": {Type: jsonschema.String},
			},
			Required:             []string{"name", "value"},
			AdditionalProperties: false,
		},
	}
}

// ActionsSchema is the structured output every model call must honor:
// {actions: [{type, message, tool, inputs, plan, approvalRequired}]}.
// Strict mode wants every field present, so optional values are sent
// empty and inputs travel as name/value pairs.
func ActionsSchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"actions": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"type": {
							Type: jsonschema.String,
							Enum: kindNames(),
						},
						"message": {
							Type:        jsonschema.String,
							Description: "Text shown to the operator, or reasoning for internal actions",
						},
						"tool": {
							Type:        jsonschema.String,
							Description: "Tool to call, only for TOOL_EXECUTE",
						},
						"inputs": inputsSchema(),
						"plan": {
							Type:        jsonschema.Array,
							Description: "Upcoming tool calls, only for AGENT_INTERNAL",
							Items: &jsonschema.Definition{
								Type: jsonschema.Object,
								Properties: map[string]jsonschema.Definition{
									"step":   {Type: jsonschema.String},
									"tool":   {Type: jsonschema.String},
									"inputs": inputsSchema(),
								},
								Required:             []string{"step", "tool", "inputs"},
								AdditionalProperties: false,
							},
						},
						"approvalRequired": {
							Type:        jsonschema.String,
							Description: "Whether the operator must approve the tool call before it runs",
							Enum:        []string{"unset", "true", "false"},
						},
					},
					Required:             []string{"type", "message", "tool", "inputs", "plan", "approvalRequired"},
					AdditionalProperties: false,
				},
			},
		},
		Required:             []string{"actions"},
		AdditionalProperties: false,
	}
}

// inputList accepts both the strict name/value pair form and a plain object.
type inputList map[string]string

func (l *inputList) UnmarshalJSON(data []byte) error {
	out := map[string]string{}
	if len(data) > 0 && data[0] == '{' {
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		for k, v := range raw {
			out[k] = stringify(v)
		}
		*l = out
		return nil
	}
	var pairs []struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	}
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	for _, p := range pairs {
		if p.Name != "" {
			out[p.Name] = stringify(p.Value)
		}
	}
	*l = out
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// flag accepts true/false as booleans or strings; anything else is unset.
type flag types.Tristate

func (f *flag) UnmarshalJSON(data []byte) error {
	switch strings.Trim(strings.ToLower(string(data)), `"`) {
	case "true":
		*f = flag(types.True)
	case "false":
		*f = flag(types.False)
	default:
		*f = flag(types.Unset)
	}
	return nil
}

type planItem struct {
	Step   string    `json:"step"`
	Tool   string    `json:"tool"`
	Inputs inputList `json:"inputs"`
}

type actionItem struct {
	Type             string     `json:"type"`
	Message          string     `json:"message"`
	Tool             string     `json:"tool"`
	Inputs           inputList  `json:"inputs"`
	Plan             []planItem `json:"plan"`
	ApprovalRequired flag       `json:"approvalRequired"`
}

type actionsPayload struct {
	Actions []actionItem `json:"actions"`
}

// ParseActions maps the structured model output onto messages, one per
// action, each with a fresh id. Output that cannot be decoded becomes a
// single SYSTEM parse error message.
func ParseActions(content string) []types.Message {
	content = stripFence(content)

	var payload actionsPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		xlog.Warn("Could not parse model output", "error", err, "content", content)
		return []types.Message{types.NewParseError()}
	}

	out := make([]types.Message, 0, len(payload.Actions))
	for _, a := range payload.Actions {
		m, err := a.toMessage()
		if err != nil {
			xlog.Warn("Dropping model action", "error", err, "type", a.Type)
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 && len(payload.Actions) > 0 {
		return []types.Message{types.NewParseError()}
	}
	return out
}

func (a actionItem) toMessage() (types.Message, error) {
	kind := types.Kind(strings.ToUpper(strings.TrimSpace(a.Type)))
	switch kind {
	case types.KindToolExecute:
		if a.Tool == "" {
			return types.Message{}, fmt.Errorf("%w: TOOL_EXECUTE without tool", types.ErrInvalidMessage)
		}
		return types.NewToolExecute(a.Message, a.Tool, a.Inputs, types.Tristate(a.ApprovalRequired)), nil
	case types.KindAgentInternal:
		plan := make([]types.PlanStep, 0, len(a.Plan))
		for _, p := range a.Plan {
			plan = append(plan, types.PlanStep{Step: p.Step, Tool: p.Tool, Inputs: p.Inputs})
		}
		if len(plan) == 0 {
			plan = nil
		}
		return types.NewAgentInternal(a.Message, plan), nil
	case types.KindAgent, types.KindSwitch, types.KindMemory:
		return types.NewMessage(kind, a.Message), nil
	}
	return types.Message{}, fmt.Errorf("%w: kind %q cannot come from the model", types.ErrInvalidMessage, a.Type)
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
