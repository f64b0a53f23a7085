package agent

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/coachworks/agentchat/core/types"
)

func templateBase(templateName, templatetext string) (*template.Template, error) {
	return template.New(templateName).Funcs(sprig.FuncMap()).Parse(templatetext)
}

func templateExecute(template *template.Template, data interface{}) (string, error) {
	prompt := bytes.NewBuffer([]byte{})
	err := template.Execute(prompt, data)
	if err != nil {
		return "", err
	}
	return prompt.String(), nil
}

func renderTemplate(name, text string, data any) (string, error) {
	t, err := templateBase(name, text)
	if err != nil {
		return "", fmt.Errorf("parsing %s template: %w", name, err)
	}
	out, err := templateExecute(t, data)
	if err != nil {
		return "", fmt.Errorf("rendering %s template: %w", name, err)
	}
	return out, nil
}

type seedData struct {
	Platform string
	Agent    string
	Operator string
	Tools    []types.ToolDefinition
	Preview  map[string]bool
	Time     string
}

// Seed renders the three system prompts and the greeting every new
// conversation starts with.
func (o *Orchestrator) Seed(operator string) ([]types.Message, error) {
	defs := o.tools.Definitions()
	preview := make(map[string]bool, len(defs))
	for _, d := range defs {
		preview[d.Name.String()] = o.tools.PreviewRequired(d.Name.String())
	}

	data := seedData{
		Platform: o.platformName,
		Agent:    o.agentName,
		Operator: operator,
		Tools:    defs,
		Preview:  preview,
		Time:     time.Now().UTC().Format(time.RFC1123),
	}

	seeds := []struct {
		name, text string
		kind       types.Kind
	}{
		{"platform", platformTemplate, types.KindSystem},
		{"agent", agentTemplate, types.KindSystem},
		{"tools", toolListTemplate, types.KindSystem},
		{"greeting", o.greeting, types.KindAgent},
	}

	out := make([]types.Message, 0, len(seeds))
	for _, s := range seeds {
		text, err := renderTemplate(s.name, s.text, data)
		if err != nil {
			return nil, err
		}
		out = append(out, types.NewMessage(s.kind, text))
	}
	return out, nil
}

const platformTemplate = `You are part of {{.Platform}}, a platform used by coaching staff to follow up with the people they coach.
You talk to the operator, a staff member, never to the person being coached.
Current time: {{.Time}}.

Reply only with JSON of the form {"actions": [...]}. Each action has:
- "type": AGENT to talk to the operator, AGENT_INTERNAL to note reasoning or a plan, TOOL_EXECUTE to call a tool, SWITCH to hand the topic over, MEMORY to record a fact worth keeping.
- "message": the text of the action.
- "tool" and "inputs": only for TOOL_EXECUTE.
- "plan": only for AGENT_INTERNAL, the tool calls you intend to make next.
- "approvalRequired": "true" when the operator must confirm a TOOL_EXECUTE before it runs, "unset" to use the tool default.
Actions run in order. After a tool runs you receive its result and can continue.`

const agentTemplate = `Your name is {{.Agent}}. You assist operator {{.Operator | quote}}.
Be concise and concrete. Never invent tool results; when you need data, call a tool.
If the operator denies a tool call, do not retry it unless asked to.`

const toolListTemplate = `{{- if .Tools -}}
Available tools:
{{- range .Tools }}
- {{ .Name }}: {{ .Description }}{{ if index $.Preview (toString .Name) }} (requires operator approval){{ end }}
{{- with .InputNames }}
  inputs: {{ join ", " . }}
{{- end }}
{{- end }}
{{- else -}}
No tools are available. Answer from the conversation only.
{{- end }}`

const defaultGreeting = `Hi {{.Operator}}, I'm {{.Agent}}. What can I help you with today?`

const defaultDeniedText = "The operator denied the %s tool call. Do not run it; continue without it."
