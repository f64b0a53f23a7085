package services

import (
	"context"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/mudler/xlog"
	"golang.org/x/sync/errgroup"

	"github.com/coachworks/agentchat/core/action"
	"github.com/coachworks/agentchat/core/types"
	"github.com/coachworks/agentchat/pkg/config"
	"github.com/coachworks/agentchat/services/actions"
)

const (
	ActionSendMail = "send_email"
	ActionWebhook  = "webhook"
	ActionCounter  = "counter"
)

var AvailableActions = []string{
	ActionSendMail,
	ActionWebhook,
	ActionCounter,
}

// ActionsConfigMeta lists the configuration fields of each configurable tool.
var ActionsConfigMeta = map[string]func() []config.Field{
	ActionSendMail: actions.SendMailConfigMeta,
	ActionWebhook:  actions.WebhookConfigMeta,
}

// Action builds one built-in tool from its raw configuration. Tools whose
// required configuration is missing are not built.
func Action(name string, cfg map[string]string) (types.Tool, error) {
	if meta, ok := ActionsConfigMeta[name]; ok {
		cfg = config.WithDefaults(meta(), cfg)
		if err := config.Validate(meta(), cfg); err != nil {
			return nil, err
		}
	}

	switch name {
	case ActionSendMail:
		return actions.NewSendMail(cfg), nil
	case ActionWebhook:
		return actions.NewWebhook(cfg), nil
	case ActionCounter:
		return actions.NewCounter(), nil
	}
	return nil, action.ErrToolNotRegistered
}

// Tools builds the registry: every built-in tool that is configured, then
// the tools of each reachable MCP server. The returned sessions must be
// closed on shutdown.
func Tools(ctx context.Context, c *config.Config) (*action.Registry, []*mcp.ClientSession, error) {
	registry, err := action.NewRegistry()
	if err != nil {
		return nil, nil, err
	}

	for _, name := range AvailableActions {
		t, err := Action(name, c.Tools[name])
		if err != nil {
			xlog.Warn("Tool disabled", "tool", name, "reason", err)
			continue
		}
		if err := registry.Register(t); err != nil {
			return nil, nil, err
		}
	}

	var (
		mu       sync.Mutex
		sessions []*mcp.ClientSession
		remote   []types.Tool
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, url := range c.MCPServers {
		g.Go(func() error {
			session, err := actions.ConnectMCP(gctx, url, c.MCPToken)
			if err != nil {
				xlog.Error("Failed to connect to MCP server", "server", url, "error", err)
				return nil
			}
			tools, err := actions.MCPTools(gctx, session)
			if err != nil {
				xlog.Error("Failed to list MCP tools", "server", url, "error", err)
				session.Close()
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			sessions = append(sessions, session)
			remote = append(remote, tools...)
			return nil
		})
	}
	_ = g.Wait()

	for _, t := range remote {
		if err := registry.Register(t); err != nil {
			xlog.Warn("Skipping MCP tool", "tool", t.Definition().Name, "error", err)
		}
	}

	xlog.Info("Tools registered", "tools", registry.Names())
	return registry, sessions, nil
}
