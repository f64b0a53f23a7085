package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mudler/xlog"
	"gorm.io/gorm"

	"github.com/coachworks/agentchat/core/agent"
	"github.com/coachworks/agentchat/core/state"
	"github.com/coachworks/agentchat/core/store"
	"github.com/coachworks/agentchat/core/types"
	"github.com/coachworks/agentchat/core/usage"
	"github.com/coachworks/agentchat/db"
	"github.com/coachworks/agentchat/pkg/config"
	"github.com/coachworks/agentchat/pkg/llm"
	"github.com/coachworks/agentchat/services"
	"github.com/coachworks/agentchat/webui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		xlog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var gdb *gorm.DB
	if cfg.DB.Enabled() {
		gdb, err = db.ConnectMySQL(cfg.DB.DSN())
		if err != nil {
			panic(err)
		}
	}

	var conversations types.ConversationStore = store.NewMemory()
	var tracker types.UsageTracker = usage.NewMemoryTracker()
	if gdb != nil {
		conversations = db.NewConversationStore(gdb)
		tracker = db.NewUsageTracker(gdb)
	} else {
		xlog.Warn("No database configured, conversations are kept in memory")
	}
	asyncUsage := usage.NewAsyncTracker(tracker)
	defer asyncUsage.Close()

	model, err := newModel(ctx, cfg, asyncUsage)
	if err != nil {
		panic(err)
	}

	tools, sessions, err := services.Tools(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer func() {
		for _, s := range sessions {
			if err := s.Close(); err != nil {
				xlog.Warn("Closing MCP session", "error", err)
			}
		}
	}()

	opts := []agent.Option{
		agent.WithModelTimeout(cfg.ModelTimeout),
		agent.WithToolTimeout(cfg.ToolTimeout),
	}
	if cfg.PlatformName != "" {
		opts = append(opts, agent.WithPlatformName(cfg.PlatformName))
	}
	if cfg.AgentName != "" {
		opts = append(opts, agent.WithAgentName(cfg.AgentName))
	}
	orchestrator, err := agent.New(model, tools, conversations, opts...)
	if err != nil {
		panic(err)
	}

	pool := state.NewPool(cfg.MaxConcurrentRuns, cfg.LockIdle)
	if err := pool.Start(cfg.LockPruneSpec); err != nil {
		panic(err)
	}
	defer pool.Stop()

	app := webui.NewApp(
		webui.WithChat(state.NewAgentChat(conversations, orchestrator, pool)),
		webui.WithTools(tools),
		webui.WithUsage(asyncUsage),
		webui.WithApiKeys(cfg.APIKeys...),
	)

	go func() {
		<-ctx.Done()
		xlog.Info("Shutting down")
		if err := app.Shutdown(); err != nil {
			xlog.Error("Shutdown failed", "error", err)
		}
	}()

	xlog.Info("Listening", "addr", cfg.ListenAddr, "model", cfg.Model, "provider", cfg.Provider, "tools", tools.Names())
	if err := app.Listen(cfg.ListenAddr); err != nil {
		xlog.Error("Server stopped", "error", err)
	}
}

func newModel(ctx context.Context, cfg *config.Config, tracker types.UsageTracker) (types.LanguageModel, error) {
	opts := []llm.Option{
		llm.WithMaxTokens(cfg.MaxTokens),
		llm.WithTemperature(cfg.Temperature),
		llm.WithContextWindow(cfg.ContextWindow),
		llm.WithUsageTracker(tracker),
	}

	models := llm.Models{}
	switch cfg.Provider {
	case llm.ProviderGemini:
		generator, err := llm.NewGeminiGenerator(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		models[llm.ProviderGemini] = llm.NewGeminiModel(generator, cfg.Model, opts...)
	default:
		client := llm.NewClient(cfg.APIKey, cfg.APIURL, cfg.ModelTimeout)
		models[llm.ProviderOpenAI] = llm.NewOpenAIModel(client, cfg.Model, opts...)
	}
	return models.Get(cfg.Provider)
}
