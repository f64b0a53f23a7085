package webui

import (
	"github.com/coachworks/agentchat/core/state"
	"github.com/coachworks/agentchat/core/types"
)

// ToolLister is the read side of the tool registry.
type ToolLister interface {
	Definitions() []types.ToolDefinition
	PreviewRequired(name string) bool
}

type Config struct {
	Chat    *state.AgentChat
	Tools   ToolLister
	Usage   types.UsageTracker
	ApiKeys []string
}

type Option func(*Config)

func WithChat(chat *state.AgentChat) Option {
	return func(c *Config) {
		c.Chat = chat
	}
}

func WithTools(tools ToolLister) Option {
	return func(c *Config) {
		c.Tools = tools
	}
}

func WithUsage(usage types.UsageTracker) Option {
	return func(c *Config) {
		c.Usage = usage
	}
}

func WithApiKeys(keys ...string) Option {
	return func(c *Config) {
		c.ApiKeys = append(c.ApiKeys, keys...)
	}
}

func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

func NewConfig(opts ...Option) *Config {
	c := &Config{}
	c.Apply(opts...)
	return c
}
