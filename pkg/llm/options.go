package llm

import "github.com/coachworks/agentchat/core/types"

type Option func(*options)

type options struct {
	maxTokens   int
	temperature float32
	window      int
	usage       types.UsageTracker
}

func defaultOptions() *options {
	return &options{
		maxTokens:   1024,
		temperature: 0.2,
		window:      DefaultContextWindow,
	}
}

func newOptions(opts ...Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func WithMaxTokens(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

func WithTemperature(t float32) Option {
	return func(o *options) {
		o.temperature = t
	}
}

// WithContextWindow bounds how many trailing transcript messages are sent.
func WithContextWindow(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.window = n
		}
	}
}

// WithUsageTracker reports token counts of every call against the
// conversation owner.
func WithUsageTracker(t types.UsageTracker) Option {
	return func(o *options) {
		o.usage = t
	}
}
