package agent

import (
	"fmt"
	"time"
)

type Option func(*options) error

type options struct {
	modelTimeout time.Duration
	toolTimeout  time.Duration
	platformName string
	agentName    string
	greeting     string
	deniedText   string
}

func defaultOptions() *options {
	return &options{
		modelTimeout: 2 * time.Minute,
		toolTimeout:  time.Minute,
		platformName: "Coachworks",
		agentName:    "Coach Assistant",
		greeting:     defaultGreeting,
		deniedText:   defaultDeniedText,
	}
}

func newOptions(opts ...Option) (*options, error) {
	options := defaultOptions()
	for _, o := range opts {
		if err := o(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

func parseTimeout(timeout string) (time.Duration, error) {
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", timeout)
	}
	return d, nil
}

// WithModelTimeout bounds each language model call. Accepts durations like "90s".
func WithModelTimeout(timeout string) Option {
	return func(o *options) error {
		d, err := parseTimeout(timeout)
		if err != nil {
			return err
		}
		o.modelTimeout = d
		return nil
	}
}

// WithToolTimeout bounds each tool call.
func WithToolTimeout(timeout string) Option {
	return func(o *options) error {
		d, err := parseTimeout(timeout)
		if err != nil {
			return err
		}
		o.toolTimeout = d
		return nil
	}
}

func WithPlatformName(name string) Option {
	return func(o *options) error {
		if name != "" {
			o.platformName = name
		}
		return nil
	}
}

func WithAgentName(name string) Option {
	return func(o *options) error {
		if name != "" {
			o.agentName = name
		}
		return nil
	}
}

// WithGreeting overrides the greeting template. It is rendered with the
// same data as the seed prompts.
func WithGreeting(greeting string) Option {
	return func(o *options) error {
		if greeting == "" {
			return fmt.Errorf("greeting cannot be empty")
		}
		o.greeting = greeting
		return nil
	}
}
