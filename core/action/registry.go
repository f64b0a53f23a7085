package action

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coachworks/agentchat/core/types"
	"github.com/mudler/xlog"
)

var (
	ErrToolNotRegistered     = errors.New("tool not registered")
	ErrToolAlreadyRegistered = errors.New("tool already registered")
)

// Registry maps tool names to tools. It is filled once at startup and
// only read afterwards.
type Registry struct {
	tools map[string]types.Tool
	order []string
}

func NewRegistry(tools ...types.Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]types.Tool)}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(t types.Tool) error {
	name := t.Definition().Name.String()
	if name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	if _, ok := r.tools[name]; ok {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Lookup(name string) (types.Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotRegistered, name)
	}
	return t, nil
}

// PreviewRequired reports the tool's default approval policy.
// Unknown tools do not require approval; executing them yields a not-found result.
func (r *Registry) PreviewRequired(name string) bool {
	t, ok := r.tools[name]
	return ok && t.PreviewRequired()
}

func (r *Registry) Definitions() []types.ToolDefinition {
	defs := make([]types.ToolDefinition, 0, len(r.order))
	for _, n := range r.order {
		defs = append(defs, r.tools[n].Definition())
	}
	return defs
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Execute runs the named tool with the caller identity injected into its
// inputs. It always returns text; failures are described in it.
func (r *Registry) Execute(ctx context.Context, name string, inputs map[string]string, caller string) (result string) {
	t, err := r.Lookup(name)
	if err != nil {
		xlog.Warn("Tool requested but not registered", "tool", name)
		return fmt.Sprintf("Tool %q is not available. Available tools: %s.", name, strings.Join(r.order, ", "))
	}

	defer func() {
		if rec := recover(); rec != nil {
			xlog.Error("Tool panicked", "tool", name, "panic", rec)
			result = fmt.Sprintf("Tool %q failed unexpectedly.", name)
		}
	}()

	xlog.Debug("Executing tool", "tool", name, "caller", caller)
	return t.Execute(ctx, withCaller(inputs, caller))
}
