package actions

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/coachworks/agentchat/core/action"
	"github.com/coachworks/agentchat/core/types"
)

// CounterAction keeps named counters per operator, e.g. sessions held
// this week. Operators only ever see their own counters.
type CounterAction struct {
	counters map[string]map[string]int
	mutex    sync.Mutex
}

func NewCounter() *CounterAction {
	return &CounterAction{
		counters: make(map[string]map[string]int),
	}
}

func (a *CounterAction) Definition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "counter",
		Description: "Create, update, or query named counters. Specify a name and an adjustment value (positive to increase, negative to decrease, zero to query).",
		Properties: map[string]jsonschema.Definition{
			"name": {
				Type:        jsonschema.String,
				Description: "The name of the counter to create, update, or query.",
			},
			"adjustment": {
				Type:        jsonschema.Integer,
				Description: "The value to adjust the counter by. Positive to increase, negative to decrease, zero to query the current value.",
			},
		},
		Required: []string{"name"},
	}
}

func (a *CounterAction) PreviewRequired() bool { return false }

func (a *CounterAction) Execute(_ context.Context, inputs map[string]string) string {
	params := action.Params(inputs)
	owner := params.Caller()
	name := strings.TrimSpace(params["name"])
	if name == "" {
		return "Counter name cannot be empty."
	}

	adjustment := 0
	if raw := strings.TrimSpace(params["adjustment"]); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Sprintf("Invalid adjustment %q: it must be a whole number.", raw)
		}
		adjustment = n
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	counters, ok := a.counters[owner]
	if !ok {
		counters = make(map[string]int)
		a.counters[owner] = counters
	}

	currentValue, exists := counters[name]
	newValue := currentValue + adjustment
	counters[name] = newValue

	switch {
	case !exists:
		return fmt.Sprintf("Created counter '%s' with initial value %d", name, newValue)
	case adjustment > 0:
		return fmt.Sprintf("Increased counter '%s' by %d to %d", name, adjustment, newValue)
	case adjustment < 0:
		return fmt.Sprintf("Decreased counter '%s' by %d to %d", name, -adjustment, newValue)
	default:
		return fmt.Sprintf("Current value of counter '%s' is %d", name, newValue)
	}
}
