package llm

import (
	"fmt"
	"sort"

	"github.com/coachworks/agentchat/core/types"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Models is a fixed name to model table built at startup.
type Models map[string]types.LanguageModel

func (m Models) Get(name string) (types.LanguageModel, error) {
	model, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("language model %q not configured (have %v)", name, m.Names())
	}
	return model, nil
}

func (m Models) Names() []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
