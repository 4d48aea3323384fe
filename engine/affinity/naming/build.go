package naming

import (
	"fmt"

	"github.com/compozy/storymapper/engine/affinity"
	"github.com/tmc/langchaingo/llms"
)

// Build assembles the namer for mode. model is only required in llm mode.
func Build(mode Mode, model llms.Model, config LLMConfig, policy RetryPolicy) (Namer, error) {
	switch mode {
	case "", ModeSynthetic:
		return Synthetic{}, nil
	case ModeLLM:
		namer, err := NewLLM(model, config)
		if err != nil {
			return nil, err
		}
		return NewResilient(namer, policy), nil
	default:
		return nil, affinity.NewConfigError("build namer", fmt.Errorf("unknown naming mode %q", mode))
	}
}
