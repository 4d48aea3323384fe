package llm

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const mockLabelWords = 3

// MockLLM answers with the first words of the last human message.
// It makes dry runs deterministic without network access.
type MockLLM struct {
	model string
}

func NewMockLLM(model string) *MockLLM {
	return &MockLLM{model: model}
}

// GenerateContent implements the LLM interface with predictable responses.
func (m *MockLLM) GenerateContent(
	_ context.Context,
	messages []llms.MessageContent,
	_ ...llms.CallOption,
) (*llms.ContentResponse, error) {
	var prompt string
	for _, message := range messages {
		if message.Role != llms.ChatMessageTypeHuman {
			continue
		}
		var b strings.Builder
		for _, part := range message.Parts {
			if text, ok := part.(llms.TextContent); ok {
				b.WriteString(text.Text)
			}
		}
		prompt = b.String()
	}
	words := strings.Fields(prompt)
	if len(words) > mockLabelWords {
		words = words[:mockLabelWords]
	}
	label := strings.Join(words, " ")
	if label == "" {
		label = "Mock theme"
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: label, StopReason: "stop"}},
	}, nil
}

// Call implements the deprecated single prompt interface.
func (m *MockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
