package naming

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/compozy/storymapper/engine/affinity"
	"github.com/compozy/storymapper/pkg/logger"
	"github.com/tmc/langchaingo/llms"
)

// Instruction is the system message sent with every naming request.
const Instruction = "Summarize the main theme of the following sticky notes as a short activity phrase. " +
	"Reply with the phrase only."

// DefaultSeparator joins notes into the passage.
const DefaultSeparator = "\n"

const labelCutset = "\"'`“”‘’"

// LLMConfig tunes the chat request.
type LLMConfig struct {
	// Model is used to pick the token encoding. It does not select the provider.
	Model       string
	Separator   string
	Temperature float64
	MaxTokens   int
	// MaxPromptTokens truncates the passage when positive.
	MaxPromptTokens int
}

// LLM names groups with a langchaingo chat model.
type LLM struct {
	model  llms.Model
	config LLMConfig

	encoderOnce sync.Once
	encoder     tokenEncoder
	encoderErr  error
	loadEncoder func(model string) (tokenEncoder, error)
}

// NewLLM returns a namer backed by model.
func NewLLM(model llms.Model, config LLMConfig) (*LLM, error) {
	if model == nil {
		return nil, affinity.NewConfigError("new llm namer", fmt.Errorf("chat model is required"))
	}
	if config.Separator == "" {
		config.Separator = DefaultSeparator
	}
	if config.MaxPromptTokens < 0 {
		return nil, affinity.NewConfigError(
			"new llm namer",
			fmt.Errorf("max prompt tokens must be non-negative, got %d", config.MaxPromptTokens),
		)
	}
	return &LLM{model: model, config: config, loadEncoder: loadTiktoken}, nil
}

// Name joins the group's notes into one passage and returns the model's phrase.
func (n *LLM) Name(ctx context.Context, group *affinity.Group) (string, error) {
	if group == nil {
		return "", affinity.NewNamingError("llm name", fmt.Errorf("group is nil"))
	}
	passage := n.passage(ctx, group.Notes)
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, Instruction),
		llms.TextParts(llms.ChatMessageTypeHuman, passage),
	}
	resp, err := n.model.GenerateContent(ctx, messages, n.callOptions()...)
	if err != nil {
		return "", affinity.NewNamingError(fmt.Sprintf("name cluster %d", group.ID), err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", affinity.NewNamingError(
			fmt.Sprintf("name cluster %d", group.ID),
			fmt.Errorf("model returned no choices"),
		)
	}
	label := cleanLabel(resp.Choices[0].Content)
	if label == "" {
		return "", affinity.NewNamingError(
			fmt.Sprintf("name cluster %d", group.ID),
			fmt.Errorf("model returned an empty label"),
		)
	}
	return label, nil
}

func (n *LLM) callOptions() []llms.CallOption {
	var options []llms.CallOption
	if n.config.Temperature > 0 {
		options = append(options, llms.WithTemperature(n.config.Temperature))
	}
	if n.config.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(n.config.MaxTokens))
	}
	return options
}

func (n *LLM) passage(ctx context.Context, notes []string) string {
	text := strings.Join(notes, n.config.Separator)
	if n.config.MaxPromptTokens <= 0 {
		return text
	}
	n.encoderOnce.Do(func() {
		n.encoder, n.encoderErr = n.loadEncoder(n.config.Model)
	})
	if n.encoderErr != nil {
		logger.FromContext(ctx).Warn(
			"token encoder unavailable, sending passage untruncated",
			"model", n.config.Model,
			"error", n.encoderErr,
		)
		return text
	}
	return truncateTokens(n.encoder, text, n.config.MaxPromptTokens)
}

func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, labelCutset)
	return strings.TrimSpace(s)
}
