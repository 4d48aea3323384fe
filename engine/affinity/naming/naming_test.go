package naming

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/compozy/storymapper/engine/affinity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type scriptedModel struct {
	replies  []string
	errs     []error
	calls    int
	messages [][]llms.MessageContent
}

func (m *scriptedModel) GenerateContent(
	_ context.Context,
	messages []llms.MessageContent,
	_ ...llms.CallOption,
) (*llms.ContentResponse, error) {
	idx := m.calls
	m.calls++
	m.messages = append(m.messages, messages)
	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if idx >= len(m.replies) {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.replies[idx]}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func textOf(msg llms.MessageContent) string {
	var b strings.Builder
	for _, part := range msg.Parts {
		if text, ok := part.(llms.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}

// wordEncoder tokenizes on whitespace so truncation can be tested offline.
type wordEncoder struct {
	words []string
}

func (e *wordEncoder) Encode(text string, _ []string, _ []string) []int {
	e.words = strings.Fields(text)
	out := make([]int, len(e.words))
	for i := range e.words {
		out[i] = i
	}
	return out
}

func (e *wordEncoder) Decode(tokens []int) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = e.words[tok]
	}
	return strings.Join(parts, " ")
}

func group(id int, notes ...string) *affinity.Group {
	return &affinity.Group{ID: id, Label: affinity.SyntheticLabel(id), Notes: notes}
}

func TestSynthetic(t *testing.T) {
	t.Run("Should name groups after their cluster id", func(t *testing.T) {
		label, err := Synthetic{}.Name(t.Context(), group(3, "a"))
		require.NoError(t, err)
		assert.Equal(t, "Cluster 3", label)
	})
}

func TestParseMode(t *testing.T) {
	t.Run("Should accept known modes", func(t *testing.T) {
		for in, want := range map[string]Mode{"": ModeSynthetic, "synthetic": ModeSynthetic, " LLM ": ModeLLM} {
			got, err := ParseMode(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("Should reject unknown modes as config errors", func(t *testing.T) {
		_, err := ParseMode("oracle")
		assert.ErrorIs(t, err, affinity.ErrConfig)
	})
}

func TestLLM_Name(t *testing.T) {
	t.Run("Should send the instruction and the joined passage", func(t *testing.T) {
		model := &scriptedModel{replies: []string{"  \"Sign in\"\n"}}
		namer, err := NewLLM(model, LLMConfig{})
		require.NoError(t, err)

		label, err := namer.Name(t.Context(), group(0, "login with email", "reset password"))

		require.NoError(t, err)
		assert.Equal(t, "Sign in", label)
		require.Len(t, model.messages, 1)
		require.Len(t, model.messages[0], 2)
		assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0][0].Role)
		assert.Equal(t, Instruction, textOf(model.messages[0][0]))
		assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[0][1].Role)
		assert.Equal(t, "login with email\nreset password", textOf(model.messages[0][1]))
	})

	t.Run("Should honour a custom separator", func(t *testing.T) {
		model := &scriptedModel{replies: []string{"Checkout"}}
		namer, err := NewLLM(model, LLMConfig{Separator: " | "})
		require.NoError(t, err)

		_, err = namer.Name(t.Context(), group(1, "pay", "refund"))

		require.NoError(t, err)
		assert.Equal(t, "pay | refund", textOf(model.messages[0][1]))
	})

	t.Run("Should fail with a naming error on provider failure", func(t *testing.T) {
		cause := errors.New("503 service unavailable")
		namer, err := NewLLM(&scriptedModel{errs: []error{cause}}, LLMConfig{})
		require.NoError(t, err)

		_, err = namer.Name(t.Context(), group(0, "a"))

		assert.ErrorIs(t, err, affinity.ErrNaming)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("Should fail when the model returns no choices", func(t *testing.T) {
		namer, err := NewLLM(&scriptedModel{}, LLMConfig{})
		require.NoError(t, err)

		_, err = namer.Name(t.Context(), group(0, "a"))

		assert.ErrorIs(t, err, affinity.ErrNaming)
	})

	t.Run("Should fail when the label is blank after trimming", func(t *testing.T) {
		namer, err := NewLLM(&scriptedModel{replies: []string{" \"\" "}}, LLMConfig{})
		require.NoError(t, err)

		_, err = namer.Name(t.Context(), group(0, "a"))

		assert.ErrorIs(t, err, affinity.ErrNaming)
	})

	t.Run("Should require a model", func(t *testing.T) {
		_, err := NewLLM(nil, LLMConfig{})
		assert.ErrorIs(t, err, affinity.ErrConfig)
	})
}

func TestLLM_PromptBudget(t *testing.T) {
	t.Run("Should truncate the passage to the token budget", func(t *testing.T) {
		model := &scriptedModel{replies: []string{"Theme"}}
		namer, err := NewLLM(model, LLMConfig{Separator: " ", MaxPromptTokens: 3})
		require.NoError(t, err)
		namer.loadEncoder = func(string) (tokenEncoder, error) { return &wordEncoder{}, nil }

		_, err = namer.Name(t.Context(), group(0, "one two", "three four five"))

		require.NoError(t, err)
		assert.Equal(t, "one two three", textOf(model.messages[0][1]))
	})

	t.Run("Should keep short passages unchanged", func(t *testing.T) {
		model := &scriptedModel{replies: []string{"Theme"}}
		namer, err := NewLLM(model, LLMConfig{MaxPromptTokens: 10})
		require.NoError(t, err)
		namer.loadEncoder = func(string) (tokenEncoder, error) { return &wordEncoder{}, nil }

		_, err = namer.Name(t.Context(), group(0, "a", "b"))

		require.NoError(t, err)
		assert.Equal(t, "a\nb", textOf(model.messages[0][1]))
	})

	t.Run("Should send the passage untruncated when the encoder cannot load", func(t *testing.T) {
		model := &scriptedModel{replies: []string{"Theme"}}
		namer, err := NewLLM(model, LLMConfig{MaxPromptTokens: 1})
		require.NoError(t, err)
		namer.loadEncoder = func(string) (tokenEncoder, error) { return nil, errors.New("offline") }

		_, err = namer.Name(t.Context(), group(0, "a", "b"))

		require.NoError(t, err)
		assert.Equal(t, "a\nb", textOf(model.messages[0][1]))
	})

	t.Run("Should reject a negative budget", func(t *testing.T) {
		_, err := NewLLM(&scriptedModel{}, LLMConfig{MaxPromptTokens: -1})
		assert.ErrorIs(t, err, affinity.ErrConfig)
	})
}

func TestApply(t *testing.T) {
	t.Run("Should write labels back in cluster order", func(t *testing.T) {
		model := &scriptedModel{replies: []string{"Sign in", "Checkout"}}
		namer, err := NewLLM(model, LLMConfig{})
		require.NoError(t, err)
		c := &affinity.Collection{Groups: []*affinity.Group{group(0, "login"), group(1, "pay")}}

		require.NoError(t, Apply(t.Context(), namer, c))

		assert.Equal(t, []string{"Sign in", "Checkout"}, c.Labels())
		assert.Equal(t, "login", textOf(model.messages[0][1]))
		assert.Equal(t, "pay", textOf(model.messages[1][1]))
	})

	t.Run("Should disambiguate colliding labels", func(t *testing.T) {
		model := &scriptedModel{replies: []string{"Checkout", "Checkout", "Sign in", "Checkout"}}
		namer, err := NewLLM(model, LLMConfig{})
		require.NoError(t, err)
		c := &affinity.Collection{Groups: []*affinity.Group{
			group(0, "a"), group(1, "b"), group(2, "c"), group(3, "d"),
		}}

		require.NoError(t, Apply(t.Context(), namer, c))

		assert.Equal(t, []string{"Checkout", "Checkout (2)", "Sign in", "Checkout (3)"}, c.Labels())
		assert.Len(t, c.Map(), 4)
	})

	t.Run("Should keep synthetic labels with the synthetic namer", func(t *testing.T) {
		c := &affinity.Collection{Groups: []*affinity.Group{group(0, "a"), group(1, "b")}}

		require.NoError(t, Apply(t.Context(), Synthetic{}, c))

		assert.Equal(t, []string{"Cluster 0", "Cluster 1"}, c.Labels())
	})

	t.Run("Should abort with a naming error", func(t *testing.T) {
		model := &scriptedModel{replies: []string{"Sign in"}, errs: []error{nil, errors.New("boom")}}
		namer, err := NewLLM(model, LLMConfig{})
		require.NoError(t, err)
		c := &affinity.Collection{Groups: []*affinity.Group{group(0, "a"), group(1, "b"), group(2, "c")}}

		err = Apply(t.Context(), namer, c)

		assert.ErrorIs(t, err, affinity.ErrNaming)
		assert.Equal(t, 2, model.calls)
	})

	t.Run("Should classify foreign namer errors", func(t *testing.T) {
		c := &affinity.Collection{Groups: []*affinity.Group{group(0, "a")}}

		err := Apply(t.Context(), failingNamer{}, c)

		assert.ErrorIs(t, err, affinity.ErrNaming)
	})
}

type failingNamer struct{}

func (failingNamer) Name(context.Context, *affinity.Group) (string, error) {
	return "", errors.New("no label")
}

func TestResilient(t *testing.T) {
	fast := RetryPolicy{Attempts: 2, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	t.Run("Should retry until the namer succeeds", func(t *testing.T) {
		model := &scriptedModel{replies: []string{"", "", "Checkout"}, errs: []error{errors.New("429"), errors.New("429")}}
		inner, err := NewLLM(model, LLMConfig{})
		require.NoError(t, err)

		label, err := NewResilient(inner, fast).Name(t.Context(), group(0, "pay"))

		require.NoError(t, err)
		assert.Equal(t, "Checkout", label)
		assert.Equal(t, 3, model.calls)
	})

	t.Run("Should make a single attempt with the zero policy", func(t *testing.T) {
		model := &scriptedModel{errs: []error{errors.New("boom")}}
		inner, err := NewLLM(model, LLMConfig{})
		require.NoError(t, err)

		_, err = NewResilient(inner, RetryPolicy{}).Name(t.Context(), group(0, "pay"))

		assert.ErrorIs(t, err, affinity.ErrNaming)
		assert.Equal(t, 1, model.calls)
	})

	t.Run("Should fall back to the synthetic label after the final failure", func(t *testing.T) {
		policy := fast
		policy.FallbackToSynthetic = true
		model := &scriptedModel{errs: []error{errors.New("a"), errors.New("b"), errors.New("c")}}
		inner, err := NewLLM(model, LLMConfig{})
		require.NoError(t, err)

		label, err := NewResilient(inner, policy).Name(t.Context(), group(4, "pay"))

		require.NoError(t, err)
		assert.Equal(t, "Cluster 4", label)
		assert.Equal(t, 3, model.calls)
	})

	t.Run("Should not fall back when the context is canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		policy := fast
		policy.FallbackToSynthetic = true

		_, err := NewResilient(failingNamer{}, policy).Name(ctx, group(0, "a"))

		assert.Error(t, err)
	})
}

func TestBuild(t *testing.T) {
	t.Run("Should build the synthetic namer without a model", func(t *testing.T) {
		namer, err := Build(ModeSynthetic, nil, LLMConfig{}, RetryPolicy{})
		require.NoError(t, err)
		assert.IsType(t, Synthetic{}, namer)
	})

	t.Run("Should wrap the llm namer with the retry policy", func(t *testing.T) {
		namer, err := Build(ModeLLM, &scriptedModel{replies: []string{"x"}}, LLMConfig{}, RetryPolicy{})
		require.NoError(t, err)
		assert.IsType(t, &Resilient{}, namer)
	})

	t.Run("Should require a model in llm mode", func(t *testing.T) {
		_, err := Build(ModeLLM, nil, LLMConfig{}, RetryPolicy{})
		assert.ErrorIs(t, err, affinity.ErrConfig)
	})
}
