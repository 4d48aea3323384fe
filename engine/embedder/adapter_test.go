package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"
)

type countingClient struct {
	calls   int
	batches [][]string
	err     error
}

func (c *countingClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.batches = append(c.batches, append([]string(nil), texts...))
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func wrapClient(t *testing.T, client *countingClient, cfg *Config) *Adapter {
	t.Helper()
	impl, err := embeddings.NewEmbedder(client)
	require.NoError(t, err)
	adapter, err := Wrap(cfg, impl)
	require.NoError(t, err)
	return adapter
}

func TestAdapter_EmbedDocuments(t *testing.T) {
	t.Run("Should return one vector per text in order", func(t *testing.T) {
		client := &countingClient{}
		adapter := wrapClient(t, client, &Config{Provider: ProviderOpenAI, Model: "text-embedding-3-small"})

		vectors, err := adapter.EmbedDocuments(t.Context(), []string{"a", "bbb"})

		require.NoError(t, err)
		assert.Equal(t, [][]float32{{1, 1}, {3, 1}}, vectors)
	})

	t.Run("Should not call the model for empty input", func(t *testing.T) {
		client := &countingClient{}
		adapter := wrapClient(t, client, &Config{Provider: ProviderLocal})

		vectors, err := adapter.EmbedDocuments(t.Context(), nil)

		require.NoError(t, err)
		assert.Empty(t, vectors)
		assert.Equal(t, 0, client.calls)
	})

	t.Run("Should include the embedder id and model in errors", func(t *testing.T) {
		cause := errors.New("connection refused")
		adapter := wrapClient(t, &countingClient{err: cause}, &Config{
			ID:       "notes",
			Provider: ProviderOllama,
			Model:    "nomic-embed-text",
		})

		_, err := adapter.EmbedDocuments(t.Context(), []string{"a"})

		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), `embedder "notes"`)
		assert.Contains(t, err.Error(), "nomic-embed-text")
	})
}

func TestAdapter_Cache(t *testing.T) {
	t.Run("Should embed duplicated texts once", func(t *testing.T) {
		client := &countingClient{}
		adapter := wrapClient(t, client, &Config{Provider: ProviderLocal, CacheSize: 16})

		vectors, err := adapter.EmbedDocuments(t.Context(), []string{"pay", "login", "pay"})

		require.NoError(t, err)
		require.Len(t, vectors, 3)
		assert.Equal(t, vectors[0], vectors[2])
		require.Len(t, client.batches, 1)
		assert.Equal(t, []string{"pay", "login"}, client.batches[0])
	})

	t.Run("Should serve repeated runs from the cache", func(t *testing.T) {
		client := &countingClient{}
		adapter := wrapClient(t, client, &Config{Provider: ProviderLocal, CacheSize: 16})

		first, err := adapter.EmbedDocuments(t.Context(), []string{"a", "b"})
		require.NoError(t, err)
		second, err := adapter.EmbedDocuments(t.Context(), []string{"b", "a", "c"})
		require.NoError(t, err)

		assert.Equal(t, first[0], second[1])
		assert.Equal(t, first[1], second[0])
		require.Len(t, client.batches, 2)
		assert.Equal(t, []string{"c"}, client.batches[1])
	})

	t.Run("Should hand out copies of cached vectors", func(t *testing.T) {
		adapter := wrapClient(t, &countingClient{}, &Config{Provider: ProviderLocal, CacheSize: 4})

		first, err := adapter.EmbedDocuments(t.Context(), []string{"a"})
		require.NoError(t, err)
		first[0][0] = 99
		second, err := adapter.EmbedDocuments(t.Context(), []string{"a"})
		require.NoError(t, err)

		assert.Equal(t, float32(1), second[0][0])
	})

	t.Run("Should reject a non positive cache size", func(t *testing.T) {
		adapter := wrapClient(t, &countingClient{}, &Config{Provider: ProviderLocal})
		assert.Error(t, adapter.EnableCache(0))
	})
}

func TestWrap(t *testing.T) {
	t.Run("Should apply defaults", func(t *testing.T) {
		adapter := wrapClient(t, &countingClient{}, &Config{})

		assert.Equal(t, DefaultModel, adapter.Model())
		assert.Equal(t, DefaultBatchSize, adapter.BatchSize())
		assert.Equal(t, "local:"+DefaultModel, adapter.ID())
	})

	t.Run("Should require a model for remote providers", func(t *testing.T) {
		impl, err := embeddings.NewEmbedder(&countingClient{})
		require.NoError(t, err)

		_, err = Wrap(&Config{Provider: ProviderOpenAI}, impl)

		assert.ErrorIs(t, err, errMissingModel)
	})

	t.Run("Should require an implementation", func(t *testing.T) {
		_, err := Wrap(&Config{Provider: ProviderLocal}, nil)
		assert.Error(t, err)
	})
}

func TestNew(t *testing.T) {
	t.Run("Should reject unsupported providers", func(t *testing.T) {
		_, err := New(t.Context(), &Config{Provider: "bedrock", Model: "titan"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `provider "bedrock" is not supported`)
	})

	t.Run("Should reject a negative batch size", func(t *testing.T) {
		_, err := New(t.Context(), &Config{Provider: ProviderOpenAI, Model: "m", BatchSize: -1})
		assert.ErrorIs(t, err, errInvalidBatchSize)
	})
}

func TestShared(t *testing.T) {
	stubBuilds := func(t *testing.T) *int {
		t.Helper()
		builds := 0
		original := buildProvider
		buildProvider = func(_ context.Context, _ *Config, opts ...embeddings.Option) (embeddings.Embedder, error) {
			builds++
			return embeddings.NewEmbedder(&countingClient{}, opts...)
		}
		resetShared()
		t.Cleanup(func() {
			buildProvider = original
			resetShared()
		})
		return &builds
	}

	t.Run("Should build one adapter per model", func(t *testing.T) {
		builds := stubBuilds(t)
		cfg := &Config{Provider: ProviderOllama, Model: "nomic-embed-text", BaseURL: "http://localhost:11434"}

		first, err := Shared(t.Context(), cfg)
		require.NoError(t, err)
		second, err := Shared(t.Context(), cfg)
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, 1, *builds)
	})

	t.Run("Should build separate adapters for different models", func(t *testing.T) {
		builds := stubBuilds(t)

		a, err := Shared(t.Context(), &Config{Provider: ProviderOllama, Model: "a"})
		require.NoError(t, err)
		b, err := Shared(t.Context(), &Config{Provider: ProviderOllama, Model: "b"})
		require.NoError(t, err)

		assert.NotSame(t, a, b)
		assert.Equal(t, 2, *builds)
	})

	t.Run("Should not cache failed builds", func(t *testing.T) {
		stubBuilds(t)

		_, err := Shared(t.Context(), &Config{Provider: ProviderOpenAI})
		require.Error(t, err)
		_, err = Shared(t.Context(), &Config{Provider: ProviderOpenAI, Model: "m"})
		assert.NoError(t, err)
	})
}
