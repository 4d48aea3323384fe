package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/compozy/storymapper/engine/affinity"
	"github.com/compozy/storymapper/engine/affinity/naming"
	"github.com/compozy/storymapper/engine/connector/httpclient"
	"github.com/compozy/storymapper/engine/connector/jira"
	"github.com/compozy/storymapper/engine/connector/miro"
	"github.com/compozy/storymapper/engine/connector/storiesonboard"
	"github.com/compozy/storymapper/engine/embedder"
	"github.com/compozy/storymapper/engine/llm"
	"github.com/compozy/storymapper/engine/storymap"
	"github.com/compozy/storymapper/pkg/config"
)

// Source and sink kinds accepted by the run command.
const (
	SourceMiro = "miro"
	SourceFile = "file"

	SinkConsole        = "console"
	SinkJira           = "jira"
	SinkStoriesOnBoard = "storiesonboard"
)

// newEmbedder is replaced in tests to avoid loading a real model.
var newEmbedder = func(ctx context.Context, cfg *embedder.Config) (affinity.Embedder, error) {
	adapter, err := embedder.Shared(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

// newChatModel is replaced in tests to avoid calling a provider.
var newChatModel = llm.NewModel

func groupingParams(cfg *config.Config) affinity.Params {
	return affinity.Params{
		Mode:              affinity.Mode(cfg.Grouping.Mode),
		ClusterCount:      cfg.Grouping.ClusterCount,
		DistanceThreshold: cfg.Grouping.DistanceThreshold,
		Linkage:           affinity.Linkage(cfg.Grouping.Linkage),
		Metric:            affinity.Metric(cfg.Grouping.Metric),
	}
}

func embedderConfig(cfg *config.Config) *embedder.Config {
	return &embedder.Config{
		Provider:      embedder.Provider(cfg.Embedder.Provider),
		Model:         cfg.Embedder.Model,
		APIKey:        cfg.Embedder.APIKey.Value(),
		BaseURL:       cfg.Embedder.BaseURL,
		BatchSize:     cfg.Embedder.BatchSize,
		StripNewLines: cfg.Embedder.StripNewLines,
		CacheSize:     cfg.Embedder.CacheSize,
		ModelsDir:     cfg.Embedder.ModelsDir,
	}
}

func httpConfig(cfg *config.Config) httpclient.Config {
	return httpclient.Config{
		Timeout:      cfg.HTTP.Timeout,
		RetryCount:   cfg.HTTP.RetryCount,
		RetryWait:    cfg.HTTP.RetryWait,
		RetryMaxWait: cfg.HTTP.RetryMaxWait,
	}
}

func buildGrouper(ctx context.Context, cfg *config.Config) (*affinity.Grouper, error) {
	params := groupingParams(cfg)
	emb, err := newEmbedder(ctx, embedderConfig(cfg))
	if err != nil {
		return nil, err
	}
	return affinity.NewGrouper(emb, params)
}

// buildNamer returns the synthetic namer unless llm mode is configured.
func buildNamer(ctx context.Context, cfg *config.Config) (naming.Namer, error) {
	mode, err := naming.ParseMode(cfg.Naming.Mode)
	if err != nil {
		return nil, err
	}
	if mode == naming.ModeSynthetic {
		return naming.Synthetic{}, nil
	}
	model, err := newChatModel(ctx, &llm.ProviderConfig{
		Provider: llm.Provider(cfg.Naming.Provider),
		Model:    cfg.Naming.Model,
		APIKey:   cfg.Naming.APIKey.Value(),
		APIURL:   cfg.Naming.BaseURL,
	})
	if err != nil {
		return nil, affinity.NewConfigError("build chat model", err)
	}
	attempts := uint64(0)
	if cfg.Naming.RetryAttempts > 0 {
		attempts = uint64(cfg.Naming.RetryAttempts)
	}
	return naming.Build(mode, model, naming.LLMConfig{
		Model:           cfg.Naming.Model,
		Separator:       cfg.Naming.Separator,
		Temperature:     cfg.Naming.Temperature,
		MaxTokens:       cfg.Naming.MaxTokens,
		MaxPromptTokens: cfg.Naming.MaxPromptTokens,
	}, naming.RetryPolicy{
		Attempts:            attempts,
		Backoff:             cfg.Naming.RetryBackoff,
		MaxBackoff:          cfg.Naming.RetryMaxBackoff,
		Jitter:              true,
		FallbackToSynthetic: cfg.Naming.FallbackToSynthetic,
	})
}

func newMiroReader(cfg *config.Config) (*miro.Reader, error) {
	return miro.NewReader(miro.Config{
		BaseURL:     cfg.Miro.BaseURL,
		AccessToken: cfg.Miro.AccessToken.Value(),
		BoardID:     cfg.Miro.BoardID,
		PageLimit:   cfg.Miro.PageLimit,
		HTTP:        httpConfig(cfg),
	})
}

func buildSource(cfg *config.Config, kind, input string, stdin io.Reader) (storymap.Source, error) {
	switch kind {
	case SourceMiro:
		reader, err := newMiroReader(cfg)
		if err != nil {
			return nil, err
		}
		return reader, nil
	case SourceFile:
		return &storymap.FileSource{Path: input, Reader: stdin}, nil
	default:
		return nil, fmt.Errorf("unsupported source %q (expected %s or %s)", kind, SourceMiro, SourceFile)
	}
}

func buildSink(cfg *config.Config, kind, format string, out io.Writer) (storymap.Sink, error) {
	switch kind {
	case SinkConsole:
		return &storymap.ConsoleSink{Out: out, Format: storymap.Format(format)}, nil
	case SinkJira:
		writer, err := jira.NewWriter(jira.Config{
			BaseURL:         cfg.Jira.BaseURL,
			User:            cfg.Jira.User,
			APIToken:        cfg.Jira.APIToken.Value(),
			ProjectKey:      cfg.Jira.ProjectKey,
			Labels:          cfg.Jira.Labels,
			EpicDescription: cfg.Jira.EpicDescription,
			HTTP:            httpConfig(cfg),
		})
		if err != nil {
			return nil, err
		}
		return writer, nil
	case SinkStoriesOnBoard:
		writer, err := storiesonboard.NewWriter(storiesonboard.Config{
			BaseURL: cfg.StoriesOnBoard.BaseURL,
			APIKey:  cfg.StoriesOnBoard.APIKey.Value(),
			BoardID: cfg.StoriesOnBoard.BoardID,
			HTTP:    httpConfig(cfg),
		})
		if err != nil {
			return nil, err
		}
		return writer, nil
	default:
		return nil, fmt.Errorf(
			"unsupported sink %q (expected %s, %s or %s)",
			kind, SinkConsole, SinkJira, SinkStoriesOnBoard,
		)
	}
}
