package storymap

import (
	"context"
	"fmt"
	"io"

	"github.com/compozy/storymapper/engine/affinity"
	"github.com/compozy/storymapper/engine/connector"
)

// Sink receives the named collection.
type Sink interface {
	Push(ctx context.Context, collection *affinity.Collection) (*connector.PushResult, error)
}

// Format selects how ConsoleSink renders the tree.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ConsoleSink renders the story tree to a writer.
type ConsoleSink struct {
	Out    io.Writer
	Format Format
}

func (s *ConsoleSink) Push(_ context.Context, collection *affinity.Collection) (*connector.PushResult, error) {
	tree := affinity.BuildTree(collection)
	var err error
	switch s.Format {
	case "", FormatText:
		err = affinity.RenderText(s.Out, tree)
	case FormatJSON:
		err = affinity.RenderJSON(s.Out, tree)
	default:
		return nil, fmt.Errorf("unsupported output format %q", s.Format)
	}
	if err != nil {
		return nil, err
	}
	result := &connector.PushResult{Target: "console", Epics: make([]connector.PushedEpic, 0, len(tree))}
	for _, epic := range tree {
		pushed := connector.PushedEpic{Label: epic.Label, Stories: make([]string, 0, len(epic.Stories))}
		for _, story := range epic.Stories {
			pushed.Stories = append(pushed.Stories, story.Summary)
		}
		result.Epics = append(result.Epics, pushed)
	}
	return result, nil
}
