// Package storymap runs the read, group, name and push stages end to end.
package storymap

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/compozy/storymapper/engine/affinity"
	"github.com/compozy/storymapper/engine/affinity/naming"
	"github.com/compozy/storymapper/engine/connector"
	"github.com/compozy/storymapper/pkg/logger"
)

// Grouper clusters notes into a collection.
type Grouper interface {
	ComputeAffinityGroups(ctx context.Context, notes []string) (*affinity.Collection, error)
}

// Report summarizes one run.
type Report struct {
	RunID  string                `json:"run_id"`
	Notes  int                   `json:"notes"`
	Groups int                   `json:"groups"`
	Labels []string              `json:"labels"`
	Result *connector.PushResult `json:"result,omitempty"`
}

// Pipeline wires the stages. Namer may be nil to keep synthetic labels.
type Pipeline struct {
	Source  Source
	Grouper Grouper
	Namer   naming.Namer
	Sink    Sink
}

// Run executes one pass. Stage errors are wrapped with the stage name.
// A partial push result is still attached to the report on error.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if p.Source == nil || p.Grouper == nil || p.Sink == nil {
		return nil, fmt.Errorf("pipeline requires a source, a grouper and a sink")
	}
	report := &Report{RunID: uuid.NewString(), Labels: []string{}}
	log := logger.FromContext(ctx).With("run_id", report.RunID)
	ctx = logger.ContextWithLogger(ctx, log)
	start := time.Now()

	log.Info("reading notes")
	notes, err := p.Source.Notes(ctx)
	if err != nil {
		return report, fmt.Errorf("read stage: %w", err)
	}
	report.Notes = len(notes)
	if len(notes) == 0 {
		log.Warn("no notes found, nothing to group")
		return report, nil
	}
	log.Info("notes read", "notes", len(notes))

	collection, err := p.Grouper.ComputeAffinityGroups(ctx, notes)
	if err != nil {
		return report, fmt.Errorf("group stage: %w", err)
	}
	report.Groups = collection.Len()
	log.Info("notes grouped", "groups", collection.Len())

	if p.Namer != nil {
		if err := naming.Apply(ctx, p.Namer, collection); err != nil {
			return report, fmt.Errorf("name stage: %w", err)
		}
		log.Info("groups named", "labels", collection.Labels())
	}
	report.Labels = collection.Labels()

	result, err := p.Sink.Push(ctx, collection)
	if result == nil {
		result = &connector.PushResult{}
	}
	report.Result = result
	if err != nil {
		return report, fmt.Errorf("push stage: %w", err)
	}
	log.Info(
		"story map pushed",
		"target", result.Target,
		"epics", len(result.Epics),
		"stories", result.StoryCount(),
		"duration", time.Since(start),
	)
	return report, nil
}
