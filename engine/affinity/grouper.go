package affinity

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/storymapper/pkg/logger"
)

// Embedder turns notes into vectors, one per note, in input order.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Grouper clusters notes into affinity groups.
type Grouper struct {
	embedder Embedder
	params   Params
}

// NewGrouper validates params and returns a grouper bound to embedder.
func NewGrouper(embedder Embedder, params Params) (*Grouper, error) {
	if _, err := params.resolve(); err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, NewConfigError("new grouper", fmt.Errorf("embedder is required"))
	}
	return &Grouper{embedder: embedder, params: params}, nil
}

// Params returns the grouping parameters.
func (g *Grouper) Params() Params {
	return g.params
}

// ComputeAffinityGroups embeds notes, clusters them and returns one group per
// cluster with synthetic labels.
func (g *Grouper) ComputeAffinityGroups(ctx context.Context, notes []string) (*Collection, error) {
	return ComputeAffinityGroups(ctx, g.embedder, notes, g.params)
}

// ComputeAffinityGroups is the functional form of Grouper.ComputeAffinityGroups.
func ComputeAffinityGroups(ctx context.Context, embedder Embedder, notes []string, params Params) (*Collection, error) {
	resolved, err := params.resolve()
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return &Collection{Groups: []*Group{}}, nil
	}
	if embedder == nil {
		return nil, NewConfigError("compute affinity groups", fmt.Errorf("embedder is required"))
	}
	log := logger.FromContext(ctx)
	start := time.Now()
	vectors, err := embedder.EmbedDocuments(ctx, notes)
	if err != nil {
		return nil, NewModelError("embed notes", err)
	}
	if len(vectors) != len(notes) {
		return nil, NewModelError(
			"embed notes",
			fmt.Errorf("received %d embeddings for %d notes", len(vectors), len(notes)),
		)
	}
	log.Debug("notes embedded", "notes", len(notes), "duration", time.Since(start))
	assignment, err := cluster(vectors, resolved)
	if err != nil {
		return nil, NewModelError("agglomerative clustering", err)
	}
	collection := newCollection(notes, assignment)
	log.Debug(
		"notes clustered",
		"mode", resolved.mode,
		"linkage", resolved.linkage,
		"metric", resolved.metric,
		"groups", collection.Len(),
	)
	return collection, nil
}

// cluster builds the full merge tree and cuts it according to the resolved mode.
func cluster(vectors [][]float32, p *resolvedParams) ([]int, error) {
	tree, err := BuildDendrogram(vectors, p.linkage, p.metric)
	if err != nil {
		return nil, err
	}
	switch {
	case p.count != nil:
		return tree.CutByCount(*p.count)
	case p.threshold != nil:
		return tree.CutByDistance(*p.threshold), nil
	default:
		return nil, fmt.Errorf("neither cluster count nor distance threshold is set")
	}
}
