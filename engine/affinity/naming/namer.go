// Package naming turns affinity groups into human readable labels.
package naming

import (
	"context"
	"fmt"
	"strings"

	"github.com/compozy/storymapper/engine/affinity"
)

// Namer produces a label for one group.
type Namer interface {
	Name(ctx context.Context, group *affinity.Group) (string, error)
}

// Mode selects the naming strategy.
type Mode string

const (
	// ModeSynthetic keeps the "Cluster <id>" labels.
	ModeSynthetic Mode = "synthetic"
	// ModeLLM asks a chat model for a short activity phrase.
	ModeLLM Mode = "llm"
)

// ParseMode converts a config value into a Mode. Empty means synthetic.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSynthetic:
		return ModeSynthetic, nil
	case ModeLLM:
		return ModeLLM, nil
	default:
		return "", affinity.NewConfigError("parse naming mode", fmt.Errorf("unknown naming mode %q", s))
	}
}

// Synthetic names groups after their cluster id.
type Synthetic struct{}

func (Synthetic) Name(_ context.Context, group *affinity.Group) (string, error) {
	if group == nil {
		return "", affinity.NewNamingError("synthetic name", fmt.Errorf("group is nil"))
	}
	return affinity.SyntheticLabel(group.ID), nil
}
