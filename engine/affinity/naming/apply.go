package naming

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/storymapper/engine/affinity"
	"github.com/compozy/storymapper/pkg/logger"
)

// Apply names every group in ascending cluster id and writes the labels back.
// A repeated label gets a " (n)" suffix so distinct clusters stay distinct.
func Apply(ctx context.Context, namer Namer, collection *affinity.Collection) error {
	if namer == nil {
		return affinity.NewConfigError("apply names", fmt.Errorf("namer is required"))
	}
	if collection == nil {
		return nil
	}
	log := logger.FromContext(ctx)
	seen := make(map[string]int, len(collection.Groups))
	for _, group := range collection.Groups {
		label, err := namer.Name(ctx, group)
		if err != nil {
			if errors.Is(err, affinity.ErrNaming) {
				return err
			}
			return affinity.NewNamingError(fmt.Sprintf("name cluster %d", group.ID), err)
		}
		label = uniqueLabel(seen, label)
		log.Debug("group named", "cluster", group.ID, "label", label, "notes", len(group.Notes))
		group.Label = label
	}
	return nil
}

func uniqueLabel(seen map[string]int, label string) string {
	seen[label]++
	if seen[label] == 1 {
		return label
	}
	for {
		candidate := fmt.Sprintf("%s (%d)", label, seen[label])
		if _, taken := seen[candidate]; !taken {
			seen[candidate] = 1
			return candidate
		}
		seen[label]++
	}
}
