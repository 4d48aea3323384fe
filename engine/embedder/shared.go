package embedder

import (
	"context"
	"errors"
	"sync"
)

var (
	sharedMu sync.Mutex
	shared   = make(map[string]*Adapter)
)

// Shared returns the process-wide adapter for cfg, building it on first use.
// Adapters are keyed by provider, model and base URL so every grouping run in
// the process reuses one loaded model.
func Shared(ctx context.Context, cfg *Config) (*Adapter, error) {
	if cfg == nil {
		return nil, errors.New("embedder config is required")
	}
	key := cfg.withDefaults().key()
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if a, ok := shared[key]; ok {
		return a, nil
	}
	a, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	shared[key] = a
	return a, nil
}

func resetShared() {
	sharedMu.Lock()
	shared = make(map[string]*Adapter)
	sharedMu.Unlock()
}
