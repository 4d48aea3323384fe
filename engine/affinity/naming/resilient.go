package naming

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/storymapper/engine/affinity"
	"github.com/compozy/storymapper/pkg/logger"
	"github.com/sethvargo/go-retry"
)

const (
	defaultRetryBackoff    = 200 * time.Millisecond
	defaultRetryMaxBackoff = 5 * time.Second
	retryJitter            = 50 * time.Millisecond
)

// RetryPolicy configures Resilient. The zero value is a single attempt with no fallback.
type RetryPolicy struct {
	Attempts            uint64
	Backoff             time.Duration
	MaxBackoff          time.Duration
	Jitter              bool
	FallbackToSynthetic bool
}

// Resilient retries a namer and optionally falls back to the synthetic label.
type Resilient struct {
	inner  Namer
	policy RetryPolicy
}

// NewResilient wraps inner with policy.
func NewResilient(inner Namer, policy RetryPolicy) *Resilient {
	return &Resilient{inner: inner, policy: policy}
}

func (r *Resilient) Name(ctx context.Context, group *affinity.Group) (string, error) {
	log := logger.FromContext(ctx)
	var label string
	attempt := 0
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		attempt++
		out, callErr := r.inner.Name(ctx, group)
		if callErr != nil {
			if r.policy.Attempts > 0 {
				log.Debug("naming attempt failed", "attempt", attempt, "error", callErr)
			}
			return retry.RetryableError(callErr)
		}
		label = out
		return nil
	})
	if err == nil {
		return label, nil
	}
	if r.policy.FallbackToSynthetic && ctx.Err() == nil && group != nil {
		log.Warn(
			"naming failed, using synthetic label",
			"cluster", group.ID,
			"attempts", attempt,
			"error", err,
		)
		return affinity.SyntheticLabel(group.ID), nil
	}
	return "", fmt.Errorf("naming failed after %d attempts: %w", attempt, err)
}

func (r *Resilient) backoff() retry.Backoff {
	base := r.policy.Backoff
	if base <= 0 {
		base = defaultRetryBackoff
	}
	maxBackoff := r.policy.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultRetryMaxBackoff
	}
	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(maxBackoff, b)
	if r.policy.Jitter {
		b = retry.WithJitter(retryJitter, b)
	}
	return retry.WithMaxRetries(r.policy.Attempts, b)
}
