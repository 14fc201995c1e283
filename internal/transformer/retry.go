package transformer

import (
	"context"
	"fmt"
	"time"
)

// Policy drives retries around a Service call. Attempts count ordinary
// failures only: a rate-limit response repeats the same attempt after the
// cooldown, bounded by MaxCooldowns so a persistent limit cannot stall a
// fragment forever.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first
	// (1 = no retries).
	MaxAttempts int
	// RetryDelay is the fixed wait before re-trying an ordinary failure.
	RetryDelay time.Duration
	// Cooldown is the longer wait after a rate-limit signal.
	Cooldown time.Duration
	// MaxCooldowns caps rate-limit waits per fragment.
	MaxCooldowns int
	// Sleep overrides the wait implementation; nil means a real,
	// context-aware sleep. Tests inject a recorder here.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the retry settings used by the CLI.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		RetryDelay:   2 * time.Second,
		Cooldown:     30 * time.Second,
		MaxCooldowns: 10,
	}
}

// Do calls svc.Transform under the policy and returns the first success.
// Fatal errors and exhausted budgets surface as errors; the caller decides
// how to degrade.
func (p Policy) Do(ctx context.Context, svc Service, cfg ServiceConfig, req Request) (*Result, error) {
	failures := 0
	cooldowns := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := svc.Transform(ctx, cfg, req)
		if err == nil {
			return res, nil
		}

		switch Classify(err) {
		case Fatal:
			return nil, err
		case RateLimited:
			cooldowns++
			if cooldowns > p.MaxCooldowns {
				return nil, fmt.Errorf("rate limit persisted through %d cooldowns: %w", p.MaxCooldowns, err)
			}
			if serr := p.sleep(ctx, p.Cooldown); serr != nil {
				return nil, serr
			}
		default:
			failures++
			if failures >= p.MaxAttempts {
				return nil, fmt.Errorf("giving up after %d attempts: %w", failures, err)
			}
			if serr := p.sleep(ctx, p.RetryDelay); serr != nil {
				return nil, serr
			}
		}
	}
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
