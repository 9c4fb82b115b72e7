package process

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/giantswarm/kmsenv/internal/sentinel"
)

// Sentinel errors returned by Poll.
const (
	ErrIntervalNotPositive = sentinel.Error("interval must be positive")
	ErrAttemptsNotPositive = sentinel.Error("attempts must be positive")
	ErrAttemptsExhausted   = sentinel.Error("attempt budget exhausted")
)

// Check is one poll attempt. attempt starts at 1. Returning true ends the
// poll successfully; a non-nil error aborts it.
type Check func(ctx context.Context, attempt int) (done bool, err error)

// PollConfig bounds a Poll by attempts rather than by wall clock.
type PollConfig struct {
	Attempts  int           // maximum number of Check calls
	Interval  time.Duration // delay between the starts of consecutive attempts
	Immediate bool          // run the first attempt without waiting one Interval
	Name      string        // for logging
	Logger    *slog.Logger  // defaults to slog.Default()
}

// Budget is Attempts × Interval, the nominal length of a failing poll.
func (c PollConfig) Budget() time.Duration {
	return time.Duration(c.Attempts) * c.Interval
}

// Poll calls check until it succeeds, fails, or Attempts calls have been
// made, and returns the number of calls. When the budget runs out it waits
// one more Interval before returning ErrAttemptsExhausted, so a failing
// poll never takes less than Budget.
func Poll(ctx context.Context, cfg PollConfig, check Check) (int, error) {
	if cfg.Interval <= 0 {
		return 0, fmt.Errorf("poll %s: %w", cfg.Name, ErrIntervalNotPositive)
	}
	if cfg.Attempts <= 0 {
		return 0, fmt.Errorf("poll %s: %w", cfg.Name, ErrAttemptsNotPositive)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	// The ceiling leaves room for the final exhausted tick; attempts, not the
	// timeout, normally end the poll.
	ceiling := cfg.Interval * time.Duration(cfg.Attempts+2)

	// PollUntilContextTimeout runs the condition sequentially, so attempt needs
	// no synchronization.
	attempt := 0
	err := wait.PollUntilContextTimeout(ctx, cfg.Interval, ceiling, cfg.Immediate,
		func(pollCtx context.Context) (bool, error) {
			if attempt >= cfg.Attempts {
				return false, ErrAttemptsExhausted
			}
			attempt++
			done, err := check(pollCtx, attempt)
			if err != nil {
				return false, err
			}
			if done {
				log.Debug("poll succeeded", "name", cfg.Name, "attempt", attempt)
			}
			return done, nil
		})
	switch {
	case err == nil:
		return attempt, nil
	case ctx.Err() != nil:
		return attempt, fmt.Errorf("poll %s: %w", cfg.Name, ctx.Err())
	case wait.Interrupted(err):
		// Slow attempts can reach the ceiling before the budget is used up.
		return attempt, fmt.Errorf("poll %s: %w", cfg.Name, ErrAttemptsExhausted)
	default:
		return attempt, fmt.Errorf("poll %s: %w", cfg.Name, err)
	}
}
