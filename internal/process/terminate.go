package process

import (
	"context"
	"errors"
	"log/slog"
	"syscall"
	"time"

	"github.com/giantswarm/kmsenv/internal/failure"
	"github.com/giantswarm/kmsenv/internal/sentinel"
)

// Defaults for Escalate.
const (
	DefaultTerminationDeadline = 5 * time.Second
	DefaultTerminationInterval = 100 * time.Millisecond
)

// ErrProcessGone is returned by a Target when the process no longer exists.
// Escalate does not report it as a warning.
const ErrProcessGone = sentinel.Error("process does not exist")

// Target is a process that can be signaled and queried, locally or over a
// remote session.
type Target interface {
	Signal(ctx context.Context, sig syscall.Signal) error
	Alive(ctx context.Context) (bool, error)
}

// EscalateConfig tunes Escalate. Zero values use the defaults.
type EscalateConfig struct {
	Deadline time.Duration
	Interval time.Duration
	Name     string
	Logger   *slog.Logger
}

// Result describes how a termination ended.
type Result struct {
	Graceful bool // exited during the SIGTERM phase
	Forced   bool // SIGKILL was sent
	Signals  int  // SIGTERMs sent
	Elapsed  time.Duration
}

// Escalate stops target with SIGTERM, re-sent on every check, and waits for
// it to disappear. If the process is still alive or its state is unknown
// when the deadline passes, SIGKILL is sent once.
//
// The returned error joins one *failure.TerminationWarning per failed
// signal or liveness query. It is informational; the Result is always valid.
func Escalate(ctx context.Context, target Target, cfg EscalateConfig) (Result, error) {
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultTerminationDeadline
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTerminationInterval
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	var (
		res      Result
		warnings []error
		alive    = true
		known    bool
	)
	start := time.Now()
	sigterm := func(ctx context.Context) {
		res.Signals++
		if err := target.Signal(ctx, syscall.SIGTERM); err != nil && !errors.Is(err, ErrProcessGone) {
			warnings = append(warnings, &failure.TerminationWarning{Op: "sigterm", Err: err})
		}
	}

	sigterm(ctx)
	attempts := max(int(cfg.Deadline/cfg.Interval), 1)
	_, pollErr := Poll(ctx, PollConfig{
		Attempts: attempts,
		Interval: cfg.Interval,
		Name:     cfg.Name + " termination",
		Logger:   log,
	}, func(pollCtx context.Context, _ int) (bool, error) {
		a, err := target.Alive(pollCtx)
		if err != nil {
			known = false
			warnings = append(warnings, &failure.TerminationWarning{Op: "query", Err: err})
		} else {
			known = true
			alive = a
			if !alive {
				return true, nil
			}
		}
		if time.Since(start) >= cfg.Deadline {
			return false, ErrAttemptsExhausted
		}
		sigterm(pollCtx)
		return false, nil
	})
	if pollErr != nil && !errors.Is(pollErr, ErrAttemptsExhausted) {
		warnings = append(warnings, &failure.TerminationWarning{Op: "wait", Err: pollErr})
	}

	if known && !alive {
		res.Graceful = true
	} else {
		log.Warn("process survived graceful termination; sending SIGKILL",
			"name", cfg.Name, "deadline", cfg.Deadline, "confirmed_alive", known)
		// The caller's context may already be done; SIGKILL must still go out.
		if err := target.Signal(context.WithoutCancel(ctx), syscall.SIGKILL); err != nil && !errors.Is(err, ErrProcessGone) {
			warnings = append(warnings, &failure.TerminationWarning{Op: "sigkill", Err: err})
		}
		res.Forced = true
	}
	res.Elapsed = time.Since(start)
	return res, errors.Join(warnings...)
}
