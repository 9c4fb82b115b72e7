package readiness

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/giantswarm/kmsenv/internal/failure"
	"github.com/giantswarm/kmsenv/internal/process"
)

// DefaultAttempts and DefaultInterval give a 30 second budget.
const (
	DefaultAttempts         = 300
	DefaultInterval         = 100 * time.Millisecond
	DefaultPassiveWait      = time.Second
	DefaultHandshakeTimeout = 5 * time.Second
)

// Result reports a successful wait.
type Result struct {
	Attempts int
	Elapsed  time.Duration
}

// Prober dials an endpoint until it answers a websocket handshake.
// Zero fields use the defaults.
type Prober struct {
	Attempts    int
	Interval    time.Duration // delay between the starts of attempts
	PassiveWait time.Duration

	// HandshakeTimeout bounds one attempt's websocket handshake. It applies
	// when Dialer is nil or leaves its own HandshakeTimeout unset.
	HandshakeTimeout time.Duration

	Dialer *websocket.Dialer
	Logger *slog.Logger
}

func (p *Prober) attempts() int {
	if p.Attempts > 0 {
		return p.Attempts
	}
	return DefaultAttempts
}

func (p *Prober) interval() time.Duration {
	if p.Interval > 0 {
		return p.Interval
	}
	return DefaultInterval
}

func (p *Prober) handshakeTimeout() time.Duration {
	if p.HandshakeTimeout > 0 {
		return p.HandshakeTimeout
	}
	return DefaultHandshakeTimeout
}

func (p *Prober) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Budget is the nominal length of a failing Wait.
func (p *Prober) Budget() time.Duration {
	return time.Duration(p.attempts()) * p.interval()
}

// Wait blocks until endpoint accepts a websocket connection or the attempt
// budget is spent, in which case it returns a *failure.ReadinessTimeoutError.
// A nil endpoint cannot be probed; Wait then sleeps for PassiveWait and
// reports success.
func (p *Prober) Wait(ctx context.Context, endpoint *url.URL) (Result, error) {
	start := time.Now()
	if endpoint == nil {
		wait := p.PassiveWait
		if wait <= 0 {
			wait = DefaultPassiveWait
		}
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-t.C:
			return Result{Elapsed: time.Since(start)}, nil
		case <-ctx.Done():
			return Result{Elapsed: time.Since(start)}, ctx.Err()
		}
	}

	dialer := p.dialer()
	target := endpoint.String()
	log := p.logger().With("endpoint", target)

	attempts, err := process.Poll(ctx, process.PollConfig{
		Attempts:  p.attempts(),
		Interval:  p.interval(),
		Immediate: true,
		Name:      "readiness",
		Logger:    log,
	}, func(ctx context.Context, attempt int) (bool, error) {
		conn, resp, err := dialer.DialContext(ctx, target, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			log.Debug("endpoint not ready", "attempt", attempt, "error", err)
			return false, nil
		}
		_ = conn.Close()
		return true, nil
	})
	elapsed := time.Since(start)
	switch {
	case err == nil:
		log.Info("endpoint ready", "attempts", attempts, "elapsed", elapsed)
		return Result{Attempts: attempts, Elapsed: elapsed}, nil
	case errors.Is(err, process.ErrAttemptsExhausted):
		return Result{}, failure.NewReadinessTimeout(endpoint, p.Budget(), elapsed, attempts)
	default:
		return Result{}, err
	}
}

func (p *Prober) dialer() *websocket.Dialer {
	if p.Dialer != nil {
		d := *p.Dialer
		if d.HandshakeTimeout == 0 {
			d.HandshakeTimeout = p.handshakeTimeout()
		}
		return &d
	}
	return &websocket.Dialer{
		Proxy:            nil,
		HandshakeTimeout: p.handshakeTimeout(),
	}
}
