package process

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPoll_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg  PollConfig
		want error
	}{
		"zero interval":     {cfg: PollConfig{Attempts: 3, Interval: 0, Name: "x"}, want: ErrIntervalNotPositive},
		"negative interval": {cfg: PollConfig{Attempts: 3, Interval: -time.Second, Name: "x"}, want: ErrIntervalNotPositive},
		"zero attempts":     {cfg: PollConfig{Attempts: 0, Interval: time.Millisecond, Name: "x"}, want: ErrAttemptsNotPositive},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Poll(context.Background(), tc.cfg, func(context.Context, int) (bool, error) {
				t.Fatal("check must not be called with invalid config")
				return false, nil
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("Poll() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestPoll_SucceedsOnAttempt(t *testing.T) {
	t.Parallel()

	cfg := PollConfig{Attempts: 10, Interval: 5 * time.Millisecond, Immediate: true, Name: "kms"}
	attempts, err := Poll(context.Background(), cfg, func(_ context.Context, attempt int) (bool, error) {
		return attempt == 3, nil
	})
	if err != nil {
		t.Fatalf("Poll() error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestPoll_ExhaustsBudget(t *testing.T) {
	t.Parallel()

	cfg := PollConfig{Attempts: 20, Interval: 10 * time.Millisecond, Immediate: true, Name: "kms"}
	calls := 0
	start := time.Now()
	attempts, err := Poll(context.Background(), cfg, func(context.Context, int) (bool, error) {
		calls++
		return false, nil
	})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("Poll() = %v, want %v", err, ErrAttemptsExhausted)
	}
	if attempts != cfg.Attempts || calls != cfg.Attempts {
		t.Errorf("attempts = %d, calls = %d, want %d", attempts, calls, cfg.Attempts)
	}
	if elapsed < cfg.Budget() {
		t.Errorf("elapsed = %v, want at least %v", elapsed, cfg.Budget())
	}
	if limit := cfg.Budget() + cfg.Interval + 100*time.Millisecond; elapsed >= limit {
		t.Errorf("elapsed = %v, want less than %v", elapsed, limit)
	}
}

func TestPoll_CheckErrorAborts(t *testing.T) {
	t.Parallel()

	fatal := errors.New("handshake rejected")
	attempts, err := Poll(context.Background(), PollConfig{Attempts: 10, Interval: time.Millisecond, Immediate: true},
		func(context.Context, int) (bool, error) { return false, fatal })
	if !errors.Is(err, fatal) {
		t.Fatalf("Poll() = %v, want %v", err, fatal)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestPoll_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := Poll(ctx, PollConfig{Attempts: 1000, Interval: 5 * time.Millisecond, Immediate: true},
		func(_ context.Context, attempt int) (bool, error) {
			if attempt == 2 {
				cancel()
			}
			return false, nil
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Poll() = %v, want %v", err, context.Canceled)
	}
}

func TestPollConfig_Budget(t *testing.T) {
	t.Parallel()

	cfg := PollConfig{Attempts: 300, Interval: 100 * time.Millisecond}
	if got := cfg.Budget(); got != 30*time.Second {
		t.Errorf("Budget() = %v, want %v", got, 30*time.Second)
	}
}
