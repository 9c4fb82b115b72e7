//go:build unix

package process

import (
	"context"
	"errors"
	"fmt"
	"syscall"
)

// LocalTarget signals a process on this host by pid.
type LocalTarget struct {
	PID int
	// Exited, when set, is the exit channel of the child that owns PID. It
	// lets Alive see the exit before the zombie is reaped.
	Exited <-chan struct{}
}

// Signal sends sig to the pid. A missing process yields ErrProcessGone.
func (t LocalTarget) Signal(_ context.Context, sig syscall.Signal) error {
	if t.PID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPID, t.PID)
	}
	if err := syscall.Kill(t.PID, sig); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return ErrProcessGone
		}
		return fmt.Errorf("signal %v: %w", sig, err)
	}
	return nil
}

// Alive reports whether the pid still exists, using signal 0.
func (t LocalTarget) Alive(_ context.Context) (bool, error) {
	if t.Exited != nil {
		select {
		case <-t.Exited:
			return false, nil
		default:
		}
	}
	if t.PID <= 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidPID, t.PID)
	}
	err := syscall.Kill(t.PID, 0)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, syscall.ESRCH):
		return false, nil
	case errors.Is(err, syscall.EPERM):
		// Exists, owned by someone else.
		return true, nil
	default:
		return false, fmt.Errorf("probe pid %d: %w", t.PID, err)
	}
}
