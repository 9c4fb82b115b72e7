//go:build !unix

package process

import (
	"context"
	"os"
	"syscall"
)

// LocalTarget signals a process on this host by pid. Outside unix only
// SIGKILL can be delivered and liveness relies on Exited.
type LocalTarget struct {
	PID    int
	Exited <-chan struct{}
}

// Signal kills the process for SIGKILL and ignores other signals.
func (t LocalTarget) Signal(_ context.Context, sig syscall.Signal) error {
	if sig != syscall.SIGKILL {
		return nil
	}
	p, err := os.FindProcess(t.PID)
	if err != nil {
		return ErrProcessGone
	}
	return p.Kill()
}

// Alive reports false once Exited is closed.
func (t LocalTarget) Alive(_ context.Context) (bool, error) {
	if t.Exited == nil {
		return false, nil
	}
	select {
	case <-t.Exited:
		return false, nil
	default:
		return true, nil
	}
}
