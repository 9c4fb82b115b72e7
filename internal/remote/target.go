package remote

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"github.com/giantswarm/kmsenv/internal/process"
)

// pidTarget signals a process on the remote host with kill and queries it
// with ps.
type pidTarget struct {
	runner Runner
	pid    int
}

var _ process.Target = pidTarget{}

func (t pidTarget) Signal(ctx context.Context, sig syscall.Signal) error {
	var cmd string
	switch sig {
	case syscall.SIGTERM:
		cmd = "kill " + strconv.Itoa(t.pid)
	case syscall.SIGKILL:
		cmd = "kill -9 " + strconv.Itoa(t.pid)
	default:
		return fmt.Errorf("unsupported signal %v", sig)
	}
	if _, err := t.runner.Run(ctx, cmd, nil); err != nil {
		var cerr *CommandError
		if errors.As(err, &cerr) && strings.Contains(strings.ToLower(cerr.Stderr), "no such process") {
			return process.ErrProcessGone
		}
		return err
	}
	return nil
}

func (t pidTarget) Alive(ctx context.Context) (bool, error) {
	out, err := t.runner.Run(ctx, "ps --pid "+strconv.Itoa(t.pid)+" --no-headers | wc -l", nil)
	if err != nil {
		return false, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return false, fmt.Errorf("parse ps output %q: %w", strings.TrimSpace(string(out)), err)
	}
	return n > 0, nil
}
