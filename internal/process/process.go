package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giantswarm/kmsenv/internal/fileutil"
)

// LogFiles holds the stdout and stderr files of a child.
type LogFiles struct {
	stdoutFile *os.File
	stderrFile *os.File
	dir        string
	stdoutName string // e.g. "kms-stdout.log"
	stderrName string // e.g. "kms-stderr.log"
}

// NewLogFiles creates <dir>/<name>-stdout.log and <dir>/<name>-stderr.log,
// creating dir if needed.
func NewLogFiles(dir, name string) (LogFiles, error) {
	if err := fileutil.EnsureDir(dir); err != nil {
		return LogFiles{}, err
	}
	l := LogFiles{
		dir:        dir,
		stdoutName: name + "-stdout.log",
		stderrName: name + "-stderr.log",
	}
	stdoutFile, err := os.Create(l.StdoutPath())
	if err != nil {
		return LogFiles{}, fmt.Errorf("create stdout log: %w", err)
	}
	stderrFile, err := os.Create(l.StderrPath())
	if err != nil {
		_ = stdoutFile.Close()
		return LogFiles{}, fmt.Errorf("create stderr log: %w", err)
	}
	l.stdoutFile = stdoutFile
	l.stderrFile = stderrFile
	return l, nil
}

// Close closes both files. It is safe to call more than once.
func (l *LogFiles) Close() {
	if l.stdoutFile != nil {
		_ = l.stdoutFile.Close()
		l.stdoutFile = nil
	}
	if l.stderrFile != nil {
		_ = l.stderrFile.Close()
		l.stderrFile = nil
	}
}

// StdoutPath returns the path of the stdout log.
func (l *LogFiles) StdoutPath() string {
	return filepath.Join(l.dir, l.stdoutName)
}

// StderrPath returns the path of the stderr log.
func (l *LogFiles) StderrPath() string {
	return filepath.Join(l.dir, l.stderrName)
}

// DefaultStopTimeout is the fallback timeout for BaseProcess.Close.
const DefaultStopTimeout = 10 * time.Second

// termGracePeriod is how long stopWithDone waits after SIGTERM before it
// sends SIGKILL. It is capped at the caller's timeout.
const termGracePeriod = 5 * time.Second

// killDrainTimeout bounds the wait for cmd.Wait after SIGKILL.
const killDrainTimeout = 10 * time.Second

func drainDone(done <-chan error, timeout time.Duration) (bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-done:
		return true, err
	case <-t.C:
		return false, nil
	}
}

// stopWithDone sends SIGTERM, schedules SIGKILL after the grace period and
// waits on done, which must carry the result of the only cmd.Wait call.
// Worst case it blocks for timeout + killDrainTimeout.
func stopWithDone(cmd *exec.Cmd, done <-chan error, timeout time.Duration, name string) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if done == nil {
		return fmt.Errorf("%s: done channel must not be nil", name)
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already exited; collect the wait result.
		ok, waitErr := drainDone(done, killDrainTimeout)
		if !ok {
			return fmt.Errorf("%s: timed out draining process after signal failure", name)
		}
		return expectSignalExit(waitErr, name)
	}

	killTimer := time.AfterFunc(min(termGracePeriod, timeout), func() {
		_ = cmd.Process.Kill()
	})
	defer killTimer.Stop()

	totalTimer := time.NewTimer(timeout)
	defer totalTimer.Stop()

	select {
	case err := <-done:
		return expectSignalExit(err, name)
	case <-totalTimer.C:
		ok, waitErr := drainDone(done, killDrainTimeout)
		if !ok {
			return fmt.Errorf("%s: timed out waiting for process to exit after SIGKILL", name)
		}
		if err := expectSignalExit(waitErr, name); err != nil {
			return fmt.Errorf("%s stop timeout: %w", name, err)
		}
		return nil
	}
}

// expectSignalExit treats an exit caused by SIGTERM or SIGKILL as a clean
// stop. The launch script traps neither, so the media server usually dies
// by signal.
func expectSignalExit(err error, name string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if sig := status.Signal(); sig == syscall.SIGTERM || sig == syscall.SIGKILL {
				return nil
			}
		}
		// A shell that received SIGTERM exits with 128+15.
		if exitErr.ExitCode() == 128+int(syscall.SIGTERM) {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}

// StartCmd wires cmd to fresh log files in dir and starts it. The caller
// owns the returned LogFiles.
func StartCmd(cmd *exec.Cmd, dir, name string) (LogFiles, error) {
	logFiles, err := NewLogFiles(dir, name)
	if err != nil {
		return LogFiles{}, fmt.Errorf("create %s logs: %w", name, err)
	}

	cmd.Stdout = logFiles.stdoutFile
	cmd.Stderr = logFiles.stderrFile

	if err := cmd.Start(); err != nil {
		logFiles.Close()
		return LogFiles{}, fmt.Errorf("start %s process: %w", name, err)
	}
	return logFiles, nil
}
