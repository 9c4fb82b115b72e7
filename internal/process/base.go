package process

import (
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/giantswarm/kmsenv/internal/sentinel"
)

// ErrAlreadyStarted is returned when SetupAndStart is called on a running
// process.
const ErrAlreadyStarted = sentinel.Error("process already started")

// ErrNilCmd is returned when SetupAndStart is called with a nil *exec.Cmd.
const ErrNilCmd = sentinel.Error("cmd must not be nil")

// ErrEmptyCmdPath is returned when SetupAndStart is called with an empty cmd.Path.
const ErrEmptyCmdPath = sentinel.Error("cmd.Path must not be empty")

// ErrEmptyWorkDir is returned when SetupAndStart is called without a working
// directory.
const ErrEmptyWorkDir = sentinel.Error("working directory must not be empty")

// BaseProcess manages one spawned child. It is not safe for concurrent use;
// the local backend serializes access through the owning server.
type BaseProcess struct {
	cmd         *exec.Cmd
	waitDone    <-chan error    // cmd.Wait result, consumed once by Stop
	exited      <-chan struct{} // closed when the child exits
	logFiles    LogFiles
	name        string
	log         *slog.Logger
	stopTimeout time.Duration
}

// NewBaseProcess creates a BaseProcess. A zero stopTimeout falls back to
// DefaultStopTimeout in Close. Panics if name is empty.
func NewBaseProcess(name string, logger *slog.Logger, stopTimeout time.Duration) BaseProcess {
	if name == "" {
		panic("kmsenv: process name must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return BaseProcess{name: name, log: logger, stopTimeout: stopTimeout}
}

// Stop sends SIGTERM, escalates to SIGKILL after the grace period and waits
// for the child to be reaped. It returns nil when nothing is running.
func (b *BaseProcess) Stop(timeout time.Duration) error {
	if b.cmd == nil || b.cmd.Process == nil {
		b.cmd = nil
		b.waitDone = nil
		b.exited = nil
		return nil
	}
	pid := b.cmd.Process.Pid
	err := stopWithDone(b.cmd, b.waitDone, timeout, b.name)
	if err != nil {
		b.log.Warn("process stop failed; process may be orphaned",
			"process", b.name, "pid", pid, "error", err)
	}
	b.cmd = nil
	b.waitDone = nil
	b.exited = nil
	return err
}

// Close closes the log files, stopping the child first if Stop was not
// called.
func (b *BaseProcess) Close() {
	if b.cmd != nil {
		b.log.Warn("process.Close called without Stop; stopping automatically",
			"process", b.name)
		timeout := b.stopTimeout
		if timeout <= 0 {
			timeout = DefaultStopTimeout
		}
		if err := b.Stop(timeout); err != nil {
			b.log.Warn("auto-stop during Close failed", "process", b.name, "error", err)
		}
	}
	b.logFiles.Close()
}

// Exited returns a channel closed when the child exits, or nil when nothing
// has been started.
func (b *BaseProcess) Exited() <-chan struct{} {
	return b.exited
}

// Pid returns the child's pid, or 0 when nothing is running.
func (b *BaseProcess) Pid() int {
	if b.cmd == nil || b.cmd.Process == nil {
		return 0
	}
	return b.cmd.Process.Pid
}

// IsStarted reports whether a child is running and has not been stopped.
func (b *BaseProcess) IsStarted() bool {
	return b.cmd != nil
}

// LogFiles returns the stdout/stderr files of the current child.
func (b *BaseProcess) LogFiles() LogFiles {
	return b.logFiles
}

// SetupAndStart runs cmd in workDir with stdout and stderr redirected into
// logDir/<name>-stdout.log and logDir/<name>-stderr.log. A single goroutine
// calls cmd.Wait; its result feeds Stop and Exited.
func (b *BaseProcess) SetupAndStart(cmd *exec.Cmd, workDir, logDir string) error {
	switch {
	case cmd == nil:
		return ErrNilCmd
	case cmd.Path == "":
		return ErrEmptyCmdPath
	case workDir == "":
		return ErrEmptyWorkDir
	case b.cmd != nil:
		return ErrAlreadyStarted
	}
	if logDir == "" {
		logDir = workDir
	}

	cmd.Dir = workDir
	configureSysProcAttr(cmd)

	logFiles, err := StartCmd(cmd, logDir, b.name)
	if err != nil {
		return fmt.Errorf("start command: %w", err)
	}
	b.cmd = cmd
	b.logFiles = logFiles

	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		done <- cmd.Wait()
		close(exited)
	}()
	b.waitDone = done
	b.exited = exited

	b.log.Debug("process started", "process", b.name, "pid", cmd.Process.Pid, "dir", workDir)
	return nil
}
