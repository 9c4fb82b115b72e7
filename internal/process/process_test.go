package process

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"testing"
	"time"
)

func TestExpectSignalExit(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("signal exit statuses are unix only")
	}

	tests := map[string]struct {
		err     error
		signal  syscall.Signal
		wantErr bool
	}{
		"nil error":          {wantErr: false},
		"SIGTERM exit":       {signal: syscall.SIGTERM, wantErr: false},
		"SIGKILL exit":       {signal: syscall.SIGKILL, wantErr: false},
		"SIGINT exit":        {signal: syscall.SIGINT, wantErr: true},
		"non exit error":     {err: errors.New("pipe closed"), wantErr: true},
		"shell exit 143":     {err: makeExitCodeError(t, 143), wantErr: false},
		"ordinary exit code": {err: makeExitCodeError(t, 3), wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			inputErr := tc.err
			if inputErr == nil && tc.signal != 0 {
				inputErr = makeSignalExitError(t, tc.signal)
			}

			got := expectSignalExit(inputErr, "kms")
			if tc.wantErr && got == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && got != nil {
				t.Fatalf("expected nil, got %v", got)
			}
		})
	}
}

func TestExpectSignalExit_WrapsProcessName(t *testing.T) {
	t.Parallel()

	err := expectSignalExit(errors.New("connection refused"), "kms")
	if got := err.Error(); got != "kms: connection refused" {
		t.Errorf("error = %q, want %q", got, "kms: connection refused")
	}
}

func TestDrainDone(t *testing.T) {
	t.Parallel()

	t.Run("receives value", func(t *testing.T) {
		t.Parallel()
		done := make(chan error, 1)
		want := errors.New("crashed")
		done <- want

		ok, err := drainDone(done, time.Second)
		if !ok {
			t.Fatal("expected ok=true when channel has a value")
		}
		if !errors.Is(err, want) {
			t.Fatalf("err = %v, want %v", err, want)
		}
	})

	t.Run("times out", func(t *testing.T) {
		t.Parallel()
		ok, err := drainDone(make(chan error), 10*time.Millisecond)
		if ok || err != nil {
			t.Fatalf("drainDone = %v, %v; want false, nil", ok, err)
		}
	})
}

func TestNewBaseProcess(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		bp := NewBaseProcess("kms", nil, 0)
		if bp.name != "kms" {
			t.Errorf("name = %q, want %q", bp.name, "kms")
		}
		if bp.log == nil {
			t.Fatal("expected non-nil logger")
		}
		if bp.IsStarted() || bp.Pid() != 0 || bp.Exited() != nil {
			t.Error("new process should not be started")
		}
	})

	t.Run("panics on empty name", func(t *testing.T) {
		t.Parallel()
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected panic for empty name")
			}
			if msg, _ := r.(string); msg != "kmsenv: process name must not be empty" {
				t.Errorf("panic message = %q, want %q", msg, "kmsenv: process name must not be empty")
			}
		}()
		NewBaseProcess("", nil, 0)
	})
}

func TestBaseProcess_NotStarted(t *testing.T) {
	t.Parallel()

	bp := NewBaseProcess("kms", nil, 0)
	if err := bp.Stop(time.Second); err != nil {
		t.Fatalf("Stop on unstarted process = %v, want nil", err)
	}
	bp.Close()
}

func TestBaseProcess_SetupAndStartValidation(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cmd     *exec.Cmd
		workDir string
		want    error
	}{
		"nil cmd":         {cmd: nil, workDir: "/tmp", want: ErrNilCmd},
		"empty path":      {cmd: &exec.Cmd{}, workDir: "/tmp", want: ErrEmptyCmdPath},
		"empty workspace": {cmd: exec.Command("true"), workDir: "", want: ErrEmptyWorkDir},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			bp := NewBaseProcess("kms", nil, 0)
			if err := bp.SetupAndStart(tc.cmd, tc.workDir, ""); !errors.Is(err, tc.want) {
				t.Errorf("SetupAndStart() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestBaseProcess_StartStop(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	ws := t.TempDir()
	logDir := filepath.Join(ws, "logs")
	bp := NewBaseProcess("kms", nil, time.Second)
	if err := bp.SetupAndStart(exec.Command("sleep", "60"), ws, logDir); err != nil {
		t.Fatalf("SetupAndStart() error: %v", err)
	}
	if !bp.IsStarted() || bp.Pid() <= 0 {
		t.Fatal("process should be started with a pid")
	}
	if err := bp.SetupAndStart(exec.Command("sleep", "60"), ws, logDir); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second SetupAndStart() = %v, want %v", err, ErrAlreadyStarted)
	}

	exited := bp.Exited()
	if err := bp.Stop(5 * time.Second); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("exited channel not closed after Stop")
	}
	bp.Close()

	for _, name := range []string{"kms-stdout.log", "kms-stderr.log"} {
		if _, err := os.Stat(filepath.Join(logDir, name)); err != nil {
			t.Errorf("log file %s missing: %v", name, err)
		}
	}
}

func TestLogFiles_Paths(t *testing.T) {
	t.Parallel()

	lf := LogFiles{dir: "/tmp/kurento-test-1/logs", stdoutName: "kms-stdout.log", stderrName: "kms-stderr.log"}
	if got, want := lf.StdoutPath(), "/tmp/kurento-test-1/logs/kms-stdout.log"; got != want {
		t.Errorf("StdoutPath() = %q, want %q", got, want)
	}
	if got, want := lf.StderrPath(), "/tmp/kurento-test-1/logs/kms-stderr.log"; got != want {
		t.Errorf("StderrPath() = %q, want %q", got, want)
	}

	empty := LogFiles{}
	empty.Close()
}

func TestStopCloseAndNil(t *testing.T) {
	t.Parallel()

	t.Run("nil pointer", func(t *testing.T) {
		t.Parallel()
		if err := StopCloseAndNil[*fakeStoppable](nil, time.Second); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
	})

	t.Run("stop close and nil", func(t *testing.T) {
		t.Parallel()
		f := &fakeStoppable{}
		p := f
		if err := StopCloseAndNil(&p, 5*time.Second); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p != nil || !f.stopped || !f.closed {
			t.Errorf("p=%v stopped=%v closed=%v; want nil, true, true", p, f.stopped, f.closed)
		}
		if f.stopTimeout != 5*time.Second {
			t.Errorf("Stop timeout = %v, want %v", f.stopTimeout, 5*time.Second)
		}
	})

	t.Run("close and nil on stop error", func(t *testing.T) {
		t.Parallel()
		f := &fakeStoppable{stopErr: errors.New("stop failed")}
		p := f
		err := StopCloseAndNil(&p, time.Second)
		if err == nil || err.Error() != "stop failed" {
			t.Fatalf("error = %v, want stop failed", err)
		}
		if p != nil || !f.closed {
			t.Error("Close and nil-out must run when Stop fails")
		}
	})
}

type fakeStoppable struct {
	stopped     bool
	closed      bool
	stopErr     error
	stopTimeout time.Duration
}

func (f *fakeStoppable) Stop(timeout time.Duration) error {
	f.stopped = true
	f.stopTimeout = timeout
	return f.stopErr
}

func (f *fakeStoppable) Close() {
	f.closed = true
}

// makeSignalExitError returns the *exec.ExitError of a real process killed
// by sig.
func makeSignalExitError(tb testing.TB, sig syscall.Signal) *exec.ExitError {
	tb.Helper()

	cmd := exec.Command("sleep", "60")
	if err := cmd.Start(); err != nil {
		tb.Fatalf("test setup: start sleep: %v", err)
	}
	if err := cmd.Process.Signal(sig); err != nil {
		_ = cmd.Process.Kill()
		tb.Fatalf("test setup: signal process with %v: %v", sig, err)
	}

	var exitErr *exec.ExitError
	if err := cmd.Wait(); !errors.As(err, &exitErr) {
		tb.Fatalf("test setup: expected *exec.ExitError from signaled process, got %v", err)
	}
	return exitErr
}

func makeExitCodeError(tb testing.TB, code int) *exec.ExitError {
	tb.Helper()

	var exitErr *exec.ExitError
	err := exec.Command("sh", "-c", "exit "+strconv.Itoa(code)).Run()
	if !errors.As(err, &exitErr) {
		tb.Fatalf("test setup: expected *exec.ExitError, got %v", err)
	}
	return exitErr
}
