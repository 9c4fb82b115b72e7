package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/giantswarm/kmsenv/internal/backend"
	"github.com/giantswarm/kmsenv/internal/failure"
	"github.com/giantswarm/kmsenv/internal/fileutil"
	"github.com/giantswarm/kmsenv/internal/process"
	"github.com/giantswarm/kmsenv/internal/render"
)

const (
	// WorkspacePattern is the os.MkdirTemp pattern of a workspace.
	WorkspacePattern = "kurento-test-"
	// LogDir is the workspace subdirectory holding server logs.
	LogDir = "logs"

	backendName = "local"
	processName = "kms"

	// releaseStopTimeout bounds the reap in Release. Terminate has already
	// signaled the process by then.
	releaseStopTimeout = 2 * time.Second
)

// Handle is a media server started from a launch script on this host.
type Handle struct {
	req       backend.Request
	log       *slog.Logger
	workspace string // without trailing slash
	proc      *process.BaseProcess
}

var _ backend.Handle = (*Handle)(nil)

// New returns an unstarted Handle.
func New(req backend.Request) *Handle {
	return &Handle{
		req: req,
		log: req.Log().With("backend", backendName),
	}
}

// Kind returns a LocalKind. WorkspacePath is empty before Start.
func (h *Handle) Kind() backend.Kind {
	return backend.LocalKind{WorkspacePath: h.workspace}
}

// Workspace returns the workspace directory, or "" before Start.
func (h *Handle) Workspace() string {
	return h.workspace
}

// Endpoint returns the configured endpoint; a local server listens where it
// was told to.
func (h *Handle) Endpoint() *url.URL {
	return h.req.Endpoint
}

// Start creates the workspace, renders the configuration and launch script
// into it and spawns the script.
func (h *Handle) Start(_ context.Context) error {
	if h.proc != nil {
		return failure.Provisioning(backendName, "start", process.ErrAlreadyStarted)
	}
	base := h.req.BaseDir
	if base != "" {
		if err := fileutil.EnsureDir(base); err != nil {
			return failure.Provisioning(backendName, "create workspace", err)
		}
	}
	ws, err := os.MkdirTemp(base, WorkspacePattern)
	if err != nil {
		return failure.Provisioning(backendName, "create workspace", err)
	}
	h.workspace = ws

	params := h.req.Params
	params.Workspace = ws + string(filepath.Separator)
	if err := h.req.Render().WriteAll(ws, params); err != nil {
		return failure.Provisioning(backendName, "render", err)
	}

	bp := process.NewBaseProcess(processName, h.log, releaseStopTimeout)
	cmd := exec.Command("sh", filepath.Join(ws, render.ScriptFile)) //nolint:gosec // G204: script rendered into our own workspace
	if err := bp.SetupAndStart(cmd, ws, filepath.Join(ws, LogDir)); err != nil {
		bp.Close()
		return failure.Provisioning(backendName, "spawn", err)
	}
	h.proc = &bp
	h.log.Info("media server process started", "workspace", ws, "pid", bp.Pid())
	return nil
}

// Terminate stops the server process using the pid the launch script
// recorded, falling back to the spawned child's pid.
func (h *Handle) Terminate(ctx context.Context) (process.Result, error) {
	if h.proc == nil {
		return process.Result{}, nil
	}
	var warnings []error
	childPID := h.proc.Pid()
	pid, err := process.ReadPIDFile(filepath.Join(h.workspace, process.PIDFileName))
	if err != nil {
		warnings = append(warnings, &failure.TerminationWarning{Op: "read pid", Err: err})
		pid = childPID
	}
	if pid <= 0 {
		return process.Result{}, errors.Join(warnings...)
	}

	target := process.LocalTarget{PID: pid}
	if pid == childPID {
		target.Exited = h.proc.Exited()
	}
	cfg := h.req.Termination
	cfg.Name = processName
	cfg.Logger = h.log
	res, err := process.Escalate(ctx, target, cfg)
	if err != nil {
		warnings = append(warnings, err)
	}
	h.log.Debug("media server terminated",
		"pid", pid, "graceful", res.Graceful, "forced", res.Forced, "elapsed", res.Elapsed)
	return res, errors.Join(warnings...)
}

// CollectLogs copies the files directly under the workspace log directory.
func (h *Handle) CollectLogs(_ context.Context, outputDir, prefix string) []error {
	if h.workspace == "" {
		return nil
	}
	dir := filepath.Join(h.workspace, LogDir)
	files, err := fileutil.ListFiles(dir, false)
	if err != nil {
		return []error{backend.ListWarning(dir, err)}
	}
	var warnings []error
	for _, f := range files {
		if err := backend.CopyLog(outputDir, prefix, f); err != nil {
			warnings = append(warnings, err)
		}
	}
	return warnings
}

// Release reaps the child and deletes the workspace.
func (h *Handle) Release(_ context.Context) error {
	var errs []error
	if err := process.StopCloseAndNil(&h.proc, releaseStopTimeout); err != nil {
		errs = append(errs, fmt.Errorf("reap process: %w", err))
	}
	if h.workspace != "" {
		if err := os.RemoveAll(h.workspace); err != nil {
			errs = append(errs, fmt.Errorf("remove workspace: %w", err))
		}
	}
	return errors.Join(errs...)
}
