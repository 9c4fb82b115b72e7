package remote

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/giantswarm/kmsenv/internal/backend"
	"github.com/giantswarm/kmsenv/internal/failure"
	"github.com/giantswarm/kmsenv/internal/process"
	"github.com/giantswarm/kmsenv/internal/render"
	"github.com/giantswarm/kmsenv/internal/sentinel"
)

const (
	backendName = "remote"
	logDir      = "logs"
)

// Sentinel errors wrapped in provisioning failures.
const (
	ErrNoHost      = sentinel.Error("endpoint has no host")
	ErrNoWorkspace = sentinel.Error("mktemp printed no directory")
)

// Handle is a media server process on a remote host.
type Handle struct {
	req    backend.Request
	dial   Dialer
	log    *slog.Logger
	host   string
	runner Runner
	ws     string // remote workspace, without trailing slash
}

var _ backend.Handle = (*Handle)(nil)

// New returns an unstarted Handle for the endpoint host. A nil dial uses
// Dial.
func New(req backend.Request, dial Dialer) *Handle {
	if dial == nil {
		dial = Dial
	}
	host := ""
	if req.Endpoint != nil {
		host = req.Endpoint.Hostname()
	}
	return &Handle{
		req:  req,
		dial: dial,
		host: host,
		log:  req.Log().With("backend", backendName, "host", host),
	}
}

func (h *Handle) Kind() backend.Kind {
	return backend.RemoteKind{Host: h.host, Credentials: h.req.Credentials, RemoteWorkspacePath: h.ws}
}

// Endpoint returns the configured endpoint, which already names the host.
func (h *Handle) Endpoint() *url.URL { return h.req.Endpoint }

// Workspace returns the remote workspace, or "" before Start.
func (h *Handle) Workspace() string { return h.ws }

// Start opens the session, uploads the rendered files into a new remote
// temporary directory and launches the script detached from the session.
func (h *Handle) Start(ctx context.Context) error {
	if h.host == "" {
		return failure.Provisioning(backendName, "dial", ErrNoHost)
	}
	runner, err := h.dial(ctx, h.host, h.req.Credentials)
	if err != nil {
		return failure.Provisioning(backendName, "dial", err)
	}
	h.runner = runner

	out, err := runner.Run(ctx, "mktemp -d", nil)
	if err != nil {
		return failure.Provisioning(backendName, "create workspace", err)
	}
	ws := strings.TrimRight(strings.TrimSpace(string(out)), "/")
	if ws == "" {
		return failure.Provisioning(backendName, "create workspace", ErrNoWorkspace)
	}
	h.ws = ws

	params := h.req.Params
	params.Workspace = ws + "/"
	files, err := h.req.Render().Files(params)
	if err != nil {
		return failure.Provisioning(backendName, "render", err)
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		dst := path.Join(ws, name)
		if _, err := runner.Run(ctx, "cat > "+quote(dst), bytes.NewReader(files[name])); err != nil {
			return failure.Provisioning(backendName, "upload "+name, err)
		}
	}

	script := path.Join(ws, render.ScriptFile)
	if _, err := runner.Run(ctx, "chmod +x "+quote(script), nil); err != nil {
		return failure.Provisioning(backendName, "chmod", err)
	}
	if _, err := runner.Run(ctx, "sh -c "+quote(quote(script)+" > /dev/null 2>&1 &"), nil); err != nil {
		return failure.Provisioning(backendName, "launch", err)
	}
	h.log.Info("media server launched", "workspace", ws)
	return nil
}

// Terminate signals the pid recorded in the remote workspace.
func (h *Handle) Terminate(ctx context.Context) (process.Result, error) {
	if h.runner == nil || h.ws == "" {
		return process.Result{}, nil
	}
	out, err := h.runner.Run(ctx, "cat "+quote(path.Join(h.ws, process.PIDFileName)), nil)
	if err != nil {
		return process.Result{}, &failure.TerminationWarning{Op: "read pid", Err: err}
	}
	pid, err := process.ParsePID(string(out))
	if err != nil {
		return process.Result{}, &failure.TerminationWarning{Op: "read pid", Err: err}
	}

	cfg := h.req.Termination
	cfg.Name = "kms@" + h.host
	cfg.Logger = h.log
	res, err := process.Escalate(ctx, pidTarget{runner: h.runner, pid: pid}, cfg)
	if err != nil {
		err = fmt.Errorf("pid %d: %w", pid, err)
	}
	return res, err
}

// CollectLogs fetches every file below the remote log directory.
func (h *Handle) CollectLogs(ctx context.Context, outputDir, prefix string) []error {
	if h.runner == nil || h.ws == "" {
		return nil
	}
	dir := path.Join(h.ws, logDir)
	out, err := h.runner.Run(ctx, "find "+quote(dir)+" -type f", nil)
	if err != nil {
		return []error{backend.ListWarning(dir, err)}
	}
	var warnings []error
	for _, f := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		data, err := h.runner.Run(ctx, "cat "+quote(f), nil)
		if err != nil {
			warnings = append(warnings, &failure.LogRetrievalWarning{File: f, Err: err})
			continue
		}
		if err := backend.WriteLog(outputDir, prefix, f, bytes.NewReader(data)); err != nil {
			warnings = append(warnings, err)
		}
	}
	return warnings
}

// Release closes the session. The remote workspace is kept.
func (h *Handle) Release(_ context.Context) error {
	if h.runner == nil {
		return nil
	}
	err := h.runner.Close()
	h.runner = nil
	if err != nil {
		return fmt.Errorf("close ssh session: %w", err)
	}
	return nil
}
