package container

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/giantswarm/kmsenv/internal/backend"
	"github.com/giantswarm/kmsenv/internal/failure"
	"github.com/giantswarm/kmsenv/internal/process"
	"github.com/giantswarm/kmsenv/internal/sentinel"
)

const (
	// DefaultName is the container name when the server id is empty.
	DefaultName = "kms"
	// ServerPort and ServerPath are where the image's server listens.
	ServerPort = 8888
	ServerPath = "/kurento"
	// LogFile is the collected container log, after the prefix.
	LogFile = "kms.log"

	// Label keys attached to created containers.
	LabelRun   = "io.kmsenv.run"
	LabelOwner = "io.kmsenv.owner"

	// DefaultStopTimeout is passed to docker stop.
	DefaultStopTimeout = 5 * time.Second

	backendName = "container"
)

// Sentinel errors wrapped in provisioning failures.
const (
	ErrNoImage   = sentinel.Error("no image name configured")
	ErrNoAddress = sentinel.Error("container has no usable IP address")
)

// Handle is a media server container.
type Handle struct {
	req    backend.Request
	engine Engine
	env    Environment
	log    *slog.Logger

	name     string
	created  bool
	endpoint *url.URL
}

var _ backend.Handle = (*Handle)(nil)

// New returns an unstarted Handle. The container is named after the
// request owner, or <hostname>_<owner> when env says the tests themselves
// run in a container.
func New(req backend.Request, engine Engine, env Environment) *Handle {
	name := req.Owner
	if name == "" {
		name = DefaultName
	}
	if env.InContainer {
		name = env.Hostname + "_" + name
	}
	return &Handle{
		req:    req,
		engine: engine,
		env:    env,
		name:   name,
		log:    req.Log().With("backend", backendName, "container", name),
	}
}

// Name returns the container name.
func (h *Handle) Name() string { return h.name }

func (h *Handle) Kind() backend.Kind {
	return backend.ContainerKind{ImageName: h.req.ImageName, ContainerName: h.name}
}

// Endpoint is the websocket address on the container's IP, nil before Start.
func (h *Handle) Endpoint() *url.URL { return h.endpoint }

// Start pulls the image if needed, replaces any container with the same
// name, starts a new one and resolves its address.
func (h *Handle) Start(ctx context.Context) error {
	image := h.req.ImageName
	if image == "" {
		return failure.Provisioning(backendName, "resolve image", ErrNoImage)
	}
	if err := h.ensureImage(ctx, image); err != nil {
		return failure.Provisioning(backendName, "pull", err)
	}

	lockDir := h.req.LockDir
	if lockDir == "" {
		lockDir = os.TempDir()
	}
	lock, err := acquireNameLock(ctx, lockDir, h.name)
	if err != nil {
		return failure.Provisioning(backendName, "lock", err)
	}
	defer releaseNameLock(h.log, lock)

	exists, err := h.engine.ContainerExists(ctx, h.name)
	if err != nil {
		return failure.Provisioning(backendName, "inspect", err)
	}
	if exists {
		h.log.Info("removing stale container")
		if err := h.engine.Remove(ctx, h.name); err != nil {
			return failure.Provisioning(backendName, "remove stale", err)
		}
	}

	spec, err := h.spec(image)
	if err != nil {
		return failure.Provisioning(backendName, "create", err)
	}
	if _, err := h.engine.Create(ctx, spec); err != nil {
		return failure.Provisioning(backendName, "create", err)
	}
	h.created = true
	if err := h.engine.Start(ctx, h.name); err != nil {
		return failure.Provisioning(backendName, "start", err)
	}

	ip, err := h.engine.IPAddress(ctx, h.name)
	if err != nil {
		return failure.Provisioning(backendName, "inspect address", err)
	}
	if parsed := net.ParseIP(ip); parsed == nil || parsed.IsUnspecified() {
		return failure.Provisioning(backendName, "inspect address", fmt.Errorf("%w: %q", ErrNoAddress, ip))
	}
	h.endpoint = &url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(ip, strconv.Itoa(ServerPort)),
		Path:   ServerPath,
	}
	h.log.Info("media server container started", "image", image, "endpoint", h.endpoint.String())
	return nil
}

func (h *Handle) ensureImage(ctx context.Context, image string) error {
	exists, err := h.engine.ImageExists(ctx, image)
	if err != nil {
		return err
	}
	if exists && !h.req.ForcePull {
		return nil
	}
	h.log.Info("pulling image", "image", image, "force", h.req.ForcePull)
	if err := h.engine.Pull(ctx, image); err != nil {
		if exists {
			h.log.Warn("image pull failed; using local copy", "image", image, "error", err)
			return nil
		}
		return err
	}
	return nil
}

func (h *Handle) spec(image string) (CreateSpec, error) {
	spec := CreateSpec{
		Name:  h.name,
		Image: image,
		Env:   map[string]string{"GST_DEBUG": h.req.Params.DebugOptions},
		Labels: map[string]string{
			LabelOwner: h.req.Owner,
		},
		Cmd: []string{"--gst-debug-no-color"},
	}
	if h.req.RunID != "" {
		spec.Labels[LabelRun] = h.req.RunID
	}
	if h.env.InContainer {
		spec.VolumesFrom = h.env.Hostname
		return spec, nil
	}
	if p := h.req.TestFilesPath; p != "" {
		spec.Binds = append(spec.Binds, p+":"+p+":ro")
	}
	if out := h.req.OutputDir; out != "" {
		abs, err := filepath.Abs(out)
		if err != nil {
			return CreateSpec{}, fmt.Errorf("resolve output folder: %w", err)
		}
		spec.Binds = append(spec.Binds, abs+":"+abs+":rw")
	}
	return spec, nil
}

// Terminate runs docker stop, which kills the server itself once its grace
// period expires.
func (h *Handle) Terminate(ctx context.Context) (process.Result, error) {
	if !h.created {
		return process.Result{}, nil
	}
	timeout := h.req.Termination.Deadline
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	start := time.Now()
	if err := h.engine.Stop(ctx, h.name, timeout); err != nil {
		return process.Result{Elapsed: time.Since(start)}, &failure.TerminationWarning{Op: "docker stop", Err: err}
	}
	return process.Result{Graceful: true, Elapsed: time.Since(start)}, nil
}

// CollectLogs stores the container output as <prefix>-kms.log.
func (h *Handle) CollectLogs(ctx context.Context, outputDir, prefix string) []error {
	if !h.created {
		return nil
	}
	var buf bytes.Buffer
	if err := h.engine.Logs(ctx, h.name, &buf); err != nil {
		return []error{&failure.LogRetrievalWarning{File: h.name, Err: err}}
	}
	if err := backend.WriteLog(outputDir, prefix, LogFile, &buf); err != nil {
		return []error{err}
	}
	return nil
}

// Release force-removes the container.
func (h *Handle) Release(ctx context.Context) error {
	if !h.created {
		return nil
	}
	if err := h.engine.Remove(ctx, h.name); err != nil {
		return fmt.Errorf("remove container %s: %w", h.name, err)
	}
	h.created = false
	return nil
}
