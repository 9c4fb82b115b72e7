package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/giantswarm/kmsenv/internal/process"
	"github.com/giantswarm/kmsenv/internal/render"
)

// Type identifies a backend.
type Type int

const (
	TypeLocal Type = iota
	TypeContainer
	TypeRemote
)

func (t Type) String() string {
	switch t {
	case TypeLocal:
		return "local"
	case TypeContainer:
		return "container"
	case TypeRemote:
		return "remote"
	default:
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
}

// Handle is a provisioned (or provisioning) media server. Methods are called
// in the order Start, Endpoint, Terminate, CollectLogs, Release; the last
// three also run after a failed Start.
type Handle interface {
	Kind() Kind
	Start(ctx context.Context) error
	// Endpoint is the address clients must use. It is only meaningful after
	// a successful Start.
	Endpoint() *url.URL
	Terminate(ctx context.Context) (process.Result, error)
	// CollectLogs copies server logs into outputDir, each file name prefixed
	// with prefix. Every failure is a *failure.LogRetrievalWarning; none
	// stops the remaining copies.
	CollectLogs(ctx context.Context, outputDir, prefix string) []error
	Release(ctx context.Context) error
}

// Factory builds the handle for a selected backend.
type Factory interface {
	New(t Type, req Request) (Handle, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(t Type, req Request) (Handle, error)

// New calls f.
func (f FactoryFunc) New(t Type, req Request) (Handle, error) { return f(t, req) }

// Request is everything a handle needs to provision one server.
type Request struct {
	// Owner is the stable id of the server, used for naming and locks.
	Owner string
	// RunID is the id of the orchestrating run, attached to containers.
	RunID string

	// Endpoint is the configured websocket URI.
	Endpoint *url.URL
	// Params are the template values. Workspace is filled in by the handle.
	Params   render.Params
	Renderer *render.Renderer

	ImageName     string
	ForcePull     bool
	TestFilesPath string
	OutputDir     string

	Credentials Credentials

	// BaseDir is the parent of local workspaces. Empty means os.TempDir().
	BaseDir string
	// LockDir holds container name locks. Empty means os.TempDir().
	LockDir string

	Termination process.EscalateConfig
	Logger      *slog.Logger
}

// Log returns the request logger or slog.Default().
func (r Request) Log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Render returns the request renderer or render.Default().
func (r Request) Render() *render.Renderer {
	if r.Renderer != nil {
		return r.Renderer
	}
	return render.Default()
}

// Select picks the backend for endpoint. The container flag wins; otherwise
// a non-loopback host means Remote and anything else Local.
func Select(endpoint *url.URL, containerFlag bool) Type {
	if containerFlag {
		return TypeContainer
	}
	if endpoint != nil && !IsLoopback(endpoint.Hostname()) {
		return TypeRemote
	}
	return TypeLocal
}

// IsLoopback reports whether host names this machine.
func IsLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Port returns the explicit port of u.
func Port(u *url.URL) (int, error) {
	if u == nil {
		return 0, errors.New("no endpoint")
	}
	s := u.Port()
	if s == "" {
		return 0, fmt.Errorf("endpoint %s has no port", u)
	}
	p, err := strconv.Atoi(s)
	if err != nil || p <= 0 || p > 65535 {
		return 0, fmt.Errorf("endpoint %s has invalid port %q", u, s)
	}
	return p, nil
}

// Path returns the endpoint path without its leading slash.
func Path(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
