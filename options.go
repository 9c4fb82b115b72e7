package kmsenv

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/giantswarm/kmsenv/internal/render"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("kmsenv: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("kmsenv: %s must not be empty", name))
	}
}

// OrchestratorOption configures an Orchestrator during construction via
// NewOrchestrator.
//
// Several With* functions panic on invalid input. Option values are
// typically constants, so an invalid value is a programmer error and is
// reported the way [regexp.MustCompile] reports one.
type OrchestratorOption func(*orchestratorConfig)

// WithSuiteName sets the name of the suite boundary. Logs collected when the
// suite finishes are prefixed with it.
//
// Default: DefaultSuiteName.
//
// Panics if name is empty.
func WithSuiteName(name string) OrchestratorOption {
	requireNonEmpty("suite name", name)
	return func(c *orchestratorConfig) {
		c.SuiteName = name
	}
}

// WithRunID sets the run identifier instead of a random UUID.
// Panics if id is empty.
func WithRunID(id string) OrchestratorOption {
	requireNonEmpty("run id", id)
	return func(c *orchestratorConfig) {
		c.RunID = id
	}
}

// WithParallelDispatch lets one signal drive up to n services at once.
// With n = 1 services are started and stopped one after the other in
// registration order.
//
// Default: DefaultParallelism.
//
// Panics if n <= 0.
func WithParallelDispatch(n int) OrchestratorOption {
	requirePositive("parallel dispatch", n)
	return func(c *orchestratorConfig) {
		c.Parallelism = n
	}
}

// WithJournal appends every Finding to path as one JSON object per line. The
// file and its directory are created when missing.
// Panics if path is empty.
func WithJournal(path string) OrchestratorOption {
	requireNonEmpty("journal path", path)
	return func(c *orchestratorConfig) {
		c.JournalPath = path
	}
}

// ServerOption configures a MediaServer during construction via
// NewMediaServer. Like OrchestratorOption, invalid values panic.
type ServerOption func(*serverConfig)

// WithPrefix sets the property prefix, so several servers can coexist:
// WithPrefix("kms2") reads kms2.ws.uri, kms2.autostart and so on. The
// prefix is also the server id unless WithServerID is used.
//
// Default: DefaultPrefix.
//
// Panics if prefix is empty.
func WithPrefix(prefix string) ServerOption {
	requireNonEmpty("property prefix", prefix)
	return func(c *serverConfig) {
		c.prefix = prefix
	}
}

// WithServerID sets the registry identity of the server.
// Panics if id is empty.
func WithServerID(id string) ServerOption {
	requireNonEmpty("server id", id)
	return func(c *serverConfig) {
		c.ID = id
	}
}

// WithProperties sets the configuration the server reads. Without it the
// server uses properties loaded from DefaultConfigFileName, if found.
// Panics if props is nil.
func WithProperties(props PropertySource) ServerOption {
	if props == nil {
		panic("kmsenv: property source must not be nil")
	}
	return func(c *serverConfig) {
		c.Properties = props
	}
}

// WithScope pins the scope of the server, ignoring <prefix>.autostart.
// Panics if s is not a valid Scope.
func WithScope(s Scope) ServerOption {
	if !s.IsValid() {
		panic(fmt.Sprintf("kmsenv: invalid scope %v", s))
	}
	return func(c *serverConfig) {
		c.fixedScope = &s
	}
}

// WithReadinessAttempts sets how many websocket handshakes are tried before
// a start fails with ErrReadinessTimeout.
//
// Default: DefaultReadinessAttempts.
//
// Panics if n <= 0.
func WithReadinessAttempts(n int) ServerOption {
	requirePositive("readiness attempts", n)
	return func(c *serverConfig) {
		c.readiness.Attempts = n
	}
}

// WithReadinessInterval sets the delay between handshake attempts.
//
// Default: DefaultReadinessInterval.
//
// Panics if d <= 0.
func WithReadinessInterval(d time.Duration) ServerOption {
	requirePositive("readiness interval", d)
	return func(c *serverConfig) {
		c.readiness.Interval = d
	}
}

// WithReadinessHandshakeTimeout sets how long one handshake attempt may take.
// It is independent of the interval between attempts.
//
// Default: DefaultReadinessHandshakeTimeout.
//
// Panics if d <= 0.
func WithReadinessHandshakeTimeout(d time.Duration) ServerOption {
	requirePositive("readiness handshake timeout", d)
	return func(c *serverConfig) {
		c.readiness.HandshakeTimeout = d
	}
}

// WithPassiveWait sets how long a server without a configured endpoint is
// given to come up.
//
// Default: DefaultPassiveWait.
//
// Panics if d <= 0.
func WithPassiveWait(d time.Duration) ServerOption {
	requirePositive("passive wait", d)
	return func(c *serverConfig) {
		c.readiness.PassiveWait = d
	}
}

// WithTerminationDeadline sets how long SIGTERM is retried before the
// server process is killed.
//
// Default: DefaultTerminationDeadline.
//
// Panics if d <= 0.
func WithTerminationDeadline(d time.Duration) ServerOption {
	requirePositive("termination deadline", d)
	return func(c *serverConfig) {
		c.Termination.Deadline = d
	}
}

// WithTerminationInterval sets the delay between liveness checks while
// terminating.
//
// Default: DefaultTerminationInterval.
//
// Panics if d <= 0.
func WithTerminationInterval(d time.Duration) ServerOption {
	requirePositive("termination interval", d)
	return func(c *serverConfig) {
		c.Termination.Interval = d
	}
}

// WithBaseDir sets the parent directory of local workspaces.
// If not set, os.TempDir() is used.
// Panics if dir is empty.
func WithBaseDir(dir string) ServerOption {
	requireNonEmpty("base directory", dir)
	return func(c *serverConfig) {
		c.BaseDir = dir
	}
}

// WithLockDir sets the directory holding the container name locks that
// serialize test binaries sharing one docker daemon.
// If not set, os.TempDir() is used.
// Panics if dir is empty.
func WithLockDir(dir string) ServerOption {
	requireNonEmpty("lock directory", dir)
	return func(c *serverConfig) {
		c.LockDir = dir
	}
}

// WithTemplates replaces the embedded kurento.conf.json and kurento.sh
// templates. fsys must hold kurento.conf.json.tmpl and kurento.sh.tmpl.
// Panics if fsys is nil or a template is missing or invalid.
func WithTemplates(fsys fs.FS) ServerOption {
	if fsys == nil {
		panic("kmsenv: templates must not be nil")
	}
	r, err := render.New(fsys)
	if err != nil {
		panic(fmt.Sprintf("kmsenv: invalid templates: %v", err))
	}
	return func(c *serverConfig) {
		c.Renderer = r
	}
}

// WithMetrics registers start, readiness and teardown metrics with reg.
// Every series carries a server label with the server id, so several
// servers can share one registry.
// Panics if reg is nil.
func WithMetrics(reg prometheus.Registerer) ServerOption {
	if reg == nil {
		panic("kmsenv: metrics registerer must not be nil")
	}
	return func(c *serverConfig) {
		c.registerer = reg
	}
}
