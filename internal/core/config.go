package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/giantswarm/kmsenv/internal/backend"
	"github.com/giantswarm/kmsenv/internal/config"
	"github.com/giantswarm/kmsenv/internal/metrics"
	"github.com/giantswarm/kmsenv/internal/netutil"
	"github.com/giantswarm/kmsenv/internal/process"
	"github.com/giantswarm/kmsenv/internal/readiness"
	"github.com/giantswarm/kmsenv/internal/render"
)

// OrchestratorConfig holds configuration for an Orchestrator. Fields are
// immutable after NewOrchestrator.
type OrchestratorConfig struct {
	// RunID identifies the run in logs, the journal and container labels.
	// Empty means a random UUID.
	RunID string
	// SuiteName is the boundary name of suite scoped callbacks.
	SuiteName string
	// Parallelism bounds how many services one signal drives at once.
	// 1 keeps strict registration order.
	Parallelism int
	// JournalPath, when set, receives every diagnostics finding as a JSON
	// line.
	JournalPath string
	Logger      *slog.Logger
}

// Validate reports every invalid field.
func (c OrchestratorConfig) Validate() error {
	var errs []error
	if c.SuiteName == "" {
		errs = append(errs, errors.New("suite name must not be empty"))
	}
	if c.Parallelism <= 0 {
		errs = append(errs, fmt.Errorf("parallelism must be greater than 0, got %d", c.Parallelism))
	}
	return errors.Join(errs...)
}

// Waiter blocks until an endpoint is ready. *readiness.Prober implements it.
type Waiter interface {
	Wait(ctx context.Context, endpoint *url.URL) (readiness.Result, error)
}

// ScopeFunc derives a server's scope from its properties.
type ScopeFunc func(props PropertySource, names config.PropertyNames) Scope

// ServerConfig holds configuration for a MediaServer.
type ServerConfig struct {
	// ID is the registry identity. Empty means Names.Prefix.
	ID         string
	Names      config.PropertyNames
	Properties PropertySource

	Factory  backend.Factory
	Prober   Waiter
	Renderer *render.Renderer
	// Scope defaults to parsing the autostart property.
	Scope ScopeFunc

	Termination process.EscalateConfig
	// BaseDir is the parent of local workspaces; empty means os.TempDir().
	BaseDir string
	// LockDir holds container name locks; empty means os.TempDir().
	LockDir string

	// Ports deduplicates local ports. An Orchestrator supplies its own
	// registry at registration when this is nil.
	Ports   *netutil.PortRegistry
	Metrics *metrics.Recorder
	Logger  *slog.Logger
}

// Validate reports every invalid field.
func (c ServerConfig) Validate() error {
	var errs []error
	if c.Names.Prefix == "" {
		errs = append(errs, errors.New("property prefix must not be empty"))
	}
	if c.Properties == nil {
		errs = append(errs, errors.New("property source must not be nil"))
	}
	if c.Factory == nil {
		errs = append(errs, errors.New("backend factory must not be nil"))
	}
	if c.Prober == nil {
		errs = append(errs, errors.New("readiness prober must not be nil"))
	}
	if c.Termination.Deadline < 0 {
		errs = append(errs, fmt.Errorf("termination deadline must not be negative, got %s", c.Termination.Deadline))
	}
	if c.Termination.Interval < 0 {
		errs = append(errs, fmt.Errorf("termination interval must not be negative, got %s", c.Termination.Interval))
	}
	return errors.Join(errs...)
}
