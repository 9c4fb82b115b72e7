package kmsenv

import (
	"context"
	"net/url"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/giantswarm/kmsenv/internal/config"
	"github.com/giantswarm/kmsenv/internal/core"
	"github.com/giantswarm/kmsenv/internal/metrics"
	"github.com/giantswarm/kmsenv/internal/readiness"
)

// Compile-time interface satisfaction checks.
var (
	_ Orchestrator = (*orchestratorWrapper)(nil)
	_ MediaServer  = (*serverWrapper)(nil)
)

// orchestratorConfig wraps core.OrchestratorConfig, keeping internal/core
// types out of the public API.
type orchestratorConfig struct {
	core.OrchestratorConfig
}

// serverConfig wraps core.ServerConfig with the values that are turned into
// core collaborators by NewMediaServer.
type serverConfig struct {
	core.ServerConfig
	prefix     string
	fixedScope *Scope
	readiness  readiness.Prober
	registerer prometheus.Registerer
}

func defaultOrchestratorConfig() orchestratorConfig {
	return orchestratorConfig{core.OrchestratorConfig{
		SuiteName:   DefaultSuiteName,
		Parallelism: DefaultParallelism,
	}}
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		ServerConfig: core.ServerConfig{
			Factory: core.DefaultFactory(),
		},
		prefix: DefaultPrefix,
		readiness: readiness.Prober{
			Attempts:         DefaultReadinessAttempts,
			Interval:         DefaultReadinessInterval,
			PassiveWait:      DefaultPassiveWait,
			HandshakeTimeout: DefaultReadinessHandshakeTimeout,
		},
	}
}

// toCoreConfig resolves the remaining collaborators. props is used when no
// property source was configured.
func (c serverConfig) toCoreConfig(props PropertySource) core.ServerConfig {
	cfg := c.ServerConfig
	cfg.Names = config.NamesFor(c.prefix)
	if cfg.Properties == nil {
		cfg.Properties = props
	}
	if c.fixedScope != nil {
		s := *c.fixedScope
		cfg.Scope = func(core.PropertySource, config.PropertyNames) core.Scope { return s }
	}
	prober := c.readiness
	prober.Logger = core.Logger()
	cfg.Prober = &prober
	if c.registerer != nil {
		id := cfg.ID
		if id == "" {
			id = c.prefix
		}
		cfg.Metrics = metrics.New(prometheus.WrapRegistererWith(prometheus.Labels{"server": id}, c.registerer))
	}
	return cfg
}

// orchestratorWrapper wraps core.Orchestrator to implement Orchestrator.
// The core value is a named field so callers cannot reach internal methods
// through type assertions.
type orchestratorWrapper struct {
	orch *core.Orchestrator
}

// Register unwraps servers created by NewMediaServer so the orchestrator can
// share its port registry and diagnostics with them.
func (w *orchestratorWrapper) Register(ctx context.Context, svc Service) error {
	if s, ok := svc.(*serverWrapper); ok {
		return w.orch.Register(ctx, s.srv)
	}
	return w.orch.Register(ctx, svc)
}

func (w *orchestratorWrapper) SuiteStarted(ctx context.Context) { w.orch.SuiteStarted(ctx) }

func (w *orchestratorWrapper) ClassStarted(ctx context.Context, classID string) error {
	return w.orch.ClassStarted(ctx, classID)
}

func (w *orchestratorWrapper) ClassFinished(ctx context.Context, classID string) {
	w.orch.ClassFinished(ctx, classID)
}

func (w *orchestratorWrapper) TestStarted(ctx context.Context, testID string) error {
	return w.orch.TestStarted(ctx, testID)
}

func (w *orchestratorWrapper) TestFinished(ctx context.Context, testID string) {
	w.orch.TestFinished(ctx, testID)
}

func (w *orchestratorWrapper) SuiteFinished(ctx context.Context) { w.orch.SuiteFinished(ctx) }

func (w *orchestratorWrapper) RunID() string { return w.orch.RunID() }

func (w *orchestratorWrapper) Findings() []Finding { return w.orch.Diagnostics().Findings() }

func (w *orchestratorWrapper) Close() error { return w.orch.Close() }

// serverWrapper wraps core.MediaServer to implement MediaServer.
type serverWrapper struct {
	srv *core.MediaServer
}

func (w *serverWrapper) ID() string                                  { return w.srv.ID() }
func (w *serverWrapper) Scope() Scope                                { return w.srv.Scope() }
func (w *serverWrapper) Start(ctx context.Context, b Boundary) error { return w.srv.Start(ctx, b) }
func (w *serverWrapper) Stop(ctx context.Context, b Boundary)        { w.srv.Stop(ctx, b) }
func (w *serverWrapper) EndpointURI() *url.URL                       { return w.srv.EndpointURI() }
func (w *serverWrapper) LogPath() string                             { return w.srv.LogPath() }
func (w *serverWrapper) Running() bool                               { return w.srv.Running() }

// NewOrchestrator creates an Orchestrator with no registered services.
//
// The only error is a journal (WithJournal) that cannot be opened. Panics if
// any option receives an invalid value; see the individual With* functions.
//
//nolint:ireturn // Returns Orchestrator interface by design for testability (mockable).
func NewOrchestrator(opts ...OrchestratorOption) (Orchestrator, error) {
	cfg := defaultOrchestratorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	orch, err := core.NewOrchestrator(cfg.OrchestratorConfig)
	if err != nil {
		return nil, err
	}
	return &orchestratorWrapper{orch: orch}, nil
}

// NewMediaServer creates a stopped media server. It performs no I/O apart
// from loading the default configuration file when WithProperties is not
// used; the returned error is a configuration file that cannot be parsed.
//
// Panics if any option receives an invalid value.
//
//nolint:ireturn // Returns MediaServer interface by design for testability (mockable).
func NewMediaServer(opts ...ServerOption) (MediaServer, error) {
	cfg := defaultServerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	var props PropertySource
	if cfg.Properties == nil {
		p, err := DefaultProperties()
		if err != nil {
			return nil, err
		}
		props = p
	}
	return &serverWrapper{srv: core.NewMediaServer(cfg.toCoreConfig(props))}, nil
}

// Shared properties for servers created without WithProperties.
var defaultProperties = sync.OnceValues(func() (*Properties, error) {
	return LoadProperties(DefaultConfigFileName)
})

// DefaultProperties returns the properties shared by every server created
// without WithProperties. They are loaded from DefaultConfigFileName on
// first use.
func DefaultProperties() (*Properties, error) {
	return defaultProperties()
}

// LoadProperties looks name up in ./config, the working directory,
// $XDG_CONFIG_HOME/kmsenv and /etc/kmsenv, and loads the first match. When
// no file exists, the properties only resolve overrides, KMSENV_ environment
// variables and defaults.
func LoadProperties(name string) (*Properties, error) {
	return config.LoadDefault(name)
}

// NewProperties returns properties seeded with values, as if they had been
// read from a configuration file. Environment variables still take
// precedence over values.
func NewProperties(values map[string]string) *Properties {
	return config.New(config.WithValues(values))
}
