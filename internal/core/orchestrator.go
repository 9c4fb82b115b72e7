package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/kmsenv/internal/netutil"
)

// Orchestrator maps test lifecycle signals onto the services registered with
// it. Signals are serialized; each one reaches every matching service even
// when some of them fail.
type Orchestrator struct {
	mu       sync.Mutex // serializes signals and registration
	cfg      OrchestratorConfig
	registry *Registry
	diag     *Diagnostics
	ports    *netutil.PortRegistry
	log      *slog.Logger
}

// orchestrated is implemented by services that want the orchestrator's
// shared state when they are registered.
type orchestrated interface {
	attach(o *Orchestrator)
}

// NewOrchestrator creates an Orchestrator with an empty registry. Panics if
// cfg is invalid; the only returned error is a journal that cannot be opened.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("kmsenv: invalid orchestrator config: %v", err))
	}
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}
	log = log.With("run_id", cfg.RunID)

	diag := NewDiagnostics(cfg.RunID, log)
	if cfg.JournalPath != "" {
		if err := diag.OpenJournal(cfg.JournalPath); err != nil {
			return nil, err
		}
	}
	return &Orchestrator{
		cfg:      cfg,
		registry: NewRegistry(),
		diag:     diag,
		ports:    netutil.NewPortRegistry(log),
		log:      log,
	}, nil
}

// RunID returns the run identifier.
func (o *Orchestrator) RunID() string { return o.cfg.RunID }

// Diagnostics returns the sink that collects swallowed errors.
func (o *Orchestrator) Diagnostics() *Diagnostics { return o.diag }

// Ports returns the local port registry shared by registered servers.
func (o *Orchestrator) Ports() *netutil.PortRegistry { return o.ports }

// Services returns the registered services in registration order.
func (o *Orchestrator) Services() []Service { return o.registry.Services() }

// Register adds svc. Registering an id a second time does nothing; a
// different instance under a taken id is logged as a warning and dropped. A
// service whose current scope is ScopeTestSuite is started immediately; its
// start error is returned and recorded in the diagnostics.
func (o *Orchestrator) Register(ctx context.Context, svc Service) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.registry.Add(svc) {
		if cur, _ := o.registry.Lookup(svc.ID()); !sameService(cur, svc) {
			o.log.Warn("another service is already registered under this id; ignoring it", "service", svc.ID())
			return nil
		}
		o.log.Debug("service already registered", "service", svc.ID())
		return nil
	}
	if a, ok := svc.(orchestrated); ok {
		a.attach(o)
	}
	o.log.Debug("service registered", "service", svc.ID(), "scope", svc.Scope())
	if svc.Scope() != ScopeTestSuite {
		return nil
	}
	return o.start(ctx, svc, o.boundary(SignalRegistered, o.cfg.SuiteName))
}

// SuiteStarted does nothing: suite services start when they are registered.
func (o *Orchestrator) SuiteStarted(_ context.Context) {
	o.log.Debug("suite started", "suite", o.cfg.SuiteName)
}

// ClassStarted starts every ScopeTestClass service.
func (o *Orchestrator) ClassStarted(ctx context.Context, classID string) error {
	return o.startAll(ctx, ScopeTestClass, o.boundary(SignalClassStarted, classID))
}

// ClassFinished stops every ScopeTestClass service.
func (o *Orchestrator) ClassFinished(ctx context.Context, classID string) {
	o.stopAll(ctx, ScopeTestClass, o.boundary(SignalClassFinished, classID))
}

// TestStarted starts every ScopeTest service.
func (o *Orchestrator) TestStarted(ctx context.Context, testID string) error {
	return o.startAll(ctx, ScopeTest, o.boundary(SignalTestStarted, testID))
}

// TestFinished stops every ScopeTest service.
func (o *Orchestrator) TestFinished(ctx context.Context, testID string) {
	o.stopAll(ctx, ScopeTest, o.boundary(SignalTestFinished, testID))
}

// SuiteFinished stops every ScopeTestSuite service.
func (o *Orchestrator) SuiteFinished(ctx context.Context) {
	o.stopAll(ctx, ScopeTestSuite, o.boundary(SignalSuiteFinished, o.cfg.SuiteName))
}

// Close releases the diagnostics journal. Services are not stopped.
func (o *Orchestrator) Close() error {
	return o.diag.Close()
}

// sameService reports whether a and b are the same instance. Services of a
// non-comparable type are never the same.
func sameService(a, b Service) bool {
	if a == nil || b == nil {
		return a == b
	}
	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) || !t.Comparable() {
		return false
	}
	return a == b
}

func (o *Orchestrator) boundary(sig Signal, name string) Boundary {
	return Boundary{Signal: sig, Name: name, Diagnostics: o.diag}
}

func (o *Orchestrator) start(ctx context.Context, svc Service, b Boundary) error {
	err := svc.Start(ctx, b)
	if err == nil {
		return nil
	}
	o.log.Error("service start failed", "service", svc.ID(), "signal", b.Signal, "boundary", b.Name, "error", err)
	o.diag.Record(Finding{ServiceID: svc.ID(), Phase: PhaseStart, Signal: b.Signal.String(), Boundary: b.Name, Err: err})
	return fmt.Errorf("start %s: %w", svc.ID(), err)
}

func (o *Orchestrator) startAll(ctx context.Context, scope Scope, b Boundary) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	services := o.registry.WithScope(scope)
	errs := make([]error, len(services))
	o.dispatch(len(services), func(i int) {
		errs[i] = o.start(ctx, services[i], b)
	})
	return errors.Join(errs...)
}

func (o *Orchestrator) stopAll(ctx context.Context, scope Scope, b Boundary) {
	o.mu.Lock()
	defer o.mu.Unlock()

	services := o.registry.WithScope(scope)
	o.dispatch(len(services), func(i int) {
		services[i].Stop(ctx, b)
	})
}

// dispatch runs fn for 0..n-1, in order when Parallelism is 1, otherwise
// with at most Parallelism calls in flight.
func (o *Orchestrator) dispatch(n int, fn func(i int)) {
	if o.cfg.Parallelism <= 1 || n <= 1 {
		for i := range n {
			fn(i)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(o.cfg.Parallelism)
	for i := range n {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}
