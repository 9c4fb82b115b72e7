package kmsenv

import (
	"context"
	"net/url"

	"github.com/giantswarm/kmsenv/internal/config"
	"github.com/giantswarm/kmsenv/internal/core"
)

// Scope is the test lifecycle span a service stays running for.
type Scope = core.Scope

// Scopes, ordered by how long the server lives.
const (
	ScopeExternal  = core.ScopeExternal
	ScopeTest      = core.ScopeTest
	ScopeTestClass = core.ScopeTestClass
	ScopeTestSuite = core.ScopeTestSuite
)

// ParseScope parses an autostart property value ("false", "external",
// "test", "testclass" or "testsuite", case-insensitively).
func ParseScope(v string) (Scope, error) { return core.ParseScope(v) }

// Boundary describes the lifecycle signal a Start or Stop belongs to.
type Boundary = core.Boundary

// Finding is one error swallowed while stopping a service.
type Finding = core.Finding

// Service is anything an Orchestrator can start and stop. MediaServer is
// the implementation kmsenv provides; tests may register their own.
type Service = core.Service

// PropertySource is the configuration read by a MediaServer. *Properties
// implements it.
type PropertySource = core.PropertySource

// Properties resolves configuration from overrides, KMSENV_ environment
// variables and a YAML file, in that order.
type Properties = config.Properties

// Orchestrator maps test lifecycle signals onto the services registered with
// it. Create one per test binary with NewOrchestrator.
//
// The expected ordering is:
//
//	NewOrchestrator → Register (suite servers start) → SuiteStarted →
//	{ClassStarted → {TestStarted → TestFinished}* → ClassFinished}* →
//	SuiteFinished → Close
//
// The Main, Class and Test helpers deliver these signals for Go tests.
// Signals are serialized; each one reaches every matching service even when
// some of them fail.
type Orchestrator interface {
	// Register adds svc. Registering the same id twice does nothing. A
	// service scoped to the suite is started immediately and its start
	// error is returned.
	Register(ctx context.Context, svc Service) error

	// SuiteStarted marks the start of the suite. Suite servers are already
	// running by then.
	SuiteStarted(ctx context.Context)

	// ClassStarted starts every ScopeTestClass service. Failures are joined.
	ClassStarted(ctx context.Context, classID string) error

	// ClassFinished stops every ScopeTestClass service.
	ClassFinished(ctx context.Context, classID string)

	// TestStarted starts every ScopeTest service. Failures are joined.
	TestStarted(ctx context.Context, testID string) error

	// TestFinished stops every ScopeTest service.
	TestFinished(ctx context.Context, testID string)

	// SuiteFinished stops every ScopeTestSuite service.
	SuiteFinished(ctx context.Context)

	// RunID identifies this run in logs, the journal and container labels.
	RunID() string

	// Findings returns every error recorded so far, including start
	// failures and the warnings swallowed by Stop.
	Findings() []Finding

	// Close flushes and closes the diagnostics journal. It does not stop
	// any service.
	Close() error
}

// MediaServer is a Service that provisions a media server on the backend
// its properties select.
type MediaServer interface {
	Service

	// EndpointURI returns the websocket address clients must use. It is the
	// resolved endpoint while running, the configured one for an external
	// server and nil otherwise.
	EndpointURI() *url.URL

	// LogPath returns the directory the server writes its logs to: the
	// <prefix>.log.path property for an external server, the workspace log
	// directory for a running local server, "" otherwise.
	LogPath() string

	// Running reports whether the server has been started and not stopped.
	Running() bool
}

// Signal identifies the lifecycle event a Boundary belongs to.
type Signal = core.Signal

// SignalManual marks Start and Stop calls made outside an Orchestrator.
const SignalManual = core.SignalManual
