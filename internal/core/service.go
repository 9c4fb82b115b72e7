package core

import (
	"context"
	"fmt"
)

// Signal is a test lifecycle event delivered to an Orchestrator.
type Signal int

const (
	// SignalRegistered is the eager start of a suite service at registration.
	SignalRegistered Signal = iota
	SignalSuiteStarted
	SignalClassStarted
	SignalClassFinished
	SignalTestStarted
	SignalTestFinished
	SignalSuiteFinished
	// SignalManual marks callbacks made outside an Orchestrator, e.g. by the
	// CLI.
	SignalManual
)

func (s Signal) String() string {
	switch s {
	case SignalRegistered:
		return "registered"
	case SignalSuiteStarted:
		return "suite-started"
	case SignalClassStarted:
		return "class-started"
	case SignalClassFinished:
		return "class-finished"
	case SignalTestStarted:
		return "test-started"
	case SignalTestFinished:
		return "test-finished"
	case SignalSuiteFinished:
		return "suite-finished"
	case SignalManual:
		return "manual"
	default:
		return fmt.Sprintf("Signal(%d)", int(s))
	}
}

// Boundary is passed to every lifecycle callback.
type Boundary struct {
	Signal Signal
	// Name is the suite, class or test id. Collected logs are prefixed
	// with it.
	Name string
	// Diagnostics receives errors swallowed by Stop. It may be nil.
	Diagnostics *Diagnostics
}

// Service is a supervised server. Scope is re-evaluated on every call, so it
// may follow live configuration.
type Service interface {
	ID() string
	Scope() Scope
	Start(ctx context.Context, b Boundary) error
	// Stop never fails; problems are reported to b.Diagnostics.
	Stop(ctx context.Context, b Boundary)
}

// PropertySource is the configuration a MediaServer reads. Set is used to
// export the resolved endpoint.
type PropertySource interface {
	Get(name, def string) string
	Set(name, value string)
}
