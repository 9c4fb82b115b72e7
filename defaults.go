package kmsenv

import (
	"github.com/giantswarm/kmsenv/internal/config"
	"github.com/giantswarm/kmsenv/internal/process"
	"github.com/giantswarm/kmsenv/internal/readiness"
)

// Default configuration values for NewOrchestrator and NewMediaServer.
// These constants are exported so callers can reference the defaults
// when building configurations relative to them (e.g.,
// 2 * DefaultTerminationDeadline).
const (
	// DefaultSuiteName names the suite boundary when WithSuiteName is not
	// used. Logs collected when the suite finishes are prefixed with it.
	DefaultSuiteName = "kmsenv"

	// DefaultParallelism drives the services of one signal one at a time,
	// in registration order.
	DefaultParallelism = 1

	// DefaultPrefix is the property prefix of the primary media server.
	DefaultPrefix = config.DefaultPrefix

	// DefaultConfigFileName is the YAML file looked up when no property
	// source is given.
	DefaultConfigFileName = config.DefaultConfigFileName

	// DefaultReadinessAttempts and DefaultReadinessInterval give a 30 second
	// readiness budget.
	DefaultReadinessAttempts = readiness.DefaultAttempts
	DefaultReadinessInterval = readiness.DefaultInterval

	// DefaultPassiveWait is how long a server without a configured endpoint
	// is given to come up.
	DefaultPassiveWait = readiness.DefaultPassiveWait

	// DefaultReadinessHandshakeTimeout bounds a single websocket handshake
	// during readiness probing.
	DefaultReadinessHandshakeTimeout = readiness.DefaultHandshakeTimeout

	// DefaultTerminationDeadline is how long SIGTERM is retried before the
	// process is killed.
	DefaultTerminationDeadline = process.DefaultTerminationDeadline

	// DefaultTerminationInterval is the delay between liveness checks while
	// terminating.
	DefaultTerminationInterval = process.DefaultTerminationInterval
)
