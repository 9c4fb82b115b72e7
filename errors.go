package kmsenv

import "github.com/giantswarm/kmsenv/internal/failure"

// Error categories for inspection with errors.Is. Every typed error below
// matches exactly one of them.
const (
	// ErrConfiguration is matched by *ConfigurationError.
	ErrConfiguration = failure.ErrConfiguration

	// ErrPortConflict is matched by *PortConflictError.
	ErrPortConflict = failure.ErrPortConflict

	// ErrReadinessTimeout is matched by *ReadinessTimeoutError.
	ErrReadinessTimeout = failure.ErrReadinessTimeout

	// ErrProvisioning is matched by *ProvisioningError.
	ErrProvisioning = failure.ErrProvisioning

	// ErrTermination is matched by *TerminationWarning. It is only ever
	// reported as a Finding.
	ErrTermination = failure.ErrTermination

	// ErrLogRetrieval is matched by *LogRetrievalWarning. It is only ever
	// reported as a Finding.
	ErrLogRetrieval = failure.ErrLogRetrieval
)

// Typed errors for inspection with errors.As.
type (
	// ConfigurationError reports a property combination that cannot be
	// started, such as a remote host without credentials.
	ConfigurationError = failure.ConfigurationError

	// PortConflictError reports that the local endpoint port is taken.
	PortConflictError = failure.PortConflictError

	// ReadinessTimeoutError reports that no websocket handshake succeeded
	// within the readiness budget.
	ReadinessTimeoutError = failure.ReadinessTimeoutError

	// ProvisioningError wraps a workspace, template, process, docker or SSH
	// failure while starting.
	ProvisioningError = failure.ProvisioningError

	// TerminationWarning reports a problem stopping the server process.
	TerminationWarning = failure.TerminationWarning

	// LogRetrievalWarning reports a log file that could not be collected.
	LogRetrievalWarning = failure.LogRetrievalWarning
)
