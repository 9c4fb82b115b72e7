// Package failure holds the typed errors reported by the media server
// lifecycle.
//
// Start-path failures (ConfigurationError, PortConflictError,
// ReadinessTimeoutError, ProvisioningError) are returned to the caller.
// Stop-path failures (TerminationWarning, LogRetrievalWarning) are never
// returned from Stop; they are recorded in the diagnostics sink instead.
//
// Every type matches its category sentinel through errors.Is, so callers can
// test the category without errors.As:
//
//	if errors.Is(err, failure.ErrPortConflict) { ... }
package failure
