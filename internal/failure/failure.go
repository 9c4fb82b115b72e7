package failure

import (
	"fmt"
	"net/url"
	"time"

	"github.com/giantswarm/kmsenv/internal/sentinel"
)

// Category sentinels.
const (
	ErrConfiguration    = sentinel.Error("configuration error")
	ErrPortConflict     = sentinel.Error("port conflict")
	ErrReadinessTimeout = sentinel.Error("readiness timeout")
	ErrProvisioning     = sentinel.Error("provisioning failed")
	ErrTermination      = sentinel.Error("termination warning")
	ErrLogRetrieval     = sentinel.Error("log retrieval warning")
)

// ConfigurationError reports a property combination that cannot be started,
// such as a remote endpoint without credentials.
type ConfigurationError struct {
	Property string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Property == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Property, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// PortConflictError reports that the local port of the endpoint is already
// bound, either by another process or by another server in this process.
type PortConflictError struct {
	Host  string
	Port  int
	Owner string // in-process server holding the port, if known
}

func (e *PortConflictError) Error() string {
	if e.Owner != "" {
		return fmt.Sprintf("%s: %s:%d is reserved by %s", ErrPortConflict, e.Host, e.Port, e.Owner)
	}
	return fmt.Sprintf("%s: %s:%d is already in use", ErrPortConflict, e.Host, e.Port)
}

// Is reports whether target is ErrPortConflict.
func (e *PortConflictError) Is(target error) bool { return target == ErrPortConflict }

// ReadinessTimeoutError reports that the server never completed a handshake
// within the attempt budget.
type ReadinessTimeoutError struct {
	Endpoint string
	Budget   time.Duration
	Elapsed  time.Duration
	Attempts int
}

func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("%s: %s did not answer within %s (%d attempts, %s elapsed)",
		ErrReadinessTimeout, e.Endpoint, e.Budget, e.Attempts, e.Elapsed.Round(time.Millisecond))
}

// Is reports whether target is ErrReadinessTimeout.
func (e *ReadinessTimeoutError) Is(target error) bool { return target == ErrReadinessTimeout }

// NewReadinessTimeout builds a ReadinessTimeoutError for endpoint. A nil
// endpoint is rendered as "<none>".
func NewReadinessTimeout(endpoint *url.URL, budget, elapsed time.Duration, attempts int) *ReadinessTimeoutError {
	ep := "<none>"
	if endpoint != nil {
		ep = endpoint.String()
	}
	return &ReadinessTimeoutError{Endpoint: ep, Budget: budget, Elapsed: elapsed, Attempts: attempts}
}

// ProvisioningError wraps a failure while creating the workspace, rendering
// templates, or driving the backend.
type ProvisioningError struct {
	Backend string
	Op      string
	Err     error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("%s: %s backend: %s: %v", ErrProvisioning, e.Backend, e.Op, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// Is reports whether target is ErrProvisioning.
func (e *ProvisioningError) Is(target error) bool { return target == ErrProvisioning }

// Provisioning returns a ProvisioningError, or nil if err is nil.
func Provisioning(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ProvisioningError{Backend: backend, Op: op, Err: err}
}

// TerminationWarning reports a failed signal or liveness query during
// shutdown. PID is zero when the pid could not be read.
type TerminationWarning struct {
	Op  string
	PID int
	Err error
}

func (e *TerminationWarning) Error() string {
	if e.PID == 0 {
		return fmt.Sprintf("%s: %s: %v", ErrTermination, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s pid %d: %v", ErrTermination, e.Op, e.PID, e.Err)
}

func (e *TerminationWarning) Unwrap() error { return e.Err }

// Is reports whether target is ErrTermination.
func (e *TerminationWarning) Is(target error) bool { return target == ErrTermination }

// LogRetrievalWarning reports a log file that could not be listed or copied.
type LogRetrievalWarning struct {
	File string
	Err  error
}

func (e *LogRetrievalWarning) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrLogRetrieval, e.File, e.Err)
}

func (e *LogRetrievalWarning) Unwrap() error { return e.Err }

// Is reports whether target is ErrLogRetrieval.
func (e *LogRetrievalWarning) Is(target error) bool { return target == ErrLogRetrieval }
