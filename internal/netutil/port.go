package netutil

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"
)

// DefaultProbeTimeout bounds a single InUse dial.
const DefaultProbeTimeout = 500 * time.Millisecond

// maxPortRetries limits how often AllocatePort asks the kernel for a port
// that is not already in the registry.
const maxPortRetries = 20

// PortRegistry records the ports reserved by local media servers.
type PortRegistry struct {
	mu    sync.Mutex
	ports map[int]string // port -> owner id
	log   *slog.Logger
}

// NewPortRegistry creates an empty registry. A nil logger falls back to
// slog.Default().
func NewPortRegistry(logger *slog.Logger) *PortRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortRegistry{
		ports: make(map[int]string),
		log:   logger,
	}
}

// Reserve claims port for owner. It returns false, along with the current
// owner, when the port is already reserved by a different owner. Reserving a
// port again for the same owner succeeds.
func (r *PortRegistry) Reserve(port int, owner string) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.ports[port]; ok && cur != owner {
		return false, cur
	}
	r.ports[port] = owner
	return true, owner
}

// Release drops the reservation for port. Releasing an unreserved port is a
// no-op.
func (r *PortRegistry) Release(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ports, port)
}

// Owner returns the owner of port, if reserved.
func (r *PortRegistry) Owner(port int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.ports[port]
	return owner, ok
}

// AllocatePort asks the kernel for a free loopback port, reserves it for
// owner and returns it. The listener is closed before returning, so the port
// is only protected from other callers of this registry.
func (r *PortRegistry) AllocatePort(owner string) (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("resolve tcp address: %w", err)
	}
	for range maxPortRetries {
		l, err := net.ListenTCP("tcp", addr)
		if err != nil {
			return 0, fmt.Errorf("listen on tcp address: %w", err)
		}
		port := l.Addr().(*net.TCPAddr).Port //nolint:forcetypeassert // ListenTCP always yields *TCPAddr
		ok, _ := r.Reserve(port, owner)
		if closeErr := l.Close(); closeErr != nil {
			r.log.Warn("close listener after port allocation", "port", port, "error", closeErr)
		}
		if ok {
			return port, nil
		}
		r.log.Debug("port already in registry, retrying", "port", port)
	}
	return 0, fmt.Errorf("allocate unique port: exhausted %d attempts", maxPortRetries)
}

// InUse reports whether something accepts TCP connections on host:port.
// The probe is best effort: any dial failure, including a timeout, is read
// as "free".
func InUse(ctx context.Context, host string, port int, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
