package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/giantswarm/kmsenv/internal/backend"
	"github.com/giantswarm/kmsenv/internal/config"
	"github.com/giantswarm/kmsenv/internal/failure"
	"github.com/giantswarm/kmsenv/internal/local"
	"github.com/giantswarm/kmsenv/internal/netutil"
	"github.com/giantswarm/kmsenv/internal/render"
)

// runningState exists between a successful Start and the end of Stop.
type runningState struct {
	typ      backend.Type
	handle   backend.Handle
	endpoint *url.URL
	port     int // reserved local port, 0 if none
	started  time.Time
}

// MediaServer is a Service that provisions a media server on the backend
// its properties select.
type MediaServer struct {
	mu    sync.Mutex // serializes Start and Stop
	cfg   ServerConfig
	id    string
	log   *slog.Logger
	state *runningState

	// Filled in by an Orchestrator at registration.
	runID string
	diag  *Diagnostics
}

var (
	_ Service      = (*MediaServer)(nil)
	_ orchestrated = (*MediaServer)(nil)
)

// NewMediaServer creates a stopped server. Panics if cfg is invalid.
func NewMediaServer(cfg ServerConfig) *MediaServer {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("kmsenv: invalid server config: %v", err))
	}
	id := cfg.ID
	if id == "" {
		id = cfg.Names.Prefix
	}
	if cfg.Scope == nil {
		cfg.Scope = AutostartScope
	}
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}
	return &MediaServer{cfg: cfg, id: id, log: log.With("service", id)}
}

func (s *MediaServer) attach(o *Orchestrator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.Ports == nil {
		s.cfg.Ports = o.ports
	}
	s.runID = o.cfg.RunID
	s.diag = o.diag
	s.log = s.log.With("run_id", o.cfg.RunID)
}

// AutostartScope parses the <prefix>.autostart property. Unknown values
// fall back to ScopeTestSuite.
func AutostartScope(props PropertySource, names config.PropertyNames) Scope {
	scope, err := ParseScope(props.Get(names.Autostart, config.DefaultAutostart))
	if err != nil {
		Logger().Warn("invalid autostart value; using testsuite", "property", names.Autostart, "error", err)
	}
	return scope
}

// ID returns the registry identity.
func (s *MediaServer) ID() string { return s.id }

// Scope evaluates the scope function against the current properties.
func (s *MediaServer) Scope() Scope {
	return s.cfg.Scope(s.cfg.Properties, s.cfg.Names)
}

// Running reports whether Start has succeeded and Stop has not yet run.
func (s *MediaServer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil
}

// Backend returns the kind of the running backend, or nil.
func (s *MediaServer) Backend() backend.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	return s.state.handle.Kind()
}

// EndpointURI returns the address clients must use: the resolved endpoint
// while running, the configured one for an external server, nil otherwise.
func (s *MediaServer) EndpointURI() *url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil {
		u := *s.state.endpoint
		return &u
	}
	if s.Scope() == ScopeExternal {
		u, err := s.configuredEndpoint()
		if err == nil {
			return u
		}
	}
	return nil
}

// LogPath returns where the server writes its logs: the configured log
// path for an external server, the workspace log directory of a running
// local server, "" otherwise.
func (s *MediaServer) LogPath() string {
	if s.Scope() == ScopeExternal {
		return s.cfg.Properties.Get(s.cfg.Names.LogPath, config.DefaultLogPath)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return ""
	}
	if k, ok := s.state.handle.Kind().(backend.LocalKind); ok && k.WorkspacePath != "" {
		return filepath.Join(k.WorkspacePath, local.LogDir) + string(filepath.Separator)
	}
	return ""
}

func (s *MediaServer) configuredEndpoint() (*url.URL, error) {
	raw := strings.TrimSpace(s.cfg.Properties.Get(s.cfg.Names.WSURI, config.DefaultWSURI))
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &failure.ConfigurationError{Property: s.cfg.Names.WSURI, Reason: err.Error()}
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, &failure.ConfigurationError{Property: s.cfg.Names.WSURI, Reason: fmt.Sprintf("scheme must be ws or wss, got %q", u.Scheme)}
	}
	return u, nil
}

func (s *MediaServer) credentials() backend.Credentials {
	p, n := s.cfg.Properties, s.cfg.Names
	return backend.Credentials{
		Login:          p.Get(n.Login, ""),
		Password:       p.Get(n.Password, ""),
		PrivateKeyPEM:  p.Get(n.PEM, ""),
		KnownHostsPath: p.Get(n.KnownHosts, ""),
	}
}

// Start provisions the server and waits for it to accept connections. It
// is a no-op while the server is running.
func (s *MediaServer) Start(ctx context.Context, b Boundary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil {
		s.log.Debug("already running; start ignored")
		return nil
	}
	begin := time.Now()
	typ, err := s.start(ctx, b)
	s.cfg.Metrics.Start(typ.String(), time.Since(begin), err)
	return err
}

func (s *MediaServer) start(ctx context.Context, b Boundary) (backend.Type, error) {
	props, names := s.cfg.Properties, s.cfg.Names
	endpoint, err := s.configuredEndpoint()
	if err != nil {
		return backend.TypeLocal, err
	}

	// The container flag is settled before the remote decision uses it.
	containerFlag := strings.EqualFold(strings.TrimSpace(props.Get(names.Scope, config.DefaultScope)), config.ScopeDocker)
	typ := backend.Select(endpoint, containerFlag)

	if endpoint == nil && typ != backend.TypeContainer {
		s.log.Info("no endpoint configured; waiting passively")
		_, err := s.cfg.Prober.Wait(ctx, nil)
		return typ, err
	}

	if typ == backend.TypeLocal && endpoint.Port() == "0" {
		if endpoint, err = s.allocateEndpoint(endpoint); err != nil {
			return typ, err
		}
	}
	if typ != backend.TypeContainer {
		if err := checkResolved(endpoint); err != nil {
			return typ, &failure.ConfigurationError{Property: names.WSURI, Reason: err.Error()}
		}
	}

	req := backend.Request{
		Owner:         s.id,
		RunID:         s.runID,
		Endpoint:      endpoint,
		Renderer:      s.cfg.Renderer,
		ImageName:     props.Get(names.ImageName, config.DefaultImageName),
		ForcePull:     config.ParseBool(props.Get(names.ForcePull, ""), config.DefaultForcePull),
		TestFilesPath: props.Get(config.TestFilesPathProp, config.DefaultTestFilesPath),
		OutputDir:     s.outputDir(),
		BaseDir:       s.cfg.BaseDir,
		LockDir:       s.cfg.LockDir,
		Termination:   s.cfg.Termination,
		Logger:        s.log.With("backend", typ.String()),
		Params: render.Params{
			WSPath:                backend.Path(endpoint),
			Registrar:             props.Get(names.RegistrarURI, ""),
			RegistrarLocalAddress: props.Get(names.RegistrarLocalAddress, ""),
			GstPlugins:            props.Get(names.GstPlugins, config.DefaultGstPlugins),
			DebugOptions:          props.Get(names.Debug, config.DefaultDebugOptions),
			ServerCommand:         props.Get(names.Command, config.DefaultServerCommand),
		},
	}

	port := 0
	switch typ {
	case backend.TypeRemote:
		creds := s.credentials()
		if !creds.Valid() {
			prop := names.Password
			if creds.Login == "" {
				prop = names.Login
			}
			return typ, &failure.ConfigurationError{
				Property: prop,
				Reason:   fmt.Sprintf("remote host %s requires a login plus a password or private key (missing %s)", endpoint.Hostname(), creds.Missing()),
			}
		}
		req.Credentials = creds
		if req.Params.WSPort, err = endpointPort(endpoint, names); err != nil {
			return typ, err
		}
	case backend.TypeLocal:
		if port, err = s.reservePort(ctx, endpoint); err != nil {
			return typ, err
		}
		req.Params.WSPort = port
	}

	handle, err := s.cfg.Factory.New(typ, req)
	if err != nil {
		s.releasePort(port)
		return typ, failure.Provisioning(typ.String(), "create handle", err)
	}
	s.log.Info("starting media server", "backend", typ.String(), "endpoint", endpointString(endpoint))

	if err := handle.Start(ctx); err != nil {
		s.teardown(ctx, handle, b, typ)
		s.releasePort(port)
		return typ, err
	}
	resolved := handle.Endpoint()
	if err := checkResolved(resolved); err != nil {
		s.teardown(ctx, handle, b, typ)
		s.releasePort(port)
		return typ, failure.Provisioning(typ.String(), "resolve endpoint", err)
	}
	res, err := s.cfg.Prober.Wait(ctx, resolved)
	if err != nil {
		s.teardown(ctx, handle, b, typ)
		s.releasePort(port)
		return typ, err
	}
	s.cfg.Metrics.Readiness(res.Attempts)

	props.Set(names.WSURIExport, resolved.String())
	s.state = &runningState{typ: typ, handle: handle, endpoint: resolved, port: port, started: time.Now()}
	s.log.Info("media server ready", "backend", typ.String(), "endpoint", resolved.String(), "attempts", res.Attempts, "elapsed", res.Elapsed)
	return typ, nil
}

func (s *MediaServer) reservePort(ctx context.Context, endpoint *url.URL) (int, error) {
	port, err := endpointPort(endpoint, s.cfg.Names)
	if err != nil {
		return 0, err
	}
	host := endpoint.Hostname()
	ports := s.cfg.Ports
	if ports != nil {
		if ok, owner := ports.Reserve(port, s.id); !ok {
			return 0, &failure.PortConflictError{Host: host, Port: port, Owner: owner}
		}
	}
	if netutil.InUse(ctx, host, port, netutil.DefaultProbeTimeout) {
		if ports != nil {
			ports.Release(port)
		}
		return 0, &failure.PortConflictError{Host: host, Port: port}
	}
	return port, nil
}

// allocateEndpoint replaces port 0 in endpoint with a free loopback port
// reserved for this server.
func (s *MediaServer) allocateEndpoint(endpoint *url.URL) (*url.URL, error) {
	if s.cfg.Ports == nil {
		s.cfg.Ports = netutil.NewPortRegistry(s.log)
	}
	port, err := s.cfg.Ports.AllocatePort(s.id)
	if err != nil {
		return nil, failure.Provisioning(backend.TypeLocal.String(), "allocate port", err)
	}
	u := *endpoint
	u.Host = net.JoinHostPort(endpoint.Hostname(), strconv.Itoa(port))
	s.log.Debug("allocated websocket port", "port", port)
	return &u, nil
}

func (s *MediaServer) releasePort(port int) {
	if port != 0 && s.cfg.Ports != nil {
		s.cfg.Ports.Release(port)
	}
}

// Stop terminates the server, collects its logs into the output folder and
// releases the backend. It is a no-op when the server is not running.
func (s *MediaServer) Stop(ctx context.Context, b Boundary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st == nil {
		return
	}
	s.teardown(ctx, st.handle, b, st.typ)
	s.releasePort(st.port)
	s.clearExport()
	s.state = nil
	s.log.Info("media server stopped", "backend", st.typ.String(), "uptime", time.Since(st.started).Round(time.Millisecond))
}

// teardown runs Terminate, CollectLogs and Release, reporting every error
// as a finding. It is used by Stop and by a Start that failed after the
// handle was created.
func (s *MediaServer) teardown(ctx context.Context, h backend.Handle, b Boundary, typ backend.Type) {
	res, err := h.Terminate(ctx)
	s.report(b, PhaseTerminate, err)

	prefix := b.Name
	if prefix == "" {
		prefix = s.id
	}
	// Subtest names contain slashes.
	prefix = strings.ReplaceAll(prefix, "/", "_")
	warnings := h.CollectLogs(ctx, s.outputDir(), prefix)
	for _, w := range warnings {
		s.report(b, PhaseCollectLogs, w)
	}
	s.report(b, PhaseRelease, h.Release(ctx))
	s.cfg.Metrics.Stop(typ.String(), res.Forced, len(warnings))
}

func (s *MediaServer) report(b Boundary, phase string, err error) {
	if err == nil {
		return
	}
	s.log.Warn("teardown problem", "phase", phase, "boundary", b.Name, "error", err)
	f := Finding{ServiceID: s.id, Phase: phase, Signal: b.Signal.String(), Boundary: b.Name, Err: err}
	d := b.Diagnostics
	if d == nil {
		d = s.diag
	}
	d.Record(f)
}

func (s *MediaServer) clearExport() {
	name := s.cfg.Names.WSURIExport
	if u, ok := s.cfg.Properties.(interface{ Unset(string) }); ok {
		u.Unset(name)
		return
	}
	s.cfg.Properties.Set(name, "")
}

func (s *MediaServer) outputDir() string {
	return s.cfg.Properties.Get(config.OutputFolderProp, config.DefaultOutputFolder)
}

func endpointPort(u *url.URL, names config.PropertyNames) (int, error) {
	p, err := backend.Port(u)
	if err != nil {
		return 0, &failure.ConfigurationError{Property: names.WSURI, Reason: err.Error()}
	}
	return p, nil
}

// checkResolved rejects endpoints a client could not dial.
func checkResolved(u *url.URL) error {
	if u == nil {
		return errors.New("backend reported no endpoint")
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("endpoint %s has no host", u)
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		return fmt.Errorf("endpoint %s has a wildcard host", u)
	}
	if _, err := backend.Port(u); err != nil {
		return err
	}
	return nil
}

func endpointString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}
