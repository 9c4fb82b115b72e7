package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/giantswarm/kmsenv"
	"github.com/giantswarm/kmsenv/internal/core"
)

type runOptions struct {
	suite       string
	journal     string
	metricsAddr string
}

func newRunCommand(g *globalOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a media server and keep it running until interrupted",
		Long: `Start the media server described by the configuration, print the
endpoint clients must use, and wait for SIGINT or SIGTERM. On the signal the
server is stopped and its logs are collected into test.output.folder.

The autostart property is ignored: run always starts the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cmd.OutOrStdout(), g, o)
		},
	}
	cmd.Flags().StringVar(&o.suite, "name", "kmsenv-run", "Boundary name; collected logs are prefixed with it")
	cmd.Flags().StringVar(&o.journal, "journal", "", "Append teardown findings to this JSON-lines file")
	cmd.Flags().StringVar(&o.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	return cmd
}

// status is what run prints once the server is ready.
type status struct {
	Server   string `json:"server"`
	RunID    string `json:"run_id"`
	Endpoint string `json:"endpoint"`
	LogPath  string `json:"log_path,omitempty"`
}

func runServer(ctx context.Context, w io.Writer, g *globalOptions, o *runOptions) error {
	props, err := g.properties()
	if err != nil {
		return err
	}

	srvOpts := []kmsenv.ServerOption{
		kmsenv.WithPrefix(g.prefix),
		kmsenv.WithProperties(props),
		kmsenv.WithScope(kmsenv.ScopeTestSuite),
	}
	if o.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		shutdown, err := serveMetrics(o.metricsAddr, reg)
		if err != nil {
			return err
		}
		defer shutdown()
		srvOpts = append(srvOpts, kmsenv.WithMetrics(reg))
	}

	orchOpts := []kmsenv.OrchestratorOption{kmsenv.WithSuiteName(o.suite)}
	if o.journal != "" {
		orchOpts = append(orchOpts, kmsenv.WithJournal(o.journal))
	}
	orch, err := kmsenv.NewOrchestrator(orchOpts...)
	if err != nil {
		return err
	}
	defer func() { _ = orch.Close() }()

	srv, err := kmsenv.NewMediaServer(srvOpts...)
	if err != nil {
		return err
	}
	if err := orch.Register(ctx, srv); err != nil {
		return err
	}

	st := status{Server: srv.ID(), RunID: orch.RunID(), LogPath: srv.LogPath()}
	if u := srv.EndpointURI(); u != nil {
		st.Endpoint = u.String()
	}
	if err := printStatus(w, g.json, st); err != nil {
		orch.SuiteFinished(context.Background())
		return err
	}

	<-ctx.Done()
	core.Logger().Info("stopping media server", "server", srv.ID())
	orch.SuiteFinished(context.Background())
	for _, f := range orch.Findings() {
		core.Logger().Warn("teardown finding", "server", f.ServiceID, "phase", f.Phase, "error", f.Message)
	}
	return nil
}

func printStatus(w io.Writer, asJSON bool, st status) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	_, err := fmt.Fprintf(w, "%s ready at %s\n", st.Server, st.Endpoint)
	if err == nil && st.LogPath != "" {
		_, err = fmt.Fprintf(w, "logs: %s\n", st.LogPath)
	}
	return err
}

// serveMetrics exposes reg on addr/metrics until the returned function is
// called.
func serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			core.Logger().Warn("metrics server stopped", "error", err)
		}
	}()
	core.Logger().Info("serving metrics", "addr", l.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
