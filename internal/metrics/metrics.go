package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Start results.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Recorder records lifecycle metrics. A nil *Recorder discards everything.
type Recorder struct {
	starts       *prometheus.CounterVec
	startSeconds *prometheus.HistogramVec
	readiness    prometheus.Histogram
	forcedKills  *prometheus.CounterVec
	logWarnings  *prometheus.CounterVec
	stops        *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		starts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kmsenv_server_starts_total",
			Help: "Media server starts by backend and result",
		}, []string{"backend", "result"}),
		startSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kmsenv_server_start_duration_seconds",
			Help:    "Time from provisioning to a ready endpoint",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"backend"}),
		readiness: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kmsenv_readiness_attempts",
			Help:    "Websocket probe attempts until the endpoint accepted a connection",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 300},
		}),
		forcedKills: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kmsenv_forced_kills_total",
			Help: "Servers that needed SIGKILL after the graceful deadline",
		}, []string{"backend"}),
		logWarnings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kmsenv_log_retrieval_warnings_total",
			Help: "Log files that could not be collected",
		}, []string{"backend"}),
		stops: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kmsenv_server_stops_total",
			Help: "Media server stops by backend",
		}, []string{"backend"}),
	}
}

// Start records a start attempt. d is only observed for successful starts.
func (r *Recorder) Start(backend string, d time.Duration, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.starts.WithLabelValues(backend, ResultFailed).Inc()
		return
	}
	r.starts.WithLabelValues(backend, ResultOK).Inc()
	r.startSeconds.WithLabelValues(backend).Observe(d.Seconds())
}

// Readiness records the attempts a successful probe needed.
func (r *Recorder) Readiness(attempts int) {
	if r == nil || attempts <= 0 {
		return
	}
	r.readiness.Observe(float64(attempts))
}

// Stop records a stop and whether it needed SIGKILL.
func (r *Recorder) Stop(backend string, forced bool, logWarnings int) {
	if r == nil {
		return
	}
	r.stops.WithLabelValues(backend).Inc()
	if forced {
		r.forcedKills.WithLabelValues(backend).Inc()
	}
	if logWarnings > 0 {
		r.logWarnings.WithLabelValues(backend).Add(float64(logWarnings))
	}
}
