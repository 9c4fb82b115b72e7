package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/giantswarm/kmsenv/internal/fileutil"
)

// Phases a finding can come from.
const (
	PhaseStart       = "start"
	PhaseTerminate   = "terminate"
	PhaseCollectLogs = "collect-logs"
	PhaseRelease     = "release"
)

// Finding is one error reported during a lifecycle callback.
type Finding struct {
	Time      time.Time `json:"time"`
	RunID     string    `json:"run_id,omitempty"`
	ServiceID string    `json:"service_id"`
	Phase     string    `json:"phase"`
	Signal    string    `json:"signal"`
	Boundary  string    `json:"boundary,omitempty"`
	Err       error     `json:"-"`
	Message   string    `json:"error"`
}

// Diagnostics accumulates findings, optionally appending each one to a
// JSON-lines journal. A nil *Diagnostics discards findings. It is safe for
// concurrent use.
type Diagnostics struct {
	mu       sync.Mutex
	runID    string
	findings []Finding
	journal  *os.File
	log      *slog.Logger
}

// NewDiagnostics creates an empty sink.
func NewDiagnostics(runID string, logger *slog.Logger) *Diagnostics {
	if logger == nil {
		logger = Logger()
	}
	return &Diagnostics{runID: runID, log: logger}
}

// OpenJournal appends findings to path from now on.
func (d *Diagnostics) OpenJournal(path string) error {
	if err := fileutil.EnsureDirForFile(path); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec // G302: journal is meant to be read by CI tooling
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.journal != nil {
		_ = d.journal.Close()
	}
	d.journal = f
	return nil
}

// Record stores f, filling in Time, RunID and Message.
func (d *Diagnostics) Record(f Finding) {
	if d == nil || f.Err == nil {
		return
	}
	if f.Time.IsZero() {
		f.Time = time.Now()
	}
	if f.RunID == "" {
		f.RunID = d.runID
	}
	f.Message = f.Err.Error()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.findings = append(d.findings, f)
	if d.journal == nil {
		return
	}
	line, err := json.Marshal(f)
	if err == nil {
		_, err = d.journal.Write(append(line, '\n'))
	}
	if err != nil {
		d.log.Debug("failed to write diagnostics journal", "err", err)
	}
}

// Findings returns a copy of the recorded findings.
func (d *Diagnostics) Findings() []Finding {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Finding, len(d.findings))
	copy(out, d.findings)
	return out
}

// Len returns the number of findings.
func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.findings)
}

// Err joins every recorded error, or returns nil.
func (d *Diagnostics) Err() error {
	var errs []error
	for _, f := range d.Findings() {
		errs = append(errs, fmt.Errorf("%s %s: %w", f.ServiceID, f.Phase, f.Err))
	}
	return errors.Join(errs...)
}

// Close closes the journal, if any.
func (d *Diagnostics) Close() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.journal == nil {
		return nil
	}
	err := d.journal.Close()
	d.journal = nil
	return err
}
