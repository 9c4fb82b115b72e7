package kmsenv

import "time"

// ConfigSnapshot holds a copy of the option-controlled fields for test
// assertions, so the _test package can verify option closures without
// reaching into internal types.
type ConfigSnapshot struct {
	SuiteName   string
	RunID       string
	Parallelism int
	JournalPath string

	Prefix              string
	ID                  string
	HasProperties       bool
	FixedScope          *Scope
	ReadinessAttempts   int
	ReadinessInterval   time.Duration
	HandshakeTimeout    time.Duration
	PassiveWait         time.Duration
	TerminationDeadline time.Duration
	TerminationInterval time.Duration
	BaseDir             string
	LockDir             string
	HasRenderer         bool
	HasMetrics          bool
}

// ApplyOptionsForTesting applies opts to the default configurations and
// returns a snapshot of the result.
func ApplyOptionsForTesting(orchOpts []OrchestratorOption, srvOpts []ServerOption) ConfigSnapshot {
	oc := defaultOrchestratorConfig()
	for _, opt := range orchOpts {
		opt(&oc)
	}
	sc := defaultServerConfig()
	for _, opt := range srvOpts {
		opt(&sc)
	}
	return ConfigSnapshot{
		SuiteName:           oc.SuiteName,
		RunID:               oc.RunID,
		Parallelism:         oc.Parallelism,
		JournalPath:         oc.JournalPath,
		Prefix:              sc.prefix,
		ID:                  sc.ID,
		HasProperties:       sc.Properties != nil,
		FixedScope:          sc.fixedScope,
		ReadinessAttempts:   sc.readiness.Attempts,
		ReadinessInterval:   sc.readiness.Interval,
		HandshakeTimeout:    sc.readiness.HandshakeTimeout,
		PassiveWait:         sc.readiness.PassiveWait,
		TerminationDeadline: sc.Termination.Deadline,
		TerminationInterval: sc.Termination.Interval,
		BaseDir:             sc.BaseDir,
		LockDir:             sc.LockDir,
		HasRenderer:         sc.Renderer != nil,
		HasMetrics:          sc.registerer != nil,
	}
}
