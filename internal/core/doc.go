// Package core provides the internal implementation of kmsenv. It contains
// the Orchestrator (the per-run registry that maps test lifecycle signals
// onto service starts and stops, filtered by each service's live scope), the
// MediaServer service (precondition checks, backend provisioning, readiness
// wait and escalating teardown) and the Diagnostics sink that collects every
// error swallowed on a teardown path.
package core
