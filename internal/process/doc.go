// Package process runs and stops media server processes.
//
// BaseProcess owns a spawned child and its stdout/stderr log files. Poll is
// the bounded attempt loop shared by readiness probing and termination.
// Escalate implements the graceful-then-forceful shutdown sequence against
// any Target, whether a local pid or a pid on a remote host.
package process
