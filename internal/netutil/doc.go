// Package netutil tracks the local ports claimed by media servers in this
// process and probes whether a port is already bound by anyone else.
//
// Two servers in one orchestrator configured on the same port are caught by
// the registry before any probe; a port held by an unrelated process is
// caught by the TCP probe.
package netutil
