package kmsenv

import (
	"log/slog"

	"github.com/giantswarm/kmsenv/internal/core"
)

// SetLogger replaces the package-level logger used by kmsenv. The provided
// logger should already carry any attributes you want; kmsenv adds service,
// backend and run_id attributes to its own records.
//
// If l is nil, the logger resets to slog.Default() with a "component"
// attribute, re-derived on the next log call and then cached. Call
// SetLogger(nil) after slog.SetDefault() to pick up the change.
//
// SetLogger is safe to call concurrently with other kmsenv operations, but
// for a strict happens-before guarantee call it in TestMain before any
// server is registered.
//
// Example:
//
//	kmsenv.SetLogger(myLogger.With("component", "kmsenv"))
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
