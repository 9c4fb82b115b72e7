package core

import (
	"log/slog"
	"sync/atomic"
)

// logger holds the logger installed with SetLogger. nil means none.
var logger atomic.Pointer[slog.Logger]

// defaultLogger caches slog.Default() tagged with component=kmsenv. A later
// slog.SetDefault is only picked up after SetLogger(nil) clears the cache.
var defaultLogger atomic.Pointer[slog.Logger]

// Logger returns the logger installed with SetLogger, or the cached default.
// It is safe for concurrent use.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := slog.Default().With("component", "kmsenv")
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	// Lost the race; a concurrent SetLogger may also have cleared the cache.
	if l2 := defaultLogger.Load(); l2 != nil {
		return l2
	}
	return l
}

// SetLogger installs l as the kmsenv logger. nil restores the default,
// re-derived from slog.Default() on the next Logger call.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	defaultLogger.Store(nil)
}
