package kmsenv

import (
	"context"
	"testing"
)

// Main runs the tests of m between SuiteStarted and SuiteFinished and closes
// o afterwards. Servers must be registered before Main is called. It returns
// the exit code for os.Exit.
//
//	func TestMain(m *testing.M) {
//	    // NewOrchestrator, NewMediaServer, Register ...
//	    os.Exit(kmsenv.Main(m, orch))
//	}
func Main(m *testing.M, o Orchestrator) int {
	ctx := context.Background()
	o.SuiteStarted(ctx)
	code := m.Run()
	o.SuiteFinished(ctx)
	if err := o.Close(); err != nil && code == 0 {
		code = 1
	}
	return code
}

// Class delivers ClassStarted for tb and registers ClassFinished as a
// cleanup. Call it at the top of a test whose subtests share class scoped
// servers. A start failure fails tb immediately.
func Class(tb testing.TB, o Orchestrator) {
	tb.Helper()
	name := tb.Name()
	if err := o.ClassStarted(tb.Context(), name); err != nil {
		o.ClassFinished(context.WithoutCancel(tb.Context()), name)
		tb.Fatalf("kmsenv: start class %s: %v", name, err)
		return
	}
	tb.Cleanup(func() {
		// tb.Context is canceled before cleanups run.
		o.ClassFinished(context.Background(), name)
	})
}

// Test delivers TestStarted for tb and registers TestFinished as a cleanup.
// A start failure fails tb immediately.
func Test(tb testing.TB, o Orchestrator) {
	tb.Helper()
	name := tb.Name()
	if err := o.TestStarted(tb.Context(), name); err != nil {
		o.TestFinished(context.WithoutCancel(tb.Context()), name)
		tb.Fatalf("kmsenv: start test %s: %v", name, err)
		return
	}
	tb.Cleanup(func() {
		o.TestFinished(context.Background(), name)
	})
}
