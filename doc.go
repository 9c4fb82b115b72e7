// Package kmsenv supervises media servers for integration tests and keeps
// them running for exactly as long as the test lifecycle span they are
// scoped to.
//
// A media server is started as a local child process, as a docker container
// or on a remote host over SSH. The backend is chosen from configuration:
// <prefix>.scope=docker selects a container, a non-loopback host in
// <prefix>.ws.uri selects a remote host, and anything else runs locally.
// After every start kmsenv waits for a websocket handshake to succeed and
// exports the resolved endpoint as <prefix>.ws.uri.export.
//
// # Basic Usage
//
//	var orch kmsenv.Orchestrator
//
//	func TestMain(m *testing.M) {
//	    var err error
//	    orch, err = kmsenv.NewOrchestrator(kmsenv.WithSuiteName("player"))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    kms, err := kmsenv.NewMediaServer()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    // Suite scoped servers start here.
//	    if err := orch.Register(context.Background(), kms); err != nil {
//	        log.Fatal(err)
//	    }
//	    os.Exit(kmsenv.Main(m, orch))
//	}
//
//	func TestPlay(t *testing.T) {
//	    kmsenv.Test(t, orch) // starts and stops test scoped servers
//	    // ...
//	}
//
// # Scopes
//
// The <prefix>.autostart property decides the scope of a server: "test",
// "testclass", "testsuite" (the default) or "false" for an external server
// that is never started. The scope is read again on every signal, so a test
// may change it through the property source.
//
// # Teardown
//
// Stopping never fails. The server is sent SIGTERM until it exits, and
// SIGKILL once the termination deadline passes. Its logs are then copied into
// test.output.folder, prefixed with the name of the test, class or suite that
// ended. Every problem found on the way is recorded as a Finding.
package kmsenv
