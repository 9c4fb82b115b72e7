package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/giantswarm/kmsenv/internal/backend"
	"github.com/giantswarm/kmsenv/internal/failure"
	"github.com/giantswarm/kmsenv/internal/process"
	"github.com/giantswarm/kmsenv/internal/render"
)

const fakeWS = "/tmp/tmp.Xy12"

// fakeHost emulates the shell commands the remote backend issues.
type fakeHost struct {
	mu       sync.Mutex
	files    map[string]string
	cmds     []string
	alive    bool
	dieAfter int // SIGTERMs survived before exiting; -1 never
	terms    int
	kills    int
	closed   bool
	failCmds map[string]error
}

func newFakeHost() *fakeHost {
	return &fakeHost{files: make(map[string]string), dieAfter: 1}
}

func (f *fakeHost) dialer() Dialer {
	return func(context.Context, string, backend.Credentials) (Runner, error) { return f, nil }
}

func (f *fakeHost) Run(_ context.Context, cmd string, stdin io.Reader) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	for prefix, err := range f.failCmds {
		if strings.HasPrefix(cmd, prefix) {
			return nil, err
		}
	}
	switch {
	case cmd == "mktemp -d":
		return []byte(fakeWS + "\n"), nil
	case strings.HasPrefix(cmd, "cat > "):
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		f.files[unquote(strings.TrimPrefix(cmd, "cat > "))] = string(data)
		return nil, nil
	case strings.HasPrefix(cmd, "chmod +x "):
		return nil, nil
	case strings.HasPrefix(cmd, "sh -c "):
		f.alive = true
		f.files[fakeWS+"/kms-pid"] = "4242\n"
		f.files[fakeWS+"/logs/kms.log"] = "server log"
		f.files[fakeWS+"/logs/gst/pipeline.dot"] = "digraph"
		return nil, nil
	case strings.HasPrefix(cmd, "cat "):
		name := unquote(strings.TrimPrefix(cmd, "cat "))
		data, ok := f.files[name]
		if !ok {
			return nil, &CommandError{Cmd: cmd, Stderr: "No such file or directory", Err: errors.New("exit status 1")}
		}
		return []byte(data), nil
	case cmd == "kill 4242":
		if !f.alive {
			return nil, &CommandError{Cmd: cmd, Stderr: "kill: (4242) - No such process", Err: errors.New("exit status 1")}
		}
		f.terms++
		if f.dieAfter >= 0 && f.terms >= f.dieAfter {
			f.alive = false
		}
		return nil, nil
	case cmd == "kill -9 4242":
		f.kills++
		f.alive = false
		return nil, nil
	case cmd == "ps --pid 4242 --no-headers | wc -l":
		if f.alive {
			return []byte("1\n"), nil
		}
		return []byte("0\n"), nil
	case strings.HasPrefix(cmd, "find "):
		dir := unquote(strings.TrimSuffix(strings.TrimPrefix(cmd, "find "), " -type f"))
		var out []string
		for name := range f.files {
			if strings.HasPrefix(name, dir+"/") {
				out = append(out, name)
			}
		}
		sort.Strings(out)
		return []byte(strings.Join(out, "\n") + "\n"), nil
	}
	return nil, fmt.Errorf("unexpected command %q", cmd)
}

func (f *fakeHost) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func unquote(s string) string {
	return strings.ReplaceAll(strings.Trim(s, "'"), `'\''`, "'")
}

func newRequest(t *testing.T) backend.Request {
	t.Helper()
	u, err := url.Parse("ws://10.0.0.7:8888/kurento")
	require.NoError(t, err)
	return backend.Request{
		Owner:       "kms",
		Endpoint:    u,
		Credentials: backend.Credentials{Login: "jenkins", Password: "secret"},
		Params: render.Params{
			WSPort:        8888,
			WSPath:        "kurento",
			ServerCommand: "/usr/bin/kurento-media-server",
		},
		Termination: process.EscalateConfig{Deadline: 300 * time.Millisecond, Interval: 20 * time.Millisecond},
	}
}

func TestHandleLifecycle(t *testing.T) {
	t.Parallel()

	host := newFakeHost()
	h := New(newRequest(t), host.dialer())
	ctx := context.Background()

	require.NoError(t, h.Start(ctx))
	assert.Equal(t, fakeWS, h.Workspace())
	assert.Equal(t, "ws://10.0.0.7:8888/kurento", h.Endpoint().String())
	kind, ok := h.Kind().(backend.RemoteKind)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.7", kind.Host)
	assert.Equal(t, fakeWS, kind.RemoteWorkspacePath)

	assert.Contains(t, host.files[fakeWS+"/kurento.sh"], `WORKSPACE="`+fakeWS+`/"`)
	assert.Contains(t, host.files[fakeWS+"/kurento.conf.json"], `"port": 8888`)
	assert.Contains(t, host.cmds, "chmod +x '"+fakeWS+"/kurento.sh'")
	assert.Contains(t, host.cmds, `sh -c ''\''`+fakeWS+`/kurento.sh'\'' > /dev/null 2>&1 &'`)

	res, err := h.Terminate(ctx)
	require.NoError(t, err)
	assert.True(t, res.Graceful)
	assert.Zero(t, host.kills)

	out := t.TempDir()
	assert.Empty(t, h.CollectLogs(ctx, out, "TestPlay"))
	data, err := os.ReadFile(filepath.Join(out, "TestPlay-kms.log"))
	require.NoError(t, err)
	assert.Equal(t, "server log", string(data))
	_, err = os.Stat(filepath.Join(out, "TestPlay-pipeline.dot"))
	require.NoError(t, err, "nested log files are collected")

	require.NoError(t, h.Release(ctx))
	assert.True(t, host.closed)
	for _, c := range host.cmds {
		assert.NotContains(t, c, "rm ", "the remote workspace is preserved")
	}
}

func TestHandleStubbornProcessIsKilledOnce(t *testing.T) {
	t.Parallel()

	host := newFakeHost()
	host.dieAfter = -1
	h := New(newRequest(t), host.dialer())
	ctx := context.Background()
	require.NoError(t, h.Start(ctx))

	res, err := h.Terminate(ctx)
	require.NoError(t, err)
	assert.True(t, res.Forced)
	assert.Equal(t, 1, host.kills)
	assert.Greater(t, host.terms, 1)
}

func TestHandleMissingPIDFile(t *testing.T) {
	t.Parallel()

	host := newFakeHost()
	host.failCmds = map[string]error{"sh -c ": errors.New("launch blocked")}
	h := New(newRequest(t), host.dialer())
	ctx := context.Background()

	err := h.Start(ctx)
	require.ErrorIs(t, err, failure.ErrProvisioning)

	_, err = h.Terminate(ctx)
	assert.ErrorIs(t, err, failure.ErrTermination)
	warnings := h.CollectLogs(ctx, t.TempDir(), "x")
	assert.Empty(t, warnings, "an empty log directory yields no files")
	require.NoError(t, h.Release(ctx))
}

func TestHandleDialFailure(t *testing.T) {
	t.Parallel()

	dialErr := errors.New("connection refused")
	h := New(newRequest(t), func(context.Context, string, backend.Credentials) (Runner, error) {
		return nil, dialErr
	})
	ctx := context.Background()
	err := h.Start(ctx)
	assert.ErrorIs(t, err, failure.ErrProvisioning)
	assert.ErrorIs(t, err, dialErr)

	res, err := h.Terminate(ctx)
	require.NoError(t, err)
	assert.Equal(t, process.Result{}, res)
	assert.Empty(t, h.CollectLogs(ctx, t.TempDir(), "x"))
	require.NoError(t, h.Release(ctx))
}

func TestHandleLogFetchFailureContinues(t *testing.T) {
	t.Parallel()

	host := newFakeHost()
	h := New(newRequest(t), host.dialer())
	ctx := context.Background()
	require.NoError(t, h.Start(ctx))
	host.failCmds = map[string]error{"cat '" + fakeWS + "/logs/gst": errors.New("permission denied")}

	out := t.TempDir()
	warnings := h.CollectLogs(ctx, out, "T")
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], failure.ErrLogRetrieval)
	_, err := os.Stat(filepath.Join(out, "T-kms.log"))
	require.NoError(t, err)
}

func TestPIDTargetGoneProcess(t *testing.T) {
	t.Parallel()

	host := newFakeHost()
	target := pidTarget{runner: host, pid: 4242}
	err := target.Signal(context.Background(), 15)
	assert.ErrorIs(t, err, process.ErrProcessGone)

	alive, err := target.Alive(context.Background())
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestQuote(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `'/tmp/a b'`, quote("/tmp/a b"))
	assert.Equal(t, `'it'\''s'`, quote("it's"))
}

func TestClientConfig(t *testing.T) {
	t.Parallel()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)
	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600))

	tests := map[string]struct {
		creds     backend.Credentials
		wantAuth  int
		wantError string
	}{
		"password":       {creds: backend.Credentials{Login: "jenkins", Password: "pw"}, wantAuth: 1},
		"key":            {creds: backend.Credentials{Login: "jenkins", PrivateKeyPEM: keyPath}, wantAuth: 1},
		"key and pw":     {creds: backend.Credentials{Login: "jenkins", Password: "pw", PrivateKeyPEM: keyPath}, wantAuth: 2},
		"no login":       {creds: backend.Credentials{Password: "pw"}, wantError: "missing login"},
		"missing key":    {creds: backend.Credentials{Login: "j", PrivateKeyPEM: keyPath + ".nope"}, wantError: "read private key"},
		"bad known host": {creds: backend.Credentials{Login: "j", Password: "pw", KnownHostsPath: keyPath + ".nope"}, wantError: "known hosts"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg, err := clientConfig(tc.creds)
			if tc.wantError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.creds.Login, cfg.User)
			assert.Len(t, cfg.Auth, tc.wantAuth)
		})
	}
}

func TestCommandError(t *testing.T) {
	t.Parallel()

	base := errors.New("exit status 1")
	err := &CommandError{Cmd: "kill 1", Stderr: "denied", Err: base}
	assert.ErrorIs(t, err, base)
	assert.Equal(t, `remote "kill 1": exit status 1: denied`, err.Error())
	assert.Equal(t, `remote "kill 1": exit status 1`, (&CommandError{Cmd: "kill 1", Err: base}).Error())
}
