//go:build unix

package container

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDocker writes a docker stand-in that appends its arguments to a file
// and answers a few commands.
func fakeDocker(t *testing.T) (*CLI, string) {
	t.Helper()
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	script := `#!/bin/sh
echo "$*" >> "` + argsFile + `"
case "$1 $2" in
"image inspect") [ "$3" = "present:latest" ] ;;
"container inspect") exit 1 ;;
"inspect --format") echo "172.17.0.4" ;;
"logs kms") echo "out line"; echo "err line" >&2 ;;
"pull --quiet") echo "manifest unknown" >&2; exit 1 ;;
esac
`
	bin := filepath.Join(dir, "docker")
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return &CLI{Binary: bin}, argsFile
}

func TestCLI(t *testing.T) {
	t.Parallel()

	cli, argsFile := fakeDocker(t)
	ctx := context.Background()

	ok, err := cli.ImageExists(ctx, "present:latest")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = cli.ImageExists(ctx, "absent:latest")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = cli.ContainerExists(ctx, "kms")
	require.NoError(t, err)
	assert.False(t, ok)

	ip, err := cli.IPAddress(ctx, "kms")
	require.NoError(t, err)
	assert.Equal(t, "172.17.0.4", ip)

	var buf bytes.Buffer
	require.NoError(t, cli.Logs(ctx, "kms", &buf))
	assert.Contains(t, buf.String(), "out line")
	assert.Contains(t, buf.String(), "err line")

	err = cli.Pull(ctx, "absent:latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest unknown")

	require.NoError(t, cli.Stop(ctx, "kms", 5*time.Second))
	require.NoError(t, cli.Remove(ctx, "kms"))
	_, err = cli.Create(ctx, CreateSpec{Name: "kms", Image: "present:latest"})
	require.NoError(t, err)

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Contains(t, lines, "stop --time 5 kms")
	assert.Contains(t, lines, "rm --force --volumes kms")
	assert.Contains(t, lines, "create --name kms present:latest")
}

func TestCLIMissingBinary(t *testing.T) {
	t.Parallel()

	cli := &CLI{Binary: filepath.Join(t.TempDir(), "no-docker")}
	_, err := cli.ImageExists(context.Background(), "x")
	require.Error(t, err)
}
