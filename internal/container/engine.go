package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Engine is the subset of the docker API the container backend needs.
type Engine interface {
	ImageExists(ctx context.Context, image string) (bool, error)
	Pull(ctx context.Context, image string) error
	ContainerExists(ctx context.Context, name string) (bool, error)
	// Remove force-removes a container, stopping it if needed.
	Remove(ctx context.Context, name string) error
	Create(ctx context.Context, spec CreateSpec) (id string, err error)
	Start(ctx context.Context, name string) error
	IPAddress(ctx context.Context, name string) (string, error)
	Logs(ctx context.Context, name string, w io.Writer) error
	Stop(ctx context.Context, name string, timeout time.Duration) error
}

// CreateSpec describes a container to create.
type CreateSpec struct {
	Name        string
	Image       string
	Env         map[string]string
	Binds       []string // host:container[:mode]
	VolumesFrom string
	Labels      map[string]string
	Cmd         []string
}

// Args renders spec as docker create arguments, with env and labels sorted.
func (s CreateSpec) Args() []string {
	args := []string{"create", "--name", s.Name}
	for _, k := range sortedKeys(s.Env) {
		args = append(args, "-e", k+"="+s.Env[k])
	}
	for _, k := range sortedKeys(s.Labels) {
		args = append(args, "--label", k+"="+s.Labels[k])
	}
	if s.VolumesFrom != "" {
		args = append(args, "--volumes-from", s.VolumesFrom)
	}
	for _, b := range s.Binds {
		args = append(args, "-v", b)
	}
	args = append(args, s.Image)
	return append(args, s.Cmd...)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CLI implements Engine with the docker command line client.
type CLI struct {
	Binary string // defaults to "docker"
	Logger *slog.Logger
}

var _ Engine = (*CLI)(nil)

func (c *CLI) binary() string {
	if c.Binary != "" {
		return c.Binary
	}
	return "docker"
}

func (c *CLI) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *CLI) command(ctx context.Context, args ...string) *exec.Cmd {
	c.logger().Debug("running docker", "args", args)
	return exec.CommandContext(ctx, c.binary(), args...) //nolint:gosec // G204: arguments are built by this package
}

// run returns trimmed stdout. A failing command yields an error carrying
// its stderr.
func (c *CLI) run(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := c.command(ctx, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("docker %s: %w", args[0], err)
		}
		return "", fmt.Errorf("docker %s: %w: %s", args[0], err, msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// exists runs an inspect command; a non-zero exit means "not found".
func (c *CLI) exists(ctx context.Context, args ...string) (bool, error) {
	cmd := c.command(ctx, args...)
	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &exitErr):
		return false, nil
	default:
		return false, fmt.Errorf("docker %s: %w", args[0], err)
	}
}

func (c *CLI) ImageExists(ctx context.Context, image string) (bool, error) {
	return c.exists(ctx, "image", "inspect", image)
}

func (c *CLI) Pull(ctx context.Context, image string) error {
	_, err := c.run(ctx, "pull", "--quiet", image)
	return err
}

func (c *CLI) ContainerExists(ctx context.Context, name string) (bool, error) {
	return c.exists(ctx, "container", "inspect", name)
}

func (c *CLI) Remove(ctx context.Context, name string) error {
	_, err := c.run(ctx, "rm", "--force", "--volumes", name)
	return err
}

func (c *CLI) Create(ctx context.Context, spec CreateSpec) (string, error) {
	return c.run(ctx, spec.Args()...)
}

func (c *CLI) Start(ctx context.Context, name string) error {
	_, err := c.run(ctx, "start", name)
	return err
}

func (c *CLI) IPAddress(ctx context.Context, name string) (string, error) {
	return c.run(ctx, "inspect", "--format", "{{.NetworkSettings.IPAddress}}", name)
}

func (c *CLI) Logs(ctx context.Context, name string, w io.Writer) error {
	cmd := c.command(ctx, "logs", name)
	// The server logs to stderr; both streams go into one file.
	cmd.Stdout = w
	cmd.Stderr = w
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker logs: %w", err)
	}
	return nil
}

func (c *CLI) Stop(ctx context.Context, name string, timeout time.Duration) error {
	secs := int(timeout.Round(time.Second) / time.Second)
	_, err := c.run(ctx, "stop", "--time", strconv.Itoa(secs), name)
	return err
}
