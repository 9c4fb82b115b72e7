package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/giantswarm/kmsenv/internal/backend"
)

// DefaultSSHPort is used when the host has no port.
const DefaultSSHPort = "22"

// DefaultDialTimeout bounds the TCP connect and SSH handshake.
const DefaultDialTimeout = 10 * time.Second

// Runner executes shell commands on a remote host.
type Runner interface {
	// Run executes cmd with stdin (may be nil) and returns its stdout.
	Run(ctx context.Context, cmd string, stdin io.Reader) ([]byte, error)
	Close() error
}

// Dialer opens a Runner to addr.
type Dialer func(ctx context.Context, addr string, creds backend.Credentials) (Runner, error)

// Client is an SSH connection implementing Runner.
type Client struct {
	client *ssh.Client
}

var _ Runner = (*Client)(nil)

// Dial connects to addr (host or host:port) and authenticates with creds.
func Dial(ctx context.Context, addr string, creds backend.Credentials) (Runner, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, DefaultSSHPort)
	}
	cfg, err := clientConfig(creds)
	if err != nil {
		return nil, err
	}
	d := net.Dialer{Timeout: cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(cfg.Timeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})
	return &Client{client: ssh.NewClient(c, chans, reqs)}, nil
}

func clientConfig(creds backend.Credentials) (*ssh.ClientConfig, error) {
	if !creds.Valid() {
		return nil, fmt.Errorf("ssh credentials incomplete: missing %s", creds.Missing())
	}
	var auth []ssh.AuthMethod
	if creds.PrivateKeyPEM != "" {
		pem, err := os.ReadFile(creds.PrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parse private key %s: %w", creds.PrivateKeyPEM, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if creds.Password != "" {
		auth = append(auth, ssh.Password(creds.Password))
	}

	hostKey := ssh.InsecureIgnoreHostKey() //nolint:gosec // G106: test hosts without a known_hosts file
	if creds.KnownHostsPath != "" {
		cb, err := knownhosts.New(creds.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		hostKey = cb
	}
	return &ssh.ClientConfig{
		User:            creds.Login,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         DefaultDialTimeout,
	}, nil
}

// Run executes cmd in a new session. Canceling ctx closes the session.
func (c *Client) Run(ctx context.Context, cmd string, stdin io.Reader) ([]byte, error) {
	sess, err := c.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdin = stdin
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- sess.Run(cmd) }()
	select {
	case err = <-done:
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		_ = sess.Close()
		<-done
		return stdout.Bytes(), ctx.Err()
	}
	if err != nil {
		return stdout.Bytes(), &CommandError{Cmd: cmd, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}

// Close closes the connection.
func (c *Client) Close() error {
	if err := c.client.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// CommandError is a remote command that exited unsuccessfully.
type CommandError struct {
	Cmd    string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("remote %q: %v", e.Cmd, e.Err)
	}
	return fmt.Sprintf("remote %q: %v: %s", e.Cmd, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// quote single-quotes s for a POSIX shell.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
