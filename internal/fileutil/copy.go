package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/giantswarm/kmsenv/internal/sentinel"
)

// ErrEmptySrc is returned when a source path is empty.
const ErrEmptySrc = sentinel.Error("source path must not be empty")

// ErrEmptyDst is returned when a destination path is empty.
const ErrEmptyDst = sentinel.Error("destination path must not be empty")

// CopyOptions configures CopyFile and WriteFrom.
type CopyOptions struct {
	Mode   *os.FileMode // permissions of the destination; 0644 when nil
	Atomic bool         // write to a temp file in the same directory, then rename
}

// CopyFile copies src to dst, creating parent directories as needed.
// A nil opts copies non-atomically with mode 0644.
func CopyFile(src, dst string, opts *CopyOptions) (retErr error) {
	if src == "" {
		return ErrEmptySrc
	}
	if dst == "" {
		return ErrEmptyDst
	}

	srcFile, err := os.Open(src) //nolint:gosec // G304: log and workspace paths are controlled
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if closeErr := srcFile.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("close source: %w", closeErr)
		}
	}()

	return WriteFrom(dst, srcFile, opts)
}

// WriteFrom writes everything read from r into dst. It backs both local
// copies and streams fetched from a remote host or a container engine.
func WriteFrom(dst string, r io.Reader, opts *CopyOptions) (retErr error) {
	if dst == "" {
		return ErrEmptyDst
	}
	if err := EnsureDirForFile(dst); err != nil {
		return fmt.Errorf("prepare destination: %w", err)
	}

	var o CopyOptions
	if opts != nil {
		o = *opts
	}
	mode := os.FileMode(0o644)
	if o.Mode != nil {
		mode = *o.Mode
	}

	f, writePath, err := openDst(dst, mode, o.Atomic)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = os.Remove(writePath)
		}
	}()

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if o.Atomic {
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return fmt.Errorf("sync: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	if writePath != dst {
		if err := os.Rename(writePath, dst); err != nil {
			return fmt.Errorf("rename temp file to destination: %w", err)
		}
	}
	return nil
}

func openDst(dst string, mode os.FileMode, atomic bool) (*os.File, string, error) {
	if atomic {
		tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-copy-*")
		if err != nil {
			return nil, "", fmt.Errorf("create temp file: %w", err)
		}
		if err := tmp.Chmod(mode); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return nil, "", fmt.Errorf("chmod temp file: %w", err)
		}
		return tmp, tmp.Name(), nil
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode) //nolint:gosec // G304: controlled path
	if err != nil {
		return nil, "", fmt.Errorf("create destination: %w", err)
	}
	return f, dst, nil
}
