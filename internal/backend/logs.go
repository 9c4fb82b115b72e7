package backend

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/giantswarm/kmsenv/internal/failure"
	"github.com/giantswarm/kmsenv/internal/fileutil"
)

// LogName returns the destination file name for source under prefix.
func LogName(prefix, source string) string {
	return fileutil.PrefixedName(prefix, source)
}

// WriteLog stores r as <outputDir>/<prefix>-<basename of source>. Failures
// are returned as *failure.LogRetrievalWarning.
func WriteLog(outputDir, prefix, source string, r io.Reader) error {
	dst := filepath.Join(outputDir, LogName(prefix, source))
	if err := fileutil.WriteFrom(dst, r, nil); err != nil {
		return &failure.LogRetrievalWarning{File: source, Err: err}
	}
	return nil
}

// CopyLog copies the local file source into outputDir like WriteLog.
func CopyLog(outputDir, prefix, source string) error {
	dst := filepath.Join(outputDir, LogName(prefix, source))
	if err := fileutil.CopyFile(source, dst, nil); err != nil {
		return &failure.LogRetrievalWarning{File: source, Err: err}
	}
	return nil
}

// ListWarning wraps a failure to enumerate log files.
func ListWarning(dir string, err error) error {
	return &failure.LogRetrievalWarning{File: dir, Err: fmt.Errorf("list logs: %w", err)}
}
