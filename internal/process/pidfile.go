package process

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/giantswarm/kmsenv/internal/sentinel"
)

// PIDFileName is the marker the launch script writes into its workspace.
const PIDFileName = "kms-pid"

// ErrInvalidPID is returned when a pid marker does not hold a positive integer.
const ErrInvalidPID = sentinel.Error("invalid pid")

// ParsePID parses the content of a pid marker.
func ParsePID(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidPID)
	}
	pid, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPID, s)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPID, pid)
	}
	return pid, nil
}

// ReadPIDFile reads and parses the pid marker at path.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: workspace path
	if err != nil {
		return 0, fmt.Errorf("read pid file: %w", err)
	}
	return ParsePID(string(data))
}
