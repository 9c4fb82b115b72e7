package container

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/giantswarm/kmsenv/internal/fileutil"
)

// lockRetryInterval is the delay between attempts to take a name lock.
const lockRetryInterval = 50 * time.Millisecond

func lockPath(dir, name string) string {
	return filepath.Join(dir, "kmsenv-"+name+".lock")
}

// acquireNameLock takes the cross-process lock for a container name. It
// gives up when ctx is done.
func acquireNameLock(ctx context.Context, dir, name string) (*flock.Flock, error) {
	if err := fileutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	path := lockPath(dir, name)
	fl := flock.New(path)

	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquiring container lock %s: %w", path, err)
	}
	if !locked {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquiring container lock %s: %w", path, ctx.Err())
		}
		return nil, fmt.Errorf("acquiring container lock %s: lock not acquired", path)
	}
	return fl, nil
}

// releaseNameLock unlocks and closes fl. The lock file stays on disk; removing
// it could invalidate a lock another process has just taken.
func releaseNameLock(logger *slog.Logger, fl *flock.Flock) {
	if fl == nil {
		return
	}
	if err := fl.Close(); err != nil {
		logger.Debug("failed to release container lock", "path", fl.Path(), "err", err)
	}
}
