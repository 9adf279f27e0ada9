package frames

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"handcut/internal/logging"
)

const (
	workDirPrefix = "handcut-frames-"
	lockFileName  = ".lock"
)

// workDir is a run-scoped scratch directory held under an exclusive flock.
type workDir struct {
	path string
	lock *flock.Flock
}

func acquireWorkDir(base string) (*workDir, error) {
	if strings.TrimSpace(base) == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create work base %q: %w", base, err)
	}
	dir, err := os.MkdirTemp(base, workDirPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		_ = os.RemoveAll(dir)
		if err == nil {
			err = errors.New("lock held by another process")
		}
		return nil, fmt.Errorf("lock work dir %q: %w", dir, err)
	}
	return &workDir{path: dir, lock: lock}, nil
}

func (w *workDir) framePath(index int) string {
	return filepath.Join(w.path, fmt.Sprintf("frame_%04d.jpg", index))
}

// Close releases the lock and removes the directory with everything in it.
func (w *workDir) Close() error {
	if w == nil {
		return nil
	}
	unlockErr := w.lock.Unlock()
	removeErr := os.RemoveAll(w.path)
	return errors.Join(unlockErr, removeErr)
}

// SweepStale removes work directories under base whose lock is free, which
// means the run that created them is gone. It returns how many were removed.
func SweepStale(base string, logger *slog.Logger) (int, error) {
	if strings.TrimSpace(base) == "" {
		base = os.TempDir()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read work base: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), workDirPrefix) {
			continue
		}
		dir := filepath.Join(base, entry.Name())
		lock := flock.New(filepath.Join(dir, lockFileName))
		ok, err := lock.TryLock()
		if err != nil || !ok {
			continue
		}
		rmErr := os.RemoveAll(dir)
		_ = lock.Unlock()
		if rmErr != nil {
			logging.WarnWithContext(logger, "stale frame directory not removed", "workdir_sweep_failed",
				logging.String("path", dir),
				logging.Error(rmErr),
				logging.String(logging.FieldErrorHint, "check permissions on paths.work_dir"),
				logging.String(logging.FieldImpact, "leftover frames keep using disk"),
			)
			continue
		}
		removed++
		logger.Debug("stale frame directory removed", logging.String("path", dir))
	}
	return removed, nil
}
