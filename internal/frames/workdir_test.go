package frames

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireWorkDirLocksAndCloseRemoves(t *testing.T) {
	base := t.TempDir()
	wd, err := acquireWorkDir(base)
	if err != nil {
		t.Fatalf("acquireWorkDir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(wd.path, lockFileName)); err != nil {
		t.Fatalf("expected lock file: %v", err)
	}
	if filepath.Dir(wd.path) != base {
		t.Fatalf("expected work dir under %s, got %s", base, wd.path)
	}
	if err := wd.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(wd.path); !os.IsNotExist(err) {
		t.Fatalf("expected work dir removed, stat err=%v", err)
	}
}

func TestSweepStaleSkipsLockedDirs(t *testing.T) {
	base := t.TempDir()

	stale := filepath.Join(base, workDirPrefix+"crashed")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("mkdir stale: %v", err)
	}
	if err := os.WriteFile(filepath.Join(stale, "frame_0003.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write stale frame: %v", err)
	}
	unrelated := filepath.Join(base, "other-tool")
	if err := os.MkdirAll(unrelated, 0o755); err != nil {
		t.Fatalf("mkdir unrelated: %v", err)
	}

	active, err := acquireWorkDir(base)
	if err != nil {
		t.Fatalf("acquireWorkDir: %v", err)
	}
	defer active.Close()

	removed, err := SweepStale(base, nil)
	if err != nil {
		t.Fatalf("SweepStale: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 stale dir removed, got %d", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale dir removed, stat err=%v", err)
	}
	if _, err := os.Stat(active.path); err != nil {
		t.Fatalf("expected active dir kept: %v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatalf("expected unrelated dir kept: %v", err)
	}
}

func TestSweepStaleMissingBase(t *testing.T) {
	removed, err := SweepStale(filepath.Join(t.TempDir(), "nope"), nil)
	if err != nil || removed != 0 {
		t.Fatalf("expected no-op for missing base, got %d %v", removed, err)
	}
}
