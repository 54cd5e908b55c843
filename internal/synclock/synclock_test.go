package synclock

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndReleaseFreshLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.lock")
	l := New(path)
	release, err := l.Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected lock file to exist: %v", err)
	}
	release()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected lock file removed after release")
	}
}

func TestAcquireSkipsWhenHolderAlive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.lock")
	if err := os.WriteFile(path, []byte("1\n"), 0o644); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	// PID 1 is always alive on any system this test runs on.
	l := New(path)
	if _, err := l.Acquire(); err != ErrSkipped {
		t.Fatalf("expected ErrSkipped, got %v", err)
	}
}

func TestAcquireRemovesStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.lock")
	// PID unlikely to be alive; not a hard guarantee, but 2^30-ish is safe
	// in practice for a stale-pid test on typical CI hosts.
	if err := os.WriteFile(path, []byte("999999999\n"), 0o644); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	l := New(path)
	release, err := l.Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read lock: %v", err)
	}
	if string(data) == "999999999\n" {
		t.Fatalf("expected stale pid to be overwritten with current pid")
	}
}

func TestStatusReportsFreeWhenNoLockFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.lock")
	l := New(path)
	held, _, err := l.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if held {
		t.Fatal("expected lock reported free")
	}
}

func TestStatusReportsHeldByLivePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.lock")
	l := New(path)
	release, err := l.Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	held, pid, err := l.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !held {
		t.Fatal("expected lock reported held")
	}
	if pid != os.Getpid() {
		t.Fatalf("expected pid %d, got %d", os.Getpid(), pid)
	}
}
