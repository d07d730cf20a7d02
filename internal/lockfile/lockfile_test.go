package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireLock(t *testing.T) {
	dir := t.TempDir()
	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Release()

	content, err := os.ReadFile(filepath.Join(dir, LockFileName))
	if err != nil {
		t.Fatalf("lock file not readable: %v", err)
	}
	info := parseHolder(string(content))
	if info["pid"] != fmt.Sprint(os.Getpid()) || info["started"] == "" {
		t.Errorf("unexpected lock file content %q", content)
	}
}

func TestAcquireLock_Conflict(t *testing.T) {
	dir := t.TempDir()
	first, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("first AcquireLock: %v", err)
	}
	defer first.Release()

	second, err := AcquireLock(dir)
	if err == nil {
		second.Release()
		t.Fatal("second AcquireLock should fail")
	}
	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected *LockError, got %T", err)
	}
	if !strings.Contains(lockErr.Holder, fmt.Sprintf("pid %d", os.Getpid())) {
		t.Errorf("holder %q should name our pid", lockErr.Holder)
	}
	if !strings.Contains(err.Error(), dir) {
		t.Errorf("error should contain the lock path: %s", err)
	}
}

func TestRelease(t *testing.T) {
	dir := t.TempDir()
	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); !os.IsNotExist(err) {
		t.Error("lock file should be removed")
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release should be a no-op: %v", err)
	}

	again, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	again.Release()
}

func TestAcquireLock_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Release()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("state directory not created: %v", err)
	}
}

func TestParseHolder(t *testing.T) {
	tests := []struct {
		content string
		pid     string
	}{
		{"pid=12345\n", "12345"},
		{"pid=67890\nstarted=2026-01-01T00:00:00Z\n", "67890"},
		{"other=info", ""},
		{"", ""},
		{"pid12345", ""},
	}
	for _, tt := range tests {
		if got := parseHolder(tt.content)["pid"]; got != tt.pid {
			t.Errorf("parseHolder(%q) pid = %q, want %q", tt.content, got, tt.pid)
		}
	}
}

func TestProcessAlive(t *testing.T) {
	if !processAlive(os.Getpid()) {
		t.Error("own process should be alive")
	}
}
