package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vidaq/internal/logging"
)

func TestCleanupOldLogsRemovesExpiredMatches(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "vidaq-old.log")
	current := filepath.Join(dir, "vidaq-current.log")
	fresh := filepath.Join(dir, "vidaq-fresh.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, current, fresh, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{old, current, other} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 5, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "vidaq-*.log",
		Exclude: []string{current},
	})
	if removed != 1 {
		t.Fatalf("expected 1 file removed, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{current, fresh, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}

func TestCleanupOldLogsDisabled(t *testing.T) {
	if removed := logging.CleanupOldLogs(nil, 0, logging.RetentionTarget{Dir: t.TempDir(), Pattern: "*"}); removed != 0 {
		t.Fatalf("expected no removals, got %d", removed)
	}
}

func TestUpdateCurrentLink(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "vidaq-1.log")
	second := filepath.Join(dir, "vidaq-2.log")
	for _, path := range []string{first, second} {
		if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := logging.UpdateCurrentLink(dir, "vidaq.log", first); err != nil {
		t.Fatalf("link first: %v", err)
	}
	if err := logging.UpdateCurrentLink(dir, "vidaq.log", second); err != nil {
		t.Fatalf("link second: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "vidaq.log"))
	if err != nil {
		t.Fatalf("read link: %v", err)
	}
	if string(data) != "vidaq-2.log" {
		t.Fatalf("expected link to follow latest log, got %q", data)
	}
}
