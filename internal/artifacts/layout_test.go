package artifacts

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestPathsAndBaseName(t *testing.T) {
	layout := New("/srv/trim_results")
	if got := layout.PathFor(42); got != "/srv/trim_results/42" {
		t.Fatalf("PathFor = %q", got)
	}
	if got := layout.ManifestPath(42, "clip"); got != "/srv/trim_results/42/clip.m3u8" {
		t.Fatalf("ManifestPath = %q", got)
	}

	cases := map[string]string{
		"clip.mp4":           "clip",
		"holiday video.MOV":  "holiday_video",
		`C:\Users\me\a.mkv`:  "a",
		"dir/sub/nested.mp4": "nested",
		"noext":              "noext",
		".mp4":               "video",
		"":                   "video",
		"archive.tar.gz":     "archive.tar",
	}
	for in, want := range cases {
		if got := BaseName(in); got != want {
			t.Fatalf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnsureDirectoryFailsOnSecondCall(t *testing.T) {
	layout := New(filepath.Join(t.TempDir(), "out"))
	dir, err := layout.EnsureDirectory(1)
	if err != nil {
		t.Fatalf("EnsureDirectory: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s", dir)
	}
	if _, err := layout.EnsureDirectory(1); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestStageCommitAndReadiness(t *testing.T) {
	layout := New(t.TempDir())
	fp := uuid.New()

	ready, err := layout.ManifestReady(5, "clip")
	if err != nil || ready {
		t.Fatalf("expected not ready before commit (ready=%v err=%v)", ready, err)
	}

	staged, err := layout.StageDir(fp)
	if err != nil {
		t.Fatalf("StageDir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(staged, "clip.m3u8"), []byte("#EXTM3U\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	target, err := layout.Commit(5, staged)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if target != layout.PathFor(5) {
		t.Fatalf("unexpected commit target %q", target)
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Fatalf("expected staged dir to be moved, stat err=%v", err)
	}
	ready, err = layout.ManifestReady(5, "clip")
	if err != nil || !ready {
		t.Fatalf("expected ready after commit (ready=%v err=%v)", ready, err)
	}

	again, err := layout.StageDir(fp)
	if err != nil {
		t.Fatalf("StageDir: %v", err)
	}
	if _, err := layout.Commit(5, again); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists on recommit, got %v", err)
	}
}

func TestCommitRefusesEmptyTargetDirectory(t *testing.T) {
	layout := New(t.TempDir())
	staged, err := layout.StageDir(uuid.New())
	if err != nil {
		t.Fatalf("StageDir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(staged, "clip.m3u8"), []byte("#EXTM3U\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := layout.EnsureDirectory(9); err != nil {
		t.Fatalf("EnsureDirectory: %v", err)
	}

	if _, err := layout.Commit(9, staged); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists over an empty directory, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(staged, "clip.m3u8")); err != nil {
		t.Fatalf("staged render must stay in place: %v", err)
	}
	if ready, _ := layout.ManifestReady(9, "clip"); ready {
		t.Fatal("refused commit must not publish the manifest")
	}
}

func TestRenameReserved(t *testing.T) {
	root := t.TempDir()
	from := filepath.Join(root, "staged")
	if err := os.Mkdir(from, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(from, "seg0.ts"), []byte("ts"), 0o644); err != nil {
		t.Fatal(err)
	}
	taken := filepath.Join(root, "taken")
	if err := os.Mkdir(taken, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := renameReserved(from, taken); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected ErrExist for a reserved target, got %v", err)
	}

	target := filepath.Join(root, "7")
	if err := renameReserved(from, target); err != nil {
		t.Fatalf("renameReserved: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "seg0.ts")); err != nil {
		t.Fatalf("expected moved content: %v", err)
	}
}

func TestStageDirClearsLeftovers(t *testing.T) {
	layout := New(t.TempDir())
	fp := uuid.New()
	staged, err := layout.StageDir(fp)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(staged, "stale.ts"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	staged, err = layout.StageDir(fp)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(staged)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty staging dir, found %d entries", len(entries))
	}
}

func TestDiscardRefusesOutsideStaging(t *testing.T) {
	layout := New(t.TempDir())
	if err := layout.Discard(layout.PathFor(3)); err == nil {
		t.Fatal("expected refusal for committed artifact dir")
	}
	if err := layout.Discard(layout.StagingRoot()); err == nil {
		t.Fatal("expected refusal for staging root itself")
	}
	staged, err := layout.StageDir(uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if err := layout.Discard(staged); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Fatalf("expected staged dir removed, stat err=%v", err)
	}
}
