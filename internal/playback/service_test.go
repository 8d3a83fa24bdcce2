package playback_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"vidaq/internal/artifacts"
	"vidaq/internal/catalog"
	"vidaq/internal/config"
	"vidaq/internal/fingerprint"
	"vidaq/internal/playback"
	"vidaq/internal/services"
	"vidaq/internal/testsupport"
)

const playlist = "#EXTM3U\n#EXT-X-TARGETDURATION:1\n#EXTINF:1.0,\nclip0.ts\n#EXTINF:1.0,\nclip1.ts\n#EXT-X-ENDLIST\n"

func seedItem(t *testing.T, cfg *config.Config, store *catalog.Store, content string, commit bool) *catalog.Item {
	t.Helper()
	item, err := store.Create(context.Background(), 2, fingerprint.Compute([]byte(content), 1), "clip.mp4")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if commit {
		layout := artifacts.New(cfg.Paths.ArtifactDir)
		dir, err := layout.EnsureDirectory(item.ID)
		if err != nil {
			t.Fatalf("EnsureDirectory: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "clip.m3u8"), []byte(playlist), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return item
}

func TestLocateRewritesOnceAndReturnsURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	item := seedItem(t, cfg, store, "a", true)
	svc := playback.New(cfg, store)

	url, err := svc.Locate(context.Background(), item.ID, "http://media.local:8888")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	want := "http://media.local:8888/trim_results/" + itoa(item.ID) + "/clip.m3u8"
	if url != want {
		t.Fatalf("url = %q, want %q", url, want)
	}

	path := artifacts.New(cfg.Paths.ArtifactDir).ManifestPath(item.ID, "clip")
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(first), "http://media.local:8888/trim_results/"+itoa(item.ID)+"/clip0.ts") {
		t.Fatalf("expected persisted rewrite, got:\n%s", first)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Locate(context.Background(), item.ID, "http://media.local:8888"); err != nil {
		t.Fatalf("second Locate: %v", err)
	}
	again, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !again.ModTime().Equal(info.ModTime()) {
		t.Fatal("expected no rewrite for the same host")
	}
}

func TestLocateServesSecondHost(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	item := seedItem(t, cfg, store, "b", true)
	svc := playback.New(cfg, store)

	ctx := context.Background()
	if _, err := svc.Locate(ctx, item.ID, "http://a.example"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Locate(ctx, item.ID, "https://b.example"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(artifacts.New(cfg.Paths.ArtifactDir).ManifestPath(item.ID, "clip"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "a.example") || !strings.Contains(string(data), "https://b.example/") {
		t.Fatalf("expected playlist re-rooted at the latest host:\n%s", data)
	}
}

func TestLocateErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	pending := seedItem(t, cfg, store, "pending", false)
	svc := playback.New(cfg, store)

	ctx := context.Background()
	if _, err := svc.Locate(ctx, 999999, "http://h"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Locate(ctx, pending.ID, "http://h"); !errors.Is(err, services.ErrArtifactsNotReady) {
		t.Fatalf("expected artifacts not ready, got %v", err)
	}
	if _, err := svc.Locate(ctx, 0, "http://h"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConcurrentLocateKeepsPlaylistIntact(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRewriteMode(config.RewriteModeCoarse))
	store := testsupport.MustOpenCatalog(t, cfg)
	item := seedItem(t, cfg, store, "c", true)
	svc := playback.New(cfg, store)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Locate(context.Background(), item.ID, "http://h"); err != nil {
				t.Errorf("Locate: %v", err)
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(artifacts.New(cfg.Paths.ArtifactDir).ManifestPath(item.ID, "clip"))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "http://h/"); got != 2 {
		t.Fatalf("expected each segment rewritten exactly once, found %d prefixes:\n%s", got, data)
	}
}

func TestOrphans(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	seedItem(t, cfg, store, "ok", true)
	orphan := seedItem(t, cfg, store, "broken", false)
	svc := playback.New(cfg, store)

	orphans, err := svc.Orphans(context.Background())
	if err != nil {
		t.Fatalf("Orphans: %v", err)
	}
	if len(orphans) != 1 || orphans[0].ID != orphan.ID {
		t.Fatalf("unexpected orphans: %+v", orphans)
	}
}

func TestParseID(t *testing.T) {
	valid := map[string]int64{"1": 1, "42": 42, " 7 ": 7}
	for raw, want := range valid {
		got, err := playback.ParseID(raw)
		if err != nil || got != want {
			t.Fatalf("ParseID(%q) = %d, %v", raw, got, err)
		}
	}
	for _, raw := range []string{"", "abc", "0", "-3", "1.5", "0x10", "99999999999999999999"} {
		if _, err := playback.ParseID(raw); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("ParseID(%q): expected validation error, got %v", raw, err)
		}
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
