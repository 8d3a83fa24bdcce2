package manifest

import (
	"strings"
	"testing"
)

const freshPlaylist = `#EXTM3U
#EXT-X-VERSION:6
#EXT-X-TARGETDURATION:1
#EXT-X-MEDIA-SEQUENCE:0
#EXT-X-INDEPENDENT-SEGMENTS
#EXTINF:1.000000,
clip0.ts
#EXTINF:1.000000,
clip1.ts
#EXTINF:0.480000,
clip2.ts
#EXT-X-ENDLIST
`

func TestRewriteLineModeRootsSegments(t *testing.T) {
	got := Rewrite(freshPlaylist, "http://media.local:8888", "trim_results", 7, "clip")

	for _, want := range []string{
		"http://media.local:8888/trim_results/7/clip0.ts",
		"http://media.local:8888/trim_results/7/clip1.ts",
		"http://media.local:8888/trim_results/7/clip2.ts",
	} {
		if !strings.Contains(got, want+"\n") {
			t.Fatalf("expected %q in rewritten playlist:\n%s", want, got)
		}
	}
	if !strings.Contains(got, "#EXT-X-VERSION:6\n") || !strings.HasPrefix(got, "#EXTM3U\n") {
		t.Fatalf("tag lines must be preserved:\n%s", got)
	}
}

func TestRewriteIsIdempotent(t *testing.T) {
	for _, mode := range []Mode{ModeLine, ModeCoarse} {
		r := Rewriter{Mode: mode, Route: "trim_results"}
		once := r.Rewrite(freshPlaylist, "http://a.example", 3, "clip")
		twice := r.Rewrite(once, "http://a.example", 3, "clip")
		if once != twice {
			t.Fatalf("mode %s: second rewrite changed output:\n%s\n---\n%s", mode, once, twice)
		}
		if once == freshPlaylist {
			t.Fatalf("mode %s: expected first rewrite to change the playlist", mode)
		}
	}
}

func TestLineModeLeavesTagTextAlone(t *testing.T) {
	// A base name that also appears inside tag text is the coarse-mode hazard.
	playlist := "#EXTM3U\n#EXT-X-PROGRAM-DATE-TIME:2024-01-01T00:00:00Z\n#EXTINF:1.0,EXT\nEXT0.ts\n"

	line := Rewrite(playlist, "http://h", "r", 1, "EXT")
	if !strings.Contains(line, "#EXT-X-PROGRAM-DATE-TIME") || !strings.Contains(line, "\nhttp://h/r/1/EXT0.ts\n") {
		t.Fatalf("unexpected line-mode output:\n%s", line)
	}

	coarse := Rewriter{Mode: ModeCoarse, Route: "r"}.Rewrite(playlist, "http://h", 1, "EXT")
	if strings.Contains(coarse, "#EXTM3U") {
		t.Fatalf("coarse mode is expected to rewrite tag text too:\n%s", coarse)
	}
}

func TestLineModeRewritesURIAttributes(t *testing.T) {
	playlist := "#EXTM3U\n#EXT-X-MAP:URI=\"clip_init.mp4\"\n#EXT-X-KEY:METHOD=AES-128,URI=\"https://keys.example/k\"\n#EXTINF:1,\nclip0.ts\n"
	got := Rewrite(playlist, "http://h", "trim_results", 9, "clip")
	if !strings.Contains(got, `URI="http://h/trim_results/9/clip_init.mp4"`) {
		t.Fatalf("expected map URI rewritten:\n%s", got)
	}
	if !strings.Contains(got, `URI="https://keys.example/k"`) {
		t.Fatalf("foreign absolute URI must be untouched:\n%s", got)
	}
}

func TestLineModeReRootsPlaylistRewrittenForAnotherHost(t *testing.T) {
	// Playlist persisted after a coarse rewrite for host A.
	old := Rewriter{Mode: ModeCoarse, Route: "trim_results"}.Rewrite(freshPlaylist, "http://a.example", 4, "clip")

	got := Rewrite(old, "https://b.example", "trim_results", 4, "clip")
	if strings.Contains(got, "a.example") {
		t.Fatalf("expected every reference to move to host B:\n%s", got)
	}
	if !strings.Contains(got, "\nhttps://b.example/trim_results/4/clip1.ts\n") {
		t.Fatalf("expected host B segment URLs:\n%s", got)
	}
	if got != Rewrite(freshPlaylist, "https://b.example", "trim_results", 4, "clip") {
		t.Fatalf("re-rooted playlist should match a fresh rewrite for host B:\n%s", got)
	}
}

func TestRewritePreservesCRLF(t *testing.T) {
	playlist := "#EXTM3U\r\n#EXTINF:1,\r\nclip0.ts\r\n"
	got := Rewrite(playlist, "http://h", "r", 2, "clip")
	if got != "#EXTM3U\r\n#EXTINF:1,\r\nhttp://h/r/2/clip0.ts\r\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRewriteHandlesAbsolutePathReferences(t *testing.T) {
	playlist := "#EXTM3U\n/trim_results/2/clip0.ts\n/elsewhere/clip1.ts\n./clip2.ts\n"
	got := Rewrite(playlist, "http://h", "trim_results", 2, "clip")
	want := "#EXTM3U\nhttp://h/trim_results/2/clip0.ts\n/elsewhere/clip1.ts\nhttp://h/trim_results/2/clip2.ts\n"
	if got != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{"": ModeLine, "line": ModeLine, "COARSE": ModeCoarse, "other": ModeLine}
	for in, want := range cases {
		if got := ParseMode(in); got != want {
			t.Fatalf("ParseMode(%q) = %q, want %q", in, got, want)
		}
	}
}
