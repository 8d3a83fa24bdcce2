package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"vidaq/internal/media/ffprobe"
	"vidaq/internal/services"
)

func TestRenderArgs(t *testing.T) {
	engine := NewFFmpeg(WithSegmentSeconds(2))
	req := RenderRequest{
		Source:    "/in/clip.mp4",
		OutputDir: "/out/7",
		BaseName:  "clip",
		Audio:     AudioPlan{Pitch: 2, Filter: "asetrate=96000,aresample=48000,atempo=0.5"},
	}
	args := engine.renderArgs(req)
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-i /in/clip.mp4",
		"-filter:a asetrate=96000,aresample=48000,atempo=0.5",
		"-force_key_frames expr:gte(t,n_forced*2)",
		"-f hls",
		"-hls_flags independent_segments",
		"-hls_time 2",
		"-hls_list_size 0",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in args: %s", want, joined)
		}
	}
	if args[len(args)-1] != filepath.Join("/out/7", "clip.m3u8") {
		t.Fatalf("unexpected output target %q", args[len(args)-1])
	}

	req.Audio = AudioPlan{Pitch: 1}
	if slices.Contains(engine.renderArgs(req), "-filter:a") {
		t.Fatal("passthrough plan must not add an audio filter")
	}
}

func TestRenderWritesPlaylistAndReportsProgress(t *testing.T) {
	restore := stubCommand(t, "render")
	defer restore()

	out := filepath.Join(t.TempDir(), "render")
	engine := NewFFmpeg()
	var updates []Progress
	err := engine.Render(context.Background(), RenderRequest{
		Source:    "/in/clip.mp4",
		OutputDir: out,
		BaseName:  "clip",
	}, func(p Progress) { updates = append(updates, p) })
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "clip.m3u8")); err != nil {
		t.Fatalf("expected playlist: %v", err)
	}
	if len(updates) != 2 || updates[1].OutTimeSeconds != 2 {
		t.Fatalf("unexpected progress updates: %+v", updates)
	}
}

func TestRenderFailureIsEngineError(t *testing.T) {
	restore := stubCommand(t, "fail")
	defer restore()

	err := NewFFmpeg().Render(context.Background(), RenderRequest{
		Source:    "/in/clip.mp4",
		OutputDir: t.TempDir(),
		BaseName:  "clip",
	}, nil)
	if !errors.Is(err, services.ErrEngine) {
		t.Fatalf("expected engine error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Conversion failed") {
		t.Fatalf("expected stderr tail in error, got %v", err)
	}
}

func TestProbeMapsStreams(t *testing.T) {
	engine := NewFFmpeg(WithBinaries("", "/opt/ffprobe"), WithProbeFunc(probeFixture(t, "/opt/ffprobe", "/in/clip.mp4",
		`{"streams":[{"index":0,"codec_type":"video"},{"index":1,"codec_type":"audio","sample_rate":"48000","channels":2},{"index":2,"codec_type":"audio","sample_rate":"44100","channels":6}],"format":{"duration":"4.5"}}`)))

	result, err := engine.Probe(context.Background(), "/in/clip.mp4")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if result.DurationSeconds != 4.5 || result.SampleRate != 44100 || !result.HasAudio || !result.HasVideo {
		t.Fatalf("unexpected probe result: %+v", result)
	}
	if result.AudioMap != "0:2" {
		t.Fatalf("expected the 6 channel stream to be mapped, got %q", result.AudioMap)
	}
}

func TestProbeWithoutAudioPassesThrough(t *testing.T) {
	engine := NewFFmpeg(WithProbeFunc(probeFixture(t, "ffprobe", "/in/silent.mp4",
		`{"streams":[{"index":0,"codec_type":"video"}],"format":{"duration":"-1"}}`)))

	result, err := engine.Probe(context.Background(), "/in/silent.mp4")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if result.HasAudio || result.SampleRate != 0 || result.AudioMap != "" {
		t.Fatalf("expected no audio selection, got %+v", result)
	}
	if result.DurationSeconds != 0 {
		t.Fatalf("expected negative duration to be clamped, got %v", result.DurationSeconds)
	}
}

func TestProbeFailureIsEngineError(t *testing.T) {
	engine := NewFFmpeg(WithProbeFunc(func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{}, errors.New("exit status 1")
	}))
	if _, err := engine.Probe(context.Background(), "/in/clip.mp4"); !errors.Is(err, services.ErrEngine) {
		t.Fatalf("expected engine error, got %v", err)
	}
}

func TestRenderArgsUseSelectedAudioStream(t *testing.T) {
	engine := NewFFmpeg()
	args := strings.Join(engine.renderArgs(RenderRequest{
		Source:    "/in/clip.mp4",
		OutputDir: "/out/7",
		BaseName:  "clip",
		AudioMap:  "0:2",
	}), " ")
	if !strings.Contains(args, "-map 0:v:0 -map 0:2 ") {
		t.Fatalf("expected explicit audio map, got %s", args)
	}
	if strings.Contains(args, "0:a:0?") {
		t.Fatalf("fallback audio map must not be used with an explicit stream: %s", args)
	}
}

func TestProbeWithoutVideoIsUnsupported(t *testing.T) {
	engine := NewFFmpeg(WithProbeFunc(probeFixture(t, "ffprobe", "/in/song.mp3",
		`{"streams":[{"codec_type":"audio","sample_rate":"44100"}],"format":{"duration":"4.5"}}`)))

	_, err := engine.Probe(context.Background(), "/in/song.mp3")
	if !errors.Is(err, services.ErrUnsupportedMedia) {
		t.Fatalf("expected unsupported media, got %v", err)
	}
}

func TestTailBufferKeepsLastLines(t *testing.T) {
	buf := &tailBuffer{limit: 2}
	_, _ = buf.Write([]byte("one\ntwo\nthr"))
	_, _ = buf.Write([]byte("ee\nfour"))
	if got := buf.String(); got != "two; three; four" {
		t.Fatalf("unexpected tail: %q", got)
	}
}

func probeFixture(t *testing.T, wantBinary, wantPath, payload string) ProbeFunc {
	t.Helper()
	return func(_ context.Context, binary, path string) (ffprobe.Result, error) {
		if binary != wantBinary || path != wantPath {
			t.Errorf("probe called with %q %q, want %q %q", binary, path, wantBinary, wantPath)
		}
		var result ffprobe.Result
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return ffprobe.Result{}, err
		}
		return result, nil
	}
}

func stubCommand(t *testing.T, mode string) func() {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "TRANSCODE_HELPER_MODE="+mode)
		return cmd
	}
	return func() { commandContext = original }
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}

	switch os.Getenv("TRANSCODE_HELPER_MODE") {
	case "render":
		target := args[len(args)-1]
		if err := os.WriteFile(target, []byte("#EXTM3U\n"), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Fprint(os.Stdout, "out_time_us=1000000\nspeed=2x\nprogress=continue\nout_time_us=2000000\nprogress=end\n")
	case "fail":
		fmt.Fprintln(os.Stderr, "Error while filtering")
		fmt.Fprintln(os.Stderr, "Conversion failed!")
		os.Exit(1)
	}
	os.Exit(0)
}
