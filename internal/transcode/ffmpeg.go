package transcode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"vidaq/internal/logging"
	"vidaq/internal/media/audio"
	"vidaq/internal/media/ffprobe"
	"vidaq/internal/services"
)

var commandContext = exec.CommandContext

const stderrTailLines = 20

// Option configures the ffmpeg engine.
type Option func(*FFmpeg)

// WithBinaries overrides the ffmpeg and ffprobe executables.
func WithBinaries(ffmpegBinary, ffprobeBinary string) Option {
	return func(f *FFmpeg) {
		if ffmpegBinary != "" {
			f.ffmpeg = ffmpegBinary
		}
		if ffprobeBinary != "" {
			f.ffprobe = ffprobeBinary
		}
	}
}

// WithSegmentSeconds sets the HLS target segment duration and keyframe cadence.
func WithSegmentSeconds(seconds int) Option {
	return func(f *FFmpeg) {
		if seconds > 0 {
			f.segmentSeconds = seconds
		}
	}
}

// ProbeFunc inspects the media file at path using the given ffprobe binary.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// WithProbeFunc replaces the ffprobe invocation used by Probe.
func WithProbeFunc(fn ProbeFunc) Option {
	return func(f *FFmpeg) {
		if fn != nil {
			f.inspect = fn
		}
	}
}

// WithLogger attaches a logger for command diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(f *FFmpeg) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// FFmpeg drives the ffprobe and ffmpeg command-line tools.
type FFmpeg struct {
	ffmpeg         string
	ffprobe        string
	segmentSeconds int
	inspect        ProbeFunc
	logger         *slog.Logger
}

// NewFFmpeg constructs an engine using defaults.
func NewFFmpeg(opts ...Option) *FFmpeg {
	engine := &FFmpeg{
		ffmpeg:         "ffmpeg",
		ffprobe:        "ffprobe",
		segmentSeconds: 1,
		inspect:        ffprobe.Inspect,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	engine.logger = logging.NewComponentLogger(engine.logger, "transcode")
	return engine
}

// Probe inspects the media file at path.
func (f *FFmpeg) Probe(ctx context.Context, path string) (ProbeResult, error) {
	result, err := f.inspect(ctx, f.ffprobe, path)
	if err != nil {
		return ProbeResult{}, services.Wrap(services.ErrEngine, "transcode", "probe", "ffprobe failed", err)
	}
	if result.VideoStreamCount() == 0 {
		return ProbeResult{}, services.Wrap(services.ErrUnsupportedMedia, "transcode", "probe",
			"no video stream in upload", nil)
	}

	duration := result.DurationSeconds()
	if math.IsNaN(duration) || duration < 0 {
		duration = 0
	}
	selection := audio.Select(result.Streams)
	return ProbeResult{
		DurationSeconds: duration,
		SampleRate:      selection.SampleRate,
		HasAudio:        selection.Found(),
		HasVideo:        true,
		AudioMap:        selection.MapSpecifier(),
	}, nil
}

// Render produces the HLS playlist and segments described by req.
func (f *FFmpeg) Render(ctx context.Context, req RenderRequest, progress func(Progress)) error {
	if strings.TrimSpace(req.Source) == "" {
		return errors.New("render: source required")
	}
	if strings.TrimSpace(req.OutputDir) == "" {
		return errors.New("render: output directory required")
	}
	if strings.TrimSpace(req.BaseName) == "" {
		return errors.New("render: base name required")
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return fmt.Errorf("render: create output dir: %w", err)
	}

	args := f.renderArgs(req)
	f.logger.Debug("ffmpeg render starting",
		logging.String("source", req.Source),
		logging.String("output", req.ManifestPath()),
		logging.String("audio_filter", req.Audio.Filter),
	)

	cmd := commandContext(ctx, f.ffmpeg, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr := &tailBuffer{limit: stderrTailLines}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrEngine, "transcode", "render", "start ffmpeg", err)
	}

	readProgress(stdout, progress)

	if err := cmd.Wait(); err != nil {
		return services.Wrap(services.ErrEngine, "transcode", "render",
			"ffmpeg exited with failure: "+stderr.String(), err)
	}
	if _, err := os.Stat(req.ManifestPath()); err != nil {
		return services.Wrap(services.ErrEngine, "transcode", "render", "playlist not produced", err)
	}
	return nil
}

func (f *FFmpeg) renderArgs(req RenderRequest) []string {
	segment := strconv.Itoa(f.segmentSeconds)
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-nostats", "-progress", "pipe:1",
		"-i", req.Source,
		"-map", "0:v:0",
	}
	if req.AudioMap != "" {
		args = append(args, "-map", req.AudioMap)
	} else {
		args = append(args, "-map", "0:a:0?")
	}
	if !req.Audio.Passthrough() {
		args = append(args, "-filter:a", req.Audio.Filter)
	}
	args = append(args,
		"-force_key_frames", "expr:gte(t,n_forced*"+segment+")",
		"-f", "hls",
		"-hls_flags", "independent_segments",
		"-hls_time", segment,
		"-hls_list_size", "0",
		req.ManifestPath(),
	)
	return args
}

// readProgress consumes ffmpeg's key=value progress stream.
func readProgress(r io.Reader, progress func(Progress)) {
	scanner := bufio.NewScanner(r)
	var current Progress
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms":
			// ffmpeg reports microseconds under both keys.
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
				current.OutTimeSeconds = float64(us) / 1e6
			}
		case "speed":
			current.Speed = value
		case "progress":
			if progress != nil {
				progress(current)
			}
		}
	}
	// Drain so ffmpeg never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

// tailBuffer keeps the last few lines written to it.
type tailBuffer struct {
	mu      sync.Mutex
	limit   int
	lines   []string
	partial string
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	text := b.partial + string(p)
	parts := strings.Split(text, "\n")
	b.partial = parts[len(parts)-1]
	for _, line := range parts[:len(parts)-1] {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		b.lines = append(b.lines, line)
		if len(b.lines) > b.limit {
			b.lines = b.lines[len(b.lines)-b.limit:]
		}
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := append([]string(nil), b.lines...)
	if tail := strings.TrimSpace(b.partial); tail != "" {
		lines = append(lines, tail)
	}
	return strings.Join(lines, "; ")
}

var _ Engine = (*FFmpeg)(nil)
