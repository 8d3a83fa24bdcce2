package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"vidaq/internal/transcode"
)

// FakeEngine is an in-process transcode.Engine. Render writes a small HLS
// playlist with Segments segments so delivery paths can be exercised without
// ffmpeg.
type FakeEngine struct {
	ProbeResult transcode.ProbeResult
	ProbeErr    error
	RenderErr   error
	Segments    int
	// Gate, when non-nil, holds every Render open until it is closed.
	Gate chan struct{}
	// RenderStarted, when non-nil, receives once per Render before the gate.
	RenderStarted chan struct{}

	mu       sync.Mutex
	probes   int
	requests []transcode.RenderRequest
}

// NewFakeEngine returns an engine reporting a 3 second clip with 48 kHz audio.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		ProbeResult: transcode.ProbeResult{
			DurationSeconds: 3,
			SampleRate:      48000,
			HasAudio:        true,
			HasVideo:        true,
		},
		Segments: 3,
	}
}

// Probe records the call and returns the configured result.
func (f *FakeEngine) Probe(ctx context.Context, path string) (transcode.ProbeResult, error) {
	f.mu.Lock()
	f.probes++
	f.mu.Unlock()
	if _, err := os.Stat(path); err != nil {
		return transcode.ProbeResult{}, fmt.Errorf("fake probe: %w", err)
	}
	if f.ProbeErr != nil {
		return transcode.ProbeResult{}, f.ProbeErr
	}
	return f.ProbeResult, nil
}

// Render writes <base>.m3u8 and <base>N.ts into the request's output directory.
func (f *FakeEngine) Render(ctx context.Context, req transcode.RenderRequest, progress func(transcode.Progress)) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.RenderStarted != nil {
		f.RenderStarted <- struct{}{}
	}
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.RenderErr != nil {
		return f.RenderErr
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return err
	}
	var playlist strings.Builder
	playlist.WriteString("#EXTM3U\n#EXT-X-VERSION:6\n#EXT-X-TARGETDURATION:1\n#EXT-X-MEDIA-SEQUENCE:0\n#EXT-X-INDEPENDENT-SEGMENTS\n")
	for i := 0; i < f.Segments; i++ {
		name := fmt.Sprintf("%s%d.ts", req.BaseName, i)
		if err := os.WriteFile(filepath.Join(req.OutputDir, name), []byte("segment"), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(&playlist, "#EXTINF:1.000000,\n%s\n", name)
		if progress != nil {
			progress(transcode.Progress{OutTimeSeconds: float64(i + 1)})
		}
	}
	playlist.WriteString("#EXT-X-ENDLIST\n")
	return os.WriteFile(req.ManifestPath(), []byte(playlist.String()), 0o644)
}

// ProbeCalls returns the number of Probe invocations.
func (f *FakeEngine) ProbeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

// RenderCalls returns the number of Render invocations.
func (f *FakeEngine) RenderCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// Requests returns a copy of every render request seen.
func (f *FakeEngine) Requests() []transcode.RenderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transcode.RenderRequest(nil), f.requests...)
}

var _ transcode.Engine = (*FakeEngine)(nil)
