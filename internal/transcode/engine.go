package transcode

import (
	"context"
	"path/filepath"
)

// ProbeResult carries the media attributes ingestion needs.
type ProbeResult struct {
	DurationSeconds float64
	SampleRate      int
	HasAudio        bool
	HasVideo        bool
	// AudioMap is the ffmpeg -map specifier of the audio stream to render.
	AudioMap string
}

// RenderRequest describes one HLS render.
type RenderRequest struct {
	Source    string
	OutputDir string
	// BaseName is the playlist stem; the engine writes <BaseName>.m3u8 and
	// <BaseName>N.ts segments into OutputDir.
	BaseName string
	Audio    AudioPlan
	// AudioMap selects the audio stream; empty maps the first audio stream
	// if there is one.
	AudioMap string
}

// ManifestPath returns the playlist path the render will produce.
func (r RenderRequest) ManifestPath() string {
	return filepath.Join(r.OutputDir, r.BaseName+".m3u8")
}

// Progress reports render advancement in seconds of output produced.
type Progress struct {
	OutTimeSeconds float64
	Speed          string
}

// Engine probes and renders media. Implementations must be safe for
// concurrent use.
type Engine interface {
	Probe(ctx context.Context, path string) (ProbeResult, error)
	Render(ctx context.Context, req RenderRequest, progress func(Progress)) error
}
