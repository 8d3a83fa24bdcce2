// Package transcode defines the media engine contract used by ingestion and
// its ffmpeg-backed implementation.
//
// The Engine interface has two operations: Probe reports duration and audio
// sample rate of a staged upload, and Render produces an HLS playlist plus
// MPEG-TS segments into an output directory. PlanAudio derives the
// pitch-shift filter chain that keeps playback speed unchanged.
package transcode
