// Package audio picks the audio stream a render pitch-shifts.
//
// Streams are ranked by channel count, then the container's default
// disposition, then stream order, which mirrors how ffmpeg chooses an audio
// stream when none is mapped explicitly.
package audio
