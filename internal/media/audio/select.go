package audio

import (
	"strconv"
	"strings"

	"vidaq/internal/media/ffprobe"
)

// Selection describes the primary audio stream of a container.
type Selection struct {
	Primary ffprobe.Stream
	// PrimaryIndex is the absolute stream index, or -1 when there is no
	// usable audio stream.
	PrimaryIndex int
	SampleRate   int
}

// Found reports whether an audio stream was selected.
func (s Selection) Found() bool {
	return s.PrimaryIndex >= 0
}

// MapSpecifier returns the ffmpeg -map argument for the selected stream.
func (s Selection) MapSpecifier() string {
	if !s.Found() {
		return ""
	}
	return "0:" + strconv.Itoa(s.PrimaryIndex)
}

// Select returns the primary audio stream. Streams without a positive
// sample rate are skipped since they cannot be resampled.
func Select(streams []ffprobe.Stream) Selection {
	best := Selection{PrimaryIndex: -1}
	bestScore := 0
	order := 0
	for _, stream := range streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		rate, ok := stream.SampleRateHz()
		if !ok {
			order++
			continue
		}
		score := scorePrimary(stream, order)
		if !best.Found() || score > bestScore {
			best = Selection{Primary: stream, PrimaryIndex: stream.Index, SampleRate: rate}
			bestScore = score
		}
		order++
	}
	return best
}

func scorePrimary(stream ffprobe.Stream, order int) int {
	score := channelScore(stream.Channels)
	if stream.Disposition["default"] == 1 {
		score += 5
	}
	// Earlier streams win ties.
	return score*100 - order
}

func channelScore(channels int) int {
	switch {
	case channels >= 8:
		return 1000
	case channels >= 6:
		return 800
	case channels >= 4:
		return 600
	case channels >= 2:
		return 400
	default:
		return 200
	}
}
