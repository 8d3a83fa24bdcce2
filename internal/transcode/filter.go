package transcode

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"vidaq/internal/services"
)

// ffmpeg's atempo filter accepts factors in this range; larger shifts are
// expressed as a chain whose product equals the requested factor.
const (
	minAtempo = 0.5
	maxAtempo = 100.0
)

// Pitch factors outside [MinPitch, MaxPitch] are rejected.
const (
	MinPitch = 0.001
	MaxPitch = 1000.0
)

// AudioPlan is the audio treatment for a render. An empty Filter means the
// audio stream is passed through untouched.
type AudioPlan struct {
	Pitch  float64
	Filter string
}

// Passthrough reports whether the plan leaves audio unfiltered.
func (p AudioPlan) Passthrough() bool {
	return p.Filter == ""
}

// PlanAudio builds the filter chain for pitch p at sample rate R:
// asetrate=R*p, aresample=R, then atempo=1/p so duration is preserved.
// A pitch of exactly 1 yields a passthrough plan. Pitch 0, non-finite values
// and anything outside [MinPitch, MaxPitch] are rejected as validation errors.
func PlanAudio(sampleRate int, pitch float64) (AudioPlan, error) {
	if math.IsNaN(pitch) || pitch < MinPitch || pitch > MaxPitch {
		return AudioPlan{}, services.Wrap(services.ErrValidation, "transcode", "plan audio",
			fmt.Sprintf("pitch %v must be between %v and %v", pitch, MinPitch, MaxPitch), nil)
	}
	if pitch == 1 {
		return AudioPlan{Pitch: pitch}, nil
	}
	if sampleRate <= 0 {
		// No audio stream; nothing to shift.
		return AudioPlan{Pitch: pitch}, nil
	}

	filters := []string{
		"asetrate=" + formatFloat(float64(sampleRate)*pitch),
		"aresample=" + strconv.Itoa(sampleRate),
	}
	for _, factor := range atempoChain(1 / pitch) {
		filters = append(filters, "atempo="+formatFloat(factor))
	}
	return AudioPlan{Pitch: pitch, Filter: strings.Join(filters, ",")}, nil
}

func atempoChain(factor float64) []float64 {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 {
		return nil
	}
	var chain []float64
	for factor > maxAtempo {
		chain = append(chain, maxAtempo)
		factor /= maxAtempo
	}
	for factor < minAtempo {
		chain = append(chain, minAtempo)
		factor /= minAtempo
	}
	return append(chain, factor)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
