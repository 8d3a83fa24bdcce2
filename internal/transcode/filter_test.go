package transcode

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"vidaq/internal/services"
)

func TestPlanAudio(t *testing.T) {
	cases := []struct {
		name       string
		rate       int
		pitch      float64
		want       string
		passthough bool
	}{
		{name: "neutral", rate: 48000, pitch: 1, passthough: true},
		{name: "octave up", rate: 48000, pitch: 2, want: "asetrate=96000,aresample=48000,atempo=0.5"},
		{name: "fractional", rate: 44100, pitch: 1.5, want: "asetrate=66150,aresample=44100,atempo=0.6666666666666666"},
		{name: "lower", rate: 48000, pitch: 0.8, want: "asetrate=38400,aresample=48000,atempo=1.25"},
		{name: "silent media", rate: 0, pitch: 1.5, passthough: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := PlanAudio(tc.rate, tc.pitch)
			if err != nil {
				t.Fatalf("PlanAudio: %v", err)
			}
			if plan.Passthrough() != tc.passthough {
				t.Fatalf("passthrough = %v, want %v", plan.Passthrough(), tc.passthough)
			}
			if plan.Filter != tc.want {
				t.Fatalf("filter = %q, want %q", plan.Filter, tc.want)
			}
		})
	}
}

func TestPlanAudioRejectsInvalidPitch(t *testing.T) {
	invalid := []float64{0, -1, math.NaN(), math.Inf(1), 5e-324, 1e-310, MinPitch / 2, MaxPitch * 2, math.MaxFloat64}
	for _, pitch := range invalid {
		if _, err := PlanAudio(48000, pitch); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("pitch %v: expected validation error, got %v", pitch, err)
		}
	}
}

func TestPlanAudioChainsExtremeTempo(t *testing.T) {
	cases := []float64{4, 10, 0.001}
	for _, pitch := range cases {
		plan, err := PlanAudio(48000, pitch)
		if err != nil {
			t.Fatalf("PlanAudio(%v): %v", pitch, err)
		}
		product := 1.0
		for _, part := range strings.Split(plan.Filter, ",") {
			value, ok := strings.CutPrefix(part, "atempo=")
			if !ok {
				continue
			}
			factor, err := strconv.ParseFloat(value, 64)
			if err != nil {
				t.Fatalf("parse atempo %q: %v", value, err)
			}
			if factor < minAtempo || factor > maxAtempo {
				t.Fatalf("pitch %v: atempo factor %v outside accepted range", pitch, factor)
			}
			product *= factor
		}
		if math.Abs(product-1/pitch) > 1e-9*(1/pitch) {
			t.Fatalf("pitch %v: atempo product %v, want %v", pitch, product, 1/pitch)
		}
	}
}

func TestAtempoChainIgnoresNonFiniteFactors(t *testing.T) {
	for _, factor := range []float64{math.Inf(1), math.Inf(-1), math.NaN(), 0} {
		if chain := atempoChain(factor); chain != nil {
			t.Fatalf("factor %v: expected no chain, got %v", factor, chain)
		}
	}
}

func TestPlanAudioAcceptsRangeBounds(t *testing.T) {
	for _, pitch := range []float64{MinPitch, MaxPitch} {
		plan, err := PlanAudio(48000, pitch)
		if err != nil {
			t.Fatalf("PlanAudio(%v): %v", pitch, err)
		}
		if plan.Passthrough() {
			t.Fatalf("pitch %v: expected a filter chain", pitch)
		}
	}
}
