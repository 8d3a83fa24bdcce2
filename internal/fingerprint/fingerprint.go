package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NeutralPitch is the pitch factor meaning "leave the audio untouched".
const NeutralPitch = 1.0

// Namespace scopes the version 5 UUIDs produced by this package. Changing it
// changes every fingerprint, so it is fixed for scheme v1.
var Namespace = uuid.NameSpaceDNS

// Compute returns the fingerprint of content requested at pitch.
func Compute(content []byte, pitch float64) uuid.UUID {
	h := sha256.New()
	h.Write(content)
	return finish(h, pitch)
}

// FromReader streams r into the digest and returns the same identifier Compute
// would return for the full content.
func FromReader(r io.Reader, pitch float64) (uuid.UUID, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return uuid.Nil, fmt.Errorf("fingerprint content: %w", err)
	}
	return finish(h, pitch), nil
}

func finish(h hash.Hash, pitch float64) uuid.UUID {
	var suffix [4]byte
	binary.LittleEndian.PutUint32(suffix[:], math.Float32bits(float32(NormalizePitch(pitch))))
	h.Write(suffix[:])
	digest := hex.EncodeToString(h.Sum(nil))
	return uuid.NewSHA1(Namespace, []byte(digest))
}

// NormalizePitch clamps pitch values that represent "no change": negative
// factors and non-finite values collapse to NeutralPitch. Other values are
// reduced to the float32 precision the fingerprint encodes.
func NormalizePitch(pitch float64) float64 {
	if math.IsNaN(pitch) || math.IsInf(pitch, 0) || pitch < 0 {
		return NeutralPitch
	}
	single := float32(pitch)
	if math.IsInf(float64(single), 0) {
		return pitch
	}
	narrowed := strconv.FormatFloat(float64(single), 'g', -1, 32)
	value, err := strconv.ParseFloat(narrowed, 64)
	if err != nil {
		return pitch
	}
	return value
}

// ParsePitch interprets the raw pitch form value. Absent, blank, and
// non-numeric input yields NeutralPitch rather than an error.
func ParsePitch(raw string) float64 {
	value, ok := parseFloat(raw)
	if !ok {
		return NeutralPitch
	}
	return NormalizePitch(value)
}

func parseFloat(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
