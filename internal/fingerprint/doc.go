// Package fingerprint derives the deduplication identity of an upload.
//
// A fingerprint is a pure function of the raw content bytes and the clamped
// pitch factor: the pitch is appended to the content as a little-endian IEEE-754
// float32, the concatenation is hashed with SHA-256, and the hex digest is
// mapped into a name-based (version 5) UUID. Filenames, timestamps, and content
// types never participate, so identical bytes requested at an identical
// effective pitch always resolve to the same catalog item.
//
// ParsePitch and NormalizePitch own the pitch clamping rules so the HTTP layer,
// the CLI, and the coordinator cannot disagree about what "no pitch shift"
// means.
package fingerprint
