// Package services defines shared utilities consumed by the ingestion,
// playback, and delivery layers.
//
// Key responsibilities:
//   - Context helpers that stamp item IDs, fingerprints, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures keep their
//     classification (validation, not found, engine failure, ...) as they
//     travel up to the HTTP layer.
//
// Use these helpers when wiring new components so error classification and
// observability stay uniform across the service.
package services
