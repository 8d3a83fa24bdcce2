// Package ingest turns uploads into catalog items.
//
// Coordinator.Ingest fingerprints the upload (content plus normalized pitch),
// returns the existing item on a hit, and otherwise stages, probes, catalogs
// and renders the upload. Concurrent uploads of the same content share one
// miss-path execution keyed by fingerprint; the catalog's unique fingerprint
// index backs this up across processes. Renders land in a staging directory
// and are committed by rename, so an item is downloadable only once its
// artifacts are complete. A row whose render failed is repaired by the next
// upload of the same content.
package ingest
