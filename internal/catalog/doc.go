// Package catalog persists ingested items in SQLite and exposes the lookups
// the ingestion coordinator and the download path rely on.
//
// The catalog is append-only from the service's perspective: items are created
// exactly once per fingerprint and never updated or deleted. The unique index
// on fingerprint is the last line of defence against duplicate rows when two
// ingestions race; Create reports that case as services.ErrConstraintViolation
// so callers can fall back to FindByFingerprint.
//
// The schema version lives in SQLite's user_version field; schema changes
// bump schemaVersion in schema.go.
package catalog
