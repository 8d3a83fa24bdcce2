package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Item is one catalog record: a unique fingerprint and the attributes derived
// from it at creation time.
type Item struct {
	ID              int64
	Fingerprint     uuid.UUID
	DurationSeconds float64
	OriginalName    string
	CreatedAt       time.Time
}

// DatabaseHealth reports catalog database diagnostics.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	ItemCount        int
	Error            string
}

const itemColumns = "id, fingerprint, duration_seconds, original_name, created_at"
