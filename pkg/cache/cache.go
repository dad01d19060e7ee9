// Package cache provides pluggable storage for previously analyzed
// archives. An analysis run may hand the orchestrator a Cache; the
// engine consults it but never creates or manages one implicitly, so
// resolution stays pure and testable.
//
// Backends: file (per-user cache directory), in-process LRU, Redis
// (shared between runs on build machines), and a null cache for
// disabling caching entirely.
package cache

import (
	"context"
	"time"
)

// Cache stores serialized analysis results keyed by archive identity.
// Implementations must treat a miss as (nil, false, nil), reserving the
// error return for real backend failures.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value with the given time-to-live. A non-positive
	// ttl means the entry does not expire.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Keyer derives cache keys for analysis artifacts.
type Keyer interface {
	// ArchiveKey identifies one archive's analysis result. The key
	// changes whenever the file's size or modification time changes,
	// so a rebuilt jar never serves stale metadata.
	ArchiveKey(path string, size int64, modTime time.Time) string
}

// DefaultKeyer is the standard key scheme.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ArchiveKey generates a key of the form "archive:<sha256>".
func (k *DefaultKeyer) ArchiveKey(path string, size int64, modTime time.Time) string {
	return hashKey("archive", path, size, modTime.UnixNano())
}
