package cache

import "time"

// ScopedKeyer wraps a Keyer with a prefix, isolating cache namespaces
// when several projects share one backend (e.g. a build-server Redis).
//
//	keyer := cache.NewScopedKeyer(nil, "project-x:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer falls back to the default scheme.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ArchiveKey generates a prefixed archive key.
func (k *ScopedKeyer) ArchiveKey(path string, size int64, modTime time.Time) string {
	return k.prefix + k.inner.ArchiveKey(path, size, modTime)
}
