package archive

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Coordinate is the logical identity of one archive: an artifact name
// plus an optional version. Two archives with the same Artifact but
// different Versions are version conflict candidates.
type Coordinate struct {
	Artifact string `json:"artifact" bson:"artifact"`
	Version  string `json:"version,omitempty" bson:"version,omitempty"`
}

// Key returns the unique graph key for the coordinate,
// "artifact:version" or just the artifact when unversioned.
func (c Coordinate) Key() string {
	if c.Version == "" {
		return c.Artifact
	}
	return c.Artifact + ":" + c.Version
}

// String returns the same representation as Key.
func (c Coordinate) String() string { return c.Key() }

// IsZero reports whether the coordinate is empty.
func (c Coordinate) IsZero() bool { return c.Artifact == "" }

// versionedName matches the "name-1.2.3" jar naming convention: the
// version part starts at the last hyphen followed by a digit.
var versionedName = regexp.MustCompile(`^(.+)-(\d[\w.+\-]*)$`)

// Manifest attributes that carry a coordinate when present.
const (
	attrImplementationTitle   = "Implementation-Title"
	attrImplementationVersion = "Implementation-Version"
)

// CoordinateFromFilename derives a coordinate from an archive filename,
// splitting "guava-33.0.0.jar" into artifact "guava" and version
// "33.0.0". Filenames without a version convention yield a coordinate
// with an empty version.
func CoordinateFromFilename(path string) Coordinate {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	if m := versionedName.FindStringSubmatch(base); m != nil {
		return Coordinate{Artifact: m[1], Version: m[2]}
	}
	return Coordinate{Artifact: base}
}

// coordinateFromAttributes derives a coordinate from manifest
// implementation attributes, returning the zero value when the title is
// absent.
func coordinateFromAttributes(attrs map[string]string) Coordinate {
	title := strings.TrimSpace(attrs[attrImplementationTitle])
	if title == "" {
		return Coordinate{}
	}
	return Coordinate{
		Artifact: title,
		Version:  strings.TrimSpace(attrs[attrImplementationVersion]),
	}
}
