package analysis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dtg01100/jar2appimage/pkg/archive"
	"github.com/dtg01100/jar2appimage/pkg/classfile"
	"github.com/dtg01100/jar2appimage/pkg/depgraph"
	"github.com/dtg01100/jar2appimage/pkg/resolve"
)

// Report is the complete outcome of one analysis run, consumed by the
// packaging and rendering collaborators. It is fully serializable;
// presentation formatting belongs to the CLI.
type Report struct {
	RunID     string        `json:"run_id" bson:"run_id"`
	Roots     []string      `json:"roots" bson:"roots"`
	StartedAt time.Time     `json:"started_at" bson:"started_at"`
	Duration  time.Duration `json:"duration" bson:"duration"`

	// Archives holds every analyzed archive: valid ones in graph
	// insertion order, then invalid ones ordered by path.
	Archives []*archive.Result `json:"archives" bson:"archives"`
	// Conflicts lists version conflicts detected before resolution.
	Conflicts []depgraph.Conflict `json:"conflicts,omitempty" bson:"conflicts,omitempty"`
	// Resolution carries the classpath, bundling decisions, settled
	// conflicts, and detected cycles.
	Resolution *resolve.Result `json:"resolution" bson:"resolution"`

	Warnings        []string `json:"warnings,omitempty" bson:"warnings,omitempty"`
	Errors          []string `json:"errors,omitempty" bson:"errors,omitempty"`
	Recommendations []string `json:"recommendations,omitempty" bson:"recommendations,omitempty"`
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// JavaVersion returns the highest Java version requirement across all
// valid archives, or "" when no class files were seen.
func (r *Report) JavaVersion() string {
	max := 0
	for _, a := range r.Archives {
		if a.Valid && a.MaxMajorVersion > max {
			max = a.MaxMajorVersion
		}
	}
	if max == 0 {
		return ""
	}
	return classfile.JavaVersion(max)
}

// recommendations derives actionable hints from the assembled report.
func (r *Report) recommendations() []string {
	var recs []string

	if v := r.JavaVersion(); v != "" {
		recs = append(recs, fmt.Sprintf("bundle a Java %s runtime or newer", v))
	}
	for _, a := range r.Archives {
		if a.Valid && a.Manifest.HasModuleDescriptor {
			recs = append(recs, "application declares Java modules; a bundled runtime is recommended")
			break
		}
	}
	for _, c := range r.Conflicts {
		recs = append(recs, fmt.Sprintf("align versions of %s (found %d)", c.Artifact, len(c.Versions)))
	}
	if r.Resolution != nil && len(r.Resolution.Cycles) > 0 {
		recs = append(recs, "dependency cycles detected; consider restructuring the affected artifacts")
	}
	return recs
}
