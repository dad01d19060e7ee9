package cli

import (
	"testing"

	"github.com/dtg01100/jar2appimage/pkg/analysis"
	"github.com/dtg01100/jar2appimage/pkg/archive"
	"github.com/dtg01100/jar2appimage/pkg/classfile"
	"github.com/dtg01100/jar2appimage/pkg/depgraph"
	"github.com/dtg01100/jar2appimage/pkg/manifest"
)

func TestRebuildGraph(t *testing.T) {
	app := &archive.Result{
		Path:       "/work/app.jar",
		Coordinate: archive.Coordinate{Artifact: "app", Version: "1.0"},
		Valid:      true,
		Classes: []*classfile.Metadata{{
			ClassName:         "com/example/Main",
			ReferencedClasses: []string{"com/google/common/base/Joiner"},
		}},
		Manifest: manifest.Info{ClassPath: []string{"lib/guava-33.0.0.jar"}},
	}
	guava := &archive.Result{
		Path:       "/work/lib/guava-33.0.0.jar",
		Coordinate: archive.Coordinate{Artifact: "guava", Version: "33.0.0"},
		Valid:      true,
		Classes: []*classfile.Metadata{{
			ClassName: "com/google/common/base/Joiner",
		}},
	}
	report := &analysis.Report{
		Roots:    []string{"/work/app.jar"},
		Archives: []*archive.Result{app, guava},
	}

	g, err := rebuildGraph(report)
	if err != nil {
		t.Fatalf("rebuildGraph() error = %v", err)
	}
	if g.NodeCount() != 2 {
		t.Fatalf("NodeCount() = %d, want 2", g.NodeCount())
	}

	edges := g.EdgesFrom("app:1.0")
	if len(edges) != 1 {
		t.Fatalf("EdgesFrom(app:1.0) = %d edges, want 1", len(edges))
	}
	// The Class-Path declaration and the bytecode reference point at the
	// same archive; the declared edge wins the dedupe.
	if edges[0].To != "guava:33.0.0" || edges[0].Provenance != depgraph.ProvenanceDeclared {
		t.Errorf("edge = %+v, want declared edge to guava:33.0.0", edges[0])
	}

	node, ok := g.Node("app:1.0")
	if !ok || !node.Root {
		t.Error("app:1.0 should be a root node")
	}
}
