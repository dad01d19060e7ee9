package export

import (
	"strings"
	"testing"

	"github.com/dtg01100/jar2appimage/pkg/archive"
	"github.com/dtg01100/jar2appimage/pkg/depgraph"
	"github.com/dtg01100/jar2appimage/pkg/resolve"
)

func buildGraph(t *testing.T) *depgraph.Graph {
	t.Helper()
	g := depgraph.New()
	results := []*archive.Result{
		{
			Path:       "/d/app-1.0.jar",
			Coordinate: archive.Coordinate{Artifact: "app", Version: "1.0"},
			SizeBytes:  2048,
			Valid:      true,
		},
		{
			Path:       "/d/guava-33.0.0.jar",
			Coordinate: archive.Coordinate{Artifact: "guava", Version: "33.0.0"},
			SizeBytes:  4096,
			Valid:      true,
		},
	}
	for i, r := range results {
		if err := g.AddNode(r, i == 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddEdge("app:1.0", "guava:33.0.0", depgraph.ProvenanceInferred); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(buildGraph(t), Options{})

	for _, want := range []string{
		"digraph deps {",
		`"app:1.0"`,
		`"guava:33.0.0"`,
		`"app:1.0" -> "guava:33.0.0" [style=dashed];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTDeterministic(t *testing.T) {
	first := ToDOT(buildGraph(t), Options{Detailed: true})
	for i := 0; i < 5; i++ {
		if again := ToDOT(buildGraph(t), Options{Detailed: true}); again != first {
			t.Fatal("DOT output not deterministic")
		}
	}
}

func TestToDOTExcludedStyling(t *testing.T) {
	g := buildGraph(t)
	native := &archive.Result{
		Path:            "/d/natives-1.0.jar",
		Coordinate:      archive.Coordinate{Artifact: "natives", Version: "1.0"},
		Valid:           true,
		NativeLibraries: []archive.NativeLibrary{{Path: "libx.so", Platform: archive.PlatformLinux}},
	}
	if err := g.AddNode(native, false); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge("app:1.0", "natives:1.0", depgraph.ProvenanceDeclared); err != nil {
		t.Fatal(err)
	}

	res := resolve.Resolve(g, resolve.Context{IncludeNative: false})
	dot := ToDOT(g, Options{Resolution: res, Detailed: true})

	if !strings.Contains(dot, "lightgrey") {
		t.Errorf("excluded node not styled:\n%s", dot)
	}
	if !strings.Contains(dot, resolve.ReasonNativeExcluded) {
		t.Errorf("exclusion reason missing from tooltip:\n%s", dot)
	}
	if !strings.Contains(dot, "v33.0.0") {
		t.Errorf("detailed label missing version:\n%s", dot)
	}
}
