// Package depgraph models the dependency relationships between analyzed
// archives as a directed graph keyed by coordinate.
//
// Nodes wrap archive analysis results and are inserted once per archive.
// Edges point dependent → dependency and carry their provenance: declared
// through a manifest Class-Path, or inferred from bytecode class references.
// The graph offers cycle detection, version-conflict detection, and
// topological ordering; it never resolves anything itself — that is the
// resolver's job, operating on a frozen graph.
//
// Graph is not safe for concurrent mutation. Build it from a single
// goroutine, then query it freely: all read operations are side-effect-free.
package depgraph

import (
	"slices"

	"github.com/dtg01100/jar2appimage/pkg/archive"
	"github.com/dtg01100/jar2appimage/pkg/errors"
)

// Provenance records how a dependency edge was discovered.
type Provenance int

const (
	// ProvenanceDeclared marks an edge taken from a manifest Class-Path entry.
	ProvenanceDeclared Provenance = iota
	// ProvenanceInferred marks an edge derived from a bytecode class reference.
	ProvenanceInferred
)

// String returns the canonical name of the provenance value.
func (p Provenance) String() string {
	switch p {
	case ProvenanceDeclared:
		return "DECLARED"
	case ProvenanceInferred:
		return "INFERRED"
	default:
		return "UNKNOWN"
	}
}

// Node is a vertex in the dependency graph wrapping one analyzed archive.
// Nodes are immutable after insertion except for edge additions.
type Node struct {
	Result *archive.Result // Analysis result this node wraps
	Root   bool            // True for originally supplied top-level archives
}

// Key returns the node's unique coordinate key.
func (n *Node) Key() string { return n.Result.Coordinate.Key() }

// Edge is a directed dependency: From depends on To.
type Edge struct {
	From       string
	To         string
	Provenance Provenance
}

// Conflict describes an artifact present in more than one version.
// Versions and Keys are listed in discovery (insertion) order.
type Conflict struct {
	Artifact string   `json:"artifact" bson:"artifact"`
	Versions []string `json:"versions" bson:"versions"`
	Keys     []string `json:"keys" bson:"keys"`
}

// Graph is a directed graph of archive nodes keyed by coordinate.
// Insertion order is preserved and used as the deterministic tie-break
// everywhere ordering would otherwise depend on map iteration.
type Graph struct {
	nodes    map[string]*Node
	order    []string // coordinate keys in insertion order
	edges    []Edge
	outgoing map[string][]string
	incoming map[string][]string
}

// New creates an empty dependency graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// AddNode inserts a node for the given analysis result, keyed by its
// coordinate. Re-inserting the same archive path under the same coordinate
// is a no-op; a different archive claiming an existing coordinate returns
// a DUPLICATE_COORDINATE error.
func (g *Graph) AddNode(result *archive.Result, root bool) error {
	if result == nil || result.Coordinate.IsZero() {
		return errors.New(errors.ErrCodeInternal, "node requires a non-empty coordinate")
	}
	key := result.Coordinate.Key()
	if existing, ok := g.nodes[key]; ok {
		if existing.Result.Path == result.Path {
			if root {
				existing.Root = true
			}
			return nil
		}
		return errors.New(errors.ErrCodeDuplicateCoordinate,
			"coordinate %s already provided by %s", key, existing.Result.Path)
	}
	g.nodes[key] = &Node{Result: result, Root: root}
	g.order = append(g.order, key)
	return nil
}

// AddEdge adds a directed dependency edge between two existing nodes.
// Self-loops are rejected with SELF_LOOP; edges touching a coordinate not
// present in the graph are rejected with UNKNOWN_COORDINATE. Duplicate
// edges between the same pair are collapsed, keeping the first provenance.
func (g *Graph) AddEdge(dependent, dependency string, prov Provenance) error {
	if dependent == dependency {
		return errors.New(errors.ErrCodeSelfLoop, "%s cannot depend on itself", dependent)
	}
	if _, ok := g.nodes[dependent]; !ok {
		return errors.New(errors.ErrCodeUnknownCoordinate, "unknown dependent %s", dependent)
	}
	if _, ok := g.nodes[dependency]; !ok {
		return errors.New(errors.ErrCodeUnknownCoordinate, "unknown dependency %s", dependency)
	}
	for _, e := range g.edges {
		if e.From == dependent && e.To == dependency {
			return nil
		}
	}
	g.edges = append(g.edges, Edge{From: dependent, To: dependency, Provenance: prov})
	g.outgoing[dependent] = append(g.outgoing[dependent], dependency)
	g.incoming[dependency] = append(g.incoming[dependency], dependent)
	return nil
}

// Node returns the node with the given coordinate key, or nil and false.
func (g *Graph) Node(key string) (*Node, bool) {
	n, ok := g.nodes[key]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, len(g.order))
	for i, key := range g.order {
		nodes[i] = g.nodes[key]
	}
	return nodes
}

// Roots returns the root nodes in insertion order.
func (g *Graph) Roots() []*Node {
	var roots []*Node
	for _, key := range g.order {
		if n := g.nodes[key]; n.Root {
			roots = append(roots, n)
		}
	}
	return roots
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// EdgesFrom returns the outgoing edges of the given node in insertion order.
func (g *Graph) EdgesFrom(key string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == key {
			out = append(out, e)
		}
	}
	return out
}

// Dependencies returns the coordinate keys this node depends on.
// The returned slice is a read-only view.
func (g *Graph) Dependencies(key string) []string { return g.outgoing[key] }

// Dependents returns the coordinate keys that depend on this node.
// The returned slice is a read-only view.
func (g *Graph) Dependents(key string) []string { return g.incoming[key] }

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// InsertionIndex returns the position at which the key was added to the
// graph, or -1 if the key is unknown. First-declared tie-breaks in the
// resolver are defined in terms of this index.
func (g *Graph) InsertionIndex(key string) int {
	return slices.Index(g.order, key)
}

// DetectCycles finds every distinct directed cycle in the graph.
//
// Traversal is an iterative depth-first search with a three-color scheme:
// white (unvisited), gray (on the current path), black (finished). A back
// edge to a gray node closes a cycle consisting of the path segment from
// that node to the current one. Each cycle is reported once, rotated so
// its smallest coordinate key comes first, and the result is ordered by
// discovery. Detection does not stop at the first cycle found.
func (g *Graph) DetectCycles() [][]string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.nodes))
	seen := make(map[string]bool)
	var cycles [][]string

	type frame struct {
		key  string
		next int
	}

	for _, start := range g.order {
		if color[start] != white {
			continue
		}
		stack := []frame{{key: start}}
		path := []string{start}
		color[start] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := g.outgoing[top.key]
			if top.next < len(children) {
				child := children[top.next]
				top.next++
				switch color[child] {
				case white:
					color[child] = gray
					stack = append(stack, frame{key: child})
					path = append(path, child)
				case gray:
					// Back edge: the cycle runs from child's position
					// on the current path through the top of the stack.
					at := slices.Index(path, child)
					cycle := normalizeCycle(slices.Clone(path[at:]))
					sig := cycleSignature(cycle)
					if !seen[sig] {
						seen[sig] = true
						cycles = append(cycles, cycle)
					}
				}
				continue
			}
			color[top.key] = black
			stack = stack[:len(stack)-1]
			path = path[:len(path)-1]
		}
	}
	return cycles
}

// normalizeCycle rotates the cycle so its smallest key comes first,
// giving every distinct cycle a single canonical form.
func normalizeCycle(cycle []string) []string {
	if len(cycle) == 0 {
		return cycle
	}
	min := 0
	for i, key := range cycle {
		if key < cycle[min] {
			min = i
		}
	}
	rotated := make([]string, 0, len(cycle))
	rotated = append(rotated, cycle[min:]...)
	rotated = append(rotated, cycle[:min]...)
	return rotated
}

func cycleSignature(cycle []string) string {
	sig := ""
	for _, key := range cycle {
		sig += key + "\x00"
	}
	return sig
}

// DetectConflicts groups nodes by artifact identity (coordinate without
// version) and reports every artifact present in more than one distinct
// version. Groups and versions are listed in discovery order.
func (g *Graph) DetectConflicts() []Conflict {
	byArtifact := make(map[string][]string) // artifact -> keys, insertion order
	var artifacts []string
	for _, key := range g.order {
		artifact := g.nodes[key].Result.Coordinate.Artifact
		if _, ok := byArtifact[artifact]; !ok {
			artifacts = append(artifacts, artifact)
		}
		byArtifact[artifact] = append(byArtifact[artifact], key)
	}

	var conflicts []Conflict
	for _, artifact := range artifacts {
		keys := byArtifact[artifact]
		var versions []string
		for _, key := range keys {
			v := g.nodes[key].Result.Coordinate.Version
			if !slices.Contains(versions, v) {
				versions = append(versions, v)
			}
		}
		if len(versions) > 1 {
			conflicts = append(conflicts, Conflict{
				Artifact: artifact,
				Versions: versions,
				Keys:     slices.Clone(keys),
			})
		}
	}
	return conflicts
}

// TopologicalOrder orders the graph so dependencies come before anything
// that depends on them, using Kahn's algorithm. Nodes that cannot be
// ordered because they participate in cycles are returned separately as
// the residual set, in insertion order; callers decide how to break the
// tie rather than receiving a silently mangled order.
func (g *Graph) TopologicalOrder() (ordered, residual []string) {
	// Kahn's algorithm removes dependency-free nodes first. Edges point
	// dependent → dependency, so the relevant degree here is the number
	// of unprocessed outgoing edges.
	remaining := make(map[string]int, len(g.nodes))
	for _, key := range g.order {
		remaining[key] = len(g.outgoing[key])
	}

	var queue []string
	for _, key := range g.order {
		if remaining[key] == 0 {
			queue = append(queue, key)
		}
	}

	done := make(map[string]bool, len(g.nodes))
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		done[key] = true
		ordered = append(ordered, key)
		for _, dependent := range g.incoming[key] {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	for _, key := range g.order {
		if !done[key] {
			residual = append(residual, key)
		}
	}
	return ordered, residual
}
