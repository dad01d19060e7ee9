// Package resolve turns a frozen dependency graph into a concrete,
// ordered set of artifacts with per-archive bundling decisions.
//
// Resolution is a pure function of (graph, context): identical inputs
// always produce an identical Result, including ordering. The resolver
// never mutates the graph, so repeated and concurrent resolutions against
// the same graph snapshot are safe.
package resolve

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/dtg01100/jar2appimage/pkg/archive"
	"github.com/dtg01100/jar2appimage/pkg/depgraph"
)

// Strategy selects how version conflicts between reachable archives are
// settled. The set is closed: resolution dispatches over it exhaustively.
type Strategy string

const (
	// StrategyLatestVersion picks the highest version of a conflicting
	// artifact; ties break by first-declared order.
	StrategyLatestVersion Strategy = "LATEST_VERSION"
	// StrategyFirstDeclared picks the version added to the graph earliest,
	// regardless of magnitude.
	StrategyFirstDeclared Strategy = "FIRST_DECLARED"
	// StrategyScopePriority prefers a version reached through a declared
	// manifest edge over one reached only through inferred bytecode edges,
	// falling back to StrategyLatestVersion on ties.
	StrategyScopePriority Strategy = "SCOPE_PRIORITY"
)

// Exclusion reasons attached to bundling decisions.
const (
	ReasonReachable          = "REACHABLE"
	ReasonDepthLimit         = "DEPTH_LIMIT_EXCEEDED"
	ReasonPlatformMismatch   = "PLATFORM_MISMATCH"
	ReasonNativeExcluded     = "NATIVE_EXCLUDED"
	ReasonNotReachable       = "NOT_REACHABLE"
	ReasonConflictSuperseded = "CONFLICT_SUPERSEDED"
)

// Context configures one resolution run.
type Context struct {
	// Platform is the bundling target for native libraries.
	Platform archive.Platform
	// Strategy settles version conflicts. Defaults to StrategyLatestVersion.
	Strategy Strategy
	// MaxDepth bounds transitive traversal from the roots. Zero or
	// negative means unbounded.
	MaxDepth int
	// IncludeNative controls whether native-only archives are eligible
	// at all. When false they are excluded regardless of platform.
	IncludeNative bool
}

// WithDefaults fills unset fields with their defaults.
func (c Context) WithDefaults() Context {
	if c.Platform == "" {
		c.Platform = archive.PlatformLinux
	}
	if c.Strategy == "" {
		c.Strategy = StrategyLatestVersion
	}
	return c
}

// BundlingDecision is the final include/exclude verdict for one archive.
type BundlingDecision struct {
	Coordinate string `json:"coordinate" bson:"coordinate"`
	Include    bool   `json:"include" bson:"include"`
	Reason     string `json:"reason" bson:"reason"`
	SizeBytes  int64  `json:"size_bytes" bson:"size_bytes"`
}

// ResolvedConflict records which version of a conflicting artifact won
// and why, and which versions it displaced.
type ResolvedConflict struct {
	Artifact string   `json:"artifact" bson:"artifact"`
	Winner   string   `json:"winner" bson:"winner"`
	Losers   []string `json:"losers" bson:"losers"`
	Reason   string   `json:"reason" bson:"reason"`
}

// Result is the complete outcome of a resolution run.
type Result struct {
	// Classpath lists the resolved archive paths, dependencies before
	// dependents.
	Classpath []string `json:"classpath" bson:"classpath"`
	// Decisions holds one bundling decision per graph node, in graph
	// insertion order.
	Decisions []BundlingDecision `json:"decisions" bson:"decisions"`
	// Conflicts records each version conflict and how it was settled.
	Conflicts []ResolvedConflict `json:"conflicts" bson:"conflicts"`
	// Cycles lists every detected cycle as a coordinate sequence.
	Cycles [][]string `json:"cycles,omitempty" bson:"cycles,omitempty"`
	// Warnings carries non-fatal findings, such as cycle tie-breaks.
	Warnings []string `json:"warnings,omitempty" bson:"warnings,omitempty"`
}

// Resolve computes the resolved set for the graph under the given context.
// The graph is treated as frozen; Resolve never mutates it.
func Resolve(g *depgraph.Graph, rctx Context) *Result {
	rctx = rctx.WithDefaults()
	result := &Result{Cycles: g.DetectCycles()}

	// Breadth-first reachability from the declared roots, bounded by the
	// depth limit. Depth is the shortest edge distance from any root.
	depth := make(map[string]int, g.NodeCount())
	var queue []string
	for _, root := range g.Roots() {
		key := root.Key()
		depth[key] = 0
		queue = append(queue, key)
	}
	excluded := make(map[string]string) // key -> exclusion reason
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		for _, dep := range g.Dependencies(key) {
			if _, seen := depth[dep]; seen {
				continue
			}
			d := depth[key] + 1
			if rctx.MaxDepth > 0 && d > rctx.MaxDepth {
				excluded[dep] = ReasonDepthLimit
				continue
			}
			depth[dep] = d
			queue = append(queue, dep)
		}
	}

	// Platform and native-library eligibility.
	for _, node := range g.Nodes() {
		key := node.Key()
		if _, reachable := depth[key]; !reachable {
			continue
		}
		if !node.Result.NativeOnly() {
			continue
		}
		if !rctx.IncludeNative {
			delete(depth, key)
			excluded[key] = ReasonNativeExcluded
			continue
		}
		if !supportsPlatform(node.Result, rctx.Platform) {
			delete(depth, key)
			excluded[key] = ReasonPlatformMismatch
		}
	}

	// Version conflicts among the survivors, settled per artifact group.
	for _, conflict := range g.DetectConflicts() {
		var candidates []string
		for _, key := range conflict.Keys {
			if _, ok := depth[key]; ok {
				candidates = append(candidates, key)
			}
		}
		if len(candidates) < 2 {
			continue
		}
		winner, reason := pickWinner(g, candidates, rctx.Strategy)
		resolved := ResolvedConflict{
			Artifact: conflict.Artifact,
			Winner:   winner,
			Reason:   reason,
		}
		for _, key := range candidates {
			if key == winner {
				continue
			}
			resolved.Losers = append(resolved.Losers, key)
			delete(depth, key)
			excluded[key] = ReasonConflictSuperseded
		}
		result.Conflicts = append(result.Conflicts, resolved)
	}

	// Warn when a depth cut severed a declared dependency of a resolved
	// node: the classpath is knowingly incomplete for that node.
	for key := range depth {
		for _, edge := range g.EdgesFrom(key) {
			if edge.Provenance == depgraph.ProvenanceDeclared && excluded[edge.To] == ReasonDepthLimit {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("declared dependency %s of %s excluded by depth limit", edge.To, key))
			}
		}
	}
	slices.Sort(result.Warnings)

	// One decision per graph node, in insertion order.
	for _, node := range g.Nodes() {
		key := node.Key()
		decision := BundlingDecision{
			Coordinate: key,
			SizeBytes:  node.Result.SizeBytes,
		}
		if _, ok := depth[key]; ok {
			decision.Include = true
			decision.Reason = ReasonReachable
		} else if reason, ok := excluded[key]; ok {
			decision.Reason = reason
		} else {
			decision.Reason = ReasonNotReachable
		}
		result.Decisions = append(result.Decisions, decision)
	}

	result.Classpath, result.Warnings = orderClasspath(g, depth, result.Warnings)
	return result
}

// supportsPlatform reports whether any of the archive's native libraries
// target the given platform. PlatformAny entries match every target.
func supportsPlatform(r *archive.Result, target archive.Platform) bool {
	for _, lib := range r.NativeLibraries {
		if lib.Platform == target || lib.Platform == archive.PlatformAny {
			return true
		}
	}
	return false
}

// pickWinner settles one artifact group under the given strategy and
// returns the winning key plus a human-readable reason.
func pickWinner(g *depgraph.Graph, candidates []string, strategy Strategy) (string, string) {
	switch strategy {
	case StrategyFirstDeclared:
		winner := slices.MinFunc(candidates, func(a, b string) int {
			return g.InsertionIndex(a) - g.InsertionIndex(b)
		})
		return winner, "earliest declared wins (FIRST_DECLARED)"

	case StrategyScopePriority:
		var declared []string
		for _, key := range candidates {
			if reachedDeclared(g, key) {
				declared = append(declared, key)
			}
		}
		if len(declared) == 1 {
			return declared[0], "declared scope outranks inferred (SCOPE_PRIORITY)"
		}
		if len(declared) > 1 {
			candidates = declared
		}
		winner := latestVersion(g, candidates)
		return winner, "highest version among declared scope (SCOPE_PRIORITY)"

	default: // StrategyLatestVersion
		return latestVersion(g, candidates), "highest version wins (LATEST_VERSION)"
	}
}

// reachedDeclared reports whether the node is a root or has at least one
// incoming declared-provenance edge.
func reachedDeclared(g *depgraph.Graph, key string) bool {
	if node, ok := g.Node(key); ok && node.Root {
		return true
	}
	for _, from := range g.Dependents(key) {
		for _, edge := range g.EdgesFrom(from) {
			if edge.To == key && edge.Provenance == depgraph.ProvenanceDeclared {
				return true
			}
		}
	}
	return false
}

// latestVersion picks the candidate with the highest version, breaking
// ties by first-declared order.
func latestVersion(g *depgraph.Graph, candidates []string) string {
	winner := candidates[0]
	for _, key := range candidates[1:] {
		nodeA, _ := g.Node(winner)
		nodeB, _ := g.Node(key)
		cmp := CompareVersions(nodeB.Result.Coordinate.Version, nodeA.Result.Coordinate.Version)
		if cmp > 0 || (cmp == 0 && g.InsertionIndex(key) < g.InsertionIndex(winner)) {
			winner = key
		}
	}
	return winner
}

// CompareVersions orders two version strings. Semantic versions compare
// semantically; anything else falls back to numeric comparison of
// dot-separated segments, with non-numeric segments compared as text.
// Returns -1, 0, or 1.
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}

	segsA := strings.Split(a, ".")
	segsB := strings.Split(b, ".")
	for i := 0; i < len(segsA) && i < len(segsB); i++ {
		na, okA := atoi(segsA[i])
		nb, okB := atoi(segsB[i])
		switch {
		case okA && okB:
			if na != nb {
				return sign(na - nb)
			}
		case okA != okB:
			// Numeric segments order after non-numeric ones
			// ("1.0.Final" < "1.0.1").
			if okA {
				return 1
			}
			return -1
		default:
			if c := strings.Compare(segsA[i], segsB[i]); c != 0 {
				return c
			}
		}
	}
	return sign(len(segsA) - len(segsB))
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// orderClasspath produces the resolved set's topological order, with
// dependencies before dependents. Cycle members that survived resolution
// are appended in first-declared order with a warning, a documented
// tie-break rather than an error.
func orderClasspath(g *depgraph.Graph, resolved map[string]int, warnings []string) ([]string, []string) {
	ordered, residual := g.TopologicalOrder()

	var classpath []string
	for _, key := range ordered {
		if _, ok := resolved[key]; ok {
			if node, found := g.Node(key); found {
				classpath = append(classpath, node.Result.Path)
			}
		}
	}

	var cyclic []string
	for _, key := range residual {
		if _, ok := resolved[key]; ok {
			cyclic = append(cyclic, key)
		}
	}
	if len(cyclic) > 0 {
		slices.SortFunc(cyclic, func(a, b string) int {
			return g.InsertionIndex(a) - g.InsertionIndex(b)
		})
		warnings = append(warnings, fmt.Sprintf(
			"classpath contains cyclic dependencies; ordering %s by declaration order", strings.Join(cyclic, ", ")))
		for _, key := range cyclic {
			if node, found := g.Node(key); found {
				classpath = append(classpath, node.Result.Path)
			}
		}
	}
	return classpath, warnings
}
