// Package export renders dependency graphs as Graphviz DOT and raster
// or vector images, for inspection of what the resolver decided and why.
package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/dtg01100/jar2appimage/pkg/depgraph"
	"github.com/dtg01100/jar2appimage/pkg/resolve"
)

// Options configures graph rendering.
type Options struct {
	// Detailed includes version and size information in node labels.
	Detailed bool
	// Resolution, when set, styles nodes by their bundling decision:
	// excluded archives render dashed and grey with the exclusion reason.
	Resolution *resolve.Result
}

// ToDOT converts a dependency graph to Graphviz DOT format.
// Inferred edges render dashed to distinguish them from manifest-declared
// dependencies. The output is deterministic for a given graph.
func ToDOT(g *depgraph.Graph, opts Options) string {
	decisions := make(map[string]resolve.BundlingDecision)
	if opts.Resolution != nil {
		for _, d := range opts.Resolution.Decisions {
			decisions[d.Coordinate] = d
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph deps {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		key := n.Key()
		label := fmtLabel(n, opts.Detailed)
		attrs := []string{fmt.Sprintf("label=%q", label)}
		if d, ok := decisions[key]; ok && !d.Include {
			attrs = append(attrs,
				"style=\"rounded,filled,dashed\"", "fillcolor=lightgrey",
				fmt.Sprintf("tooltip=%q", d.Reason))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", key, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if e.Provenance == depgraph.ProvenanceInferred {
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", e.From, e.To)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *depgraph.Node, detailed bool) string {
	c := n.Result.Coordinate
	if !detailed {
		return c.Artifact
	}
	parts := []string{c.Artifact}
	if c.Version != "" {
		parts = append(parts, "v"+c.Version)
	}
	if v := n.Result.JavaVersion(); v != "" {
		parts = append(parts, "java "+v)
	}
	parts = append(parts, fmt.Sprintf("%d KiB", n.Result.SizeBytes/1024))
	return strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.SVG)
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
