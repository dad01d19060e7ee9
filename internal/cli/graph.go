package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dtg01100/jar2appimage/pkg/analysis"
	"github.com/dtg01100/jar2appimage/pkg/depgraph"
	"github.com/dtg01100/jar2appimage/pkg/export"
)

// graphCommand creates the graph export command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "graph <jar> [jar...]",
		Short: "Export the dependency graph as DOT, SVG, or PNG",
		Long: `Graph analyzes the given JARs and writes their dependency graph in the
chosen format. Excluded archives render dashed and grey; inferred
(bytecode-derived) edges render dashed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			cfg, err := c.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			opts := cfg.Options()
			opts.Logger = logger
			store := c.newCache(cmd, cfg, noCache)
			defer store.Close()
			opts.Cache = store

			report, err := analysis.New(opts).Run(cmd.Context(), args, cfg.ResolutionContext())
			if err != nil {
				return err
			}

			g, err := rebuildGraph(report)
			if err != nil {
				return err
			}
			dot := export.ToDOT(g, export.Options{
				Detailed:   detailed,
				Resolution: report.Resolution,
			})

			var data []byte
			switch strings.ToLower(format) {
			case "dot":
				data = []byte(dot)
			case "svg":
				if data, err = export.RenderSVG(cmd.Context(), dot); err != nil {
					return err
				}
			case "png":
				if data, err = export.RenderPNG(cmd.Context(), dot); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported format %q (want dot, svg, or png)", format)
			}

			if output == "" {
				output = "deps." + strings.ToLower(format)
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write graph: %w", err)
			}
			printSuccess("Exported %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format (dot|svg|png)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default deps.<format>)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include versions and sizes in node labels")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the analysis cache")

	return cmd
}

// rebuildGraph reconstructs the dependency graph from a report's
// archives so the exporter can draw nodes and decisions together.
// Edges are re-derived the same way the orchestrator derives them.
func rebuildGraph(report *analysis.Report) (*depgraph.Graph, error) {
	g := depgraph.New()
	roots := make(map[string]bool, len(report.Roots))
	for _, r := range report.Roots {
		roots[r] = true
	}
	for _, a := range report.Archives {
		if !a.Valid {
			continue
		}
		if err := g.AddNode(a, roots[a.Path]); err != nil {
			return nil, err
		}
	}

	byPath := make(map[string]string, len(report.Archives))
	for _, a := range report.Archives {
		if a.Valid {
			byPath[a.Path] = a.Coordinate.Key()
		}
	}
	classOwner := make(map[string]string)
	for _, a := range report.Archives {
		for _, cls := range a.Classes {
			if _, ok := classOwner[cls.ClassName]; !ok {
				classOwner[cls.ClassName] = a.Coordinate.Key()
			}
		}
	}
	for _, a := range report.Archives {
		if !a.Valid {
			continue
		}
		from := a.Coordinate.Key()
		for _, entry := range a.Manifest.ClassPath {
			target := entry
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(a.Path), entry)
			}
			if to, ok := byPath[target]; ok && to != from {
				_ = g.AddEdge(from, to, depgraph.ProvenanceDeclared)
			}
		}
		for _, cls := range a.Classes {
			for _, ref := range cls.ReferencedClasses {
				if to, ok := classOwner[ref]; ok && to != from {
					_ = g.AddEdge(from, to, depgraph.ProvenanceInferred)
				}
			}
		}
	}
	return g, nil
}
