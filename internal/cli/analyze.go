package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dtg01100/jar2appimage/pkg/analysis"
	"github.com/dtg01100/jar2appimage/pkg/resolve"
)

// analyzeCommand creates the analyze command, the main entry point of
// the engine: analyze JARs, resolve the graph, print the report.
func (c *CLI) analyzeCommand() *cobra.Command {
	var (
		platform      string
		strategy      string
		maxDepth      int
		includeNative bool
		workers       int
		timeout       time.Duration
		noCache       bool
		asJSON        bool
		output        string
	)

	cmd := &cobra.Command{
		Use:   "analyze <jar> [jar...]",
		Short: "Analyze JAR dependencies and resolve an ordered classpath",
		Long: `Analyze inspects each JAR at the binary level (class files, manifest,
native libraries), builds a dependency graph across all supplied and
discovered archives, and resolves it into an ordered classpath with
per-archive bundling decisions.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			cfg, err := c.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			opts := cfg.Options()
			opts.Logger = logger
			if workers > 0 {
				opts.Workers = workers
			}
			if timeout > 0 {
				opts.Timeout = timeout
			}
			store := c.newCache(cmd, cfg, noCache)
			defer store.Close()
			opts.Cache = store

			rctx := cfg.ResolutionContext()
			if platform != "" {
				rctx.Platform = platformFlag(platform)
			}
			if strategy != "" {
				rctx.Strategy = resolve.Strategy(strategy)
			}
			if cmd.Flags().Changed("max-depth") {
				rctx.MaxDepth = maxDepth
			}
			if cmd.Flags().Changed("include-native") {
				rctx.IncludeNative = includeNative
			}

			track := newProgress(logger)
			spinner := newSpinnerWithContext(cmd.Context(),
				fmt.Sprintf("Analyzing %d archives...", len(args)))
			spinner.Start()

			report, err := analysis.New(opts).Run(cmd.Context(), args, rctx)
			if err != nil {
				spinner.StopWithError(err.Error())
				return err
			}
			spinner.Stop()
			track.done(fmt.Sprintf("Resolved %d archives", len(report.Archives)))

			if output != "" {
				data, err := report.JSON()
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				printFile(output)
			}
			if asJSON {
				data, err := report.JSON()
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			renderReport(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "target platform for native libraries (linux|windows|macos)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "conflict strategy (LATEST_VERSION|FIRST_DECLARED|SCOPE_PRIORITY)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum transitive depth (0 = unbounded)")
	cmd.Flags().BoolVar(&includeNative, "include-native", true, "bundle native-only archives for the target platform")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel archive analyzers")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-archive parse timeout")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the analysis cache")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the JSON report to a file")

	return cmd
}
