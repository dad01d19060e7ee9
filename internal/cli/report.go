package cli

import (
	"fmt"
	"strings"

	"github.com/dtg01100/jar2appimage/pkg/analysis"
	"github.com/dtg01100/jar2appimage/pkg/archive"
)

// platformFlag converts a --platform flag value to a platform tag.
func platformFlag(s string) archive.Platform {
	switch strings.ToLower(s) {
	case "windows", "win":
		return archive.PlatformWindows
	case "macos", "darwin", "osx":
		return archive.PlatformMacOS
	case "any":
		return archive.PlatformAny
	default:
		return archive.PlatformLinux
	}
}

// renderReport prints the human-readable rendering of an analysis report.
// The machine-readable form is the report's JSON; everything here is
// presentation only.
func renderReport(r *analysis.Report) {
	printNewline()
	fmt.Println(StyleTitle.Render("Dependency Analysis"))
	printKeyValue("run", r.RunID)
	if v := r.JavaVersion(); v != "" {
		printKeyValue("java", v)
	}
	printKeyValue("archives", fmt.Sprintf("%d", len(r.Archives)))
	printKeyValue("duration", r.Duration.String())

	printNewline()
	printInfo("Classpath (%d entries, dependencies first)", len(r.Resolution.Classpath))
	for _, p := range r.Resolution.Classpath {
		printFile(p)
	}

	printNewline()
	printInfo("Bundling decisions")
	for _, d := range r.Resolution.Decisions {
		printDecision(d.Include, d.Coordinate, d.Reason, d.SizeBytes)
	}

	if len(r.Resolution.Conflicts) > 0 {
		printNewline()
		printInfo("Version conflicts")
		for _, c := range r.Resolution.Conflicts {
			printDetail("%s: %s wins over %s (%s)",
				c.Artifact, c.Winner, strings.Join(c.Losers, ", "), c.Reason)
		}
	}

	if len(r.Resolution.Cycles) > 0 {
		printNewline()
		printWarning("Dependency cycles detected")
		for _, cycle := range r.Resolution.Cycles {
			printDetail("%s", strings.Join(cycle, " "+iconArrow+" "))
		}
	}

	for _, w := range r.Warnings {
		printWarning("%s", w)
	}
	for _, w := range r.Resolution.Warnings {
		printWarning("%s", w)
	}
	for _, e := range r.Errors {
		printError("%s", e)
	}

	if len(r.Recommendations) > 0 {
		printNewline()
		printInfo("Recommendations")
		for _, rec := range r.Recommendations {
			printDetail("%s", rec)
		}
	}

	printNewline()
	printNextStep("Export the graph", appName+" graph --format svg <jar>")
}
