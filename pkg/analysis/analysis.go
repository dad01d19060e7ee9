// Package analysis orchestrates the full pipeline: parallel archive
// analysis, a serialized graph merge, and resolution into an ordered
// classpath with bundling decisions.
//
// The orchestrator is the only component that knows all the others.
// Its lifetime is one Run invocation; it owns no cross-run state apart
// from an optional caller-supplied cache.
package analysis

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dtg01100/jar2appimage/pkg/archive"
	"github.com/dtg01100/jar2appimage/pkg/cache"
	"github.com/dtg01100/jar2appimage/pkg/depgraph"
	"github.com/dtg01100/jar2appimage/pkg/errors"
	"github.com/dtg01100/jar2appimage/pkg/resolve"
)

const (
	DefaultWorkers  = 8                // Parallel archive analyzers
	DefaultTimeout  = 30 * time.Second // Per-archive parse deadline
	DefaultCacheTTL = 24 * time.Hour   // Cached analysis lifetime
)

// Options configures an analysis run.
type Options struct {
	Workers         int           // Parallel archive analyzers (default: 8)
	Timeout         time.Duration // Per-archive parse timeout (default: 30s)
	IgnoredPrefixes []string      // Class-name prefixes excluded from inference
	Cache           cache.Cache   // Optional cache of prior analyses
	Keyer           cache.Keyer   // Key scheme for Cache (default scheme if nil)
	CacheTTL        time.Duration // Cached entry lifetime (default: 24h)
	Logger          *log.Logger   // Structured logger (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return opts
}

// Orchestrator drives archive analysis, graph assembly, and resolution.
type Orchestrator struct {
	opts     Options
	analyzer *archive.Analyzer
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	opts = opts.WithDefaults()
	return &Orchestrator{
		opts: opts,
		analyzer: archive.New(archive.Options{
			IgnoredPrefixes: opts.IgnoredPrefixes,
			Logger:          opts.Logger,
		}),
	}
}

// Run analyzes the root archives and everything reachable through their
// manifest Class-Path entries, merges the results into a dependency
// graph, and resolves it under the given context.
//
// An empty root set or a missing root path aborts the run; every other
// failure degrades to a report warning or error.
func (o *Orchestrator) Run(ctx context.Context, roots []string, rctx resolve.Context) (*Report, error) {
	started := time.Now()

	if len(roots) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyRootSet, "no root archives supplied")
	}
	absRoots := make([]string, len(roots))
	for i, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolving %s", root)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "root archive %s", root)
		}
		absRoots[i] = abs
	}

	c := &crawler{
		ctx:     ctx,
		opts:    o.opts,
		analyze: o.analyzeOne,
		results: make(map[string]*archive.Result),
		visited: make(map[string]bool),
		jobs:    make(chan job, o.opts.Workers*2),
		done:    make(chan jobResult, o.opts.Workers*2),
	}
	warnings, failedRoots := c.run(absRoots)

	report := &Report{
		RunID:     uuid.NewString(),
		Roots:     absRoots,
		StartedAt: started,
		Warnings:  warnings,
	}

	validRoots := 0
	for _, root := range absRoots {
		if r, ok := c.results[root]; ok && r.Valid {
			validRoots++
		}
	}
	if validRoots == 0 {
		return nil, errors.New(errors.ErrCodeNoValidRoots,
			"none of the %d root archives could be analyzed", len(absRoots))
	}
	for _, root := range failedRoots {
		report.Errors = append(report.Errors,
			"root archive could not be analyzed: "+root)
	}

	g := o.merge(c.results, absRoots, report)
	report.Conflicts = g.DetectConflicts()
	report.Resolution = resolve.Resolve(g, rctx)
	report.Errors = append(report.Errors, depthCutDeclaredDeps(g, report.Resolution)...)
	for _, node := range g.Nodes() {
		report.Archives = append(report.Archives, node.Result)
	}
	var invalid []*archive.Result
	for _, r := range c.results {
		if !r.Valid {
			invalid = append(invalid, r)
		}
	}
	slices.SortFunc(invalid, func(a, b *archive.Result) int {
		return strings.Compare(a.Path, b.Path)
	})
	report.Archives = append(report.Archives, invalid...)
	report.Recommendations = report.recommendations()
	report.Duration = time.Since(started)

	o.opts.Logger.Info("analysis complete",
		"run", report.RunID,
		"archives", len(report.Archives),
		"classpath", len(report.Resolution.Classpath),
		"warnings", len(report.Warnings),
		"duration", report.Duration)
	return report, nil
}

// analyzeOne analyzes a single archive, consulting the cache when one
// was supplied. Cache failures are silent: a broken cache must never
// fail an analysis that would succeed without it.
func (o *Orchestrator) analyzeOne(ctx context.Context, p string) (*archive.Result, error) {
	var key string
	if o.opts.Cache != nil {
		if fi, err := os.Stat(p); err == nil {
			key = o.opts.Keyer.ArchiveKey(p, fi.Size(), fi.ModTime())
			if raw, hit, err := o.opts.Cache.Get(ctx, key); err == nil && hit {
				var cached archive.Result
				if json.Unmarshal(raw, &cached) == nil {
					o.opts.Logger.Debug("cache hit", "path", p)
					return &cached, nil
				}
			}
		}
	}

	actx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()
	result, err := o.analyzer.Analyze(actx, p)
	if err != nil {
		// The result, if any, is marked invalid; never cache it.
		return result, err
	}

	if o.opts.Cache != nil && key != "" {
		if raw, err := json.Marshal(result); err == nil {
			_ = o.opts.Cache.Set(ctx, key, raw, o.opts.CacheTTL)
		}
	}
	return result, nil
}

// merge assembles the dependency graph from the crawl results: roots
// first in their supplied order, then discovered archives sorted by
// path, so the graph's insertion order is deterministic regardless of
// worker scheduling.
func (o *Orchestrator) merge(results map[string]*archive.Result, roots []string, report *Report) *depgraph.Graph {
	ordered := make([]string, 0, len(results))
	isRoot := make(map[string]bool, len(roots))
	for _, root := range roots {
		if _, ok := results[root]; ok {
			ordered = append(ordered, root)
			isRoot[root] = true
		}
	}
	var rest []string
	for p := range results {
		if !isRoot[p] {
			rest = append(rest, p)
		}
	}
	slices.Sort(rest)
	ordered = append(ordered, rest...)

	g := depgraph.New()
	keyByPath := make(map[string]string, len(ordered))
	for _, p := range ordered {
		r := results[p]
		if !r.Valid {
			continue
		}
		if err := g.AddNode(r, isRoot[p]); err != nil {
			report.Warnings = append(report.Warnings,
				"skipping "+p+": "+errors.UserMessage(err))
			continue
		}
		keyByPath[p] = r.Coordinate.Key()
	}

	// Declared edges from manifest Class-Path entries.
	for _, p := range ordered {
		from, ok := keyByPath[p]
		if !ok {
			continue
		}
		dir := filepath.Dir(p)
		for _, entry := range results[p].Manifest.ClassPath {
			target := entry
			if !filepath.IsAbs(target) {
				target = filepath.Join(dir, entry)
			}
			to, ok := keyByPath[target]
			if !ok {
				report.Warnings = append(report.Warnings,
					"unresolved Class-Path entry "+entry+" in "+p)
				continue
			}
			if from == to {
				continue
			}
			if err := g.AddEdge(from, to, depgraph.ProvenanceDeclared); err != nil {
				report.Warnings = append(report.Warnings, errors.UserMessage(err))
			}
		}
	}

	// Inferred edges from bytecode class references. Each class name is
	// attributed to the archive that first declared it.
	classOwner := make(map[string]string)
	for _, p := range ordered {
		key, ok := keyByPath[p]
		if !ok {
			continue
		}
		for _, cls := range results[p].Classes {
			if _, taken := classOwner[cls.ClassName]; !taken {
				classOwner[cls.ClassName] = key
			}
		}
	}
	for _, p := range ordered {
		from, ok := keyByPath[p]
		if !ok {
			continue
		}
		for _, cls := range results[p].Classes {
			for _, ref := range cls.ReferencedClasses {
				to, ok := classOwner[ref]
				if !ok || to == from {
					continue
				}
				_ = g.AddEdge(from, to, depgraph.ProvenanceInferred)
			}
		}
	}
	return g
}

// depthCutDeclaredDeps reports declared dependencies of bundled archives
// that the depth limit pushed out of reach. Losing a manifest-declared
// dependency makes the classpath incomplete, so these are errors rather
// than warnings.
func depthCutDeclaredDeps(g *depgraph.Graph, res *resolve.Result) []string {
	cut := make(map[string]bool)
	included := make(map[string]bool)
	for _, d := range res.Decisions {
		switch {
		case d.Include:
			included[d.Coordinate] = true
		case d.Reason == resolve.ReasonDepthLimit:
			cut[d.Coordinate] = true
		}
	}

	var errs []string
	for _, e := range g.Edges() {
		if e.Provenance == depgraph.ProvenanceDeclared && included[e.From] && cut[e.To] {
			errs = append(errs,
				"declared dependency "+e.To+" of "+e.From+" excluded by the depth limit")
		}
	}
	slices.Sort(errs)
	return errs
}

type job struct {
	path string
	root bool
}

type jobResult struct {
	job
	res *archive.Result
	err error
}

// crawler fans archive analysis out to a worker pool and follows
// Class-Path references to jars that exist on disk. Graph mutation
// happens later, in a single serialized merge step.
type crawler struct {
	ctx     context.Context
	opts    Options
	analyze func(context.Context, string) (*archive.Result, error)

	results map[string]*archive.Result

	jobs chan job
	done chan jobResult
	wg   sync.WaitGroup

	mu      sync.Mutex
	visited map[string]bool
	pending int64
}

func (c *crawler) run(roots []string) (warnings []string, failedRoots []string) {
	for range c.opts.Workers {
		c.wg.Add(1)
		go c.worker()
	}

	for _, root := range roots {
		c.enqueue(job{path: root, root: true})
	}
	warnings, failedRoots = c.collect()

	close(c.jobs)
	c.wg.Wait()
	slices.Sort(warnings)
	slices.Sort(failedRoots)
	return warnings, failedRoots
}

func (c *crawler) worker() {
	defer c.wg.Done()
	for j := range c.jobs {
		if c.ctx.Err() != nil {
			c.done <- jobResult{job: j, err: c.ctx.Err()}
			continue
		}
		res, err := c.analyze(c.ctx, j.path)
		c.done <- jobResult{job: j, res: res, err: err}
	}
}

func (c *crawler) enqueue(j job) {
	c.mu.Lock()
	if c.visited[j.path] {
		c.mu.Unlock()
		return
	}
	c.visited[j.path] = true
	c.mu.Unlock()

	atomic.AddInt64(&c.pending, 1)
	go func() { c.jobs <- j }()
}

func (c *crawler) collect() (warnings []string, failedRoots []string) {
	if atomic.LoadInt64(&c.pending) == 0 {
		return nil, nil
	}
	for r := range c.done {
		if r.err != nil {
			warnings = append(warnings,
				"archive "+r.path+" excluded: "+errors.UserMessage(r.err))
			if r.res != nil {
				c.results[r.path] = r.res
			}
			if r.root {
				failedRoots = append(failedRoots, r.path)
			}
		} else {
			c.results[r.path] = r.res
			c.followClassPath(r)
		}
		if atomic.AddInt64(&c.pending, -1) == 0 {
			return warnings, failedRoots
		}
	}
	return warnings, failedRoots
}

// followClassPath enqueues manifest Class-Path entries that resolve to
// readable files. Missing entries are left for the merge step to warn
// about only when they never show up at all.
func (c *crawler) followClassPath(r jobResult) {
	dir := filepath.Dir(r.path)
	for _, entry := range r.res.Manifest.ClassPath {
		target := entry
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, entry)
		}
		if fi, err := os.Stat(target); err == nil && !fi.IsDir() {
			c.enqueue(job{path: target})
		}
	}
}
