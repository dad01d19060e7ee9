// Package archive analyzes JAR files as ZIP containers.
//
// An analyzer enumerates the entries of one archive, routes class files
// to the class file parser and the manifest to the manifest parser,
// classifies native libraries by platform, and aggregates the results
// into a per-archive summary. Analysis of one archive is independent of
// every other: a corrupt or slow archive is marked invalid and excluded
// without affecting its siblings.
package archive

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dtg01100/jar2appimage/pkg/classfile"
	"github.com/dtg01100/jar2appimage/pkg/errors"
	"github.com/dtg01100/jar2appimage/pkg/manifest"
)

// Platform identifies an operating system target for native libraries.
type Platform string

// Supported platform tags.
const (
	PlatformLinux   Platform = "linux"
	PlatformWindows Platform = "windows"
	PlatformMacOS   Platform = "macos"
	PlatformAny     Platform = "any"
)

const manifestPath = "META-INF/MANIFEST.MF"
const moduleInfoClass = "module-info.class"

// NativeLibrary is one shared-library entry found in an archive, tagged
// with the platform inferred from its path.
type NativeLibrary struct {
	Path     string   `json:"path" bson:"path"`
	Platform Platform `json:"platform" bson:"platform"`
}

// Result is the aggregated summary of one analyzed archive.
type Result struct {
	Path       string     `json:"path" bson:"path"`
	Coordinate Coordinate `json:"coordinate" bson:"coordinate"`
	SizeBytes  int64      `json:"size_bytes" bson:"size_bytes"`
	Valid      bool       `json:"valid" bson:"valid"`

	Classes         []*classfile.Metadata `json:"classes,omitempty" bson:"classes,omitempty"`
	Manifest        manifest.Info         `json:"manifest" bson:"manifest"`
	NativeLibraries []NativeLibrary       `json:"native_libraries,omitempty" bson:"native_libraries,omitempty"`
	ResourceCount   int                   `json:"resource_count" bson:"resource_count"`
	NestedArchives  []string              `json:"nested_archives,omitempty" bson:"nested_archives,omitempty"`

	// MaxMajorVersion is the highest class file major version seen,
	// i.e. the archive's effective Java version requirement.
	MaxMajorVersion int `json:"max_major_version" bson:"max_major_version"`

	// Warnings collects local-recoverable problems (malformed or
	// truncated entries, manifest issues) encountered while parsing.
	Warnings []string `json:"warnings,omitempty" bson:"warnings,omitempty"`
}

// JavaVersion returns the Java release string required by the archive,
// or "" when it contains no class files.
func (r *Result) JavaVersion() string {
	return classfile.JavaVersion(r.MaxMajorVersion)
}

// NativeOnly reports whether the archive contains native libraries and
// no class files. Such archives are platform-specific payloads.
func (r *Result) NativeOnly() bool {
	return len(r.NativeLibraries) > 0 && len(r.Classes) == 0
}

// NativePlatforms returns the distinct platforms of the archive's
// native libraries, in first-seen order.
func (r *Result) NativePlatforms() []Platform {
	var platforms []Platform
	seen := make(map[Platform]bool)
	for _, lib := range r.NativeLibraries {
		if !seen[lib.Platform] {
			seen[lib.Platform] = true
			platforms = append(platforms, lib.Platform)
		}
	}
	return platforms
}

// Options configures an Analyzer.
type Options struct {
	// IgnoredPrefixes forwards to classfile.Options.
	IgnoredPrefixes []string

	// Logger receives per-entry debug output. Nil means no logging.
	Logger *log.Logger
}

// Analyzer parses archives into Results. The zero value is not usable;
// use New.
type Analyzer struct {
	opts Options
}

// New creates an analyzer with the given options.
func New(opts Options) *Analyzer {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Analyzer{opts: opts}
}

// Analyze parses the archive at p into a Result.
//
// Failure modes follow the engine taxonomy: an unreadable ZIP central
// directory or a CRC mismatch on a class entry fails with
// INVALID_ARCHIVE; context expiry fails with ANALYSIS_TIMEOUT. Both are
// archive-fatal but batch-continuing: the error is accompanied by a
// Result marked invalid, so callers can still report on the archive.
// Malformed or truncated individual entries only add warnings.
//
// The context deadline bounds the whole parse: one adversarial archive
// must never stall analysis of the others.
func (a *Analyzer) Analyze(ctx context.Context, p string) (*Result, error) {
	type outcome struct {
		result *Result
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		res, err := a.analyze(ctx, p)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return invalidResult(p), errors.Wrap(errors.ErrCodeAnalysisTimeout, ctx.Err(), "analyze %s", p)
	}
}

// invalidResult records an archive that failed analysis. The coordinate
// falls back to the filename convention so the failure stays attributable.
func invalidResult(p string) *Result {
	r := &Result{Path: p, Coordinate: CoordinateFromFilename(p)}
	if fi, err := os.Stat(p); err == nil {
		r.SizeBytes = fi.Size()
	}
	return r
}

func (a *Analyzer) analyze(ctx context.Context, p string) (*Result, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return invalidResult(p), errors.Wrap(errors.ErrCodeInvalidArchive, err, "open %s", p)
	}
	defer zr.Close()

	result := &Result{Path: p, Valid: true}
	if fi, err := os.Stat(p); err == nil {
		result.SizeBytes = fi.Size()
	}

	for _, f := range zr.File {
		if ctx.Err() != nil {
			return invalidResult(p), errors.Wrap(errors.ErrCodeAnalysisTimeout, ctx.Err(), "analyze %s", p)
		}
		if err := a.analyzeEntry(result, f); err != nil {
			// Entry-level corruption on a declared class file means the
			// container itself cannot be trusted.
			return invalidResult(p), err
		}
	}

	result.Coordinate = a.coordinate(result)
	a.opts.Logger.Debug("analyzed archive",
		"path", p,
		"coordinate", result.Coordinate.Key(),
		"classes", len(result.Classes),
		"natives", len(result.NativeLibraries),
		"warnings", len(result.Warnings))
	return result, nil
}

// analyzeEntry classifies one ZIP entry and routes it to the right
// parser. Returns an error only for container-level corruption.
func (a *Analyzer) analyzeEntry(result *Result, f *zip.File) error {
	name := f.Name
	switch {
	case strings.HasSuffix(name, "/"):
		return nil // directory entry

	case path.Base(name) == moduleInfoClass:
		result.Manifest.HasModuleDescriptor = true
		return nil

	case strings.HasSuffix(name, ".class"):
		data, err := readEntry(f)
		if err != nil {
			// A CRC mismatch on a declared class file invalidates the
			// whole archive, not just the entry.
			return errors.Wrap(errors.ErrCodeInvalidArchive, err, "read %s!%s", result.Path, name)
		}
		md, err := classfile.Parse(data, classfile.Options{IgnoredPrefixes: a.opts.IgnoredPrefixes})
		if err != nil {
			result.Warnings = append(result.Warnings, errors.UserMessage(err)+" in "+name)
			return nil
		}
		result.Classes = append(result.Classes, md)
		if md.MajorVersion > result.MaxMajorVersion {
			result.MaxMajorVersion = md.MajorVersion
		}
		return nil

	case name == manifestPath:
		data, err := readEntry(f)
		if err != nil {
			result.Warnings = append(result.Warnings, "unreadable manifest: "+err.Error())
			return nil
		}
		info, warnings := manifest.Parse(data)
		// Keep the module flag if module-info.class was seen first.
		info.HasModuleDescriptor = info.HasModuleDescriptor || result.Manifest.HasModuleDescriptor
		result.Manifest = info
		result.Warnings = append(result.Warnings, warnings...)
		return nil

	case isNativeLibrary(name):
		result.NativeLibraries = append(result.NativeLibraries, NativeLibrary{
			Path:     name,
			Platform: inferPlatform(name),
		})
		return nil

	case strings.HasSuffix(name, ".jar") || strings.HasSuffix(name, ".war"):
		result.NestedArchives = append(result.NestedArchives, name)
		return nil

	default:
		result.ResourceCount++
		return nil
	}
}

// coordinate picks the archive identity: manifest implementation
// attributes when present, filename convention otherwise.
func (a *Analyzer) coordinate(result *Result) Coordinate {
	if c := coordinateFromAttributes(result.Manifest.Attributes); !c.IsZero() {
		return c
	}
	return CoordinateFromFilename(result.Path)
}

// readEntry decompresses one entry fully. archive/zip verifies the CRC
// as the stream drains, so a full read surfaces checksum mismatches.
func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Shared-library extensions by platform convention.
var nativeExtensions = map[string]Platform{
	".so":     PlatformLinux,
	".dll":    PlatformWindows,
	".dylib":  PlatformMacOS,
	".jnilib": PlatformMacOS,
}

// Path segments that pin a platform regardless of extension.
var platformSegments = map[string]Platform{
	"linux":   PlatformLinux,
	"windows": PlatformWindows,
	"win32":   PlatformWindows,
	"win64":   PlatformWindows,
	"darwin":  PlatformMacOS,
	"macos":   PlatformMacOS,
	"osx":     PlatformMacOS,
}

func isNativeLibrary(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	if _, ok := nativeExtensions[ext]; ok {
		return true
	}
	// Versioned shared objects: libfoo.so.1.2
	return strings.Contains(strings.ToLower(path.Base(name)), ".so.")
}

// inferPlatform derives the target platform from path segments first
// (lib/windows/foo.dll), falling back to the file extension.
func inferPlatform(name string) Platform {
	for _, seg := range strings.Split(strings.ToLower(path.Dir(name)), "/") {
		if p, ok := platformSegments[seg]; ok {
			return p
		}
	}
	ext := strings.ToLower(path.Ext(name))
	if p, ok := nativeExtensions[ext]; ok {
		return p
	}
	if strings.Contains(strings.ToLower(path.Base(name)), ".so.") {
		return PlatformLinux
	}
	return PlatformAny
}
