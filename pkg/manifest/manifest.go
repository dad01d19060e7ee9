// Package manifest parses JAR manifest files (META-INF/MANIFEST.MF).
//
// The manifest format wraps attribute lines at 72 bytes, continuing on
// the next line with a single leading space. This package un-folds those
// continuations before interpreting attributes. Parsing never fails: a
// missing or malformed manifest yields an empty Info plus warnings, so
// that one damaged manifest cannot abort archive analysis.
package manifest

import (
	"fmt"
	"strings"
)

// Attribute names this package interprets. All other attributes are
// preserved as opaque key/value pairs in Info.Attributes.
const (
	attrMainClass         = "Main-Class"
	attrClassPath         = "Class-Path"
	attrRequireCapability = "Require-Capability"
	attrAutomaticModule   = "Automatic-Module-Name"
)

// Info is the structured content of one manifest. The zero value
// represents an absent manifest.
type Info struct {
	MainClass string `json:"main_class,omitempty" bson:"main_class,omitempty"`

	// ClassPath holds the declared classpath entries in declaration
	// order: whitespace-separated relative paths from the Class-Path
	// attribute. These become DECLARED dependency edges.
	ClassPath []string `json:"class_path,omitempty" bson:"class_path,omitempty"`

	// RequiredCapabilities holds Require-Capability values.
	RequiredCapabilities []string `json:"required_capabilities,omitempty" bson:"required_capabilities,omitempty"`

	// HasModuleDescriptor is true when the manifest declares a module
	// marker (Automatic-Module-Name). The analyzer also sets it when
	// the archive contains module-info.class.
	HasModuleDescriptor bool `json:"has_module_descriptor,omitempty" bson:"has_module_descriptor,omitempty"`

	// Attributes preserves every attribute verbatim, including the
	// interpreted ones.
	Attributes map[string]string `json:"attributes,omitempty" bson:"attributes,omitempty"`
}

// Parse reads raw manifest text into an Info. It never returns an
// error: malformed lines are skipped and reported in the returned
// warnings slice, and empty input yields an empty Info.
func Parse(raw []byte) (Info, []string) {
	var info Info
	var warnings []string

	if len(raw) == 0 {
		return info, nil
	}

	info.Attributes = make(map[string]string)

	for i, line := range unfold(string(raw)) {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			// Tolerate "Key:value" without the space before giving up.
			if key, value, ok = strings.Cut(line, ":"); !ok {
				warnings = append(warnings, fmt.Sprintf("manifest line %d is not an attribute: %q", i+1, truncate(line, 60)))
				continue
			}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			warnings = append(warnings, fmt.Sprintf("manifest line %d has an empty attribute name", i+1))
			continue
		}
		info.Attributes[key] = value
	}

	info.MainClass = info.Attributes[attrMainClass]
	if cp := info.Attributes[attrClassPath]; cp != "" {
		info.ClassPath = strings.Fields(cp)
	}
	if rc := info.Attributes[attrRequireCapability]; rc != "" {
		info.RequiredCapabilities = splitCapabilities(rc)
	}
	if info.Attributes[attrAutomaticModule] != "" {
		info.HasModuleDescriptor = true
	}

	if len(info.Attributes) == 0 {
		info.Attributes = nil
	}
	return info, warnings
}

// unfold joins continuation lines (starting with a single space) onto
// their preceding line and normalizes line endings.
func unfold(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(line, " ") && len(lines) > 0 {
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// splitCapabilities splits a Require-Capability value on commas, the
// separator used by OSGi-style headers.
func splitCapabilities(v string) []string {
	var caps []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			caps = append(caps, part)
		}
	}
	return caps
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
