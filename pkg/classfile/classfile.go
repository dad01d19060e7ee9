// Package classfile parses compiled Java class files at the binary level.
//
// Only the metadata needed for dependency analysis is extracted: the
// declared class name, superclass, interfaces, class file version, and
// the set of other classes referenced through the constant pool. Method
// bodies, fields, and attributes are never decoded.
//
// The constant pool is parsed into an arena of typed entries addressed by
// their 1-based class file index, with cross-references resolved as
// explicit table lookups.
package classfile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dtg01100/jar2appimage/pkg/errors"
)

// Magic is the fixed 4-byte value that opens every valid class file.
const Magic = 0xCAFEBABE

// ObjectClass is the root of the Java class hierarchy. It is the only
// class with no superclass.
const ObjectClass = "java/lang/Object"

// DefaultIgnoredPrefixes lists standard-library namespaces that are
// excluded from inferred dependency edges by default.
var DefaultIgnoredPrefixes = []string{
	"java/",
	"javax/",
	"jdk/",
	"sun/",
	"com/sun/",
	"org/ietf/",
	"org/omg/",
	"org/w3c/",
	"org/xml/",
}

// Metadata is the parsed summary of one class file. It is immutable once
// returned from Parse.
type Metadata struct {
	ClassName    string   `json:"class_name" bson:"class_name"`
	SuperClass   string   `json:"super_class,omitempty" bson:"super_class,omitempty"` // empty only for java/lang/Object
	Interfaces   []string `json:"interfaces,omitempty" bson:"interfaces,omitempty"`
	MinorVersion int      `json:"minor_version" bson:"minor_version"`
	MajorVersion int      `json:"major_version" bson:"major_version"`

	// ReferencedClasses holds the other class names found in the
	// constant pool, sorted and deduplicated, with the class's own name
	// and ignored namespaces removed. These become INFERRED dependency
	// edges during graph assembly.
	ReferencedClasses []string `json:"referenced_classes,omitempty" bson:"referenced_classes,omitempty"`
}

// JavaVersion returns the Java release string for the metadata's major
// version, e.g. "8" for major 52.
func (m *Metadata) JavaVersion() string { return JavaVersion(m.MajorVersion) }

// Options configures class file parsing.
type Options struct {
	// IgnoredPrefixes are namespace prefixes (internal form, e.g.
	// "java/") excluded from referenced classes. Nil means
	// DefaultIgnoredPrefixes; an empty non-nil slice ignores nothing.
	IgnoredPrefixes []string
}

// Parse decodes one class file and returns its metadata.
//
// A wrong magic value fails with MALFORMED_CLASS_FILE and any read past
// the end of data fails with TRUNCATED_CLASS_FILE. Both are
// local-recoverable: callers skip the entry and record a warning rather
// than aborting the archive.
func Parse(data []byte, opts Options) (*Metadata, error) {
	r := NewReader(data)

	magic, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, errors.New(errors.ErrCodeMalformedClassFile, "bad magic 0x%08X", magic)
	}

	minor, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	major, err := r.ReadU16()
	if err != nil {
		return nil, err
	}

	pool, err := parseConstantPool(r)
	if err != nil {
		return nil, err
	}

	// access_flags is not interpreted.
	if err := r.Skip(2); err != nil {
		return nil, err
	}

	thisIdx, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	className, err := pool.ClassName(int(thisIdx))
	if err != nil {
		return nil, err
	}

	superIdx, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	var superClass string
	if superIdx != 0 {
		if superClass, err = pool.ClassName(int(superIdx)); err != nil {
			return nil, err
		}
	} else if className != ObjectClass {
		return nil, errors.New(errors.ErrCodeMalformedClassFile,
			"class %s has no superclass but is not %s", className, ObjectClass)
	}

	ifaceCount, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	var interfaces []string
	for i := 0; i < int(ifaceCount); i++ {
		idx, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		name, err := pool.ClassName(int(idx))
		if err != nil {
			return nil, err
		}
		interfaces = append(interfaces, name)
	}

	ignored := opts.IgnoredPrefixes
	if ignored == nil {
		ignored = DefaultIgnoredPrefixes
	}

	return &Metadata{
		ClassName:         className,
		SuperClass:        superClass,
		Interfaces:        interfaces,
		MinorVersion:      int(minor),
		MajorVersion:      int(major),
		ReferencedClasses: referencedClasses(pool, className, ignored),
	}, nil
}

// referencedClasses collects the class names from Class-tagged pool
// entries, dropping the class's own name, array descriptors, and ignored
// namespaces. The result is sorted and deduplicated so that identical
// inputs always produce identical metadata.
func referencedClasses(pool *ConstantPool, self string, ignored []string) []string {
	seen := make(map[string]bool)
	for _, name := range pool.ClassNames() {
		if name == self || name == "" {
			continue
		}
		// Array classes appear as descriptors like "[Ljava/lang/String;".
		if strings.HasPrefix(name, "[") {
			continue
		}
		if hasIgnoredPrefix(name, ignored) {
			continue
		}
		seen[name] = true
	}

	if len(seen) == 0 {
		return nil
	}
	refs := make([]string, 0, len(seen))
	for name := range seen {
		refs = append(refs, name)
	}
	sort.Strings(refs)
	return refs
}

func hasIgnoredPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// javaVersionNames maps pre-Java-5 major versions, which used the "1.x"
// naming scheme. Later releases follow major-44.
var javaVersionNames = map[int]string{
	45: "1.1",
	46: "1.2",
	47: "1.3",
	48: "1.4",
}

// JavaVersion maps a class file major version to its Java release
// string: 52 is Java "8", 61 is Java "17", 65 is Java "21". Unknown
// majors return the empty string.
func JavaVersion(major int) string {
	if name, ok := javaVersionNames[major]; ok {
		return name
	}
	if major >= 49 && major <= 80 {
		return fmt.Sprintf("%d", major-44)
	}
	return ""
}
