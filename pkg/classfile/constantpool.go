package classfile

import (
	"unicode/utf8"

	"github.com/dtg01100/jar2appimage/pkg/errors"
)

// ConstantKind is the tag of a constant pool entry, as defined by the
// class file format.
type ConstantKind uint8

// Constant pool entry tags.
const (
	KindUtf8               ConstantKind = 1
	KindInteger            ConstantKind = 3
	KindFloat              ConstantKind = 4
	KindLong               ConstantKind = 5
	KindDouble             ConstantKind = 6
	KindClass              ConstantKind = 7
	KindString             ConstantKind = 8
	KindFieldref           ConstantKind = 9
	KindMethodref          ConstantKind = 10
	KindInterfaceMethodref ConstantKind = 11
	KindNameAndType        ConstantKind = 12
	KindMethodHandle       ConstantKind = 15
	KindMethodType         ConstantKind = 16
	KindDynamic            ConstantKind = 17
	KindInvokeDynamic      ConstantKind = 18
	KindModule             ConstantKind = 19
	KindPackage            ConstantKind = 20

	// KindPlaceholder is not a real class file tag. It fills index 0
	// (the pool is 1-indexed) and the unusable slot after each Long or
	// Double entry, which occupy two slot positions in the table.
	KindPlaceholder ConstantKind = 255
)

const maxUtf8Length = 64 * 1024

// entry is one parsed constant pool slot. Index operands are stored as
// plain integers and resolved through explicit table lookups, never as
// live references into the pool.
type entry struct {
	kind ConstantKind
	text string // Utf8 payload
	ref1 uint16 // first index operand (name, class, string, ...)
	ref2 uint16 // second index operand (name-and-type, descriptor, ...)
}

// ConstantPool is the indexed table of parsed constant entries for one
// class file. Entries are addressed by their 1-based class file index.
type ConstantPool struct {
	entries []entry
}

// parseConstantPool reads the 16-bit entry count and the tagged entries
// that follow. Long and Double entries consume two slot positions; the
// extra slot is filled with a placeholder so that all subsequent indices
// stay aligned.
func parseConstantPool(r *Reader) (*ConstantPool, error) {
	count, err := r.ReadU16()
	if err != nil {
		return nil, err
	}

	pool := &ConstantPool{entries: make([]entry, 0, count)}
	// Index 0 is unused per the 1-based addressing scheme.
	pool.entries = append(pool.entries, entry{kind: KindPlaceholder})

	// The count is the number of slots plus one.
	for len(pool.entries) < int(count) {
		tag, err := r.ReadU8()
		if err != nil {
			return nil, err
		}

		e := entry{kind: ConstantKind(tag)}
		switch ConstantKind(tag) {
		case KindUtf8:
			length, err := r.ReadU16()
			if err != nil {
				return nil, err
			}
			if int(length) > maxUtf8Length {
				return nil, errors.New(errors.ErrCodeMalformedClassFile,
					"utf8 constant too large (%d bytes)", length)
			}
			raw, err := r.ReadBytes(int(length))
			if err != nil {
				return nil, err
			}
			if !utf8.Valid(raw) {
				return nil, errors.New(errors.ErrCodeMalformedClassFile,
					"invalid utf8 constant at slot %d", len(pool.entries))
			}
			e.text = string(raw)

		case KindInteger, KindFloat:
			if err := r.Skip(4); err != nil {
				return nil, err
			}

		case KindLong, KindDouble:
			if err := r.Skip(8); err != nil {
				return nil, err
			}

		case KindClass, KindString, KindMethodType, KindModule, KindPackage:
			if e.ref1, err = r.ReadU16(); err != nil {
				return nil, err
			}

		case KindFieldref, KindMethodref, KindInterfaceMethodref,
			KindNameAndType, KindDynamic, KindInvokeDynamic:
			if e.ref1, err = r.ReadU16(); err != nil {
				return nil, err
			}
			if e.ref2, err = r.ReadU16(); err != nil {
				return nil, err
			}

		case KindMethodHandle:
			if err := r.Skip(1); err != nil {
				return nil, err
			}
			if e.ref1, err = r.ReadU16(); err != nil {
				return nil, err
			}

		default:
			return nil, errors.New(errors.ErrCodeMalformedClassFile,
				"unknown constant tag %d at slot %d", tag, len(pool.entries))
		}

		pool.entries = append(pool.entries, e)
		if e.kind == KindLong || e.kind == KindDouble {
			pool.entries = append(pool.entries, entry{kind: KindPlaceholder})
		}
	}

	return pool, nil
}

// check validates a 1-based pool index.
func (p *ConstantPool) check(idx int) error {
	if idx <= 0 || idx >= len(p.entries) {
		return errors.New(errors.ErrCodeMalformedClassFile, "constant pool index %d out of range", idx)
	}
	return nil
}

// UTF8 returns the string payload of the Utf8 entry at idx.
func (p *ConstantPool) UTF8(idx int) (string, error) {
	if err := p.check(idx); err != nil {
		return "", err
	}
	e := p.entries[idx]
	if e.kind != KindUtf8 {
		return "", errors.New(errors.ErrCodeMalformedClassFile,
			"constant pool index %d is tag %d, not utf8", idx, e.kind)
	}
	return e.text, nil
}

// ClassName resolves the Class entry at idx to its fully qualified name
// in internal form (slash-separated).
func (p *ConstantPool) ClassName(idx int) (string, error) {
	if err := p.check(idx); err != nil {
		return "", err
	}
	e := p.entries[idx]
	if e.kind != KindClass {
		return "", errors.New(errors.ErrCodeMalformedClassFile,
			"constant pool index %d is tag %d, not a class", idx, e.kind)
	}
	return p.UTF8(int(e.ref1))
}

// ClassNames returns the names of every Class entry in the pool, in slot
// order. Unresolvable entries are skipped rather than failing the scan.
func (p *ConstantPool) ClassNames() []string {
	var names []string
	for _, e := range p.entries {
		if e.kind != KindClass {
			continue
		}
		if name, err := p.UTF8(int(e.ref1)); err == nil {
			names = append(names, name)
		}
	}
	return names
}

// Len returns the number of slot positions, including placeholders.
func (p *ConstantPool) Len() int { return len(p.entries) }
