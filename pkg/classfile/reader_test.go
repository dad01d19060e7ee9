package classfile

import (
	"testing"

	"github.com/dtg01100/jar2appimage/pkg/errors"
)

func TestReaderReads(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})

	b, err := r.ReadU8()
	if err != nil || b != 0x01 {
		t.Fatalf("ReadU8 = %v, %v", b, err)
	}

	v16, err := r.ReadU16()
	if err != nil || v16 != 0x0203 {
		t.Fatalf("ReadU16 = %#04x, %v", v16, err)
	}

	v32, err := r.ReadU32()
	if err != nil || v32 != 0x04050607 {
		t.Fatalf("ReadU32 = %#08x, %v", v32, err)
	}

	if r.Remaining() != 1 {
		t.Errorf("Remaining = %d, want 1", r.Remaining())
	}
	if r.Offset() != 7 {
		t.Errorf("Offset = %d, want 7", r.Offset())
	}
}

func TestReaderBytes(t *testing.T) {
	r := NewReader([]byte("hello"))

	got, err := r.ReadBytes(4)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if string(got) != "hell" {
		t.Errorf("ReadBytes = %q", got)
	}
	if r.Remaining() != 1 {
		t.Errorf("Remaining = %d, want 1", r.Remaining())
	}
}

func TestReaderTruncated(t *testing.T) {
	r := NewReader([]byte{0x01})

	if _, err := r.ReadU32(); !errors.Is(err, errors.ErrCodeTruncatedClassFile) {
		t.Errorf("ReadU32 past end = %v, want TRUNCATED_CLASS_FILE", err)
	}
	// Failed read must not move the cursor.
	if r.Offset() != 0 {
		t.Errorf("Offset after failed read = %d, want 0", r.Offset())
	}
	if b, err := r.ReadU8(); err != nil || b != 0x01 {
		t.Errorf("ReadU8 after failed read = %v, %v", b, err)
	}
	if _, err := r.ReadU8(); !errors.Is(err, errors.ErrCodeTruncatedClassFile) {
		t.Errorf("ReadU8 at end = %v, want TRUNCATED_CLASS_FILE", err)
	}
}

func TestReaderSkip(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})

	if err := r.Skip(2); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if b, _ := r.ReadU8(); b != 3 {
		t.Errorf("after Skip(2), ReadU8 = %d, want 3", b)
	}
	if err := r.Skip(1); !errors.Is(err, errors.ErrCodeTruncatedClassFile) {
		t.Errorf("Skip past end = %v, want TRUNCATED_CLASS_FILE", err)
	}
	if err := r.Skip(-1); !errors.Is(err, errors.ErrCodeTruncatedClassFile) {
		t.Errorf("negative Skip = %v, want TRUNCATED_CLASS_FILE", err)
	}
}
