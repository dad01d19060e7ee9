package classfile

import (
	"encoding/binary"

	"github.com/dtg01100/jar2appimage/pkg/errors"
)

// Reader is a bounds-checked cursor over a byte buffer. All multi-byte
// reads are big-endian, matching the class file format. Any read that
// would run past the end of the buffer fails with a TRUNCATED_CLASS_FILE
// error and leaves the cursor unchanged.
type Reader struct {
	buf []byte
	off int
}

// NewReader creates a reader positioned at the start of buf.
// The buffer is not copied; callers must not mutate it while parsing.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the current cursor position in bytes.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// ReadU8 reads one unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

// ReadU16 reads a big-endian unsigned 16-bit integer.
func (r *Reader) ReadU16() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

// ReadU32 reads a big-endian unsigned 32-bit integer.
func (r *Reader) ReadU32() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// ReadBytes reads exactly n bytes and returns them as a sub-slice of the
// underlying buffer. The returned slice aliases the reader's buffer.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.New(errors.ErrCodeTruncatedClassFile, "negative read length %d", n)
	}
	if err := r.require(n); err != nil {
		return nil, err
	}
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v, nil
}

// Skip advances the cursor by n bytes without returning data.
func (r *Reader) Skip(n int) error {
	if n < 0 {
		return errors.New(errors.ErrCodeTruncatedClassFile, "negative skip length %d", n)
	}
	if err := r.require(n); err != nil {
		return err
	}
	r.off += n
	return nil
}

func (r *Reader) require(n int) error {
	if r.off+n > len(r.buf) {
		return errors.New(errors.ErrCodeTruncatedClassFile,
			"need %d bytes at offset %d, %d available", n, r.off, len(r.buf)-r.off)
	}
	return nil
}
