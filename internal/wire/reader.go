package wire

import (
	"encoding/binary"
	"fmt"
)

// Reader sequentially decodes big-endian fields out of a packet body.
// All multibyte UO fields are big-endian on the wire (spec §3); this
// mirrors the teacher's packet.Reader shape (manual field accessors,
// explicit bounds checks per read) with the byte order flipped.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for sequential reads starting at offset 0.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos returns the current read offset.
func (r *Reader) Pos() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("wire: short read at %d, need %d, have %d", r.pos, n, len(r.data)-r.pos)
	}
	return nil
}

// Byte reads a single octet.
func (r *Reader) Byte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// Int8 reads a signed octet.
func (r *Reader) Int8() (int8, error) {
	b, err := r.Byte()
	return int8(b), err
}

// Uint16 reads a big-endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// Int16 reads a big-endian int16.
func (r *Reader) Int16() (int16, error) {
	v, err := r.Uint16()
	return int16(v), err
}

// Uint32 reads a big-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// Int32 reads a big-endian int32.
func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Skip advances the cursor n bytes without returning them.
func (r *Reader) Skip(n int) error {
	_, err := r.Bytes(n)
	return err
}

// FixedASCII reads a fixed-width NUL-padded ASCII field and returns the
// string up to (excluding) the first NUL byte.
func (r *Reader) FixedASCII(width int) (string, error) {
	b, err := r.Bytes(width)
	if err != nil {
		return "", err
	}
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), nil
		}
	}
	return string(b), nil
}

// NulString reads a variable-length NUL-terminated ASCII string.
func (r *Reader) NulString() (string, error) {
	start := r.pos
	for r.pos < len(r.data) {
		if r.data[r.pos] == 0 {
			s := string(r.data[start:r.pos])
			r.pos++
			return s, nil
		}
		r.pos++
	}
	return "", fmt.Errorf("wire: unterminated string starting at %d", start)
}
