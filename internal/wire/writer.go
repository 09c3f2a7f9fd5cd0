package wire

import (
	"bytes"
	"sync"
)

// Writer accumulates big-endian fields into a growable buffer. Pooled via
// Get/Put, mirroring the teacher's packet.Writer pool (internal/gameserver/packet/writer.go)
// to keep packet construction allocation-free on the common path.
type Writer struct {
	buf bytes.Buffer
}

var writerPool = sync.Pool{
	New: func() any { return &Writer{} },
}

// Get returns a reset Writer from the pool.
func Get() *Writer {
	w := writerPool.Get().(*Writer)
	w.buf.Reset()
	return w
}

// Put returns w to the pool. w must not be used afterward.
func (w *Writer) Put() {
	writerPool.Put(w)
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.buf.Len() }

// Byte appends a single octet.
func (w *Writer) Byte(b byte) *Writer {
	w.buf.WriteByte(b)
	return w
}

// Int8 appends a signed octet.
func (w *Writer) Int8(v int8) *Writer {
	return w.Byte(byte(v))
}

// Uint16 appends a big-endian uint16.
func (w *Writer) Uint16(v uint16) *Writer {
	w.buf.WriteByte(byte(v >> 8))
	w.buf.WriteByte(byte(v))
	return w
}

// Int16 appends a big-endian int16.
func (w *Writer) Int16(v int16) *Writer {
	return w.Uint16(uint16(v))
}

// Uint32 appends a big-endian uint32.
func (w *Writer) Uint32(v uint32) *Writer {
	w.buf.WriteByte(byte(v >> 24))
	w.buf.WriteByte(byte(v >> 16))
	w.buf.WriteByte(byte(v >> 8))
	w.buf.WriteByte(byte(v))
	return w
}

// Int32 appends a big-endian int32.
func (w *Writer) Int32(v int32) *Writer {
	return w.Uint32(uint32(v))
}

// Raw appends b verbatim.
func (w *Writer) Raw(b []byte) *Writer {
	w.buf.Write(b)
	return w
}

// Zero appends n zero bytes.
func (w *Writer) Zero(n int) *Writer {
	for i := 0; i < n; i++ {
		w.buf.WriteByte(0)
	}
	return w
}

// FixedASCII appends s truncated/NUL-padded to exactly width bytes.
func (w *Writer) FixedASCII(s string, width int) *Writer {
	b := make([]byte, width)
	copy(b, s)
	w.buf.Write(b)
	return w
}

// NulString appends s followed by a single NUL terminator.
func (w *Writer) NulString(s string) *Writer {
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
	return w
}
