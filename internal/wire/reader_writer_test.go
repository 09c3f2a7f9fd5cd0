package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := Get()
	defer w.Put()

	w.Byte(0x7F).Int8(-1).Uint16(0x1234).Int16(-2).Uint32(0xDEADBEEF).Int32(-3).
		Raw([]byte{1, 2, 3}).Zero(2).FixedASCII("hi", 5).NulString("bye")

	r := NewReader(w.Bytes())

	b, err := r.Byte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x7F), b)

	i8, err := r.Int8()
	require.NoError(t, err)
	assert.Equal(t, int8(-1), i8)

	u16, err := r.Uint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	i16, err := r.Int16()
	require.NoError(t, err)
	assert.Equal(t, int16(-2), i16)

	u32, err := r.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u32)

	i32, err := r.Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(-3), i32)

	raw, err := r.Bytes(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, raw)

	require.NoError(t, r.Skip(2))

	fixed, err := r.FixedASCII(5)
	require.NoError(t, err)
	assert.Equal(t, "hi", fixed)

	nul, err := r.NulString()
	require.NoError(t, err)
	assert.Equal(t, "bye", nul)

	assert.Equal(t, 0, r.Remaining())
}

func TestReaderShortReadErrors(t *testing.T) {
	r := NewReader([]byte{0x01})
	_, err := r.Uint32()
	assert.Error(t, err)
}

func TestReaderNulStringUnterminated(t *testing.T) {
	r := NewReader([]byte("no terminator"))
	_, err := r.NulString()
	assert.Error(t, err)
}

func TestWriterFixedASCIITruncatesAndPads(t *testing.T) {
	w := Get()
	defer w.Put()
	w.FixedASCII("toolongname", 4)
	assert.Equal(t, []byte("tool"), w.Bytes())
}
