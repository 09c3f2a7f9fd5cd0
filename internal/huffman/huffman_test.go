package huffman

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFlushVectors(t *testing.T) {
	d := NewDecoder()
	out, err := d.Decompress(nil, []byte{0xD0})
	require.NoError(t, err)
	assert.Empty(t, out)

	d = NewDecoder()
	out, err = d.Decompress(nil, []byte{0xD0, 0x34})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, out)

	d = NewDecoder()
	out, err = d.Decompress(nil, []byte{0xD0, 0xD0, 0xD0})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x00},
		{0x01, 0x02, 0x03},
		[]byte("the quick brown fox jumps over the lazy dog"),
		make([]byte, 256),
	}
	for i := range payloads[4] {
		payloads[4][i] = byte(i)
	}

	for _, p := range payloads {
		encoded := Compress(p)
		d := NewDecoder()
		out, err := d.Decompress(nil, encoded)
		require.NoError(t, err)
		assert.Equal(t, p, out)
	}
}

func TestDecompressAcrossBoundaries(t *testing.T) {
	payload := []byte("split across reads")
	encoded := Compress(payload)

	d := NewDecoder()
	var out []byte
	for _, b := range encoded {
		var err error
		out, err = d.Decompress(out, []byte{b})
		require.NoError(t, err)
	}
	assert.Equal(t, payload, out)
}

func TestDecompressBoundedOverflow(t *testing.T) {
	payload := []byte("overflow me")
	encoded := Compress(payload)

	d := NewDecoder()
	_, err := d.DecompressBounded(nil, encoded, 2)
	require.Error(t, err)
}
