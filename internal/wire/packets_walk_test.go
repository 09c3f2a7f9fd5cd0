package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkEncodeDecodeRoundTrip(t *testing.T) {
	p := Walk{Direction: 3, Seq: 7, Key: 0xAABBCCDD}
	w := Get()
	defer w.Put()
	p.Encode(w)

	assert.Equal(t, byte(OpWalk), w.Bytes()[0])
	got, err := DecodeWalk(NewReader(w.Bytes()[1:]))
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestWalkAckEncodeDecodeRoundTrip(t *testing.T) {
	p := WalkAck{Seq: 9, Notoriety: 2}
	w := Get()
	defer w.Put()
	p.Encode(w)

	got, err := DecodeWalkAck(NewReader(w.Bytes()[1:]))
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestWalkRejectEncodeDecodeRoundTrip(t *testing.T) {
	p := WalkReject{Seq: 1, X: 100, Y: 200, Direction: 4, Z: -3}
	w := Get()
	defer w.Put()
	p.Encode(w)

	got, err := DecodeWalkReject(NewReader(w.Bytes()[1:]))
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDecodeWalkShortRead(t *testing.T) {
	_, err := DecodeWalk(NewReader([]byte{0x01}))
	assert.Error(t, err)
}
