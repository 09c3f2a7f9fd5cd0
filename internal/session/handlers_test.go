package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/walk"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
)

func encodeWalk(p wire.Walk) []byte {
	w := wire.Get()
	defer w.Put()
	p.Encode(w)
	return append([]byte(nil), w.Bytes()...)
}

// TestHandleClientWalkQueueFullNotifiesEvictedOwner regression-tests the
// maintainer-flagged bug: a queue-full eviction must cancel the oldest
// queued walk back to its own owning endpoint (spec §4.F step 4), not
// just shrink the internal queue silently.
func TestHandleClientWalkQueueFullNotifiesEvictedOwner(t *testing.T) {
	s := New(Config{})
	ls, peer := newTestLinkedServer(t, protover.V5, StateInGame)
	s.endpoints = append(s.endpoints, ls)

	for i := byte(1); i <= 4; i++ {
		v := handleClientWalk(s, nil, ls, encodeWalk(wire.Walk{Seq: i, Direction: 2}))
		require.Equal(t, vDrop, v)
	}

	v := handleClientWalk(s, nil, ls, encodeWalk(wire.Walk{Seq: 5, Direction: 2}))
	require.Equal(t, vDrop, v)

	frame := readFrame(t, peer, protover.V5)
	require.Equal(t, byte(wire.OpWalkReject), frame[0])
	reject, err := wire.DecodeWalkReject(wire.NewReader(frame[1:]))
	require.NoError(t, err)
	assert.EqualValues(t, 1, reject.Seq)
}

// TestHandleUpstreamWalkAckBroadcastsToOtherEndpoints regression-tests the
// maintainer-flagged bug: once a walk is acked, the stepper's own reply
// goes only to it, while every *other* attached endpoint must see the
// stepped MobileUpdate (spec §4.F step 5, §8).
func TestHandleUpstreamWalkAckBroadcastsToOtherEndpoints(t *testing.T) {
	s := New(Config{})
	owner, ownerPeer := newTestLinkedServer(t, protover.V5, StateInGame)
	other, otherPeer := newTestLinkedServer(t, protover.V5, StateInGame)
	s.endpoints = append(s.endpoints, owner, other)

	s.world.ApplyStart(wire.Start{Serial: 1, Body: 0x190, X: 100, Y: 100, Direction: 4})

	res := s.walk.HandleClientWalk(walk.EndpointID(owner.id), wire.Walk{Seq: 1, Direction: 4}, true, false)
	require.True(t, res.Forward)

	w := wire.Get()
	wire.WalkAck{Seq: res.Rewritten.Seq, Notoriety: 1}.Encode(w)
	data := append([]byte(nil), w.Bytes()...)
	w.Put()

	v := handleUpstreamWalkAck(s, nil, data)
	require.Equal(t, vHandled, v)

	ownerFrame := readFrame(t, ownerPeer, protover.V5)
	require.Equal(t, byte(wire.OpWalkAck), ownerFrame[0])
	ack, err := wire.DecodeWalkAck(wire.NewReader(ownerFrame[1:]))
	require.NoError(t, err)
	assert.EqualValues(t, 1, ack.Seq)
	noMoreFrames(t, ownerPeer)

	otherFrame := readFrame(t, otherPeer, protover.V5)
	require.Equal(t, byte(wire.OpMobileUpdate), otherFrame[0])
	upd, err := wire.DecodeMobileUpdate(wire.NewReader(otherFrame[1:]))
	require.NoError(t, err)
	assert.EqualValues(t, 100, upd.X)
	assert.EqualValues(t, 101, upd.Y)
	noMoreFrames(t, otherPeer)
}
