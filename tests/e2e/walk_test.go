package e2e

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/session"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
)

// TestWalkReconciliation is spec §8 fixture 4: a lone in-game client's
// Walk is forwarded upstream with a server-assigned sequence number,
// and the upstream's WalkAck comes straight back to the caller with no
// broadcast (there's no one else attached to broadcast to).
func TestWalkReconciliation(t *testing.T) {
	b := bootInGameSession(t, protover.V7)

	sendFrame(t, b.clientPeer, wire.Walk{Direction: 2, Seq: 1})
	wf := recvOpcode(t, b.upFrames, wire.OpWalk)
	walkPkt, err := wire.DecodeWalk(wire.NewReader(wf[1:]))
	require.NoError(t, err)
	assert.EqualValues(t, 1, walkPkt.Seq)

	sendFrame(t, b.up.peer, wire.WalkAck{Seq: walkPkt.Seq, Notoriety: 1})
	af := recvOpcode(t, b.clientFrames, wire.OpWalkAck)
	ack, err := wire.DecodeWalkAck(wire.NewReader(af[1:]))
	require.NoError(t, err)
	assert.EqualValues(t, 1, ack.Seq)
	assert.EqualValues(t, 1, ack.Notoriety)

	expectNoFrame(t, b.clientFrames, 150*time.Millisecond)
}

// TestWalkRejectionUnderContention is spec §8 fixture 5: two attached
// endpoints, A already owns the in-flight walk; B's contending Walk
// must be rejected synchronously and never reach upstream.
func TestWalkRejectionUnderContention(t *testing.T) {
	b := bootInGameSession(t, protover.V7)

	bConn, bPeer := newTestClient(t, protover.V7)
	bFrames := startFrameReader(t, bPeer, protover.V7)
	b.system.Root.Send(b.pid, &session.ClientAttached{Endpoint: bConn, Proto: protover.V7, Seed: 0x2})
	recvOpcode(t, bFrames, wire.OpStart)
	recvOpcode(t, bFrames, wire.OpSupportedFeatures)
	recvOpcode(t, bFrames, wire.OpMobileUpdate)
	recvOpcode(t, bFrames, wire.OpMobileIncoming)
	recvOpcode(t, bFrames, wire.OpWorldItem7)
	recvOpcode(t, bFrames, wire.OpLoginComplete)

	sendFrame(t, b.clientPeer, wire.Walk{Direction: 2, Seq: 1})
	recvOpcode(t, b.upFrames, wire.OpWalk)

	sendFrame(t, bPeer, wire.Walk{Direction: 2, Seq: 1})
	rf := recvOpcode(t, bFrames, wire.OpWalkReject)
	_, err := wire.DecodeWalkReject(wire.NewReader(rf[1:]))
	require.NoError(t, err)

	expectNoFrame(t, b.upFrames, 150*time.Millisecond)
}
