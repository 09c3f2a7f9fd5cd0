package session

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MaxKellermann/uoproxy-sub000/internal/endpoint"
	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
)

// newTestLinkedServer wires a linkedServer to one end of an in-memory
// net.Pipe, with WritePump already running, so handler code under test
// can SendPacket/SendConsole and a test can read the bytes back off
// the returned peer.
func newTestLinkedServer(t *testing.T, proto protover.Version, state State) (*linkedServer, net.Conn) {
	t.Helper()
	local, peer := net.Pipe()
	conn := endpoint.NewConn(local, proto)
	go conn.WritePump()
	t.Cleanup(func() {
		conn.Close()
		peer.Close()
	})
	return &linkedServer{conn: conn, id: conn.ID(), state: state, proto: proto}, peer
}

// readFrame reads exactly one framed packet off peer, blocking at most
// a couple seconds before failing the test.
func readFrame(t *testing.T, peer net.Conn, proto protover.Version) []byte {
	t.Helper()
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(2*time.Second)))

	var buf []byte
	tmp := make([]byte, 4096)
	for {
		res := wire.PacketLength(buf, proto)
		if !res.Invalid && res.Have > 0 && len(buf) >= res.Have {
			return buf[:res.Have]
		}
		n, err := peer.Read(tmp)
		require.NoError(t, err)
		buf = append(buf, tmp[:n]...)
	}
}

// noMoreFrames asserts peer has nothing further to deliver within a
// short window, used to confirm a packet was withheld from an endpoint
// (e.g. the walk-ack owner shouldn't also receive the broadcast
// MobileUpdate).
func noMoreFrames(t *testing.T, peer net.Conn) {
	t.Helper()
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	buf := make([]byte, 1)
	_, err := peer.Read(buf)
	require.Error(t, err, "expected no further frames")
}
