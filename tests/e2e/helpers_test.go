// Package e2e exercises uoproxy end to end, grounded on the teacher's
// own tests/e2e / tests/integration split
// (_examples/udisondev-la2go/tests/integration/gameserver_test.go spins
// up real servers over real TCP and drives them with a scripted
// client): here the "real servers" are the session actor itself and a
// scripted upstream, connected over net.Pipe instead of TCP so the
// suite runs with no external process and no network.
//
// internal/listener already owns the raw-TCP handshake (cipher
// detection, Seed framing) and has its own test suite; these scenarios
// start one layer in, at the point the listener would normally hand a
// resolved connection to a session via ClientAttached, and drive spec
// §8's six canonical fixtures through the real session.Props actor.
package e2e

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MaxKellermann/uoproxy-sub000/internal/endpoint"
	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/upstream"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
)

// newTestClient wires a fresh endpoint.Conn to one end of an in-memory
// pipe and returns the peer end a test drives as the simulated real UO
// client. WritePump is started by session.attachClient once the conn
// is handed over via ClientAttached, not here, to avoid two pumps
// racing to drain the same send queue.
func newTestClient(t *testing.T, proto protover.Version) (*endpoint.Conn, net.Conn) {
	t.Helper()
	local, peer := net.Pipe()
	conn := endpoint.NewConn(local, proto)
	t.Cleanup(func() {
		conn.Close()
		peer.Close()
	})
	return conn, peer
}

// sendFrame encodes p and writes it directly onto a simulated peer
// connection, as if that peer were the real client or real server.
func sendFrame(t *testing.T, peer net.Conn, p interface{ Encode(*wire.Writer) }) {
	t.Helper()
	w := wire.Get()
	defer w.Put()
	p.Encode(w)
	_, err := peer.Write(w.Bytes())
	require.NoError(t, err)
}

// startFrameReader continuously reassembles framed packets off conn and
// delivers each to the returned channel. net.Pipe is synchronous with
// no internal buffering, so anything under test that keeps writing to
// this peer (e.g. the session's WritePump) would deadlock without a
// reader running independently of the test's own assertions.
func startFrameReader(t *testing.T, conn net.Conn, proto protover.Version) <-chan []byte {
	t.Helper()
	ch := make(chan []byte, 64)
	go func() {
		defer close(ch)
		var buf []byte
		tmp := make([]byte, 4096)
		for {
			res := wire.PacketLength(buf, proto)
			if !res.Invalid && res.Have > 0 && len(buf) >= res.Have {
				frame := append([]byte(nil), buf[:res.Have]...)
				buf = buf[res.Have:]
				select {
				case ch <- frame:
				default:
				}
				continue
			}
			n, err := conn.Read(tmp)
			if err != nil {
				return
			}
			buf = append(buf, tmp[:n]...)
		}
	}()
	return ch
}

// recvOpcode waits for the next frame on ch and fails the test unless
// its opcode matches want.
func recvOpcode(t *testing.T, ch <-chan []byte, want wire.Opcode) []byte {
	t.Helper()
	select {
	case f, ok := <-ch:
		require.True(t, ok, "frame channel closed while waiting for opcode %#x", want)
		require.Equalf(t, byte(want), f[0], "got opcode %#x, want %#x", f[0], want)
		return f
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for opcode %#x", want)
		return nil
	}
}

// expectNoFrame asserts ch delivers nothing within window.
func expectNoFrame(t *testing.T, ch <-chan []byte, window time.Duration) {
	t.Helper()
	select {
	case f, ok := <-ch:
		if ok {
			t.Fatalf("unexpected frame with opcode %#x", f[0])
		}
	case <-time.After(window):
	}
}

// peerClosed reports whether the session side has closed conn, as
// observed from the peer: net.Pipe surfaces a closed peer as a non-timeout
// read error (typically io.EOF), distinct from the deadline simply elapsing.
func peerClosed(t *testing.T, peer net.Conn, window time.Duration) bool {
	t.Helper()
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(window)))
	buf := make([]byte, 1)
	_, err := peer.Read(buf)
	if err == nil {
		return false
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return false
	}
	return true
}

// upstreamConn is what a scripted fake upstream server gets once the
// session under test dials it.
type upstreamConn struct {
	peer  net.Conn
	addr  string
	proto protover.Version
	seed  uint32
}

// newDialStub returns a session.Config.Dial implementation that, in
// place of a real TCP dial, wires the session's upstream.Client to one
// end of an in-memory pipe and hands the other end back over the
// returned channel for the test to script as the real server.
func newDialStub() (func(ctx context.Context, addr string, proto protover.Version, seed uint32) (*upstream.Client, error), chan *upstreamConn) {
	ch := make(chan *upstreamConn, 4)
	dial := func(ctx context.Context, addr string, proto protover.Version, seed uint32) (*upstream.Client, error) {
		local, peer := net.Pipe()
		cl, err := upstream.NewClient(local, proto, seed)
		if err != nil {
			peer.Close()
			return nil, err
		}
		ch <- &upstreamConn{peer: peer, addr: addr, proto: proto, seed: seed}
		return cl, nil
	}
	return dial, ch
}

func waitDialed(t *testing.T, ch chan *upstreamConn) *upstreamConn {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("upstream dial never happened")
		return nil
	}
}

// rawIPv4 packs four octets into the big-endian uint32 the wire
// ServerList/Relay packets carry (spec §6).
func rawIPv4(a, b, c, d byte) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}
