package e2e

import (
	"testing"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/session"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
)

// TestSeedIngestionDialsWithSeed is spec §8 fixture 1: a v7 client's
// Seed handshake followed by AccountLogin must carry the client's seed
// through to the upstream dial unchanged. The raw 0xEF handshake
// framing itself is internal/listener's concern (see its own test
// suite); here we start one layer in, at ClientAttached, and confirm
// the seed the handshake resolved to actually reaches session.Config.Dial.
func TestSeedIngestionDialsWithSeed(t *testing.T) {
	system := actor.NewActorSystem()
	dial, dialed := newDialStub()
	cfg := session.Config{
		GameServers: []session.GameServerEntry{{Name: "main", Address: "game.example:2593", RawIPv4: rawIPv4(10, 0, 0, 1)}},
		Dial:        dial,
	}
	pid := system.Root.Spawn(session.Props(system, cfg))

	clientConn, clientPeer := newTestClient(t, protover.V7)
	clientFrames := startFrameReader(t, clientPeer, protover.V7)
	system.Root.Send(pid, &session.ClientAttached{Endpoint: clientConn, Proto: protover.V7, Seed: 0xDEADBEEF})

	sendFrame(t, clientPeer, wire.AccountLogin{Credentials: wire.CredentialsFragment{Username: "alice", Password: "pw"}})
	recvOpcode(t, clientFrames, wire.OpServerList)

	sendFrame(t, clientPeer, wire.PlayServer{Index: 0})
	sendFrame(t, clientPeer, wire.GameLogin{AuthID: 1, Credentials: wire.CredentialsFragment{Username: "alice", Password: "pw"}})

	up := waitDialed(t, dialed)
	assert.Equal(t, "game.example:2593", up.addr)
	assert.Equal(t, protover.V7, up.proto)
	assert.EqualValues(t, 0xDEADBEEF, up.seed)
}

// TestServerListEmulation is spec §8 fixture 2: with no LoginAddress
// configured, AccountLogin must get an emulated ServerList built from
// the configured GameServers, and no upstream dial happens.
func TestServerListEmulation(t *testing.T) {
	system := actor.NewActorSystem()
	dial, dialed := newDialStub()
	cfg := session.Config{
		GameServers: []session.GameServerEntry{{Name: "main", RawIPv4: rawIPv4(10, 0, 0, 1)}},
		Dial:        dial,
	}
	pid := system.Root.Spawn(session.Props(system, cfg))

	clientConn, clientPeer := newTestClient(t, protover.V5)
	clientFrames := startFrameReader(t, clientPeer, protover.V5)
	system.Root.Send(pid, &session.ClientAttached{Endpoint: clientConn, Proto: protover.V5})

	sendFrame(t, clientPeer, wire.AccountLogin{Credentials: wire.CredentialsFragment{Username: "alice", Password: "pw"}})

	frame := recvOpcode(t, clientFrames, wire.OpServerList)
	list, err := wire.DecodeServerList(wire.NewReader(frame[1:]))
	require.NoError(t, err)
	require.Len(t, list.Servers, 1)
	assert.EqualValues(t, 0, list.Servers[0].Index)
	assert.Equal(t, "main", list.Servers[0].Name)
	assert.Equal(t, rawIPv4(10, 0, 0, 1), list.Servers[0].Address)

	select {
	case c := <-dialed:
		t.Fatalf("unexpected upstream dial to %s", c.addr)
	default:
	}
}
