package e2e

import (
	"net"
	"testing"

	"github.com/asynkron/protoactor-go/actor"

	"github.com/MaxKellermann/uoproxy-sub000/internal/endpoint"
	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/session"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
)

var aliceCreds = wire.CredentialsFragment{Username: "alice", Password: "pw"}

// bootedSession is a session driven through the full non-razor login
// flow (spec §4.G INIT..IN_GAME) up to and including LoginComplete, one
// world mobile and one world item established, ready for walk or
// multi-head attach scenarios to build on.
type bootedSession struct {
	system       *actor.ActorSystem
	pid          *actor.PID
	clientConn   *endpoint.Conn
	clientPeer   net.Conn
	clientFrames <-chan []byte
	up           *upstreamConn
	upFrames     <-chan []byte
}

// bootInGameSession drives one client through AccountLogin, the
// emulated ServerList, PlayServer, GameLogin against a scripted fake
// upstream game server, CharList, PlayCharacter, and a Start + one
// mobile + one ground item + LoginComplete world snapshot (spec §8
// fixture 3's setup), leaving the session IN_GAME.
func bootInGameSession(t *testing.T, proto protover.Version) *bootedSession {
	t.Helper()
	system := actor.NewActorSystem()
	dial, dialed := newDialStub()
	cfg := session.Config{
		GameServers: []session.GameServerEntry{{Name: "main", Address: "game.example:2593", RawIPv4: rawIPv4(10, 0, 0, 1)}},
		Dial:        dial,
	}
	pid := system.Root.Spawn(session.Props(system, cfg))

	clientConn, clientPeer := newTestClient(t, proto)
	clientFrames := startFrameReader(t, clientPeer, proto)
	system.Root.Send(pid, &session.ClientAttached{Endpoint: clientConn, Proto: proto, Seed: 0x1})

	sendFrame(t, clientPeer, wire.AccountLogin{Credentials: aliceCreds})
	recvOpcode(t, clientFrames, wire.OpServerList)

	sendFrame(t, clientPeer, wire.PlayServer{Index: 0})
	sendFrame(t, clientPeer, wire.GameLogin{AuthID: 42, Credentials: aliceCreds})

	up := waitDialed(t, dialed)
	upFrames := startFrameReader(t, up.peer, proto)
	recvOpcode(t, upFrames, wire.OpSeed)
	recvOpcode(t, upFrames, wire.OpGameLogin)

	sendFrame(t, up.peer, wire.CharList{Characters: []wire.CharacterEntry{{Name: "hero"}}})
	recvOpcode(t, clientFrames, wire.OpCharList)

	sendFrame(t, clientPeer, wire.PlayCharacter{Slot: 0})
	recvOpcode(t, upFrames, wire.OpPlayCharacter)

	sendFrame(t, up.peer, wire.Start{Serial: 1, Body: 0x190, X: 100, Y: 100, Direction: 2})
	recvOpcode(t, clientFrames, wire.OpStart)

	sendFrame(t, up.peer, wire.SupportedFeatures6014{Flags: 1})
	recvOpcode(t, clientFrames, wire.OpSupportedFeatures)

	sendFrame(t, up.peer, wire.MobileUpdate{Serial: 1, Body: 0x190, X: 100, Y: 100, Direction: 2})
	recvOpcode(t, clientFrames, wire.OpMobileUpdate)

	sendFrame(t, up.peer, wire.WorldItem7{Serial: 0x40000001, ItemID: 0x0eed, Amount: 1, X: 101, Y: 100})
	recvOpcode(t, clientFrames, wire.OpWorldItem7)

	sendFrame(t, up.peer, wire.LoginComplete{})
	recvOpcode(t, clientFrames, wire.OpLoginComplete)

	return &bootedSession{
		system: system, pid: pid,
		clientConn: clientConn, clientPeer: clientPeer, clientFrames: clientFrames,
		up: up, upFrames: upFrames,
	}
}
