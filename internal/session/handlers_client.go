package session

import (
	"context"
	"sync/atomic"

	"github.com/asynkron/protoactor-go/actor"

	"github.com/MaxKellermann/uoproxy-sub000/internal/endpoint"
	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/walk"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
)

// clientHandler reacts to one packet received from an attached client
// endpoint, matching spec §4.G's client-direction dispatch table.
type clientHandler func(s *Session, ctx actor.Context, ls *linkedServer, data []byte) verdict

var clientHandlers [256]clientHandler

func init() {
	clientHandlers[wire.OpAccountLogin] = handleClientAccountLogin
	clientHandlers[wire.OpClientVersion] = handleClientVersion
	clientHandlers[wire.OpPlayServer] = handleClientPlayServer
	clientHandlers[wire.OpGameLogin] = handleClientGameLogin
	clientHandlers[wire.OpPlayCharacter] = handleClientPlayCharacter
	clientHandlers[wire.OpWalk] = handleClientWalk
	clientHandlers[wire.OpWalkAck] = handleClientResynchronize // 0x22 doubles as Resynchronize upstream
	clientHandlers[wire.OpSpeakAscii] = handleClientSpeakAscii
	clientHandlers[wire.OpCreateCharacter] = handleClientCreateCharacter
	clientHandlers[wire.OpSpy] = handleClientAntispyDrop
	clientHandlers[wire.OpHardware] = handleClientAntispyDrop
	clientHandlers[wire.OpLiftRequest] = handleClientLiftRequest
	clientHandlers[wire.OpDrop] = handleClientDrop
}

// handleClientPacket is the dispatch entry point for every frame read
// from an attached endpoint (spec §4.G handler dispatch).
func (s *Session) handleClientPacket(ctx actor.Context, msg *ClientPacket) {
	ls := s.findEndpoint(msg.From)
	if ls == nil || len(msg.Data) == 0 {
		return
	}

	h := clientHandlers[msg.Data[0]]
	if h == nil {
		h = defaultClientHandler
	}

	switch h(s, ctx, ls, msg.Data) {
	case vForward:
		if s.up != nil {
			_ = s.up.Conn.Send(msg.Data)
		}
	case vDisconnect:
		s.disconnectEndpoint(ctx, ls)
	case vDeleted, vDrop, vHandled:
	}
}

func (s *Session) disconnectEndpoint(ctx actor.Context, ls *linkedServer) {
	s.removeEndpoint(ls)
	ls.conn.Close()
	if len(s.endpoints) == 0 && !(s.inGame() && (s.cfg.Background || s.cfg.Autoreconnect)) {
		ctx.Stop(ctx.Self())
	}
}

// defaultClientHandler implements spec §4.G's defensive invariant for
// opcodes with no dedicated handler: once in game, ordinary gameplay
// packets forward upstream unchanged; before that, an unexpected
// opcode is a state-machine violation.
func defaultClientHandler(s *Session, ctx actor.Context, ls *linkedServer, data []byte) verdict {
	if ls.state == StateInGame {
		if s.reconnecting {
			// spec §4.G: most other game input is discarded while
			// reconnecting.
			return vDrop
		}
		return vForward
	}
	return vDisconnect
}

func handleClientVersion(s *Session, ctx actor.Context, ls *linkedServer, data []byte) verdict {
	p, err := wire.DecodeClientVersion(wire.NewReader(data[3:]))
	if err != nil {
		return vDisconnect
	}
	ls.proto = protover.FromString(p.Version)
	ls.conn.SetProto(ls.proto)
	if s.upstreamProto == protover.Unknown || ls.proto > s.upstreamProto {
		s.upstreamProto = ls.proto
	}
	return vForward
}

// handleClientAccountLogin implements spec §4.G INIT -> ACCOUNT_LOGIN
// and the ServerList emulation/pass-through described in §6 scenario 2.
func handleClientAccountLogin(s *Session, ctx actor.Context, ls *linkedServer, data []byte) verdict {
	if ls.state != StateInit {
		return vDisconnect
	}
	p, err := wire.DecodeAccountLogin(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	s.credentials = p.Credentials
	ls.state = StateAccountLogin

	if s.cfg.LoginAddress != "" {
		s.dialLoginServer(ctx, ls)
		return vHandled
	}

	entries := make([]wire.GameServerEntry, len(s.cfg.GameServers))
	for i, gs := range s.cfg.GameServers {
		entries[i] = wire.GameServerEntry{Index: uint16(i), Name: gs.Name, Address: gs.RawIPv4}
	}
	_ = ls.conn.SendPacket(wire.ServerList{Servers: entries})
	ls.state = StateServerList
	return vHandled
}

// dialLoginServer connects straight through to the configured real
// login server instead of emulating one (spec §6 "no login_address"
// contrasted with the configured case).
func (s *Session) dialLoginServer(ctx actor.Context, ls *linkedServer) {
	if s.cfg.Dial == nil {
		_ = ls.conn.SendPacket(wire.AccountLoginReject{Reason: wire.LoginRejectBlocked})
		return
	}
	self := ctx.Self()
	system := s.system
	addr, proto, seed, creds := s.cfg.LoginAddress, ls.proto, s.loginSeed, s.credentials
	s.upstreamProto = proto
	go func() {
		cl, err := s.cfg.Dial(context.Background(), addr, proto, seed)
		if err != nil {
			_ = ls.conn.SendPacket(wire.AccountLoginReject{Reason: wire.LoginRejectBlocked})
			return
		}
		_ = cl.Conn.SendPacket(wire.AccountLogin{Credentials: creds})
		system.Root.Send(self, &upstreamRedialed{client: cl})
	}()
}

// handleClientPlayServer implements spec §4.G SERVER_LIST -> PLAY_SERVER,
// including the razor workaround's self-Relay detour.
func handleClientPlayServer(s *Session, ctx actor.Context, ls *linkedServer, data []byte) verdict {
	if ls.state != StateServerList {
		return vDisconnect
	}
	p, err := wire.DecodePlayServer(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	if int(p.Index) >= len(s.cfg.GameServers) && s.cfg.LoginAddress == "" {
		// spec §8 boundary: an out-of-range index must disconnect, not
		// index past the configured list.
		return vDisconnect
	}
	s.serverIndex = p.Index
	ls.state = StatePlayServer

	if s.cfg.RazorWorkaround {
		ls.authID = newRelayAuthID()
		ls.state = StateRelayServer
		_ = ls.conn.SendPacket(wire.Relay{IP: s.cfg.LocalIPv4, Port: s.cfg.LocalPort, AuthID: ls.authID})
		return vHandled
	}

	return vForward
}

// relayAuthCounter is shared across every session's actor goroutine, so
// it must be incremented atomically rather than per-session.
var relayAuthCounter atomic.Uint32

func newRelayAuthID() uint32 {
	return relayAuthCounter.Add(1)
}

// handleClientGameLogin implements spec §4.G's PLAY_SERVER/RELAY_SERVER
// -> GAME_LOGIN transition and dials the upstream game server.
func handleClientGameLogin(s *Session, ctx actor.Context, ls *linkedServer, data []byte) verdict {
	if ls.state != StatePlayServer && ls.state != StateRelayServer {
		return vDisconnect
	}
	p, err := wire.DecodeGameLogin(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	s.credentials = p.Credentials
	ls.state = StateGameLogin

	if s.up != nil {
		return vForward
	}
	if s.cfg.Dial == nil {
		return vDisconnect
	}

	self := ctx.Self()
	system := s.system
	addr := ""
	if int(s.serverIndex) < len(s.cfg.GameServers) {
		addr = s.cfg.GameServers[s.serverIndex].Address
	}
	if addr == "" {
		return vDisconnect
	}
	proto, seed := ls.proto, s.loginSeed
	authID, creds := p.AuthID, p.Credentials
	s.upstreamProto = proto
	go func() {
		cl, err := s.cfg.Dial(context.Background(), addr, proto, seed)
		if err != nil {
			return
		}
		_ = cl.Conn.SendPacket(wire.GameLogin{AuthID: authID, Credentials: creds})
		system.Root.Send(self, &upstreamRedialed{client: cl})
	}()
	return vHandled
}

func handleClientPlayCharacter(s *Session, ctx actor.Context, ls *linkedServer, data []byte) verdict {
	if ls.state != StateCharList {
		return vDisconnect
	}
	p, err := wire.DecodePlayCharacter(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	s.characterIndex = p.Slot
	ls.state = StatePlayChar
	return vForward
}

// handleClientWalk routes through the walk reconciler (spec §4.F).
func handleClientWalk(s *Session, ctx actor.Context, ls *linkedServer, data []byte) verdict {
	p, err := wire.DecodeWalk(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}

	res := s.walk.HandleClientWalk(walk.EndpointID(ls.id), p, ls.state == StateInGame, s.reconnecting)
	if res.Disconnect {
		return vDisconnect
	}
	if res.CancelCaller {
		anchor := s.world.PlayerAnchor
		_ = ls.conn.SendPacket(wire.WalkReject{
			Seq: p.Seq, X: anchor.X, Y: anchor.Y,
			Direction: anchor.Direction, Z: int8(anchor.Z),
		})
		return vDrop
	}
	if res.CancelOldest {
		anchor := s.world.PlayerAnchor
		if owner := s.findEndpointByID(endpoint.ID(res.CancelTo)); owner != nil {
			_ = owner.conn.SendPacket(wire.WalkReject{
				Seq: res.CancelOldestSeq, X: anchor.X, Y: anchor.Y,
				Direction: anchor.Direction, Z: int8(anchor.Z),
			})
		}
	}
	if res.Forward && s.up != nil {
		_ = s.up.Conn.SendPacket(res.Rewritten)
	}
	return vDrop
}

func handleClientResynchronize(s *Session, ctx actor.Context, ls *linkedServer, data []byte) verdict {
	s.walk.HandleClientResynchronize()
	if s.up != nil {
		_ = s.up.Conn.SendPacket(wire.Resynchronize())
	}
	return vDrop
}

// handleClientSpeakAscii intercepts '%'-prefixed uoproxy commands (spec
// §4.G Console commands), forwarding everything else untouched.
func handleClientSpeakAscii(s *Session, ctx actor.Context, ls *linkedServer, data []byte) verdict {
	p, err := wire.DecodeSpeakAscii(wire.NewReader(data[3:]))
	if err != nil {
		return vDisconnect
	}
	if len(p.Text) > 0 && p.Text[0] == '%' {
		s.runConsoleCommand(ls, p.Text[1:])
		return vDrop
	}
	return vForward
}

// handleClientCreateCharacter implements the antispy filter's client-ip
// rewrite (spec §4.G Filters).
func handleClientCreateCharacter(s *Session, ctx actor.Context, ls *linkedServer, data []byte) verdict {
	if !s.cfg.Antispy {
		return vForward
	}
	p, err := wire.DecodeCreateCharacter(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	p.ClientIP = wire.AntispyClientIP
	if s.up != nil {
		_ = s.up.Conn.SendPacket(p)
	}
	return vDrop
}

// handleClientAntispyDrop discards the client's own Spy/Hardware uplinks
// under the antispy filter (spec §4.G Filters); with antispy off these
// are ordinary gameplay packets and forward like anything else.
func handleClientAntispyDrop(s *Session, ctx actor.Context, ls *linkedServer, data []byte) verdict {
	if s.cfg.Antispy {
		return vDrop
	}
	return vForward
}

// handleClientLiftRequest refuses lift input while reconnecting (spec
// §4.G), matching original_source's HandleLiftRequest.
func handleClientLiftRequest(s *Session, ctx actor.Context, ls *linkedServer, data []byte) verdict {
	if s.reconnecting {
		_ = ls.conn.SendPacket(wire.LiftReject{Reason: wire.LiftRejectCannotLift})
		return vDrop
	}
	return vForward
}

// handleClientDrop silently discards drop input while reconnecting
// (spec §4.G) instead of forwarding it to a server that no longer has
// the session's held item.
func handleClientDrop(s *Session, ctx actor.Context, ls *linkedServer, data []byte) verdict {
	if s.reconnecting {
		return vDrop
	}
	return vForward
}
