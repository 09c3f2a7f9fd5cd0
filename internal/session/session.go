// Package session implements the per-client proxy session as a
// protoactor-go actor (spec §4.G), grounded on the teacher's
// PlayerSessionActor (_examples/phuhao00-suigserver/server/internal/actor/session_actor.go):
// a Receive loop driven by *actor.Started/*actor.Stopping/*actor.ReceiveTimeout
// and internal message types, with time.AfterFunc callbacks sending
// internal messages to the actor for uoproxy's reconnect and
// zombie-slot timers.
//
// A Session owns one upstream Client, one World, and an ordered list of
// attached LinkedServer endpoints (spec §3, "session sharing"): several
// real client sockets may ride the same upstream connection, each
// seeing the mirrored world and able to issue input.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"

	"github.com/MaxKellermann/uoproxy-sub000/internal/endpoint"
	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/upstream"
	"github.com/MaxKellermann/uoproxy-sub000/internal/walk"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
	"github.com/MaxKellermann/uoproxy-sub000/internal/worldmodel"
)

// State is a LinkedServer endpoint's position in the login/game
// handshake (spec §1, §4.G); transitions are driven by the opcodes the
// endpoint itself sends upstream.
type State int

const (
	StateInit State = iota
	StateAccountLogin
	StateServerList
	StatePlayServer
	StateRelayServer
	StateGameLogin
	StateCharList
	StatePlayChar
	StateInGame
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateAccountLogin:
		return "ACCOUNT_LOGIN"
	case StateServerList:
		return "SERVER_LIST"
	case StatePlayServer:
		return "PLAY_SERVER"
	case StateRelayServer:
		return "RELAY_SERVER"
	case StateGameLogin:
		return "GAME_LOGIN"
	case StateCharList:
		return "CHAR_LIST"
	case StatePlayChar:
		return "PLAY_CHAR"
	case StateInGame:
		return "IN_GAME"
	default:
		return "UNKNOWN"
	}
}

const (
	reconnectWindow = 5 * time.Second
	reconnectRetryDelay = 5 * time.Second
)

// GameServerEntry mirrors a configured upstream game/login server for
// ServerList emulation (spec §6, §3 "Config-driven GameServerEntry").
type GameServerEntry struct {
	Name    string
	Address string // host:port
	RawIPv4 uint32 // big-endian IPv4 for the wire ServerList entry
}

// Config carries the operator-facing toggles that shape a session's
// behavior (spec §4.G, §4.D, Filters); the listener builds one per
// spawned session from the parsed configuration file/flags.
type Config struct {
	Antispy         bool
	DropLight       bool
	Autoreconnect   bool
	RazorWorkaround bool
	Background      bool

	LoginAddress string            // if set, AccountLogin proxies straight through to this login server instead of emulated ServerList
	GameServers  []GameServerEntry // emulated ServerList when LoginAddress is empty
	LocalIPv4    uint32            // local address advertised in razor-workaround Relay packets
	LocalPort    uint16

	Logger *slog.Logger
	Dial   func(ctx context.Context, addr string, proto protover.Version, seed uint32) (*upstream.Client, error)
}

// Session is one logical player's proxy state: the attached client
// endpoints, the upstream server connection, the mirrored world model
// and walk reconciler, and the INIT..IN_GAME bookkeeping tying them
// together (spec §3 Connection).
type Session struct {
	cfg Config
	id  uuid.UUID // correlation id for structured logging only (spec §3 SessionID); never sent on the wire
	log *slog.Logger

	system *actor.ActorSystem
	self   *actor.PID

	endpoints []*linkedServer

	up    *upstream.Client
	world *worldmodel.World
	walk  *walk.State

	credentials    wire.CredentialsFragment
	serverIndex    uint16
	characterIndex uint32
	loginSeed      uint32
	loginKey1      uint32
	loginKey2      uint32

	upstreamProto protover.Version
	reconnecting  bool
	pingACKID     byte

	// charList caches the most recent CharList the upstream sent, so
	// %char can list slots without a round trip.
	charList wire.CharList
}

// linkedServer is one attached client endpoint (spec §3 LinkedServer).
type linkedServer struct {
	conn   *endpoint.Conn
	id     endpoint.ID
	state  State
	proto  protover.Version
	authID uint32
	zombie bool // true once its socket died but it lingers for the razor workaround
}

// New constructs a session with no attached endpoints, ready to receive
// its first ClientAttached message.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New()
	return &Session{
		cfg:   cfg,
		id:    id,
		log:   logger.With("session_id", id),
		world: worldmodel.New(),
		walk:  walk.New(),
	}
}

// Props wraps New in an actor.Props, matching the teacher's
// PropsForPlayerSession helper.
func Props(system *actor.ActorSystem, cfg Config) *actor.Props {
	return actor.PropsFromProducer(func() actor.Actor {
		s := New(cfg)
		s.system = system
		return s
	})
}

// Receive is the actor's message loop. protoactor guarantees at most
// one Receive call in flight at a time, which is this implementation's
// stand-in for the source's single-threaded event loop (spec §5).
func (s *Session) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		s.self = ctx.Self()

	case *actor.Stopping:
		s.teardown()

	case *actor.Stopped:

	case *actor.ReceiveTimeout:
		// The session never arms a receive timeout; its timers are
		// delivered via explicit scheduled messages below so that
		// multiple independent timers (zombie per-endpoint,
		// reconnect) can coexist.

	case *ClientAttached:
		s.attachClient(ctx, msg)

	case *ClientPacket:
		s.handleClientPacket(ctx, msg)

	case *ClientDisconnected:
		s.handleClientDisconnected(ctx, msg)

	case *UpstreamPacket:
		s.handleUpstreamPacket(ctx, msg)

	case *UpstreamDisconnected:
		s.handleUpstreamDisconnected(ctx, msg)

	case *reconnectExpired:
		if s.reconnecting && len(s.endpoints) == 0 {
			s.log.Info("reconnect window expired with no client, ending session")
			ctx.Stop(ctx.Self())
		}

	case *reconnectRetry:
		s.doReconnect(ctx)

	case *upstreamRedialed:
		s.attachUpstream(ctx, msg.client)

	case *zombieExpired:
		s.expireZombie(ctx, msg.EndpointID)

	default:
		s.log.Warn("session received unknown message", "type", fmt.Sprintf("%T", msg))
	}
}

// findEndpoint returns the linkedServer wrapping conn, if attached.
func (s *Session) findEndpoint(conn *endpoint.Conn) *linkedServer {
	for _, ls := range s.endpoints {
		if ls.conn == conn {
			return ls
		}
	}
	return nil
}

// findEndpointByID returns the linkedServer with the given endpoint ID,
// if attached.
func (s *Session) findEndpointByID(id endpoint.ID) *linkedServer {
	for _, ls := range s.endpoints {
		if ls.id == id {
			return ls
		}
	}
	return nil
}

func (s *Session) removeEndpoint(ls *linkedServer) {
	for i, e := range s.endpoints {
		if e == ls {
			s.endpoints = append(s.endpoints[:i], s.endpoints[i+1:]...)
			return
		}
	}
}

// inGame reports whether the session has completed login (spec §3
// invariant: World.player_anchor.serial != 0 <=> IN_GAME).
func (s *Session) inGame() bool { return s.world.PlayerAnchor.InGame() }

// attachClient binds a freshly accepted client endpoint to this
// session. If msg.IsRelay, this is a razor-workaround reconnection
// attempt claiming a zombie's slot (spec §4.G); otherwise it's a brand
// new endpoint (either a fresh session or a multi-head attach that the
// listener already resolved before sending this message).
func (s *Session) attachClient(ctx actor.Context, msg *ClientAttached) {
	conn := msg.Endpoint

	if msg.IsRelay {
		var zombie *linkedServer
		for _, ls := range s.endpoints {
			if ls.zombie && ls.authID == msg.RelayAuth {
				zombie = ls
				break
			}
		}
		if zombie == nil {
			s.log.Warn("game login with no matching zombie, rejecting", "auth_id", msg.RelayAuth)
			conn.Close()
			return
		}
		s.removeEndpoint(zombie)
	}

	ls := &linkedServer{conn: conn, id: conn.ID(), state: StateInit, proto: msg.Proto}
	if msg.Seed != 0 {
		s.loginSeed, s.loginKey1, s.loginKey2 = msg.Seed, msg.LoginKey1, msg.LoginKey2
	}
	if msg.IsRelay {
		ls.state = StateGameLogin
	}
	s.endpoints = append(s.endpoints, ls)

	self := ctx.Self()
	system := s.system
	go func() {
		err := conn.ReadLoop(endpoint.ReadIdleTimeout, func(pkt []byte) error {
			cp := make([]byte, len(pkt))
			copy(cp, pkt)
			system.Root.Send(self, &ClientPacket{From: conn, Data: cp})
			return nil
		})
		system.Root.Send(self, &ClientDisconnected{Endpoint: conn, Err: err})
	}()
	go conn.WritePump()

	if s.inGame() {
		s.reconnecting = false
		ls.state = StateInGame
		s.log.Info("client attached to in-game session, replaying world", "endpoint", ls.id, "endpoint_id", conn.LogID())
		for _, env := range s.world.Replay(ls.proto) {
			_ = conn.SendPacket(env.Packet)
		}
	}
}

// handleClientDisconnected reacts to one attached client's socket
// dying: a RELAY_SERVER-state endpoint lingers as a zombie for the
// razor workaround (spec §4.G); an in-game session with autoreconnect
// gets a 5-second grace window once its last endpoint is gone;
// anything else that empties the endpoint list ends the session
// (unless background is set and the session is in game).
func (s *Session) handleClientDisconnected(ctx actor.Context, msg *ClientDisconnected) {
	ls := s.findEndpoint(msg.Endpoint)
	if ls == nil {
		return
	}
	s.log.Info("client endpoint disconnected", "endpoint", ls.id, "state", ls.state, "error", msg.Err)

	if ls.state == StateRelayServer && s.cfg.RazorWorkaround {
		ls.zombie = true
		self := ctx.Self()
		system := s.system
		id := ls.id
		time.AfterFunc(endpoint.ZombieTimeout, func() {
			system.Root.Send(self, &zombieExpired{EndpointID: id})
		})
		return
	}

	s.removeEndpoint(ls)

	if len(s.endpoints) > 0 {
		return
	}

	if s.inGame() && s.cfg.Background {
		s.log.Info("last client detached, session kept alive in background")
		return
	}

	if s.inGame() && s.cfg.Autoreconnect {
		s.reconnecting = true
		self := ctx.Self()
		system := s.system
		time.AfterFunc(reconnectWindow, func() {
			system.Root.Send(self, &reconnectExpired{})
		})
		return
	}

	ctx.Stop(ctx.Self())
}

func (s *Session) expireZombie(ctx actor.Context, id endpoint.ID) {
	for _, ls := range s.endpoints {
		if ls.id == id && ls.zombie {
			s.log.Info("zombie relay slot expired", "endpoint", id)
			s.removeEndpoint(ls)
			if len(s.endpoints) == 0 && !s.inGame() {
				ctx.Stop(ctx.Self())
			}
			return
		}
	}
}

// handleUpstreamDisconnected reacts to the real server's connection
// dying: autoreconnect schedules a redial; otherwise every attached
// endpoint is disconnected and the session ends.
func (s *Session) handleUpstreamDisconnected(ctx actor.Context, msg *UpstreamDisconnected) {
	s.log.Warn("upstream connection lost", "error", msg.Err)
	s.up = nil

	if s.cfg.Autoreconnect && s.inGame() {
		s.beginReconnect(ctx)
		return
	}

	for _, ls := range s.endpoints {
		ls.conn.Close()
	}
	ctx.Stop(ctx.Self())
}

// beginReconnect implements spec §4.G "Reconnect": broadcasts Delete
// for every tracked serial so attached clients visually clear, wipes
// the world, marks the session reconnecting, and schedules the
// first redial attempt.
func (s *Session) beginReconnect(ctx actor.Context) {
	s.reconnecting = true
	for _, serial := range s.world.AllSerials() {
		s.broadcast(wire.DeleteObject{Serial: uint32(serial)})
	}
	s.world.Clear()
	for _, ls := range s.endpoints {
		ls.conn.SendConsole("uoproxy was disconnected, auto-reconnecting...")
	}
	self := ctx.Self()
	system := s.system
	time.AfterFunc(reconnectRetryDelay, func() {
		system.Root.Send(self, &reconnectRetry{})
	})
}

func (s *Session) doReconnect(ctx actor.Context) {
	if s.up != nil || len(s.endpoints) == 0 {
		return
	}
	addr := s.cfg.LoginAddress
	if addr == "" && len(s.cfg.GameServers) > int(s.serverIndex) {
		addr = s.cfg.GameServers[s.serverIndex].Address
	}
	if addr == "" || s.cfg.Dial == nil {
		return
	}

	self := ctx.Self()
	system := s.system
	proto := s.upstreamProto
	seed := s.loginSeed
	go func() {
		cl, err := s.cfg.Dial(context.Background(), addr, proto, seed)
		if err != nil {
			time.AfterFunc(reconnectRetryDelay, func() {
				system.Root.Send(self, &reconnectRetry{})
			})
			return
		}
		system.Root.Send(self, &upstreamRedialed{client: cl})
	}()
}

// upstreamRedialed carries a freshly (re)dialed upstream client back
// into the session's single-threaded Receive loop.
type upstreamRedialed struct{ client *upstream.Client }

// attachUpstream adopts a freshly dialed upstream connection: starts
// its ping loop and read loop, both feeding this session's mailbox,
// and (for a reconnect) sends the AccountLogin or GameLogin upstream
// right away, without waiting for the server (spec §4.C, §4.G).
func (s *Session) attachUpstream(ctx actor.Context, cl *upstream.Client) {
	s.up = cl
	cl.EnableCompression()

	self := ctx.Self()
	system := s.system
	go cl.RunPingLoop(context.Background())
	go func() {
		err := cl.Conn.ReadLoop(endpoint.ReadIdleTimeout, func(pkt []byte) error {
			cp := make([]byte, len(pkt))
			copy(cp, pkt)
			system.Root.Send(self, &UpstreamPacket{Data: cp})
			return nil
		})
		system.Root.Send(self, &UpstreamDisconnected{Err: err})
	}()

	if s.reconnecting {
		if s.cfg.LoginAddress != "" {
			_ = cl.Conn.SendPacket(wire.AccountLogin{Credentials: s.credentials})
		} else {
			_ = cl.Conn.SendPacket(wire.GameLogin{AuthID: s.loginSeed, Credentials: s.credentials})
		}
	}
}

func (s *Session) teardown() {
	for _, ls := range s.endpoints {
		ls.conn.Close()
	}
	if s.up != nil {
		s.up.Stop()
	}
}

// broadcast queues p to every attached endpoint; each endpoint's
// SendPacket encodes it separately, and no per-protocol translation is
// applied here.
func (s *Session) broadcast(p interface{ Encode(*wire.Writer) }) {
	for _, ls := range s.endpoints {
		_ = ls.conn.SendPacket(p)
	}
}

// broadcastExcept is broadcast's variant used by the walk reconciler
// (spec §4.F step 5: "every *other* attached endpoint").
func (s *Session) broadcastExcept(except *linkedServer, p interface{ Encode(*wire.Writer) }) {
	for _, ls := range s.endpoints {
		if ls == except {
			continue
		}
		_ = ls.conn.SendPacket(p)
	}
}
