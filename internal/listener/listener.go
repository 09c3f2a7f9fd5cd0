// Package listener implements uoproxy's accept/attach front door (spec
// §4.H): one TCP listener, a handshake resolver that brute-forces the
// per-build login cipher against the first AccountLogin record, and a
// credentials-keyed session registry that lets a second client attach to
// an existing in-game session instead of spawning a new one (spec §3
// "Attaching to an existing session").
//
// Grounded on the teacher's acceptLoop/handleConnection pair
// (internal/gameserver/server.go): errgroup-supervised accept loop, TCP
// keepalive on accept, one goroutine per connection.
package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"golang.org/x/sync/errgroup"

	"github.com/MaxKellermann/uoproxy-sub000/internal/cipher"
	"github.com/MaxKellermann/uoproxy-sub000/internal/config"
	"github.com/MaxKellermann/uoproxy-sub000/internal/endpoint"
	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/session"
	"github.com/MaxKellermann/uoproxy-sub000/internal/upstream"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
)

const handshakeReadTimeout = 10 * time.Second

// Server is the accept loop and session registry (spec §4.H).
type Server struct {
	cfg    config.Config
	log    *slog.Logger
	system *actor.ActorSystem

	mu       sync.Mutex
	sessions map[string]*registryEntry

	mu2      sync.Mutex
	listener net.Listener
}

// registryEntry remembers which session owns a given set of credentials,
// so a second AccountLogin with the same credentials attaches instead of
// spawning a fresh session (spec §3).
type registryEntry struct {
	pid   *actor.PID
	creds wire.CredentialsFragment
}

// New constructs a Server ready to Run.
func New(cfg config.Config, system *actor.ActorSystem, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		log:      log,
		system:   system,
		sessions: make(map[string]*registryEntry),
	}
}

// Run listens on cfg.Bind (or ":"+cfg.Port if unset) and accepts
// connections until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Bind
	if addr == "" {
		addr = fmt.Sprintf(":%d", s.cfg.Port)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listener: listening on %s: %w", addr, err)
	}

	s.mu2.Lock()
	s.listener = ln
	s.mu2.Unlock()

	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is cancelled, using an
// errgroup so every spawned connection goroutine is tracked the same
// way the teacher's acceptLoop/handleConnection pair is (spec §4.H).
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	g, gctx := errgroup.WithContext(ctx)
	s.log.Info("uoproxy listening", "address", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				break
			}
			s.log.Error("accept failed", "error", err)
			continue
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetKeepAlive(true)
			_ = tcpConn.SetKeepAlivePeriod(30 * time.Second)
		}

		g.Go(func() error {
			s.handleConnection(gctx, conn)
			return nil
		})
	}

	return g.Wait()
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	s.mu2.Lock()
	defer s.mu2.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// handleConnection resolves the login handshake (spec §4.C "opening
// bytes" and §4.D "cipher detection") and dispatches the result either
// to an existing session (attach/zombie-reclaim) or a freshly spawned
// one.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	if err := conn.SetReadDeadline(time.Now().Add(handshakeReadTimeout)); err != nil {
		conn.Close()
		return
	}

	hs, err := resolveHandshake(conn)
	if err != nil {
		s.log.Warn("handshake failed", "remote", conn.RemoteAddr(), "error", err)
		conn.Close()
		return
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		conn.Close()
		return
	}

	ec := endpoint.NewConn(conn, hs.proto)

	if hs.isRelay {
		s.dispatchRelay(ctx, ec, hs)
		return
	}
	s.dispatchLogin(ctx, ec, hs)
}

// dispatchRelay routes a razor-workaround reconnection's GameLogin to
// whichever session registered the matching auth_id; since the zombie
// could belong to any registered session, every one of them is notified
// and the session itself confirms the match (spec §4.G razor
// workaround).
func (s *Server) dispatchRelay(ctx context.Context, ec *endpoint.Conn, hs handshakeResult) {
	s.mu.Lock()
	pids := make([]*actor.PID, 0, len(s.sessions))
	for _, e := range s.sessions {
		pids = append(pids, e.pid)
	}
	s.mu.Unlock()

	if len(pids) == 0 {
		s.log.Warn("game login with no sessions registered, rejecting", "auth_id", hs.relayAuth)
		ec.Close()
		return
	}

	msg := &session.ClientAttached{
		Endpoint:  ec,
		Proto:     hs.proto,
		Seed:      hs.seed,
		IsRelay:   true,
		RelayAuth: hs.relayAuth,
	}
	for _, pid := range pids {
		s.system.Root.Send(pid, msg)
	}
}

// dispatchLogin attaches a new AccountLogin endpoint to an existing
// session sharing its credentials (spec §3 "session sharing"), or spawns
// a fresh one.
func (s *Server) dispatchLogin(ctx context.Context, ec *endpoint.Conn, hs handshakeResult) {
	attached := &session.ClientAttached{
		Endpoint:  ec,
		Proto:     hs.proto,
		Seed:      hs.seed,
		LoginKey1: hs.key1,
		LoginKey2: hs.key2,
	}
	pkt := &session.ClientPacket{From: ec, Data: hs.firstFrame}

	key := hs.credentials.Username
	s.mu.Lock()
	entry, ok := s.sessions[key]
	if ok && !entry.creds.Equal(hs.credentials) {
		ok = false
	}
	if !ok {
		pid := s.system.Root.Spawn(session.Props(s.system, s.buildSessionConfig()))
		entry = &registryEntry{pid: pid, creds: hs.credentials}
		s.sessions[key] = entry
	}
	s.mu.Unlock()

	if s.cfg.UDPKnock && s.cfg.Socks4 == "" && s.cfg.Server != "" {
		if err := sendUDPKnock(s.cfg.Server, hs.firstFrame); err != nil {
			s.log.Debug("udp knock failed (non-fatal)", "error", err)
		}
	}

	s.system.Root.Send(entry.pid, attached)
	s.system.Root.Send(entry.pid, pkt)
}

// buildSessionConfig translates the operator configuration into a
// session.Config, wiring the upstream dial function (direct or via
// SOCKS4) each session uses to reach a login/game server.
func (s *Server) buildSessionConfig() session.Config {
	var entries []session.GameServerEntry
	for _, gs := range s.cfg.GameServers {
		entries = append(entries, session.GameServerEntry{
			Name:    gs.Name,
			Address: gs.Address,
			RawIPv4: rawIPv4(gs.Address),
		})
	}

	localIP, localPort := s.localRelayAddress()

	return session.Config{
		Antispy:         s.cfg.Antispy,
		DropLight:       s.cfg.Light,
		Autoreconnect:   s.cfg.Autoreconnect,
		RazorWorkaround: s.cfg.RazorWorkaround,
		Background:      s.cfg.Background,
		LoginAddress:    s.cfg.Server,
		GameServers:     entries,
		LocalIPv4:       localIP,
		LocalPort:       localPort,
		Logger:          s.log,
		Dial:            s.buildDialFunc(),
	}
}

func (s *Server) buildDialFunc() func(ctx context.Context, addr string, proto protover.Version, seed uint32) (*upstream.Client, error) {
	socks4 := s.cfg.Socks4
	return func(ctx context.Context, addr string, proto protover.Version, seed uint32) (*upstream.Client, error) {
		if socks4 == "" {
			return upstream.Dial(ctx, addr, proto, seed)
		}
		conn, err := dialSocks4(ctx, socks4, addr)
		if err != nil {
			return nil, err
		}
		cl, err := upstream.NewClient(conn, proto, seed)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return cl, nil
	}
}

// localRelayAddress resolves the address advertised in razor-workaround
// Relay packets (spec §4.G): the bind address's own IPv4/port, falling
// back to loopback when unset.
func (s *Server) localRelayAddress() (ipv4 uint32, port uint16) {
	s.mu2.Lock()
	ln := s.listener
	s.mu2.Unlock()

	port = uint16(s.cfg.Port)
	ipv4 = rawIPv4("127.0.0.1")
	if ln == nil {
		return ipv4, port
	}
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		if tcpAddr.Port != 0 {
			port = uint16(tcpAddr.Port)
		}
		if ip4 := tcpAddr.IP.To4(); ip4 != nil && !tcpAddr.IP.IsUnspecified() {
			ipv4 = uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])
		}
	}
	return ipv4, port
}

// rawIPv4 resolves host:port (or a bare host) to its big-endian IPv4
// representation for wire.GameServerEntry/Relay, matching spec §6's
// "raw_be(ip)" ServerList encoding. Unresolvable hosts encode as zero.
func rawIPv4(hostport string) uint32 {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return 0
		}
		ip = ips[0]
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return 0
	}
	return uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])
}

// cipherDetect is split out purely so tests can call it without a live
// connection.
func cipherDetect(seed uint32, first []byte) ([]byte, uint32, uint32, bool) {
	decrypted, c, ok := cipher.DetectAndDecrypt(seed, first)
	if !ok {
		return first, 0, 0, false
	}
	key1, key2 := c.Keys()
	return decrypted, key1, key2, true
}
