package session

import (
	"github.com/MaxKellermann/uoproxy-sub000/internal/endpoint"
	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
)

// ClientAttached is sent once when a client endpoint finishes its TCP
// handshake and is ready to participate in the session's state
// machine. For a brand new login-stage connection the listener has
// already consumed the raw seed and decrypted the first AccountLogin
// record (spec §4.C); Seed/LoginKey1/LoginKey2 are stored on the
// session (the seed is reused for upstream dials), and nothing is
// re-encrypted for the upstream leg. RelayAuth/IsRelay
// identify a post-Relay reconnection attempting to reclaim a zombie
// slot (spec §4.G razor workaround).
type ClientAttached struct {
	Endpoint  *endpoint.Conn
	Proto     protover.Version
	Seed      uint32
	LoginKey1 uint32
	LoginKey2 uint32
	IsRelay   bool
	RelayAuth uint32
}

// ClientPacket carries one decoded frame from a client endpoint.
type ClientPacket struct {
	From *endpoint.Conn
	Data []byte
}

// ClientDisconnected notifies the session that an attached client
// endpoint's socket died; the session decides whether this starts the
// reconnect/zombie window or tears the whole session down (spec §4.G).
type ClientDisconnected struct {
	Endpoint *endpoint.Conn
	Err      error
}

// UpstreamPacket carries one decoded frame from the real server this
// session is relaying to.
type UpstreamPacket struct {
	Data []byte
}

// UpstreamDisconnected notifies the session that the upstream
// connection died.
type UpstreamDisconnected struct {
	Err error
}

// reconnectExpired is an internal timer tick: the 5-second reconnect
// window (spec §4.G) elapsed with no client reattaching.
type reconnectExpired struct{}

// reconnectRetry is an internal timer tick: a prior reconnect dial
// attempt failed and this fires the next attempt (spec §5).
type reconnectRetry struct{}

// zombieExpired fires once per RELAY_SERVER-state endpoint that never
// saw a reattaching GameLogin within the zombie window (spec §4.G).
type zombieExpired struct {
	EndpointID endpoint.ID
}

// Verdict is what a packet handler decided to do with a frame (spec
// §4.G: Accept/Drop/Disconnect/Deleted).
type verdict int

const (
	// vForward passes the frame on unchanged (after any required
	// translation) to the peer.
	vForward verdict = iota
	// vDrop discards the frame silently.
	vDrop
	// vHandled means the handler already produced any necessary
	// output itself; nothing further should happen.
	vHandled
	// vDisconnect tears the originating endpoint (or, for upstream
	// packets, the whole session) down.
	vDisconnect
	// vDeleted means the handler already destroyed the endpoint (or
	// session); the dispatcher must not touch it further.
	vDeleted
)
