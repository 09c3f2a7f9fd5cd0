// Package upstream implements uoproxy's outbound half: the connection
// our proxy makes to a real UO server, playing the role of a real
// client (spec §4.C). It sends the seed prelude the server expects,
// keeps the link alive with periodic pings, and switches inbound
// reads to Huffman decoding once the server's handshake completes.
package upstream

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/MaxKellermann/uoproxy-sub000/internal/endpoint"
	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
)

const pingInterval = 30 * time.Second

// Client is our proxy's connection to a real login or game server.
type Client struct {
	Conn *endpoint.Conn

	pingID   byte
	stopPing chan struct{}
}

// NewClient wraps an already-dialed conn, sends the version-appropriate
// seed prelude, and starts its write pump. Callers own calling
// RunPingLoop and Stop.
func NewClient(conn net.Conn, proto protover.Version, seed uint32) (*Client, error) {
	ec := endpoint.NewConn(conn, proto)
	c := &Client{Conn: ec, stopPing: make(chan struct{})}

	if proto >= protover.V6_0_14 {
		if err := ec.SendPacket(wire.Seed{Seed: seed, Major: 7, Minor: 0, Revision: 0, Patch: 0}); err != nil {
			return nil, err
		}
	} else {
		buf := []byte{byte(seed >> 24), byte(seed >> 16), byte(seed >> 8), byte(seed)}
		if err := ec.Send(buf); err != nil {
			return nil, err
		}
	}

	go ec.WritePump()
	return c, nil
}

// Dial connects to addr over TCP and performs the upstream handshake.
func Dial(ctx context.Context, addr string, proto protover.Version, seed uint32) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetKeepAlive(true)
		_ = tcpConn.SetKeepAlivePeriod(30 * time.Second)
	}

	c, err := NewClient(conn, proto, seed)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// EnableCompression switches inbound reads to Huffman decoding: real
// servers compress everything they send after the handshake (spec
// §4.D). Named from the server's point of view — this is the
// endpoint's *decompression* side.
func (c *Client) EnableCompression() {
	c.Conn.EnableDecompression()
}

// RunPingLoop sends a Ping packet upstream every 30 seconds until ctx
// is cancelled or Stop is called, keeping an idle proxy link alive
// (spec §4.C). Call it in its own goroutine.
func (c *Client) RunPingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopPing:
			return
		case <-ticker.C:
			c.pingID++
			if err := c.Conn.SendPacket(wire.Ping{ID: c.pingID}); err != nil {
				slog.Warn("upstream ping failed", "error", err)
				return
			}
		}
	}
}

// Stop tears down the ping loop and the connection.
func (c *Client) Stop() {
	select {
	case <-c.stopPing:
	default:
		close(c.stopPing)
	}
	c.Conn.Close()
}
