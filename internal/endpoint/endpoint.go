// Package endpoint wraps one TCP connection (a real client attached to
// our listener, or our upstream connection to a real game server) with
// framed packet I/O: a length-resolving read loop and a dedicated
// write-pump goroutine, matching the teacher's GameClient connection
// wrapper (internal/gameserver/client.go) with the write side
// unchanged and the read side rebuilt around uoproxy's variable-length
// framing and Huffman decompression instead of the teacher's fixed
// Blowfish scheme. The login-cipher handshake is resolved by the
// listener before a socket is ever wrapped in a Conn (see
// internal/listener), since detecting the right key requires reading
// raw, not-yet-framed bytes.
package endpoint

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MaxKellermann/uoproxy-sub000/internal/huffman"
	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
)

const (
	defaultSendQueueSize = 64
	defaultWriteTimeout  = 5 * time.Second

	// ReadIdleTimeout bounds how long a connection may sit with no
	// traffic before it is dropped (spec §4.D).
	ReadIdleTimeout = 30 * time.Second

	// ZombieTimeout is how long a RELAY_SERVER-state endpoint may sit
	// waiting for the client to reconnect on the new port before the
	// session gives up on it (spec §4.G, razor workaround).
	ZombieTimeout = 5 * time.Second
)

// ID names one endpoint for the duration of a session: the walk
// reconciler and the session's attach/owner bookkeeping both key off
// it, so it is handed out once per Conn and never reused.
type ID uint64

var nextID atomic.Uint64

// NewID hands out the next process-wide unique endpoint ID.
func NewID() ID { return ID(nextID.Add(1)) }

// Conn is a framed, full-duplex wrapper around one net.Conn. Reads are
// driven by the caller via ReadLoop (one call, blocks until the
// connection dies); writes are queued through Send/SendSync and
// flushed by a WritePump goroutine the caller starts once.
type Conn struct {
	conn net.Conn
	id   ID
	logID uuid.UUID // process-unique correlation id for log fields only; never sent on the wire

	proto atomic.Uint32 // protover.Version, changed once after ClientVersion

	sendCh       chan []byte
	closeCh      chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration

	mu       sync.Mutex
	compress bool
	decoder  *huffman.Decoder

	pending []byte // decompressed stream buffer awaiting frame boundaries
}

// NewConn wraps conn, initially negotiated at proto with no
// compression, decompression or login cipher active.
func NewConn(conn net.Conn, proto protover.Version) *Conn {
	c := &Conn{
		conn:         conn,
		id:           NewID(),
		logID:        uuid.New(),
		sendCh:       make(chan []byte, defaultSendQueueSize),
		closeCh:      make(chan struct{}),
		writeTimeout: defaultWriteTimeout,
	}
	c.proto.Store(uint32(proto))
	return c
}

func (c *Conn) ID() ID                      { return c.id }
// LogID is this endpoint's correlation id for structured logging (spec
// §3 EndpointID); it has no meaning on the wire.
func (c *Conn) LogID() uuid.UUID            { return c.logID }
func (c *Conn) RemoteAddr() net.Addr        { return c.conn.RemoteAddr() }
func (c *Conn) Proto() protover.Version     { return protover.Version(c.proto.Load()) }
func (c *Conn) SetProto(v protover.Version) { c.proto.Store(uint32(v)) }

// EnableCompression turns on Huffman coding for subsequent writes
// (spec §4.D): once a real client's handshake completes, every
// downstream packet is Huffman-compressed.
func (c *Conn) EnableCompression() {
	c.mu.Lock()
	c.compress = true
	c.mu.Unlock()
}

func (c *Conn) isCompressing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compress
}

// EnableDecompression switches inbound reads from raw to Huffman-coded,
// used on the upstream connection once the real server starts sending
// compressed packets (spec §4.D). The decoder's state is persistent
// across reads, so this may only be called once.
func (c *Conn) EnableDecompression() {
	c.mu.Lock()
	c.decoder = huffman.NewDecoder()
	c.mu.Unlock()
}

func (c *Conn) getDecoder() *huffman.Decoder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decoder
}

// ReadLoop blocks, extracting complete frames from conn and invoking
// handle for each one, until the connection errors, handle returns an
// error, or idleTimeout elapses with nothing received. The returned
// error is always non-nil (io.EOF on a clean remote close).
func (c *Conn) ReadLoop(idleTimeout time.Duration, handle func(pkt []byte) error) error {
	raw := make([]byte, 4096)
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
			return err
		}
		n, err := c.conn.Read(raw)
		if n > 0 {
			if ingestErr := c.ingest(raw[:n]); ingestErr != nil {
				return ingestErr
			}
			for {
				pkt, ok, extractErr := c.extractPacket()
				if extractErr != nil {
					return extractErr
				}
				if !ok {
					break
				}
				if handleErr := handle(pkt); handleErr != nil {
					return handleErr
				}
			}
		}
		if err != nil {
			return err
		}
	}
}

// ingest decompresses newly read bytes, in arrival order, and appends
// the result to pending. The Huffman decoder carries state across the
// whole stream, so bytes must pass through it exactly once, in order,
// as they arrive.
func (c *Conn) ingest(raw []byte) error {
	if dec := c.getDecoder(); dec != nil {
		var err error
		c.pending, err = dec.Decompress(c.pending, raw)
		return err
	}
	c.pending = append(c.pending, raw...)
	return nil
}

func (c *Conn) extractPacket() (pkt []byte, ok bool, err error) {
	if len(c.pending) == 0 {
		return nil, false, nil
	}
	res := wire.PacketLength(c.pending, c.Proto())
	if res.Invalid {
		return nil, false, fmt.Errorf("endpoint: unknown opcode 0x%02x", c.pending[0])
	}
	if res.Need > 0 || len(c.pending) < res.Have {
		return nil, false, nil
	}
	pkt = make([]byte, res.Have)
	copy(pkt, c.pending[:res.Have])
	c.pending = c.pending[res.Have:]
	return pkt, true, nil
}

// WritePump drains sendCh onto the connection, batching with
// net.Buffers (writev) when several packets queue up between flushes,
// matching the teacher's write-pump pattern (internal/gameserver/client.go
// writePump). Run it in its own goroutine once per Conn; it returns
// when the connection closes or a write fails.
func (c *Conn) WritePump() {
	bufs := make(net.Buffers, 0, 16)
	for {
		select {
		case pkt, ok := <-c.sendCh:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				return
			}

			queued := len(c.sendCh)
			if queued == 0 {
				if _, err := c.conn.Write(c.encodeOutbound(pkt)); err != nil {
					return
				}
				continue
			}

			bufs = bufs[:0]
			bufs = append(bufs, c.encodeOutbound(pkt))
			for i := 0; i < queued; i++ {
				bufs = append(bufs, c.encodeOutbound(<-c.sendCh))
			}
			if _, err := bufs.WriteTo(c.conn); err != nil {
				return
			}

		case <-c.closeCh:
			return
		}
	}
}

func (c *Conn) encodeOutbound(pkt []byte) []byte {
	if c.isCompressing() {
		return huffman.Compress(pkt)
	}
	return pkt
}

// Send queues pkt for async delivery. Non-blocking: a full queue means
// a stalled peer, so the connection is torn down instead of blocking
// the caller.
func (c *Conn) Send(pkt []byte) error {
	select {
	case c.sendCh <- pkt:
		return nil
	default:
		c.CloseAsync()
		return fmt.Errorf("endpoint: send queue full, disconnecting")
	}
}

// SendSync queues pkt, blocking until it is accepted, the connection
// closes, or timeout elapses.
func (c *Conn) SendSync(pkt []byte, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case c.sendCh <- pkt:
		return nil
	case <-timer.C:
		return fmt.Errorf("endpoint: send timeout after %v", timeout)
	case <-c.closeCh:
		return fmt.Errorf("endpoint: closed")
	}
}

// SendPacket encodes p and queues it for delivery.
func (c *Conn) SendPacket(p interface{ Encode(*wire.Writer) }) error {
	w := wire.Get()
	defer w.Put()
	p.Encode(w)
	buf := make([]byte, w.Len())
	copy(buf, w.Bytes())
	return c.Send(buf)
}

// SendConsole writes text as a console message from "uoproxy" (spec
// §4.D speak_console), e.g. for the built-in "%" command replies.
func (c *Conn) SendConsole(text string) error {
	return c.SendPacket(wire.ConsoleMessage(text))
}

// CloseAsync signals WritePump and ReadLoop's callers to stop without
// blocking. Safe to call more than once.
func (c *Conn) CloseAsync() {
	c.closeOnce.Do(func() { close(c.closeCh) })
}

// Close closes the underlying connection and stops the write pump.
func (c *Conn) Close() error {
	c.CloseAsync()
	return c.conn.Close()
}
