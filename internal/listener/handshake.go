package listener

import (
	"fmt"
	"io"
	"net"

	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
)

// handshakeResult is everything the listener learns from a connection's
// opening bytes, before any endpoint.Conn framing exists (spec §4.C).
type handshakeResult struct {
	proto protover.Version
	seed  uint32

	// isRelay is true for a razor-workaround reconnection: the client
	// skips AccountLogin entirely and opens straight onto GameLogin
	// carrying the auth_id handed out in the original Relay packet
	// (spec §4.G).
	isRelay     bool
	relayAuth   uint32
	credentials wire.CredentialsFragment

	// key1/key2 are the login cipher keys recovered from the first
	// AccountLogin record, zero when the stream turned out to be
	// plaintext.
	key1, key2 uint32

	// firstFrame is the decrypted AccountLogin record's raw bytes (for
	// isRelay, the raw GameLogin record instead), ready to hand to the
	// session unmodified.
	firstFrame []byte
}

// resolveHandshake reads the opening bytes of a freshly accepted
// connection and classifies it. Two shapes exist (spec §4.C):
//
//   - A v6.0.14+ client sends a 21-byte 0xEF Seed packet, then either a
//     62-byte AccountLogin (fresh login) or a 65-byte GameLogin
//     (razor-workaround reclaim).
//   - An older client sends a raw 4-byte seed with no opcode, then the
//     same AccountLogin/GameLogin choice.
//
// AccountLogin may be encrypted with one of the known per-build login
// ciphers; resolveHandshake brute-forces the key via
// cipher.DetectAndDecrypt, falling back to plaintext if none match
// (spec §4.D).
func resolveHandshake(conn net.Conn) (handshakeResult, error) {
	var hs handshakeResult

	lead := make([]byte, 4)
	if _, err := io.ReadFull(conn, lead); err != nil {
		return hs, fmt.Errorf("listener: reading seed: %w", err)
	}

	if lead[0] == byte(wire.OpSeed) {
		// Seed is 21 bytes total (1 opcode + 20 body); lead already
		// holds the opcode plus the first 3 body bytes.
		rest := make([]byte, 17)
		if _, err := io.ReadFull(conn, rest); err != nil {
			return hs, fmt.Errorf("listener: reading seed packet: %w", err)
		}
		seedPkt, err := wire.DecodeSeed(wire.NewReader(append(lead[1:], rest...)))
		if err != nil {
			return hs, fmt.Errorf("listener: decoding seed packet: %w", err)
		}
		hs.seed = seedPkt.Seed
		hs.proto = versionFromSeed(seedPkt)
	} else {
		hs.seed = uint32(lead[0])<<24 | uint32(lead[1])<<16 | uint32(lead[2])<<8 | uint32(lead[3])
		hs.proto = protover.V5
	}

	opcode := make([]byte, 1)
	if _, err := io.ReadFull(conn, opcode); err != nil {
		return hs, fmt.Errorf("listener: reading first opcode: %w", err)
	}

	switch opcode[0] {
	case byte(wire.OpAccountLogin):
		return resolveAccountLogin(conn, hs)
	case byte(wire.OpGameLogin):
		return resolveGameLogin(conn, hs)
	default:
		return hs, fmt.Errorf("listener: unexpected opcode 0x%02x after seed", opcode[0])
	}
}

func versionFromSeed(s wire.Seed) protover.Version {
	dotted := fmt.Sprintf("%d.%d.%d", s.Major, s.Minor, s.Revision)
	if v := protover.FromString(dotted); v != protover.Unknown {
		return v
	}
	return protover.V6_0_14
}

// resolveAccountLogin reads the fixed 61 remaining bytes of a 62-byte
// AccountLogin record (the opcode byte was already consumed by the
// caller) and recovers the login cipher, if any, in use.
func resolveAccountLogin(conn net.Conn, hs handshakeResult) (handshakeResult, error) {
	body := make([]byte, 61)
	if _, err := io.ReadFull(conn, body); err != nil {
		return hs, fmt.Errorf("listener: reading account login body: %w", err)
	}

	full := append([]byte{byte(wire.OpAccountLogin)}, body...)
	decrypted, key1, key2, ok := cipherDetect(hs.seed, full)
	if !ok {
		decrypted = full
	}
	hs.key1, hs.key2 = key1, key2
	hs.firstFrame = decrypted

	p, err := wire.DecodeAccountLogin(wire.NewReader(decrypted[1:]))
	if err != nil {
		return hs, fmt.Errorf("listener: decoding account login: %w", err)
	}
	hs.credentials = p.Credentials
	return hs, nil
}

// resolveGameLogin reads the remaining 64 bytes of a 65-byte GameLogin
// record: this is always the razor-workaround reclaim path, since a
// brand new connection always starts with AccountLogin (spec §4.G).
func resolveGameLogin(conn net.Conn, hs handshakeResult) (handshakeResult, error) {
	body := make([]byte, 64)
	if _, err := io.ReadFull(conn, body); err != nil {
		return hs, fmt.Errorf("listener: reading game login body: %w", err)
	}

	full := append([]byte{byte(wire.OpGameLogin)}, body...)
	p, err := wire.DecodeGameLogin(wire.NewReader(full[1:]))
	if err != nil {
		return hs, fmt.Errorf("listener: decoding game login: %w", err)
	}

	hs.isRelay = true
	hs.relayAuth = p.AuthID
	hs.credentials = p.Credentials
	hs.firstFrame = full
	return hs, nil
}
