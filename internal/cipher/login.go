// Package cipher implements the client→server login encryption used
// before a session authenticates (spec §4.C). It is a rolling
// substitution cipher keyed per client build, not a block cipher: the
// key only narrows down which build is talking by brute-force trial
// decryption of the first AccountLogin packet.
package cipher

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/login_keys.yaml
var keysFixture []byte

type loginKey struct {
	Version string `yaml:"version"`
	Key1    uint32 `yaml:"key1"`
	Key2    uint32 `yaml:"key2"`
}

type keysFile struct {
	Keys []loginKey `yaml:"keys"`
}

var loginKeys []loginKey

func init() {
	var f keysFile
	if err := yaml.Unmarshal(keysFixture, &f); err != nil {
		panic(fmt.Sprintf("cipher: invalid login_keys fixture: %v", err))
	}
	loginKeys = f.Keys
}

// LoginCipher decrypts the client→server stream during the
// ACCOUNT_LOGIN state, grounded on original_source's LoginEncryption
// (table1/table2 rolling state, key1/key2 fixed per build).
type LoginCipher struct {
	table1, table2 uint32
	key1, key2     uint32
}

// NewLoginCipher seeds a cipher from the 4-byte handshake seed the
// client sends first (spec §4.C).
func NewLoginCipher(seed uint32, key1, key2 uint32) *LoginCipher {
	return &LoginCipher{
		table1: ((^seed)^0x00001357)<<16 | ((seed ^ 0x0000aaaa) & 0x0000ffff),
		table2: (seed^0x43210000)>>16 | ((^seed ^ 0xabcd0000) & 0xffff0000),
		key1:   key1,
		key2:   key2,
	}
}

// Keys returns the (key1, key2) pair this cipher was built with, so a
// caller relaying the login stream upstream can seed a fresh cipher
// for the outbound leg with the same per-build keys (spec §4.C).
func (c *LoginCipher) Keys() (key1, key2 uint32) { return c.key1, c.key2 }

// Decrypt transforms src in place semantics into dst (which may alias
// src), mutating the cipher's rolling state.
func (c *LoginCipher) Decrypt(dst, src []byte) {
	for i, b := range src {
		dst[i] = b ^ byte(c.table1)

		esi := c.table1 << 31
		eax := (c.table2 >> 1) | esi
		eax ^= c.key1 - 1
		edx := c.table2 << 31
		eax >>= 1
		ecx := c.table1 >> 1
		eax |= esi
		ecx |= edx
		eax ^= c.key1
		ecx ^= c.key2

		c.table1 = ecx
		c.table2 = eax
	}
}

// accountLoginValid reports whether a 62-byte buffer looks like a
// structurally valid AccountLogin packet: opcode 0x80 and both
// credential fields NUL-terminated at their max width (spec §4.C).
func accountLoginValid(p []byte) bool {
	return len(p) == 62 && p[0] == 0x80 && p[30] == 0x00 && p[60] == 0x00
}

// DetectAndDecrypt brute-forces the per-build key against the first
// AccountLogin packet, returning the decrypted packet and a cipher
// primed to decrypt the rest of the stream, or ok=false if no key in
// the table decrypts it into a structurally valid packet (spec §4.C:
// the endpoint falls back to treating the stream as unencrypted).
func DetectAndDecrypt(seed uint32, first []byte) (decrypted []byte, c *LoginCipher, ok bool) {
	if len(first) != 62 {
		return nil, nil, false
	}
	out := make([]byte, len(first))
	for _, k := range loginKeys {
		trial := NewLoginCipher(seed, k.Key1, k.Key2)
		trial.Decrypt(out, first)
		if accountLoginValid(out) {
			result := make([]byte, len(out))
			copy(result, out)
			return result, trial, true
		}
	}
	return nil, nil, false
}
