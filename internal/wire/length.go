package wire

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
)

//go:embed fixtures/lengths.yaml
var lengthsFixture []byte

type lengthOverride struct {
	Opcode     int    `yaml:"opcode"`
	MinVersion string `yaml:"min_version"`
	Length     int    `yaml:"length"`
}

type lengthsFile struct {
	Variable  []int            `yaml:"variable"`
	Fixed     map[int]int      `yaml:"fixed"`
	Overrides []lengthOverride `yaml:"overrides"`
}

var (
	variableOpcodes map[byte]bool
	fixedLengths    map[byte]int
	versionOverride map[byte][]struct {
		min protover.Version
		n   int
	}
)

func versionFromName(s string) protover.Version {
	switch s {
	case "V5":
		return protover.V5
	case "V6":
		return protover.V6
	case "V6_0_5":
		return protover.V6_0_5
	case "V6_0_14":
		return protover.V6_0_14
	case "V7":
		return protover.V7
	default:
		return protover.Unknown
	}
}

func init() {
	var f lengthsFile
	if err := yaml.Unmarshal(lengthsFixture, &f); err != nil {
		panic(fmt.Sprintf("wire: invalid embedded lengths fixture: %v", err))
	}

	variableOpcodes = make(map[byte]bool, len(f.Variable))
	for _, op := range f.Variable {
		variableOpcodes[byte(op)] = true
	}

	fixedLengths = make(map[byte]int, len(f.Fixed))
	for op, n := range f.Fixed {
		fixedLengths[byte(op)] = n
	}

	versionOverride = make(map[byte][]struct {
		min protover.Version
		n   int
	})
	for _, o := range f.Overrides {
		op := byte(o.Opcode)
		versionOverride[op] = append(versionOverride[op], struct {
			min protover.Version
			n   int
		}{versionFromName(o.MinVersion), o.Length})
	}
}

// LengthResult is the outcome of resolving a packet's length from its
// first few bytes (spec §4.A).
type LengthResult struct {
	Invalid bool // opcode not assigned
	Need    int  // buffer must grow to at least this many bytes before re-resolving
	Have    int  // the packet is exactly this many bytes long, including the opcode
}

// PacketLength resolves how many bytes the packet starting at src[0]
// occupies, given the negotiated protocol version. It never reads past
// src's current length; Need(n) means "call again once len(src) >= n".
func PacketLength(src []byte, proto protover.Version) LengthResult {
	if len(src) < 1 {
		return LengthResult{Need: 1}
	}
	opcode := src[0]

	if variableOpcodes[opcode] {
		if len(src) < 3 {
			return LengthResult{Need: 3}
		}
		total := int(binary.BigEndian.Uint16(src[1:3]))
		if total == 0 {
			// spec §8: zero-length variable packet must disconnect, not loop.
			return LengthResult{Invalid: true}
		}
		return LengthResult{Have: total}
	}

	n, ok := fixedLengths[opcode]
	if !ok {
		return LengthResult{Invalid: true}
	}

	for _, ov := range versionOverride[opcode] {
		if proto >= ov.min {
			n = ov.n
		}
	}

	return LengthResult{Have: n}
}
