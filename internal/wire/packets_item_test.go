package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldItemV5EncodeDecodeRoundTrip(t *testing.T) {
	p := WorldItemV5{
		Serial: 0x1000, ItemID: 0xEED, ItemIDIncrement: 1,
		HasAmount: true, Amount: 5,
		X: 100, Y: 200,
		HasDirection: true, Direction: 3,
		Z: -5,
		HasHue:   true,
		Hue:      42,
		HasFlags: true,
		Flags:    1,
	}
	w := Get()
	defer w.Put()
	p.Encode(w)

	// skip the 3-byte opcode+length header the embedded variable-length
	// framing expects the caller to have already consumed.
	got, err := DecodeWorldItemV5(NewReader(w.Bytes()[3:]))
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

// TestWorldItem7ToV5AmountSentinel pins the original's amount != 0
// presence test (world_item_from_7): a v7 item with Amount == 1 (a
// single reagent, a common real value) must translate to a v5 item
// that DOES carry the amount field, not one that omits it.
func TestWorldItem7ToV5AmountSentinel(t *testing.T) {
	v7 := WorldItem7{Serial: 1, ItemID: 2, Amount: 1}
	v5 := WorldItem7ToV5(v7)
	assert.True(t, v5.HasAmount)
	assert.Equal(t, uint16(1), v5.Amount)

	absent := WorldItem7ToV5(WorldItem7{Serial: 1, ItemID: 2, Amount: 0})
	assert.False(t, absent.HasAmount)
}

// TestWorldItemV5ToV7AmountSentinel pins the reverse direction
// (world_item_to_7): a genuinely absent v5 Amount must default to 0 on
// the wire, not 1.
func TestWorldItemV5ToV7AmountSentinel(t *testing.T) {
	absent := WorldItemV5ToV7(WorldItemV5{Serial: 1, ItemID: 2, HasAmount: false})
	assert.Equal(t, uint16(0), absent.Amount)

	present := WorldItemV5ToV7(WorldItemV5{Serial: 1, ItemID: 2, HasAmount: true, Amount: 1})
	assert.Equal(t, uint16(1), present.Amount)
}

func TestWorldItemTranslatorRoundTrip(t *testing.T) {
	cases := []WorldItem7{
		{Serial: 10, ItemID: 20, Amount: 1, X: 5, Y: 6, Z: 1, Direction: 2, Hue: 3, Flags: 4},
		{Serial: 10, ItemID: 20, Amount: 0, X: 5, Y: 6},
	}
	for _, v7 := range cases {
		v5 := WorldItem7ToV5(v7)
		back := WorldItemV5ToV7(v5)
		assert.Equal(t, v7, back)
	}
}

func TestWorldItem7EncodeDecodeRoundTrip(t *testing.T) {
	p := WorldItem7{
		Serial: 0x1234, ItemID: 0xEED, ItemIDIncrement: -1,
		Amount: 7, X: 10, Y: 20, Z: -2,
		Direction: 1, Hue: 9, Flags: 1,
		Reserved: [7]byte{1, 2, 3, 4, 5, 6, 7},
	}
	w := Get()
	defer w.Put()
	p.Encode(w)

	got, err := DecodeWorldItem7(NewReader(w.Bytes()[1:]))
	require.NoError(t, err)
	assert.Equal(t, p, got)
}
