package wire

// WorldItemV5 is the variable-length v5..v6.0.14 item-on-the-ground
// layout (opcode 0x1A). Optional trailing fields are gated by high bits
// of serial/x/y (spec §4.A): Serial's top bit marks a present Amount
// field; X's top bit marks a present Direction; Y's two top bits mark a
// present Hue and a present Flags byte respectively.
type WorldItemV5 struct {
	Serial           uint32
	ItemID           uint16
	ItemIDIncrement  int8
	HasAmount        bool
	Amount           uint16
	X                uint16
	Y                uint16
	HasDirection     bool
	Direction        byte
	Z                int8
	HasHue           bool
	Hue              uint16
	HasFlags         bool
	Flags            byte
}

const (
	serialAmountBit uint32 = 0x80000000
	xDirectionBit   uint16 = 0x8000
	yHueBit         uint16 = 0x8000
	yFlagsBit       uint16 = 0x4000
	coordMask       uint16 = 0x3FFF
)

func (p WorldItemV5) Encode(w *Writer) {
	start := w.Len()
	w.Byte(byte(OpWorldItem)).Uint16(0)

	serial := p.Serial
	if p.HasAmount {
		serial |= serialAmountBit
	}
	w.Uint32(serial).Uint16(p.ItemID).Int8(p.ItemIDIncrement)
	if p.HasAmount {
		w.Uint16(p.Amount)
	}

	x := p.X & coordMask
	if p.HasDirection {
		x |= xDirectionBit
	}
	y := p.Y & coordMask
	if p.HasHue {
		y |= yHueBit
	}
	if p.HasFlags {
		y |= yFlagsBit
	}
	w.Uint16(x).Uint16(y)
	if p.HasDirection {
		w.Byte(p.Direction)
	}
	w.Int8(p.Z)
	if p.HasHue {
		w.Uint16(p.Hue)
	}
	if p.HasFlags {
		w.Byte(p.Flags)
	}

	patchUint16Len(w, start)
}

func DecodeWorldItemV5(r *Reader) (WorldItemV5, error) {
	var p WorldItemV5
	serial, err := r.Uint32()
	if err != nil {
		return p, err
	}
	p.HasAmount = serial&serialAmountBit != 0
	p.Serial = serial &^ serialAmountBit

	if p.ItemID, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.ItemIDIncrement, err = r.Int8(); err != nil {
		return p, err
	}
	if p.HasAmount {
		if p.Amount, err = r.Uint16(); err != nil {
			return p, err
		}
	}

	x, err := r.Uint16()
	if err != nil {
		return p, err
	}
	p.HasDirection = x&xDirectionBit != 0
	p.X = x & coordMask

	y, err := r.Uint16()
	if err != nil {
		return p, err
	}
	p.HasHue = y&yHueBit != 0
	p.HasFlags = y&yFlagsBit != 0
	p.Y = y & coordMask

	if p.HasDirection {
		if p.Direction, err = r.Byte(); err != nil {
			return p, err
		}
	}
	if p.Z, err = r.Int8(); err != nil {
		return p, err
	}
	if p.HasHue {
		if p.Hue, err = r.Uint16(); err != nil {
			return p, err
		}
	}
	if p.HasFlags {
		if p.Flags, err = r.Byte(); err != nil {
			return p, err
		}
	}
	return p, nil
}

// WorldItem7 is the fixed 26-byte v7 item-on-the-ground layout
// (opcode 0xF3). All optional v5 fields are always present here.
type WorldItem7 struct {
	Serial          uint32
	ItemID          uint16
	ItemIDIncrement int8
	Amount          uint16
	X               uint16
	Y               uint16
	Z               int8
	Direction       byte
	Hue             uint16
	Flags           byte
	Reserved        [7]byte
}

func (p WorldItem7) Encode(w *Writer) {
	w.Byte(byte(OpWorldItem7)).
		Uint32(p.Serial).Uint16(p.ItemID).Int8(p.ItemIDIncrement).
		Uint16(p.Amount).Uint16(p.X).Uint16(p.Y).Int8(p.Z).
		Byte(p.Direction).Uint16(p.Hue).Byte(p.Flags).
		Raw(p.Reserved[:])
}

func DecodeWorldItem7(r *Reader) (WorldItem7, error) {
	var p WorldItem7
	var err error
	if p.Serial, err = r.Uint32(); err != nil {
		return p, err
	}
	if p.ItemID, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.ItemIDIncrement, err = r.Int8(); err != nil {
		return p, err
	}
	if p.Amount, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.X, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.Y, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.Z, err = r.Int8(); err != nil {
		return p, err
	}
	if p.Direction, err = r.Byte(); err != nil {
		return p, err
	}
	if p.Hue, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.Flags, err = r.Byte(); err != nil {
		return p, err
	}
	reserved, err := r.Bytes(7)
	if err != nil {
		return p, err
	}
	copy(p.Reserved[:], reserved)
	return p, nil
}

// WorldItem7ToV5 downgrades a v7 item packet to the variable v5 layout,
// setting each presence bit only when the corresponding field differs
// from the v5 "absent" default (spec §8 round-trip law). Amount's
// absent default is 0, not 1, matching the original's
// world_item_from_7.
func WorldItem7ToV5(p WorldItem7) WorldItemV5 {
	return WorldItemV5{
		Serial:          p.Serial,
		ItemID:          p.ItemID,
		ItemIDIncrement: p.ItemIDIncrement,
		HasAmount:       p.Amount != 0,
		Amount:          p.Amount,
		X:               p.X,
		Y:               p.Y,
		HasDirection:    p.Direction != 0,
		Direction:       p.Direction,
		Z:               p.Z,
		HasHue:          p.Hue != 0,
		Hue:             p.Hue,
		HasFlags:        p.Flags != 0,
		Flags:           p.Flags,
	}
}

// WorldItemV5ToV7 upgrades a v5 item packet to the fixed v7 layout,
// filling absent optional fields with their v5 defaults. Amount
// defaults to 0 when absent, matching the original's world_item_to_7.
func WorldItemV5ToV7(p WorldItemV5) WorldItem7 {
	out := WorldItem7{
		Serial:          p.Serial,
		ItemID:          p.ItemID,
		ItemIDIncrement: p.ItemIDIncrement,
		Amount:          0,
		X:               p.X,
		Y:               p.Y,
		Z:               p.Z,
		Direction:       0,
		Hue:             0,
		Flags:           0,
	}
	if p.HasAmount {
		out.Amount = p.Amount
	}
	if p.HasDirection {
		out.Direction = p.Direction
	}
	if p.HasHue {
		out.Hue = p.Hue
	}
	if p.HasFlags {
		out.Flags = p.Flags
	}
	return out
}
