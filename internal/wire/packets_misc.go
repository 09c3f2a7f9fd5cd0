package wire

// LiftRequest is opcode 0x07, 7 bytes: a client asking to pick up an
// item off the ground or out of a container.
type LiftRequest struct {
	Serial uint32
	Amount uint16
}

func (p LiftRequest) Encode(w *Writer) {
	w.Byte(0x07).Uint32(p.Serial).Uint16(p.Amount)
}

func DecodeLiftRequest(r *Reader) (LiftRequest, error) {
	var p LiftRequest
	var err error
	if p.Serial, err = r.Uint32(); err != nil {
		return p, err
	}
	p.Amount, err = r.Uint16()
	return p, err
}

// Drop is opcode 0x08, pre-v6 layout, 14 bytes (spec §6): drops a held
// item at a world location or into another container.
type Drop struct {
	Serial     uint32
	X          uint16
	Y          uint16
	Z          int8
	DestSerial uint32
}

func (p Drop) Encode(w *Writer) {
	w.Byte(byte(OpDrop)).Uint32(p.Serial).Uint16(p.X).Uint16(p.Y).Int8(p.Z).Uint32(p.DestSerial)
}

func DecodeDrop(r *Reader) (Drop, error) {
	var p Drop
	var err error
	if p.Serial, err = r.Uint32(); err != nil {
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
	p.DestSerial, err = r.Uint32()
	return p, err
}

// Drop6 is the v6+ layout: identical save for an extra unused pad byte
// before DestSerial (spec §6), 15 bytes.
type Drop6 struct {
	Serial     uint32
	X          uint16
	Y          uint16
	Z          int8
	Unknown    byte
	DestSerial uint32
}

func (p Drop6) Encode(w *Writer) {
	w.Byte(byte(OpDrop)).Uint32(p.Serial).Uint16(p.X).Uint16(p.Y).Int8(p.Z).Byte(p.Unknown).Uint32(p.DestSerial)
}

func DecodeDrop6(r *Reader) (Drop6, error) {
	var p Drop6
	var err error
	if p.Serial, err = r.Uint32(); err != nil {
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
	if p.Unknown, err = r.Byte(); err != nil {
		return p, err
	}
	p.DestSerial, err = r.Uint32()
	return p, err
}

// DropToV6 upgrades a v5 Drop to the v6 layout, zeroing the pad byte.
func DropToV6(p Drop) Drop6 {
	return Drop6{Serial: p.Serial, X: p.X, Y: p.Y, Z: p.Z, DestSerial: p.DestSerial}
}

// Drop6ToV5 downgrades a v6 Drop to the v5 layout, discarding the pad
// byte (spec §8 round-trip law: the pad is zero-restored on the way
// back up, never carried as meaningful data).
func Drop6ToV5(p Drop6) Drop {
	return Drop{Serial: p.Serial, X: p.X, Y: p.Y, Z: p.Z, DestSerial: p.DestSerial}
}

// Resynchronize reuses the WalkAck opcode (0x22) with seq=0, notoriety=0
// as the client's request to reset the server-side walk sequence (spec
// §4.F).
func Resynchronize() WalkAck { return WalkAck{Seq: 0, Notoriety: 0} }
