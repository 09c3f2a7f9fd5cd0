package wire

// Walk is opcode 0x02, 7 bytes (spec §6).
type Walk struct {
	Direction byte
	Seq       byte
	Key       uint32
}

func (p Walk) Encode(w *Writer) {
	w.Byte(byte(OpWalk)).Byte(p.Direction).Byte(p.Seq).Uint32(p.Key)
}

func DecodeWalk(r *Reader) (Walk, error) {
	var p Walk
	var err error
	if p.Direction, err = r.Byte(); err != nil {
		return p, err
	}
	if p.Seq, err = r.Byte(); err != nil {
		return p, err
	}
	p.Key, err = r.Uint32()
	return p, err
}

// WalkAck is opcode 0x22, also used as Resynchronize (spec §6).
type WalkAck struct {
	Seq       byte
	Notoriety byte
}

func (p WalkAck) Encode(w *Writer) {
	w.Byte(byte(OpWalkAck)).Byte(p.Seq).Byte(p.Notoriety)
}

func DecodeWalkAck(r *Reader) (WalkAck, error) {
	var p WalkAck
	var err error
	if p.Seq, err = r.Byte(); err != nil {
		return p, err
	}
	p.Notoriety, err = r.Byte()
	return p, err
}

// WalkReject ("WalkCancel") is opcode 0x21: the server forces the
// client back to an authoritative position (spec §4.F).
type WalkReject struct {
	Seq       byte
	X         uint16
	Y         uint16
	Direction byte
	Z         int8
}

func (p WalkReject) Encode(w *Writer) {
	w.Byte(byte(OpWalkReject)).Byte(p.Seq).Uint16(p.X).Uint16(p.Y).Byte(p.Direction).Int8(p.Z)
}

func DecodeWalkReject(r *Reader) (WalkReject, error) {
	var p WalkReject
	var err error
	if p.Seq, err = r.Byte(); err != nil {
		return p, err
	}
	if p.X, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.Y, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.Direction, err = r.Byte(); err != nil {
		return p, err
	}
	p.Z, err = r.Int8()
	return p, err
}
