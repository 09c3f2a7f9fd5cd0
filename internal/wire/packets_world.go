package wire

// Start is opcode 0x1B, 37 bytes (spec §6): the authoritative snapshot
// the server sends once per login, establishing the player's anchor.
type Start struct {
	Serial    uint32
	Body      uint16
	X         uint16
	Y         uint16
	Z         int16
	Direction byte
	MapWidth  uint16
	MapHeight uint16
}

func (p Start) Encode(w *Writer) {
	w.Byte(byte(OpStart)).
		Uint32(p.Serial).
		Uint32(0).
		Uint16(p.Body).
		Uint16(p.X).Uint16(p.Y).Int16(p.Z).
		Byte(p.Direction).
		Byte(0).
		Uint32(0).
		Uint16(0).Uint16(0).
		Uint16(p.MapWidth).Uint16(p.MapHeight).
		Zero(6)
}

func DecodeStart(r *Reader) (Start, error) {
	var p Start
	var err error
	if p.Serial, err = r.Uint32(); err != nil {
		return p, err
	}
	if err = r.Skip(4); err != nil {
		return p, err
	}
	if p.Body, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.X, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.Y, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.Z, err = r.Int16(); err != nil {
		return p, err
	}
	if p.Direction, err = r.Byte(); err != nil {
		return p, err
	}
	if err = r.Skip(1 + 4 + 2 + 2); err != nil {
		return p, err
	}
	if p.MapWidth, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.MapHeight, err = r.Uint16(); err != nil {
		return p, err
	}
	err = r.Skip(6)
	return p, err
}

// Equip is opcode 0x2E: places an item into a mobile's paperdoll slot.
type Equip struct {
	ItemSerial  uint32
	ItemID      uint16
	Layer       byte
	ParentSerial uint32
	Hue         uint16
}

func (p Equip) Encode(w *Writer) {
	w.Byte(byte(OpEquip)).Uint32(p.ItemSerial).Uint16(p.ItemID).Byte(0).Byte(p.Layer).Uint32(p.ParentSerial).Uint16(p.Hue)
}

func DecodeEquip(r *Reader) (Equip, error) {
	var p Equip
	var err error
	if p.ItemSerial, err = r.Uint32(); err != nil {
		return p, err
	}
	if p.ItemID, err = r.Uint16(); err != nil {
		return p, err
	}
	if err = r.Skip(1); err != nil {
		return p, err
	}
	if p.Layer, err = r.Byte(); err != nil {
		return p, err
	}
	if p.ParentSerial, err = r.Uint32(); err != nil {
		return p, err
	}
	p.Hue, err = r.Uint16()
	return p, err
}

// ContainerOpen is opcode 0x24 (pre-v7): opens a container's gump.
type ContainerOpen struct {
	ContainerSerial uint32
	GumpID          uint16
}

func (p ContainerOpen) Encode(w *Writer) {
	w.Byte(byte(OpContainerOpen)).Uint32(p.ContainerSerial).Uint16(p.GumpID)
}

func DecodeContainerOpen(r *Reader) (ContainerOpen, error) {
	var p ContainerOpen
	var err error
	if p.ContainerSerial, err = r.Uint32(); err != nil {
		return p, err
	}
	p.GumpID, err = r.Uint16()
	return p, err
}

// ContainerOpen7 is the v7 variant, carrying an extra unused boundary box.
type ContainerOpen7 struct {
	ContainerSerial uint32
	GumpID          uint16
	BoundsX1        uint16
	BoundsY1        uint16
	BoundsX2        uint16
	BoundsY2        uint16
}

func (p ContainerOpen7) Encode(w *Writer) {
	w.Byte(byte(OpContainerOpen)).Uint32(p.ContainerSerial).Uint16(p.GumpID).
		Uint16(p.BoundsX1).Uint16(p.BoundsY1).Uint16(p.BoundsX2).Uint16(p.BoundsY2)
}

func ContainerOpenToV7(p ContainerOpen) ContainerOpen7 {
	return ContainerOpen7{ContainerSerial: p.ContainerSerial, GumpID: p.GumpID}
}

func ContainerOpen7ToV5(p ContainerOpen7) ContainerOpen {
	return ContainerOpen{ContainerSerial: p.ContainerSerial, GumpID: p.GumpID}
}

// ContainerUpdate is opcode 0x25 (v6+): a single child item placed
// inside a container, in the fixed post-v6 layout.
type ContainerUpdate struct {
	ItemSerial   uint32
	ItemID       uint16
	Unknown1     byte
	Amount       uint16
	X            uint16
	Y            uint16
	ParentSerial uint32
	Hue          uint16
}

func (p ContainerUpdate) Encode(w *Writer) {
	w.Byte(byte(OpContainerUpdate)).Uint32(p.ItemSerial).Uint16(p.ItemID).Byte(p.Unknown1).
		Uint16(p.Amount).Uint16(p.X).Uint16(p.Y).Uint32(p.ParentSerial).Uint16(p.Hue)
}

func DecodeContainerUpdate(r *Reader) (ContainerUpdate, error) {
	var p ContainerUpdate
	var err error
	if p.ItemSerial, err = r.Uint32(); err != nil {
		return p, err
	}
	if p.ItemID, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.Unknown1, err = r.Byte(); err != nil {
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
	if p.ParentSerial, err = r.Uint32(); err != nil {
		return p, err
	}
	p.Hue, err = r.Uint16()
	return p, err
}

// ContainerUpdate6 is the pre-v6 layout: identical save for the missing
// Unknown1 pad byte (spec §8: round trip zero-restores it).
type ContainerUpdate6 struct {
	ItemSerial   uint32
	ItemID       uint16
	Amount       uint16
	X            uint16
	Y            uint16
	ParentSerial uint32
	Hue          uint16
}

func (p ContainerUpdate6) Encode(w *Writer) {
	w.Byte(byte(OpContainerUpdate)).Uint32(p.ItemSerial).Uint16(p.ItemID).
		Uint16(p.Amount).Uint16(p.X).Uint16(p.Y).Uint32(p.ParentSerial).Uint16(p.Hue)
}

func DecodeContainerUpdate6(r *Reader) (ContainerUpdate6, error) {
	var p ContainerUpdate6
	var err error
	if p.ItemSerial, err = r.Uint32(); err != nil {
		return p, err
	}
	if p.ItemID, err = r.Uint16(); err != nil {
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
	if p.ParentSerial, err = r.Uint32(); err != nil {
		return p, err
	}
	p.Hue, err = r.Uint16()
	return p, err
}

// ContainerUpdate5ToV6 upgrades a v5 container-update to the v6 layout,
// zeroing the new Unknown1 pad.
func ContainerUpdate5ToV6(p ContainerUpdate6) ContainerUpdate {
	return ContainerUpdate{
		ItemSerial: p.ItemSerial, ItemID: p.ItemID, Unknown1: 0,
		Amount: p.Amount, X: p.X, Y: p.Y, ParentSerial: p.ParentSerial, Hue: p.Hue,
	}
}

// ContainerUpdate6ToV5 downgrades, dropping Unknown1 (spec §8: identity
// on the fields present in v5).
func ContainerUpdate6ToV5(p ContainerUpdate) ContainerUpdate6 {
	return ContainerUpdate6{
		ItemSerial: p.ItemSerial, ItemID: p.ItemID,
		Amount: p.Amount, X: p.X, Y: p.Y, ParentSerial: p.ParentSerial, Hue: p.Hue,
	}
}

// ContainerContent is opcode 0x3C (v7+ layout): the full listing of a
// container's immediate children, replacing prior contents in one shot
// (spec §4.E — drives the item_attach_sequence sweep).
type ContainerContent struct {
	Items []ContainerUpdate
}

func (p ContainerContent) Encode(w *Writer) {
	start := w.Len()
	w.Byte(byte(OpContainerContent)).Uint16(0).Uint16(uint16(len(p.Items)))
	for _, it := range p.Items {
		w.Uint32(it.ItemSerial).Uint16(it.ItemID).Byte(it.Unknown1).
			Uint16(it.Amount).Uint16(it.X).Uint16(it.Y).Uint32(it.ParentSerial).Uint16(it.Hue)
	}
	patchUint16Len(w, start)
}

func DecodeContainerContent(r *Reader) (ContainerContent, error) {
	var p ContainerContent
	count, err := r.Uint16()
	if err != nil {
		return p, err
	}
	p.Items = make([]ContainerUpdate, 0, count)
	for i := 0; i < int(count); i++ {
		var it ContainerUpdate
		if it.ItemSerial, err = r.Uint32(); err != nil {
			return p, err
		}
		if it.ItemID, err = r.Uint16(); err != nil {
			return p, err
		}
		if it.Unknown1, err = r.Byte(); err != nil {
			return p, err
		}
		if it.Amount, err = r.Uint16(); err != nil {
			return p, err
		}
		if it.X, err = r.Uint16(); err != nil {
			return p, err
		}
		if it.Y, err = r.Uint16(); err != nil {
			return p, err
		}
		if it.ParentSerial, err = r.Uint32(); err != nil {
			return p, err
		}
		if it.Hue, err = r.Uint16(); err != nil {
			return p, err
		}
		p.Items = append(p.Items, it)
	}
	return p, nil
}

// ContainerContent6 is the pre-v6 layout, one Unknown1 byte shorter per item.
type ContainerContent6 struct {
	Items []ContainerUpdate6
}

func (p ContainerContent6) Encode(w *Writer) {
	start := w.Len()
	w.Byte(byte(OpContainerContent)).Uint16(0).Uint16(uint16(len(p.Items)))
	for _, it := range p.Items {
		w.Uint32(it.ItemSerial).Uint16(it.ItemID).
			Uint16(it.Amount).Uint16(it.X).Uint16(it.Y).Uint32(it.ParentSerial).Uint16(it.Hue)
	}
	patchUint16Len(w, start)
}

// DeleteObject is opcode 0x1D.
type DeleteObject struct {
	Serial uint32
}

func (p DeleteObject) Encode(w *Writer) {
	w.Byte(byte(OpDeleteObject)).Uint32(p.Serial)
}

func DecodeDeleteObject(r *Reader) (DeleteObject, error) {
	s, err := r.Uint32()
	return DeleteObject{Serial: s}, err
}

// MobileEquipEntry is one inline equipment slot carried by
// MobileIncoming (spec §6: 9 bytes with hue, 7 bytes without).
type MobileEquipEntry struct {
	ItemSerial uint32
	ItemID     uint16 // high bit (masked off here) selects HasHue
	Layer      byte
	HasHue     bool
	Hue        uint16
}

// MobileIncoming is opcode 0x78, variable length.
type MobileIncoming struct {
	Serial    uint32
	Body      uint16
	X         uint16
	Y         uint16
	Z         int8
	Direction byte
	Hue       uint16
	Flags     byte
	Notoriety byte
	Equipment []MobileEquipEntry
}

const equipItemIDHueBit uint16 = 0x8000

func (p MobileIncoming) Encode(w *Writer) {
	start := w.Len()
	w.Byte(byte(OpMobileIncoming)).Uint16(0).
		Uint32(p.Serial).Uint16(p.Body).
		Uint16(p.X).Uint16(p.Y).Int8(p.Z).Byte(p.Direction).
		Uint16(p.Hue).Byte(p.Flags)
	for _, e := range p.Equipment {
		itemID := e.ItemID
		if e.HasHue {
			itemID |= equipItemIDHueBit
		}
		w.Uint32(e.ItemSerial).Uint16(itemID).Byte(e.Layer)
		if e.HasHue {
			w.Uint16(e.Hue)
		}
	}
	w.Uint32(0) // terminator serial
	w.Byte(p.Notoriety)
	patchUint16Len(w, start)
}

func DecodeMobileIncoming(r *Reader, bodyEnd int) (MobileIncoming, error) {
	var p MobileIncoming
	var err error
	if p.Serial, err = r.Uint32(); err != nil {
		return p, err
	}
	if p.Body, err = r.Uint16(); err != nil {
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

	for {
		serial, err := r.Uint32()
		if err != nil {
			return p, err
		}
		if serial == 0 {
			break
		}
		itemID, err := r.Uint16()
		if err != nil {
			return p, err
		}
		layer, err := r.Byte()
		if err != nil {
			return p, err
		}
		entry := MobileEquipEntry{
			ItemSerial: serial,
			ItemID:     itemID &^ equipItemIDHueBit,
			Layer:      layer,
			HasHue:     itemID&equipItemIDHueBit != 0,
		}
		if entry.HasHue {
			if entry.Hue, err = r.Uint16(); err != nil {
				return p, err
			}
		}
		p.Equipment = append(p.Equipment, entry)
	}

	p.Notoriety, err = r.Byte()
	return p, err
}

// MobileStatus is opcode 0x11, variable length. Flags selects which of
// the optional trailing stat fields are present; a higher Flags value
// carries strictly more fields (spec §4.E: "keep the greater one").
type MobileStatus struct {
	Serial      uint32
	Name        string
	HP          uint16
	MaxHP       uint16
	Flags       byte
	Str         uint16
	Dex         uint16
	Int         uint16
	Stamina     uint16
	MaxStamina  uint16
	Mana        uint16
	MaxMana     uint16
}

const (
	StatusFlagBasic byte = 0x00
	StatusFlagStats byte = 0x01
	StatusFlagFull  byte = 0x02
)

func (p MobileStatus) Encode(w *Writer) {
	start := w.Len()
	w.Byte(byte(OpMobileStatus)).Uint16(0).
		Uint32(p.Serial).NulString(p.Name).
		Uint16(p.HP).Uint16(p.MaxHP).Byte(p.Flags)
	if p.Flags >= StatusFlagStats {
		w.Uint16(p.Str).Uint16(p.Dex).Uint16(p.Int).
			Uint16(p.Stamina).Uint16(p.MaxStamina)
	}
	if p.Flags >= StatusFlagFull {
		w.Uint16(p.Mana).Uint16(p.MaxMana)
	}
	patchUint16Len(w, start)
}

func DecodeMobileStatus(r *Reader) (MobileStatus, error) {
	var p MobileStatus
	var err error
	if p.Serial, err = r.Uint32(); err != nil {
		return p, err
	}
	if p.Name, err = r.NulString(); err != nil {
		return p, err
	}
	if p.HP, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.MaxHP, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.Flags, err = r.Byte(); err != nil {
		return p, err
	}
	if p.Flags >= StatusFlagStats {
		if p.Str, err = r.Uint16(); err != nil {
			return p, err
		}
		if p.Dex, err = r.Uint16(); err != nil {
			return p, err
		}
		if p.Int, err = r.Uint16(); err != nil {
			return p, err
		}
		if p.Stamina, err = r.Uint16(); err != nil {
			return p, err
		}
		if p.MaxStamina, err = r.Uint16(); err != nil {
			return p, err
		}
	}
	if p.Flags >= StatusFlagFull {
		if p.Mana, err = r.Uint16(); err != nil {
			return p, err
		}
		if p.MaxMana, err = r.Uint16(); err != nil {
			return p, err
		}
	}
	return p, nil
}

// MobileUpdate is opcode 0x20, 19 bytes (the last one a zero pad): a
// teleport/refresh of a mobile's full visible state.
type MobileUpdate struct {
	Serial    uint32
	Body      uint16
	ItemID    uint16
	Hue       uint16
	Flags     byte
	X         uint16
	Y         uint16
	Z         int8
	Direction byte
}

func (p MobileUpdate) Encode(w *Writer) {
	w.Byte(byte(OpMobileUpdate)).
		Uint32(p.Serial).Uint16(p.Body).Uint16(p.ItemID).Uint16(p.Hue).Byte(p.Flags).
		Uint16(p.X).Uint16(p.Y).Int8(p.Z).Byte(p.Direction).Byte(0)
}

func DecodeMobileUpdate(r *Reader) (MobileUpdate, error) {
	var p MobileUpdate
	var err error
	if p.Serial, err = r.Uint32(); err != nil {
		return p, err
	}
	if p.Body, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.ItemID, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.Hue, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.Flags, err = r.Byte(); err != nil {
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
	err = r.Skip(1)
	return p, err
}

// MobileMoving is opcode 0x77, 17 bytes: an incremental position/facing
// update for a mobile other than the player.
type MobileMoving struct {
	Serial    uint32
	Body      uint16
	X         uint16
	Y         uint16
	Z         int8
	Direction byte
	Hue       uint16
	Flags     byte
	Notoriety byte
}

func (p MobileMoving) Encode(w *Writer) {
	w.Byte(byte(OpMobileMoving)).
		Uint32(p.Serial).Uint16(p.Body).Uint16(p.X).Uint16(p.Y).Int8(p.Z).
		Byte(p.Direction).Uint16(p.Hue).Byte(p.Flags).Byte(p.Notoriety)
}

func DecodeMobileMoving(r *Reader) (MobileMoving, error) {
	var p MobileMoving
	var err error
	if p.Serial, err = r.Uint32(); err != nil {
		return p, err
	}
	if p.Body, err = r.Uint16(); err != nil {
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
	p.Notoriety, err = r.Byte()
	return p, err
}

// ZoneChange is opcode 0xF0, 12 bytes: a cross-region teleport.
type ZoneChange struct {
	X         uint16
	Y         uint16
	Z         int16
	Direction byte
}

func (p ZoneChange) Encode(w *Writer) {
	w.Byte(byte(OpZoneChange)).Uint16(p.X).Uint16(p.Y).Int16(p.Z).Byte(p.Direction).Zero(4)
}

func DecodeZoneChange(r *Reader) (ZoneChange, error) {
	var p ZoneChange
	var err error
	if p.X, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.Y, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.Z, err = r.Int16(); err != nil {
		return p, err
	}
	if p.Direction, err = r.Byte(); err != nil {
		return p, err
	}
	err = r.Skip(4)
	return p, err
}
