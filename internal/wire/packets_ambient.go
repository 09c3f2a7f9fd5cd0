package wire

// Season is opcode 0x2C, 3 bytes.
type Season struct {
	Season byte
	Play   byte
}

func (p Season) Encode(w *Writer) {
	w.Byte(byte(OpSeason)).Byte(p.Season).Byte(p.Play)
}

func DecodeSeason(r *Reader) (Season, error) {
	var p Season
	var err error
	if p.Season, err = r.Byte(); err != nil {
		return p, err
	}
	p.Play, err = r.Byte()
	return p, err
}

// GlobalLightLevel is opcode 0x4F, 2 bytes.
type GlobalLightLevel struct {
	Level int8
}

func (p GlobalLightLevel) Encode(w *Writer) {
	w.Byte(byte(OpGlobalLight)).Int8(p.Level)
}

func DecodeGlobalLightLevel(r *Reader) (GlobalLightLevel, error) {
	level, err := r.Int8()
	return GlobalLightLevel{Level: level}, err
}

// PersonalLightLevel is opcode 0x4E, 6 bytes: per spec §9 Open Question,
// worldmodel keeps it for replay only when it names the player's own
// serial; this codec and the live forward to endpoints do not filter.
type PersonalLightLevel struct {
	Serial uint32
	Level  int8
}

func (p PersonalLightLevel) Encode(w *Writer) {
	w.Byte(byte(OpPersonalLight)).Uint32(p.Serial).Int8(p.Level)
}

func DecodePersonalLightLevel(r *Reader) (PersonalLightLevel, error) {
	var p PersonalLightLevel
	var err error
	if p.Serial, err = r.Uint32(); err != nil {
		return p, err
	}
	p.Level, err = r.Int8()
	return p, err
}

// WarMode is opcode 0x72, 2 bytes (spec §6); only the first byte is
// meaningful, the rest of the historical layout is padding uoproxy does
// not need to preserve beyond round-tripping zero.
type WarMode struct {
	War byte
}

func (p WarMode) Encode(w *Writer) {
	w.Byte(byte(OpWarMode)).Byte(p.War)
}

func DecodeWarMode(r *Reader) (WarMode, error) {
	war, err := r.Byte()
	return WarMode{War: war}, err
}

// Target is opcode 0x6C, 19 bytes.
type Target struct {
	AllowGround byte
	TargetID    uint32
	Flags       byte
	Serial      uint32
	X           uint16
	Y           uint16
	Z           int16
	Graphic     uint16
}

func (p Target) Encode(w *Writer) {
	w.Byte(byte(OpTarget)).Byte(p.AllowGround).Uint32(p.TargetID).Byte(p.Flags).
		Uint32(p.Serial).Uint16(p.X).Uint16(p.Y).Int16(p.Z).Uint16(p.Graphic)
}

func DecodeTarget(r *Reader) (Target, error) {
	var p Target
	var err error
	if p.AllowGround, err = r.Byte(); err != nil {
		return p, err
	}
	if p.TargetID, err = r.Uint32(); err != nil {
		return p, err
	}
	if p.Flags, err = r.Byte(); err != nil {
		return p, err
	}
	if p.Serial, err = r.Uint32(); err != nil {
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
	p.Graphic, err = r.Uint16()
	return p, err
}

// SupportedFeatures is opcode 0xB9, 3 bytes (pre-v6.0.14).
type SupportedFeatures struct {
	Flags uint16
}

func (p SupportedFeatures) Encode(w *Writer) {
	w.Byte(byte(OpSupportedFeatures)).Uint16(p.Flags)
}

func DecodeSupportedFeatures(r *Reader) (SupportedFeatures, error) {
	flags, err := r.Uint16()
	return SupportedFeatures{Flags: flags}, err
}

// SupportedFeatures6014 is the widened v6.0.14+ layout, 5 bytes.
type SupportedFeatures6014 struct {
	Flags uint32
}

func (p SupportedFeatures6014) Encode(w *Writer) {
	w.Byte(byte(OpSupportedFeatures)).Uint32(p.Flags)
}

func DecodeSupportedFeatures6014(r *Reader) (SupportedFeatures6014, error) {
	flags, err := r.Uint32()
	return SupportedFeatures6014{Flags: flags}, err
}

// SupportedFeaturesToWide upgrades the narrow pre-6.0.14 flag word,
// preserving the low 16 bits.
func SupportedFeaturesToWide(p SupportedFeatures) SupportedFeatures6014 {
	return SupportedFeatures6014{Flags: uint32(p.Flags)}
}

// SupportedFeaturesToNarrow truncates the wide flag word to 16 bits
// (spec §8: lossy when high bits are set, but none of the tracked
// feature bits below v6.0.14 exceed the low word).
func SupportedFeaturesToNarrow(p SupportedFeatures6014) SupportedFeatures {
	return SupportedFeatures{Flags: uint16(p.Flags)}
}

// LoginComplete ("ReDrawAll") is opcode 0x55, 1 byte: the final message
// of the attach replay, after which the endpoint transitions to IN_GAME.
type LoginComplete struct{}

func (p LoginComplete) Encode(w *Writer) {
	w.Byte(byte(OpLoginComplete))
}

// SpeakAscii is opcode 0x1C, variable length: used by uoproxy to inject
// console command replies into the client's chat window.
type SpeakAscii struct {
	Serial  uint32
	Graphic int16
	Type    byte
	Hue     uint16
	Font    uint16
	Name    string
	Text    string
}

// Fixed identity uoproxy uses when injecting console replies (spec §4.H).
const (
	ConsoleSenderName = "uoproxy"
	ConsoleHue        = 0x35
	ConsoleFont       = 3
	ConsoleSerial     = 0xFFFFFFFF
	ConsoleGraphic    = -1
)

func ConsoleMessage(text string) SpeakAscii {
	return SpeakAscii{
		Serial:  ConsoleSerial,
		Graphic: ConsoleGraphic,
		Type:    0,
		Hue:     ConsoleHue,
		Font:    ConsoleFont,
		Name:    ConsoleSenderName,
		Text:    text,
	}
}

func (p SpeakAscii) Encode(w *Writer) {
	start := w.Len()
	w.Byte(byte(OpSpeakAscii)).Uint16(0).
		Uint32(p.Serial).Int16(p.Graphic).Byte(p.Type).Uint16(p.Hue).Uint16(p.Font).
		FixedASCII(p.Name, 30).NulString(p.Text)
	patchUint16Len(w, start)
}

func DecodeSpeakAscii(r *Reader) (SpeakAscii, error) {
	var p SpeakAscii
	var err error
	if p.Serial, err = r.Uint32(); err != nil {
		return p, err
	}
	if p.Graphic, err = r.Int16(); err != nil {
		return p, err
	}
	if p.Type, err = r.Byte(); err != nil {
		return p, err
	}
	if p.Hue, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.Font, err = r.Uint16(); err != nil {
		return p, err
	}
	if p.Name, err = r.FixedASCII(30); err != nil {
		return p, err
	}
	p.Text, err = r.NulString()
	return p, err
}

// CreateCharacter is opcode 0x00, 100 bytes total: carries a client IP
// field that the antispy filter rewrites before forwarding upstream
// (spec §4.H).
type CreateCharacter struct {
	Credentials   CredentialsFragment
	Slot          uint32
	ClientIP      uint32
	ProfileFlags  uint32
	Stats         [15]byte
	Skills        [10]byte
	Unused        [2]byte
}

// AntispyClientIP is the IP uoproxy substitutes for the real client
// address, matching the value the teacher's antispy filter historically
// rewrites to (192.168.1.2) so the server never observes the real client.
var AntispyClientIP uint32 = 0xC0A80102

func (p CreateCharacter) Encode(w *Writer) {
	w.Byte(byte(OpCreateCharacter))
	p.Credentials.Encode(w)
	w.Uint32(p.Slot).Uint32(p.ClientIP).Uint32(p.ProfileFlags).
		Raw(p.Stats[:]).Raw(p.Skills[:]).Raw(p.Unused[:])
}

func DecodeCreateCharacter(r *Reader) (CreateCharacter, error) {
	var p CreateCharacter
	var err error
	if p.Credentials, err = DecodeCredentialsFragment(r); err != nil {
		return p, err
	}
	if p.Slot, err = r.Uint32(); err != nil {
		return p, err
	}
	if p.ClientIP, err = r.Uint32(); err != nil {
		return p, err
	}
	if p.ProfileFlags, err = r.Uint32(); err != nil {
		return p, err
	}
	stats, err := r.Bytes(15)
	if err != nil {
		return p, err
	}
	copy(p.Stats[:], stats)
	skills, err := r.Bytes(10)
	if err != nil {
		return p, err
	}
	copy(p.Skills[:], skills)
	unused, err := r.Bytes(2)
	if err != nil {
		return p, err
	}
	copy(p.Unused[:], unused)
	return p, nil
}

// Spy is opcode 0x88, 5 bytes: the antispy filter drops it outright
// (spec §4.H) rather than forwarding, since it leaks client hardware
// identity with no gameplay purpose.
type Spy struct {
	Unknown uint32
}

func DecodeSpy(r *Reader) (Spy, error) {
	v, err := r.Uint32()
	return Spy{Unknown: v}, err
}

// Hardware is opcode 0xD9: reported client hardware/driver info. The
// antispy filter drops it the same way as Spy.
type Hardware struct {
	Raw []byte
}

func (p Hardware) Encode(w *Writer) {
	w.Byte(byte(OpHardware)).Raw(p.Raw)
}

func DecodeHardware(r *Reader) (Hardware, error) {
	raw, err := r.Bytes(4)
	return Hardware{Raw: raw}, err
}

// BenignHardware is the fixed reply uoproxy's antispy filter sends
// upstream in place of the client's own Hardware report, once per
// session right after LoginComplete (spec §4.H).
func BenignHardware() Hardware {
	return Hardware{Raw: []byte{0, 0, 0, 0}}
}

// LiftReject is opcode 0x27, 2 bytes: uoproxy synthesizes this to refuse
// lift/drop input while a session sits in its reconnect window.
type LiftReject struct {
	Reason byte
}

func (p LiftReject) Encode(w *Writer) {
	w.Byte(byte(OpLiftReject)).Byte(p.Reason)
}

func DecodeLiftReject(r *Reader) (LiftReject, error) {
	reason, err := r.Byte()
	return LiftReject{Reason: reason}, err
}

// ExtendedCloseGump is the 0xBF/0x0004 subcommand.
type ExtendedCloseGump struct {
	GumpTypeID uint32
	ButtonID   uint32
}

func (p ExtendedCloseGump) Encode(w *Writer) {
	start := w.Len()
	w.Byte(byte(OpExtended)).Uint16(0).Uint16(ExtCloseGump).
		Uint32(p.GumpTypeID).Uint32(p.ButtonID)
	patchUint16Len(w, start)
}

// ExtendedMapChange is the 0xBF/0x0008 subcommand: switches the active
// map/facet (spec §4.E attach replay, step 2).
type ExtendedMapChange struct {
	MapID byte
}

func (p ExtendedMapChange) Encode(w *Writer) {
	start := w.Len()
	w.Byte(byte(OpExtended)).Uint16(0).Uint16(ExtMapChange).Byte(p.MapID)
	patchUint16Len(w, start)
}

// DecodeExtendedMapChange decodes the subcommand body, positioned right
// after the subcommand ID (spec §4.A).
func DecodeExtendedMapChange(r *Reader) (ExtendedMapChange, error) {
	id, err := r.Byte()
	return ExtendedMapChange{MapID: id}, err
}

// ExtendedMapPatches is the 0xBF/0x0018 subcommand: a static tile-patch
// count table, forwarded verbatim by uoproxy during attach replay.
type ExtendedMapPatches struct {
	Payload []byte
}

func (p ExtendedMapPatches) Encode(w *Writer) {
	start := w.Len()
	w.Byte(byte(OpExtended)).Uint16(0).Uint16(ExtMapPatches).Raw(p.Payload)
	patchUint16Len(w, start)
}

// DecodeExtendedMapPatches reads the remainder of the subcommand body
// verbatim; n is the number of bytes left in the packet.
func DecodeExtendedMapPatches(r *Reader, n int) (ExtendedMapPatches, error) {
	payload, err := r.Bytes(n)
	return ExtendedMapPatches{Payload: payload}, err
}

// DecodeExtendedSubcommand peeks the subcommand ID of a 0xBF packet
// without consuming the whole body, so callers can dispatch by kind.
func DecodeExtendedSubcommand(r *Reader) (uint16, error) {
	return r.Uint16()
}
