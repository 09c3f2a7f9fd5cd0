package wire

// Packets exchanged during the INIT..CHAR_LIST portion of the state
// machine (spec §4.G, §6).

// Seed is the 0xEF handshake packet a v6.0.14+ client sends first.
type Seed struct {
	Seed     uint32
	Major    uint32
	Minor    uint32
	Revision uint32
	Patch    uint32
}

func (p Seed) Encode(w *Writer) {
	w.Byte(byte(OpSeed)).Uint32(p.Seed).Uint32(p.Major).Uint32(p.Minor).Uint32(p.Revision).Uint32(p.Patch)
}

func DecodeSeed(r *Reader) (Seed, error) {
	var p Seed
	var err error
	if p.Seed, err = r.Uint32(); err != nil {
		return p, err
	}
	if p.Major, err = r.Uint32(); err != nil {
		return p, err
	}
	if p.Minor, err = r.Uint32(); err != nil {
		return p, err
	}
	if p.Revision, err = r.Uint32(); err != nil {
		return p, err
	}
	p.Patch, err = r.Uint32()
	return p, err
}

// CredentialsFragment is the 60-byte {username, password} pair shared by
// AccountLogin, GameLogin and CharList (spec §3).
type CredentialsFragment struct {
	Username string
	Password string
}

func (c CredentialsFragment) Encode(w *Writer) {
	w.FixedASCII(c.Username, 30).FixedASCII(c.Password, 30)
}

func DecodeCredentialsFragment(r *Reader) (CredentialsFragment, error) {
	var c CredentialsFragment
	var err error
	if c.Username, err = r.FixedASCII(30); err != nil {
		return c, err
	}
	c.Password, err = r.FixedASCII(30)
	return c, err
}

// Equal compares both fields byte-wise (spec §3: used as an attach key).
func (c CredentialsFragment) Equal(o CredentialsFragment) bool {
	return c.Username == o.Username && c.Password == o.Password
}

// AccountLogin is opcode 0x80, 62 bytes total.
type AccountLogin struct {
	Credentials CredentialsFragment
}

func (p AccountLogin) Encode(w *Writer) {
	w.Byte(byte(OpAccountLogin))
	p.Credentials.Encode(w)
	w.Byte(0)
}

func DecodeAccountLogin(r *Reader) (AccountLogin, error) {
	var p AccountLogin
	var err error
	p.Credentials, err = DecodeCredentialsFragment(r)
	if err != nil {
		return p, err
	}
	_, err = r.Byte()
	return p, err
}

// AccountLoginReject is opcode 0x82 (spec §7).
type AccountLoginReject struct {
	Reason byte
}

func (p AccountLoginReject) Encode(w *Writer) {
	w.Byte(byte(OpAccountLoginReject)).Byte(p.Reason)
}

// GameServerEntry is one 40-byte entry in ServerList.
type GameServerEntry struct {
	Index   uint16
	Name    string
	Full    byte
	TZ      byte
	Address uint32 // raw big-endian IPv4
}

func (e GameServerEntry) Encode(w *Writer) {
	w.Uint16(e.Index).FixedASCII(e.Name, 32).Byte(e.Full).Byte(e.TZ).Uint32(e.Address)
}

func decodeGameServerEntry(r *Reader) (GameServerEntry, error) {
	var e GameServerEntry
	var err error
	if e.Index, err = r.Uint16(); err != nil {
		return e, err
	}
	if e.Name, err = r.FixedASCII(32); err != nil {
		return e, err
	}
	if e.Full, err = r.Byte(); err != nil {
		return e, err
	}
	if e.TZ, err = r.Byte(); err != nil {
		return e, err
	}
	e.Address, err = r.Uint32()
	return e, err
}

// ServerList is opcode 0xA8, variable length.
type ServerList struct {
	Servers []GameServerEntry
}

func (p ServerList) Encode(w *Writer) {
	start := w.Len()
	w.Byte(byte(OpServerList)).Uint16(0).Byte(0x5D).Uint16(uint16(len(p.Servers)))
	for _, s := range p.Servers {
		s.Encode(w)
	}
	patchUint16Len(w, start)
}

func DecodeServerList(r *Reader) (ServerList, error) {
	var p ServerList
	if _, err := r.Byte(); err != nil {
		return p, err
	}
	count, err := r.Uint16()
	if err != nil {
		return p, err
	}
	p.Servers = make([]GameServerEntry, 0, count)
	for i := 0; i < int(count); i++ {
		e, err := decodeGameServerEntry(r)
		if err != nil {
			return p, err
		}
		p.Servers = append(p.Servers, e)
	}
	return p, nil
}

// PlayServer is opcode 0xA0.
type PlayServer struct {
	Index uint16
}

func (p PlayServer) Encode(w *Writer) {
	w.Byte(byte(OpPlayServer)).Uint16(p.Index)
}

func DecodePlayServer(r *Reader) (PlayServer, error) {
	idx, err := r.Uint16()
	return PlayServer{Index: idx}, err
}

// Relay is opcode 0x8C, 11 bytes.
type Relay struct {
	IP     uint32
	Port   uint16
	AuthID uint32
}

func (p Relay) Encode(w *Writer) {
	w.Byte(byte(OpRelay)).Uint32(p.IP).Uint16(p.Port).Uint32(p.AuthID)
}

func DecodeRelay(r *Reader) (Relay, error) {
	var p Relay
	var err error
	if p.IP, err = r.Uint32(); err != nil {
		return p, err
	}
	if p.Port, err = r.Uint16(); err != nil {
		return p, err
	}
	p.AuthID, err = r.Uint32()
	return p, err
}

// GameLogin is opcode 0x91, 65 bytes.
type GameLogin struct {
	AuthID      uint32
	Credentials CredentialsFragment
}

func (p GameLogin) Encode(w *Writer) {
	w.Byte(byte(OpGameLogin)).Uint32(p.AuthID)
	p.Credentials.Encode(w)
}

func DecodeGameLogin(r *Reader) (GameLogin, error) {
	var p GameLogin
	var err error
	if p.AuthID, err = r.Uint32(); err != nil {
		return p, err
	}
	p.Credentials, err = DecodeCredentialsFragment(r)
	return p, err
}

// CharacterEntry is one 60-byte entry in CharList.
type CharacterEntry struct {
	Name     string
	Password string
}

func (e CharacterEntry) Encode(w *Writer) {
	w.FixedASCII(e.Name, 30).FixedASCII(e.Password, 30)
}

func decodeCharacterEntry(r *Reader) (CharacterEntry, error) {
	var e CharacterEntry
	var err error
	if e.Name, err = r.FixedASCII(30); err != nil {
		return e, err
	}
	e.Password, err = r.FixedASCII(30)
	return e, err
}

// CharList is opcode 0xA9, variable length.
type CharList struct {
	Characters []CharacterEntry
	CityCount  byte
	Flags      uint32
}

func (p CharList) Encode(w *Writer) {
	start := w.Len()
	w.Byte(byte(OpCharList)).Uint16(0).Byte(byte(len(p.Characters)))
	for _, c := range p.Characters {
		c.Encode(w)
	}
	w.Byte(p.CityCount).Uint32(p.Flags)
	patchUint16Len(w, start)
}

func DecodeCharList(r *Reader) (CharList, error) {
	var p CharList
	count, err := r.Byte()
	if err != nil {
		return p, err
	}
	p.Characters = make([]CharacterEntry, 0, count)
	for i := 0; i < int(count); i++ {
		c, err := decodeCharacterEntry(r)
		if err != nil {
			return p, err
		}
		p.Characters = append(p.Characters, c)
	}
	if p.CityCount, err = r.Byte(); err != nil {
		return p, err
	}
	p.Flags, err = r.Uint32()
	return p, err
}

// PlayCharacter is opcode 0x5D.
type PlayCharacter struct {
	Slot uint32
}

func (p PlayCharacter) Encode(w *Writer) {
	w.Byte(byte(OpPlayCharacter)).Uint32(p.Slot)
}

func DecodePlayCharacter(r *Reader) (PlayCharacter, error) {
	slot, err := r.Uint32()
	return PlayCharacter{Slot: slot}, err
}

// ClientVersion is opcode 0xBD, variable length, NUL-terminated ASCII.
type ClientVersion struct {
	Version string
}

func (p ClientVersion) Encode(w *Writer) {
	start := w.Len()
	w.Byte(byte(OpClientVersion)).Uint16(0).NulString(p.Version)
	patchUint16Len(w, start)
}

func DecodeClientVersion(r *Reader) (ClientVersion, error) {
	v, err := r.NulString()
	return ClientVersion{Version: v}, err
}

// Ping is opcode 0x73.
type Ping struct {
	ID byte
}

func (p Ping) Encode(w *Writer) {
	w.Byte(byte(OpPing)).Byte(p.ID)
}

func DecodePing(r *Reader) (Ping, error) {
	id, err := r.Byte()
	return Ping{ID: id}, err
}

// patchUint16Len backpatches a variable-length packet's big-endian
// length field (offset 1, relative to start) once the whole body has
// been written.
func patchUint16Len(w *Writer, start int) {
	b := w.Bytes()
	total := len(b) - start
	b[start+1] = byte(total >> 8)
	b[start+2] = byte(total)
}
