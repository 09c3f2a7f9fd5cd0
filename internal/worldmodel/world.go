// Package worldmodel holds the per-session mutable mirror of
// everything the upstream server has told a session about: the
// player's own position, every mobile and item it has mentioned, and a
// handful of ambient packets replayed verbatim to newly attached
// endpoints (spec §4.E). It never touches a socket; Session drives it
// from decoded server packets and reads it back out when admitting a
// new endpoint.
package worldmodel

import "github.com/MaxKellermann/uoproxy-sub000/internal/wire"

// Serial identifies a mobile or item. Values below MobileSerialLimit
// are mobiles; values at or above it are items (spec §3).
type Serial uint32

const MobileSerialLimit Serial = 0x40000000

func (s Serial) IsMobile() bool { return s < MobileSerialLimit }
func (s Serial) IsItem() bool   { return s >= MobileSerialLimit }

// PlacementKind tags Item.Placement.
type PlacementKind int

const (
	PlacementGround PlacementKind = iota
	PlacementInContainer
	PlacementEquipped
)

// Placement is the tagged union of where an item currently sits.
// Ground carries the full v7 item packet (canonical representation);
// InContainer and Equipped carry the packet that produced the
// placement, matching spec §3's "Item.placement is a tagged variant".
type Placement struct {
	Kind      PlacementKind
	Ground    wire.WorldItem7
	Container wire.ContainerUpdate
	Equip     wire.Equip
}

// ParentSerial returns the serial of the container or mobile this item
// sits in/on, or 0 for a ground item (spec §3).
func (p Placement) ParentSerial() Serial {
	switch p.Kind {
	case PlacementInContainer:
		return Serial(p.Container.ParentSerial)
	case PlacementEquipped:
		return Serial(p.Equip.ParentSerial)
	default:
		return 0
	}
}

// Item is one item the world has learned about.
type Item struct {
	Serial            Serial
	Placement         Placement
	ContainerOpen     *wire.ContainerOpen7
	AttachSequence    uint64
}

// Mobile is one mobile the world has learned about.
type Mobile struct {
	Serial            Serial
	LastIncoming      wire.MobileIncoming
	LastStatus        wire.MobileStatus
	HasIncoming       bool
	HasStatus         bool
}

// PlayerAnchor is the player's own authoritative position, set once by
// Start and kept current by MobileUpdate/MobileMoving/ZoneChange/Walk.
type PlayerAnchor struct {
	Serial    Serial
	Body      uint16
	X, Y      uint16
	Z         int16
	Direction byte
}

func (a PlayerAnchor) InGame() bool { return a.Serial != 0 }

// Ambient holds the verbatim replay-on-attach packets (spec §4.E).
type Ambient struct {
	Start              wire.Start
	HasStart           bool
	MapChange          wire.ExtendedMapChange
	HasMapChange       bool
	MapPatches         wire.ExtendedMapPatches
	HasMapPatches      bool
	Season             wire.Season
	HasSeason          bool
	SupportedFeatures  wire.SupportedFeatures6014
	HasSupportedFeatures bool
	GlobalLight        wire.GlobalLightLevel
	HasGlobalLight     bool
	PersonalLight      wire.PersonalLightLevel
	HasPersonalLight   bool
	WarMode            wire.WarMode
	HasWarMode         bool
	Target             wire.Target
	HasTarget          bool
	MobileUpdate       wire.MobileUpdate
	HasMobileUpdate    bool
}

// World is the mutable mirror owned by one Session (spec §3).
type World struct {
	PlayerAnchor       PlayerAnchor
	Ambient            Ambient
	Mobiles            map[Serial]*Mobile
	Items              map[Serial]*Item
	itemAttachSequence uint64
}

func New() *World {
	return &World{
		Mobiles: make(map[Serial]*Mobile),
		Items:   make(map[Serial]*Item),
	}
}

func (w *World) mobile(s Serial) *Mobile {
	m, ok := w.Mobiles[s]
	if !ok {
		m = &Mobile{Serial: s}
		w.Mobiles[s] = m
	}
	return m
}

func (w *World) item(s Serial) *Item {
	it, ok := w.Items[s]
	if !ok {
		it = &Item{Serial: s}
		w.Items[s] = it
	}
	return it
}

// nextAttachSequence returns a strictly increasing tag, never
// decremented for the life of the World (spec invariant, §3).
func (w *World) nextAttachSequence() uint64 {
	w.itemAttachSequence++
	return w.itemAttachSequence
}

// ApplyStart handles the authoritative Start packet: sets the player
// anchor, stashes it for replay, and clears any stale walk state the
// caller's walk reconciler should reset alongside this call.
func (w *World) ApplyStart(p wire.Start) {
	w.PlayerAnchor = PlayerAnchor{
		Serial: Serial(p.Serial), Body: p.Body,
		X: p.X, Y: p.Y, Z: p.Z, Direction: p.Direction,
	}
	w.Ambient.Start = p
	w.Ambient.HasStart = true
}

// ApplyWorldItem7 lazily creates/updates an item as a ground item,
// storing the canonical v7 layout regardless of which variant arrived
// on the wire (spec §4.E).
func (w *World) ApplyWorldItem7(p wire.WorldItem7) {
	it := w.item(Serial(p.Serial))
	it.Placement = Placement{Kind: PlacementGround, Ground: p}
}

// ApplyEquip lazily creates/updates an item as worn by a mobile.
func (w *World) ApplyEquip(p wire.Equip) {
	it := w.item(Serial(p.ItemSerial))
	it.Placement = Placement{Kind: PlacementEquipped, Equip: p}
}

// ApplyContainerOpen stashes the container-open packet for replay.
func (w *World) ApplyContainerOpen(serial Serial, p wire.ContainerOpen7) {
	it := w.item(serial)
	cp := p
	it.ContainerOpen = &cp
}

// ApplyContainerUpdate lazily creates/updates a child item placed
// inside a container.
func (w *World) ApplyContainerUpdate(p wire.ContainerUpdate) {
	it := w.item(Serial(p.ItemSerial))
	it.Placement = Placement{Kind: PlacementInContainer, Container: p}
}

// ApplyContainerContent bumps the attach sequence, places every listed
// child, and sweeps stale siblings of the first child's parent that
// were not touched by this refresh (spec §4.E).
func (w *World) ApplyContainerContent(items []wire.ContainerUpdate) {
	if len(items) == 0 {
		return
	}
	seq := w.nextAttachSequence()
	parent := Serial(items[0].ParentSerial)

	for _, child := range items {
		it := w.item(Serial(child.ItemSerial))
		it.Placement = Placement{Kind: PlacementInContainer, Container: child}
		it.AttachSequence = seq
	}

	for s, it := range w.Items {
		if it.Placement.Kind == PlacementInContainer &&
			it.Placement.ParentSerial() == parent &&
			it.AttachSequence < seq {
			w.deleteItemSubtree(s)
		}
	}
}

// ApplyDelete removes serial; if it names a mobile, every item whose
// parent chain reaches it is deep-deleted too, and likewise for an
// item's own subtree (spec §4.E).
func (w *World) ApplyDelete(serial Serial) {
	if _, ok := w.Mobiles[serial]; ok {
		delete(w.Mobiles, serial)
		w.deleteItemsWithAncestor(serial)
		return
	}
	if _, ok := w.Items[serial]; ok {
		w.deleteItemSubtree(serial)
	}
}

func (w *World) deleteItemSubtree(serial Serial) {
	delete(w.Items, serial)
	w.deleteItemsWithAncestor(serial)
}

// deleteItemsWithAncestor removes every item whose placement chain
// leads back to ancestor, recursively.
func (w *World) deleteItemsWithAncestor(ancestor Serial) {
	for {
		removed := false
		for s, it := range w.Items {
			if it.Placement.ParentSerial() == ancestor {
				delete(w.Items, s)
				w.deleteItemsWithAncestor(s)
				removed = true
			}
		}
		if !removed {
			return
		}
	}
}

// ApplyMobileIncoming creates/updates a mobile and applies each inline
// equipment entry as a synthetic Equip (spec §4.E).
func (w *World) ApplyMobileIncoming(p wire.MobileIncoming) {
	m := w.mobile(Serial(p.Serial))
	m.LastIncoming = p
	m.HasIncoming = true

	for _, e := range p.Equipment {
		w.ApplyEquip(wire.Equip{
			ItemSerial:   e.ItemSerial,
			ItemID:       e.ItemID,
			Layer:        e.Layer,
			ParentSerial: p.Serial,
			Hue:          e.Hue,
		})
	}
}

// ApplyMobileStatus creates/updates a mobile, keeping whichever status
// carries strictly more fields (spec §4.E: "keep the greater one").
func (w *World) ApplyMobileStatus(p wire.MobileStatus) {
	m := w.mobile(Serial(p.Serial))
	if !m.HasStatus || p.Flags > m.LastStatus.Flags {
		m.LastStatus = p
		m.HasStatus = true
	}
}

// ApplyMobileUpdate updates a mobile's full visible state; if it's the
// player, also patches the anchor and ambient mirror.
func (w *World) ApplyMobileUpdate(p wire.MobileUpdate) {
	// MobileUpdate has no inline equipment; fold it into the
	// mobile's last-known incoming snapshot for replay purposes.
	m := w.mobile(Serial(p.Serial))
	m.LastIncoming.Serial = p.Serial
	m.LastIncoming.Body = p.Body
	m.LastIncoming.X = p.X
	m.LastIncoming.Y = p.Y
	m.LastIncoming.Z = p.Z
	m.LastIncoming.Direction = p.Direction
	m.LastIncoming.Hue = p.Hue
	m.HasIncoming = true

	if Serial(p.Serial) == w.PlayerAnchor.Serial {
		w.PlayerAnchor.X, w.PlayerAnchor.Y = p.X, p.Y
		w.PlayerAnchor.Z = int16(p.Z)
		w.PlayerAnchor.Direction = p.Direction
	}
	w.Ambient.MobileUpdate = p
	w.Ambient.HasMobileUpdate = true
}

// ApplyMobileMoving updates a mobile's incremental position; if it's
// the player, also patches the anchor and MobileUpdate mirror.
func (w *World) ApplyMobileMoving(p wire.MobileMoving) {
	m := w.mobile(Serial(p.Serial))
	m.LastIncoming.X, m.LastIncoming.Y, m.LastIncoming.Z = p.X, p.Y, p.Z
	m.LastIncoming.Direction = p.Direction

	if Serial(p.Serial) == w.PlayerAnchor.Serial {
		w.PlayerAnchor.X, w.PlayerAnchor.Y = p.X, p.Y
		w.PlayerAnchor.Z = int16(p.Z)
		w.PlayerAnchor.Direction = p.Direction
		w.Ambient.MobileUpdate.X, w.Ambient.MobileUpdate.Y = p.X, p.Y
		w.Ambient.MobileUpdate.Z = p.Z
		w.Ambient.MobileUpdate.Direction = p.Direction
	}
}

// ApplyZoneChange patches the player position and MobileUpdate mirror.
func (w *World) ApplyZoneChange(p wire.ZoneChange) {
	w.PlayerAnchor.X, w.PlayerAnchor.Y = p.X, p.Y
	w.PlayerAnchor.Z = p.Z
	w.PlayerAnchor.Direction = p.Direction
	w.Ambient.MobileUpdate.X, w.Ambient.MobileUpdate.Y = p.X, p.Y
	w.Ambient.MobileUpdate.Z = int8(p.Z)
	w.Ambient.MobileUpdate.Direction = p.Direction
}

// ApplyWalked applies a confirmed walk step's resulting position to
// both the anchor and the MobileUpdate mirror (driven by the walk
// reconciler, spec §4.F step 3).
func (w *World) ApplyWalked(x, y uint16, direction, notoriety byte) {
	w.PlayerAnchor.X, w.PlayerAnchor.Y = x, y
	w.PlayerAnchor.Direction = direction
	w.Ambient.MobileUpdate.X, w.Ambient.MobileUpdate.Y = x, y
	w.Ambient.MobileUpdate.Direction = direction
}

func (w *World) ApplySeason(p wire.Season)                     { w.Ambient.Season, w.Ambient.HasSeason = p, true }
func (w *World) ApplyGlobalLight(p wire.GlobalLightLevel)       { w.Ambient.GlobalLight, w.Ambient.HasGlobalLight = p, true }
func (w *World) ApplyWarMode(p wire.WarMode)                    { w.Ambient.WarMode, w.Ambient.HasWarMode = p, true }
func (w *World) ApplyTarget(p wire.Target)                      { w.Ambient.Target, w.Ambient.HasTarget = p, true }
func (w *World) ApplyMapChange(p wire.ExtendedMapChange)        { w.Ambient.MapChange, w.Ambient.HasMapChange = p, true }
func (w *World) ApplyMapPatches(p wire.ExtendedMapPatches)      { w.Ambient.MapPatches, w.Ambient.HasMapPatches = p, true }

// ApplySupportedFeatures stores the widened form internally regardless
// of which variant arrived on the wire (spec §4.A translator table).
func (w *World) ApplySupportedFeatures(p wire.SupportedFeatures6014) {
	w.Ambient.SupportedFeatures, w.Ambient.HasSupportedFeatures = p, true
}

// ApplyPersonalLight stores the packet only if it names the player's
// own serial: spec §9's Open Question resolves to "filter at apply
// time", so a stale or third-party PersonalLightLevel is discarded.
func (w *World) ApplyPersonalLight(p wire.PersonalLightLevel) {
	if Serial(p.Serial) != w.PlayerAnchor.Serial {
		return
	}
	w.Ambient.PersonalLight, w.Ambient.HasPersonalLight = p, true
}

// Clear removes every mobile and item, used when a reconnect
// invalidates the entire world (spec §4.G "Reconnect"). Callers are
// responsible for broadcasting Delete for every removed serial before
// calling this, since Clear itself does not emit packets.
func (w *World) Clear() {
	w.Mobiles = make(map[Serial]*Mobile)
	w.Items = make(map[Serial]*Item)
}

// AllSerials returns every mobile and item serial currently tracked,
// used by Session to broadcast Delete for each during a reconnect.
func (w *World) AllSerials() []Serial {
	out := make([]Serial, 0, len(w.Mobiles)+len(w.Items))
	for s := range w.Mobiles {
		out = append(out, s)
	}
	for s := range w.Items {
		out = append(out, s)
	}
	return out
}
