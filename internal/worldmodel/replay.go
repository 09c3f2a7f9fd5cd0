package worldmodel

import (
	"sort"

	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
)

// Envelope pairs a decoded packet with its opcode so a caller can
// Encode() it without a type switch at every call site.
type Envelope struct {
	Opcode  wire.Opcode
	Packet  interface{ Encode(*wire.Writer) }
}

// Replay produces the ordered packet sequence a newly admitted
// endpoint must receive to catch up to the world's current state
// (spec §4.E "Attach replay"), downgrading each packet to the variant
// the endpoint's negotiated protocol understands.
func (w *World) Replay(proto protover.Version) []Envelope {
	var out []Envelope
	emit := func(op wire.Opcode, p interface{ Encode(*wire.Writer) }) {
		out = append(out, Envelope{Opcode: op, Packet: p})
	}

	if w.Ambient.HasStart {
		emit(wire.OpStart, w.Ambient.Start)
	}
	if w.Ambient.HasMapChange {
		emit(wire.OpExtended, w.Ambient.MapChange)
	}
	if w.Ambient.HasMapPatches {
		emit(wire.OpExtended, w.Ambient.MapPatches)
	}
	if w.Ambient.HasSeason {
		emit(wire.OpSeason, w.Ambient.Season)
	}
	if w.Ambient.HasSupportedFeatures {
		if proto >= protover.V6_0_14 {
			emit(wire.OpSupportedFeatures, w.Ambient.SupportedFeatures)
		} else {
			emit(wire.OpSupportedFeatures, wire.SupportedFeaturesToNarrow(w.Ambient.SupportedFeatures))
		}
	}
	if w.Ambient.HasGlobalLight {
		emit(wire.OpGlobalLight, w.Ambient.GlobalLight)
	}
	if w.Ambient.HasPersonalLight {
		emit(wire.OpPersonalLight, w.Ambient.PersonalLight)
	}
	if w.Ambient.HasMobileUpdate {
		emit(wire.OpMobileUpdate, w.Ambient.MobileUpdate)
	}
	if w.Ambient.HasWarMode {
		emit(wire.OpWarMode, w.Ambient.WarMode)
	}

	// Mobiles: order is not semantically significant but must be
	// stable for tests, so walk serials sorted.
	mobileSerials := make([]Serial, 0, len(w.Mobiles))
	for s := range w.Mobiles {
		mobileSerials = append(mobileSerials, s)
	}
	sort.Slice(mobileSerials, func(i, j int) bool { return mobileSerials[i] < mobileSerials[j] })
	for _, s := range mobileSerials {
		m := w.Mobiles[s]
		if m.HasIncoming {
			emit(wire.OpMobileIncoming, m.LastIncoming)
		}
		if m.HasStatus {
			emit(wire.OpMobileStatus, m.LastStatus)
		}
	}

	// Items: recursive parent-before-child walk, cycle-safe via a
	// visited set (the attach_sequence tag exists to sweep stale
	// children, not to break cycles, but a malformed/cyclic parent
	// chain must not hang the replay).
	visited := make(map[Serial]bool, len(w.Items))
	itemSerials := make([]Serial, 0, len(w.Items))
	for s := range w.Items {
		itemSerials = append(itemSerials, s)
	}
	sort.Slice(itemSerials, func(i, j int) bool { return itemSerials[i] < itemSerials[j] })

	var emitItem func(s Serial)
	emitItem = func(s Serial) {
		if visited[s] {
			return
		}
		visited[s] = true
		it, ok := w.Items[s]
		if !ok {
			return
		}
		parent := it.Placement.ParentSerial()
		if parent != 0 {
			if _, isItem := w.Items[parent]; isItem {
				emitItem(parent)
			}
		}
		emitItemPacket(emit, it, proto)
		if it.ContainerOpen != nil {
			if proto >= protover.V7 {
				emit(wire.OpContainerOpen, *it.ContainerOpen)
			} else {
				emit(wire.OpContainerOpen, wire.ContainerOpen7ToV5(*it.ContainerOpen))
			}
		}
	}
	for _, s := range itemSerials {
		emitItem(s)
	}

	emit(wire.OpLoginComplete, wire.LoginComplete{})
	return out
}

func emitItemPacket(emit func(wire.Opcode, interface{ Encode(*wire.Writer) }), it *Item, proto protover.Version) {
	switch it.Placement.Kind {
	case PlacementGround:
		if proto >= protover.V7 {
			emit(wire.OpWorldItem7, it.Placement.Ground)
		} else {
			emit(wire.OpWorldItem, wire.WorldItem7ToV5(it.Placement.Ground))
		}
	case PlacementInContainer:
		if proto >= protover.V6 {
			emit(wire.OpContainerUpdate, it.Placement.Container)
		} else {
			emit(wire.OpContainerUpdate, wire.ContainerUpdate6ToV5(it.Placement.Container))
		}
	case PlacementEquipped:
		emit(wire.OpEquip, it.Placement.Equip)
	}
}
