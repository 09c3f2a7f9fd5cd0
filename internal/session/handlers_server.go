package session

import (
	"github.com/asynkron/protoactor-go/actor"

	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/walk"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
	"github.com/MaxKellermann/uoproxy-sub000/internal/worldmodel"
)

// upstreamHandler reacts to one packet received from the real server
// (spec §4.G's upstream-direction dispatch table).
type upstreamHandler func(s *Session, ctx actor.Context, data []byte) verdict

var upstreamHandlers [256]upstreamHandler

func init() {
	upstreamHandlers[wire.OpAccountLoginReject] = handleUpstreamAccountLoginReject
	upstreamHandlers[wire.OpServerList] = handleUpstreamServerList
	upstreamHandlers[wire.OpRelay] = handleUpstreamRelay
	upstreamHandlers[wire.OpCharList] = handleUpstreamCharList
	upstreamHandlers[wire.OpStart] = handleUpstreamStart
	upstreamHandlers[wire.OpLoginComplete] = handleUpstreamLoginComplete
	upstreamHandlers[wire.OpWorldItem] = handleUpstreamWorldItem
	upstreamHandlers[wire.OpWorldItem7] = handleUpstreamWorldItem7
	upstreamHandlers[wire.OpEquip] = handleUpstreamEquip
	upstreamHandlers[wire.OpContainerOpen] = handleUpstreamContainerOpen
	upstreamHandlers[wire.OpContainerUpdate] = handleUpstreamContainerUpdate
	upstreamHandlers[wire.OpContainerContent] = handleUpstreamContainerContent
	upstreamHandlers[wire.OpDeleteObject] = handleUpstreamDelete
	upstreamHandlers[wire.OpMobileIncoming] = handleUpstreamMobileIncoming
	upstreamHandlers[wire.OpMobileStatus] = handleUpstreamMobileStatus
	upstreamHandlers[wire.OpMobileUpdate] = handleUpstreamMobileUpdate
	upstreamHandlers[wire.OpMobileMoving] = handleUpstreamMobileMoving
	upstreamHandlers[wire.OpZoneChange] = handleUpstreamZoneChange
	upstreamHandlers[wire.OpSeason] = handleUpstreamSeason
	upstreamHandlers[wire.OpGlobalLight] = handleUpstreamGlobalLight
	upstreamHandlers[wire.OpPersonalLight] = handleUpstreamPersonalLight
	upstreamHandlers[wire.OpWarMode] = handleUpstreamWarMode
	upstreamHandlers[wire.OpTarget] = handleUpstreamTarget
	upstreamHandlers[wire.OpSupportedFeatures] = handleUpstreamSupportedFeatures
	upstreamHandlers[wire.OpExtended] = handleUpstreamExtended
	upstreamHandlers[wire.OpWalkAck] = handleUpstreamWalkAck
	upstreamHandlers[wire.OpWalkReject] = handleUpstreamWalkReject
}

// handleUpstreamPacket is the dispatch entry point for every frame read
// from the upstream server.
func (s *Session) handleUpstreamPacket(ctx actor.Context, msg *UpstreamPacket) {
	if len(msg.Data) == 0 {
		return
	}
	h := upstreamHandlers[msg.Data[0]]
	if h == nil {
		h = defaultUpstreamHandler
	}
	switch h(s, ctx, msg.Data) {
	case vForward:
		s.broadcast(rawFrame(msg.Data))
	case vDisconnect:
		for _, ls := range s.endpoints {
			ls.conn.Close()
		}
		ctx.Stop(ctx.Self())
	case vDeleted, vDrop, vHandled:
	}
}

// rawFrame lets an already-encoded byte slice satisfy the
// Encode(*wire.Writer) interface SendPacket/broadcast expect.
type rawFrame []byte

func (f rawFrame) Encode(w *wire.Writer) { w.Raw(f) }

func defaultUpstreamHandler(s *Session, ctx actor.Context, data []byte) verdict {
	return vForward
}

// pendingLoginEndpoint returns the one attached endpoint still mid
// handshake (not yet IN_GAME), used to route pass-through login replies
// in configurations without an emulated ServerList/CharList.
func (s *Session) pendingLoginEndpoint() *linkedServer {
	for _, ls := range s.endpoints {
		if ls.state != StateInGame {
			return ls
		}
	}
	return nil
}

func handleUpstreamAccountLoginReject(s *Session, ctx actor.Context, data []byte) verdict {
	if ls := s.pendingLoginEndpoint(); ls != nil {
		_ = ls.conn.Send(data)
		s.disconnectEndpoint(ctx, ls)
		return vHandled
	}
	return vDrop
}

func handleUpstreamServerList(s *Session, ctx actor.Context, data []byte) verdict {
	ls := s.pendingLoginEndpoint()
	if ls == nil {
		return vDrop
	}
	_ = ls.conn.Send(data)
	ls.state = StateServerList
	return vHandled
}

func handleUpstreamRelay(s *Session, ctx actor.Context, data []byte) verdict {
	ls := s.pendingLoginEndpoint()
	if ls == nil {
		return vDrop
	}
	_ = ls.conn.Send(data)
	ls.state = StateRelayServer
	return vHandled
}

func handleUpstreamCharList(s *Session, ctx actor.Context, data []byte) verdict {
	ls := s.pendingLoginEndpoint()
	p, err := wire.DecodeCharList(wire.NewReader(data[3:]))
	if err == nil {
		s.charList = p
	}
	if ls == nil {
		return vDrop
	}
	_ = ls.conn.Send(data)
	ls.state = StateCharList
	return vHandled
}

// handleUpstreamStart applies the authoritative anchor and advances
// every still-logging-in endpoint to IN_GAME (spec §4.G PLAY_CHAR ->
// IN_GAME; ordinarily there is exactly one such endpoint).
func handleUpstreamStart(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodeStart(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	s.world.ApplyStart(p)
	s.reconnecting = false

	for _, ls := range s.endpoints {
		if ls.state != StateInGame {
			ls.state = StateInGame
			_ = ls.conn.Send(data)
		}
	}
	return vHandled
}

// handleUpstreamLoginComplete forwards the ReDrawAll marker and, for
// antispy sessions, synthesizes one benign Hardware report upstream in
// place of whatever the real client would have sent (spec §4.H).
func handleUpstreamLoginComplete(s *Session, ctx actor.Context, data []byte) verdict {
	if s.cfg.Antispy && s.up != nil {
		_ = s.up.Conn.SendPacket(wire.BenignHardware())
	}
	return vForward
}

func handleUpstreamWorldItem(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodeWorldItemV5(wire.NewReader(data[3:]))
	if err != nil {
		return vDisconnect
	}
	s.world.ApplyWorldItem7(wire.WorldItemV5ToV7(p))
	s.broadcastWorldItem(wire.WorldItemV5ToV7(p))
	return vHandled
}

func handleUpstreamWorldItem7(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodeWorldItem7(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	s.world.ApplyWorldItem7(p)
	s.broadcastWorldItem(p)
	return vHandled
}

// broadcastWorldItem sends the canonical v7 item packet to each
// endpoint, downgrading to the variable v5 layout for pre-v7 clients
// (spec §4.A translator table).
func (s *Session) broadcastWorldItem(p wire.WorldItem7) {
	for _, ls := range s.endpoints {
		if ls.proto >= protover.V7 {
			_ = ls.conn.SendPacket(p)
		} else {
			_ = ls.conn.SendPacket(wire.WorldItem7ToV5(p))
		}
	}
}

func handleUpstreamEquip(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodeEquip(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	s.world.ApplyEquip(p)
	return vForward
}

// handleUpstreamContainerOpen decodes the shared ContainerSerial/GumpID
// prefix both wire layouts carry (the v7 bounding box is never
// populated by servers uoproxy targets) and translates per endpoint.
func handleUpstreamContainerOpen(s *Session, ctx actor.Context, data []byte) verdict {
	base, err := wire.DecodeContainerOpen(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	p7 := wire.ContainerOpenToV7(base)
	s.world.ApplyContainerOpen(worldmodel.Serial(base.ContainerSerial), p7)

	for _, ls := range s.endpoints {
		if ls.proto >= protover.V7 {
			_ = ls.conn.SendPacket(p7)
		} else {
			_ = ls.conn.SendPacket(base)
		}
	}
	return vHandled
}

func handleUpstreamContainerUpdate(s *Session, ctx actor.Context, data []byte) verdict {
	var canonical wire.ContainerUpdate
	if s.upstreamProto >= protover.V6 {
		p, err := wire.DecodeContainerUpdate(wire.NewReader(data[1:]))
		if err != nil {
			return vDisconnect
		}
		canonical = p
	} else {
		p, err := wire.DecodeContainerUpdate6(wire.NewReader(data[1:]))
		if err != nil {
			return vDisconnect
		}
		canonical = wire.ContainerUpdate5ToV6(p)
	}
	s.world.ApplyContainerUpdate(canonical)

	for _, ls := range s.endpoints {
		if ls.proto >= protover.V6 {
			_ = ls.conn.SendPacket(canonical)
		} else {
			_ = ls.conn.SendPacket(wire.ContainerUpdate6ToV5(canonical))
		}
	}
	return vHandled
}

// handleUpstreamContainerContent assumes the upstream server uses the
// post-v6 ContainerUpdate layout (the only one uoproxy's own code ever
// needs to originate), translating down to ContainerContent6 per
// endpoint as needed.
func handleUpstreamContainerContent(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodeContainerContent(wire.NewReader(data[3:]))
	if err != nil {
		return vDisconnect
	}
	items := p.Items
	s.world.ApplyContainerContent(items)

	for _, ls := range s.endpoints {
		if ls.proto >= protover.V6 {
			_ = ls.conn.SendPacket(wire.ContainerContent{Items: items})
		} else {
			narrow := make([]wire.ContainerUpdate6, len(items))
			for i, it := range items {
				narrow[i] = wire.ContainerUpdate6ToV5(it)
			}
			_ = ls.conn.SendPacket(wire.ContainerContent6{Items: narrow})
		}
	}
	return vHandled
}

func handleUpstreamDelete(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodeDeleteObject(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	s.world.ApplyDelete(worldmodel.Serial(p.Serial))
	return vForward
}

func handleUpstreamMobileIncoming(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodeMobileIncoming(wire.NewReader(data[3:]), len(data))
	if err != nil {
		return vDisconnect
	}
	s.world.ApplyMobileIncoming(p)
	return vForward
}

func handleUpstreamMobileStatus(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodeMobileStatus(wire.NewReader(data[3:]))
	if err != nil {
		return vDisconnect
	}
	s.world.ApplyMobileStatus(p)
	return vForward
}

func handleUpstreamMobileUpdate(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodeMobileUpdate(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	s.world.ApplyMobileUpdate(p)
	return vForward
}

func handleUpstreamMobileMoving(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodeMobileMoving(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	s.world.ApplyMobileMoving(p)
	return vForward
}

func handleUpstreamZoneChange(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodeZoneChange(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	s.world.ApplyZoneChange(p)
	return vForward
}

func handleUpstreamSeason(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodeSeason(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	s.world.ApplySeason(p)
	return vForward
}

// handleUpstreamGlobalLight applies the light filter (spec §4.H): when
// enabled, the packet is tracked in the world mirror (for replay to
// future attaches) but never forwarded live.
func handleUpstreamGlobalLight(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodeGlobalLightLevel(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	s.world.ApplyGlobalLight(p)
	if s.cfg.DropLight {
		return vDrop
	}
	return vForward
}

func handleUpstreamPersonalLight(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodePersonalLightLevel(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	s.world.ApplyPersonalLight(p)
	if s.cfg.DropLight {
		return vDrop
	}
	return vForward
}

func handleUpstreamWarMode(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodeWarMode(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	s.world.ApplyWarMode(p)
	return vForward
}

func handleUpstreamTarget(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodeTarget(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	s.world.ApplyTarget(p)
	return vForward
}

func handleUpstreamSupportedFeatures(s *Session, ctx actor.Context, data []byte) verdict {
	var wide wire.SupportedFeatures6014
	if s.upstreamProto >= protover.V6_0_14 {
		p, err := wire.DecodeSupportedFeatures6014(wire.NewReader(data[1:]))
		if err != nil {
			return vDisconnect
		}
		wide = p
	} else {
		p, err := wire.DecodeSupportedFeatures(wire.NewReader(data[1:]))
		if err != nil {
			return vDisconnect
		}
		wide = wire.SupportedFeaturesToWide(p)
	}
	s.world.ApplySupportedFeatures(wide)

	for _, ls := range s.endpoints {
		if ls.proto >= protover.V6_0_14 {
			_ = ls.conn.SendPacket(wide)
		} else {
			_ = ls.conn.SendPacket(wire.SupportedFeaturesToNarrow(wide))
		}
	}
	return vHandled
}

func handleUpstreamExtended(s *Session, ctx actor.Context, data []byte) verdict {
	sub, err := wire.DecodeExtendedSubcommand(wire.NewReader(data[3:]))
	if err != nil {
		return vDisconnect
	}
	switch sub {
	case wire.ExtMapChange:
		p, err := wire.DecodeExtendedMapChange(wire.NewReader(data[5:]))
		if err != nil {
			return vDisconnect
		}
		s.world.ApplyMapChange(p)
	case wire.ExtMapPatches:
		p, err := wire.DecodeExtendedMapPatches(wire.NewReader(data[5:]), len(data)-5)
		if err != nil {
			return vDisconnect
		}
		s.world.ApplyMapPatches(p)
	}
	return vForward
}

// handleUpstreamWalkAck routes through the walk reconciler and replies
// only to the current owning endpoint (spec §4.F step 3).
func handleUpstreamWalkAck(s *Session, ctx actor.Context, data []byte) verdict {
	ack, err := wire.DecodeWalkAck(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	anchor := s.world.PlayerAnchor
	res := s.walk.HandleUpstreamWalkAck(ack, anchor.X, anchor.Y, anchor.Direction)
	if res.Resync {
		if s.up != nil {
			_ = s.up.Conn.SendPacket(wire.Resynchronize())
		}
		return vDrop
	}
	var owner *linkedServer
	if res.HasOwnerReply {
		for _, ls := range s.endpoints {
			if endpointMatches(ls, res.OwnerReply) {
				owner = ls
				_ = ls.conn.SendPacket(res.ReplyPacket)
			}
		}
	}
	if res.StepApplied {
		s.world.ApplyWalked(res.NewX, res.NewY, anchor.Direction, ack.Notoriety)
		// Every other attached endpoint only ever sees the stepper move
		// via this mirrored MobileUpdate; the stepper itself already
		// got its own reply above (spec §4.F step 5).
		s.broadcastExcept(owner, s.world.Ambient.MobileUpdate)
	}
	return vHandled
}

// handleUpstreamWalkReject implements spec §4.F's upstream WalkCancel:
// the server's forced position is authoritative, applied to the world
// regardless of whether a queued request matched it.
func handleUpstreamWalkReject(s *Session, ctx actor.Context, data []byte) verdict {
	p, err := wire.DecodeWalkReject(wire.NewReader(data[1:]))
	if err != nil {
		return vDisconnect
	}
	s.world.ApplyWalked(p.X, p.Y, p.Direction, 0)
	s.world.PlayerAnchor.Z = int16(p.Z)

	res := s.walk.HandleUpstreamWalkCancel(p)
	if res.HasOwnerReply {
		for _, ls := range s.endpoints {
			if endpointMatches(ls, res.OwnerReply) {
				_ = ls.conn.SendPacket(res.ReplyPacket)
			}
		}
		return vHandled
	}
	return vForward
}

func endpointMatches(ls *linkedServer, id walk.EndpointID) bool {
	return walk.EndpointID(ls.id) == id
}
