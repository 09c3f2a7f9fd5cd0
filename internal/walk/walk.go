// Package walk implements the client↔server walk-sequence reconciler
// (spec §4.F): clients number their own walk requests in an 8-bit ring
// starting at 1 (skipping 0), while the upstream server issues its own
// independent sequence numbers. Reconciler owns the mapping between
// them and the single in-flight queue of up to four outstanding steps.
package walk

import "github.com/MaxKellermann/uoproxy-sub000/internal/wire"

// EndpointID identifies the attached endpoint that owns the walk
// queue; Session supplies whatever identity it uses for endpoints.
type EndpointID uint64

// entry is one outstanding walk request: the packet as the client sent
// it, and the server-side sequence the reconciler assigned it.
type entry struct {
	clientPacket wire.Walk
	serverSeq    byte
}

const maxQueue = 4

// State is the per-session walk reconciler state (spec §3 WalkState).
type State struct {
	owner    EndpointID
	hasOwner bool
	queue    []entry
	seqNext  byte
}

func New() *State {
	return &State{}
}

// Owner reports the endpoint currently allowed to walk, if any.
func (s *State) Owner() (EndpointID, bool) { return s.owner, s.hasOwner }

func (s *State) nextServerSeq() byte {
	s.seqNext++
	if s.seqNext == 0 {
		s.seqNext = 1
	}
	return s.seqNext
}

// ClientWalkResult tells the caller what to do with a client Walk
// request. CancelOldest and Forward are independent: a queue-full
// eviction cancels the oldest in-flight request back to its owner
// (CancelTo/CancelOldestSeq) in the same call that enqueues and
// forwards the new one.
type ClientWalkResult struct {
	Disconnect      bool
	CancelOldest    bool
	CancelTo        EndpointID // the evicted entry's owning endpoint
	CancelOldestSeq byte       // the evicted entry's own client seq, for the reply packet
	CancelCaller    bool       // reply WalkCancel directly to the requesting endpoint and drop
	Forward         bool
	Rewritten       wire.Walk
}

// HandleClientWalk implements spec §4.F's five-branch client Walk
// logic. inGame/reconnecting describe the requesting endpoint/session;
// the result carries no position, so a caller replying with a cancel
// supplies the position itself.
func (s *State) HandleClientWalk(caller EndpointID, p wire.Walk, inGame, reconnecting bool) ClientWalkResult {
	if !inGame {
		return ClientWalkResult{Disconnect: true}
	}
	if reconnecting {
		return ClientWalkResult{CancelCaller: true}
	}
	if s.hasOwner && s.owner != caller {
		return ClientWalkResult{CancelCaller: true}
	}

	var res ClientWalkResult
	if len(s.queue) >= maxQueue {
		// Evict and cancel the oldest in-flight request, per spec
		// §4.F step 4 / §8's queue-full boundary behavior.
		oldest := s.queue[0]
		s.queue = s.queue[1:]
		res.CancelOldest = true
		res.CancelTo = s.owner
		res.CancelOldestSeq = oldest.clientPacket.Seq
	}

	s.owner = caller
	s.hasOwner = true
	serverSeq := s.nextServerSeq()
	s.queue = append(s.queue, entry{clientPacket: p, serverSeq: serverSeq})

	res.Forward = true
	res.Rewritten = p
	res.Rewritten.Seq = serverSeq
	return res
}

// dirDelta is the per-direction (dx, dy) offset for the 8-direction
// facing encoding (spec §4.F step 2), matching UO's clock-position
// direction byte (0=north .. 7=northwest, clockwise).
var dirDelta = [8][2]int{
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// AckResult tells the caller how to react to an upstream WalkAck.
type AckResult struct {
	Resync        bool // server_seq unknown: send Resynchronize upstream, queue cleared
	OwnerReply    EndpointID
	HasOwnerReply bool
	ReplyPacket   wire.WalkAck // client's original seq substituted
	NewX, NewY    uint16
	StepApplied   bool
	QueueEmpty    bool
}

// HandleUpstreamWalkAck implements spec §4.F's upstream WalkAck logic.
// curX/curY/curDirection are the world's current player anchor; the
// step is applied only if the committed direction matches the queued
// request's direction bits (a mere turn is not a step).
func (s *State) HandleUpstreamWalkAck(ack wire.WalkAck, curX, curY uint16, curDirection byte) AckResult {
	idx := -1
	for i, e := range s.queue {
		if e.serverSeq == ack.Seq {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.queue = nil
		s.hasOwner = false
		return AckResult{Resync: true}
	}

	e := s.queue[idx]
	s.queue = append(s.queue[:idx], s.queue[idx+1:]...)

	newX, newY := curX, curY
	stepApplied := false
	if e.clientPacket.Direction&0x07 == curDirection&0x07 {
		d := dirDelta[curDirection&0x07]
		newX = uint16(int(curX) + d[0])
		newY = uint16(int(curY) + d[1])
		stepApplied = true
	}

	res := AckResult{
		HasOwnerReply: true,
		OwnerReply:    s.owner,
		ReplyPacket:   wire.WalkAck{Seq: e.clientPacket.Seq, Notoriety: ack.Notoriety},
		NewX:          newX,
		NewY:          newY,
		StepApplied:   stepApplied,
	}

	if len(s.queue) == 0 {
		s.hasOwner = false
		res.QueueEmpty = true
	}
	return res
}

// CancelResult tells the caller how to react to an upstream WalkCancel.
type CancelResult struct {
	HasOwnerReply bool
	OwnerReply    EndpointID
	ReplyPacket   wire.WalkReject
}

// HandleUpstreamWalkCancel implements spec §4.F's upstream WalkCancel
// logic: zeroes seq_next, rewrites the client seq if a queued entry
// matches, and clears the queue unconditionally.
func (s *State) HandleUpstreamWalkCancel(cancel wire.WalkReject) CancelResult {
	s.seqNext = 0

	var res CancelResult
	for _, e := range s.queue {
		if e.serverSeq == cancel.Seq {
			res.HasOwnerReply = true
			res.OwnerReply = s.owner
			reply := cancel
			reply.Seq = e.clientPacket.Seq
			res.ReplyPacket = reply
			break
		}
	}

	s.queue = nil
	s.hasOwner = false
	return res
}

// HandleClientResynchronize resets seq_next to 0 ahead of forwarding
// the Resynchronize packet upstream unchanged (spec §4.F).
func (s *State) HandleClientResynchronize() {
	s.seqNext = 0
}
