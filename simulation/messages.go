package simulation

import "github.com/chargesim/chargesim/grid"

// ProposalTarget distinguishes the two shapes a CounterProposal may take:
// a better queue position on the vehicle's current station, or a different
// station entirely.
type ProposalTarget int

const (
	TargetQueuePos ProposalTarget = iota
	TargetStation
)

// StatusUpdate is emitted by every non-completed vehicle once per tick.
type StatusUpdate struct {
	VehicleID int
	Coord     grid.Coord
	Battery   float64
	State     VehicleStatus
	Tick      int
}

// Assignment is emitted by the orchestrator to tell a vehicle which
// station it has been matched to, and at what queue position.
type Assignment struct {
	VehicleID    int
	StationID    string
	StationCoord grid.Coord
	QueuePos     int
	Priority     float64
}

// CounterProposal is emitted by a vehicle (via the behavioral layer)
// disputing an Assignment it considers suboptimal.
type CounterProposal struct {
	VehicleID       int
	CurrentStation  string
	Target          ProposalTarget
	ProposedStation string // meaningful when Target == TargetStation
	ProposedPos     int    // meaningful when Target == TargetQueuePos
	Reason          string
	Urgency         float64
}

// AssignmentDecision is the orchestrator's reply to a CounterProposal.
type AssignmentDecision struct {
	VehicleID     int
	Accepted      bool
	NewAssignment *Assignment
	// OpponentID is the vehicle id the proposal was adjudicated against
	// (the occupant of the disputed slot), 0 if there was none. Carried so
	// the tit-for-tat behavioral layer can attribute history without the
	// orchestrator handing out vehicle pointers (see DESIGN.md).
	OpponentID int
}

// envelope wraps a payload with its sender/recipient/emission order, for
// deterministic inbox draining.
type envelope struct {
	senderID    int
	recipientID int
	seq         int
	payload     interface{}
}

// MessageBus is the per-tick, deterministically-ordered message system
// (C4). Inboxes are self-cleaning: Drain empties exactly the inbox it
// reads, so a vehicle's own step naturally consumes what the orchestrator
// queued for it last tick, and the orchestrator's step consumes what
// vehicles queued for it this tick. Reset is only used when restarting a
// run from a snapshot (simulation.go), not as part of the per-tick loop.
// Delivery order within a recipient's inbox is sender_id ascending, then
// emission order.
type MessageBus struct {
	inboxes map[int][]*envelope
	seq     int
}

// NewMessageBus returns an empty bus.
func NewMessageBus() *MessageBus {
	return &MessageBus{inboxes: make(map[int][]*envelope)}
}

// Send appends payload to recipientID's inbox, tagged with senderID and the
// bus's next emission index.
func (b *MessageBus) Send(senderID, recipientID int, payload interface{}) {
	b.inboxes[recipientID] = append(b.inboxes[recipientID], &envelope{
		senderID:    senderID,
		recipientID: recipientID,
		seq:         b.seq,
		payload:     payload,
	})
	b.seq++
}

// Drain returns and clears recipientID's inbox, sorted by (senderID, seq).
func (b *MessageBus) Drain(recipientID int) []interface{} {
	msgs := b.inboxes[recipientID]
	delete(b.inboxes, recipientID)
	// Stable insertion order from Send already satisfies sender-ascending
	// only if all of one sender's messages were sent consecutively, which
	// is not guaranteed; sort explicitly.
	sortEnvelopes(msgs)
	out := make([]interface{}, len(msgs))
	for i, e := range msgs {
		out[i] = e.payload
	}
	return out
}

func sortEnvelopes(es []*envelope) {
	// Small inboxes (a handful of messages per vehicle per tick): plain
	// insertion sort keeps this allocation-free and avoids importing sort
	// for what is at most a few elements.
	for i := 1; i < len(es); i++ {
		for j := i; j > 0 && less(es[j], es[j-1]); j-- {
			es[j], es[j-1] = es[j-1], es[j]
		}
	}
}

func less(a, b *envelope) bool {
	if a.senderID != b.senderID {
		return a.senderID < b.senderID
	}
	return a.seq < b.seq
}

// Reset clears every inbox and the sequence counter. Only called by
// Simulation.Restore/Reset, never per-tick — see the MessageBus doc comment.
func (b *MessageBus) Reset() {
	b.inboxes = make(map[int][]*envelope)
	b.seq = 0
}
