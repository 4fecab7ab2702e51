package simulation

import "sort"

// OrchestratorID is the MessageBus recipient id used for every message
// addressed to the orchestrator. Vehicle ids are taken as given from the
// scenario roster (scenario.go); Scenario.Validate checks them only for
// duplicates, not for range.
const OrchestratorID = -1

// maxQueueSlots bounds how many virtual columns a station contributes to
// the assignment cost matrix: one per occupant/queue slot
// a vehicle could realistically be assigned into in a single tick.
const maxQueueSlots = 8

// Orchestrator runs the matching and negotiation step (§4.6/§4.7). It holds
// no vehicle or station state of its own — everything it touches belongs
// to the Simulation, read and written back through sim's accessors, so it
// never holds a stale pointer across ticks.
type Orchestrator struct{}

// Step runs the full orchestrator slot for the current tick: reconcile
// station membership, match waiting vehicles to stations, and adjudicate
// any counter-proposals raised this tick.
func (o *Orchestrator) Step(sim *Simulation) {
	o.reconcileStations(sim)

	statuses, proposals := o.drainInbox(sim)

	o.matchWaiting(sim, statuses)
	o.adjudicateProposals(sim, proposals)

	for _, st := range sim.stationsSlice() {
		sim.Metrics.observeQueueDepth(st.ID, len(st.Queue))
		sim.Metrics.observeBusy(st.ID, len(st.Occupants) > 0)
	}
}

func (o *Orchestrator) drainInbox(sim *Simulation) (map[int]*StatusUpdate, []*CounterProposal) {
	statuses := make(map[int]*StatusUpdate)
	var proposals []*CounterProposal
	for _, raw := range sim.Bus.Drain(OrchestratorID) {
		switch msg := raw.(type) {
		case *StatusUpdate:
			statuses[msg.VehicleID] = msg
		case *CounterProposal:
			proposals = append(proposals, msg)
		}
	}
	return statuses, proposals
}

// reconcileStations frees the occupant slot of every vehicle that has left
// (gone, exiting, terminal, or assigned elsewhere), promotes queue heads into
// freed slots, and records arriving Charging vehicles as occupants. Station
// Occupants/Queue are changed only by the orchestrator (here, matchWaiting
// and swapQueuePositions) and by an accepted negotiation candidate
// (negotiations.go); vehicles only ever report their own state.
func (o *Orchestrator) reconcileStations(sim *Simulation) {
	for _, st := range sim.stationsSlice() {
		for _, vid := range append([]int{}, st.Occupants...) {
			v := sim.VehicleByID(vid)
			if v == nil || v.State == Exiting || v.State.Terminal() || v.AssignedStation != st.ID {
				st.removeOccupant(vid)
				if promoted, ok := st.promoteHead(); ok {
					sim.sendEvent(&Event{Name: QueuePromotedEvent, Tick: sim.tick, Object: map[string]interface{}{"vehicle": promoted, "station": st.ID}})
					o.notifyQueue(sim, st, promoted)
				}
			}
		}
		for _, v := range sim.vehiclesSlice() {
			if v.State == Charging && v.AssignedStation == st.ID && !st.IsOccupant(v.ID) {
				if len(st.Occupants) < st.Capacity {
					st.Occupants = append(st.Occupants, v.ID)
					st.removeFromQueue(v.ID)
				}
			}
		}
	}
}

// notifyQueue sends fresh Assignment messages for st's new membership after
// a promotion: QueuePos 0 to the vehicle that was just promoted into an
// occupant slot, and renumbered positions to everyone still in Queue. This
// is the counterpart to matchWaiting's initial assignment — without it, a
// promoted vehicle's own QueuePos (updated by ingesting an Assignment, see
// vehicle.go's ingestMessages) would keep its old queue number and the
// vehicle would never head for the station cell.
func (o *Orchestrator) notifyQueue(sim *Simulation, st *ChargingStation, promotedID int) {
	w := sim.Options.Weights
	issue := func(v *Vehicle, queuePos int) {
		a := &Assignment{
			VehicleID:    v.ID,
			StationID:    st.ID,
			StationCoord: st.Coord,
			QueuePos:     queuePos,
			Priority:     w.Battery * (100 - v.Battery),
		}
		v.AssignedStation = st.ID
		sim.Bus.Send(OrchestratorID, v.ID, a)
		sim.sendEvent(&Event{Name: AssignmentIssuedEvent, Tick: sim.tick, Object: a})
	}
	if v := sim.VehicleByID(promotedID); v != nil {
		issue(v, 0)
	}
	for i, vid := range st.Queue {
		if v := sim.VehicleByID(vid); v != nil {
			issue(v, i+1)
		}
	}
}

// matchWaiting builds the assignment cost matrix for every vehicle
// reporting State == Waiting with no current station assignment, and
// dispatches the resulting Assignment messages.
func (o *Orchestrator) matchWaiting(sim *Simulation, statuses map[int]*StatusUpdate) {
	var waiting []*StatusUpdate
	for _, v := range sim.vehiclesSlice() {
		if v.State != Waiting || v.AssignedStation != "" {
			continue
		}
		su, ok := statuses[v.ID]
		if !ok {
			su = &StatusUpdate{VehicleID: v.ID, Coord: v.Coord, Battery: v.Battery, State: v.State}
		}
		waiting = append(waiting, su)
	}
	if len(waiting) == 0 {
		return
	}

	stations := sim.stationsSlice()
	if len(stations) == 0 {
		for _, su := range waiting {
			sim.sendEvent(&Event{Name: AssignmentInfeasibleEvent, Tick: sim.tick, Object: su.VehicleID})
		}
		return
	}

	type column struct {
		station *ChargingStation
		slot    int
	}
	var columns []column
	for _, st := range stations {
		for slot := 0; slot < maxQueueSlots; slot++ {
			columns = append(columns, column{st, slot})
		}
	}

	w := sim.Options.Weights
	cost := make([][]float64, len(waiting))
	for i, su := range waiting {
		cost[i] = make([]float64, len(columns))
		for j, c := range columns {
			dist := float64(su.Coord.Manhattan(c.station.Coord))
			load := float64(c.station.Load() + c.slot)
			cost[i][j] = w.Distance*dist + w.Battery*(100-su.Battery) + w.Load*load + float64(c.slot)*0.01
		}
	}

	result := hungarianAssign(cost)

	// Group assignments by station to compute queue positions deterministically.
	byStation := make(map[string][]int) // station id -> row indices, in slot order
	for i, colIdx := range result {
		if colIdx < 0 {
			sim.sendEvent(&Event{Name: AssignmentInfeasibleEvent, Tick: sim.tick, Object: waiting[i].VehicleID})
			continue
		}
		st := columns[colIdx].station
		byStation[st.ID] = append(byStation[st.ID], i)
	}

	for stationID, rows := range byStation {
		st := sim.StationByID(stationID)
		sort.Slice(rows, func(a, b int) bool {
			return columns[result[rows[a]]].slot < columns[result[rows[b]]].slot
		})
		free := st.Capacity - len(st.Occupants)
		if free < 0 {
			free = 0
		}
		for rank, i := range rows {
			su := waiting[i]
			v := sim.VehicleByID(su.VehicleID)
			queuePos := 0
			if rank >= free {
				queuePos = len(st.Queue) + 1
				st.Queue = append(st.Queue, su.VehicleID)
			}
			a := &Assignment{
				VehicleID:    su.VehicleID,
				StationID:    st.ID,
				StationCoord: st.Coord,
				QueuePos:     queuePos,
				Priority:     w.Battery * (100 - su.Battery),
			}
			v.AssignedStation = st.ID
			sim.Bus.Send(OrchestratorID, su.VehicleID, a)
			sim.sendEvent(&Event{Name: AssignmentIssuedEvent, Tick: sim.tick, Object: a})
		}
	}
}

// adjudicateProposals resolves each CounterProposal raised this tick
// (§4.7): a proposer disputing its queue position against the vehicle
// immediately ahead of it ("the opponent") wins the swap when its urgency
// exceeds the opponent's by at least counterProposalEpsilon.
func (o *Orchestrator) adjudicateProposals(sim *Simulation, proposals []*CounterProposal) {
	for _, p := range proposals {
		proposer := sim.VehicleByID(p.VehicleID)
		if proposer == nil {
			continue
		}
		st := sim.StationByID(p.CurrentStation)
		if st == nil {
			continue
		}
		opponentID := sim.opponentAt(st.ID, proposer.QueuePosOrZero())
		opponent := sim.VehicleByID(opponentID)

		accepted := false
		if p.Target == TargetQueuePos && opponent != nil {
			opponentUrgency := sim.urgency(opponent)
			if p.Urgency-opponentUrgency >= counterProposalEpsilon {
				accepted = true
				o.swapQueuePositions(st, proposer.ID, opponentID)
			}
		}

		sim.Metrics.recordProposal(proposer.Behavior, accepted)

		decision := &AssignmentDecision{VehicleID: proposer.ID, Accepted: accepted, OpponentID: opponentID}
		sim.Bus.Send(OrchestratorID, proposer.ID, decision)
		if opponent != nil {
			counterDecision := &AssignmentDecision{VehicleID: opponent.ID, Accepted: !accepted, OpponentID: proposer.ID}
			sim.Bus.Send(OrchestratorID, opponent.ID, counterDecision)
		}
		sim.sendEvent(&Event{Name: AssignmentDecisionEvent, Tick: sim.tick, Object: decision})
	}
}

// swapQueuePositions exchanges aID and bID's slots within a single
// station's occupant/queue lists, the only cross-vehicle station mutation
// the orchestrator performs outside of normal admission/promotion.
func (o *Orchestrator) swapQueuePositions(st *ChargingStation, aID, bID int) {
	ai, aInQueue := indexOf(st.Queue, aID)
	bi, bInQueue := indexOf(st.Queue, bID)
	if aInQueue && bInQueue {
		st.Queue[ai], st.Queue[bi] = st.Queue[bi], st.Queue[ai]
		return
	}
	if !aInQueue && bInQueue {
		// a is an occupant, b is queued: swap membership outright.
		for i, v := range st.Occupants {
			if v == aID {
				st.Occupants[i] = bID
			}
		}
		st.Queue[bi] = aID
	}
}

func indexOf(s []int, v int) (int, bool) {
	for i, x := range s {
		if x == v {
			return i, true
		}
	}
	return 0, false
}
