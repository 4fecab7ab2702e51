package simulation

import "github.com/chargesim/chargesim/grid"

// VehicleStatus is the vehicle's state machine state. Completed and
// Stranded are both terminal; Stranded is kept distinct from Completed so
// metrics can separate successful runs from battery-exhaustion failures.
type VehicleStatus int

const (
	Idle VehicleStatus = iota
	Waiting
	Moving
	Charging
	Exiting
	Completed
	Stranded
)

func (s VehicleStatus) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Waiting:
		return "Waiting"
	case Moving:
		return "Moving"
	case Charging:
		return "Charging"
	case Exiting:
		return "Exiting"
	case Completed:
		return "Completed"
	case Stranded:
		return "Stranded"
	default:
		return "Unknown"
	}
}

func (s VehicleStatus) Terminal() bool {
	return s == Completed || s == Stranded
}

// Behavior is the tagged variant dispatched by the behavioral layer (§4.8,
// §9: "Model as a tagged variant ... rather than inheritance").
type Behavior int

const (
	NoBehavior Behavior = iota
	Cooperative
	Competitive
	TitForTat
)

func (b Behavior) String() string {
	switch b {
	case Cooperative:
		return "cooperative"
	case Competitive:
		return "competitive"
	case TitForTat:
		return "titfortat"
	default:
		return "none"
	}
}

// PeerAction is one round's recorded outcome in a TitForTat history.
type PeerAction int

const (
	Cooperate PeerAction = iota
	Defect
)

// Vehicle is a single robot's full state (§3). Paths are value sequences
// owned by the vehicle (§9: "no shared mutable path graphs"); it never
// holds a pointer to a ChargingStation or to another Vehicle, only ids —
// resolution goes through the Simulation, which owns all collections.
type Vehicle struct {
	ID      int
	Coord   grid.Coord
	Battery float64
	State   VehicleStatus

	// Path is the ordered sequence of coords from the current position to
	// the goal, inclusive of both ends while non-empty.
	Path []grid.Coord

	AssignedStation string // "" when unassigned
	QueuePos        *int   // nil when unassigned; 0 = occupant, >0 = queued

	Behavior Behavior
	// PeerHistory is keyed by opponent vehicle id, recording the outcome
	// of each past dispute against that opponent for TitForTat to consult.
	PeerHistory map[int][]PeerAction

	// Metrics accumulators.
	DistanceTraveled int
	TicksCharging    int
	TicksWaiting     int
	ReplanCount      int

	consecutiveYields  int
	consecutiveNoPath  int
	pendingAssignment  *Assignment
	pendingProposal    *CounterProposal
	movedThisTick      bool
}

// NewVehicle constructs a vehicle in its initial Idle state.
func NewVehicle(id int, start grid.Coord, battery float64, behavior Behavior) *Vehicle {
	return &Vehicle{
		ID:          id,
		Coord:       start,
		Battery:     battery,
		State:       Idle,
		Behavior:    behavior,
		PeerHistory: make(map[int][]PeerAction),
	}
}

// QueuePosOrZero returns the vehicle's current queue position, or 0 if it
// holds no queue position (unassigned, or an occupant).
func (v *Vehicle) QueuePosOrZero() int {
	if v.QueuePos == nil {
		return 0
	}
	return *v.QueuePos
}

// intendedNext returns the next cell in the vehicle's current plan, if any.
func (v *Vehicle) intendedNext() (grid.Coord, bool) {
	if len(v.Path) < 2 {
		return grid.Coord{}, false
	}
	return v.Path[1], true
}

// Step advances the vehicle by one tick through its state machine.
func (v *Vehicle) Step(sim *Simulation) {
	v.movedThisTick = false
	if v.State.Terminal() {
		return
	}

	// 2. Drain battery (unless charging, handled in the state-action step).
	if v.State != Charging {
		v.Battery -= sim.Options.DrainPerStep
		if v.Battery < 0 {
			v.Battery = 0
		}
	}

	// battery == 0 is terminal in every state except Charging.
	if v.Battery <= 0 && v.State != Charging {
		v.Battery = 0
		v.transitionTo(sim, Stranded)
		sim.Metrics.recordStranded(v.ID)
		return
	}

	// 3. Emit StatusUpdate to the orchestrator.
	sim.Bus.Send(v.ID, OrchestratorID, &StatusUpdate{
		VehicleID: v.ID,
		Coord:     v.Coord,
		Battery:   v.Battery,
		State:     v.State,
		Tick:      sim.tick,
	})

	// 4. Ingest Assignment/AssignmentDecision messages.
	v.ingestMessages(sim)

	// 5. State-dependent action.
	switch v.State {
	case Idle:
		v.stepIdle(sim)
	case Waiting:
		v.stepWaiting(sim)
	case Moving:
		v.stepMoving(sim)
	case Charging:
		v.stepCharging(sim)
	case Exiting:
		v.stepExiting(sim)
	}
}

func (v *Vehicle) transitionTo(sim *Simulation, to VehicleStatus) {
	v.State = to
	sim.sendEvent(&Event{Name: VehicleStatusChangedEvent, Tick: sim.tick, Object: v})
	switch to {
	case Completed:
		sim.sendEvent(&Event{Name: VehicleCompletedEvent, Tick: sim.tick, Object: v})
	case Stranded:
		sim.sendEvent(&Event{Name: VehicleStrandedEvent, Tick: sim.tick, Object: v})
	}
}

func (v *Vehicle) ingestMessages(sim *Simulation) {
	for _, raw := range sim.Bus.Drain(v.ID) {
		switch msg := raw.(type) {
		case *Assignment:
			v.pendingAssignment = msg
			v.AssignedStation = msg.StationID
			v.QueuePos = intPtr(msg.QueuePos)
			v.applyBehavior(sim, msg)
		case *AssignmentDecision:
			v.applyDecision(sim, msg)
		}
	}
}

// applyBehavior runs the behavioral layer (§4.8) against a freshly received
// Assignment; a Dispute emits a CounterProposal to the orchestrator.
func (v *Vehicle) applyBehavior(sim *Simulation, a *Assignment) {
	if a.QueuePos == 0 {
		return // nothing to dispute; already at the front.
	}
	decision, opponent := decide(sim, v, a)
	if decision == DecisionAccept {
		return
	}
	cp := &CounterProposal{
		VehicleID:      v.ID,
		CurrentStation: a.StationID,
		Target:         TargetQueuePos,
		ProposedPos:    a.QueuePos - 1,
		Reason:         "queue-pos-dispute",
		Urgency:        sim.urgency(v),
	}
	v.pendingProposal = cp
	_ = opponent
	sim.Bus.Send(v.ID, OrchestratorID, cp)
	sim.sendEvent(&Event{Name: CounterProposalEvent, Tick: sim.tick, Object: cp})
}

func (v *Vehicle) applyDecision(sim *Simulation, d *AssignmentDecision) {
	if d.NewAssignment != nil {
		v.AssignedStation = d.NewAssignment.StationID
		v.QueuePos = intPtr(d.NewAssignment.QueuePos)
	}
	if v.pendingProposal != nil && d.OpponentID != 0 {
		outcome := Defect
		if d.Accepted {
			outcome = Cooperate
		}
		v.PeerHistory[d.OpponentID] = append(v.PeerHistory[d.OpponentID], outcome)
	}
	v.pendingProposal = nil
}

func (v *Vehicle) stepIdle(sim *Simulation) {
	if v.Battery <= sim.Options.LowThreshold {
		v.transitionTo(sim, Waiting)
		sim.Bus.Send(v.ID, OrchestratorID, &StatusUpdate{
			VehicleID: v.ID, Coord: v.Coord, Battery: v.Battery, State: Waiting, Tick: sim.tick,
		})
		return
	}
	// This implementation does not roam while Idle above the low-battery
	// threshold; it remains in place.
}

func (v *Vehicle) stepWaiting(sim *Simulation) {
	v.TicksWaiting++
	sim.Metrics.tickWaiting(v.ID)
	if v.pendingAssignment == nil {
		return
	}
	a := v.pendingAssignment
	v.pendingAssignment = nil
	var goal grid.Coord
	if a.QueuePos == 0 {
		goal = a.StationCoord
	} else {
		goal = waitingCell(sim.Grid, a.StationCoord, a.QueuePos)
	}
	if v.plan(sim, goal) {
		v.transitionTo(sim, Moving)
	}
}

func (v *Vehicle) stepMoving(sim *Simulation) {
	if len(v.Path) == 0 {
		return
	}
	if len(v.Path) == 1 {
		// Already at the goal from a prior tick's move; resolve arrival.
		v.resolveArrival(sim)
		return
	}
	next := v.Path[1]
	yield, reason := collisionCheck(sim, v, next)
	if yield {
		v.consecutiveYields++
		sim.Metrics.recordYield()
		sim.sendEvent(&Event{Name: VehicleYieldedEvent, Tick: sim.tick, Object: map[string]interface{}{"vehicle": v.ID, "reason": reason}})
		if v.consecutiveYields >= 3 {
			v.forceReplan(sim)
		}
		return
	}
	v.consecutiveYields = 0
	v.move(sim, next)
	if len(v.Path) == 1 {
		v.resolveArrival(sim)
	}
}

// resolveArrival handles a vehicle that has just reached (or already sits
// at) the final cell of its current plan.
func (v *Vehicle) resolveArrival(sim *Simulation) {
	goal := v.Path[0]
	station := sim.StationByID(v.AssignedStation)
	if station != nil && goal == station.Coord && v.QueuePos != nil && *v.QueuePos == 0 {
		if len(station.Occupants) < station.Capacity || station.IsOccupant(v.ID) {
			v.transitionTo(sim, Charging)
			v.Path = nil
			sim.Metrics.tickCharging(v.ID)
			return
		}
		// Station is momentarily full (race); hold position as Waiting.
		v.transitionTo(sim, Waiting)
		return
	}
	if v.QueuePos != nil && *v.QueuePos > 0 {
		v.transitionTo(sim, Waiting)
		return
	}
	// Arrived at a plain waypoint with nothing left to do; treat as Idle.
	v.transitionTo(sim, Idle)
}

func (v *Vehicle) stepCharging(sim *Simulation) {
	v.TicksCharging++
	sim.Metrics.tickCharging(v.ID)
	v.Battery += sim.Options.ChargePerStep
	if v.Battery > 100 {
		v.Battery = 100
	}
	if v.Battery >= sim.Options.ChargeTarget {
		v.transitionTo(sim, Exiting)
		v.QueuePos = nil
		v.plan(sim, sim.Grid.Exit())
	}
}

func (v *Vehicle) stepExiting(sim *Simulation) {
	if len(v.Path) == 0 {
		v.plan(sim, sim.Grid.Exit())
		return
	}
	if v.Coord == sim.Grid.Exit() {
		v.transitionTo(sim, Completed)
		sim.Metrics.recordCompleted(v.ID)
		return
	}
	if len(v.Path) == 1 {
		v.transitionTo(sim, Completed)
		sim.Metrics.recordCompleted(v.ID)
		return
	}
	next := v.Path[1]
	yield, reason := collisionCheck(sim, v, next)
	if yield {
		v.consecutiveYields++
		sim.Metrics.recordYield()
		sim.sendEvent(&Event{Name: VehicleYieldedEvent, Tick: sim.tick, Object: map[string]interface{}{"vehicle": v.ID, "reason": reason}})
		if v.consecutiveYields >= 3 {
			v.forceReplan(sim)
		}
		return
	}
	v.consecutiveYields = 0
	v.move(sim, next)
	if v.Coord == sim.Grid.Exit() {
		v.transitionTo(sim, Completed)
		sim.Metrics.recordCompleted(v.ID)
	}
}

// move executes a single-cell step onto next, updating the reservation
// table (action 6 of §4.5): release the stale prefix, reserve the new one.
func (v *Vehicle) move(sim *Simulation, next grid.Coord) {
	sim.Reservation.ClearVehicle(v.ID)
	v.Coord = next
	v.Path = v.Path[1:]
	v.DistanceTraveled++
	v.movedThisTick = true
	if err := sim.Reservation.ReservePath(v.ID, sim.tick+1, v.Path); err != nil {
		// Another vehicle claimed a cell along our remaining plan between
		// our collision check and this reservation; replan defensively.
		v.forceReplan(sim)
	}
	sim.sendEvent(&Event{Name: VehicleMovedEvent, Tick: sim.tick, Object: v.ID})
}

// plan computes a fresh path to goal via the A* planner, reserving it in
// the table. Returns false (and records a NoPath outcome) on failure.
func (v *Vehicle) plan(sim *Simulation, goal grid.Coord) bool {
	return v.planAvoiding(sim, goal, nil)
}

func (v *Vehicle) planAvoiding(sim *Simulation, goal grid.Coord, extraBlocked map[grid.Coord]bool) bool {
	blocked := map[grid.Coord]bool{}
	for c, b := range extraBlocked {
		blocked[c] = b
	}
	path, err := sim.planPath(v.Coord, goal, blocked)
	if err != nil {
		v.consecutiveNoPath++
		sim.sendEvent(&Event{Name: VehicleReplannedEvent, Tick: sim.tick, Object: map[string]interface{}{"vehicle": v.ID, "error": "no-path"}})
		if v.consecutiveNoPath >= 3 {
			v.transitionTo(sim, Stranded)
			sim.Metrics.recordStranded(v.ID)
		}
		return false
	}
	v.consecutiveNoPath = 0
	sim.Reservation.ClearVehicle(v.ID)
	v.Path = path
	if err := sim.Reservation.ReservePath(v.ID, sim.tick+1, path[1:]); err != nil {
		// Shouldn't normally happen immediately after a fresh plan; yield
		// this tick and let the next tick's collision handling sort it out.
	}
	return true
}

func (v *Vehicle) forceReplan(sim *Simulation) {
	v.consecutiveYields = 0
	v.ReplanCount++
	goal := v.Path[len(v.Path)-1]
	blocked := map[grid.Coord]bool{}
	for _, other := range sim.vehiclesSlice() {
		if other.ID == v.ID {
			continue
		}
		blocked[other.Coord] = true
	}
	delete(blocked, goal)
	v.planAvoiding(sim, goal, blocked)
	sim.sendEvent(&Event{Name: VehicleReplannedEvent, Tick: sim.tick, Object: v.ID})
}

// waitingCell picks a deterministic holding cell near a station for a
// queued vehicle. Distinct queue positions are spread across the station's
// walkable neighbors in N, E, S, W order; queues longer than the neighbor count cycle back onto the same cells.
func waitingCell(g *grid.Grid, station grid.Coord, queuePos int) grid.Coord {
	neighbors := g.Neighbors4(station)
	if len(neighbors) == 0 {
		return station
	}
	return neighbors[(queuePos-1)%len(neighbors)]
}

func intPtr(i int) *int { return &i }
