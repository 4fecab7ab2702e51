package simulation

import (
	"sort"
	"sync"
	"time"

	"github.com/chargesim/chargesim/grid"
	"github.com/chargesim/chargesim/reservation"
)

// Weights are the assignment cost-function coefficients:
// w_d*manhattan + w_b*(100-battery) + w_l*load.
type Weights struct {
	Distance float64
	Battery  float64
	Load     float64
}

// Options bundles every tunable of the stepping model (§8's scenario
// parameters), independent of any one scenario file.
type Options struct {
	DrainPerStep  float64
	LowThreshold  float64
	ChargePerStep float64
	ChargeTarget  float64
	Weights       Weights
	// DeadlockTicks is the number of consecutive ticks with zero vehicle
	// movement (and at least one non-terminal vehicle) before the run is
	// flagged DeadlockDetected (§7). Defaults to 10 if zero.
	DeadlockTicks int
	// MaxTicks bounds the run length; 0 means unbounded (the caller drives
	// termination externally, e.g. interactively via the server package).
	MaxTicks int
}

func (o Options) withDefaults() Options {
	if o.DeadlockTicks == 0 {
		o.DeadlockTicks = 10
	}
	return o
}

// Simulation is the deterministic per-tick stepping model (C9). It owns
// every collection in the system; components reach each other only
// through its accessors, never via stored pointers to one another (§9).
type Simulation struct {
	Title       string
	Description string

	Grid         *grid.Grid
	Reservation  *reservation.Table
	Bus          *MessageBus
	Orchestrator *Orchestrator
	Options      Options
	Metrics      *Metrics

	// Negotiations holds the most recently computed load-balancing
	// candidate set (see negotiations.go); nil until RecomputeNegotiations
	// has been called at least once.
	Negotiations *Negotiations

	mu sync.Mutex

	vehicles map[int]*Vehicle
	stations map[string]*ChargingStation

	tick     int
	recentLog []*Event
	listeners []Listener

	intents     map[int]grid.Coord // tick-start intended-next snapshot
	startCoords map[int]grid.Coord // tick-start coord snapshot

	noProgressTicks int
	Terminated      bool
	TerminationKind ErrorKind
	TerminationMsg  string

	running      bool
	stopCh       chan struct{}
	tickInterval time.Duration

	initialSnapshot *Snapshot
}

// NewSimulation constructs a ready-to-run Simulation.
func NewSimulation(g *grid.Grid, stations []*ChargingStation, vehicles []*Vehicle, opts Options) *Simulation {
	s := &Simulation{
		Grid:         g,
		Reservation:  reservation.New(),
		Bus:          NewMessageBus(),
		Orchestrator: &Orchestrator{},
		Options:      opts.withDefaults(),
		Metrics:      newMetrics(),
		vehicles:     make(map[int]*Vehicle),
		stations:     make(map[string]*ChargingStation),
	}
	for _, v := range vehicles {
		s.vehicles[v.ID] = v
	}
	for _, st := range stations {
		s.stations[st.ID] = st
	}
	s.initialSnapshot = s.Snapshot()
	return s
}

// Tick returns the current tick counter.
func (s *Simulation) Tick() int { return s.tick }

// VehicleByID looks up a vehicle; nil if unknown.
func (s *Simulation) VehicleByID(id int) *Vehicle { return s.vehicles[id] }

// StationByID looks up a station by id; nil if unknown or id is "".
func (s *Simulation) StationByID(id string) *ChargingStation {
	if id == "" {
		return nil
	}
	return s.stations[id]
}

// vehiclesSlice returns all vehicles sorted by ascending id, the order
// used for deterministic per-tick stepping.
func (s *Simulation) vehiclesSlice() []*Vehicle {
	out := make([]*Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// stationsSlice returns all stations sorted by id, for deterministic
// iteration wherever station order is observable (cost-matrix columns,
// metrics).
func (s *Simulation) stationsSlice() []*ChargingStation {
	out := make([]*ChargingStation, 0, len(s.stations))
	for _, st := range s.stations {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// vehicleAt returns the vehicle currently occupying coord, if any.
func (s *Simulation) vehicleAt(c grid.Coord) (*Vehicle, bool) {
	for _, v := range s.vehicles {
		if !v.State.Terminal() && v.Coord == c {
			return v, true
		}
	}
	return nil, false
}

// planPath runs the grid planner and normalizes its error into a SimError.
func (s *Simulation) planPath(start, goal grid.Coord, blocked map[grid.Coord]bool) ([]grid.Coord, error) {
	path, err := grid.Plan(s.Grid, start, goal, blocked)
	if err != nil {
		return nil, newSimError(NoPathErrorKind, "%v", err)
	}
	return path, nil
}

// urgency combines battery deficit and accumulated wait, normalized to
// [0, 1]; used for counter-proposal adjudication and for scoring
// negotiation candidates (the Assignment Priority field is computed
// separately, from battery alone). Battery deficit contributes
// deficit/threshold; each tick already spent waiting adds a flat 0.1,
// so a vehicle stuck long enough eventually outranks a worse battery
// level alone (see DESIGN.md for this Open-Question resolution).
func (s *Simulation) urgency(v *Vehicle) float64 {
	if s.Options.LowThreshold <= 0 {
		return 0
	}
	batteryTerm := 0.0
	if deficit := s.Options.LowThreshold - v.Battery; deficit > 0 {
		batteryTerm = deficit / s.Options.LowThreshold
		if batteryTerm > 1 {
			batteryTerm = 1
		}
	}
	waitTerm := 0.1 * float64(v.TicksWaiting)
	u := batteryTerm + waitTerm
	if u > 1 {
		u = 1
	}
	return u
}

// counterProposalEpsilon is the minimum urgency margin a proposer must
// hold over its opponent for a counter-proposal swap to be granted.
const counterProposalEpsilon = 0.05

// snapshotIntents captures, before any vehicle moves this tick, every
// active vehicle's current coord and next-planned coord. Collision checks
// consult this rather than live state so a lower-id vehicle that has
// already moved this tick doesn't masquerade as wanting somewhere else.
func (s *Simulation) snapshotIntents() {
	s.intents = make(map[int]grid.Coord)
	s.startCoords = make(map[int]grid.Coord)
	for _, v := range s.vehicles {
		if v.State.Terminal() {
			continue
		}
		s.startCoords[v.ID] = v.Coord
		if next, ok := v.intendedNext(); ok {
			s.intents[v.ID] = next
		}
	}
}

// Step advances the simulation by exactly one tick:
// GC reservations, step vehicles in ascending id order, step the
// orchestrator, collect metrics, advance the tick counter, then check
// termination.
func (s *Simulation) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Terminated {
		return
	}

	s.Reservation.GC(s.tick)
	s.snapshotIntents()

	anyMoved := false
	for _, v := range s.vehiclesSlice() {
		v.Step(s)
		if v.movedThisTick {
			anyMoved = true
		}
	}

	s.Orchestrator.Step(s)

	if anyMoved {
		s.noProgressTicks = 0
	} else if s.hasActiveVehicle() {
		s.noProgressTicks++
	}

	s.tick++
	s.checkTermination()

	s.sendEvent(&Event{Name: TickCompletedEvent, Tick: s.tick})
}

func (s *Simulation) hasActiveVehicle() bool {
	for _, v := range s.vehicles {
		if !v.State.Terminal() {
			return true
		}
	}
	return false
}

func (s *Simulation) checkTermination() {
	if !s.hasActiveVehicle() {
		s.terminate("", "all vehicles reached a terminal state")
		return
	}
	if s.noProgressTicks >= s.Options.DeadlockTicks {
		s.sendEvent(&Event{Name: DeadlockDetectedEvent, Tick: s.tick})
		s.terminate(DeadlockDetectedErrorKind, "no vehicle moved for %d consecutive ticks", s.noProgressTicks)
		return
	}
	if s.Options.MaxTicks > 0 && s.tick >= s.Options.MaxTicks {
		s.terminate(TimedOutErrorKind, "reached the %d tick limit", s.Options.MaxTicks)
	}
}

func (s *Simulation) terminate(kind ErrorKind, format string, args ...interface{}) {
	if s.Terminated {
		return
	}
	s.Terminated = true
	s.TerminationKind = kind
	if format != "" {
		s.TerminationMsg = newSimError(kind, format, args...).Message
	}
	s.sendEvent(&Event{Name: SimulationTerminatedEvent, Tick: s.tick, Object: string(kind)})
}

// RunUntilTerminal steps the simulation until Terminated is set, or the
// tick safety cap is hit (guards against an Options.MaxTicks of 0 combined
// with a run that never reaches a terminal/deadlock/timeout condition in
// a batch context, e.g. tests).
func (s *Simulation) RunUntilTerminal(safetyCap int) {
	for i := 0; i < safetyCap && !s.Terminated; i++ {
		s.Step()
	}
}

// Snapshot is an immutable point-in-time copy of everything needed to
// restore the simulation, captured once at construction and restored by
// the server package's restart action.
type Snapshot struct {
	Vehicles []Vehicle
	Stations []ChargingStation
	Tick     int
}

// Snapshot captures the current state by value.
func (s *Simulation) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &Snapshot{Tick: s.tick}
	for _, v := range s.vehiclesSlice() {
		snap.Vehicles = append(snap.Vehicles, *v)
	}
	for _, st := range s.stationsSlice() {
		snap.Stations = append(snap.Stations, *st)
	}
	return snap
}

// Restore resets the simulation to snap (typically s.initialSnapshot, for
// the server package's restart action).
func (s *Simulation) Restore(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles = make(map[int]*Vehicle)
	s.stations = make(map[string]*ChargingStation)
	for i := range snap.Vehicles {
		v := snap.Vehicles[i]
		s.vehicles[v.ID] = &v
	}
	for i := range snap.Stations {
		st := snap.Stations[i]
		s.stations[st.ID] = &st
	}
	s.tick = snap.Tick
	s.Reservation = reservation.New()
	s.Bus.Reset()
	s.Metrics = newMetrics()
	s.noProgressTicks = 0
	s.Terminated = false
	s.TerminationKind = ""
	s.TerminationMsg = ""
	s.recentLog = nil
}

// Reset restores the simulation to the state it was constructed with.
func (s *Simulation) Reset() {
	s.Restore(s.initialSnapshot)
}
