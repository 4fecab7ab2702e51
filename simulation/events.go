package simulation

import log "gopkg.in/inconshreveable/log15.v2"

// logger is the package-level structured logger, initialized by
// InitializeLogger from main the same way the server package is.
var logger log.Logger = log.New()

// InitializeLogger creates the logger for the simulation package as a
// child of the application's root logger.
func InitializeLogger(parent log.Logger) {
	logger = parent.New("module", "simulation")
}

// EventName tags the kind of a simulation Event, drawn from a flat
// string-constant catalogue.
type EventName string

const (
	VehicleStatusChangedEvent  EventName = "vehicleStatusChanged"
	VehicleMovedEvent          EventName = "vehicleMoved"
	VehicleYieldedEvent        EventName = "vehicleYielded"
	VehicleReplannedEvent      EventName = "vehicleReplanned"
	VehicleStrandedEvent       EventName = "vehicleStranded"
	VehicleCompletedEvent      EventName = "vehicleCompleted"
	AssignmentIssuedEvent      EventName = "assignmentIssued"
	AssignmentInfeasibleEvent  EventName = "assignmentInfeasible"
	QueuePromotedEvent         EventName = "queuePromoted"
	CounterProposalEvent       EventName = "counterProposal"
	AssignmentDecisionEvent    EventName = "assignmentDecision"
	DeadlockDetectedEvent      EventName = "deadlockDetected"
	TickCompletedEvent         EventName = "tickCompleted"
	SimulationTerminatedEvent  EventName = "simulationTerminated"
)

// Event is a single observable occurrence, broadcast to any registered
// listeners (the server package's audit trail and metrics collector are
// the production listeners; tests may register their own).
type Event struct {
	Name   EventName
	Tick   int
	Object interface{}
}

// sendEvent appends e to the simulation's bounded recent-log buffer and
// fans it out to registered listeners, in registration order.
func (s *Simulation) sendEvent(e *Event) {
	s.recentLog = append(s.recentLog, e)
	if len(s.recentLog) > maxRecentLog {
		s.recentLog = s.recentLog[len(s.recentLog)-maxRecentLog:]
	}
	for _, l := range s.listeners {
		l(e)
	}
}

const maxRecentLog = 200

// Listener receives every Event the simulation emits.
type Listener func(*Event)

// AddListener registers l to receive future events. Used by the server
// package to wire the audit trail and metrics collector without the
// simulation package importing either.
func (s *Simulation) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}
