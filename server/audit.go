package server

import (
	"strconv"
	"sync"
	"time"

	"github.com/chargesim/chargesim/simulation"
)

// AuditEntry is a single audit log item sent to the web client.
type AuditEntry struct {
	ID        string                 `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Event     string                 `json:"event"`
	Category  string                 `json:"category"`
	Severity  string                 `json:"severity"`
	Object    map[string]interface{} `json:"object"`
	Details   map[string]interface{} `json:"details"`
}

type auditState struct {
	mu          sync.RWMutex
	entries     []AuditEntry
	capacity    int
	nextID      int64
	subscribers map[chan AuditEntry]bool
}

var audits = &auditState{}

func init() {
	audits.capacity = 1000
	audits.entries = make([]AuditEntry, 0, audits.capacity)
	audits.subscribers = make(map[chan AuditEntry]bool)
}

// startAuditListener wires recordAuditFromEvent into sim's event stream.
func startAuditListener(s *simulation.Simulation) {
	s.AddListener(recordAuditFromEvent)
}

func (a *auditState) append(entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	entry.ID = strconv.FormatInt(a.nextID, 10)
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if len(a.entries) == a.capacity {
		copy(a.entries[0:], a.entries[1:])
		a.entries[len(a.entries)-1] = entry
	} else {
		a.entries = append(a.entries, entry)
	}
	for ch := range a.subscribers {
		select {
		case ch <- entry:
		default:
		}
	}
}

func (a *auditState) subscribe() chan AuditEntry {
	ch := make(chan AuditEntry, 256)
	a.mu.Lock()
	a.subscribers[ch] = true
	a.mu.Unlock()
	return ch
}

func (a *auditState) unsubscribe(ch chan AuditEntry) {
	a.mu.Lock()
	delete(a.subscribers, ch)
	a.mu.Unlock()
	close(ch)
}

// getSince returns up to limit entries with ID strictly greater than sinceID.
func (a *auditState) getSince(sinceID int64, limit int) []AuditEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]AuditEntry, 0, limit)
	for i := 0; i < len(a.entries); i++ {
		id, _ := strconv.ParseInt(a.entries[i].ID, 10, 64)
		if id > sinceID {
			out = append(out, a.entries[i])
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// recordAuditFromEvent converts a simulation event into an AuditEntry.
func recordAuditFromEvent(e *simulation.Event) {
	if e == nil {
		return
	}
	entry := AuditEntry{
		Severity: "INFO",
		Object:   map[string]interface{}{},
		Details:  map[string]interface{}{},
	}
	switch e.Name {
	case simulation.VehicleStatusChangedEvent:
		entry.Event = "VEHICLE_STATUS_CHANGED"
		entry.Category = "vehicle"
		if v, ok := e.Object.(*simulation.Vehicle); ok {
			entry.Object["id"] = v.ID
			entry.Details["state"] = v.State.String()
			entry.Details["battery"] = v.Battery
		}
	case simulation.VehicleCompletedEvent:
		entry.Event = "VEHICLE_COMPLETED"
		entry.Category = "vehicle"
		if v, ok := e.Object.(*simulation.Vehicle); ok {
			entry.Object["id"] = v.ID
			entry.Details["ticksWaiting"] = v.TicksWaiting
			entry.Details["ticksCharging"] = v.TicksCharging
			entry.Details["distanceTraveled"] = v.DistanceTraveled
		}
	case simulation.VehicleStrandedEvent:
		entry.Event = "VEHICLE_STRANDED"
		entry.Category = "vehicle"
		entry.Severity = "WARN"
		if v, ok := e.Object.(*simulation.Vehicle); ok {
			entry.Object["id"] = v.ID
			entry.Details["lastCoord"] = v.Coord
		}
	case simulation.VehicleYieldedEvent:
		entry.Event = "VEHICLE_YIELDED"
		entry.Category = "collision"
		if obj, ok := e.Object.(map[string]interface{}); ok {
			entry.Details = obj
		}
	case simulation.VehicleReplannedEvent:
		entry.Event = "VEHICLE_REPLANNED"
		entry.Category = "planning"
	case simulation.AssignmentIssuedEvent:
		entry.Event = "ASSIGNMENT_ISSUED"
		entry.Category = "orchestrator"
		if a, ok := e.Object.(*simulation.Assignment); ok {
			entry.Object["vehicleId"] = a.VehicleID
			entry.Details["stationId"] = a.StationID
			entry.Details["queuePos"] = a.QueuePos
		}
	case simulation.AssignmentInfeasibleEvent:
		entry.Event = "ASSIGNMENT_INFEASIBLE"
		entry.Category = "orchestrator"
		entry.Severity = "WARN"
		if id, ok := e.Object.(int); ok {
			entry.Object["vehicleId"] = id
		}
	case simulation.QueuePromotedEvent:
		entry.Event = "QUEUE_PROMOTED"
		entry.Category = "orchestrator"
		if obj, ok := e.Object.(map[string]interface{}); ok {
			entry.Details = obj
		}
	case simulation.CounterProposalEvent:
		entry.Event = "COUNTER_PROPOSAL"
		entry.Category = "negotiation"
	case simulation.AssignmentDecisionEvent:
		entry.Event = "ASSIGNMENT_DECISION"
		entry.Category = "negotiation"
	case simulation.DeadlockDetectedEvent:
		entry.Event = "DEADLOCK_DETECTED"
		entry.Category = "system"
		entry.Severity = "CRIT"
	case simulation.SimulationTerminatedEvent:
		entry.Event = "SIMULATION_TERMINATED"
		entry.Category = "system"
		entry.Severity = "CRIT"
		if kind, ok := e.Object.(string); ok {
			entry.Details["kind"] = kind
		}
	default:
		// Chatty per-tick events (TickCompletedEvent, VehicleMovedEvent) are
		// deliberately not audited.
		return
	}
	audits.append(entry)
}
