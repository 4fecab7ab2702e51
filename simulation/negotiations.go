package simulation

import (
	"fmt"
	"sort"
)

// negotiationEngine is the package-level instance bound to the running
// Simulation; the server package never holds a reference to it directly,
// only calls the functions below.
var negotiationEngine *NegotiationEngine

// NegotiationAction names a hub object/action pair the client can replay to
// apply a candidate, so the web client doesn't need to special-case each
// negotiation kind.
type NegotiationAction struct {
	Object string                 `json:"object"`
	Action string                 `json:"action"`
	Params map[string]interface{} `json:"params"`
}

// NegotiationCandidate is a proposed station reassignment for a queued
// vehicle, surfaced to an operator as a reviewable suggestion rather than
// applied automatically. It exists alongside the automatic counter-proposal
// adjudication of §4.8: that layer resolves disputes between two vehicles
// every tick; this one is an operator-facing load-balancing aid, computed
// on demand.
type NegotiationCandidate struct {
	ID        string              `json:"id"`
	VehicleID int                 `json:"vehicleId"`
	From      string              `json:"fromStation"`
	To        string              `json:"toStation"`
	Reason    string              `json:"reason"`
	Score     float64             `json:"score"`
	Actions   []NegotiationAction `json:"actions"`
}

// Negotiations wraps a computed candidate set for serialization.
type Negotiations struct {
	Items       []NegotiationCandidate `json:"items"`
	GeneratedAt int                    `json:"generatedAtTick"`
}

// NegotiationEngine computes and manages station-reassignment candidates
// for vehicles sitting in a queue: one candidate kind, no periodic
// interval gate (recompute is explicit, driven by the hub "recompute"
// action or a client's "list" call finding nothing computed yet).
type NegotiationEngine struct {
	sim             *Simulation
	rejectedUntil   map[string]int // candidate id -> tick to suppress until
}

// NewNegotiationEngine returns an engine bound to sim with no suppressions.
func NewNegotiationEngine(sim *Simulation) *NegotiationEngine {
	return &NegotiationEngine{sim: sim, rejectedUntil: make(map[string]int)}
}

// ResetNegotiationEngine rebinds the package-level engine to sim (typically
// after sim.Reset()), clearing every suppression and cached candidate set.
func ResetNegotiationEngine(sim *Simulation) {
	negotiationEngine = NewNegotiationEngine(sim)
	sim.Negotiations = nil
}

// RecomputeNegotiations regenerates the candidate set and stores it on the
// bound simulation, filtering out anything still under rejection cooldown.
func RecomputeNegotiations() *Negotiations {
	if negotiationEngine == nil {
		return &Negotiations{}
	}
	return negotiationEngine.recompute()
}

// AcceptNegotiation looks up candidate id and applies it (moving the
// vehicle's queue slot to the target station). It does not recompute the
// candidate set; the hub and HTTP callers call RecomputeNegotiations after.
func AcceptNegotiation(id string) error {
	if negotiationEngine == nil {
		return fmt.Errorf("negotiation engine not initialized")
	}
	return negotiationEngine.accept(id)
}

// RejectNegotiation suppresses candidate id for cooldownTicks simulation
// ticks (0 means "until the next RecomputeNegotiations call only").
func RejectNegotiation(id string, cooldownTicks int) error {
	if negotiationEngine == nil {
		return fmt.Errorf("negotiation engine not initialized")
	}
	return negotiationEngine.reject(id, cooldownTicks)
}

func (e *NegotiationEngine) recompute() *Negotiations {
	s := e.sim
	s.mu.Lock()
	defer s.mu.Unlock()

	stations := s.stationsSlice()
	var items []NegotiationCandidate
	for _, from := range stations {
		if len(from.Queue) < 2 {
			continue
		}
		// A station with a deep queue while a sibling sits underloaded is
		// this engine's one candidate kind: move the queue's tail rider to
		// the least-loaded alternative station (reachability from the
		// vehicle's coord is not checked).
		var best *ChargingStation
		for _, to := range stations {
			if to.ID == from.ID {
				continue
			}
			if to.Load() >= from.Load() {
				continue
			}
			if best == nil || to.Load() < best.Load() {
				best = to
			}
		}
		if best == nil {
			continue
		}
		tail := from.Queue[len(from.Queue)-1]
		v := s.vehicles[tail]
		if v == nil {
			continue
		}
		id := fmt.Sprintf("reassign-%d-%s-%s-%d", v.ID, from.ID, best.ID, s.tick)
		if until, ok := e.rejectedUntil[candidateKey(v.ID, from.ID, best.ID)]; ok && s.tick < until {
			continue
		}
		score := float64(from.Load()-best.Load()) + s.urgency(v)
		items = append(items, NegotiationCandidate{
			ID:        id,
			VehicleID: v.ID,
			From:      from.ID,
			To:        best.ID,
			Reason:    fmt.Sprintf("station %s load %d vs %s load %d", from.ID, from.Load(), best.ID, best.Load()),
			Score:     score,
			Actions: []NegotiationAction{{
				Object: "negotiations",
				Action: "accept",
				Params: map[string]interface{}{"id": id},
			}},
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	n := &Negotiations{Items: items, GeneratedAt: s.tick}
	s.Negotiations = n
	return n
}

func (e *NegotiationEngine) accept(id string) error {
	s := e.sim
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Negotiations == nil {
		return fmt.Errorf("no negotiations computed yet")
	}
	var cand *NegotiationCandidate
	for i := range s.Negotiations.Items {
		if s.Negotiations.Items[i].ID == id {
			cand = &s.Negotiations.Items[i]
			break
		}
	}
	if cand == nil {
		return fmt.Errorf("unknown negotiation candidate %q", id)
	}
	from := s.stations[cand.From]
	to := s.stations[cand.To]
	v := s.vehicles[cand.VehicleID]
	if from == nil || to == nil || v == nil {
		return fmt.Errorf("negotiation candidate %q no longer applies", id)
	}
	if !from.removeFromQueue(v.ID) {
		return fmt.Errorf("vehicle %d is no longer queued at %s", v.ID, from.ID)
	}
	to.Queue = append(to.Queue, v.ID)
	v.AssignedStation = to.ID
	pos := len(to.Queue)
	v.QueuePos = &pos
	v.State = Waiting
	s.sendEvent(&Event{Name: QueuePromotedEvent, Tick: s.tick, Object: v.ID})
	return nil
}

func (e *NegotiationEngine) reject(id string, cooldownTicks int) error {
	s := e.sim
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Negotiations == nil {
		return fmt.Errorf("no negotiations computed yet")
	}
	for _, c := range s.Negotiations.Items {
		if c.ID == id {
			e.rejectedUntil[candidateKey(c.VehicleID, c.From, c.To)] = s.tick + cooldownTicks
			return nil
		}
	}
	return fmt.Errorf("unknown negotiation candidate %q", id)
}

func candidateKey(vehicleID int, from, to string) string {
	return fmt.Sprintf("%d|%s|%s", vehicleID, from, to)
}
