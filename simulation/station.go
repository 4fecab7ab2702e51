package simulation

import "github.com/chargesim/chargesim/grid"

// ChargingStation is a shared, scarce charging resource (§3). Its mutable
// fields (occupants, queue) are owned exclusively by the stepping model and
// mutated only inside the orchestrator's step slot (§5) — never directly by
// a vehicle.
type ChargingStation struct {
	ID       string
	Coord    grid.Coord
	Capacity int

	// Occupants is the ordered set of vehicle ids currently charging here,
	// size <= Capacity.
	Occupants []int
	// Queue is the ordered, 1-indexed-by-position list of waiting vehicle
	// ids. Queue[0] has QueuePos 1, and so on.
	Queue []int
}

// Load is |occupants| + |queue|, the station's total claim count, used by
// the assignment cost function (§4.6) and negotiation candidate selection.
func (s *ChargingStation) Load() int {
	return len(s.Occupants) + len(s.Queue)
}

// IsOccupant reports whether vehicleID currently holds an occupant slot.
func (s *ChargingStation) IsOccupant(vehicleID int) bool {
	for _, v := range s.Occupants {
		if v == vehicleID {
			return true
		}
	}
	return false
}

// QueuePosition returns the 1-based position of vehicleID in the queue, or
// 0 if it is not queued (including if it is an occupant).
func (s *ChargingStation) QueuePosition(vehicleID int) int {
	for i, v := range s.Queue {
		if v == vehicleID {
			return i + 1
		}
	}
	return 0
}

// removeFromQueue deletes vehicleID from the queue, preserving order of the
// remainder.
func (s *ChargingStation) removeFromQueue(vehicleID int) bool {
	for i, v := range s.Queue {
		if v == vehicleID {
			s.Queue = append(s.Queue[:i], s.Queue[i+1:]...)
			return true
		}
	}
	return false
}

// removeOccupant deletes vehicleID from the occupants set.
func (s *ChargingStation) removeOccupant(vehicleID int) bool {
	for i, v := range s.Occupants {
		if v == vehicleID {
			s.Occupants = append(s.Occupants[:i], s.Occupants[i+1:]...)
			return true
		}
	}
	return false
}

// promoteHead moves Queue[0] (if any) into Occupants, provided there is a
// free slot. Returns the promoted vehicle id, or 0 if no promotion
// happened. Called by the orchestrator when an occupant vacates (§4.7).
func (s *ChargingStation) promoteHead() (int, bool) {
	if len(s.Occupants) >= s.Capacity || len(s.Queue) == 0 {
		return 0, false
	}
	head := s.Queue[0]
	s.Queue = s.Queue[1:]
	s.Occupants = append(s.Occupants, head)
	return head, true
}
