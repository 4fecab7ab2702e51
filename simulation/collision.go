package simulation

import "github.com/chargesim/chargesim/grid"

// collisionCheck implements the four-rule priority scheme for a vehicle v
// about to step onto intendedNext. It returns whether v
// must yield this tick, and a short machine-readable reason for events.
//
// Rule 1 (reserved) consults the live reservation table, which is filled
// in ascending vehicle-id order within the tick, so lower-id vehicles'
// claims are already visible by the time a higher-id vehicle checks.
// Rule 2 (lower-id-intent) and the swap test in rule 3 consult the
// tick-start intent snapshot (sim.intents) rather than live state, since a
// lower-id vehicle that already moved this tick has advanced its own Path
// and would otherwise look like it wants somewhere else entirely.
func collisionCheck(sim *Simulation, v *Vehicle, intendedNext grid.Coord) (bool, string) {
	if owner, ok := sim.Reservation.IsReserved(sim.tick+1, intendedNext); ok && owner != v.ID {
		return true, "reserved"
	}

	for _, other := range sim.vehiclesSlice() {
		if other.ID == v.ID || other.ID >= v.ID {
			continue
		}
		if next, ok := sim.intents[other.ID]; ok && next == intendedNext {
			return true, "lower-id-intent"
		}
	}

	if occupant, ok := sim.vehicleAt(intendedNext); ok && occupant.ID != v.ID {
		if start, ok := sim.startCoords[occupant.ID]; ok && start == intendedNext {
			if occNext, has := sim.intents[occupant.ID]; has && occNext == v.Coord {
				if v.ID < occupant.ID {
					return false, ""
				}
				return true, "swap"
			}
		}
		return true, "occupied"
	}

	return false, ""
}
