// Package reservation implements the spatial-temporal reservation table
// (C3): a per-tick cell ownership map used to detect and avoid future
// collisions that the vehicle priority rule alone cannot catch (head-on and
// swap conflicts).
package reservation

import "github.com/chargesim/chargesim/grid"

// key addresses a single (tick, coord) slot.
type key struct {
	Tick  int
	Coord grid.Coord
}

// Conflict reports that a (tick, coord) slot is already owned by another
// vehicle.
type Conflict struct {
	Tick     int
	Coord    grid.Coord
	Existing int
}

func (c *Conflict) Error() string {
	return "reservation: conflict at tick with existing owner"
}

// Table is the per-tick cell ownership map. It is mutated only by vehicles
// during their own step slot, in ascending id order, so no synchronization
// is required.
type Table struct {
	byCell    map[key]int           // (tick, coord) -> vehicle id
	byVehicle map[int][]key         // vehicle id -> its reservations, in tick order
}

// New returns an empty reservation table.
func New() *Table {
	return &Table{
		byCell:    make(map[key]int),
		byVehicle: make(map[int][]key),
	}
}

// Reserve claims (tick, coord) for vehicleID. It fails with *Conflict if
// another vehicle already holds that slot.
func (t *Table) Reserve(vehicleID, tick int, coord grid.Coord) error {
	k := key{tick, coord}
	if existing, ok := t.byCell[k]; ok && existing != vehicleID {
		return &Conflict{tick, coord, existing}
	}
	if _, ok := t.byCell[k]; ok {
		return nil // already reserved by the same vehicle; idempotent.
	}
	t.byCell[k] = vehicleID
	t.byVehicle[vehicleID] = append(t.byVehicle[vehicleID], k)
	return nil
}

// ReservePath reserves path[0] at firstTick, path[1] at firstTick+1, and so
// on, rolling back everything it reserved on the first conflict.
func (t *Table) ReservePath(vehicleID, firstTick int, path []grid.Coord) error {
	reserved := make([]key, 0, len(path))
	for i, c := range path {
		tick := firstTick + i
		if err := t.Reserve(vehicleID, tick, c); err != nil {
			for _, k := range reserved {
				t.release(k)
			}
			return err
		}
		reserved = append(reserved, key{tick, c})
	}
	return nil
}

func (t *Table) release(k key) {
	if owner, ok := t.byCell[k]; ok {
		delete(t.byCell, k)
		vs := t.byVehicle[owner]
		for i, e := range vs {
			if e == k {
				t.byVehicle[owner] = append(vs[:i], vs[i+1:]...)
				break
			}
		}
	}
}

// IsReserved reports which vehicle, if any, owns (tick, coord).
func (t *Table) IsReserved(tick int, coord grid.Coord) (int, bool) {
	v, ok := t.byCell[key{tick, coord}]
	return v, ok
}

// ClearVehicle removes every reservation held by vehicleID, e.g. before it
// replans.
func (t *Table) ClearVehicle(vehicleID int) {
	for _, k := range t.byVehicle[vehicleID] {
		delete(t.byCell, k)
	}
	delete(t.byVehicle, vehicleID)
}

// GC drops every entry with tick < currentTick.
func (t *Table) GC(currentTick int) {
	for k := range t.byCell {
		if k.Tick < currentTick {
			t.release(k)
		}
	}
}

// Count returns the number of live reservations, for tests/metrics.
func (t *Table) Count() int { return len(t.byCell) }
