package simulation

import (
	"testing"

	"github.com/chargesim/chargesim/grid"
	. "github.com/smartystreets/goconvey/convey"
)

func smallGrid(t *testing.T) *grid.Grid {
	g, err := grid.NewFromASCII([]string{
		"....",
		".1..",
		"....",
		"E...",
	})
	if err != nil {
		t.Fatalf("building test grid: %v", err)
	}
	return g
}

func TestVehicleStateMachine(t *testing.T) {
	Convey("Given a single vehicle above the low-battery threshold", t, func() {
		g := smallGrid(t)
		st := &ChargingStation{ID: "1", Coord: grid.Coord{X: 1, Y: 1}, Capacity: 1}
		v := NewVehicle(1, grid.Coord{X: 0, Y: 0}, 90, Cooperative)
		sim := NewSimulation(g, []*ChargingStation{st}, []*Vehicle{v}, Options{
			DrainPerStep: 5, LowThreshold: 40, ChargePerStep: 10, ChargeTarget: 95, DeadlockTicks: 20,
		})

		Convey("It stays Idle while battery remains above LowThreshold", func() {
			sim.Step()
			So(sim.VehicleByID(1).State, ShouldEqual, Idle)
		})

		Convey("It transitions to Waiting once battery crosses LowThreshold", func() {
			sim.VehicleByID(1).Battery = 42
			sim.Step()
			So(sim.VehicleByID(1).State, ShouldEqual, Waiting)
		})

		Convey("A battery-exhausted non-charging vehicle becomes Stranded", func() {
			sim.VehicleByID(1).Battery = 3
			sim.Step()
			So(sim.VehicleByID(1).State, ShouldEqual, Stranded)
			So(sim.VehicleByID(1).State.Terminal(), ShouldBeTrue)
			So(sim.Metrics.StrandedCount, ShouldEqual, 1)
		})
	})

	Convey("Given a vehicle already Charging", t, func() {
		g := smallGrid(t)
		st := &ChargingStation{ID: "1", Coord: grid.Coord{X: 1, Y: 1}, Capacity: 1, Occupants: []int{1}}
		v := NewVehicle(1, grid.Coord{X: 1, Y: 1}, 90, Cooperative)
		v.State = Charging
		v.AssignedStation = "1"
		pos := 0
		v.QueuePos = &pos
		sim := NewSimulation(g, []*ChargingStation{st}, []*Vehicle{v}, Options{
			DrainPerStep: 5, LowThreshold: 40, ChargePerStep: 10, ChargeTarget: 95, DeadlockTicks: 20,
		})

		Convey("Battery does not drain while Charging", func() {
			sim.Step()
			So(sim.VehicleByID(1).Battery, ShouldBeGreaterThan, 90)
		})

		Convey("It transitions to Exiting once battery reaches ChargeTarget", func() {
			sim.VehicleByID(1).Battery = 94
			sim.Step()
			So(sim.VehicleByID(1).State, ShouldEqual, Exiting)
		})
	})
}

func TestVehicleStatusStringAndTerminal(t *testing.T) {
	Convey("Every VehicleStatus has a distinct, non-Unknown String()", t, func() {
		seen := map[string]bool{}
		for _, s := range []VehicleStatus{Idle, Waiting, Moving, Charging, Exiting, Completed, Stranded} {
			So(s.String(), ShouldNotEqual, "Unknown")
			So(seen[s.String()], ShouldBeFalse)
			seen[s.String()] = true
		}
	})
	Convey("Only Completed and Stranded are Terminal", t, func() {
		So(Completed.Terminal(), ShouldBeTrue)
		So(Stranded.Terminal(), ShouldBeTrue)
		So(Idle.Terminal(), ShouldBeFalse)
		So(Moving.Terminal(), ShouldBeFalse)
	})
}

func TestBehaviorString(t *testing.T) {
	Convey("Every named Behavior has its own lowercase label", t, func() {
		So(Cooperative.String(), ShouldEqual, "cooperative")
		So(Competitive.String(), ShouldEqual, "competitive")
		So(TitForTat.String(), ShouldEqual, "titfortat")
		So(NoBehavior.String(), ShouldEqual, "none")
	})
}
