package simulation

import (
	"testing"

	"github.com/chargesim/chargesim/grid"
	. "github.com/smartystreets/goconvey/convey"
)

func negotiationsFixture() (*Simulation, *NegotiationEngine) {
	g, _ := grid.NewFromASCII([]string{
		"......",
		".1.2..",
		"......",
		"E.....",
	})
	busy := &ChargingStation{ID: "1", Coord: grid.Coord{X: 1, Y: 1}, Capacity: 1, Occupants: []int{1}, Queue: []int{2, 3}}
	idle := &ChargingStation{ID: "2", Coord: grid.Coord{X: 3, Y: 1}, Capacity: 2}
	vehicles := []*Vehicle{
		NewVehicle(1, grid.Coord{X: 1, Y: 1}, 80, Cooperative),
		NewVehicle(2, grid.Coord{X: 0, Y: 0}, 60, Cooperative),
		NewVehicle(3, grid.Coord{X: 0, Y: 1}, 50, Cooperative),
	}
	sim := NewSimulation(g, []*ChargingStation{busy, idle}, vehicles, Options{
		DrainPerStep: 1, LowThreshold: 40, ChargePerStep: 5, ChargeTarget: 95, DeadlockTicks: 10,
	})
	return sim, NewNegotiationEngine(sim)
}

func TestNegotiationEngine(t *testing.T) {
	Convey("Given a station with a deep queue next to an underloaded sibling", t, func() {
		sim, e := negotiationsFixture()

		Convey("recompute proposes moving the queue's tail vehicle", func() {
			n := e.recompute()
			So(len(n.Items), ShouldEqual, 1)
			cand := n.Items[0]
			So(cand.VehicleID, ShouldEqual, 3)
			So(cand.From, ShouldEqual, "1")
			So(cand.To, ShouldEqual, "2")
			So(sim.Negotiations, ShouldEqual, n)
		})

		Convey("accept moves the vehicle's queue membership to the target station", func() {
			n := e.recompute()
			id := n.Items[0].ID
			So(e.accept(id), ShouldBeNil)
			So(sim.StationByID("1").QueuePosition(3), ShouldEqual, 0)
			So(sim.StationByID("2").QueuePosition(3), ShouldBeGreaterThan, 0)
			So(sim.VehicleByID(3).AssignedStation, ShouldEqual, "2")
		})

		Convey("accept on an unknown id fails", func() {
			e.recompute()
			So(e.accept("no-such-id"), ShouldNotBeNil)
		})

		Convey("reject suppresses the candidate until its cooldown elapses", func() {
			n := e.recompute()
			id := n.Items[0].ID
			So(e.reject(id, 5), ShouldBeNil)
			again := e.recompute()
			So(len(again.Items), ShouldEqual, 0)
		})
	})

	Convey("Given no queue deep enough to trigger a candidate", t, func() {
		sim, e := negotiationsFixture()
		sim.StationByID("1").Queue = []int{2}

		Convey("recompute yields no candidates", func() {
			n := e.recompute()
			So(len(n.Items), ShouldEqual, 0)
		})
	})
}
