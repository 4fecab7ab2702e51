package simulation

import (
	"testing"

	"github.com/chargesim/chargesim/grid"
	. "github.com/smartystreets/goconvey/convey"
)

func TestReconcileStationsPromotionNotifiesQueue(t *testing.T) {
	Convey("Given a station whose occupant just vacated with two vehicles queued behind it", t, func() {
		g := smallGrid(t)
		st := &ChargingStation{
			ID:        "1",
			Coord:     grid.Coord{X: 1, Y: 1},
			Capacity:  1,
			Occupants: []int{1},
			Queue:     []int{2, 3},
		}
		occupant := NewVehicle(1, grid.Coord{X: 1, Y: 1}, 90, Cooperative)
		occupant.State = Completed
		occupant.AssignedStation = "1"

		head := NewVehicle(2, grid.Coord{X: 0, Y: 1}, 60, Cooperative)
		head.State = Waiting
		headPos := 1
		head.QueuePos = &headPos
		head.AssignedStation = "1"

		tail := NewVehicle(3, grid.Coord{X: 0, Y: 2}, 60, Cooperative)
		tail.State = Waiting
		tailPos := 2
		tail.QueuePos = &tailPos
		tail.AssignedStation = "1"

		sim := NewSimulation(g, []*ChargingStation{st}, []*Vehicle{occupant, head, tail}, Options{
			DrainPerStep: 1, LowThreshold: 40, ChargePerStep: 5, ChargeTarget: 95, DeadlockTicks: 10,
		})

		sim.Orchestrator.reconcileStations(sim)

		Convey("The head is promoted into the vacated occupant slot", func() {
			So(st.Occupants, ShouldResemble, []int{2})
			So(st.Queue, ShouldResemble, []int{3})
		})

		Convey("The promoted vehicle receives a fresh QueuePos-0 Assignment", func() {
			msgs := sim.Bus.Drain(2)
			So(len(msgs), ShouldEqual, 1)
			a, ok := msgs[0].(*Assignment)
			So(ok, ShouldBeTrue)
			So(a.StationID, ShouldEqual, "1")
			So(a.QueuePos, ShouldEqual, 0)
		})

		Convey("The remaining queued vehicle receives a renumbered Assignment", func() {
			msgs := sim.Bus.Drain(3)
			So(len(msgs), ShouldEqual, 1)
			a, ok := msgs[0].(*Assignment)
			So(ok, ShouldBeTrue)
			So(a.StationID, ShouldEqual, "1")
			So(a.QueuePos, ShouldEqual, 1)
		})
	})
}

func TestAdjudicateProposalsEpsilonMargin(t *testing.T) {
	Convey("Given two vehicles queued at the same station", t, func() {
		g := smallGrid(t)
		st := &ChargingStation{
			ID:       "3",
			Coord:    grid.Coord{X: 1, Y: 1},
			Capacity: 1,
			Queue:    []int{100, 200},
		}
		opponent := NewVehicle(100, grid.Coord{X: 0, Y: 0}, 50, Cooperative)
		opponentPos := 1
		opponent.QueuePos = &opponentPos

		proposer := NewVehicle(200, grid.Coord{X: 0, Y: 1}, 50, Cooperative)
		proposerPos := 2
		proposer.QueuePos = &proposerPos

		sim := NewSimulation(g, []*ChargingStation{st}, []*Vehicle{opponent, proposer}, Options{
			DrainPerStep: 1, LowThreshold: 50, ChargePerStep: 5, ChargeTarget: 95, DeadlockTicks: 10,
		})

		Convey("A margin below epsilon is rejected and the queue is untouched", func() {
			proposer.Battery = 49 // urgency 0.02, opponent urgency 0
			p := &CounterProposal{VehicleID: 200, CurrentStation: "3", Target: TargetQueuePos, Urgency: sim.urgency(proposer)}
			sim.Orchestrator.adjudicateProposals(sim, []*CounterProposal{p})
			So(st.Queue, ShouldResemble, []int{100, 200})
		})

		Convey("A margin at or above epsilon is accepted and swaps the pair", func() {
			proposer.Battery = 40 // urgency 0.2, opponent urgency 0
			p := &CounterProposal{VehicleID: 200, CurrentStation: "3", Target: TargetQueuePos, Urgency: sim.urgency(proposer)}
			sim.Orchestrator.adjudicateProposals(sim, []*CounterProposal{p})
			So(st.Queue, ShouldResemble, []int{200, 100})
		})
	})
}
