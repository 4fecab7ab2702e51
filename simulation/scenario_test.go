package simulation

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func baseScenario() *Scenario {
	return &Scenario{
		Title: "test",
		Map: []string{
			"......",
			".##...",
			".#1...",
			"......",
			"E.....",
		},
		Stations:      []StationConfig{{ID: "1", Capacity: 1}},
		Vehicles:      []VehicleConfig{{ID: 1, X: 5, Y: 0, Battery: 50, Behavior: "cooperative"}},
		DrainPerStep:  1,
		LowThreshold:  30,
		ChargePerStep: 5,
		ChargeTarget:  95,
		DeadlockTicks: 10,
	}
}

func TestScenarioValidate(t *testing.T) {
	Convey("Given a well-formed scenario", t, func() {
		sc := baseScenario()

		Convey("Validate succeeds", func() {
			So(sc.Validate(), ShouldBeNil)
		})

		Convey("A duplicate station id fails", func() {
			sc.Stations = append(sc.Stations, StationConfig{ID: "1", Capacity: 2})
			err := sc.Validate()
			So(err, ShouldNotBeNil)
			So(err.(*SimError).Kind, ShouldEqual, ConfigErrorKind)
		})

		Convey("A duplicate vehicle id fails", func() {
			sc.Vehicles = append(sc.Vehicles, VehicleConfig{ID: 1, X: 0, Y: 0, Battery: 50})
			So(sc.Validate(), ShouldNotBeNil)
		})

		Convey("An out-of-range battery fails", func() {
			sc.Vehicles[0].Battery = 150
			So(sc.Validate(), ShouldNotBeNil)
		})

		Convey("A non-positive station capacity fails", func() {
			sc.Stations[0].Capacity = 0
			So(sc.Validate(), ShouldNotBeNil)
		})

		Convey("An empty map fails", func() {
			sc.Map = nil
			So(sc.Validate(), ShouldNotBeNil)
		})
	})
}

func TestScenarioBuild(t *testing.T) {
	Convey("Given a well-formed scenario", t, func() {
		sc := baseScenario()

		Convey("Build succeeds and wires stations/vehicles/title through", func() {
			sim, err := sc.Build()
			So(err, ShouldBeNil)
			So(sim.Title, ShouldEqual, "test")
			So(len(sim.Vehicles()), ShouldEqual, 1)
			So(len(sim.Stations()), ShouldEqual, 1)
			So(sim.StationByID("1").Capacity, ShouldEqual, 1)
		})

		Convey("A vehicle starting on an obstacle is rejected", func() {
			sc.Vehicles[0].X, sc.Vehicles[0].Y = 1, 1
			_, err := sc.Build()
			So(err, ShouldNotBeNil)
			So(err.(*SimError).Kind, ShouldEqual, ConfigErrorKind)
		})

		Convey("A configured station missing from the map is rejected", func() {
			sc.Stations = append(sc.Stations, StationConfig{ID: "2", Capacity: 1})
			_, err := sc.Build()
			So(err, ShouldNotBeNil)
		})

		Convey("A map station with no configured capacity is rejected", func() {
			sc.Stations = nil
			_, err := sc.Build()
			So(err, ShouldNotBeNil)
		})

		Convey("An unknown behavior string is rejected", func() {
			sc.Vehicles[0].Behavior = "berserk"
			_, err := sc.Build()
			So(err, ShouldNotBeNil)
		})

		Convey("A station walled off from the exit is rejected", func() {
			sc.Map = []string{
				"E....",
				".###.",
				".#1#.",
				".###.",
				".....",
			}
			sc.Stations = []StationConfig{{ID: "1", Capacity: 1}}
			sc.Vehicles = []VehicleConfig{{ID: 1, X: 0, Y: 0, Battery: 50, Behavior: "cooperative"}}
			_, err := sc.Build()
			So(err, ShouldNotBeNil)
			So(err.(*SimError).Kind, ShouldEqual, ConfigErrorKind)
		})
	})
}
