package reservation

import (
	"testing"

	"github.com/chargesim/chargesim/grid"
	. "github.com/smartystreets/goconvey/convey"
)

func TestReservationTable(t *testing.T) {
	Convey("Given an empty reservation table", t, func() {
		tbl := New()

		Convey("A single reservation succeeds and is visible via IsReserved", func() {
			err := tbl.Reserve(1, 5, grid.Coord{X: 2, Y: 2})
			So(err, ShouldBeNil)
			owner, ok := tbl.IsReserved(5, grid.Coord{X: 2, Y: 2})
			So(ok, ShouldBeTrue)
			So(owner, ShouldEqual, 1)
		})

		Convey("A conflicting reservation by another vehicle fails", func() {
			So(tbl.Reserve(1, 5, grid.Coord{X: 2, Y: 2}), ShouldBeNil)
			err := tbl.Reserve(2, 5, grid.Coord{X: 2, Y: 2})
			So(err, ShouldNotBeNil)
			_, ok := err.(*Conflict)
			So(ok, ShouldBeTrue)
		})

		Convey("ReservePath rolls back on the first conflict", func() {
			So(tbl.Reserve(2, 6, grid.Coord{X: 1, Y: 0}), ShouldBeNil)
			path := []grid.Coord{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
			err := tbl.ReservePath(1, 5, path)
			So(err, ShouldNotBeNil)
			// The first cell of vehicle 1's path must have been rolled back.
			_, ok := tbl.IsReserved(5, grid.Coord{X: 0, Y: 0})
			So(ok, ShouldBeFalse)
		})

		Convey("ClearVehicle removes all of a vehicle's reservations", func() {
			path := []grid.Coord{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
			So(tbl.ReservePath(1, 0, path), ShouldBeNil)
			So(tbl.Count(), ShouldEqual, 3)
			tbl.ClearVehicle(1)
			So(tbl.Count(), ShouldEqual, 0)
		})

		Convey("GC drops stale entries", func() {
			So(tbl.Reserve(1, 1, grid.Coord{X: 0, Y: 0}), ShouldBeNil)
			So(tbl.Reserve(1, 3, grid.Coord{X: 0, Y: 1}), ShouldBeNil)
			tbl.GC(3)
			_, ok1 := tbl.IsReserved(1, grid.Coord{X: 0, Y: 0})
			_, ok3 := tbl.IsReserved(3, grid.Coord{X: 0, Y: 1})
			So(ok1, ShouldBeFalse)
			So(ok3, ShouldBeTrue)
		})
	})
}
