package simulation

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHungarianAssign(t *testing.T) {
	Convey("Given a square cost matrix with an obvious optimum", t, func() {
		cost := [][]float64{
			{4, 1, 3},
			{2, 0, 5},
			{3, 2, 2},
		}

		Convey("It finds the minimum-cost perfect matching", func() {
			assignment := hungarianAssign(cost)
			So(assignment, ShouldResemble, []int{1, 0, 2})
			total := 0.0
			for row, col := range assignment {
				So(col, ShouldBeGreaterThanOrEqualTo, 0)
				total += cost[row][col]
			}
			So(total, ShouldEqual, 5.0)
		})
	})

	Convey("Given more rows (vehicles) than columns (station slots)", t, func() {
		cost := [][]float64{
			{1, 9},
			{9, 1},
			{5, 5},
		}

		Convey("One row is left unmatched (-1) and the other two take the cheap slots", func() {
			assignment := hungarianAssign(cost)
			So(len(assignment), ShouldEqual, 3)
			matched := 0
			for _, col := range assignment {
				if col >= 0 {
					matched++
				}
			}
			So(matched, ShouldEqual, 2)
			So(assignment[0], ShouldEqual, 0)
			So(assignment[1], ShouldEqual, 1)
			So(assignment[2], ShouldEqual, -1)
		})
	})

	Convey("An empty cost matrix yields a nil assignment", t, func() {
		So(hungarianAssign(nil), ShouldBeNil)
	})
}
