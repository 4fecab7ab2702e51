package grid

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGridFromASCII(t *testing.T) {
	Convey("Given a small ASCII map", t, func() {
		rows := []string{
			"...",
			".#.",
			"0.E",
		}

		Convey("When parsed", func() {
			g, err := NewFromASCII(rows)

			Convey("It builds without error", func() {
				So(err, ShouldBeNil)
				So(g.Width, ShouldEqual, 3)
				So(g.Height, ShouldEqual, 3)
			})

			Convey("Obstacles are not walkable", func() {
				So(g.IsWalkable(Coord{1, 1}), ShouldBeFalse)
			})

			Convey("Stations and the exit are walkable", func() {
				So(g.IsWalkable(Coord{0, 2}), ShouldBeTrue)
				So(g.IsWalkable(Coord{2, 2}), ShouldBeTrue)
				So(g.Exit(), ShouldResemble, Coord{2, 2})
			})

			Convey("Neighbors4 is filtered to walkable cells in N,E,S,W order", func() {
				ns := g.Neighbors4(Coord{1, 0})
				So(ns, ShouldResemble, []Coord{{2, 0}, {0, 0}})
			})
		})

		Convey("When a row has the wrong width", func() {
			_, err := NewFromASCII([]string{"..", "."})
			Convey("It reports a parse error", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When there is no exit", func() {
			_, err := NewFromASCII([]string{"...", "..."})
			Convey("It reports a parse error", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestAStarPlan(t *testing.T) {
	Convey("Given a grid with an obstacle wall", t, func() {
		rows := []string{
			".....",
			".###.",
			".....",
			"E....",
		}
		g, err := NewFromASCII(rows)
		So(err, ShouldBeNil)

		Convey("When planning around the wall", func() {
			path, err := Plan(g, Coord{2, 0}, Coord{2, 2}, nil)

			Convey("It finds the shortest path length", func() {
				So(err, ShouldBeNil)
				So(path[0], ShouldResemble, Coord{2, 0})
				So(path[len(path)-1], ShouldResemble, Coord{2, 2})
				// Manhattan distance is 2, but the wall forces a detour
				// around either end: 6 steps, 7 cells.
				So(len(path), ShouldEqual, 7)
			})
		})

		Convey("When the goal is unreachable", func() {
			blocked := map[Coord]bool{{0, 2}: true, {1, 2}: true, {2, 2}: true, {3, 2}: true, {4, 2}: true}
			_, err := Plan(g, Coord{0, 0}, Coord{0, 3}, blocked)

			Convey("It returns ErrNoPath", func() {
				So(err, ShouldNotBeNil)
				_, ok := err.(*ErrNoPath)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When start equals goal", func() {
			path, err := Plan(g, Coord{2, 2}, Coord{2, 2}, nil)
			Convey("It returns a single-cell path", func() {
				So(err, ShouldBeNil)
				So(path, ShouldResemble, []Coord{{2, 2}})
			})
		})
	})
}
