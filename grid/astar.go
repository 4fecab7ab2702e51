package grid

import "container/heap"

// ErrNoPath is returned by Plan when goal is unreachable from start under
// the given blocked set. Callers map this to the NoPath error kind.
type ErrNoPath struct {
	Start, Goal Coord
}

func (e *ErrNoPath) Error() string {
	return "grid: no path from " + e.Start.String() + " to " + e.Goal.String()
}

// Plan runs 4-connected A* with unit step cost and the Manhattan heuristic
// (admissible for this movement model), returning a path from start to goal
// inclusive. blocked cells are treated as untraversable in addition to
// static obstacles; callers use this both for the grid's own obstacles
// (already excluded by Neighbors4/IsWalkable) and for dynamic avoid-sets
// built from other vehicles' current positions during replanning (§4.2).
// The goal itself is never treated as blocked, even if it is in the set.
//
// Ties are broken deterministically: lower f wins; equal f, lower h wins;
// equal h, the fixed N/E/S/W neighbor order from Neighbors4 decides which
// node was enqueued first and thus settles first.
func Plan(g *Grid, start, goal Coord, blocked map[Coord]bool) ([]Coord, error) {
	if !g.IsWalkable(start) || blocked[start] {
		// The start cell is allowed to be "blocked" by a dynamic set (a
		// vehicle never blocks itself), but it must at least be walkable
		// terrain.
		if !g.IsWalkable(start) {
			return nil, &ErrNoPath{start, goal}
		}
	}
	if !g.IsWalkable(goal) {
		return nil, &ErrNoPath{start, goal}
	}
	if start == goal {
		return []Coord{start}, nil
	}

	open := &nodeHeap{}
	heap.Init(open)
	heap.Push(open, &node{coord: start, g: 0, h: start.Manhattan(goal), seq: 0})

	cameFrom := map[Coord]Coord{}
	bestG := map[Coord]int{start: 0}
	closed := map[Coord]bool{}
	seq := 1

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		if closed[cur.coord] {
			continue
		}
		if cur.coord == goal {
			return reconstruct(cameFrom, start, goal), nil
		}
		closed[cur.coord] = true

		for _, n := range g.Neighbors4(cur.coord) {
			if blocked[n] && n != goal {
				continue
			}
			if closed[n] {
				continue
			}
			tentativeG := cur.g + 1
			if existing, ok := bestG[n]; ok && tentativeG >= existing {
				continue
			}
			bestG[n] = tentativeG
			cameFrom[n] = cur.coord
			heap.Push(open, &node{
				coord: n,
				g:     tentativeG,
				h:     n.Manhattan(goal),
				seq:   seq,
			})
			seq++
		}
	}
	return nil, &ErrNoPath{start, goal}
}

func reconstruct(cameFrom map[Coord]Coord, start, goal Coord) []Coord {
	path := []Coord{goal}
	cur := goal
	for cur != start {
		cur = cameFrom[cur]
		path = append(path, cur)
	}
	// reverse in place
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// node is an open-set entry. seq is the insertion order, used only as the
// final deterministic tie-break after f and h (mirrors the neighbor
// enumeration order, since lower-seq nodes were discovered by an earlier
// neighbor in the fixed N/E/S/W order).
type node struct {
	coord Coord
	g, h  int
	seq   int
}

func (n *node) f() int { return n.g + n.h }

type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].f() != h[j].f() {
		return h[i].f() < h[j].f()
	}
	if h[i].h != h[j].h {
		return h[i].h < h[j].h
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) {
	*h = append(*h, x.(*node))
}
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
