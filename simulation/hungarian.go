package simulation

import "math"

// hungarianAssign solves the rectangular minimum-cost assignment problem:
// each row (waiting vehicle) is matched to at most one column (station
// slot), minimizing total cost. cost[i][j] is the
// cost of assigning row i to column j; rows outnumbering columns (or vice
// versa) are padded internally with zero-cost virtual entries so every row
// gets a column, then unmatched virtual columns are dropped from the
// result.
//
// This is the classic O(n^3) potentials-and-augmenting-path method. No
// library in the reference set ships a Hungarian/rectangular-assignment
// solver (the only graph-algorithm packages retrieved were bare go.mod
// manifests with no importable source — see DESIGN.md), so this is
// hand-rolled against the standard library, using sort.Search nowhere and
// math only for the large "infinity" sentinel (MaxFloat64/4).
//
// assignment[i] is the column matched to row i, or -1 if row i matched
// only a virtual column (no real station had room).
func hungarianAssign(cost [][]float64) []int {
	rows := len(cost)
	if rows == 0 {
		return nil
	}
	cols := len(cost[0])
	n := rows
	if cols > n {
		n = cols
	}

	// Build an n x n square matrix, padding with zero cost.
	a := make([][]float64, n+1)
	for i := range a {
		a[i] = make([]float64, n+1)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			a[i+1][j+1] = cost[i][j]
		}
	}

	const inf = math.MaxFloat64 / 4
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1) // p[j] = row matched to column j
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = inf
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := a[i0][j] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	assignment := make([]int, rows)
	for i := range assignment {
		assignment[i] = -1
	}
	for j := 1; j <= n; j++ {
		if p[j] >= 1 && p[j] <= rows && j-1 < cols {
			assignment[p[j]-1] = j - 1
		}
	}
	return assignment
}
