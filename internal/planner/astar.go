package planner

import (
	"container/heap"
	"math"
)

// openItem is an entry in the A* open set.
type openItem struct {
	cell  *cell
	g     float64 // cost from start
	f     float64 // g + heuristic
	index int     // heap index, maintained by openQueue
}

// openQueue is a min-heap of open items keyed on f.
type openQueue []*openItem

func (q openQueue) Len() int           { return len(q) }
func (q openQueue) Less(i, j int) bool { return q[i].f < q[j].f }
func (q openQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *openQueue) Push(x any) {
	item := x.(*openItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *openQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// navigate finds a route of "move" waypoints from the unblocked cell nearest
// (x, y) to target, walking only unblocked cells over 4-connected steps. The
// returned path excludes the start cell and ends at the target's center.
//
// ok is false when no route exists: either the nearest cell is blocked, or
// A* exhausted the open set. The path is empty (and ok true) when the start
// resolves to the target itself.
func (g *grid) navigate(x, y float64, target *cell) ([]Waypoint, bool) {
	start := g.nearest(x, y)
	if start.blocked {
		return nil, false
	}
	if start == target {
		return nil, true
	}

	// Manhattan distance to the target center. Admissible and consistent
	// for uniform-cost 4-connected moves on an axis-aligned grid.
	h := func(c *cell) float64 {
		return math.Abs(c.x-target.x) + math.Abs(c.y-target.y)
	}

	startItem := &openItem{cell: start, g: 0, f: h(start)}
	open := openQueue{startItem}
	heap.Init(&open)

	gScore := map[*cell]float64{start: 0}
	cameFrom := make(map[*cell]*cell)
	closed := make(map[*cell]bool)
	inOpen := map[*cell]*openItem{start: startItem}

	for open.Len() > 0 {
		cur := heap.Pop(&open).(*openItem)
		delete(inOpen, cur.cell)
		if closed[cur.cell] {
			continue
		}
		closed[cur.cell] = true

		if cur.cell == target {
			return reconstruct(cameFrom, start, target), true
		}

		for _, nb := range g.neighbors(cur.cell) {
			if nb.blocked || closed[nb] {
				continue
			}
			tentative := cur.g + g.cw
			if prev, seen := gScore[nb]; seen && tentative >= prev {
				continue
			}
			gScore[nb] = tentative
			cameFrom[nb] = cur.cell

			f := tentative + h(nb)
			if item, ok := inOpen[nb]; ok {
				item.g = tentative
				item.f = f
				heap.Fix(&open, item.index)
			} else {
				item := &openItem{cell: nb, g: tentative, f: f}
				heap.Push(&open, item)
				inOpen[nb] = item
			}
		}
	}

	return nil, false
}

// reconstruct walks the predecessor chain from target back to (but
// excluding) start, then reverses it into start-to-target order.
func reconstruct(cameFrom map[*cell]*cell, start, target *cell) []Waypoint {
	var path []Waypoint
	for c := target; c != start; c = cameFrom[c] {
		path = append(path, Waypoint{X: c.x, Y: c.y, Action: ActionMove})
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
