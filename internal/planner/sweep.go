package planner

import "math"

// adjacencyFactor scales the coverage width into the per-axis threshold for
// the adjacency test. Two points one grid step apart (or less) in both axes
// count as reachable without navigation.
const adjacencyFactor = 1.5

// segment is a maximal contiguous run of unblocked cells in a row,
// identified by an inclusive column range.
type segment struct {
	first, last int
}

// rowSegments extracts the unblocked segments of a row, scanning columns
// left to right. A run breaks on any blocked cell.
func (g *grid) rowSegments(row int) []segment {
	var segs []segment
	start := -1
	for c := 0; c < g.cols; c++ {
		if g.at(row, c).blocked {
			if start >= 0 {
				segs = append(segs, segment{first: start, last: c - 1})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = c
		}
	}
	if start >= 0 {
		segs = append(segs, segment{first: start, last: g.cols - 1})
	}
	return segs
}

// sweeper drives the boustrophedon traversal and accumulates the waypoint
// sequence. It owns the grid for the duration of one planning call.
type sweeper struct {
	grid        *grid
	waypoints   []Waypoint
	navFailures int
}

// adjacent reports whether wp and the center of c are within the adjacency
// threshold on both axes independently. Deliberately looser than a
// Euclidean radius.
func (s *sweeper) adjacent(wp Waypoint, c *cell) bool {
	limit := adjacencyFactor * s.grid.cw
	return math.Abs(wp.X-c.x) < limit && math.Abs(wp.Y-c.y) < limit
}

// sweep walks rows bottom to top, alternating direction each row. The
// direction flips even for rows with no paintable segments, so the zig-zag
// phase stays consistent across fully blocked rows.
func (s *sweeper) sweep() {
	direction := 1
	for row := 0; row < s.grid.rows; row++ {
		segs := s.grid.rowSegments(row)
		if direction == -1 {
			for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
				segs[i], segs[j] = segs[j], segs[i]
			}
		}
		for _, seg := range segs {
			s.paintSegment(row, seg, direction)
		}
		direction = -direction
	}
}

// paintSegment navigates to the segment's entry cell if the last waypoint is
// not adjacent to it, then paints the segment's cells in traversal order.
func (s *sweeper) paintSegment(row int, seg segment, direction int) {
	entryCol := seg.first
	if direction == -1 {
		entryCol = seg.last
	}
	entry := s.grid.at(row, entryCol)

	if len(s.waypoints) > 0 && !s.adjacent(s.waypoints[len(s.waypoints)-1], entry) {
		s.navigateTo(entry)
	}

	if direction == 1 {
		for c := seg.first; c <= seg.last; c++ {
			s.paintCell(s.grid.at(row, c))
		}
	} else {
		for c := seg.last; c >= seg.first; c-- {
			s.paintCell(s.grid.at(row, c))
		}
	}
}

// paintCell emits a waypoint at the cell center unless the cell is blocked
// or already visited. The action is "paint" when the previously emitted
// waypoint is adjacent, else "move".
func (s *sweeper) paintCell(cl *cell) {
	if cl.blocked || cl.visited {
		return
	}
	action := ActionMove
	if len(s.waypoints) > 0 && s.adjacent(s.waypoints[len(s.waypoints)-1], cl) {
		action = ActionPaint
	}
	s.waypoints = append(s.waypoints, Waypoint{X: cl.x, Y: cl.y, Action: action})
	cl.visited = true
}

// navigateTo appends the navigator's route from the last emitted waypoint to
// the target cell. A failed search appends nothing; the sweep carries on and
// the failure is counted so callers can surface the discontinuity.
func (s *sweeper) navigateTo(target *cell) {
	last := s.waypoints[len(s.waypoints)-1]
	path, ok := s.grid.navigate(last.X, last.Y, target)
	if !ok {
		s.navFailures++
	}
	s.waypoints = append(s.waypoints, path...)
}

// cleanup visits, in row-major order, every unblocked cell the sweep never
// reached, routing to each via the navigator and painting it. After cleanup
// every unblocked cell has been visited exactly once.
func (s *sweeper) cleanup() {
	for row := 0; row < s.grid.rows; row++ {
		for col := 0; col < s.grid.cols; col++ {
			cl := s.grid.at(row, col)
			if cl.blocked || cl.visited {
				continue
			}
			if len(s.waypoints) > 0 {
				s.navigateTo(cl)
			}
			s.waypoints = append(s.waypoints, Waypoint{X: cl.x, Y: cl.y, Action: ActionPaint})
			cl.visited = true
		}
	}
}
