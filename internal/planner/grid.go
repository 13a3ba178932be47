package planner

import "math"

// obstacleMarginFactor inflates obstacle footprints by a fraction of the
// coverage width on all four sides, keeping path centers clear of obstacle
// edges by roughly the robot's half-footprint.
const obstacleMarginFactor = 0.3

// cell is one grid unit of wall surface. Cells are owned exclusively by
// their grid and live only for the duration of a single planning call.
type cell struct {
	row, col int
	x, y     float64
	blocked  bool
	visited  bool
}

// grid is a row-major array of cells covering the wall. Row 0 is the row
// nearest y=0.
type grid struct {
	rows, cols int
	cw         float64
	cells      []cell
}

// newGrid builds the cell grid for a wall of the given size. Dimensions are
// clamped to at least 1x1 even when the coverage width exceeds the wall.
func newGrid(width, height, cw float64) *grid {
	rows := int(math.Floor(height / cw))
	if rows < 1 {
		rows = 1
	}
	cols := int(math.Floor(width / cw))
	if cols < 1 {
		cols = 1
	}

	g := &grid{rows: rows, cols: cols, cw: cw, cells: make([]cell, rows*cols)}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.cells[r*cols+c] = cell{
				row: r,
				col: c,
				x:   (float64(c) + 0.5) * cw,
				y:   (float64(r) + 0.5) * cw,
			}
		}
	}
	return g
}

func (g *grid) at(row, col int) *cell {
	return &g.cells[row*g.cols+col]
}

// markObstacles blocks every cell whose center falls inside an inflated
// obstacle bounding box (bounds inclusive). The first matching obstacle
// decides; the center-containment test is intentionally conservative near
// obstacle corners.
func (g *grid) markObstacles(obstacles []Obstacle) {
	margin := obstacleMarginFactor * g.cw
	for i := range g.cells {
		cl := &g.cells[i]
		for _, o := range obstacles {
			if cl.x >= o.X-margin && cl.x <= o.X+o.Width+margin &&
				cl.y >= o.Y-margin && cl.y <= o.Y+o.Height+margin {
				cl.blocked = true
				break
			}
		}
	}
}

// nearest returns the cell whose center is closest to (x, y) by squared
// Euclidean distance, blocked or not. The scan is brute force over all
// cells, which is fine at the grid sizes walls produce.
func (g *grid) nearest(x, y float64) *cell {
	best := &g.cells[0]
	bestDist := math.MaxFloat64
	for i := range g.cells {
		cl := &g.cells[i]
		dx, dy := cl.x-x, cl.y-y
		if d := dx*dx + dy*dy; d < bestDist {
			bestDist = d
			best = cl
		}
	}
	return best
}

// neighbors returns the 4-connected neighbours of c in deterministic order.
func (g *grid) neighbors(c *cell) []*cell {
	out := make([]*cell, 0, 4)
	if c.row > 0 {
		out = append(out, g.at(c.row-1, c.col))
	}
	if c.row < g.rows-1 {
		out = append(out, g.at(c.row+1, c.col))
	}
	if c.col > 0 {
		out = append(out, g.at(c.row, c.col-1))
	}
	if c.col < g.cols-1 {
		out = append(out, g.at(c.row, c.col+1))
	}
	return out
}
