// Package planner computes coverage paths for painting a rectangular wall
// that contains axis-aligned rectangular obstacles.
//
// The wall is discretised into a grid of cells sized by the robot's coverage
// width. A boustrophedon sweep visits each row of unblocked cells,
// alternating direction row by row. Whenever the sweep cannot step
// contiguously to the next run of cells, an A* search routes the robot
// around obstacles. A final pass recovers any cells the sweep left behind,
// and a compaction step removes consecutive waypoints at the same position.
//
// Planning is a pure function of its input: no clocks, no randomness, no
// state shared between calls.
package planner

// Action tags a waypoint as repositioning or painting.
type Action string

const (
	ActionMove  Action = "move"
	ActionPaint Action = "paint"
)

// DefaultCoverageWidth is the robot sweep width used when the config leaves
// CoverageWidth unset.
const DefaultCoverageWidth = 0.15

// Obstacle is an axis-aligned rectangle on the wall. X and Y locate the
// lower-left corner; Width and Height must be positive.
type Obstacle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// WallConfig describes the wall to paint. The planner assumes the config has
// already been validated by the caller: positive dimensions and obstacles
// fully inside [0,Width] x [0,Height].
type WallConfig struct {
	Width         float64    `json:"width"`
	Height        float64    `json:"height"`
	CoverageWidth float64    `json:"coverage_width"`
	Obstacles     []Obstacle `json:"obstacles"`
}

// Waypoint is a single instruction in the output path.
type Waypoint struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Action Action  `json:"action"`
}

// Result is the outcome of one planning call.
//
// NavFailures counts navigation requests that found no route. The waypoint
// sequence is still emitted in that case, so a non-zero count means the path
// contains at least one physically discontinuous jump. Callers that care
// should log or surface it.
type Result struct {
	Waypoints   []Waypoint
	NavFailures int
}

// Plan computes the coverage path for the given wall. It is deterministic:
// identical configs produce identical waypoint sequences.
func Plan(cfg WallConfig) Result {
	if cfg.CoverageWidth <= 0 {
		cfg.CoverageWidth = DefaultCoverageWidth
	}

	g := newGrid(cfg.Width, cfg.Height, cfg.CoverageWidth)
	g.markObstacles(cfg.Obstacles)

	s := &sweeper{grid: g}
	s.sweep()
	s.cleanup()

	return Result{
		Waypoints:   compact(s.waypoints),
		NavFailures: s.navFailures,
	}
}
