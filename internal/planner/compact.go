package planner

import "math"

// positionTolerance absorbs floating-point noise when comparing waypoint
// positions. It is not an exact-equality comparison.
const positionTolerance = 0.001

// compact drops consecutive waypoints whose position did not meaningfully
// change relative to the last kept waypoint. The first waypoint is always
// kept, and action tags play no part in the comparison: two co-located
// waypoints with different actions collapse to whichever came first.
func compact(wps []Waypoint) []Waypoint {
	if len(wps) == 0 {
		return nil
	}
	out := make([]Waypoint, 0, len(wps))
	out = append(out, wps[0])
	for _, wp := range wps[1:] {
		last := out[len(out)-1]
		if math.Abs(wp.X-last.X) > positionTolerance || math.Abs(wp.Y-last.Y) > positionTolerance {
			out = append(out, wp)
		}
	}
	return out
}
