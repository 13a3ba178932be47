package planner

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompact(t *testing.T) {
	testCases := []struct {
		name string
		in   []Waypoint
		want []Waypoint
	}{
		{
			"empty",
			nil,
			nil,
		},
		{
			"single",
			[]Waypoint{{X: 0.1, Y: 0.1, Action: ActionMove}},
			[]Waypoint{{X: 0.1, Y: 0.1, Action: ActionMove}},
		},
		{
			"exact_duplicate_dropped",
			[]Waypoint{{X: 0.1, Y: 0.1, Action: ActionMove}, {X: 0.1, Y: 0.1, Action: ActionMove}},
			[]Waypoint{{X: 0.1, Y: 0.1, Action: ActionMove}},
		},
		{
			"different_action_still_dropped",
			[]Waypoint{{X: 0.1, Y: 0.1, Action: ActionMove}, {X: 0.1, Y: 0.1, Action: ActionPaint}},
			[]Waypoint{{X: 0.1, Y: 0.1, Action: ActionMove}},
		},
		{
			"within_tolerance_dropped",
			[]Waypoint{{X: 0.1, Y: 0.1, Action: ActionMove}, {X: 0.1005, Y: 0.1005, Action: ActionPaint}},
			[]Waypoint{{X: 0.1, Y: 0.1, Action: ActionMove}},
		},
		{
			"beyond_tolerance_kept",
			[]Waypoint{{X: 0.1, Y: 0.1, Action: ActionMove}, {X: 0.102, Y: 0.1, Action: ActionPaint}},
			[]Waypoint{{X: 0.1, Y: 0.1, Action: ActionMove}, {X: 0.102, Y: 0.1, Action: ActionPaint}},
		},
		{
			"one_axis_beyond_tolerance_kept",
			[]Waypoint{{X: 0.1, Y: 0.1, Action: ActionMove}, {X: 0.1, Y: 0.2, Action: ActionPaint}},
			[]Waypoint{{X: 0.1, Y: 0.1, Action: ActionMove}, {X: 0.1, Y: 0.2, Action: ActionPaint}},
		},
		{
			"comparison_against_last_kept",
			// Each step is within tolerance of the previous input waypoint,
			// but drift accumulates past the tolerance of the last kept one.
			[]Waypoint{
				{X: 0.1, Y: 0.1, Action: ActionMove},
				{X: 0.1008, Y: 0.1, Action: ActionMove},
				{X: 0.1016, Y: 0.1, Action: ActionMove},
			},
			[]Waypoint{
				{X: 0.1, Y: 0.1, Action: ActionMove},
				{X: 0.1016, Y: 0.1, Action: ActionMove},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, compact(tc.in)); diff != "" {
				t.Errorf("compact mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
