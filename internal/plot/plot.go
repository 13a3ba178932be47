// Package plot renders planned trajectories to image files for inspection
// without the web UI.
package plot

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/wallpath/internal/planner"
)

var (
	paintColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	moveColor     = color.RGBA{R: 180, G: 180, B: 180, A: 255}
	obstacleColor = color.RGBA{R: 214, G: 39, B: 40, A: 120}
)

// RenderTrajectory draws the waypoint path over the wall outline and writes
// it to path. Paint strokes are solid, repositioning moves are thin dashed
// lines, and obstacles are filled rectangles. The image format follows the
// file extension (.png, .svg, .pdf).
func RenderTrajectory(cfg planner.WallConfig, wps []planner.Waypoint, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Wall %gx%g m, %d waypoints", cfg.Width, cfg.Height, len(wps))
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.X.Min, p.X.Max = 0, cfg.Width
	p.Y.Min, p.Y.Max = 0, cfg.Height

	for _, o := range cfg.Obstacles {
		rect, err := plotter.NewPolygon(plotter.XYs{
			{X: o.X, Y: o.Y},
			{X: o.X + o.Width, Y: o.Y},
			{X: o.X + o.Width, Y: o.Y + o.Height},
			{X: o.X, Y: o.Y + o.Height},
		})
		if err != nil {
			return fmt.Errorf("failed to build obstacle rectangle: %w", err)
		}
		rect.Color = obstacleColor
		p.Add(rect)
	}

	var legendPaint, legendMove bool
	for i := 1; i < len(wps); i++ {
		seg, err := plotter.NewLine(plotter.XYs{
			{X: wps[i-1].X, Y: wps[i-1].Y},
			{X: wps[i].X, Y: wps[i].Y},
		})
		if err != nil {
			return fmt.Errorf("failed to build path segment %d: %w", i, err)
		}
		if wps[i].Action == planner.ActionPaint {
			seg.Color = paintColor
			seg.Width = vg.Points(2)
			if !legendPaint {
				p.Legend.Add("paint", seg)
				legendPaint = true
			}
		} else {
			seg.Color = moveColor
			seg.Width = vg.Points(1)
			seg.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
			if !legendMove {
				p.Legend.Add("move", seg)
				legendMove = true
			}
		}
		p.Add(seg)
	}

	width := 8 * vg.Inch
	height := width
	if cfg.Width > 0 {
		height = width * vg.Length(cfg.Height/cfg.Width)
	}
	return p.Save(width, height, path)
}
