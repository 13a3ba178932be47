package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/wallpath/internal/db"
	"github.com/banshee-data/wallpath/internal/httputil"
	"github.com/banshee-data/wallpath/internal/planner"
)

// previewTrajectory renders a quick HTML plot of a stored trajectory using
// go-echarts. Paint strokes and repositioning moves are separate series so
// the sweep pattern is visible at a glance.
func (s *Server) previewTrajectory(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	wps, err := s.db.TrajectoryPath(id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			httputil.NotFound(w, "trajectory not found")
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve trajectory: %v", err))
		return
	}

	paintData := make([]opts.ScatterData, 0, len(wps))
	moveData := make([]opts.ScatterData, 0)
	maxX, maxY := 0.0, 0.0
	for _, wp := range wps {
		if wp.X > maxX {
			maxX = wp.X
		}
		if wp.Y > maxY {
			maxY = wp.Y
		}
		point := opts.ScatterData{Value: []interface{}{wp.X, wp.Y}}
		if wp.Action == planner.ActionPaint {
			paintData = append(paintData, point)
		} else {
			moveData = append(moveData, point)
		}
	}

	// Pad the axes so edge waypoints are not clipped
	padX := maxX * 1.05
	if padX == 0 {
		padX = 1.0
	}
	padY := maxY * 1.05
	if padY == 0 {
		padY = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Trajectory Preview", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Wall Trajectory", Subtitle: fmt.Sprintf("id=%s waypoints=%d", id, len(wps))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: padX, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: padY, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)

	scatter.AddSeries("paint", paintData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	scatter.AddSeries("move", moveData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
