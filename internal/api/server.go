// Package api exposes the trajectory planner over HTTP: plan requests,
// stored trajectory retrieval, aggregate metrics, and a server-sent event
// stream of planning activity.
package api

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/wallpath/internal/db"
	"github.com/banshee-data/wallpath/internal/httputil"
	"github.com/banshee-data/wallpath/internal/planner"
	"github.com/banshee-data/wallpath/internal/pubsub"
	"github.com/banshee-data/wallpath/internal/robotlink"
	"github.com/banshee-data/wallpath/internal/units"
	"github.com/banshee-data/wallpath/internal/version"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db     *db.DB
	broker *pubsub.Broker
	units  string
	robot  robotlink.LinkInterface // nil when no robot is attached
}

func NewServer(database *db.DB, broker *pubsub.Broker, defaultUnits string, robot robotlink.LinkInterface) *Server {
	return &Server{
		db:     database,
		broker: broker,
		units:  defaultUnits,
		robot:  robot,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// CORSMiddleware allows browser clients on any origin to call the API.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.health)
	mux.HandleFunc("/api/metrics", s.showMetrics)
	mux.HandleFunc("/api/trajectories", s.createTrajectory)
	mux.HandleFunc("/api/trajectories/events", s.streamEvents)
	mux.HandleFunc("/api/trajectories/", s.trajectorySubroutes)
	return mux
}

// trajectorySubroutes dispatches /api/trajectories/{id} and its
// sub-resources.
func (s *Server) trajectorySubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/trajectories/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		httputil.NotFound(w, "trajectory not found")
		return
	}
	switch sub {
	case "":
		s.showTrajectory(w, r, id)
	case "preview":
		s.previewTrajectory(w, r, id)
	case "dispatch":
		s.dispatchTrajectory(w, r, id)
	default:
		httputil.NotFound(w, "trajectory not found")
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// configID derives a stable identifier from the wall configuration, so the
// same wall and obstacle layout always maps to the same trajectory row.
func configID(cfg planner.WallConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%g-%g-[", cfg.Width, cfg.Height)
	for i, o := range cfg.Obstacles {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(%g, %g, %g, %g)", o.X, o.Y, o.Width, o.Height)
	}
	b.WriteString("]")
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func validateConfig(cfg planner.WallConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.New("wall dimensions must be positive")
	}
	if cfg.CoverageWidth < 0 {
		return errors.New("coverage_width must be positive")
	}
	for _, o := range cfg.Obstacles {
		if o.Width <= 0 || o.Height <= 0 {
			return errors.New("obstacle dimensions must be positive")
		}
		if o.X < 0 || o.Y < 0 || o.X+o.Width > cfg.Width || o.Y+o.Height > cfg.Height {
			return errors.New("obstacle exceeds wall bounds")
		}
	}
	return nil
}

// requestUnits resolves the units query parameter, falling back to the
// server default.
func (s *Server) requestUnits(r *http.Request) (string, error) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return s.units, nil
	}
	if !units.IsValid(u) {
		return "", fmt.Errorf("invalid units %q: valid units are %s", u, units.GetValidUnitsString())
	}
	return u, nil
}

// convertWaypoints returns waypoints with coordinates converted from metres
// to the target units. The stored values are untouched.
func convertWaypoints(wps []planner.Waypoint, targetUnits string) []planner.Waypoint {
	if targetUnits == units.Meters {
		return wps
	}
	out := make([]planner.Waypoint, len(wps))
	for i, wp := range wps {
		out[i] = planner.Waypoint{
			X:      units.ConvertLength(wp.X, targetUnits),
			Y:      units.ConvertLength(wp.Y, targetUnits),
			Action: wp.Action,
		}
	}
	return out
}

type trajectoryResponse struct {
	TrajectoryID string             `json:"trajectory_id"`
	Units        string             `json:"units"`
	Waypoints    []planner.Waypoint `json:"waypoints"`
}

func (s *Server) createTrajectory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	targetUnits, err := s.requestUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var cfg planner.WallConfig
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&cfg); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid wall config: %v", err))
		return
	}
	if err := validateConfig(cfg); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	// Resolve the default here so the stored row and its coverage metrics
	// see the same coverage width the planner uses.
	if cfg.CoverageWidth == 0 {
		cfg.CoverageWidth = planner.DefaultCoverageWidth
	}

	id := configID(cfg)

	start := time.Now()
	result := planner.Plan(cfg)
	duration := time.Since(start).Seconds()
	log.Printf("planned trajectory %s: %d waypoints in %.3fs", id, len(result.Waypoints), duration)
	if result.NavFailures > 0 {
		log.Printf("trajectory %s: %d cells unreachable from swept path", id, result.NavFailures)
	}

	if err := s.db.SaveTrajectory(id, cfg, result.Waypoints, duration); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to store trajectory: %v", err))
		return
	}

	s.broker.Publish(pubsub.Event{
		TrajectoryID: id,
		Metadata: pubsub.Metadata{
			Width:     cfg.Width,
			Height:    cfg.Height,
			Obstacles: len(cfg.Obstacles),
			Duration:  duration,
		},
	})

	httputil.WriteJSON(w, http.StatusOK, trajectoryResponse{
		TrajectoryID: id,
		Units:        targetUnits,
		Waypoints:    convertWaypoints(result.Waypoints, targetUnits),
	})
}

func (s *Server) showTrajectory(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	targetUnits, err := s.requestUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	wps, err := s.db.TrajectoryWaypoints(id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			httputil.NotFound(w, "trajectory not found")
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve trajectory: %v", err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, trajectoryResponse{
		TrajectoryID: id,
		Units:        targetUnits,
		Waypoints:    convertWaypoints(wps, targetUnits),
	})
}

func (s *Server) showMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	m, err := s.db.MetricsSummary()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to compute metrics: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

// streamEvents issues Server-Sent Events as trajectories are planned.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	id, c := s.broker.Subscribe()
	defer s.broker.Unsubscribe(id)

	// Send initial ping to establish connection
	w.Write([]byte(": ping\n\n"))
	w.(http.Flusher).Flush()

	for {
		select {
		case ev, ok := <-c:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			w.(http.Flusher).Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// dispatchTrajectory streams a stored trajectory to the robot controller.
func (s *Server) dispatchTrajectory(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.robot == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no robot link configured")
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

	if err := s.robot.StreamTrajectory(r.Context(), wps); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to stream trajectory: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trajectory_id": id,
		"dispatched":    len(wps),
	})
}
