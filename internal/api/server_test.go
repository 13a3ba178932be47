package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/wallpath/internal/db"
	"github.com/banshee-data/wallpath/internal/db/dbtest"
	"github.com/banshee-data/wallpath/internal/planner"
	"github.com/banshee-data/wallpath/internal/pubsub"
	"github.com/banshee-data/wallpath/internal/robotlink"
	"github.com/banshee-data/wallpath/internal/testutil"
	"github.com/banshee-data/wallpath/internal/units"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	database := dbtest.New(t)
	broker := pubsub.NewBroker()
	t.Cleanup(broker.Close)
	return NewServer(database, broker, units.Meters, nil)
}

const simpleWall = `{"width": 1.0, "height": 1.0, "coverage_width": 0.25}`

func postTrajectory(t *testing.T, s *Server, body string) trajectoryResponse {
	t.Helper()
	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, testutil.NewJSONRequest(http.MethodPost, "/api/trajectories", body))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var resp trajectoryResponse
	testutil.AssertNoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	s := setupTestServer(t)
	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %s, want status ok", w.Body.String())
	}
}

func TestCreateTrajectory(t *testing.T) {
	s := setupTestServer(t)
	resp := postTrajectory(t, s, simpleWall)

	if resp.TrajectoryID == "" {
		t.Fatal("missing trajectory id")
	}
	// A 1x1 wall at 0.25 coverage width decomposes into a 4x4 grid.
	if len(resp.Waypoints) != 16 {
		t.Errorf("waypoints = %d, want 16", len(resp.Waypoints))
	}

	// The same configuration maps to the same id.
	again := postTrajectory(t, s, simpleWall)
	if again.TrajectoryID != resp.TrajectoryID {
		t.Errorf("repeat id = %s, want %s", again.TrajectoryID, resp.TrajectoryID)
	}
}

func TestCreateTrajectoryDefaultCoverageWidth(t *testing.T) {
	s := setupTestServer(t)
	resp := postTrajectory(t, s, `{"width": 1.0, "height": 1.0}`)

	// The default coverage width (0.15) decomposes a 1x1 wall into 6x6.
	if len(resp.Waypoints) != 36 {
		t.Errorf("waypoints = %d, want 36", len(resp.Waypoints))
	}

	// The stored row must carry the resolved width, not the zero from the
	// request, or its coverage metrics are meaningless.
	var coverageWidth, coveragePercent float64
	err := s.db.QueryRow(
		"SELECT coverage_width, coverage_percent FROM trajectories WHERE id = ?",
		resp.TrajectoryID,
	).Scan(&coverageWidth, &coveragePercent)
	testutil.AssertNoError(t, err)
	if coverageWidth != planner.DefaultCoverageWidth {
		t.Errorf("stored coverage_width = %g, want %g", coverageWidth, planner.DefaultCoverageWidth)
	}
	if coveragePercent <= 0 {
		t.Errorf("stored coverage_percent = %g, want > 0", coveragePercent)
	}
}

func TestCreateTrajectoryValidation(t *testing.T) {
	s := setupTestServer(t)

	testCases := []struct {
		name string
		body string
		want string
	}{
		{"not_json", `{broken`, "invalid wall config"},
		{"zero_width", `{"width": 0, "height": 1}`, "dimensions must be positive"},
		{"negative_height", `{"width": 1, "height": -2}`, "dimensions must be positive"},
		{
			"obstacle_out_of_bounds",
			`{"width": 1, "height": 1, "obstacles": [{"x": 0.8, "y": 0.2, "width": 0.5, "height": 0.1}]}`,
			"obstacle exceeds wall bounds",
		},
		{
			"obstacle_negative_origin",
			`{"width": 1, "height": 1, "obstacles": [{"x": -0.1, "y": 0.2, "width": 0.2, "height": 0.1}]}`,
			"obstacle exceeds wall bounds",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.ServeMux().ServeHTTP(w, testutil.NewJSONRequest(http.MethodPost, "/api/trajectories", tc.body))
			testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)
			if !strings.Contains(w.Body.String(), tc.want) {
				t.Errorf("body = %s, want mention of %q", w.Body.String(), tc.want)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := setupTestServer(t)
	mux := s.ServeMux()

	testCases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/trajectories"},
		{http.MethodPost, "/api/health"},
		{http.MethodPost, "/api/metrics"},
		{http.MethodDelete, "/api/trajectories/abc"},
	}
	for _, tc := range testCases {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		testutil.AssertStatusCode(t, w.Code, http.StatusMethodNotAllowed)
	}
}

func TestShowTrajectory(t *testing.T) {
	s := setupTestServer(t)
	created := postTrajectory(t, s, simpleWall)

	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/trajectories/"+created.TrajectoryID, nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var resp trajectoryResponse
	testutil.AssertNoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	if len(resp.Waypoints) != len(created.Waypoints) {
		t.Errorf("stored waypoints = %d, want %d", len(resp.Waypoints), len(created.Waypoints))
	}
	// Retrieval order is (y, x).
	for i := 1; i < len(resp.Waypoints); i++ {
		prev, cur := resp.Waypoints[i-1], resp.Waypoints[i]
		if cur.Y < prev.Y || (cur.Y == prev.Y && cur.X < prev.X) {
			t.Fatalf("waypoints not in (y, x) order at index %d", i)
		}
	}
}

func TestShowTrajectoryNotFound(t *testing.T) {
	s := setupTestServer(t)
	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/trajectories/nope", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)
}

func TestTrajectoryUnits(t *testing.T) {
	s := setupTestServer(t)
	created := postTrajectory(t, s, simpleWall)

	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/trajectories/"+created.TrajectoryID+"?units=cm", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var resp trajectoryResponse
	testutil.AssertNoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	if resp.Units != "cm" {
		t.Errorf("units = %s, want cm", resp.Units)
	}
	// First cell centre is (0.125, 0.125) metres.
	if resp.Waypoints[0].X != 12.5 || resp.Waypoints[0].Y != 12.5 {
		t.Errorf("first waypoint = (%g, %g), want (12.5, 12.5)", resp.Waypoints[0].X, resp.Waypoints[0].Y)
	}

	w = httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/trajectories/"+created.TrajectoryID+"?units=furlong", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)
}

func TestMetricsAfterPlanning(t *testing.T) {
	s := setupTestServer(t)
	postTrajectory(t, s, simpleWall)
	postTrajectory(t, s, simpleWall) // idempotent, still one row

	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var m db.Metrics
	testutil.AssertNoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	if m.TotalTrajectories != 1 {
		t.Errorf("total trajectories = %d, want 1", m.TotalTrajectories)
	}
	if m.AvgCoveragePercent <= 0 {
		t.Errorf("avg coverage = %g, want > 0", m.AvgCoveragePercent)
	}
}

func TestConfigID(t *testing.T) {
	base := planner.WallConfig{Width: 2, Height: 1.5}
	withObstacle := planner.WallConfig{
		Width: 2, Height: 1.5,
		Obstacles: []planner.Obstacle{{X: 0.5, Y: 0.5, Width: 0.2, Height: 0.2}},
	}

	if configID(base) != configID(base) {
		t.Error("same config produced different ids")
	}
	if configID(base) == configID(withObstacle) {
		t.Error("different configs produced the same id")
	}
	if got := len(configID(base)); got != 32 {
		t.Errorf("id length = %d, want 32 hex chars", got)
	}
}

func TestEventStream(t *testing.T) {
	s := setupTestServer(t)

	ts := httptest.NewServer(s.ServeMux())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/trajectories/events", nil)
	resp, err := http.DefaultClient.Do(req)
	testutil.AssertNoError(t, err)
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("Content-Type = %s, want text/event-stream", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	if scanner.Scan() {
		if line := scanner.Text(); !strings.HasPrefix(line, ": ping") {
			t.Errorf("expected initial ping, got %q", line)
		}
	}

	s.broker.Publish(pubsub.Event{
		TrajectoryID: "t1",
		Metadata:     pubsub.Metadata{Width: 1, Height: 1, Duration: 0.01},
	})

	gotData := false
	for i := 0; i < 5 && scanner.Scan(); i++ {
		if strings.Contains(scanner.Text(), `"trajectory_id":"t1"`) {
			gotData = true
			break
		}
	}
	if !gotData {
		t.Error("did not receive trajectory event over SSE")
	}
}

func TestDispatchTrajectory(t *testing.T) {
	database := dbtest.New(t)
	broker := pubsub.NewBroker()
	t.Cleanup(broker.Close)
	link, port := robotlink.NewMockLink()
	t.Cleanup(func() { link.Close() })
	s := NewServer(database, broker, units.Meters, link)

	created := postTrajectory(t, s, simpleWall)

	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/trajectories/"+created.TrajectoryID+"/dispatch", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	lines := strings.Split(strings.TrimSpace(port.Written()), "\n")
	if len(lines) != len(created.Waypoints) {
		t.Errorf("streamed %d instructions, want %d", len(lines), len(created.Waypoints))
	}
}

func TestDispatchWithoutRobot(t *testing.T) {
	s := setupTestServer(t)
	created := postTrajectory(t, s, simpleWall)

	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/trajectories/"+created.TrajectoryID+"/dispatch", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusServiceUnavailable)
}

func TestPreviewTrajectory(t *testing.T) {
	s := setupTestServer(t)
	created := postTrajectory(t, s, simpleWall)

	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/trajectories/"+created.TrajectoryID+"/preview", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("Content-Type = %s, want text/html", ct)
	}
	if !strings.Contains(w.Body.String(), "echarts") {
		t.Error("preview body does not look like an echarts page")
	}
}

func TestCORSMiddleware(t *testing.T) {
	s := setupTestServer(t)
	handler := CORSMiddleware(s.ServeMux())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/trajectories", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusNoContent)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}
