// Package db stores planned trajectories and their summary metrics in
// SQLite.
package db

import (
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/wallpath/internal/planner"
)

// ErrNotFound is returned when a trajectory id is not in the store.
var ErrNotFound = errors.New("trajectory not found")

type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the SQLite database at path and ensures the base
// schema exists. Use MigrateUp for schema changes beyond the baseline.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trajectories (
			id                TEXT PRIMARY KEY,
			width             REAL,
			height            REAL,
			obstacle_count    INTEGER,
			coverage_width    REAL,
			coverage_percent  REAL,
			path_length       REAL,
			duration          REAL,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS waypoints (
			trajectory_id     TEXT,
			seq               INTEGER,
			x                 REAL,
			y                 REAL,
			action            TEXT,
			FOREIGN KEY(trajectory_id) REFERENCES trajectories(id)
		);
		CREATE INDEX IF NOT EXISTS idx_waypoints_trajectory ON waypoints(trajectory_id);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// PathLength sums the Euclidean distance between consecutive waypoints.
func PathLength(wps []planner.Waypoint) float64 {
	var total float64
	for i := 1; i < len(wps); i++ {
		total += math.Hypot(wps[i].X-wps[i-1].X, wps[i].Y-wps[i-1].Y)
	}
	return total
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SaveTrajectory persists a planned trajectory with its derived metrics.
// Saving an id that already exists is a no-op, so repeated requests for the
// same configuration insert nothing.
func (db *DB) SaveTrajectory(id string, cfg planner.WallConfig, wps []planner.Waypoint, duration float64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow("SELECT 1 FROM trajectories WHERE id = ?", id).Scan(&exists)
	if err == nil {
		return nil // already stored
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check for existing trajectory: %w", err)
	}

	pathLength := PathLength(wps)
	coveragePercent := round2(pathLength * cfg.CoverageWidth / (cfg.Width * cfg.Height) * 100)

	_, err = tx.Exec(
		`INSERT INTO trajectories (
			id, width, height, obstacle_count, coverage_width,
			coverage_percent, path_length, duration
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, cfg.Width, cfg.Height, len(cfg.Obstacles), cfg.CoverageWidth,
		coveragePercent, pathLength, duration,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trajectory: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO waypoints (trajectory_id, seq, x, y, action) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare waypoint insert: %w", err)
	}
	defer stmt.Close()
	for i, wp := range wps {
		if _, err := stmt.Exec(id, i, wp.X, wp.Y, string(wp.Action)); err != nil {
			return fmt.Errorf("failed to insert waypoint %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// TrajectoryWaypoints returns the stored waypoints for id ordered by (y, x).
// This is storage retrieval order, not the planner's emission order; callers
// wanting emission order should sort by seq instead.
func (db *DB) TrajectoryWaypoints(id string) ([]planner.Waypoint, error) {
	var exists int
	err := db.QueryRow("SELECT 1 FROM trajectories WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.Query("SELECT x, y, action FROM waypoints WHERE trajectory_id = ? ORDER BY y, x", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wps []planner.Waypoint
	for rows.Next() {
		var wp planner.Waypoint
		var action string
		if err := rows.Scan(&wp.X, &wp.Y, &action); err != nil {
			return nil, err
		}
		wp.Action = planner.Action(action)
		wps = append(wps, wp)
	}
	return wps, rows.Err()
}

// TrajectoryPath returns the stored waypoints for id in emission order.
func (db *DB) TrajectoryPath(id string) ([]planner.Waypoint, error) {
	var exists int
	err := db.QueryRow("SELECT 1 FROM trajectories WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.Query("SELECT x, y, action FROM waypoints WHERE trajectory_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wps []planner.Waypoint
	for rows.Next() {
		var wp planner.Waypoint
		var action string
		if err := rows.Scan(&wp.X, &wp.Y, &action); err != nil {
			return nil, err
		}
		wp.Action = planner.Action(action)
		wps = append(wps, wp)
	}
	return wps, rows.Err()
}

// Metrics summarises all stored trajectories.
type Metrics struct {
	TotalTrajectories  int     `json:"total_trajectories"`
	AvgCoveragePercent float64 `json:"avg_coverage_percent"`
	AvgDuration        float64 `json:"avg_duration"`
	LatestTimestamp    string  `json:"latest_timestamp"`
}

// MetricsSummary computes aggregate statistics over the trajectories table.
// Averages are zero when nothing has been stored yet.
func (db *DB) MetricsSummary() (Metrics, error) {
	rows, err := db.Query("SELECT coverage_percent, duration FROM trajectories")
	if err != nil {
		return Metrics{}, err
	}
	defer rows.Close()

	var coverages, durations []float64
	for rows.Next() {
		var coverage, duration float64
		if err := rows.Scan(&coverage, &duration); err != nil {
			return Metrics{}, err
		}
		coverages = append(coverages, coverage)
		durations = append(durations, duration)
	}
	if err := rows.Err(); err != nil {
		return Metrics{}, err
	}

	m := Metrics{TotalTrajectories: len(coverages)}
	if len(coverages) > 0 {
		m.AvgCoveragePercent = round2(stat.Mean(coverages, nil))
		m.AvgDuration = round2(stat.Mean(durations, nil))
		var latest sql.NullString
		if err := db.QueryRow("SELECT MAX(timestamp) FROM trajectories").Scan(&latest); err != nil {
			return Metrics{}, err
		}
		m.LatestTimestamp = latest.String
	}
	return m, nil
}

// AttachAdminRoutes mounts debugging endpoints under /debug/: a tailsql
// console against the trajectory database and an on-demand gzip backup
// download. These are operator tools, not part of the public API.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://wallpath.db", db.DB, &tailsql.DBOptions{
		Label: "Wallpath DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unixTime := time.Now().Unix()
		backupPath := fmt.Sprintf("backup-%d.db", unixTime)
		if _, err := db.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer backupFile.Close()
		defer os.Remove(backupPath)

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()

		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			http.Error(w, fmt.Sprintf("Failed to write backup file: %v", err), http.StatusInternalServerError)
			return
		}
	}))
}
