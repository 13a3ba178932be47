// Command plan-plot plans a trajectory for a wall config file and renders
// it to an image, for checking sweep patterns without running the service.
//
// Usage:
//
//	plan-plot -config wall.json -out trajectory.png
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/banshee-data/wallpath/internal/planner"
	"github.com/banshee-data/wallpath/internal/plot"
)

var (
	configPath = flag.String("config", "", "Wall config JSON file")
	outPath    = flag.String("out", "trajectory.png", "Output image path")
)

func main() {
	flag.Parse()

	if *configPath == "" {
		log.Fatal("a wall config file is required (-config)")
	}

	data, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	var cfg planner.WallConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		log.Fatal("wall dimensions must be positive")
	}

	result := planner.Plan(cfg)
	log.Printf("planned %d waypoints (%d unreachable cells)", len(result.Waypoints), result.NavFailures)

	if err := plot.RenderTrajectory(cfg, result.Waypoints, *outPath); err != nil {
		log.Fatalf("failed to render trajectory: %v", err)
	}
	log.Printf("wrote %s", *outPath)
}
