// Command wallpathd runs the wall painting trajectory service: the HTTP
// planning API, the trajectory store, and an optional serial link to the
// painting robot controller.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/wallpath/internal/api"
	"github.com/banshee-data/wallpath/internal/config"
	"github.com/banshee-data/wallpath/internal/db"
	"github.com/banshee-data/wallpath/internal/pubsub"
	"github.com/banshee-data/wallpath/internal/robotlink"
	"github.com/banshee-data/wallpath/internal/version"
)

var (
	configFile    = flag.String("config", "", "Optional JSON config file")
	devMode       = flag.Bool("dev", false, "Run in dev mode with a mock robot link")
	listen        = flag.String("listen", "", "Listen address")
	dbPath        = flag.String("db", "", "SQLite database path")
	migrationsDir = flag.String("migrations", "", "Migrations directory (skipped when empty)")
	unitsFlag     = flag.String("units", "", "Default length units for API responses")
	robotPort     = flag.String("robot-port", "", "Serial port of the robot controller (no link when empty)")
)

// resolveConfig overlays command line flags on the file config. A set flag
// always wins.
func resolveConfig() (config.ServiceConfig, error) {
	cfg := config.DefaultServiceConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadServiceConfig(*configFile)
		if err != nil {
			return cfg, err
		}
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *migrationsDir != "" {
		cfg.MigrationsDir = *migrationsDir
	}
	if *unitsFlag != "" {
		cfg.Units = *unitsFlag
	}
	if *robotPort != "" {
		cfg.RobotPort = *robotPort
	}
	if *devMode {
		cfg.DevMode = true
	}
	return cfg, nil
}

func main() {
	flag.Parse()

	log.Printf("wallpathd %s", version.String())

	cfg, err := resolveConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if cfg.MigrationsDir != "" {
		if err := database.MigrateUp(cfg.MigrationsDir); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	broker := pubsub.NewBroker()
	defer broker.Close()

	var robot robotlink.LinkInterface
	switch {
	case cfg.DevMode:
		link, _ := robotlink.NewMockLink()
		robot = link
		log.Print("dev mode: using mock robot link")
	case cfg.RobotPort != "":
		link, err := robotlink.NewRealLink(cfg.RobotPort, robotlink.PortOptions{})
		if err != nil {
			log.Fatalf("failed to open robot port %s: %v", cfg.RobotPort, err)
		}
		robot = link
	}
	if robot != nil {
		defer robot.Close()
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// monitor routine for robot controller acknowledgements
	if robot != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := robot.Monitor(ctx); err != nil && err != context.Canceled {
				log.Printf("failed to monitor robot link: %v", err)
			}
			log.Print("robot monitor routine terminated")
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			id, c := robot.Subscribe()
			defer robot.Unsubscribe(id)
			for {
				select {
				case line, ok := <-c:
					if !ok {
						return
					}
					log.Printf("robot: %s", line)
				case <-ctx.Done():
					log.Print("robot subscribe routine terminated")
					return
				}
			}
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(database, broker, cfg.Units, robot).ServeMux()
		database.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:    cfg.Listen,
			Handler: api.LoggingMiddleware(api.CORSMiddleware(mux)),
		}

		go func() {
			log.Printf("listening on %s", cfg.Listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
