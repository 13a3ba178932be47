// Package config loads the optional service configuration file. Flags on
// the daemon override anything set here, and everything has a workable
// default, so running without a config file is fine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/wallpath/internal/units"
)

// ServiceConfig is the on-disk configuration for the wallpath daemon.
// Omitted fields keep their defaults, so partial configs are safe.
type ServiceConfig struct {
	Listen        string `json:"listen,omitempty"`
	DBPath        string `json:"db_path,omitempty"`
	MigrationsDir string `json:"migrations_dir,omitempty"`
	Units         string `json:"units,omitempty"`
	RobotPort     string `json:"robot_port,omitempty"`
	DevMode       bool   `json:"dev_mode,omitempty"`
}

// DefaultServiceConfig returns the configuration used when no file is given.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Listen: ":8080",
		DBPath: "wallpath.db",
		Units:  units.Meters,
	}
}

// maxConfigFileSize bounds how much configuration we are willing to read.
const maxConfigFileSize = 1 * 1024 * 1024

// LoadServiceConfig reads a ServiceConfig from a JSON file and overlays it
// on the defaults. The path must have a .json extension.
func LoadServiceConfig(path string) (ServiceConfig, error) {
	cfg := DefaultServiceConfig()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Units != "" && !units.IsValid(cfg.Units) {
		return cfg, fmt.Errorf("invalid units %q: expected one of %s", cfg.Units, units.GetValidUnitsString())
	}
	return cfg, nil
}
