// Package config provides configuration management for the surveillance system
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the main system configuration
type Config struct {
	System    SystemConfig    `yaml:"system"`
	Server    ServerConfig    `yaml:"server"`
	Cameras   []CameraConfig  `yaml:"cameras"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Safety    SafetyConfig    `yaml:"safety"`
	Identity  IdentityConfig  `yaml:"identity"`
	Database  DatabaseConfig  `yaml:"database"`
}

// SystemConfig holds system-wide settings
type SystemConfig struct {
	Name     string        `yaml:"name"`
	DataPath string        `yaml:"data_path"`
	Logging  LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CameraConfig holds configuration for a single camera
type CameraConfig struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Source  string `yaml:"source"`
	Enabled bool   `yaml:"enabled"`
}

// AnalyticsConfig holds detection and analysis parameters
type AnalyticsConfig struct {
	MinConfidence       float64      `yaml:"min_confidence"`
	FrameSkip           int          `yaml:"frame_skip"`
	BufferCapacity      int          `yaml:"buffer_capacity"`
	MaxCrowdDensity     float64      `yaml:"max_crowd_density"`
	ClusterEps          float64      `yaml:"cluster_eps"`
	ClusterMinSamples   int          `yaml:"cluster_min_samples"`
	RestrictedAreas     []AreaConfig `yaml:"restricted_areas"`
	WorkingHours        HourRange    `yaml:"working_hours"`
	EnablePoseDetection bool         `yaml:"enable_pose_detection"`
}

// AreaConfig holds a named restricted-area polygon
type AreaConfig struct {
	Name   string       `yaml:"name"`
	Points [][2]float64 `yaml:"points"`
}

// HourRange holds an inclusive wall-clock hour range
type HourRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// Contains reports whether the given hour falls inside the range (inclusive)
func (r HourRange) Contains(hour int) bool {
	return r.Start <= hour && hour <= r.End
}

// SafetyConfig holds safety monitoring parameters
type SafetyConfig struct {
	ProximityThreshold float64 `yaml:"proximity_threshold"`
	PoseModelPath      string  `yaml:"pose_model_path"`
}

// IdentityConfig holds known-identity store settings
type IdentityConfig struct {
	Dir       string  `yaml:"dir"`
	Tolerance float64 `yaml:"tolerance"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Default returns a configuration populated with documented defaults
func Default() *Config {
	return &Config{
		System: SystemConfig{
			Name:     "bytelocker",
			DataPath: "./data",
			Logging:  LoggingConfig{Level: "info", Format: "json"},
		},
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Analytics: AnalyticsConfig{
			MinConfidence:     0.4,
			FrameSkip:         3,
			BufferCapacity:    30,
			MaxCrowdDensity:   0.75,
			ClusterEps:        30,
			ClusterMinSamples: 3,
			WorkingHours:      HourRange{Start: 9, End: 17},
		},
		Safety: SafetyConfig{ProximityThreshold: 50},
		Identity: IdentityConfig{
			Dir:       "face_data",
			Tolerance: 0.6,
		},
	}
}

// Load reads and validates configuration from a YAML file.
// Missing optional fields fall back to the documented defaults; a missing
// file or malformed content is a fatal startup error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.Analytics.MinConfidence < 0 || c.Analytics.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0,1], got %v", c.Analytics.MinConfidence)
	}
	if c.Analytics.FrameSkip < 1 {
		return fmt.Errorf("frame_skip must be >= 1, got %d", c.Analytics.FrameSkip)
	}
	if c.Analytics.BufferCapacity < 1 {
		return fmt.Errorf("buffer_capacity must be >= 1, got %d", c.Analytics.BufferCapacity)
	}
	if c.Analytics.MaxCrowdDensity < 0 {
		return fmt.Errorf("max_crowd_density must be >= 0, got %v", c.Analytics.MaxCrowdDensity)
	}
	if c.Analytics.ClusterMinSamples < 1 {
		return fmt.Errorf("cluster_min_samples must be >= 1, got %d", c.Analytics.ClusterMinSamples)
	}
	wh := c.Analytics.WorkingHours
	if wh.Start < 0 || wh.Start > 23 || wh.End < 0 || wh.End > 23 || wh.Start > wh.End {
		return fmt.Errorf("working_hours must be an ordered pair of hours in [0,23], got [%d,%d]", wh.Start, wh.End)
	}
	for _, area := range c.Analytics.RestrictedAreas {
		if len(area.Points) < 3 {
			return fmt.Errorf("restricted area %q needs at least 3 vertices, got %d", area.Name, len(area.Points))
		}
	}
	if c.Identity.Tolerance <= 0 {
		return fmt.Errorf("identity tolerance must be > 0, got %v", c.Identity.Tolerance)
	}
	seen := make(map[string]bool)
	for _, cam := range c.Cameras {
		if cam.ID == "" {
			return fmt.Errorf("camera with source %q is missing an id", cam.Source)
		}
		if seen[cam.ID] {
			return fmt.Errorf("duplicate camera id %q", cam.ID)
		}
		seen[cam.ID] = true
	}
	return nil
}
