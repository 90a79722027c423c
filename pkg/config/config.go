// Package config handles meshprobe configuration loading and management.
package config

import (
	"fmt"

	"github.com/df07/go-mesh-interaction/pkg/camera"
	"github.com/df07/go-mesh-interaction/pkg/core"
	"github.com/df07/go-mesh-interaction/pkg/diff"
	"github.com/df07/go-mesh-interaction/pkg/geometry"
	"github.com/df07/go-mesh-interaction/pkg/logger"
)

// Config holds all meshprobe settings.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Probe      ProbeConfig      `yaml:"probe"`
}

// LoggingConfig holds logging settings. File rotation settings apply only
// when LogFile is set.
type LoggingConfig struct {
	Level   string            `yaml:"level"`
	LogFile string            `yaml:"log_file"`
	File    logger.FileConfig `yaml:"file"`
}

// EvaluationConfig holds batch evaluation settings.
type EvaluationConfig struct {
	Mode      string `yaml:"mode"` // "eager" or "recorded"
	Workers   int    `yaml:"workers"`
	ChunkSize int    `yaml:"chunk_size"`
	Coherent  bool   `yaml:"coherent"`
}

// ProbeConfig describes the ray batch traced against the mesh.
type ProbeConfig struct {
	Resolution  int        `yaml:"resolution"`
	Projection  string     `yaml:"projection"`
	Direction   [3]float64 `yaml:"direction,flow"`
	Flags       string     `yaml:"flags"`
	FaceNormals bool       `yaml:"face_normals"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
			File:  logger.DefaultFileConfig(""),
		},
		Evaluation: EvaluationConfig{
			Mode:      "eager",
			Workers:   0, // runtime.NumCPU()
			ChunkSize: 256,
		},
		Probe: ProbeConfig{
			Resolution: 64,
			Projection: "orthographic",
			Direction:  [3]float64{0, 0, 1},
			Flags:      "all",
		},
	}
}

// DiffConfig converts the evaluation settings into a diff.Config
func (e EvaluationConfig) DiffConfig() (diff.Config, error) {
	mode, err := diff.ParseMode(e.Mode)
	if err != nil {
		return diff.Config{}, err
	}
	return diff.Config{
		Mode:      mode,
		Workers:   e.Workers,
		ChunkSize: e.ChunkSize,
		Coherent:  e.Coherent,
	}.Normalized(), nil
}

// LoggerFileConfig returns the rotation settings for LogFile, or a zero
// FileConfig when file logging is off
func (l LoggingConfig) LoggerFileConfig() logger.FileConfig {
	if l.LogFile == "" {
		return logger.FileConfig{}
	}
	fc := l.File
	fc.Path = l.LogFile
	return fc
}

func (p ProbeConfig) RayFlags() (geometry.RayFlags, error) {
	return geometry.ParseRayFlags(p.Flags)
}

func (p ProbeConfig) CameraProjection() (camera.Projection, error) {
	return camera.ParseProjection(p.Projection)
}

// ViewDirection returns the probe direction as a vector
func (p ProbeConfig) ViewDirection() core.Vec3 {
	return core.NewVec3(p.Direction[0], p.Direction[1], p.Direction[2])
}

// Validate checks that every setting parses
func (c *Config) Validate() error {
	if _, err := c.Evaluation.DiffConfig(); err != nil {
		return fmt.Errorf("evaluation: %w", err)
	}
	if c.Evaluation.Workers < 0 {
		return fmt.Errorf("evaluation: negative worker count %d", c.Evaluation.Workers)
	}
	if c.Probe.Resolution <= 0 {
		return fmt.Errorf("probe: resolution must be positive, got %d", c.Probe.Resolution)
	}
	if _, err := c.Probe.RayFlags(); err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	if _, err := c.Probe.CameraProjection(); err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	if c.Probe.ViewDirection().LengthSquared() == 0 {
		return fmt.Errorf("probe: direction must be non-zero")
	}
	return nil
}
