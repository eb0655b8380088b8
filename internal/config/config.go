// Package config loads the zoning stage configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/zoning"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/pkg/types"
)

// maxFileSize bounds the configuration file read by Load.
const maxFileSize = 1 << 20

// Config is the on-disk configuration. The zoning block mirrors the addon
// block of the host pipeline's system.yaml.
type Config struct {
	Zoning ZoningConfig `yaml:"zoning"`
	Model  ModelConfig  `yaml:"model"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// ZoningConfig holds the zone geometry and class names.
type ZoningConfig struct {
	Zones       [][]types.Point `yaml:"zones"`
	RemoveAreas [][]types.Point `yaml:"remove_areas"`
	ClassNames  []string        `yaml:"class_names"`
	RestMode    string          `yaml:"rest_mode"`
	BlurSigma   float64         `yaml:"blur_sigma"`
}

// ModelConfig holds the detector settings the zoning stage depends on.
type ModelConfig struct {
	FilterClassIDs []int `yaml:"filter_class_ids"`
}

// ServerConfig holds listen addresses. Empty addresses disable a server.
type ServerConfig struct {
	HTTP           string        `yaml:"http"`
	Metrics        string        `yaml:"metrics"`
	DB             string        `yaml:"db"`
	StatusInterval time.Duration `yaml:"status_interval"`
	HistoryLimit   int           `yaml:"history_limit"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"`
	Color bool   `yaml:"color"`
}

// DefaultConfig returns the settings used for anything the file leaves out.
func DefaultConfig() Config {
	return Config{
		Zoning: ZoningConfig{
			RestMode: zoning.RestPerZone.String(),
		},
		Server: ServerConfig{
			StatusInterval: 2 * time.Second,
			HistoryLimit:   100,
		},
		Log: LogConfig{Level: "info", Color: true},
	}
}

// Load reads a YAML (or JSON) configuration file and fills unset fields from
// DefaultConfig.
func Load(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return Config{}, fmt.Errorf("config file %s: unsupported extension", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return Config{}, fmt.Errorf("config file %s is %d bytes, limit is %d", path, info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes configuration bytes over DefaultConfig. Unknown keys are
// rejected.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Zoning.RestMode == "" {
		c.Zoning.RestMode = def.Zoning.RestMode
	}
	if c.Server.StatusInterval == 0 {
		c.Server.StatusInterval = def.Server.StatusInterval
	}
	if c.Server.HistoryLimit <= 0 {
		c.Server.HistoryLimit = def.Server.HistoryLimit
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Validate checks the fields that can be checked without building an engine.
func (c Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := zoning.ParseRestMode(c.Zoning.RestMode); err != nil {
		return fmt.Errorf("zoning.rest_mode: %w", err)
	}
	if c.Server.StatusInterval < 0 {
		return fmt.Errorf("server.status_interval must not be negative")
	}
	return nil
}

// Engine converts the file settings into an engine configuration.
func (c Config) Engine() (zoning.Config, error) {
	mode, err := zoning.ParseRestMode(c.Zoning.RestMode)
	if err != nil {
		return zoning.Config{}, err
	}
	return zoning.Config{
		Zones:          c.Zoning.Zones,
		RemoveAreas:    c.Zoning.RemoveAreas,
		ClassNames:     c.Zoning.ClassNames,
		FilterClassIDs: c.Model.FilterClassIDs,
		RestMode:       mode,
		BlurSigma:      c.Zoning.BlurSigma,
	}, nil
}
