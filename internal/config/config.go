// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all pipeline and display settings.
//
// IMPORTANT: When changing defaults, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// VIDEO & CANVAS CONFIGURATION
// =============================================================================

// VideoConfig holds output video/canvas settings.
type VideoConfig struct {
	OutputSize int     `toml:"output_size"` // square canvas edge, multiple of 16
	HUDHeight  int     `toml:"hud_height"`  // HUD strip height, multiple of 16
	FPS        int     `toml:"fps"`
	Duration   float64 `toml:"duration_seconds"` // output video length
	Bitrate    int     `toml:"bitrate_kbps"`
}

// DefaultVideo returns the default video configuration.
func DefaultVideo() VideoConfig {
	return VideoConfig{
		OutputSize: 768,
		HUDHeight:  32,
		FPS:        30,
		Duration:   60.0,
		Bitrate:    6000,
	}
}

// =============================================================================
// DISPLAY TOGGLES
// =============================================================================

// DisplayConfig controls which overlay elements the renderer emits.
type DisplayConfig struct {
	PlayerNames     bool `toml:"player_names"`
	ShipNames       bool `toml:"ship_names"`
	CapturePoints   bool `toml:"capture_points"`
	Buildings       bool `toml:"buildings"`
	TurretDirection bool `toml:"turret_direction"`
	Armament        bool `toml:"show_armament"`
	Trails          bool `toml:"show_trails"`
	ShipConfig      bool `toml:"show_ship_config"`
	Progress        bool `toml:"progress"`
}

// DefaultDisplay returns the default display toggle set. Everything the
// renderer can draw is on by default except the lower-value optional
// overlays (armament colors, position trails, config range rings).
func DefaultDisplay() DisplayConfig {
	return DisplayConfig{
		PlayerNames:     true,
		ShipNames:       true,
		CapturePoints:   true,
		Buildings:       true,
		TurretDirection: true,
		Armament:        false,
		Trails:          false,
		ShipConfig:      false,
		Progress:        true,
	}
}

// =============================================================================
// PATHS
// =============================================================================

// PathsConfig holds input/output filesystem locations.
type PathsConfig struct {
	GameDir    string `toml:"game_dir"`    // packed game-data directory (icons, space.settings, GameParams)
	Replay     string `toml:"-"`           // replay file path, CLI-only
	Output     string `toml:"-"`           // output MP4/PNG path, CLI-only
	MetricsOut string `toml:"metrics_out"` // metrics snapshot file, empty disables
}

// =============================================================================
// DUMP MODE
// =============================================================================

// DumpKind selects a single-frame PNG dump instead of full video encoding.
type DumpKind int

const (
	DumpNone DumpKind = iota
	DumpFrame
	DumpMidpoint
	DumpLast
)

// DumpConfig describes the single-frame dump mode, if any.
type DumpConfig struct {
	Kind  DumpKind
	Frame int // only meaningful when Kind == DumpFrame
}

// =============================================================================
// ENCODER
// =============================================================================

// EncoderConfig selects and configures the video encoder backend.
type EncoderConfig struct {
	ForceCPU    bool   `toml:"force_cpu"`
	FFmpegPath  string `toml:"ffmpeg_path"`
	CheckOnly   bool   `toml:"-"` // --check-encoder, CLI-only
}

// DefaultEncoder returns the default encoder configuration.
func DefaultEncoder() EncoderConfig {
	return EncoderConfig{
		ForceCPU:   false,
		FFmpegPath: "ffmpeg",
	}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Video   VideoConfig   `toml:"video"`
	Display DisplayConfig `toml:"display"`
	Paths   PathsConfig   `toml:"-"`
	Encoder EncoderConfig `toml:"encoder"`
	Dump    DumpConfig    `toml:"-"`
}

// Default returns the complete configuration with built-in defaults only.
func Default() AppConfig {
	return AppConfig{
		Video:   DefaultVideo(),
		Display: DefaultDisplay(),
		Encoder: DefaultEncoder(),
	}
}

// LoadFile decodes a TOML config file over the defaults. A missing file at
// path "" is not an error — callers get Default() back.
func LoadFile(path string) (AppConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// WriteDefault writes the default configuration as TOML to path, for
// --generate-config.
func WriteDefault(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	enc := toml.NewEncoder(f)
	return enc.Encode(Default())
}
