package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileWithEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected LoadFile(\"\") to equal Default()")
	}
}

func TestWriteDefaultThenLoadFileRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Video != DefaultVideo() {
		t.Fatalf("expected round-tripped video config to match defaults, got %+v", cfg.Video)
	}
	if cfg.Display != DefaultDisplay() {
		t.Fatalf("expected round-tripped display config to match defaults, got %+v", cfg.Display)
	}
}

func TestLoadFileOverridesOnlyDeclaredFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[video]\nfps = 60\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Video.FPS != 60 {
		t.Fatalf("expected overridden fps=60, got %d", cfg.Video.FPS)
	}
	if cfg.Video.OutputSize != DefaultVideo().OutputSize {
		t.Fatalf("expected un-overridden output_size to keep its default, got %d", cfg.Video.OutputSize)
	}
}

func TestLoadFileMissingPathIsAnError(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected an error for a nonexistent explicit config path")
	}
}
