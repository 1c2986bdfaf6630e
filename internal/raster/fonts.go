package raster

import (
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

// FontSet caches three font.Face sizes, loaded once at Canvas
// construction rather than per frame/per draw call — grounded directly
// once, not per-frame: rasterizing a TTF glyph outline on every draw
// call would dominate frame time at video rates.
type FontSet struct {
	Small  font.Face // HUD labels, grid letters, kill feed, chat
	Medium font.Face // score bar, timer, capture-point labels
	Large  font.Face // battle result overlay
}

// LoadFonts parses the TTF/OTF at path once and builds the three cached
// faces. An empty path is valid — HUD text is simply skipped, matching
// a missing font file not failing the whole run.
func LoadFonts(path string) (*FontSet, error) {
	if path == "" {
		return &FontSet{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fonts: read %s: %w", path, err)
	}
	parsed, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fonts: parse %s: %w", path, err)
	}

	face := func(size float64) font.Face {
		return truetype.NewFace(parsed, &truetype.Options{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}

	return &FontSet{
		Small:  face(14),
		Medium: face(20),
		Large:  face(40),
	}, nil
}
