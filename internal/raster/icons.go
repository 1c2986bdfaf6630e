package raster

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
)

// IconCache holds pre-rasterized RGBA ship/plane/consumable icons,
// immutable after construction and freely shared across frames. Loading
// the underlying SVG/PNG artwork into RGBA form is an external
// collaborator's job; this cache only reads the already-rasterized PNGs
// a packed-game-data reader would have produced on disk and keeps them
// resident for the life of the run, since a replay's ship/plane/
// consumable vocabulary is small and known upfront.
type IconCache struct {
	dir    string
	images map[string]*image.RGBA
}

// NewIconCache returns an empty cache; LoadDir populates it from a directory.
func NewIconCache() *IconCache {
	return &IconCache{images: make(map[string]*image.RGBA)}
}

// LoadDir scans dir for "<key>.png" icon files and decodes each into an
// RGBA image kept resident for the run. A missing directory is not an
// error — the rasterizer simply draws no icon for any key it can't
// find, matching the "ship icons are pre-rasterized" contract without
// requiring every caller to provide a full icon set (e.g. unit tests).
func (c *IconCache) LoadDir(dir string) error {
	c.dir = dir
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("raster: read icon dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".png" {
			continue
		}
		key := e.Name()[:len(e.Name())-len(".png")]
		img, err := loadPNG(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		c.images[key] = toRGBA(img)
	}
	return nil
}

// Get returns the cached icon for key, if any.
func (c *IconCache) Get(key string) (*image.RGBA, bool) {
	img, ok := c.images[key]
	return img, ok
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return rgba
}
