// Package raster is the software rasterizer: it consumes the ordered
// render.DrawCommand stream for one frame and produces an RGBA canvas,
// It owns the base map/HUD layer, the icon cache, and the font cache:
// a gg.Context base layer with cached font.Face set, plus direct-buffer
// alpha blending for primitives gg's path-fill API is too slow for at
// one-call-per-entity-per-frame volume.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"github.com/fogleman/gg"

	"wows-timelapse/internal/render"
)

// DefaultHUDHeight is the default HUD strip height in pixels, a multiple of 16
// like the canvas edge itself.
const DefaultHUDHeight = 32

// Config configures a Canvas's dimensions and optional base-map image.
type Config struct {
	OutputEdge int    // square minimap edge, multiple of 16
	HUDHeight  int    // HUD strip height, multiple of 16
	MapImage   string // path to a pre-rendered minimap background PNG; "" uses a solid fallback
	FontPath   string // TTF/OTF path for HUD text; "" disables text drawing
}

// Canvas is the rasterizer's per-run state: a pre-baked base layer
// (dark fill or map image, pasted below the HUD strip, plus a lettered
// grid overlay) that BeginFrame clones into the working buffer every
// frame, computed once instead of per frame.
type Canvas struct {
	width, height, hudHeight int

	dc   *gg.Context // working frame; text and path-based fills draw here
	rgba *image.RGBA // dc's backing store, for direct-pixel blend primitives
	base *image.RGBA // pre-baked base layer, cloned at BeginFrame

	fonts *FontSet
	icons *IconCache
}

// New builds a Canvas, pre-baking the base layer once on construction.
func New(cfg Config) (*Canvas, error) {
	if cfg.HUDHeight == 0 {
		cfg.HUDHeight = DefaultHUDHeight
	}
	w, h := cfg.OutputEdge, cfg.OutputEdge+cfg.HUDHeight
	dc := gg.NewContext(w, h)
	rgba, ok := dc.Image().(*image.RGBA)
	if !ok {
		return nil, fmt.Errorf("raster: gg.Context did not back an *image.RGBA")
	}

	fonts, err := LoadFonts(cfg.FontPath)
	if err != nil {
		return nil, fmt.Errorf("raster: %w", err)
	}

	c := &Canvas{
		width: w, height: h, hudHeight: cfg.HUDHeight,
		dc: dc, rgba: rgba, fonts: fonts, icons: NewIconCache(),
	}
	c.bakeBase(cfg.MapImage)
	return c, nil
}

// SetIconCache swaps in a populated IconCache (species/plane/consumable
// icons resolved by the external packed-game-data reader, out of this
// core's scope — the caller loads and hands in the
// pre-rasterized RGBA images).
func (c *Canvas) SetIconCache(ic *IconCache) { c.icons = ic }

// bakeBase draws the dark fill (or map image) below the HUD strip and
// the A-J/1-10 grid overlay exactly once.
func (c *Canvas) bakeBase(mapImagePath string) {
	c.dc.SetColor(color.RGBA{12, 12, 28, 255})
	c.dc.DrawRectangle(0, 0, float64(c.width), float64(c.height))
	c.dc.Fill()

	if mapImagePath != "" {
		if img, err := loadPNG(mapImagePath); err == nil {
			c.dc.DrawImage(img, 0, c.hudHeight)
		}
	}

	c.drawGrid()

	base := image.NewRGBA(c.rgba.Rect)
	copy(base.Pix, c.rgba.Pix)
	c.base = base
}

// drawGrid overlays alpha-blended 10x10 grid lines below the HUD strip,
// with column letters A-J centered over each column at the top edge of
// the canvas and row numbers 1-10 centered on each row at the left edge,
// matching the minimap's coordinate convention.
func (c *Canvas) drawGrid() {
	const cells = 10
	edge := c.width
	cell := float64(edge) / cells

	c.dc.SetColor(color.RGBA{255, 255, 255, 40})
	c.dc.SetLineWidth(1)
	for i := 1; i < cells; i++ {
		x := float64(i) * cell
		c.dc.DrawLine(x, float64(c.hudHeight), x, float64(c.height))
		c.dc.Stroke()
		y := float64(c.hudHeight) + float64(i)*cell
		c.dc.DrawLine(0, y, float64(edge), y)
		c.dc.Stroke()
	}

	if c.fonts == nil || c.fonts.Small == nil {
		return
	}
	c.dc.SetFontFace(c.fonts.Small)
	c.dc.SetColor(color.RGBA{255, 255, 255, 90})
	for i := 0; i < cells; i++ {
		label := string(rune('A' + i))
		cx := float64(i)*cell + cell/2
		c.dc.DrawStringAnchored(label, cx, 4, 0.5, 0.5)
	}
	for i := 0; i < cells; i++ {
		label := fmt.Sprintf("%d", i+1)
		cy := float64(c.hudHeight) + float64(i)*cell + cell/2
		c.dc.DrawStringAnchored(label, 4, cy, 0, 0.5)
	}
}

// BeginFrame clones the pre-baked base layer into the working buffer.
func (c *Canvas) BeginFrame() {
	copy(c.rgba.Pix, c.base.Pix)
}

// EndFrame is a no-op checkpoint.
func (c *Canvas) EndFrame() {}

// Draw dispatches one DrawCommand, applying the HUD offset at draw time
// since commands themselves carry HUD-agnostic coordinates.
func (c *Canvas) Draw(cmd render.DrawCommand) {
	dispatch(c, cmd)
}

// RGBA returns the current frame's backing pixel buffer (8-bit RGBA,
// row-major, no padding) — the video pipeline feeds this straight to
// the encoder with no intermediate copy.
func (c *Canvas) RGBA() []byte { return c.rgba.Pix }

// Width and Height report the canvas's full pixel dimensions (HUD strip
// included).
func (c *Canvas) Width() int  { return c.width }
func (c *Canvas) Height() int { return c.height }
func (c *Canvas) HUDHeight() int { return c.hudHeight }

// WritePNG encodes the current frame as an 8-bit RGB PNG, for
// --dump-frame mode.
func (c *Canvas) WritePNG(w io.Writer) error {
	return png.Encode(w, c.rgba)
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

// hudOffset translates a HUD-agnostic minimap pixel into canvas space.
func (c *Canvas) hudOffset(p render.MinimapPos) (int, int) {
	return p.X, p.Y + c.hudHeight
}
