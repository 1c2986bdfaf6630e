package raster

import (
	"image"
	"image/color"
	"math"
)

// The primitives below are a direct adaptation of
// internal/streaming/fast_render.go's FastRenderer: straight (non-
// premultiplied) alpha blending directly against an *image.RGBA's Pix
// slice, since gg.Context's path-fill API is too slow to call once per
// ship/tracer/capture-zone per frame. All blending here is straight
// alpha over an opaque background.

func setPixelBlend(img *image.RGBA, x, y int, c color.RGBA) {
	b := img.Rect
	if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
		return
	}
	idx := img.PixOffset(x, y)
	if c.A == 255 {
		img.Pix[idx] = c.R
		img.Pix[idx+1] = c.G
		img.Pix[idx+2] = c.B
		img.Pix[idx+3] = 255
		return
	}
	if c.A == 0 {
		return
	}
	srcA := float64(c.A) / 255.0
	invA := 1.0 - srcA
	img.Pix[idx] = uint8(float64(c.R)*srcA + float64(img.Pix[idx])*invA)
	img.Pix[idx+1] = uint8(float64(c.G)*srcA + float64(img.Pix[idx+1])*invA)
	img.Pix[idx+2] = uint8(float64(c.B)*srcA + float64(img.Pix[idx+2])*invA)
	img.Pix[idx+3] = 255
}

func drawFilledCircleBlend(img *image.RGBA, cx, cy int, radius float64, c color.RGBA) {
	if radius <= 0 {
		return
	}
	radSq := radius * radius
	rad := int(radius + 0.5)
	for py := cy - rad; py <= cy+rad; py++ {
		dy := float64(py - cy)
		dySq := dy * dy
		if dySq > radSq {
			continue
		}
		xExtent := math.Sqrt(radSq - dySq)
		for px := cx - int(xExtent+0.5); px <= cx+int(xExtent+0.5); px++ {
			dx := float64(px - cx)
			if dx*dx+dySq <= radSq {
				setPixelBlend(img, px, py, c)
			}
		}
	}
}

// drawPieSliceBlend fills the sector of the circle centered at (cx,cy)
// from startRad sweeping clockwise by sweepRad radians — used by
// CapturePoint's invader-progress wedge.
func drawPieSliceBlend(img *image.RGBA, cx, cy int, radius float64, startRad, sweepRad float64, c color.RGBA) {
	if radius <= 0 || sweepRad <= 0 {
		return
	}
	radSq := radius * radius
	rad := int(radius + 0.5)
	end := startRad + sweepRad
	for py := cy - rad; py <= cy+rad; py++ {
		for px := cx - rad; px <= cx+rad; px++ {
			dx, dy := float64(px-cx), float64(py-cy)
			distSq := dx*dx + dy*dy
			if distSq > radSq {
				continue
			}
			angle := math.Atan2(dy, dx)
			if angle < startRad {
				angle += 2 * math.Pi
			}
			if angle >= startRad && angle <= end {
				setPixelBlend(img, px, py, c)
			}
		}
	}
}

func drawCircleOutlineBlend(img *image.RGBA, cx, cy int, radius float64, lineWidth float64, c color.RGBA, dashed bool) {
	outer := radius + lineWidth/2
	inner := math.Max(0, radius-lineWidth/2)
	outerSq, innerSq := outer*outer, inner*inner
	rad := int(outer + 0.5)
	for py := cy - rad; py <= cy+rad; py++ {
		for px := cx - rad; px <= cx+rad; px++ {
			dx, dy := float64(px-cx), float64(py-cy)
			distSq := dx*dx + dy*dy
			if distSq > outerSq || distSq < innerSq {
				continue
			}
			if dashed {
				angle := math.Atan2(dy, dx)
				if int(angle*6) % 2 == 0 {
					continue
				}
			}
			setPixelBlend(img, px, py, c)
		}
	}
}

func drawLineBlend(img *image.RGBA, x0, y0, x1, y1 int, thickness float64, c color.RGBA) {
	dx, dy := float64(x1-x0), float64(y1-y0)
	length := math.Hypot(dx, dy)
	if length == 0 {
		drawFilledCircleBlend(img, x0, y0, thickness/2, c)
		return
	}
	steps := int(length) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := x0 + int(dx*t)
		y := y0 + int(dy*t)
		if thickness <= 1 {
			setPixelBlend(img, x, y, c)
		} else {
			drawFilledCircleBlend(img, x, y, thickness/2, c)
		}
	}
}

// drawIconBlend rotates src (an RGBA icon centered on its own bounds) by
// yawRad and blends it into dst at (cx,cy), mapping destination pixels
// through the inverse rotation. When tint != nil the
// icon's opaque mask is luminance-tinted to that color; else the icon's
// native colors are used untouched. opacity further scales alpha
// (Undetected ghosts render at reduced opacity).
func drawIconBlend(dst *image.RGBA, src *image.RGBA, cx, cy int, yawRad float64, tint *color.RGBA, opacity float32) {
	b := src.Bounds()
	hw, hh := float64(b.Dx())/2, float64(b.Dy())/2
	cos, sin := math.Cos(-float64(yawRad)), math.Sin(-float64(yawRad))

	// Bounding radius of the rotated icon, so we only walk the pixels
	// that can possibly be covered.
	diag := math.Hypot(hw, hh)
	r := int(diag) + 1

	for py := cy - r; py <= cy+r; py++ {
		for px := cx - r; px <= cx+r; px++ {
			dx := float64(px-cx) + 0 // destination offset from center
			dyF := float64(py - cy)
			// Inverse-rotate to find the source sample point.
			sx := dx*cos - dyF*sin + hw
			sy := dx*sin + dyF*cos + hh
			ix, iy := int(sx), int(sy)
			if ix < 0 || iy < 0 || ix >= b.Dx() || iy >= b.Dy() {
				continue
			}
			sr, sg, sb, sa := src.RGBAAt(b.Min.X+ix, b.Min.Y+iy).RGBA()
			if sa == 0 {
				continue
			}
			a := uint8(sa >> 8)
			if opacity < 1 {
				a = uint8(float32(a) * opacity)
			}
			var col color.RGBA
			if tint != nil {
				lum := 0.299*float64(sr>>8) + 0.587*float64(sg>>8) + 0.114*float64(sb>>8)
				scale := lum / 255.0
				col = color.RGBA{
					R: uint8(float64(tint.R) * scale),
					G: uint8(float64(tint.G) * scale),
					B: uint8(float64(tint.B) * scale),
					A: a,
				}
			} else {
				col = color.RGBA{R: uint8(sr >> 8), G: uint8(sg >> 8), B: uint8(sb >> 8), A: a}
			}
			setPixelBlend(dst, px, py, col)
		}
	}
}

// drawHaloBlend draws the detected-teammate halo beneath an icon: a
// filled disc centered on the icon, with radius half the icon's diagonal
// plus thickness pixels. The halo does not follow the icon's opaque mask.
func drawHaloBlend(dst *image.RGBA, src *image.RGBA, cx, cy int, yawRad float64, thickness int, haloColor color.RGBA) {
	b := src.Bounds()
	hw, hh := float64(b.Dx())/2, float64(b.Dy())/2
	radius := math.Hypot(hw, hh) + float64(thickness)
	drawFilledCircleBlend(dst, cx, cy, radius, haloColor)
}
