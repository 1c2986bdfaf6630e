package decode

// DecodeMinimapWord unpacks one 32-bit MinimapUpdate word. Bit layout
// matches the original modular_bitfield declaration order, packed
// LSB-first: x in bits 0-10, y in bits 11-21, heading in bits 22-29,
// an unused bit in bit 30, and is_disappearing in the MSB (bit 31).
func DecodeMinimapWord(raw uint32) (pos NormalizedPos, headingDeg float32, isDisappearing bool) {
	rawX := raw & 0x7FF
	rawY := (raw >> 11) & 0x7FF
	rawHeading := (raw >> 22) & 0xFF
	disappearing := (raw >> 31) != 0

	pos = NormalizedPos{
		X: float32(rawX)/512.0 - 1.5,
		Y: float32(rawY)/512.0 - 1.5,
	}
	headingDeg = (float32(rawHeading)/256.0)*360.0 - 180.0
	isDisappearing = disappearing
	return
}

// WorldOfNormalized recovers a world-space position from a raw 11-bit
// normalized coordinate pair, per the renderer's NormalizedPos→minimap path:
// world = (raw/2047)*5000 - 2500.
func WorldOfNormalized(rawX, rawY uint32) WorldPos {
	return WorldPos{
		X: (float32(rawX)/2047.0)*5000.0 - 2500.0,
		Z: (float32(rawY)/2047.0)*5000.0 - 2500.0,
	}
}
