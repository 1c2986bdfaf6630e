package decode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// cursor is a small bounds-checked byte reader, grounded on the "tolerant,
// never-panics" parsing idiom: every read returns an error on short input
// instead of slicing out of range, so a truncated payload surfaces as a
// DecodePayload error rather than a crash.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.pos
}

func (c *cursor) need(n int) error {
	if c.remaining() < n {
		return fmt.Errorf("decode: need %d bytes, have %d", n, c.remaining())
	}
	return nil
}

func (c *cursor) readU8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *cursor) readU16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) readU32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) readU64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return v, nil
}

func (c *cursor) readI32() (int32, error) {
	v, err := c.readU32()
	return int32(v), err
}

func (c *cursor) readI64() (int64, error) {
	v, err := c.readU64()
	return int64(v), err
}

func (c *cursor) readF32() (float32, error) {
	v, err := c.readU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (c *cursor) readBytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	v := c.buf[c.pos : c.pos+n]
	c.pos += n
	return v, nil
}

// readString reads a u16-length-prefixed UTF-8 string.
func (c *cursor) readString() (string, error) {
	n, err := c.readU16()
	if err != nil {
		return "", err
	}
	b, err := c.readBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readUvarint reads an unsigned LEB128 varint.
func (c *cursor) readUvarint() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := c.readU8()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, fmt.Errorf("decode: varint too long")
		}
	}
}

// readWorldPos reads an {x, z} pair of float32s (y/elevation is skipped by
// the caller where the wire format carries it).
func (c *cursor) readWorldPos() (WorldPos, error) {
	x, err := c.readF32()
	if err != nil {
		return WorldPos{}, err
	}
	z, err := c.readF32()
	if err != nil {
		return WorldPos{}, err
	}
	return WorldPos{X: x, Z: z}, nil
}

// readPropertyValue reads a tagged scalar/compound value: 1-byte kind tag
// followed by the kind-specific payload.
func (c *cursor) readPropertyValue() (PropertyValue, error) {
	tag, err := c.readU8()
	if err != nil {
		return PropertyValue{}, err
	}
	switch PropertyKind(tag) {
	case PropInt:
		v, err := c.readI64()
		return PropertyValue{Kind: PropInt, Int: v}, err
	case PropFloat:
		v, err := c.readF32()
		return PropertyValue{Kind: PropFloat, Float: float64(v)}, err
	case PropString:
		v, err := c.readString()
		return PropertyValue{Kind: PropString, Str: v}, err
	case PropBytes:
		n, err := c.readU16()
		if err != nil {
			return PropertyValue{}, err
		}
		b, err := c.readBytes(int(n))
		return PropertyValue{Kind: PropBytes, Bytes: b}, err
	default:
		return PropertyValue{}, fmt.Errorf("decode: unknown property tag %d", tag)
	}
}
