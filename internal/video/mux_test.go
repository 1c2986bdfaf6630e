package video

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func annexBNal(code []byte, nalHeader byte, payload ...byte) []byte {
	var b []byte
	b = append(b, code...)
	b = append(b, nalHeader)
	b = append(b, payload...)
	return b
}

func TestAddAnnexBCapturesSPSPPSOnceAndFramesRemainder(t *testing.T) {
	start3 := []byte{0, 0, 1}
	start4 := []byte{0, 0, 0, 1}

	var stream []byte
	stream = append(stream, annexBNal(start4, nalSPS, 0xAA, 0xBB)...)
	stream = append(stream, annexBNal(start3, nalPPS, 0xCC)...)
	stream = append(stream, annexBNal(start3, nalIDR, 0x01, 0x02, 0x03)...)

	m := NewMux(768, 800, 30)
	m.AddAnnexB(stream)

	if m.sps == nil || m.pps == nil {
		t.Fatalf("expected SPS and PPS to be captured")
	}
	if len(m.frames) != 1 {
		t.Fatalf("expected exactly 1 sample frame (SPS/PPS excluded), got %d", len(m.frames))
	}
	if !m.frames[0].sync {
		t.Fatalf("expected the frame containing an IDR NAL to be marked sync")
	}

	// AVCC: big-endian uint32 length prefix, then the NAL bytes (header + payload).
	sample := m.frames[0].sample
	gotLen := binary.BigEndian.Uint32(sample[0:4])
	if int(gotLen) != 4 {
		t.Fatalf("expected length-prefixed NAL of 4 bytes (header+3 payload), got %d", gotLen)
	}
	if sample[4] != nalIDR {
		t.Fatalf("expected reframed NAL to start with its header byte, got %x", sample[4])
	}

	// A second AddAnnexB with different SPS/PPS bytes must not overwrite
	// the first-seen SPS/PPS (spec: "extract the first-frame SPS/PPS").
	second := annexBNal(start4, nalSPS, 0xFF, 0xFF)
	firstSPS := append([]byte(nil), m.sps...)
	m.AddAnnexB(second)
	if !bytes.Equal(m.sps, firstSPS) {
		t.Fatalf("expected SPS to remain the first one captured")
	}
}

func TestFinishRequiresSPSPPSAndFrames(t *testing.T) {
	m := NewMux(16, 16, 30)
	if _, err := m.Finish(); err == nil {
		t.Fatalf("expected an error when no SPS/PPS/frames were ever added")
	}
}

func TestFinishProducesWellFormedISOBMFF(t *testing.T) {
	start4 := []byte{0, 0, 0, 1}
	var stream []byte
	stream = append(stream, annexBNal(start4, nalSPS, 0x42, 0x00, 0x1e)...)
	stream = append(stream, annexBNal(start4, nalPPS, 0x02)...)
	stream = append(stream, annexBNal(start4, nalIDR, 0x03, 0x04)...)

	m := NewMux(32, 48, 30)
	m.AddAnnexB(stream)

	out, err := m.Finish()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) < 8 {
		t.Fatalf("expected a non-trivial MP4 byte stream, got %d bytes", len(out))
	}
	if string(out[4:8]) != "ftyp" {
		t.Fatalf("expected output to start with an ftyp box, got %q", out[4:8])
	}
	if !bytes.Contains(out, []byte("isom")) {
		t.Fatalf("expected the isom brand to appear in the ftyp box")
	}
	if !bytes.Contains(out, []byte("moov")) || !bytes.Contains(out, []byte("mdat")) {
		t.Fatalf("expected both moov and mdat boxes in the output")
	}
}
