package decode

import (
	"errors"
	"testing"
)

func TestNewDecoderRejectsVersionBeforeAnySchema(t *testing.T) {
	_, err := NewDecoder(Version{Major: 0, Minor: 1, Patch: 0, Build: 0}, nil)
	if err == nil {
		t.Fatalf("expected an unsupported-version error")
	}
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected error to wrap ErrUnsupportedVersion, got %v", err)
	}
}

func TestNewDecoderAcceptsKnownVersion(t *testing.T) {
	if _, err := NewDecoder(Version{Major: 0, Minor: 11, Patch: 8, Build: 0}, nil); err != nil {
		t.Fatalf("expected known version to build a decoder, got %v", err)
	}
}

func TestDecodeMinimapWordUnpacksFields(t *testing.T) {
	// x=1024 (center-ish), y=0, heading=128 (~0 deg), unknown=0, disappearing=1
	var raw uint32
	raw |= uint32(1024)
	raw |= uint32(0) << 11
	raw |= uint32(128) << 22
	raw |= 0 << 30 // unknown bit
	raw |= 1 << 31 // is_disappearing (MSB)

	pos, heading, disappearing := DecodeMinimapWord(raw)

	if !disappearing {
		t.Fatalf("expected is_disappearing bit to decode true")
	}
	wantX := float32(1024)/512.0 - 1.5
	if pos.X != wantX {
		t.Fatalf("expected x=%v, got %v", wantX, pos.X)
	}
	wantY := float32(0)/512.0 - 1.5
	if pos.Y != wantY {
		t.Fatalf("expected y=%v, got %v", wantY, pos.Y)
	}
	wantHeading := (float32(128)/256.0)*360.0 - 180.0
	if heading != wantHeading {
		t.Fatalf("expected heading=%v, got %v", wantHeading, heading)
	}
}

func TestDecodeMinimapWordNotDisappearing(t *testing.T) {
	var raw uint32
	raw |= uint32(2047)
	raw |= uint32(2047) << 11
	raw |= uint32(255) << 22
	// is_disappearing bit (MSB) left 0

	_, _, disappearing := DecodeMinimapWord(raw)
	if disappearing {
		t.Fatalf("expected is_disappearing false when bit 31 is unset")
	}
}

func TestWorldOfNormalizedMatchesFormula(t *testing.T) {
	got := WorldOfNormalized(2047, 0)
	want := WorldPos{X: 2500, Z: -2500}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestVersionOrdering(t *testing.T) {
	older := Version{Major: 0, Minor: 10, Patch: 0, Build: 0}
	newer := Version{Major: 0, Minor: 11, Patch: 8, Build: 0}
	if !older.Before(newer) {
		t.Fatalf("expected %v to be before %v", older, newer)
	}
	if newer.Before(older) {
		t.Fatalf("did not expect %v to be before %v", newer, older)
	}
}
