// Package video turns a sequence of RGBA frame buffers into an MP4 file
// (or a single PNG dump). It owns the pluggable encoder backend, the
// hand-rolled MP4 muxer, and the clock-to-frame driving loop that
// advances the renderer/rasterizer pair one frame at a time.
package video

import (
	"fmt"
	"log"
)

// Encoder turns successive RGBA frames into an ordered stream of Annex-B
// H.264 access units. Frames must be submitted in presentation order;
// Close flushes and returns every NAL unit produced, in order.
type Encoder interface {
	Encode(rgba []byte) error
	Close() ([]byte, error)
}

// Backend selects which Encoder construction path to try.
type Backend int

const (
	BackendAuto Backend = iota
	BackendCPU
	BackendGPU
)

// Config configures encoder construction.
type Config struct {
	Width, Height int
	FPS           int
	Backend       Backend
}

// NewEncoder builds an Encoder for cfg. BackendAuto tries the GPU path
// first when this binary was built with the vulkan tag, falling back to
// CPU with a logged warning on init failure.
func NewEncoder(cfg Config) (Encoder, error) {
	switch cfg.Backend {
	case BackendCPU:
		return newCPUEncoder(cfg)
	case BackendGPU:
		enc, err := newGPUEncoder(cfg)
		if err != nil {
			return nil, fmt.Errorf("video: gpu encoder: %w", err)
		}
		return enc, nil
	default:
		enc, err := newGPUEncoder(cfg)
		if err == nil {
			return enc, nil
		}
		log.Printf("⚠️ GPU encoder unavailable (%v), falling back to CPU", err)
		return newCPUEncoder(cfg)
	}
}
