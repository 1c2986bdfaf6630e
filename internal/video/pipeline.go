package video

import (
	"fmt"
	"io"
	"time"

	"wows-timelapse/internal/battle"
	"wows-timelapse/internal/decode"
	"wows-timelapse/internal/metrics"
	"wows-timelapse/internal/raster"
	"wows-timelapse/internal/render"
)

// DumpKind selects single-frame dump mode, mutually exclusive with full
// video encoding.
type DumpKind int

const (
	DumpNone DumpKind = iota
	DumpFrame
	DumpMidpoint
	DumpLast
)

// DumpMode configures single-frame PNG dump; FrameIndex only applies to
// DumpFrame.
type DumpMode struct {
	Kind       DumpKind
	FrameIndex int
}

// Pipeline drives the renderer/rasterizer/encoder chain one target
// frame at a time, following the clock-to-frame mapping: a frame's
// world-clock is (frame_index / total_frames) * game_duration.
type Pipeline struct {
	canvas     *raster.Canvas
	renderer   *render.Renderer
	controller *battle.Controller

	totalFrames  int
	gameDuration float64

	nextFrame int

	dump       DumpMode
	dumpWriter io.Writer
	dumped     bool

	encoder Encoder
	mux     *Mux

	metrics *metrics.Recorder
}

// PipelineConfig groups the inputs NewPipeline needs, including the
// controller the Pipeline reads and feeds.
type PipelineConfig struct {
	Canvas       *raster.Canvas
	Renderer     *render.Renderer
	Controller   *battle.Controller
	FPS          int
	Duration     float64 // seconds; OUTPUT_DURATION, not the replay's own length
	GameDuration float64 // seconds; replay duration, fixed for the run (a later BattleEnd does not extend it)
	Dump         DumpMode
	DumpWriter   io.Writer // required when Dump.Kind != DumpNone
	Encoder      Encoder   // nil when Dump.Kind != DumpNone
	Metrics      *metrics.Recorder // optional; nil disables timing instrumentation
}

// NewPipeline builds a Pipeline. When cfg.Dump.Kind == DumpNone, cfg.Encoder
// must be non-nil; a Mux is constructed internally to collect its output.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	p := &Pipeline{
		canvas:       cfg.Canvas,
		renderer:     cfg.Renderer,
		controller:   cfg.Controller,
		totalFrames:  int(cfg.Duration * float64(cfg.FPS)),
		gameDuration: cfg.GameDuration,
		dump:         cfg.Dump,
		dumpWriter:   cfg.DumpWriter,
		encoder:      cfg.Encoder,
		metrics:      cfg.Metrics,
	}
	if cfg.Dump.Kind == DumpNone {
		p.mux = NewMux(cfg.Canvas.Width(), cfg.Canvas.Height(), cfg.FPS)
	}
	return p
}

// Process applies one packet to the controller, first advancing the
// pipeline up through the packet's own clock so every rendered frame
// only ever sees state causally preceding its time, inlined here so
// callers only ever call Process, never the controller directly.
func (p *Pipeline) Process(clock decode.GameClock, payload decode.Payload) error {
	if err := p.AdvanceClock(clock); err != nil {
		return err
	}
	p.controller.Process(clock, payload)
	return nil
}

// AdvanceClock renders and encodes every unrendered frame whose target
// time is at or before newClock. In dump modes other than DumpLast it
// also stops early once the requested frame has been captured.
func (p *Pipeline) AdvanceClock(newClock decode.GameClock) error {
	if p.dump.Kind == DumpLast || p.dumped {
		return nil
	}
	for p.nextFrame < p.totalFrames {
		target := p.frameClock(p.nextFrame)
		if target > float64(newClock) {
			return nil
		}
		if err := p.renderFrame(decode.GameClock(target)); err != nil {
			return err
		}
		if p.dumped {
			return nil
		}
	}
	return nil
}

func (p *Pipeline) frameClock(frameIndex int) float64 {
	return (float64(frameIndex) / float64(p.totalFrames)) * p.gameDuration
}

func (p *Pipeline) renderFrame(clock decode.GameClock) error {
	renderStart := time.Now()
	p.canvas.BeginFrame()
	for _, cmd := range p.renderer.Frame(clock, p.controller) {
		p.canvas.Draw(cmd)
	}
	p.canvas.EndFrame()
	if p.metrics != nil {
		p.metrics.RecordRender(time.Since(renderStart))
	}

	encodeStart := time.Now()
	switch p.dump.Kind {
	case DumpFrame:
		if p.nextFrame == p.dump.FrameIndex {
			if err := p.writeDump(); err != nil {
				return err
			}
		}
	case DumpMidpoint:
		if p.nextFrame == p.totalFrames/2 {
			if err := p.writeDump(); err != nil {
				return err
			}
		}
	case DumpNone:
		if err := p.encoder.Encode(p.canvas.RGBA()); err != nil {
			return fmt.Errorf("video: encode frame %d: %w", p.nextFrame, err)
		}
	}
	if p.metrics != nil {
		p.metrics.RecordEncode(time.Since(encodeStart))
	}

	p.nextFrame++
	return nil
}

func (p *Pipeline) writeDump() error {
	if err := p.canvas.WritePNG(p.dumpWriter); err != nil {
		return fmt.Errorf("video: write dump png: %w", err)
	}
	p.dumped = true
	return nil
}

// Finish flushes any remaining frames and produces the final output.
// For DumpLast it renders exactly one frame at the replay's actual end
// (battle_end_clock if known, else gameDuration) so the BattleResultOverlay
// carries a real winner, then writes the PNG. For full encoding it
// drives any frames still owed up to gameDuration, closes the encoder,
// and muxes the accumulated Annex-B stream into an MP4.
func (p *Pipeline) Finish() ([]byte, error) {
	if p.dump.Kind == DumpLast {
		end := p.gameDuration
		if bc := p.controller.BattleEndClock(); bc != nil {
			end = float64(*bc)
		}
		if err := p.renderFrame(decode.GameClock(end)); err != nil {
			return nil, err
		}
		if err := p.writeDump(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if p.dump.Kind != DumpNone {
		if err := p.AdvanceClock(decode.GameClock(p.gameDuration)); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := p.AdvanceClock(decode.GameClock(p.gameDuration)); err != nil {
		return nil, err
	}

	stream, err := p.encoder.Close()
	if err != nil {
		return nil, fmt.Errorf("video: close encoder: %w", err)
	}
	p.mux.AddAnnexB(stream)

	out, err := p.mux.Finish()
	if err != nil {
		return nil, fmt.Errorf("video: mux: %w", err)
	}
	return out, nil
}
