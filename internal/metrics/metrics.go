// Package metrics records pipeline diagnostics as Prometheus
// instruments, grounded on the teacher's internal/api/observability.go.
// Unlike the teacher, which registers against the global default
// registry and serves it over /metrics, this repo has no live network
// surface (spec §1 Non-goals): instruments live on a private
// prometheus.Registry and are snapshotted to a text-exposition file
// once, by cmd/timelapse after Pipeline.Finish(), via prometheus/common/expfmt.
package metrics

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"wows-timelapse/internal/diag"
)

// Recorder owns one run's counters and histograms. Unlike the teacher's
// package-level promauto vars (shared process-wide state, fine for a
// long-lived server), this repo constructs a fresh Recorder per run so
// a library caller never leaks instruments across independent
// Controller/Pipeline pairs.
type Recorder struct {
	registry *prometheus.Registry

	decodeErrors      prometheus.Counter
	unknownEnumCodes  *prometheus.GaugeVec
	unknownEnumsTotal prometheus.Counter
	missingEntity     prometheus.Counter
	renderDuration    prometheus.Histogram
	encodeDuration    prometheus.Histogram
	framesEmitted     prometheus.Counter
}

// New builds a Recorder with its own private registry, mirroring the
// teacher's promauto.New* calls but against a scoped registry instead of
// the global one.
func New() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timelapse_decode_errors_total",
			Help: "Packets that failed to decode under their declared type (DecodedPayload::Invalid).",
		}),
		unknownEnumCodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "timelapse_unknown_enum_code",
			Help: "Presence marker (1) for each distinct unknown enum code observed this run.",
		}, []string{"code"}),
		unknownEnumsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timelapse_unknown_enum_total",
			Help: "Unknown enum codes observed (ribbon, consumable, death cause, etc), including repeats.",
		}),
		missingEntity: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timelapse_missing_entity_total",
			Help: "Payloads referencing an EntityId with no prior EntityCreate.",
		}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timelapse_frame_render_duration_seconds",
			Help:    "Wall time to produce one frame's DrawCommand list.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		}),
		encodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timelapse_frame_encode_duration_seconds",
			Help:    "Wall time to rasterize and encode one frame.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		framesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timelapse_frames_emitted_total",
			Help: "Frames rendered and rasterized (in full-video mode, each is handed to the encoder).",
		}),
	}

	reg.MustRegister(r.decodeErrors, r.unknownEnumCodes, r.unknownEnumsTotal,
		r.missingEntity, r.renderDuration, r.encodeDuration, r.framesEmitted)
	return r
}

// SyncDiag copies a run's accumulated internal/diag.Log counts and
// first-occurrence entries into the corresponding Prometheus instruments.
// Called once, by cmd/timelapse after Pipeline.Finish(), rather than per-Record call: diag.Log
// already dedupes by (Kind, code) for the stderr summary, so this just
// mirrors its final tally instead of double-bookkeeping on every packet.
func (r *Recorder) SyncDiag(log *diag.Log) {
	if log == nil {
		return
	}
	r.decodeErrors.Add(float64(log.Count(diag.DecodePayload)))
	r.unknownEnumsTotal.Add(float64(log.Count(diag.UnknownEnum)))
	r.missingEntity.Add(float64(log.Count(diag.MissingEntity)))
	for _, e := range log.Entries() {
		if e.Kind == diag.UnknownEnum {
			r.unknownEnumCodes.WithLabelValues(fmt.Sprintf("%d", e.Code)).Set(1)
		}
	}
}

// RecordRender observes one frame's render duration.
func (r *Recorder) RecordRender(d time.Duration) {
	r.renderDuration.Observe(d.Seconds())
	r.framesEmitted.Inc()
}

// RecordEncode observes one frame's rasterize+encode duration.
func (r *Recorder) RecordEncode(d time.Duration) {
	r.encodeDuration.Observe(d.Seconds())
}

// WriteSnapshot gathers every registered metric family and writes a
// single point-in-time text-exposition snapshot to path, matching the
// "no HTTP server" constraint: this is the only place the process
// touches the prometheus wire format.
func (r *Recorder) WriteSnapshot(path string) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("metrics: gather: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	defer f.Close()

	enc := expfmt.NewEncoder(f, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
