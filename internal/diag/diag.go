// Package diag records non-fatal decode/controller anomalies without
// corrupting the run. The core is single-threaded (packets are processed
// one at a time, in order), so unlike a concurrent event log
// this is a plain map with no atomics or circular buffer — only a single
// goroutine ever touches a Log.
package diag

import (
	"fmt"
	"os"
)

// Kind identifies a non-fatal anomaly category. These mirror the
// error-kind taxonomy; only the non-fatal kinds are represented here —
// fatal kinds (ReplayFormat, UnsupportedVersion, EncoderInit, EncodeFailed,
// MuxFailed, Io) bubble up as plain Go errors instead.
type Kind int

const (
	DecodePayload Kind = iota
	UnknownEnum
	MissingEntity
)

func (k Kind) String() string {
	switch k {
	case DecodePayload:
		return "decode-payload"
	case UnknownEnum:
		return "unknown-enum"
	case MissingEntity:
		return "missing-entity"
	default:
		return "unknown-kind"
	}
}

// Entry is one recorded anomaly, kept for the final summary.
type Entry struct {
	Kind    Kind
	Code    uint32 // raw enum code or zero
	Clock   float32
	Context string
}

// Log collects anomalies during a single pipeline run and de-duplicates
// repeated (Kind, Code) pairs so a packet stream with one bad enum code
// repeated thousands of times only produces one logged line, per the
// "logged once per code" rule.
type Log struct {
	seen    map[Kind]map[uint32]bool
	counts  map[Kind]int
	first   []Entry
	maxKept int
}

// NewLog creates an empty diagnostics log. maxKept bounds how many first
// occurrences are retained for the final report (0 = unbounded).
func NewLog(maxKept int) *Log {
	return &Log{
		seen:    make(map[Kind]map[uint32]bool),
		counts:  make(map[Kind]int),
		maxKept: maxKept,
	}
}

// Record logs one occurrence of kind at code/clock with free-form context.
// Returns true the first time (Kind, code) is seen, false on repeats.
func (l *Log) Record(kind Kind, code uint32, clock float32, context string) bool {
	l.counts[kind]++
	byCode, ok := l.seen[kind]
	if !ok {
		byCode = make(map[uint32]bool)
		l.seen[kind] = byCode
	}
	if byCode[code] {
		return false
	}
	byCode[code] = true
	if l.maxKept == 0 || len(l.first) < l.maxKept {
		l.first = append(l.first, Entry{Kind: kind, Code: code, Clock: clock, Context: context})
	}
	return true
}

// Count returns the total number of Record calls for kind, including repeats.
func (l *Log) Count(kind Kind) int {
	return l.counts[kind]
}

// Entries returns the first-occurrence entries recorded so far.
func (l *Log) Entries() []Entry {
	return l.first
}

// WriteSummary writes a one-line-per-kind human summary to w (typically
// os.Stderr), matching the "no stack traces" rule for operator-facing output.
func (l *Log) WriteSummary(w *os.File) {
	for kind, n := range l.counts {
		fmt.Fprintf(w, "diag: %s x%d\n", kind, n)
	}
}
