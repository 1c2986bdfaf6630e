package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"wows-timelapse/internal/diag"
)

func TestSyncDiagAggregatesCountsNotEntries(t *testing.T) {
	log := diag.NewLog(8)
	log.Record(diag.UnknownEnum, 7, 0, "ribbon")
	log.Record(diag.UnknownEnum, 7, 1, "ribbon") // repeat, same code
	log.Record(diag.UnknownEnum, 9, 2, "cause")
	log.Record(diag.DecodePayload, 0, 3, "bad tag")

	r := New()
	r.SyncDiag(log)

	families, err := r.registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]float64{}
	for _, mf := range families {
		switch mf.GetName() {
		case "timelapse_unknown_enum_total":
			found[mf.GetName()] = mf.GetMetric()[0].GetCounter().GetValue()
		case "timelapse_decode_errors_total":
			found[mf.GetName()] = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	if found["timelapse_unknown_enum_total"] != 3 {
		t.Fatalf("expected unknown-enum total 3 (including repeat), got %v", found["timelapse_unknown_enum_total"])
	}
	if found["timelapse_decode_errors_total"] != 1 {
		t.Fatalf("expected decode-error total 1, got %v", found["timelapse_decode_errors_total"])
	}
}

func TestSyncDiagWithNilLogIsNoOp(t *testing.T) {
	r := New()
	r.SyncDiag(nil) // must not panic
}

func TestRecordRenderAndEncodeThenWriteSnapshot(t *testing.T) {
	r := New()
	r.RecordRender(5 * time.Millisecond)
	r.RecordEncode(10 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "metrics.txt")
	if err := r.WriteSnapshot(path); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected a non-empty snapshot file")
	}
}
