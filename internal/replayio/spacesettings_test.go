package replayio

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSpaceSettings(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "space.settings")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestSpaceSizeAppliesChunkCountFormula(t *testing.T) {
	path := writeSpaceSettings(t, `<space.settings>
  <bounds>
    <minX>-11</minX>
    <maxX>10</maxX>
    <minY>-11</minY>
    <maxY>10</maxY>
  </bounds>
  <chunkSize>50</chunkSize>
</space.settings>`)

	// chunksX = 10-(-11)+1 = 22, chunksY = 22; max(22, 22-4) * 50 = 22*50 = 1100
	got, err := SpaceSize(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1100 {
		t.Fatalf("expected 1100, got %v", got)
	}
}

func TestSpaceSizeRejectsZeroChunkSize(t *testing.T) {
	path := writeSpaceSettings(t, `<space.settings>
  <bounds><minX>0</minX><maxX>9</maxX><minY>0</minY><maxY>9</maxY></bounds>
  <chunkSize>0</chunkSize>
</space.settings>`)

	if _, err := SpaceSize(path); err == nil {
		t.Fatalf("expected an error for a non-positive chunkSize")
	}
}

func TestSpaceSizeMissingFile(t *testing.T) {
	if _, err := SpaceSize(filepath.Join(t.TempDir(), "missing.settings")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
