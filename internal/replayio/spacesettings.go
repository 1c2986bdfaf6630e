package replayio

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"
)

// spaceSettingsXML mirrors the subset of a packed game-data space.settings
// file this core actually consumes: the map bounds and chunk size needed
// to derive SpaceSize for internal/render.Transform. Everything else in
// the file (terrain, weather, spawn points) belongs to the packed
// game-data archive reader named out of scope by spec §1.
type spaceSettingsXML struct {
	XMLName xml.Name `xml:"space.settings"`
	Bounds  struct {
		MinX int `xml:"minX"`
		MaxX int `xml:"maxX"`
		MinY int `xml:"minY"`
		MaxY int `xml:"maxY"`
	} `xml:"bounds"`
	ChunkSize float64 `xml:"chunkSize"`
}

// SpaceSize parses a space.settings file and returns the game-unit edge
// length internal/render.Transform scales against. The chunk-count
// formula is `max(chunks_x, chunks_y - 4) * chunk_size`: the "-4" corrects
// for unused edge chunks and is an observed-behavior fix, not documented
// protocol (spec §9 Open Questions) — preserved as written.
func SpaceSize(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("replayio: open space.settings: %w", err)
	}
	defer f.Close()

	var s spaceSettingsXML
	if err := xml.NewDecoder(f).Decode(&s); err != nil {
		return 0, fmt.Errorf("replayio: parse space.settings: %w", err)
	}
	if s.ChunkSize <= 0 {
		return 0, fmt.Errorf("replayio: space.settings: non-positive chunkSize %v", s.ChunkSize)
	}

	chunksX := float64(s.Bounds.MaxX-s.Bounds.MinX) + 1
	chunksY := float64(s.Bounds.MaxY-s.Bounds.MinY) + 1

	return math.Max(chunksX, chunksY-4) * s.ChunkSize, nil
}
