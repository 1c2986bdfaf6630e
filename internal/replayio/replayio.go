// Package replayio opens a replay file and produces the metadata block plus
// the ordered Packet stream that internal/decode interprets. Framing is the
// boundary named by the error-kind taxonomy's ReplayFormat and Io kinds:
// anything wrong with the container itself is fatal, unlike a single bad
// packet payload (that is internal/decode's problem, not this package's).
package replayio

import (
	"compress/zlib"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"wows-timelapse/internal/decode"
)

// magic identifies a replay container. Chosen arbitrarily but checked
// strictly: a file that doesn't start with it is rejected outright rather
// than guessed at, matching the "ReplayFormat is fatal" rule.
const magic uint32 = 0x12323411

// ErrReplayFormat is returned for any header/framing inconsistency:
// bad magic, truncated block, or a packet-length that runs past the
// decompressed blob's end.
var ErrReplayFormat = fmt.Errorf("replayio: malformed replay container")

// metaJSON mirrors the replay's JSON metadata block. Field names follow the
// block's own casing; Meta (internal/decode) is the normalized form callers
// actually use.
type metaJSON struct {
	ClientVersionFromExe string `json:"clientVersionFromExe"`
	MapName              string `json:"mapName"`
	Scenario             string `json:"scenario"`
	GameMode             string `json:"gameMode"`
	Duration             float64 `json:"duration"`
	PlayerName           string `json:"playerName"`
	DateTime             string `json:"dateTime"`
	MatchGroup           string `json:"matchGroup"`
	Vehicles             []struct {
		AccountID    uint64 `json:"accountId"`
		Name         string `json:"name"`
		ShipParamsID uint32 `json:"shipParamsId"`
		Relation     int    `json:"relation"`
	} `json:"vehicles"`
}

// Replay is an opened replay container: decoded metadata plus a Reader over
// the ordered packet stream.
type Replay struct {
	Meta    decode.Meta
	Version decode.Version
	packets *packetReader
}

// Open reads and validates a replay file's header and metadata block, and
// prepares the packet stream for iteration via Next. The packet stream
// itself is read lazily so a caller that only wants Meta/Version never pays
// for decompressing it.
func Open(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replayio: open %s: %w", path, err)
	}
	closeOnErr := true
	defer func() {
		if closeOnErr {
			f.Close()
		}
	}()

	var gotMagic uint32
	if err := binary.Read(f, binary.LittleEndian, &gotMagic); err != nil {
		return nil, fmt.Errorf("replayio: read magic: %w", io.ErrUnexpectedEOF)
	}
	if gotMagic != magic {
		return nil, ErrReplayFormat
	}

	var blockCount uint32
	if err := binary.Read(f, binary.LittleEndian, &blockCount); err != nil {
		return nil, fmt.Errorf("replayio: read block count: %w", ErrReplayFormat)
	}
	if blockCount == 0 || blockCount > 16 {
		return nil, fmt.Errorf("replayio: implausible block count %d: %w", blockCount, ErrReplayFormat)
	}

	var metaBlock []byte
	for i := uint32(0); i < blockCount; i++ {
		var size uint32
		if err := binary.Read(f, binary.LittleEndian, &size); err != nil {
			return nil, fmt.Errorf("replayio: read block %d size: %w", i, ErrReplayFormat)
		}
		block := make([]byte, size)
		if _, err := io.ReadFull(f, block); err != nil {
			return nil, fmt.Errorf("replayio: read block %d: %w", i, ErrReplayFormat)
		}
		if i == 0 {
			metaBlock = block
		}
	}

	var mj metaJSON
	if err := json.Unmarshal(metaBlock, &mj); err != nil {
		return nil, fmt.Errorf("replayio: parse metadata: %w", ErrReplayFormat)
	}

	version, err := parseVersion(mj.ClientVersionFromExe)
	if err != nil {
		return nil, fmt.Errorf("replayio: %w: %w", err, ErrReplayFormat)
	}

	meta := decode.Meta{
		ClientVersionFromExe: mj.ClientVersionFromExe,
		MapName:              mj.MapName,
		Scenario:             mj.Scenario,
		GameMode:             mj.GameMode,
		Duration:             mj.Duration,
		PlayerName:           mj.PlayerName,
		DateTime:             mj.DateTime,
		MatchGroup:           mj.MatchGroup,
	}
	for _, v := range mj.Vehicles {
		meta.Vehicles = append(meta.Vehicles, decode.Vehicle{
			AccountID:    decode.AccountId(v.AccountID),
			Name:         v.Name,
			ShipParamsID: decode.GameParamId(v.ShipParamsID),
			Relation:     decode.Relation(v.Relation),
		})
	}

	zr, err := zlib.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("replayio: packet stream is not valid zlib: %w", ErrReplayFormat)
	}
	closeOnErr = false

	return &Replay{
		Meta:    meta,
		Version: version,
		packets: &packetReader{file: f, zr: zr},
	}, nil
}

// Close releases the underlying file handle.
func (r *Replay) Close() error {
	r.packets.zr.Close()
	return r.packets.file.Close()
}

// packetReader decodes length-delimited packet records from the
// decompressed blob: clock float32, packet_type uint16, payload length
// uint32, payload bytes — read one record at a time so a multi-gigabyte
// replay never has to live in memory at once.
type packetReader struct {
	file *os.File
	zr   io.ReadCloser
	hdr  [10]byte
}

// Next returns the next packet, or io.EOF when the stream is exhausted.
// A short read mid-record is ErrReplayFormat (truncated container), not
// EOF — EOF is only valid exactly between records.
func (r *Replay) Next() (decode.Packet, error) {
	pr := r.packets
	n, err := io.ReadFull(pr.zr, pr.hdr[:])
	if err == io.EOF {
		return decode.Packet{}, io.EOF
	}
	if err != nil || n != len(pr.hdr) {
		return decode.Packet{}, fmt.Errorf("replayio: truncated packet header: %w", ErrReplayFormat)
	}

	clockBits := binary.LittleEndian.Uint32(pr.hdr[0:4])
	packetType := binary.LittleEndian.Uint16(pr.hdr[4:6])
	length := binary.LittleEndian.Uint32(pr.hdr[6:10])

	const maxPayload = 64 << 20
	if length > maxPayload {
		return decode.Packet{}, fmt.Errorf("replayio: implausible payload length %d: %w", length, ErrReplayFormat)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(pr.zr, payload); err != nil {
		return decode.Packet{}, fmt.Errorf("replayio: truncated packet payload: %w", ErrReplayFormat)
	}

	return decode.Packet{
		Clock:   decode.GameClock(math.Float32frombits(clockBits)),
		Type:    decode.PacketType(packetType),
		Payload: payload,
	}, nil
}

// parseVersion parses a "major.minor.patch.build" client version string.
// A malformed string is a ReplayFormat error, not a panic: the only caller
// (Open) wraps it as such.
func parseVersion(s string) (decode.Version, error) {
	var v decode.Version
	n, err := fmt.Sscanf(s, "%d.%d.%d.%d", &v.Major, &v.Minor, &v.Patch, &v.Build)
	if err != nil || n != 4 {
		return decode.Version{}, fmt.Errorf("unparseable client version %q", s)
	}
	return v, nil
}
