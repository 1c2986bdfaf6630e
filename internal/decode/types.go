// Package decode turns framed replay packets into typed payloads.
//
// Responsibility: given a Packet{Clock, Type, Payload} and a replay
// Version, produce a DecodedPayload. The decoder never panics: malformed
// payloads become Invalid, unrecognized enum codes become Unknown(n).
package decode

import "fmt"

// EntityId, AccountId, GameParamId and PlaneId are distinct opaque integer
// types, never interchangeable at the type level.
type EntityId uint32
type AccountId uint64
type GameParamId uint32
type PlaneId uint32

// WorldPos is the 2D projection of a world-space position; elevation (y in
// game terms) is unused by the renderer.
type WorldPos struct {
	X, Z float32
}

// NormalizedPos is a minimap-packet coordinate, roughly in [-0.5, 1.5].
type NormalizedPos struct {
	X, Y float32
}

// GameClock is seconds since recording start. All arithmetic is on this
// scalar; avoid subtracting two very late clocks in a way that discards
// sub-second resolution (spec design note) — prefer interpolation
// fractions in [0,1] at the call site instead.
type GameClock float32

// Version is the replay's client version, used to select the
// PlayerStateData key-index table.
type Version struct {
	Major, Minor, Patch, Build int
}

// Before reports whether v is strictly older than other, compared
// major.minor.patch.build.
func (v Version) Before(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	if v.Patch != other.Patch {
		return v.Patch < other.Patch
	}
	return v.Build < other.Build
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
}

// Relation describes a vehicle's relation to the replay's recording player.
type Relation int

const (
	RelationSelf Relation = iota
	RelationAlly
	RelationEnemy
	RelationBot
)

// Vehicle is one entry from the replay metadata header's vehicles list.
type Vehicle struct {
	AccountID     AccountId
	Name          string
	ShipParamsID  GameParamId
	Relation      Relation
}

// Meta is the replay metadata block preceding the packet stream.
type Meta struct {
	ClientVersionFromExe string
	MapName              string
	Scenario             string
	GameMode             string
	Duration             float64
	Vehicles             []Vehicle
	PlayerName           string
	DateTime             string
	MatchGroup           string
}

// Unknown wraps an unrecognized enum code (ribbon, death cause, consumable,
// camera mode, cruise-state kind, voice line, ...). Kept rather than
// rejected, per the "never panics on Unknown" rule.
type Unknown uint32

// DeathCause enumerates why a ship died. Values beyond the known set decode
// as DeathCauseUnknown via RawDeathCause; the raw wire code is not kept.
type DeathCause int

const (
	DeathCauseArtillery DeathCause = iota
	DeathCauseTorpedo
	DeathCauseBomb
	DeathCauseFire
	DeathCauseFlooding
	DeathCauseRamming
	DeathCauseDepthCharge
	DeathCauseRocket
	DeathCauseUnknown
)

// RawDeathCause resolves a wire code to a DeathCause, falling back to
// DeathCauseUnknown for anything not in the known table.
func RawDeathCause(code uint32) DeathCause {
	if int(code) < int(DeathCauseUnknown) {
		return DeathCause(code)
	}
	return DeathCauseUnknown
}

// ChatAudience is the resolved scope of a chat message.
type ChatAudience int

const (
	AudienceGlobal ChatAudience = iota
	AudienceTeam
	AudienceDivision
)
