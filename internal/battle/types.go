// Package battle maintains the authoritative world state of a match,
// updated monotonically as decoded packets arrive in non-decreasing
// clock order. It is packet-driven, not tick-driven: there is no
// goroutine and no ticker here, only Process(clock, payload) calls made
// by the pipeline driver in the order packets appear in the replay.
package battle

import (
	"wows-timelapse/internal/decode"
)

// Pose is a full 3D position plus orientation, the shape shared by
// Position and world-absolute PlayerOrientation payloads.
type Pose struct {
	Pos   decode.WorldPos
	Yaw   float32
	Pitch float32
	Roll  float32
}

// MinimapSample is the most recent MinimapUpdate observation for one
// entity. Heading is preserved from the prior sample when the packet
// marked the entity disappearing, since that packet's heading bits are
// unreliable in that case.
type MinimapSample struct {
	Pos            decode.NormalizedPos
	HeadingDeg     float32
	Visible        bool
	LastUpdated    decode.GameClock
}

// YawSample is one point of an entity's non-disappearing yaw timeline,
// used by the renderer for shortest-arc interpolation between samples.
type YawSample struct {
	Clock decode.GameClock
	Yaw   float32
}

// EntityKind distinguishes which optional field of Entity is populated.
type EntityKind int

const (
	KindVehicle EntityKind = iota
	KindBuilding
	KindSmokeScreen
	KindInteractiveZone
)

// VehicleProps is a ship's mutable state, updated piecewise by
// EntityProperty and PropertyUpdate payloads.
type VehicleProps struct {
	Health         float64
	MaxHealth      float64
	TeamID         int
	IsAlive        bool
	IsBot          bool
	SelectedWeapon string
	CaptainID      decode.AccountId
	TargetYaw      float32
	Extra          map[string]decode.PropertyValue
}

// BuildingProps is a static structure's mutable state.
type BuildingProps struct {
	Position   decode.WorldPos
	Alive      bool
	Hidden     bool
	Suppressed bool
	TeamID     int
	ParamsID   decode.GameParamId
}

// SmokeProps is a smoke screen's puff cloud, mutated by range operations.
type SmokeProps struct {
	Radius float32
	Puffs  []decode.WorldPos
}

// CapturePoint is one entry of the dense capture_points vector.
type CapturePoint struct {
	Index             int
	Position          decode.WorldPos
	Radius            float32
	ControlPointType  int
	OwnerTeam         int
	InvaderTeam       int
	ProgressFraction  float32
	ProgressRemaining float32
	HasInvaders       bool
	BothInside        bool
}

// Entity is a tagged union over the four entity kinds. Only the field
// matching Kind is populated, mirroring the closed-variant shape used by
// internal/decode's Payload types but with mutable pointer fields since
// this package's whole job is in-place mutation.
type Entity struct {
	ID   decode.EntityId
	Kind EntityKind

	Vehicle    *VehicleProps
	Building   *BuildingProps
	Smoke      *SmokeProps
	ZoneIndex  int // valid when Kind == KindInteractiveZone
}

// ConnKind is whether a connection-change event is a join or a drop.
type ConnKind int

const (
	ConnConnected ConnKind = iota
	ConnDisconnected
)

// ConnectionChangeInfo is one entry of a player's connection history.
type ConnectionChangeInfo struct {
	At            decode.GameClock
	Kind          ConnKind
	HadDeathEvent bool
}

// Player binds a persistent AccountId to a per-replay EntityId.
type Player struct {
	AccountID     decode.AccountId
	EntityID      decode.EntityId
	Relation      decode.Relation
	ShipParamsID  decode.GameParamId
	LocalizedName string
	InitialState  decode.PlayerState
	CurrentState  decode.PlayerState
	Connections   []ConnectionChangeInfo
}

// ActiveShot is an in-flight artillery salvo.
type ActiveShot struct {
	EntityID decode.EntityId
	Salvo    decode.Salvo
	FiredAt  decode.GameClock
}

// ActiveTorpedo is an in-flight torpedo.
type ActiveTorpedo struct {
	EntityID   decode.EntityId
	Torpedo    decode.TorpedoLaunch
	LaunchedAt decode.GameClock
}

// torpedoSafetyTimeout is a fallback lifetime for torpedoes that never
// receive a matching hit event and never leave the map; not
// authoritative, just a bound on how long a ghost torpedo can linger.
const torpedoSafetyTimeout = 180.0

// ActivePlane is a live squadron.
type ActivePlane struct {
	PlaneID     decode.PlaneId
	OwnerID     decode.EntityId
	TeamID      int
	ParamsID    decode.GameParamId
	Pos         decode.NormalizedPos
	LastUpdated decode.GameClock
}

// KillRecord is one confirmed kill.
type KillRecord struct {
	Clock  decode.GameClock
	Killer decode.EntityId
	Victim decode.EntityId
	Cause  decode.DeathCause
}

// DeadShip marks that an entity's ship rendering must stop at Clock;
// Position is its last known world (or minimap-derived) position for
// the DeadShip draw command.
type DeadShip struct {
	Clock    decode.GameClock
	Position decode.WorldPos
}

// ActiveConsumable is a logged consumable activation.
type ActiveConsumable struct {
	Consumable  decode.Unknown
	ActivatedAt decode.GameClock
	Duration    float32
}

// GameMessage is one chat line, resolved against metadata players.
type GameMessage struct {
	Clock    decode.GameClock
	SenderID decode.AccountId
	Audience decode.ChatAudience
	Message  string
}

// BattleReport is the serializable end-of-run summary produced by
// BuildReport.
type BattleReport struct {
	Players       []PlayerReport
	Kills         []KillRecord
	CapturePoints []CapturePoint
	TeamScores    map[int]float64
	WinningTeam   *int
	Buildings     []BuildingProps
}

// PlayerReport is one player's damage/frags rollup for the final report.
type PlayerReport struct {
	AccountID     decode.AccountId
	Name          string
	TeamID        int
	DamageDealt   float64
	Frags         int
	Survived      bool
}
