package decode

// Payload is implemented by every decoded packet variant. The marker
// method keeps the set closed to this package's types (a Go approximation
// of a sum type), matching spec's closed DecodedPayload vocabulary.
type Payload interface {
	payload()
}

type payloadBase struct{}

func (payloadBase) payload() {}

// Chat is a player chat message.
type Chat struct {
	payloadBase
	SenderID AccountId
	Audience ChatAudience
	Message  string
}

// VoiceLine is a canned voice-line callout.
type VoiceLine struct {
	payloadBase
	EntityID EntityId
	Code     Unknown
}

// Ribbon is an achievement ribbon (first blood, double strike, ...).
type Ribbon struct {
	payloadBase
	EntityID EntityId
	Code     Unknown
}

// Position is a full 3D pose update: world position plus yaw/pitch/roll.
type Position struct {
	payloadBase
	EntityID EntityId
	Pos      WorldPos
	Yaw      float32
	Pitch    float32
	Roll     float32
}

// PlayerOrientation has the same shape as Position; ParentID == 0 means the
// pose is world-absolute rather than relative to a parent entity.
type PlayerOrientation struct {
	payloadBase
	EntityID EntityId
	ParentID EntityId
	Pos      WorldPos
	Yaw      float32
	Pitch    float32
	Roll     float32
}

// DamageStat reports cumulative damage dealt by an entity.
type DamageStat struct {
	payloadBase
	EntityID EntityId
	Damage   float32
}

// DamageReceived reports damage inflicted on a victim by one or more aggressors.
type DamageReceived struct {
	payloadBase
	Victim     EntityId
	Aggressors []EntityId
}

// ShipDestroyed records a kill.
type ShipDestroyed struct {
	payloadBase
	Killer EntityId
	Victim EntityId
	Cause  DeathCause
}

// EntityMethod is a generic RPC-style entity method call; the controller
// applies no state change for it.
type EntityMethod struct {
	payloadBase
	EntityID EntityId
	Method   string
	Args     []byte
}

// PropertyValue is a decoded scalar/compound value for EntityProperty and
// PropertyUpdate leaves.
type PropertyValue struct {
	Kind  PropertyKind
	Int   int64
	Float float64
	Str   string
	Bytes []byte
}

type PropertyKind int

const (
	PropInt PropertyKind = iota
	PropFloat
	PropString
	PropBytes
)

// EntityProperty is a full-value replace on a named field.
type EntityProperty struct {
	payloadBase
	EntityID EntityId
	Property string
	Value    PropertyValue
}

// PathElem is one step of a PropertyUpdate's traversal path.
type PathElem struct {
	IsIndex bool
	Key     string
	Index   int
}

// UpdateAction is the leaf mutation of a PropertyUpdate.
type UpdateAction struct {
	Kind        UpdateActionKind
	Key         string
	Value       PropertyValue
	RangeStart  int
	RangeValues []PropertyValue
	RangeStop   int
}

type UpdateActionKind int

const (
	ActionSetKey UpdateActionKind = iota
	ActionSetRange
	ActionRemoveRange
)

// PropertyUpdate is a nested mutation: traverse Path, then apply Action to
// the resulting sub-structure.
type PropertyUpdate struct {
	payloadBase
	EntityID EntityId
	Path     []PathElem
	Action   UpdateAction
}

// PlayerState is one player's arena-state snapshot, decoded from a pickled
// list-of-tuples via the version-specific key table.
type PlayerState struct {
	AvatarID   AccountId
	Name       string
	ShipID     GameParamId
	Fields     map[string]PropertyValue
	Connected  bool
}

// OnArenaStateReceived carries initial per-player/bot state at arena load.
type OnArenaStateReceived struct {
	payloadBase
	ArenaID       int64
	TeamBuildType int
	PreBattles    int
	PlayerStates  []PlayerState
}

// OnGameRoomStateChanged carries partial per-player updates mid-match.
type OnGameRoomStateChanged struct {
	payloadBase
	PlayerStates []PlayerState
}

// MinimapEntityUpdate is one decoded entry of a MinimapUpdate packet.
type MinimapEntityUpdate struct {
	EntityID       EntityId
	Pos            NormalizedPos
	HeadingDeg     float32
	IsDisappearing bool
}

// MinimapUpdate is a compact per-tick broadcast of visible ships' normalized
// positions and headings.
type MinimapUpdate struct {
	payloadBase
	Updates []MinimapEntityUpdate
}

// BattleEndState (if present) is an opaque result code from BattleLogic.
type BattleEndState struct {
	Code int
}

// BattleEnd marks match completion.
type BattleEnd struct {
	payloadBase
	WinningTeam *int
	State       *BattleEndState
}

// ConsumableActivated records a consumable activation on an entity.
type ConsumableActivated struct {
	payloadBase
	EntityID   EntityId
	Consumable Unknown
	Duration   float32
}

// Shot is one shell within a salvo.
type Shot struct {
	Origin WorldPos
	Target WorldPos
	Speed  float32
	ShotID int64
}

// Salvo groups shots fired together.
type Salvo struct {
	Owner   EntityId
	Params  GameParamId
	SalvoID int64
	Shots   []Shot
}

// ArtilleryShots carries one or more salvos fired from EntityID.
type ArtilleryShots struct {
	payloadBase
	EntityID EntityId
	Salvos   []Salvo
}

// TorpedoLaunch is one launched torpedo.
type TorpedoLaunch struct {
	Owner     EntityId
	Params    GameParamId
	SalvoID   int64
	ShotID    int64
	Origin    WorldPos
	Direction WorldPos // unit vector
	Speed     float32  // magnitude, m/s
}

// TorpedoesReceived carries one or more torpedo launches from EntityID.
type TorpedoesReceived struct {
	payloadBase
	EntityID   EntityId
	Torpedoes []TorpedoLaunch
}

// ShotHit identifies a hit by the composite key (Owner, ShotID).
type ShotHit struct {
	Owner  EntityId
	ShotID int64
}

// ShotKills carries hit records that retire matching torpedoes.
type ShotKills struct {
	payloadBase
	EntityID EntityId
	Hits     []ShotHit
}

// GunSync reports a turret's current yaw/pitch within a named group.
type GunSync struct {
	payloadBase
	EntityID EntityId
	Group    int
	Turret   int
	Yaw      float32
	Pitch    float32
}

// PlaneAdded introduces a new squadron entity.
type PlaneAdded struct {
	payloadBase
	PlaneID  PlaneId
	OwnerID  EntityId
	TeamID   int
	ParamsID GameParamId
}

// PlaneRemoved retires a squadron entity.
type PlaneRemoved struct {
	payloadBase
	PlaneID PlaneId
}

// PlanePosition overwrites a squadron's normalized position.
type PlanePosition struct {
	payloadBase
	PlaneID PlaneId
	Pos     NormalizedPos
}

// BattleResults is the final-report JSON blob.
type BattleResults struct {
	payloadBase
	JSON []byte
}

// EntityKind distinguishes the kind of entity an EntityCreate introduces.
type EntityKind int

const (
	EntityVehicle EntityKind = iota
	EntityBuilding
	EntitySmokeScreen
	EntityInteractiveZone
)

// EntityCreate introduces a new entity with its initial properties.
type EntityCreate struct {
	payloadBase
	EntityID EntityId
	Kind     EntityKind
	Props    map[string]PropertyValue
}

// EntityEnter marks an entity entering the client's area of interest.
type EntityEnter struct {
	payloadBase
	EntityID EntityId
}

// EntityLeave removes an entity (used for smoke screens).
type EntityLeave struct {
	payloadBase
	EntityID EntityId
}

// BasePlayerCreate / CellPlayerCreate mirror the server-side player-creation
// RPCs; only the entity id and raw payload matter to the controller.
type BasePlayerCreate struct {
	payloadBase
	EntityID EntityId
	Raw      []byte
}

type CellPlayerCreate struct {
	payloadBase
	EntityID EntityId
	Raw      []byte
}

// CruiseState reports a cruise-control mode change.
type CruiseState struct {
	payloadBase
	EntityID EntityId
	Mode     Unknown
}

// CameraMode reports a camera mode change (spectator/free/etc).
type CameraMode struct {
	payloadBase
	Mode Unknown
}

// VersionInfo carries the decoded replay version, as its own payload for
// streams that emit it mid-stream.
type VersionInfo struct {
	payloadBase
	Version Version
}

// Invalid is produced when a packet's bytes do not parse under its declared
// type. The controller ignores it and a diagnostics counter increments.
type Invalid struct {
	payloadBase
	PacketType uint16
	Reason     string
}
