package battle

import (
	"math"

	"wows-timelapse/internal/advantage"
	"wows-timelapse/internal/decode"
	"wows-timelapse/internal/diag"
)

// Controller is the authoritative, single-threaded world-state machine.
// Every exported mutator is called exactly once per packet, in clock
// order, by the pipeline driver — there is no internal concurrency to
// guard against.
type Controller struct {
	meta          decode.Meta
	version       decode.Version
	scoringParams advantage.ScoringParams
	diag          *diag.Log

	clock decode.GameClock

	shipPositions    map[decode.EntityId]Pose
	minimapPositions map[decode.EntityId]MinimapSample
	yawTimelines     map[decode.EntityId][]YawSample

	playerEntities  map[decode.AccountId]decode.EntityId
	metadataPlayers map[decode.EntityId]*Player
	entitiesByID    map[decode.EntityId]*Entity

	capturePoints []CapturePoint
	teamScores    map[int]float64

	gameChat []GameMessage

	activeConsumables map[decode.EntityId][]ActiveConsumable
	activeShots       []ActiveShot
	activeTorpedoes   []ActiveTorpedo
	activePlanes      map[decode.PlaneId]ActivePlane

	kills     []KillRecord
	deadShips map[decode.EntityId]DeadShip

	matchFinished  bool
	battleEndClock *decode.GameClock
	winningTeam    *int
	battleResults  []byte

	turretYaws map[decode.EntityId][]float32
	targetYaws map[decode.EntityId]float32

	zoneByEntity map[decode.EntityId]int
}

// New builds a controller with a fixed read-only Version for the life of
// the run. metadata_players starts empty (see Reset); New does not
// pre-populate it from meta.Vehicles. scoringParams is stored as given
// and returned by ScoringParams.
func New(meta decode.Meta, version decode.Version, scoringParams advantage.ScoringParams, log *diag.Log) *Controller {
	c := &Controller{meta: meta, version: version, scoringParams: scoringParams, diag: log}
	c.Reset()
	return c
}

// Reset clears all mutable state while preserving configuration
// (meta, version, scoringParams), for seek/replay scenarios.
func (c *Controller) Reset() {
	c.clock = 0
	c.shipPositions = make(map[decode.EntityId]Pose)
	c.minimapPositions = make(map[decode.EntityId]MinimapSample)
	c.yawTimelines = make(map[decode.EntityId][]YawSample)
	c.playerEntities = make(map[decode.AccountId]decode.EntityId)
	c.entitiesByID = make(map[decode.EntityId]*Entity)
	c.capturePoints = nil
	c.teamScores = make(map[int]float64)
	c.gameChat = nil
	c.activeConsumables = make(map[decode.EntityId][]ActiveConsumable)
	c.activeShots = nil
	c.activeTorpedoes = nil
	c.activePlanes = make(map[decode.PlaneId]ActivePlane)
	c.kills = nil
	c.deadShips = make(map[decode.EntityId]DeadShip)
	c.matchFinished = false
	c.battleEndClock = nil
	c.winningTeam = nil
	c.turretYaws = make(map[decode.EntityId][]float32)
	c.targetYaws = make(map[decode.EntityId]float32)
	c.zoneByEntity = make(map[decode.EntityId]int)

	// metadataPlayers starts empty; entries are created lazily as
	// OnArenaStateReceived/OnGameRoomStateChanged payloads resolve each
	// meta.Vehicles entry to its in-replay EntityId.
	c.metadataPlayers = make(map[decode.EntityId]*Player)
}

// ScoringParams returns the scoring constants New was given, for the
// advantage evaluator to use for this match.
func (c *Controller) ScoringParams() advantage.ScoringParams { return c.scoringParams }

// Finish is a no-op hook, kept for contract symmetry with New/Reset.
func (c *Controller) Finish() {}

// --- read-only state view -------------------------------------------------

func (c *Controller) Clock() decode.GameClock                             { return c.clock }
func (c *Controller) ShipPositions() map[decode.EntityId]Pose             { return c.shipPositions }
func (c *Controller) MinimapPositions() map[decode.EntityId]MinimapSample { return c.minimapPositions }
func (c *Controller) YawTimeline(e decode.EntityId) []YawSample           { return c.yawTimelines[e] }
func (c *Controller) PlayerEntities() map[decode.AccountId]decode.EntityId {
	return c.playerEntities
}
func (c *Controller) MetadataPlayers() map[decode.EntityId]*Player { return c.metadataPlayers }
func (c *Controller) EntitiesByID() map[decode.EntityId]*Entity   { return c.entitiesByID }
func (c *Controller) CapturePoints() []CapturePoint               { return c.capturePoints }
func (c *Controller) TeamScores() map[int]float64                 { return c.teamScores }
func (c *Controller) GameChat() []GameMessage                     { return c.gameChat }
func (c *Controller) ActiveConsumables() map[decode.EntityId][]ActiveConsumable {
	return c.activeConsumables
}
func (c *Controller) ActiveShots() []ActiveShot           { return c.activeShots }
func (c *Controller) ActiveTorpedoes() []ActiveTorpedo    { return c.activeTorpedoes }
func (c *Controller) ActivePlanes() map[decode.PlaneId]ActivePlane { return c.activePlanes }
func (c *Controller) Kills() []KillRecord                 { return c.kills }
func (c *Controller) DeadShips() map[decode.EntityId]DeadShip { return c.deadShips }
func (c *Controller) BattleEndClock() *decode.GameClock   { return c.battleEndClock }
func (c *Controller) WinningTeam() *int                   { return c.winningTeam }
func (c *Controller) TurretYaws() map[decode.EntityId][]float32 { return c.turretYaws }
func (c *Controller) TargetYaws() map[decode.EntityId]float32  { return c.targetYaws }

// Process advances current_clock and applies the decoded payload. Any
// payload whose entity_id is unknown is silently ignored (the stream may
// reference entities before their EntityCreate record); malformed enum
// codes arrive already wrapped as decode.Unknown and are simply stored.
// No payload can fail the run — framing errors are the replayio layer's
// problem, not this one's.
func (c *Controller) Process(clock decode.GameClock, payload decode.Payload) {
	if clock > c.clock {
		c.clock = clock
	}

	switch p := payload.(type) {
	case decode.Position:
		c.applyPosition(p.EntityID, p.Pos, p.Yaw, p.Pitch, p.Roll)
	case decode.PlayerOrientation:
		if p.ParentID == 0 {
			c.applyPosition(p.EntityID, p.Pos, p.Yaw, p.Pitch, p.Roll)
		}
	case decode.EntityCreate:
		c.applyEntityCreate(p)
	case decode.EntityProperty:
		c.applyEntityProperty(p)
	case decode.PropertyUpdate:
		c.applyPropertyUpdate(p)
	case decode.ShipDestroyed:
		c.applyShipDestroyed(p)
	case decode.MinimapUpdate:
		c.applyMinimapUpdate(p)
	case decode.ArtilleryShots:
		for _, s := range p.Salvos {
			c.activeShots = append(c.activeShots, ActiveShot{EntityID: p.EntityID, Salvo: s, FiredAt: c.clock})
		}
	case decode.TorpedoesReceived:
		for _, t := range p.Torpedoes {
			c.activeTorpedoes = append(c.activeTorpedoes, ActiveTorpedo{EntityID: p.EntityID, Torpedo: t, LaunchedAt: c.clock})
		}
	case decode.ShotKills:
		c.applyShotKills(p)
	case decode.PlaneAdded:
		c.activePlanes[p.PlaneID] = ActivePlane{PlaneID: p.PlaneID, OwnerID: p.OwnerID, TeamID: p.TeamID, ParamsID: p.ParamsID, LastUpdated: c.clock}
	case decode.PlaneRemoved:
		delete(c.activePlanes, p.PlaneID)
	case decode.PlanePosition:
		if plane, ok := c.activePlanes[p.PlaneID]; ok {
			plane.Pos = p.Pos
			plane.LastUpdated = c.clock
			c.activePlanes[p.PlaneID] = plane
		}
	case decode.GunSync:
		if p.Group == 0 {
			c.applyGunSync(p)
		}
	case decode.ConsumableActivated:
		c.activeConsumables[p.EntityID] = append(c.activeConsumables[p.EntityID], ActiveConsumable{
			Consumable: p.Consumable, ActivatedAt: c.clock, Duration: p.Duration,
		})
	case decode.BattleEnd:
		c.matchFinished = true
		cl := c.clock
		c.battleEndClock = &cl
		c.winningTeam = p.WinningTeam
	case decode.BattleResults:
		c.battleResults = p.JSON
	case decode.OnArenaStateReceived:
		c.applyOnArenaStateReceived(p)
	case decode.OnGameRoomStateChanged:
		c.applyOnGameRoomStateChanged(p)
	case decode.Chat:
		c.applyChat(p)
	case decode.Invalid:
		// Ignored: the decoder that produced it already recorded it as
		// DecodePayload.
	case decode.EntityLeave:
		if ent, ok := c.entitiesByID[p.EntityID]; ok && ent.Kind == KindSmokeScreen {
			delete(c.entitiesByID, p.EntityID)
		}
	default:
		// EntityMethod, EntityEnter, BasePlayerCreate/CellPlayerCreate,
		// VoiceLine, Ribbon, CruiseState, CameraMode, DamageStat,
		// DamageReceived, VersionInfo: no controller-visible effect beyond
		// what the renderer reads directly off other state, or genuinely
		// inert for this pipeline's purposes.
	}

	c.expireTorpedoes()
}

func (c *Controller) applyPosition(e decode.EntityId, pos decode.WorldPos, yaw, pitch, roll float32) {
	c.shipPositions[e] = Pose{Pos: pos, Yaw: yaw, Pitch: pitch, Roll: roll}
}

func (c *Controller) applyEntityCreate(p decode.EntityCreate) {
	ent := &Entity{ID: p.EntityID}
	switch p.Kind {
	case decode.EntityVehicle:
		ent.Kind = KindVehicle
		ent.Vehicle = &VehicleProps{IsAlive: true, Extra: make(map[string]decode.PropertyValue)}
		applyVehicleProps(ent.Vehicle, p.Props)
	case decode.EntityBuilding:
		ent.Kind = KindBuilding
		ent.Building = &BuildingProps{Alive: true}
		applyBuildingProps(ent.Building, p.Props)
	case decode.EntitySmokeScreen:
		ent.Kind = KindSmokeScreen
		ent.Smoke = &SmokeProps{}
	case decode.EntityInteractiveZone:
		ent.Kind = KindInteractiveZone
		idx := c.ensureCapturePoint(propInt(p.Props, "index", -1))
		ent.ZoneIndex = idx
		c.zoneByEntity[p.EntityID] = idx
		applyZoneProps(&c.capturePoints[idx], p.Props)
	}
	c.entitiesByID[p.EntityID] = ent
}

// ensureCapturePoint returns the index of an existing capture point, or
// grows capturePoints with zero-valued defaults up to and including idx
// when a larger index is observed first — the dense-indices invariant.
func (c *Controller) ensureCapturePoint(idx int) int {
	if idx < 0 {
		idx = len(c.capturePoints)
	}
	for len(c.capturePoints) <= idx {
		c.capturePoints = append(c.capturePoints, CapturePoint{Index: len(c.capturePoints)})
	}
	return idx
}

func (c *Controller) applyEntityProperty(p decode.EntityProperty) {
	ent, ok := c.entitiesByID[p.EntityID]
	if !ok {
		if c.diag != nil {
			c.diag.Record(diag.MissingEntity, uint32(p.EntityID), float32(c.clock), "EntityProperty")
		}
		return
	}

	if p.Property == "targetLocalPos" && ent.Kind == KindVehicle {
		// Low byte only: high byte is decoded but discarded, matching the
		// replay format's own quirk rather than a bug in this reader.
		lowByte := uint8(p.Value.Int & 0xFF)
		ent.Vehicle.TargetYaw = (float32(lowByte)/256.0)*2*math.Pi - math.Pi
		c.targetYaws[p.EntityID] = ent.Vehicle.TargetYaw
		return
	}

	if p.Property == "teamId" && ent.Kind == KindInteractiveZone {
		c.capturePoints[ent.ZoneIndex].OwnerTeam = int(p.Value.Int)
		return
	}

	setEntityProperty(ent, p.Property, p.Value)
}

func (c *Controller) applyShipDestroyed(p decode.ShipDestroyed) {
	c.kills = append(c.kills, KillRecord{Clock: c.clock, Killer: p.Killer, Victim: p.Victim, Cause: p.Cause})

	pos, ok := c.posForDeadShip(p.Victim)
	if !ok {
		if c.diag != nil {
			c.diag.Record(diag.MissingEntity, uint32(p.Victim), float32(c.clock), "ShipDestroyed: no known position")
		}
		return
	}
	c.deadShips[p.Victim] = DeadShip{Clock: c.clock, Position: pos}
	if ent, ok := c.entitiesByID[p.Victim]; ok && ent.Kind == KindVehicle {
		ent.Vehicle.IsAlive = false
	}
}

// posForDeadShip prefers the last known absolute world position, falling
// back to the latest minimap sample (recovered to world space) when no
// direct position is known. Only that latest sample is consulted: if it
// is a disappearing sample, no position is found, even when an earlier
// sample was visible.
func (c *Controller) posForDeadShip(e decode.EntityId) (decode.WorldPos, bool) {
	if pose, ok := c.shipPositions[e]; ok {
		return pose.Pos, true
	}
	if sample, ok := c.minimapPositions[e]; ok && sample.Visible {
		raw := normalizedToRaw(sample.Pos)
		return decode.WorldOfNormalized(raw[0], raw[1]), true
	}
	return decode.WorldPos{}, false
}

func normalizedToRaw(p decode.NormalizedPos) [2]uint32 {
	x := uint32((p.X + 1.5) * 512.0)
	y := uint32((p.Y + 1.5) * 512.0)
	return [2]uint32{x, y}
}

func (c *Controller) applyMinimapUpdate(p decode.MinimapUpdate) {
	for _, u := range p.Updates {
		prev, had := c.minimapPositions[u.EntityID]
		heading := u.HeadingDeg
		if u.IsDisappearing && had {
			heading = prev.HeadingDeg
		}
		c.minimapPositions[u.EntityID] = MinimapSample{
			Pos: u.Pos, HeadingDeg: heading, Visible: !u.IsDisappearing, LastUpdated: c.clock,
		}
		if !u.IsDisappearing {
			yawRad := minimapHeadingToRadians(heading)
			c.yawTimelines[u.EntityID] = append(c.yawTimelines[u.EntityID], YawSample{Clock: c.clock, Yaw: yawRad})
		}
	}
}

// minimapHeadingToRadians converts a minimap heading (degrees, 0 = north,
// clockwise) to math convention (radians, 0 = east, counter-clockwise).
func minimapHeadingToRadians(deg float32) float32 {
	mathDeg := 90.0 - deg
	rad := mathDeg * math.Pi / 180.0
	for rad > math.Pi {
		rad -= 2 * math.Pi
	}
	for rad < -math.Pi {
		rad += 2 * math.Pi
	}
	return rad
}

func (c *Controller) applyShotKills(p decode.ShotKills) {
	for _, hit := range p.Hits {
		filtered := c.activeTorpedoes[:0]
		for _, t := range c.activeTorpedoes {
			if t.Torpedo.Owner == hit.Owner && t.Torpedo.ShotID == hit.ShotID {
				continue
			}
			filtered = append(filtered, t)
		}
		c.activeTorpedoes = filtered
	}
}

func (c *Controller) expireTorpedoes() {
	filtered := c.activeTorpedoes[:0]
	for _, t := range c.activeTorpedoes {
		if float64(c.clock-t.LaunchedAt) >= torpedoSafetyTimeout {
			continue
		}
		filtered = append(filtered, t)
	}
	c.activeTorpedoes = filtered
}

func (c *Controller) applyGunSync(p decode.GunSync) {
	yaws := c.turretYaws[p.EntityID]
	for len(yaws) <= p.Turret {
		yaws = append(yaws, 0)
	}
	yaws[p.Turret] = p.Yaw
	c.turretYaws[p.EntityID] = yaws
}

func (c *Controller) applyOnArenaStateReceived(p decode.OnArenaStateReceived) {
	for _, ps := range p.PlayerStates {
		c.upsertPlayer(ps, true)
	}
}

func (c *Controller) applyOnGameRoomStateChanged(p decode.OnGameRoomStateChanged) {
	for _, ps := range p.PlayerStates {
		c.upsertPlayer(ps, ps.Connected)
	}
}

func (c *Controller) upsertPlayer(ps decode.PlayerState, connected bool) {
	var entityID decode.EntityId
	for _, v := range c.meta.Vehicles {
		if v.AccountID == ps.AvatarID {
			entityID = c.playerEntities[ps.AvatarID]
			break
		}
	}
	if entityID == 0 {
		// Entity id isn't known from metadata alone; keyed by account id
		// until an EntityCreate/OnArenaStateReceived pairing resolves it.
		entityID = decode.EntityId(ps.AvatarID)
	}

	player, ok := c.metadataPlayers[entityID]
	if !ok {
		var relation decode.Relation
		for _, v := range c.meta.Vehicles {
			if v.AccountID == ps.AvatarID {
				relation = v.Relation
				break
			}
		}
		player = &Player{AccountID: ps.AvatarID, EntityID: entityID, Relation: relation, ShipParamsID: ps.ShipID, InitialState: ps}
		c.metadataPlayers[entityID] = player
		c.playerEntities[ps.AvatarID] = entityID
	}

	lastKind := ConnDisconnected
	if len(player.Connections) > 0 {
		lastKind = player.Connections[len(player.Connections)-1].Kind
	} else if !connected {
		lastKind = ConnConnected // force a recorded transition on first-seen disconnect
	}
	newKind := ConnDisconnected
	if connected {
		newKind = ConnConnected
	}
	if len(player.Connections) == 0 || lastKind != newKind {
		player.Connections = append(player.Connections, ConnectionChangeInfo{At: c.clock, Kind: newKind})
	}
	player.CurrentState = ps
}

func (c *Controller) applyChat(p decode.Chat) {
	c.gameChat = append(c.gameChat, GameMessage{
		Clock: c.clock, SenderID: p.SenderID, Audience: p.Audience, Message: p.Message,
	})
}

// BuildReport consumes the controller's accumulated state and produces a
// serializable end-of-run summary.
func (c *Controller) BuildReport() BattleReport {
	report := BattleReport{
		Kills:         append([]KillRecord(nil), c.kills...),
		CapturePoints: append([]CapturePoint(nil), c.capturePoints...),
		TeamScores:    c.teamScores,
		WinningTeam:   c.winningTeam,
	}

	frags := make(map[decode.EntityId]int)
	for _, k := range c.kills {
		frags[k.Killer]++
	}

	for id, player := range c.metadataPlayers {
		ent := c.entitiesByID[id]
		survived := true
		teamID := 0
		if ent != nil && ent.Kind == KindVehicle {
			survived = ent.Vehicle.IsAlive
			teamID = ent.Vehicle.TeamID
		}
		report.Players = append(report.Players, PlayerReport{
			AccountID: player.AccountID,
			Name:      player.CurrentState.Name,
			TeamID:    teamID,
			Frags:     frags[id],
			Survived:  survived,
		})
	}

	for _, ent := range c.entitiesByID {
		if ent.Kind == KindBuilding {
			report.Buildings = append(report.Buildings, *ent.Building)
		}
	}

	return report
}
