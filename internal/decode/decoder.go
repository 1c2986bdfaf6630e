package decode

import (
	"fmt"

	"wows-timelapse/internal/diag"
)

// PacketType identifies the wire packet kind; framing (clock + type +
// payload_bytes) is produced by the external replay-file reader
// (internal/replayio), this package only interprets the payload.
type PacketType uint16

const (
	TypeChat PacketType = iota
	TypeVoiceLine
	TypeRibbon
	TypePosition
	TypePlayerOrientation
	TypeDamageStat
	TypeDamageReceived
	TypeShipDestroyed
	TypeEntityMethod
	TypeEntityProperty
	TypeOnArenaStateReceived
	TypeOnGameRoomStateChanged
	TypeMinimapUpdate
	TypePropertyUpdate
	TypeBattleEnd
	TypeConsumable
	TypeArtilleryShots
	TypeTorpedoesReceived
	TypeShotKills
	TypeGunSync
	TypePlaneAdded
	TypePlaneRemoved
	TypePlanePosition
	TypeBattleResults
	TypeEntityCreate
	TypeEntityEnter
	TypeEntityLeave
	TypeBasePlayerCreate
	TypeCellPlayerCreate
	TypeCruiseState
	TypeCameraMode
	TypeVersion
)

// Packet is a framed record from the replay's packet stream.
type Packet struct {
	Clock   GameClock
	Type    PacketType
	Payload []byte
}

// Decoder decodes packets under a fixed replay version.
type Decoder struct {
	version  Version
	keys     keyTable
	diag     *diag.Log
}

// NewDecoder builds a decoder for the given replay version. Returns
// ErrUnsupportedVersion if no PlayerStateData key table matches — this is
// one of the fatal error kinds.
func NewDecoder(version Version, log *diag.Log) (*Decoder, error) {
	table, err := keyTableFor(version)
	if err != nil {
		return nil, fmt.Errorf("decode: %w: %w", ErrUnsupportedVersion, err)
	}
	return &Decoder{version: version, keys: table, diag: log}, nil
}

// ErrUnsupportedVersion is returned by NewDecoder when no key table covers
// the replay's version. Fatal per the error-kind taxonomy.
var ErrUnsupportedVersion = fmt.Errorf("unsupported replay version")

// Decode interprets one packet's payload bytes. It never fails: a
// malformed payload comes back as an Invalid payload, and the decoder
// records it as DecodePayload in its own diag.Log, matching the
// "DecodePayload is surfaced as Invalid, not fatal" rule.
func (d *Decoder) Decode(p Packet) Payload {
	payload, err := d.decode(p)
	if err != nil {
		if d.diag != nil {
			d.diag.Record(diag.DecodePayload, uint32(p.Type), float32(p.Clock), err.Error())
		}
		return Invalid{PacketType: uint16(p.Type), Reason: err.Error()}
	}
	return payload
}

func (d *Decoder) decode(p Packet) (Payload, error) {
	c := newCursor(p.Payload)

	switch p.Type {
	case TypeChat:
		return d.decodeChat(c)
	case TypeVoiceLine:
		return d.decodeVoiceLine(c)
	case TypeRibbon:
		return d.decodeRibbon(c)
	case TypePosition:
		return d.decodePosition(c)
	case TypePlayerOrientation:
		return d.decodePlayerOrientation(c)
	case TypeDamageStat:
		return d.decodeDamageStat(c)
	case TypeDamageReceived:
		return d.decodeDamageReceived(c)
	case TypeShipDestroyed:
		return d.decodeShipDestroyed(c)
	case TypeEntityMethod:
		return d.decodeEntityMethod(c)
	case TypeEntityProperty:
		return d.decodeEntityProperty(c)
	case TypeOnArenaStateReceived:
		return d.decodeOnArenaStateReceived(c)
	case TypeOnGameRoomStateChanged:
		return d.decodeOnGameRoomStateChanged(c)
	case TypeMinimapUpdate:
		return d.decodeMinimapUpdate(c)
	case TypePropertyUpdate:
		return d.decodePropertyUpdate(c)
	case TypeBattleEnd:
		return d.decodeBattleEnd(c)
	case TypeConsumable:
		return d.decodeConsumable(c)
	case TypeArtilleryShots:
		return d.decodeArtilleryShots(c)
	case TypeTorpedoesReceived:
		return d.decodeTorpedoesReceived(c)
	case TypeShotKills:
		return d.decodeShotKills(c)
	case TypeGunSync:
		return d.decodeGunSync(c)
	case TypePlaneAdded:
		return d.decodePlaneAdded(c)
	case TypePlaneRemoved:
		return d.decodePlaneRemoved(c)
	case TypePlanePosition:
		return d.decodePlanePosition(c)
	case TypeBattleResults:
		return BattleResults{JSON: p.Payload}, nil
	case TypeEntityCreate:
		return d.decodeEntityCreate(c)
	case TypeEntityEnter:
		return d.decodeEntityEnter(c)
	case TypeEntityLeave:
		return d.decodeEntityLeave(c)
	case TypeBasePlayerCreate:
		return d.decodeBasePlayerCreate(c)
	case TypeCellPlayerCreate:
		return d.decodeCellPlayerCreate(c)
	case TypeCruiseState:
		return d.decodeCruiseState(c)
	case TypeCameraMode:
		return d.decodeCameraMode(c)
	case TypeVersion:
		return VersionInfo{Version: d.version}, nil
	default:
		return nil, fmt.Errorf("unknown packet type %d", p.Type)
	}
}

func (d *Decoder) decodeChat(c *cursor) (Payload, error) {
	sender, err := c.readU64()
	if err != nil {
		return nil, err
	}
	audienceRaw, err := c.readU8()
	if err != nil {
		return nil, err
	}
	msg, err := c.readString()
	if err != nil {
		return nil, err
	}
	audience := AudienceGlobal
	switch audienceRaw {
	case 1:
		audience = AudienceTeam
	case 2:
		audience = AudienceDivision
	}
	return Chat{SenderID: AccountId(sender), Audience: audience, Message: msg}, nil
}

func (d *Decoder) decodeVoiceLine(c *cursor) (Payload, error) {
	e, code, err := c.readEntityAndCode()
	if err != nil {
		return nil, err
	}
	return VoiceLine{EntityID: e, Code: Unknown(code)}, nil
}

func (d *Decoder) decodeRibbon(c *cursor) (Payload, error) {
	e, code, err := c.readEntityAndCode()
	if err != nil {
		return nil, err
	}
	return Ribbon{EntityID: e, Code: Unknown(code)}, nil
}

func (c *cursor) readEntityAndCode() (EntityId, uint32, error) {
	e, err := c.readU32()
	if err != nil {
		return 0, 0, err
	}
	code, err := c.readU32()
	if err != nil {
		return 0, 0, err
	}
	return EntityId(e), code, nil
}

func (c *cursor) readPose() (WorldPos, float32, float32, float32, error) {
	pos, err := c.readWorldPos()
	if err != nil {
		return WorldPos{}, 0, 0, 0, err
	}
	yaw, err := c.readF32()
	if err != nil {
		return WorldPos{}, 0, 0, 0, err
	}
	pitch, err := c.readF32()
	if err != nil {
		return WorldPos{}, 0, 0, 0, err
	}
	roll, err := c.readF32()
	if err != nil {
		return WorldPos{}, 0, 0, 0, err
	}
	return pos, yaw, pitch, roll, nil
}

func (d *Decoder) decodePosition(c *cursor) (Payload, error) {
	e, err := c.readU32()
	if err != nil {
		return nil, err
	}
	pos, yaw, pitch, roll, err := c.readPose()
	if err != nil {
		return nil, err
	}
	return Position{EntityID: EntityId(e), Pos: pos, Yaw: yaw, Pitch: pitch, Roll: roll}, nil
}

func (d *Decoder) decodePlayerOrientation(c *cursor) (Payload, error) {
	e, err := c.readU32()
	if err != nil {
		return nil, err
	}
	parent, err := c.readU32()
	if err != nil {
		return nil, err
	}
	pos, yaw, pitch, roll, err := c.readPose()
	if err != nil {
		return nil, err
	}
	return PlayerOrientation{
		EntityID: EntityId(e), ParentID: EntityId(parent),
		Pos: pos, Yaw: yaw, Pitch: pitch, Roll: roll,
	}, nil
}

func (d *Decoder) decodeDamageStat(c *cursor) (Payload, error) {
	e, err := c.readU32()
	if err != nil {
		return nil, err
	}
	dmg, err := c.readF32()
	if err != nil {
		return nil, err
	}
	return DamageStat{EntityID: EntityId(e), Damage: dmg}, nil
}

func (d *Decoder) decodeDamageReceived(c *cursor) (Payload, error) {
	victim, err := c.readU32()
	if err != nil {
		return nil, err
	}
	n, err := c.readU16()
	if err != nil {
		return nil, err
	}
	aggressors := make([]EntityId, 0, n)
	for i := uint16(0); i < n; i++ {
		a, err := c.readU32()
		if err != nil {
			return nil, err
		}
		aggressors = append(aggressors, EntityId(a))
	}
	return DamageReceived{Victim: EntityId(victim), Aggressors: aggressors}, nil
}

func (d *Decoder) decodeShipDestroyed(c *cursor) (Payload, error) {
	killer, err := c.readU32()
	if err != nil {
		return nil, err
	}
	victim, err := c.readU32()
	if err != nil {
		return nil, err
	}
	causeRaw, err := c.readU32()
	if err != nil {
		return nil, err
	}
	return ShipDestroyed{Killer: EntityId(killer), Victim: EntityId(victim), Cause: RawDeathCause(causeRaw)}, nil
}

func (d *Decoder) decodeEntityMethod(c *cursor) (Payload, error) {
	e, err := c.readU32()
	if err != nil {
		return nil, err
	}
	method, err := c.readString()
	if err != nil {
		return nil, err
	}
	n, err := c.readU16()
	if err != nil {
		return nil, err
	}
	args, err := c.readBytes(int(n))
	if err != nil {
		return nil, err
	}
	return EntityMethod{EntityID: EntityId(e), Method: method, Args: args}, nil
}

func (d *Decoder) decodeEntityProperty(c *cursor) (Payload, error) {
	e, err := c.readU32()
	if err != nil {
		return nil, err
	}
	name, err := c.readString()
	if err != nil {
		return nil, err
	}
	val, err := c.readPropertyValue()
	if err != nil {
		return nil, err
	}
	return EntityProperty{EntityID: EntityId(e), Property: name, Value: val}, nil
}

func (c *cursor) readPath() ([]PathElem, error) {
	n, err := c.readU8()
	if err != nil {
		return nil, err
	}
	path := make([]PathElem, 0, n)
	for i := uint8(0); i < n; i++ {
		isIndex, err := c.readU8()
		if err != nil {
			return nil, err
		}
		if isIndex != 0 {
			idx, err := c.readI32()
			if err != nil {
				return nil, err
			}
			path = append(path, PathElem{IsIndex: true, Index: int(idx)})
		} else {
			key, err := c.readString()
			if err != nil {
				return nil, err
			}
			path = append(path, PathElem{IsIndex: false, Key: key})
		}
	}
	return path, nil
}

func (d *Decoder) decodePropertyUpdate(c *cursor) (Payload, error) {
	e, err := c.readU32()
	if err != nil {
		return nil, err
	}
	path, err := c.readPath()
	if err != nil {
		return nil, err
	}
	kind, err := c.readU8()
	if err != nil {
		return nil, err
	}
	var action UpdateAction
	switch UpdateActionKind(kind) {
	case ActionSetKey:
		key, err := c.readString()
		if err != nil {
			return nil, err
		}
		val, err := c.readPropertyValue()
		if err != nil {
			return nil, err
		}
		action = UpdateAction{Kind: ActionSetKey, Key: key, Value: val}
	case ActionSetRange:
		start, err := c.readI32()
		if err != nil {
			return nil, err
		}
		n, err := c.readU16()
		if err != nil {
			return nil, err
		}
		vals := make([]PropertyValue, 0, n)
		for i := uint16(0); i < n; i++ {
			v, err := c.readPropertyValue()
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		action = UpdateAction{Kind: ActionSetRange, RangeStart: int(start), RangeValues: vals}
	case ActionRemoveRange:
		start, err := c.readI32()
		if err != nil {
			return nil, err
		}
		stop, err := c.readI32()
		if err != nil {
			return nil, err
		}
		action = UpdateAction{Kind: ActionRemoveRange, RangeStart: int(start), RangeStop: int(stop)}
	default:
		return nil, fmt.Errorf("unknown update action kind %d", kind)
	}
	return PropertyUpdate{EntityID: EntityId(e), Path: path, Action: action}, nil
}

func (d *Decoder) decodeOnArenaStateReceived(c *cursor) (Payload, error) {
	arenaID, err := c.readI64()
	if err != nil {
		return nil, err
	}
	teamBuild, err := c.readI32()
	if err != nil {
		return nil, err
	}
	preBattles, err := c.readI32()
	if err != nil {
		return nil, err
	}
	n, err := c.readU16()
	if err != nil {
		return nil, err
	}
	states := make([]PlayerState, 0, n)
	for i := uint16(0); i < n; i++ {
		ps, err := decodePlayerState(c, d.keys)
		if err != nil {
			return nil, err
		}
		connected, err := c.readU8()
		if err != nil {
			return nil, err
		}
		ps.Connected = connected != 0
		states = append(states, ps)
	}
	return OnArenaStateReceived{
		ArenaID: arenaID, TeamBuildType: int(teamBuild), PreBattles: int(preBattles),
		PlayerStates: states,
	}, nil
}

func (d *Decoder) decodeOnGameRoomStateChanged(c *cursor) (Payload, error) {
	n, err := c.readU16()
	if err != nil {
		return nil, err
	}
	states := make([]PlayerState, 0, n)
	for i := uint16(0); i < n; i++ {
		ps, err := decodePlayerState(c, d.keys)
		if err != nil {
			return nil, err
		}
		states = append(states, ps)
	}
	return OnGameRoomStateChanged{PlayerStates: states}, nil
}

func (d *Decoder) decodeMinimapUpdate(c *cursor) (Payload, error) {
	n, err := c.readU16()
	if err != nil {
		return nil, err
	}
	updates := make([]MinimapEntityUpdate, 0, n)
	for i := uint16(0); i < n; i++ {
		e, err := c.readU32()
		if err != nil {
			return nil, err
		}
		word, err := c.readU32()
		if err != nil {
			return nil, err
		}
		pos, heading, disappearing := DecodeMinimapWord(word)
		updates = append(updates, MinimapEntityUpdate{
			EntityID: EntityId(e), Pos: pos, HeadingDeg: heading, IsDisappearing: disappearing,
		})
	}
	return MinimapUpdate{Updates: updates}, nil
}

func (d *Decoder) decodeBattleEnd(c *cursor) (Payload, error) {
	hasWinner, err := c.readU8()
	if err != nil {
		return nil, err
	}
	var winner *int
	if hasWinner != 0 {
		w, err := c.readI32()
		if err != nil {
			return nil, err
		}
		wi := int(w)
		winner = &wi
	}
	hasState, err := c.readU8()
	if err != nil {
		return nil, err
	}
	var state *BattleEndState
	if hasState != 0 {
		code, err := c.readI32()
		if err != nil {
			return nil, err
		}
		state = &BattleEndState{Code: int(code)}
	}
	return BattleEnd{WinningTeam: winner, State: state}, nil
}

func (d *Decoder) decodeConsumable(c *cursor) (Payload, error) {
	e, err := c.readU32()
	if err != nil {
		return nil, err
	}
	code, err := c.readU32()
	if err != nil {
		return nil, err
	}
	duration, err := c.readF32()
	if err != nil {
		return nil, err
	}
	return ConsumableActivated{EntityID: EntityId(e), Consumable: Unknown(code), Duration: duration}, nil
}

func (d *Decoder) decodeArtilleryShots(c *cursor) (Payload, error) {
	e, err := c.readU32()
	if err != nil {
		return nil, err
	}
	nSalvos, err := c.readU8()
	if err != nil {
		return nil, err
	}
	salvos := make([]Salvo, 0, nSalvos)
	for i := uint8(0); i < nSalvos; i++ {
		owner, err := c.readU32()
		if err != nil {
			return nil, err
		}
		params, err := c.readU32()
		if err != nil {
			return nil, err
		}
		salvoID, err := c.readI64()
		if err != nil {
			return nil, err
		}
		nShots, err := c.readU8()
		if err != nil {
			return nil, err
		}
		shots := make([]Shot, 0, nShots)
		for j := uint8(0); j < nShots; j++ {
			origin, err := c.readWorldPos()
			if err != nil {
				return nil, err
			}
			target, err := c.readWorldPos()
			if err != nil {
				return nil, err
			}
			speed, err := c.readF32()
			if err != nil {
				return nil, err
			}
			shotID, err := c.readI64()
			if err != nil {
				return nil, err
			}
			shots = append(shots, Shot{Origin: origin, Target: target, Speed: speed, ShotID: shotID})
		}
		salvos = append(salvos, Salvo{Owner: EntityId(owner), Params: GameParamId(params), SalvoID: salvoID, Shots: shots})
	}
	return ArtilleryShots{EntityID: EntityId(e), Salvos: salvos}, nil
}

func (d *Decoder) decodeTorpedoesReceived(c *cursor) (Payload, error) {
	e, err := c.readU32()
	if err != nil {
		return nil, err
	}
	n, err := c.readU8()
	if err != nil {
		return nil, err
	}
	torps := make([]TorpedoLaunch, 0, n)
	for i := uint8(0); i < n; i++ {
		owner, err := c.readU32()
		if err != nil {
			return nil, err
		}
		params, err := c.readU32()
		if err != nil {
			return nil, err
		}
		salvoID, err := c.readI64()
		if err != nil {
			return nil, err
		}
		shotID, err := c.readI64()
		if err != nil {
			return nil, err
		}
		origin, err := c.readWorldPos()
		if err != nil {
			return nil, err
		}
		dir, err := c.readWorldPos()
		if err != nil {
			return nil, err
		}
		speed, err := c.readF32()
		if err != nil {
			return nil, err
		}
		torps = append(torps, TorpedoLaunch{
			Owner: EntityId(owner), Params: GameParamId(params), SalvoID: salvoID, ShotID: shotID,
			Origin: origin, Direction: dir, Speed: speed,
		})
	}
	return TorpedoesReceived{EntityID: EntityId(e), Torpedoes: torps}, nil
}

func (d *Decoder) decodeShotKills(c *cursor) (Payload, error) {
	e, err := c.readU32()
	if err != nil {
		return nil, err
	}
	n, err := c.readU8()
	if err != nil {
		return nil, err
	}
	hits := make([]ShotHit, 0, n)
	for i := uint8(0); i < n; i++ {
		owner, err := c.readU32()
		if err != nil {
			return nil, err
		}
		shotID, err := c.readI64()
		if err != nil {
			return nil, err
		}
		hits = append(hits, ShotHit{Owner: EntityId(owner), ShotID: shotID})
	}
	return ShotKills{EntityID: EntityId(e), Hits: hits}, nil
}

func (d *Decoder) decodeGunSync(c *cursor) (Payload, error) {
	e, err := c.readU32()
	if err != nil {
		return nil, err
	}
	group, err := c.readU8()
	if err != nil {
		return nil, err
	}
	turret, err := c.readU8()
	if err != nil {
		return nil, err
	}
	yaw, err := c.readF32()
	if err != nil {
		return nil, err
	}
	pitch, err := c.readF32()
	if err != nil {
		return nil, err
	}
	return GunSync{EntityID: EntityId(e), Group: int(group), Turret: int(turret), Yaw: yaw, Pitch: pitch}, nil
}

func (d *Decoder) decodePlaneAdded(c *cursor) (Payload, error) {
	plane, err := c.readU32()
	if err != nil {
		return nil, err
	}
	owner, err := c.readU32()
	if err != nil {
		return nil, err
	}
	team, err := c.readU8()
	if err != nil {
		return nil, err
	}
	params, err := c.readU32()
	if err != nil {
		return nil, err
	}
	return PlaneAdded{PlaneID: PlaneId(plane), OwnerID: EntityId(owner), TeamID: int(team), ParamsID: GameParamId(params)}, nil
}

func (d *Decoder) decodePlaneRemoved(c *cursor) (Payload, error) {
	plane, err := c.readU32()
	if err != nil {
		return nil, err
	}
	return PlaneRemoved{PlaneID: PlaneId(plane)}, nil
}

func (d *Decoder) decodePlanePosition(c *cursor) (Payload, error) {
	plane, err := c.readU32()
	if err != nil {
		return nil, err
	}
	x, err := c.readF32()
	if err != nil {
		return nil, err
	}
	y, err := c.readF32()
	if err != nil {
		return nil, err
	}
	return PlanePosition{PlaneID: PlaneId(plane), Pos: NormalizedPos{X: x, Y: y}}, nil
}

func (d *Decoder) decodeEntityCreate(c *cursor) (Payload, error) {
	e, err := c.readU32()
	if err != nil {
		return nil, err
	}
	kind, err := c.readU8()
	if err != nil {
		return nil, err
	}
	n, err := c.readU16()
	if err != nil {
		return nil, err
	}
	props := make(map[string]PropertyValue, n)
	for i := uint16(0); i < n; i++ {
		name, err := c.readString()
		if err != nil {
			return nil, err
		}
		val, err := c.readPropertyValue()
		if err != nil {
			return nil, err
		}
		props[name] = val
	}
	return EntityCreate{EntityID: EntityId(e), Kind: EntityKind(kind), Props: props}, nil
}

func (d *Decoder) decodeEntityEnter(c *cursor) (Payload, error) {
	e, err := c.readU32()
	if err != nil {
		return nil, err
	}
	return EntityEnter{EntityID: EntityId(e)}, nil
}

func (d *Decoder) decodeEntityLeave(c *cursor) (Payload, error) {
	e, err := c.readU32()
	if err != nil {
		return nil, err
	}
	return EntityLeave{EntityID: EntityId(e)}, nil
}

func (d *Decoder) decodeBasePlayerCreate(c *cursor) (Payload, error) {
	e, err := c.readU32()
	if err != nil {
		return nil, err
	}
	return BasePlayerCreate{EntityID: EntityId(e), Raw: c.buf[c.pos:]}, nil
}

func (d *Decoder) decodeCellPlayerCreate(c *cursor) (Payload, error) {
	e, err := c.readU32()
	if err != nil {
		return nil, err
	}
	return CellPlayerCreate{EntityID: EntityId(e), Raw: c.buf[c.pos:]}, nil
}

func (d *Decoder) decodeCruiseState(c *cursor) (Payload, error) {
	e, code, err := c.readEntityAndCode()
	if err != nil {
		return nil, err
	}
	return CruiseState{EntityID: e, Mode: Unknown(code)}, nil
}

func (d *Decoder) decodeCameraMode(c *cursor) (Payload, error) {
	code, err := c.readU32()
	if err != nil {
		return nil, err
	}
	return CameraMode{Mode: Unknown(code)}, nil
}
