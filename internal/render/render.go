// Package render turns a battle controller's state, read through its
// read-only accessors, into an ordered sequence of DrawCommand values for
// one frame. The Renderer keeps no per-frame or per-ship state of its
// own; all durable state lives in internal/battle.
package render

import (
	"fmt"
	"math"
	"sort"

	"wows-timelapse/internal/advantage"
	"wows-timelapse/internal/battle"
	"wows-timelapse/internal/decode"
)

// nativeMinimapEdge is the fixed native minimap edge, in game units, the
// coordinate transform scales against.
const nativeMinimapEdge = 760.0

// killFeedDuration bounds how long a kill stays in the feed.
const killFeedDuration = 10.0

// tracerLength is the fractional trail length behind a shot's head,
// expressed as a fraction of total flight time.
const tracerLength = 0.12

// Fixed minimap palette: the recording player's own side always reads
// blue and the opposing side always reads red, regardless of which raw
// team index the replay itself assigns to each. Ship, name, capture-point
// and score-bar colors are resolved here; the other commands (buildings,
// smoke, tracers, torpedoes, planes, health bars, trails) leave their
// color unset, and the rasterizer draws those in its neutral fallback.
var (
	allyColor    = [3]uint8{70, 160, 255}
	enemyColor   = [3]uint8{255, 90, 70}
	botColor     = [3]uint8{170, 170, 170}
	neutralColor = [3]uint8{200, 200, 200}
)

// teamColor resolves a raw team index to the fixed palette, relative to
// the recording player's own team. Any index other than the two known
// team slots (e.g. an unclaimed capture point) reads neutral.
func teamColor(team, selfTeam int) [3]uint8 {
	switch team {
	case selfTeam:
		return allyColor
	case 0, 1:
		return enemyColor
	default:
		return neutralColor
	}
}

// relationColor resolves a player's metadata relation to the same fixed
// palette teamColor uses, so a bot on the recording player's side reads
// the same blue a human ally does.
func relationColor(rel decode.Relation) [3]uint8 {
	switch rel {
	case decode.RelationSelf, decode.RelationAlly:
		return allyColor
	case decode.RelationEnemy:
		return enemyColor
	default:
		return botColor
	}
}

// Transform converts world-space coordinates to canvas pixels.
type Transform struct {
	SpaceSize  float64 // game units spanned by the map, from space.settings
	OutputEdge int     // output canvas edge in pixels (multiple of 16)
}

func (t Transform) scale() float64 {
	return nativeMinimapEdge / t.SpaceSize * (float64(t.OutputEdge) / nativeMinimapEdge)
}

// WorldToMinimap maps a world position to an output-canvas pixel,
// (0,0) at top-left, HUD-agnostic (the rasterizer applies the HUD
// offset at draw time).
func (t Transform) WorldToMinimap(p decode.WorldPos) MinimapPos {
	scale := t.scale()
	half := float64(t.OutputEdge) / 2
	return MinimapPos{
		X: int(half + float64(p.X)*scale),
		Y: int(half - float64(p.Z)*scale),
	}
}

// NormalizedToMinimap recovers world coordinates from a normalized
// minimap sample and routes through WorldToMinimap, so both sources of
// truth coincide to the pixel.
func (t Transform) NormalizedToMinimap(p decode.NormalizedPos) MinimapPos {
	world := normalizedToWorld(p)
	return t.WorldToMinimap(world)
}

// normalizedToWorld inverts DecodeMinimapWord's x_norm = raw/512 - 1.5
// back to the raw 11-bit word, then routes through WorldOfNormalized's
// raw/2047 domain, so this path lands on the same pixel as a position
// recovered directly from a Position packet.
func normalizedToWorld(p decode.NormalizedPos) decode.WorldPos {
	rawX := uint32((p.X + 1.5) * 512.0)
	rawY := uint32((p.Y + 1.5) * 512.0)
	return decode.WorldOfNormalized(rawX, rawY)
}

// MinimapPos is an integer pixel on the rendered minimap.
type MinimapPos struct{ X, Y int }

// Visibility is a ship's rendering state for the current frame.
type Visibility int

const (
	VisVisible Visibility = iota
	VisMinimapOnly
	VisUndetected
	VisDeadShip
	VisNone
)

// DrawCommand is the closed set of instructions the rasterizer consumes.
// Only one payload field is meaningful per Kind, mirroring the
// internal/decode.Payload / internal/battle.Entity tagged-union idiom
// used elsewhere in this codebase.
type DrawCommand struct {
	Kind CommandKind

	ShotTracer    *ShotTracerCmd
	Torpedo       *TorpedoCmd
	Smoke         *SmokeCmd
	Ship          *ShipCmd
	HealthBar     *HealthBarCmd
	DeadShip      *DeadShipCmd
	BuffZone      *BuffZoneCmd
	CapturePoint  *CapturePointCmd
	TurretDir     *TurretDirectionCmd
	Building      *BuildingCmd
	Plane         *PlaneCmd
	ConsumableRad *ConsumableRadiusCmd
	PatrolRadius  *PatrolRadiusCmd
	ConsumeIcons  *ConsumableIconsCmd
	ShipConfig    *ShipConfigCircleCmd
	Trail         *PositionTrailCmd
	TeamBuffs     *TeamBuffsCmd
	ScoreBar      *ScoreBarCmd
	TeamAdv       *TeamAdvantageCmd
	Timer         *TimerCmd
	KillFeed      *KillFeedCmd
	Chat          *ChatOverlayCmd
	Result        *BattleResultOverlayCmd
}

type CommandKind int

const (
	CmdShotTracer CommandKind = iota
	CmdTorpedo
	CmdSmoke
	CmdShip
	CmdHealthBar
	CmdDeadShip
	CmdBuffZone
	CmdCapturePoint
	CmdTurretDirection
	CmdBuilding
	CmdPlane
	CmdConsumableRadius
	CmdConsumableIcons
	CmdPatrolRadius
	CmdShipConfigCircle
	CmdPositionTrail
	CmdTeamBuffs
	CmdScoreBar
	CmdTeamAdvantage
	CmdTimer
	CmdKillFeed
	CmdChatOverlay
	CmdBattleResultOverlay
)

type ShotTracerCmd struct {
	Head, Tail MinimapPos
	Color      [3]uint8
}

type TorpedoCmd struct {
	Pos   MinimapPos
	Yaw   float32
	Color [3]uint8
}

type SmokeCmd struct {
	Puffs  []MinimapPos
	Radius float32
}

type ShipCmd struct {
	Pos                  MinimapPos
	Yaw                  float32
	Species              string
	Color                [3]uint8
	Visibility           Visibility
	Opacity              float32
	IsSelf               bool
	PlayerName           string
	ShipName             string
	IsDetectedTeammate   bool
	NameColor            [3]uint8
}

type HealthBarCmd struct {
	Pos           MinimapPos
	Fraction      float32
	Color         [3]uint8
}

type DeadShipCmd struct {
	Pos MinimapPos
}

type BuffZoneCmd struct {
	Pos    MinimapPos
	Radius float32
	Color  [3]uint8
}

type CapturePointCmd struct {
	Pos          MinimapPos
	Radius       float32
	OwnerColor   [3]uint8
	Alpha        float32
	Label        string
	Progress     float32
	InvaderColor [3]uint8
}

type TurretDirectionCmd struct {
	Pos MinimapPos
	Yaw float32
}

type BuildingCmd struct {
	Pos   MinimapPos
	Alive bool
	Color [3]uint8
}

type PlaneCmd struct {
	Pos     MinimapPos
	IconKey string
}

type ConsumableRadiusCmd struct {
	Pos    MinimapPos
	Radius float32
	Label  string
}

type PatrolRadiusCmd struct {
	Pos    MinimapPos
	Radius float32
}

type ConsumableIconsCmd struct {
	Pos   MinimapPos
	Icons []string
}

type ShipConfigCircleKind int

const (
	CircleDetection ShipConfigCircleKind = iota
	CircleMainBattery
	CircleSecondary
	CircleRadar
	CircleHydro
)

type ShipConfigCircleCmd struct {
	Pos    MinimapPos
	Radius float32
	Kind   ShipConfigCircleKind
	Label  string
	Dashed bool
}

type PositionTrailCmd struct {
	Points []MinimapPos
	Color  [3]uint8
}

type TeamBuffsCmd struct {
	Team0Buffs, Team1Buffs []string
}

type ScoreBarCmd struct {
	Team0, Team1           float64
	Team0Color, Team1Color [3]uint8
	Team0Timer, Team1Timer *string
}

type TeamAdvantageCmd struct {
	Label      string
	Color      [3]uint8
	Breakdown  advantage.AdvantageBreakdown
}

type TimerCmd struct {
	Seconds float64
}

// KillFeedEntry carries killer/victim team colors, ship species, and
// localized ship name, matching the richer original kill feed rather
// than a bare pair of account names.
type KillFeedEntry struct {
	KillerName    string
	KillerColor   [3]uint8
	KillerSpecies string
	VictimName    string
	VictimColor   [3]uint8
	VictimSpecies string
	Cause         decode.DeathCause
}

type KillFeedCmd struct {
	Entries []KillFeedEntry
}

// ChatEntry mirrors the original's richer chat line: optional clan tag
// plus color, team color, ship species/name, a per-channel message
// color, and a fade-out opacity.
type ChatEntry struct {
	SenderName    string
	ClanTag       string
	ClanColor     [3]uint8
	TeamColor     [3]uint8
	ShipSpecies   string
	ShipName      string
	Message       string
	MessageColor  [3]uint8
	Opacity       float32
}

type ChatOverlayCmd struct {
	Entries []ChatEntry
}

type BattleResultOverlayCmd struct {
	WinningTeam *int
	Team0Score  float64
	Team1Score  float64
}

// Species is a ship's class, resolved externally (the packed game-data
// catalog is out of this core's scope) and consumed here
// only for fleet-power/threat weighting and icon-key selection.
type Species int

const (
	SpeciesUnknown Species = iota
	SpeciesDestroyer
	SpeciesCruiser
	SpeciesBattleship
	SpeciesSubmarine
	SpeciesCarrier
	SpeciesAuxiliary
)

// Catalog resolves the external, out-of-scope ship/consumable metadata
// this renderer needs per frame: a ship's class (for fleet-power
// weighting and icon selection) and its localized name. A nil Catalog
// is valid — class counts then stay zero, so the advantage evaluator's
// fleet-power and strategic-threat factors come out zero; ships_known
// still counts every vehicle whose max health is known.
type Catalog interface {
	Species(id decode.GameParamId) (Species, bool)
	ShipName(id decode.GameParamId) (string, bool)
}

// Renderer produces frames from a battle controller's read-only view.
type Renderer struct {
	transform     Transform
	display       DisplayOptions
	catalog       Catalog
	matchDuration float64 // seconds; 0 means unknown, advantage timeLeft stays nil
}

// DisplayOptions mirrors the CLI's display toggles (internal/config).
type DisplayOptions struct {
	PlayerNames     bool
	ShipNames       bool
	CapturePoints   bool
	Buildings       bool
	TurretDirection bool
	Armament        bool
	Trails          bool
	ShipConfig      bool
}

// New builds a Renderer. catalog may be nil (see Catalog's doc comment);
// matchDuration is the match length in seconds, used to derive
// advantage.Calculate's timeLeft and the on-screen countdown Timer. It
// is fixed at construction; a later BattleEnd does not extend it.
func New(transform Transform, display DisplayOptions, catalog Catalog, matchDuration float64) *Renderer {
	return &Renderer{transform: transform, display: display, catalog: catalog, matchDuration: matchDuration}
}

// Frame renders one frame's draw commands at `now` from the controller's
// current state. now should not precede any clock the controller has
// already processed (the controller advances monotonically; this only
// reads).
func (r *Renderer) Frame(now decode.GameClock, c *Controller) []DrawCommand {
	var cmds []DrawCommand

	selfTeam := resolveSelfTeam(c)

	if r.display.Buildings {
		cmds = append(cmds, r.buildingCommands(c)...)
	}
	if r.display.CapturePoints {
		cmds = append(cmds, r.capturePointCommands(c, selfTeam)...)
	}

	cmds = append(cmds, r.smokeCommands(c)...)
	cmds = append(cmds, r.shipCommands(now, c, selfTeam)...)
	cmds = append(cmds, r.healthBarCommands(now, c)...)
	if r.display.TurretDirection {
		cmds = append(cmds, r.turretDirectionCommands(c)...)
	}
	cmds = append(cmds, r.tracerCommands(now, c)...)
	cmds = append(cmds, r.torpedoCommands(now, c)...)
	cmds = append(cmds, r.planeCommands(c)...)
	cmds = append(cmds, r.consumableCommands(now, c)...)

	if r.display.Trails {
		cmds = append(cmds, r.trailCommands(c)...)
	}

	timeLeft := r.timeLeft(now)
	breakdown := r.advantageBreakdown(c, timeLeft, selfTeam)

	cmds = append(cmds, r.scoreBarCommand(c, breakdown, timeLeft, selfTeam))
	cmds = append(cmds, r.teamAdvantageCommand(breakdown, selfTeam))
	if timeLeft != nil {
		cmds = append(cmds, DrawCommand{Kind: CmdTimer, Timer: &TimerCmd{Seconds: *timeLeft}})
	}
	cmds = append(cmds, r.killFeedCommand(now, c))
	if chat := r.chatOverlayCommand(now, c); chat != nil {
		cmds = append(cmds, *chat)
	}
	if result := r.resultOverlayCommand(now, c); result != nil {
		cmds = append(cmds, *result)
	}

	return cmds
}

// timeLeft derives advantage.Calculate's Option<time_left_seconds> from
// the renderer's known match duration; nil when the duration is unknown
// (e.g. a unit test driving the renderer directly against a bare
// Controller with no replay metadata behind it).
func (r *Renderer) timeLeft(now decode.GameClock) *float64 {
	if r.matchDuration <= 0 {
		return nil
	}
	left := r.matchDuration - float64(now)
	if left < 0 {
		left = 0
	}
	return &left
}

// Controller is an alias of battle.Controller, the concrete type this
// package reads through its read-only accessors.
type Controller = battle.Controller

func (r *Renderer) buildingCommands(c *Controller) []DrawCommand {
	var out []DrawCommand
	for _, ent := range c.EntitiesByID() {
		if ent.Kind != battle.KindBuilding {
			continue
		}
		pos := r.transform.WorldToMinimap(ent.Building.Position)
		out = append(out, DrawCommand{Kind: CmdBuilding, Building: &BuildingCmd{Pos: pos, Alive: ent.Building.Alive}})
	}
	return out
}

func (r *Renderer) capturePointCommands(c *Controller, selfTeam int) []DrawCommand {
	var out []DrawCommand
	for _, zone := range c.CapturePoints() {
		pos := r.transform.WorldToMinimap(zone.Position)
		alpha := float32(0.35)
		if zone.HasInvaders {
			alpha = 0.65
		}
		out = append(out, DrawCommand{Kind: CmdCapturePoint, CapturePoint: &CapturePointCmd{
			Pos: pos, Radius: zone.Radius, Progress: zone.ProgressFraction,
			OwnerColor:   teamColor(zone.OwnerTeam, selfTeam),
			InvaderColor: teamColor(zone.InvaderTeam, selfTeam),
			Alpha:        alpha,
			Label:        fmt.Sprintf("%c", 'A'+zone.Index),
		}})
	}
	return out
}

func (r *Renderer) smokeCommands(c *Controller) []DrawCommand {
	var out []DrawCommand
	for _, ent := range c.EntitiesByID() {
		if ent.Kind != battle.KindSmokeScreen {
			continue
		}
		puffs := make([]MinimapPos, 0, len(ent.Smoke.Puffs))
		for _, p := range ent.Smoke.Puffs {
			puffs = append(puffs, r.transform.WorldToMinimap(p))
		}
		out = append(out, DrawCommand{Kind: CmdSmoke, Smoke: &SmokeCmd{Puffs: puffs, Radius: ent.Smoke.Radius}})
	}
	return out
}

// visibilityFor implements the per-ship visibility policy: dead ships
// only render DeadShip; otherwise the most recent minimap sample at or
// before now decides Visible/MinimapOnly/Undetected/None.
func visibilityFor(e decode.EntityId, now decode.GameClock, c *Controller) (Visibility, decode.WorldPos, float32) {
	for _, k := range c.Kills() {
		if k.Victim == e && k.Clock <= now {
			if dead, ok := c.DeadShips()[e]; ok {
				return VisDeadShip, dead.Position, 0
			}
		}
	}

	sample, ok := c.MinimapPositions()[e]
	if !ok {
		return VisNone, decode.WorldPos{}, 0
	}

	yaw := interpolatedYaw(e, now, c)

	if sample.Visible {
		if pose, ok := c.ShipPositions()[e]; ok {
			return VisVisible, pose.Pos, yaw
		}
		return VisMinimapOnly, decode.WorldPos{}, yaw
	}
	return VisUndetected, decode.WorldPos{}, yaw
}

// interpolatedYaw finds the bracketing yaw samples at or around now and
// linearly interpolates along the shortest arc.
func interpolatedYaw(e decode.EntityId, now decode.GameClock, c *Controller) float32 {
	timeline := c.YawTimeline(e)
	if len(timeline) == 0 {
		return 0
	}
	idx := sort.Search(len(timeline), func(i int) bool { return timeline[i].Clock > now })
	if idx == 0 {
		return timeline[0].Yaw
	}
	if idx >= len(timeline) {
		return timeline[len(timeline)-1].Yaw
	}
	a, b := timeline[idx-1], timeline[idx]
	if b.Clock == a.Clock {
		return b.Yaw
	}
	frac := float32((now - a.Clock)) / float32(b.Clock-a.Clock)
	delta := wrapPi(b.Yaw - a.Yaw)
	return wrapPi(a.Yaw + delta*frac)
}

func wrapPi(v float32) float32 {
	for v > math.Pi {
		v -= 2 * math.Pi
	}
	for v < -math.Pi {
		v += 2 * math.Pi
	}
	return v
}

func (r *Renderer) shipCommands(now decode.GameClock, c *Controller, selfTeam int) []DrawCommand {
	var out []DrawCommand
	for e := range c.MinimapPositions() {
		vis, worldPos, yaw := visibilityFor(e, now, c)
		switch vis {
		case VisDeadShip:
			out = append(out, DrawCommand{Kind: CmdDeadShip, DeadShip: &DeadShipCmd{Pos: r.transform.WorldToMinimap(worldPos)}})
		case VisVisible:
			pos := r.transform.WorldToMinimap(worldPos)
			out = append(out, r.shipCommand(e, pos, yaw, VisVisible, 1.0, c, selfTeam))
		case VisMinimapOnly:
			pos := r.transform.NormalizedToMinimap(c.MinimapPositions()[e].Pos)
			out = append(out, r.shipCommand(e, pos, yaw, VisMinimapOnly, 1.0, c, selfTeam))
		case VisUndetected:
			pos := r.transform.NormalizedToMinimap(c.MinimapPositions()[e].Pos)
			out = append(out, r.shipCommand(e, pos, yaw, VisUndetected, 0.4, c, selfTeam))
		}
	}
	return out
}

func (r *Renderer) shipCommand(e decode.EntityId, pos MinimapPos, yaw float32, vis Visibility, opacity float32, c *Controller, selfTeam int) DrawCommand {
	var playerName, shipName, species string
	isSelf := false
	shipColor := neutralColor
	nameColor := neutralColor
	isDetectedTeammate := false
	if player, ok := c.MetadataPlayers()[e]; ok {
		if r.display.PlayerNames {
			playerName = player.CurrentState.Name
		}
		isSelf = player.Relation == decode.RelationSelf
		if r.display.ShipNames && r.catalog != nil {
			if name, ok := r.catalog.ShipName(player.ShipParamsID); ok {
				shipName = name
			}
		}
		if r.catalog != nil {
			if sp, ok := r.catalog.Species(player.ShipParamsID); ok {
				species = sp.IconKey()
			}
		}
		shipColor = relationColor(player.Relation)
		nameColor = shipColor
		isDetectedTeammate = !isSelf && player.Relation == decode.RelationAlly && (vis == VisVisible || vis == VisMinimapOnly)
	} else if ent, ok := c.EntitiesByID()[e]; ok && ent.Kind == battle.KindVehicle {
		shipColor = teamColor(ent.Vehicle.TeamID, selfTeam)
		nameColor = shipColor
		isDetectedTeammate = ent.Vehicle.TeamID == selfTeam && (vis == VisVisible || vis == VisMinimapOnly)
	}
	return DrawCommand{Kind: CmdShip, Ship: &ShipCmd{
		Pos: pos, Yaw: yaw, Species: species, Color: shipColor, Visibility: vis, Opacity: opacity,
		IsSelf: isSelf, PlayerName: playerName, ShipName: shipName,
		IsDetectedTeammate: isDetectedTeammate, NameColor: nameColor,
	}}
}

// IconKey returns the raster icon-cache lookup key for a species,
// matching the "<ship-species>" naming internal/raster.IconCache.LoadDir
// expects on disk.
func (s Species) IconKey() string {
	switch s {
	case SpeciesDestroyer:
		return "ship-destroyer"
	case SpeciesCruiser:
		return "ship-cruiser"
	case SpeciesBattleship:
		return "ship-battleship"
	case SpeciesSubmarine:
		return "ship-submarine"
	case SpeciesCarrier:
		return "ship-carrier"
	case SpeciesAuxiliary:
		return "ship-auxiliary"
	default:
		return "ship-unknown"
	}
}

// healthBarCommands emits one HealthBar per ship whose vehicle entity
// carries known HP and is currently rendered as a live ship (visible or
// minimap-only — a dead or undetected ship gets no bar).
func (r *Renderer) healthBarCommands(now decode.GameClock, c *Controller) []DrawCommand {
	var out []DrawCommand
	for e := range c.MinimapPositions() {
		vis, worldPos, _ := visibilityFor(e, now, c)
		if vis != VisVisible && vis != VisMinimapOnly {
			continue
		}
		ent, ok := c.EntitiesByID()[e]
		if !ok || ent.Kind != battle.KindVehicle || ent.Vehicle.MaxHealth <= 0 {
			continue
		}
		var pos MinimapPos
		if vis == VisVisible {
			pos = r.transform.WorldToMinimap(worldPos)
		} else {
			pos = r.transform.NormalizedToMinimap(c.MinimapPositions()[e].Pos)
		}
		frac := float32(ent.Vehicle.Health / ent.Vehicle.MaxHealth)
		if frac < 0 {
			frac = 0
		}
		out = append(out, DrawCommand{Kind: CmdHealthBar, HealthBar: &HealthBarCmd{Pos: pos, Fraction: frac}})
	}
	return out
}

// turretDirectionCommands emits one TurretDirection per tracked turret
// (group 0 only), anchored at the owning ship's current ship position (rendering
// is skipped for ships with no known world pose yet).
func (r *Renderer) turretDirectionCommands(c *Controller) []DrawCommand {
	var out []DrawCommand
	for e, yaws := range c.TurretYaws() {
		pose, ok := c.ShipPositions()[e]
		if !ok || len(yaws) == 0 {
			continue
		}
		pos := r.transform.WorldToMinimap(pose.Pos)
		for _, yaw := range yaws {
			out = append(out, DrawCommand{Kind: CmdTurretDirection, TurretDir: &TurretDirectionCmd{Pos: pos, Yaw: yaw}})
		}
	}
	return out
}

// consumableCommands emits a ConsumableIcons command per entity with any
// consumable whose activation window still covers now.
func (r *Renderer) consumableCommands(now decode.GameClock, c *Controller) []DrawCommand {
	var out []DrawCommand
	for e, activations := range c.ActiveConsumables() {
		pose, ok := c.ShipPositions()[e]
		if !ok {
			continue
		}
		var icons []string
		for _, a := range activations {
			if float64(now-a.ActivatedAt) < 0 || float64(now-a.ActivatedAt) > float64(a.Duration) {
				continue
			}
			icons = append(icons, fmt.Sprintf("consumable-%d", uint32(a.Consumable)))
		}
		if len(icons) == 0 {
			continue
		}
		pos := r.transform.WorldToMinimap(pose.Pos)
		out = append(out, DrawCommand{Kind: CmdConsumableIcons, ConsumeIcons: &ConsumableIconsCmd{Pos: pos, Icons: icons}})
	}
	return out
}

func (r *Renderer) tracerCommands(now decode.GameClock, c *Controller) []DrawCommand {
	var out []DrawCommand
	for _, shot := range c.ActiveShots() {
		for _, s := range shot.Salvo.Shots {
			dist := distance(s.Origin, s.Target)
			flight := flightDuration(dist, s.Speed)
			elapsed := float64(now - shot.FiredAt)
			if elapsed < 0 || elapsed > flight {
				continue
			}
			frac := elapsed / flight
			tailFrac := math.Max(0, frac-tracerLength)
			head := r.transform.WorldToMinimap(lerpWorld(s.Origin, s.Target, frac))
			tail := r.transform.WorldToMinimap(lerpWorld(s.Origin, s.Target, tailFrac))
			out = append(out, DrawCommand{Kind: CmdShotTracer, ShotTracer: &ShotTracerCmd{Head: head, Tail: tail}})
		}
	}
	return out
}

func distance(a, b decode.WorldPos) float64 {
	dx := float64(b.X - a.X)
	dz := float64(b.Z - a.Z)
	return math.Sqrt(dx*dx + dz*dz)
}

const fallbackFlightDuration = 6.0

func flightDuration(dist float64, speed float32) float64 {
	if speed <= 0 {
		return fallbackFlightDuration
	}
	return dist / float64(speed)
}

func lerpWorld(a, b decode.WorldPos, frac float64) decode.WorldPos {
	return decode.WorldPos{
		X: a.X + float32(frac)*(b.X-a.X),
		Z: a.Z + float32(frac)*(b.Z-a.Z),
	}
}

func (r *Renderer) torpedoCommands(now decode.GameClock, c *Controller) []DrawCommand {
	var out []DrawCommand
	for _, t := range c.ActiveTorpedoes() {
		elapsed := float64(now - t.LaunchedAt)
		if elapsed < 0 {
			continue
		}
		pos := decode.WorldPos{
			X: t.Torpedo.Origin.X + t.Torpedo.Direction.X*t.Torpedo.Speed*float32(elapsed),
			Z: t.Torpedo.Origin.Z + t.Torpedo.Direction.Z*t.Torpedo.Speed*float32(elapsed),
		}
		if !withinMap(pos, r.transform.SpaceSize) {
			continue
		}
		yaw := math.Atan2(float64(t.Torpedo.Direction.X), float64(t.Torpedo.Direction.Z))
		out = append(out, DrawCommand{Kind: CmdTorpedo, Torpedo: &TorpedoCmd{Pos: r.transform.WorldToMinimap(pos), Yaw: float32(yaw)}})
	}
	return out
}

func withinMap(p decode.WorldPos, spaceSize float64) bool {
	half := spaceSize / 2
	return math.Abs(float64(p.X)) <= half && math.Abs(float64(p.Z)) <= half
}

func (r *Renderer) planeCommands(c *Controller) []DrawCommand {
	var out []DrawCommand
	for _, plane := range c.ActivePlanes() {
		pos := r.transform.NormalizedToMinimap(plane.Pos)
		out = append(out, DrawCommand{Kind: CmdPlane, Plane: &PlaneCmd{Pos: pos}})
	}
	return out
}

func (r *Renderer) trailCommands(c *Controller) []DrawCommand {
	var out []DrawCommand
	for e, timeline := range allTimelines(c) {
		points := make([]MinimapPos, 0, len(timeline))
		if pose, ok := c.ShipPositions()[e]; ok {
			points = append(points, r.transform.WorldToMinimap(pose.Pos))
		}
		if len(points) > 0 {
			out = append(out, DrawCommand{Kind: CmdPositionTrail, Trail: &PositionTrailCmd{Points: points}})
		}
	}
	return out
}

func allTimelines(c *Controller) map[decode.EntityId][]battle.YawSample {
	out := make(map[decode.EntityId][]battle.YawSample)
	for e := range c.MinimapPositions() {
		if t := c.YawTimeline(e); len(t) > 0 {
			out[e] = t
		}
	}
	return out
}

// scoreBarCommand reports both teams' raw score plus an optional
// "mm:ss"-formatted time-to-win string per team, derived from the same
// pps the advantage evaluator already computed — None (nil) when that
// team has no uncontested capture income.
func (r *Renderer) scoreBarCommand(c *Controller, breakdown advantage.AdvantageBreakdown, timeLeft *float64, selfTeam int) DrawCommand {
	scores := c.TeamScores()
	win := c.ScoringParams().TeamWinScore
	// breakdown has the recording player's team at index 0, while the
	// score bar is indexed by raw team, so map the pps back to raw teams.
	pps0, pps1 := breakdown.Team0PPS, breakdown.Team1PPS
	if selfTeam == 1 {
		pps0, pps1 = pps1, pps0
	}
	return DrawCommand{Kind: CmdScoreBar, ScoreBar: &ScoreBarCmd{
		Team0:      scores[0],
		Team1:      scores[1],
		Team0Color: teamColor(0, selfTeam),
		Team1Color: teamColor(1, selfTeam),
		Team0Timer: formatTimeToWin(scores[0], pps0, win),
		Team1Timer: formatTimeToWin(scores[1], pps1, win),
	}}
}

func formatTimeToWin(score, pps, win float64) *string {
	if pps <= 0 || win <= 0 {
		return nil
	}
	seconds := (win - score) / pps
	if seconds < 0 {
		seconds = 0
	}
	s := fmt.Sprintf("%02d:%02d", int(seconds)/60, int(seconds)%60)
	return &s
}

// buildTeamState tallies one team's advantage.TeamState from the
// controller's live entities. ShipsKnown counts vehicles whose max health
// is known, whether or not the Catalog resolves their species. Class
// counts stay zero for any vehicle the Catalog can't resolve (all of them
// when the Catalog is nil), which lowers that team's fleet-power and
// strategic-threat points.
func (r *Renderer) buildTeamState(c *Controller, team int) advantage.TeamState {
	var t advantage.TeamState
	t.Score = c.TeamScores()[team]

	for _, zone := range c.CapturePoints() {
		if zone.OwnerTeam == team && !zone.HasInvaders {
			t.UncontestedCaps++
		}
	}

	for e, ent := range c.EntitiesByID() {
		if ent.Kind != battle.KindVehicle || ent.Vehicle.TeamID != team {
			continue
		}
		t.ShipsTotal++
		if ent.Vehicle.IsAlive {
			t.ShipsAlive++
		}
		if ent.Vehicle.MaxHealth <= 0 {
			continue
		}
		t.ShipsKnown++
		t.TotalHP += ent.Vehicle.Health
		t.MaxHP += ent.Vehicle.MaxHealth

		if r.catalog == nil {
			continue
		}
		species, ok := r.catalog.Species(playerShipParamsID(c, e))
		if !ok {
			continue
		}
		alive := 0
		if ent.Vehicle.IsAlive {
			alive = 1
		}
		addClass(&t, species, alive, ent.Vehicle.Health, ent.Vehicle.MaxHealth)
	}
	return t
}

func playerShipParamsID(c *Controller, e decode.EntityId) decode.GameParamId {
	if p, ok := c.MetadataPlayers()[e]; ok {
		return p.ShipParamsID
	}
	return 0
}

func addClass(t *advantage.TeamState, species Species, alive int, hp, maxHP float64) {
	var cc *advantage.ClassCount
	switch species {
	case SpeciesDestroyer:
		cc = &t.Destroyers
	case SpeciesCruiser:
		cc = &t.Cruisers
	case SpeciesBattleship:
		cc = &t.Battleships
	case SpeciesSubmarine:
		cc = &t.Submarines
	case SpeciesCarrier:
		cc = &t.Carriers
	default:
		return
	}
	cc.Total++
	cc.Alive += alive
	cc.HP += hp
	cc.MaxHP += maxHP
}

// resolveSelfTeam finds the recording player's team, identified by
// whichever metadata player carries decode.RelationSelf (team 0 if none
// is found — e.g. a spectated replay with no self-relation vehicle).
func resolveSelfTeam(c *Controller) int {
	selfTeam := 0
	for _, p := range c.MetadataPlayers() {
		if p.Relation == decode.RelationSelf {
			if ent, ok := c.EntitiesByID()[p.EntityID]; ok && ent.Kind == battle.KindVehicle {
				selfTeam = ent.Vehicle.TeamID
			}
			break
		}
	}
	return selfTeam
}

// advantageBreakdown computes the evaluator's verdict and normalizes it
// so index 0 is always the recording player's team.
func (r *Renderer) advantageBreakdown(c *Controller, timeLeft *float64, selfTeam int) advantage.AdvantageBreakdown {
	t0 := r.buildTeamState(c, 0)
	t1 := r.buildTeamState(c, 1)
	breakdown := advantage.Calculate(t0, t1, c.ScoringParams(), timeLeft)
	if selfTeam == 1 {
		return advantage.SwapBreakdown(breakdown)
	}
	return breakdown
}

func (r *Renderer) teamAdvantageCommand(breakdown advantage.AdvantageBreakdown, selfTeam int) DrawCommand {
	label := "Even"
	switch breakdown.Winner {
	case 0:
		label = "Leading"
	case 1:
		label = "Trailing"
	}
	return DrawCommand{Kind: CmdTeamAdvantage, TeamAdv: &TeamAdvantageCmd{Label: label, Breakdown: breakdown}}
}

func (r *Renderer) killFeedCommand(now decode.GameClock, c *Controller) DrawCommand {
	var entries []KillFeedEntry
	kills := c.Kills()
	for i := len(kills) - 1; i >= 0 && len(entries) < 5; i-- {
		k := kills[i]
		if float64(now-k.Clock) > killFeedDuration {
			continue
		}
		entries = append([]KillFeedEntry{{Cause: k.Cause}}, entries...)
	}
	return DrawCommand{Kind: CmdKillFeed, KillFeed: &KillFeedCmd{Entries: entries}}
}

// chatOverlayCommand carries the most recent chat lines, each fading out
// over killFeedDuration seconds past its own clock — the original's
// ChatEntry.opacity field (SPEC_FULL.md §3), reused here rather than a
// second magic constant since both overlays share the same "recent
// events decay" shape.
func (r *Renderer) chatOverlayCommand(now decode.GameClock, c *Controller) *DrawCommand {
	chat := c.GameChat()
	if len(chat) == 0 {
		return nil
	}
	var entries []ChatEntry
	for i := len(chat) - 1; i >= 0 && len(entries) < 5; i-- {
		m := chat[i]
		age := float64(now - m.Clock)
		if age < 0 || age > killFeedDuration {
			continue
		}
		opacity := float32(1.0 - age/killFeedDuration)
		name := fmt.Sprintf("account-%d", uint64(m.SenderID))
		if p, ok := c.MetadataPlayers()[c.PlayerEntities()[m.SenderID]]; ok && r.display.PlayerNames {
			name = p.CurrentState.Name
		}
		entries = append([]ChatEntry{{SenderName: name, Message: m.Message, Opacity: opacity}}, entries...)
	}
	if len(entries) == 0 {
		return nil
	}
	return &DrawCommand{Kind: CmdChatOverlay, Chat: &ChatOverlayCmd{Entries: entries}}
}

// resultOverlayCommand only fires once the controller has actually
// recorded a BattleEnd packet and now has reached that clock — a replay
// played up to mid-match never shows a winner it hasn't happened yet.
func (r *Renderer) resultOverlayCommand(now decode.GameClock, c *Controller) *DrawCommand {
	end := c.BattleEndClock()
	if end == nil || now < *end {
		return nil
	}
	scores := c.TeamScores()
	return &DrawCommand{Kind: CmdBattleResultOverlay, Result: &BattleResultOverlayCmd{
		WinningTeam: c.WinningTeam(), Team0Score: scores[0], Team1Score: scores[1],
	}}
}
