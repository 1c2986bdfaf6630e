package raster

import (
	"fmt"
	"image/color"
	"math"

	"wows-timelapse/internal/decode"
	"wows-timelapse/internal/render"
)

// Fixed rasterizer colors. colorNeutral is what rgba falls back to when a
// DrawCommand's color field is zero-valued (the renderer leaves it unset
// on buildings, smoke, tracers, torpedoes, planes, health bars and trails).
var (
	colorNeutral = color.RGBA{200, 200, 200, 255}
	colorWhite   = color.RGBA{255, 255, 255, 255}
	haloColor    = color.RGBA{255, 230, 90, 160}
)

func rgba(c [3]uint8, alpha uint8) color.RGBA {
	if c == [3]uint8{} {
		return color.RGBA{colorNeutral.R, colorNeutral.G, colorNeutral.B, alpha}
	}
	return color.RGBA{c[0], c[1], c[2], alpha}
}

// dispatch applies one DrawCommand to the canvas. Every command carries
// HUD-agnostic minimap coordinates; dispatch is the single place that
// applies the HUD offset.
func dispatch(c *Canvas, cmd render.DrawCommand) {
	switch cmd.Kind {
	case render.CmdShotTracer:
		drawShotTracer(c, cmd.ShotTracer)
	case render.CmdTorpedo:
		drawTorpedo(c, cmd.Torpedo)
	case render.CmdSmoke:
		drawSmoke(c, cmd.Smoke)
	case render.CmdShip:
		drawShip(c, cmd.Ship)
	case render.CmdHealthBar:
		drawHealthBar(c, cmd.HealthBar)
	case render.CmdDeadShip:
		drawDeadShip(c, cmd.DeadShip)
	case render.CmdBuffZone:
		drawBuffZone(c, cmd.BuffZone)
	case render.CmdCapturePoint:
		drawCapturePoint(c, cmd.CapturePoint)
	case render.CmdTurretDirection:
		drawTurretDirection(c, cmd.TurretDir)
	case render.CmdBuilding:
		drawBuilding(c, cmd.Building)
	case render.CmdPlane:
		drawPlane(c, cmd.Plane)
	case render.CmdConsumableRadius:
		drawConsumableRadius(c, cmd.ConsumableRad)
	case render.CmdConsumableIcons:
		drawConsumableIcons(c, cmd.ConsumeIcons)
	case render.CmdPatrolRadius:
		drawPatrolRadius(c, cmd.PatrolRadius)
	case render.CmdShipConfigCircle:
		drawShipConfigCircle(c, cmd.ShipConfig)
	case render.CmdPositionTrail:
		drawPositionTrail(c, cmd.Trail)
	case render.CmdTeamBuffs:
		// Display-only; no concrete layout specified beyond the list.
	case render.CmdScoreBar:
		drawScoreBar(c, cmd.ScoreBar)
	case render.CmdTeamAdvantage:
		drawTeamAdvantage(c, cmd.TeamAdv)
	case render.CmdTimer:
		drawTimer(c, cmd.Timer)
	case render.CmdKillFeed:
		drawKillFeed(c, cmd.KillFeed)
	case render.CmdChatOverlay:
		drawChatOverlay(c, cmd.Chat)
	case render.CmdBattleResultOverlay:
		drawBattleResult(c, cmd.Result)
	}
}

func drawShotTracer(c *Canvas, cmd *render.ShotTracerCmd) {
	if cmd == nil {
		return
	}
	hx, hy := c.hudOffset(cmd.Head)
	tx, ty := c.hudOffset(cmd.Tail)
	drawLineBlend(c.rgba, tx, ty, hx, hy, 2, rgba(cmd.Color, 220))
}

func drawTorpedo(c *Canvas, cmd *render.TorpedoCmd) {
	if cmd == nil {
		return
	}
	x, y := c.hudOffset(cmd.Pos)
	if icon, ok := c.icons.Get("torpedo"); ok {
		drawIconBlend(c.rgba, icon, x, y, float64(cmd.Yaw), nil, 1)
		return
	}
	drawFilledCircleBlend(c.rgba, x, y, 2, rgba(cmd.Color, 255))
}

func drawSmoke(c *Canvas, cmd *render.SmokeCmd) {
	if cmd == nil {
		return
	}
	for _, p := range cmd.Puffs {
		x, y := c.hudOffset(p)
		drawFilledCircleBlend(c.rgba, x, y, float64(cmd.Radius), color.RGBA{210, 210, 210, 90})
	}
}

func drawShip(c *Canvas, cmd *render.ShipCmd) {
	if cmd == nil {
		return
	}
	x, y := c.hudOffset(cmd.Pos)
	opacity := cmd.Opacity
	if opacity <= 0 {
		opacity = 1
	}

	var tint *color.RGBA
	if cmd.Color != [3]uint8{} {
		t := rgba(cmd.Color, 255)
		tint = &t
	}

	icon, ok := c.icons.Get(cmd.Species)
	if !ok {
		icon, ok = c.icons.Get("ship-unknown")
	}

	if cmd.IsDetectedTeammate {
		if ok {
			drawHaloBlend(c.rgba, icon, x, y, float64(cmd.Yaw), 3, haloColor)
		} else {
			drawFilledCircleBlend(c.rgba, x, y, 8, haloColor)
		}
	}

	if ok {
		drawIconBlend(c.rgba, icon, x, y, float64(cmd.Yaw), tint, opacity)
	} else {
		col := rgba(cmd.Color, uint8(255*opacity))
		if cmd.Visibility == render.VisMinimapOnly {
			drawCircleOutlineBlend(c.rgba, x, y, 5, 2, col, false)
		} else {
			drawFilledCircleBlend(c.rgba, x, y, 5, col)
		}
	}

	if c.fonts.Small == nil {
		return
	}
	label := cmd.PlayerName
	if cmd.ShipName != "" {
		if label != "" {
			label += " - " + cmd.ShipName
		} else {
			label = cmd.ShipName
		}
	}
	if label == "" {
		return
	}
	c.dc.SetFontFace(c.fonts.Small)
	nameColor := rgba(cmd.NameColor, 255)
	c.dc.SetColor(nameColor)
	c.dc.DrawStringAnchored(label, float64(x), float64(y)+14, 0.5, 0.5)
}

func drawHealthBar(c *Canvas, cmd *render.HealthBarCmd) {
	if cmd == nil {
		return
	}
	x, y := c.hudOffset(cmd.Pos)
	const w, h = 16, 2
	bg := color.RGBA{40, 40, 40, 200}
	fg := color.RGBA{80, 220, 90, 230}
	if cmd.Fraction < 0.3 {
		fg = color.RGBA{220, 80, 80, 230}
	} else if cmd.Fraction < 0.6 {
		fg = color.RGBA{230, 200, 80, 230}
	}
	top := y - 10
	for dx := -w / 2; dx < w/2; dx++ {
		setPixelBlend(c.rgba, x+dx, top, bg)
	}
	filled := int(float32(w) * clampF(cmd.Fraction, 0, 1))
	for dx := -w / 2; dx < -w/2+filled; dx++ {
		setPixelBlend(c.rgba, x+dx, top, fg)
	}
	_ = h
}

func clampF(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func drawDeadShip(c *Canvas, cmd *render.DeadShipCmd) {
	if cmd == nil {
		return
	}
	x, y := c.hudOffset(cmd.Pos)
	col := color.RGBA{120, 30, 30, 140}
	drawLineBlend(c.rgba, x-4, y-4, x+4, y+4, 1, col)
	drawLineBlend(c.rgba, x-4, y+4, x+4, y-4, 1, col)
}

func drawBuffZone(c *Canvas, cmd *render.BuffZoneCmd) {
	if cmd == nil {
		return
	}
	x, y := c.hudOffset(cmd.Pos)
	drawCircleOutlineBlend(c.rgba, x, y, float64(cmd.Radius), 2, rgba(cmd.Color, 120), true)
}

func drawCapturePoint(c *Canvas, cmd *render.CapturePointCmd) {
	if cmd == nil {
		return
	}
	x, y := c.hudOffset(cmd.Pos)
	owner := rgba(cmd.OwnerColor, uint8(220*clampF(cmd.Alpha, 0.3, 1)))
	drawFilledCircleBlend(c.rgba, x, y, float64(cmd.Radius), owner)

	if cmd.Progress > 0 {
		invader := rgba(cmd.InvaderColor, 200)
		sweep := float64(cmd.Progress) * 2 * math.Pi
		drawPieSliceBlend(c.rgba, x, y, float64(cmd.Radius), -math.Pi/2, sweep, invader)
	}

	if c.fonts.Medium != nil && cmd.Label != "" {
		c.dc.SetFontFace(c.fonts.Medium)
		c.dc.SetColor(colorWhite)
		c.dc.DrawStringAnchored(cmd.Label, float64(x), float64(y), 0.5, 0.5)
	}
}

func drawTurretDirection(c *Canvas, cmd *render.TurretDirectionCmd) {
	if cmd == nil {
		return
	}
	x, y := c.hudOffset(cmd.Pos)
	length := 10.0
	ex := x + int(math.Cos(float64(cmd.Yaw))*length)
	ey := y - int(math.Sin(float64(cmd.Yaw))*length)
	drawLineBlend(c.rgba, x, y, ex, ey, 1, color.RGBA{255, 220, 120, 200})
}

func drawBuilding(c *Canvas, cmd *render.BuildingCmd) {
	if cmd == nil {
		return
	}
	x, y := c.hudOffset(cmd.Pos)
	col := rgba(cmd.Color, 220)
	if !cmd.Alive {
		col.A = 90
	}
	if icon, ok := c.icons.Get("building"); ok {
		drawIconBlend(c.rgba, icon, x, y, 0, nil, 1)
		return
	}
	drawFilledCircleBlend(c.rgba, x, y, 4, col)
}

func drawPlane(c *Canvas, cmd *render.PlaneCmd) {
	if cmd == nil {
		return
	}
	x, y := c.hudOffset(cmd.Pos)
	if icon, ok := c.icons.Get(cmd.IconKey); ok {
		drawIconBlend(c.rgba, icon, x, y, 0, nil, 1)
		return
	}
	drawFilledCircleBlend(c.rgba, x, y, 3, color.RGBA{230, 230, 230, 220})
}

func drawConsumableRadius(c *Canvas, cmd *render.ConsumableRadiusCmd) {
	if cmd == nil {
		return
	}
	x, y := c.hudOffset(cmd.Pos)
	drawCircleOutlineBlend(c.rgba, x, y, float64(cmd.Radius), 1, color.RGBA{120, 200, 255, 140}, true)
	if c.fonts.Small != nil && cmd.Label != "" {
		c.dc.SetFontFace(c.fonts.Small)
		c.dc.SetColor(color.RGBA{120, 200, 255, 255})
		c.dc.DrawStringAnchored(cmd.Label, float64(x), float64(y)-float64(cmd.Radius)-6, 0.5, 0.5)
	}
}

func drawConsumableIcons(c *Canvas, cmd *render.ConsumableIconsCmd) {
	if cmd == nil {
		return
	}
	x, y := c.hudOffset(cmd.Pos)
	for i, key := range cmd.Icons {
		ix := x + i*10 - (len(cmd.Icons)*10)/2
		if icon, ok := c.icons.Get(key); ok {
			drawIconBlend(c.rgba, icon, ix, y-12, 0, nil, 1)
		} else {
			drawFilledCircleBlend(c.rgba, ix, y-12, 3, color.RGBA{255, 210, 90, 220})
		}
	}
}

func drawPatrolRadius(c *Canvas, cmd *render.PatrolRadiusCmd) {
	if cmd == nil {
		return
	}
	x, y := c.hudOffset(cmd.Pos)
	drawCircleOutlineBlend(c.rgba, x, y, float64(cmd.Radius), 1, color.RGBA{255, 180, 80, 110}, true)
}

func drawShipConfigCircle(c *Canvas, cmd *render.ShipConfigCircleCmd) {
	if cmd == nil {
		return
	}
	x, y := c.hudOffset(cmd.Pos)
	col := shipConfigCircleColor(cmd.Kind)
	drawCircleOutlineBlend(c.rgba, x, y, float64(cmd.Radius), 1, col, cmd.Dashed)
	if c.fonts.Small != nil && cmd.Label != "" {
		c.dc.SetFontFace(c.fonts.Small)
		c.dc.SetColor(col)
		c.dc.DrawStringAnchored(cmd.Label, float64(x)+float64(cmd.Radius)*0.7, float64(y), 0, 0.5)
	}
}

func shipConfigCircleColor(kind render.ShipConfigCircleKind) color.RGBA {
	switch kind {
	case render.CircleDetection:
		return color.RGBA{255, 255, 255, 90}
	case render.CircleMainBattery:
		return color.RGBA{255, 120, 90, 100}
	case render.CircleSecondary:
		return color.RGBA{255, 200, 90, 100}
	case render.CircleRadar:
		return color.RGBA{120, 255, 120, 100}
	case render.CircleHydro:
		return color.RGBA{120, 180, 255, 100}
	default:
		return color.RGBA{200, 200, 200, 90}
	}
}

func drawPositionTrail(c *Canvas, cmd *render.PositionTrailCmd) {
	if cmd == nil || len(cmd.Points) < 2 {
		return
	}
	col := rgba(cmd.Color, 140)
	for i := 1; i < len(cmd.Points); i++ {
		x0, y0 := c.hudOffset(cmd.Points[i-1])
		x1, y1 := c.hudOffset(cmd.Points[i])
		drawLineBlend(c.rgba, x0, y0, x1, y1, 1, col)
	}
}

func drawScoreBar(c *Canvas, cmd *render.ScoreBarCmd) {
	if cmd == nil || c.fonts.Medium == nil {
		return
	}
	total := cmd.Team0 + cmd.Team1
	width := float64(c.width - 20)
	split := width / 2
	if total > 0 {
		split = width * cmd.Team0 / total
	}

	c.dc.SetColor(rgba(cmd.Team0Color, 255))
	c.dc.DrawRectangle(10, 4, split, 8)
	c.dc.Fill()
	c.dc.SetColor(rgba(cmd.Team1Color, 255))
	c.dc.DrawRectangle(10+split, 4, width-split, 8)
	c.dc.Fill()

	c.dc.SetFontFace(c.fonts.Small)
	c.dc.SetColor(colorWhite)
	c.dc.DrawStringAnchored(fmt.Sprintf("%.0f", cmd.Team0), 10, 20, 0, 0)
	right := fmt.Sprintf("%.0f", cmd.Team1)
	c.dc.DrawStringAnchored(right, float64(c.width-10), 20, 1, 0)

	if cmd.Team0Timer != nil {
		c.dc.DrawStringAnchored(*cmd.Team0Timer, 60, 20, 0, 0)
	}
	if cmd.Team1Timer != nil {
		c.dc.DrawStringAnchored(*cmd.Team1Timer, float64(c.width-60), 20, 1, 0)
	}
}

func drawTeamAdvantage(c *Canvas, cmd *render.TeamAdvantageCmd) {
	if cmd == nil || c.fonts.Small == nil {
		return
	}
	c.dc.SetFontFace(c.fonts.Small)
	c.dc.SetColor(colorWhite)
	label := fmt.Sprintf("%s (%.1f / %.1f)", cmd.Label, cmd.Breakdown.Total(0), cmd.Breakdown.Total(1))
	c.dc.DrawStringAnchored(label, float64(c.width)/2, 20, 0.5, 0)
}

func drawTimer(c *Canvas, cmd *render.TimerCmd) {
	if cmd == nil || c.fonts.Medium == nil {
		return
	}
	c.dc.SetFontFace(c.fonts.Medium)
	c.dc.SetColor(colorWhite)
	m, s := int(cmd.Seconds)/60, int(cmd.Seconds)%60
	c.dc.DrawStringAnchored(fmt.Sprintf("%02d:%02d", m, s), float64(c.width)/2, 10, 0.5, 0)
}

func drawKillFeed(c *Canvas, cmd *render.KillFeedCmd) {
	if cmd == nil || c.fonts.Small == nil {
		return
	}
	c.dc.SetFontFace(c.fonts.Small)
	y := float64(c.hudHeight) + 10
	for _, e := range cmd.Entries {
		c.dc.SetColor(rgba(e.KillerColor, 255))
		killer := e.KillerName
		if killer == "" {
			killer = "?"
		}
		victim := e.VictimName
		if victim == "" {
			victim = "?"
		}
		line := fmt.Sprintf("%s %s %s", killer, causeSymbol(e.Cause), victim)
		c.dc.DrawStringAnchored(line, float64(c.width)-10, y, 1, 0)
		y += 16
	}
}

func causeSymbol(cause decode.DeathCause) string {
	switch cause {
	case decode.DeathCauseArtillery:
		return "artillery"
	case decode.DeathCauseTorpedo:
		return "torpedo"
	case decode.DeathCauseBomb:
		return "bomb"
	case decode.DeathCauseFire:
		return "fire"
	case decode.DeathCauseFlooding:
		return "flooding"
	case decode.DeathCauseRamming:
		return "ramming"
	case decode.DeathCauseDepthCharge:
		return "depth charge"
	case decode.DeathCauseRocket:
		return "rocket"
	default:
		return "unknown"
	}
}

func drawChatOverlay(c *Canvas, cmd *render.ChatOverlayCmd) {
	if cmd == nil || c.fonts.Small == nil {
		return
	}
	c.dc.SetFontFace(c.fonts.Small)
	y := float64(c.height) - float64(len(cmd.Entries))*16 - 10
	for _, e := range cmd.Entries {
		alpha := uint8(255 * clampF(e.Opacity, 0, 1))
		c.dc.SetColor(color.RGBA{255, 255, 255, alpha})
		line := fmt.Sprintf("%s: %s", e.SenderName, e.Message)
		c.dc.DrawStringAnchored(line, 10, y, 0, 0)
		y += 16
	}
}

func drawBattleResult(c *Canvas, cmd *render.BattleResultOverlayCmd) {
	if cmd == nil || c.fonts.Large == nil {
		return
	}
	label := "Draw"
	if cmd.WinningTeam != nil {
		label = fmt.Sprintf("Team %d wins", *cmd.WinningTeam)
	}
	c.dc.SetFontFace(c.fonts.Large)
	c.dc.SetColor(colorWhite)
	cx, cy := float64(c.width)/2, float64(c.height)/2
	c.dc.DrawStringAnchored(label, cx, cy, 0.5, 0.5)
	c.dc.SetFontFace(c.fonts.Medium)
	c.dc.DrawStringAnchored(fmt.Sprintf("%.0f - %.0f", cmd.Team0Score, cmd.Team1Score), cx, cy+40, 0.5, 0.5)
}
