package battle

import (
	"testing"

	"wows-timelapse/internal/advantage"
	"wows-timelapse/internal/decode"
	"wows-timelapse/internal/diag"
)

func newTestController() *Controller {
	meta := decode.Meta{
		Vehicles: []decode.Vehicle{
			{AccountID: 1001, Name: "alpha", ShipParamsID: 55, Relation: decode.RelationSelf},
		},
	}
	return New(meta, decode.Version{Major: 0, Minor: 11, Patch: 8}, advantage.DefaultScoringParams(), diag.NewLog(100))
}

func TestEntityCreateVehicleThenPositionUpdate(t *testing.T) {
	c := newTestController()
	c.Process(0, decode.EntityCreate{
		EntityID: 10, Kind: decode.EntityVehicle,
		Props: map[string]decode.PropertyValue{
			"health":    {Kind: decode.PropFloat, Float: 30000},
			"maxHealth": {Kind: decode.PropFloat, Float: 30000},
			"teamId":    {Kind: decode.PropInt, Int: 0},
		},
	})
	ent, ok := c.EntitiesByID()[10]
	if !ok || ent.Kind != KindVehicle {
		t.Fatalf("expected vehicle entity 10 to exist")
	}
	if ent.Vehicle.Health != 30000 {
		t.Fatalf("expected health 30000, got %v", ent.Vehicle.Health)
	}

	c.Process(5, decode.Position{EntityID: 10, Pos: decode.WorldPos{X: 100, Z: 200}, Yaw: 1.0})
	pose, ok := c.ShipPositions()[10]
	if !ok || pose.Pos.X != 100 {
		t.Fatalf("expected position update to be stored, got %+v ok=%v", pose, ok)
	}
	if c.Clock() != 5 {
		t.Fatalf("expected clock to advance to 5, got %v", c.Clock())
	}
}

func TestMinimapDisappearPreservesHeading(t *testing.T) {
	c := newTestController()
	c.Process(0, decode.MinimapUpdate{Updates: []decode.MinimapEntityUpdate{
		{EntityID: 20, Pos: decode.NormalizedPos{X: 0.1, Y: 0.2}, HeadingDeg: 90, IsDisappearing: false},
	}})
	c.Process(1, decode.MinimapUpdate{Updates: []decode.MinimapEntityUpdate{
		{EntityID: 20, Pos: decode.NormalizedPos{X: 0.15, Y: 0.25}, HeadingDeg: 0, IsDisappearing: true},
	}})

	sample := c.MinimapPositions()[20]
	if sample.HeadingDeg != 90 {
		t.Fatalf("expected heading preserved at 90 across disappear, got %v", sample.HeadingDeg)
	}
	if sample.Visible {
		t.Fatalf("expected entity marked not visible once disappearing")
	}
	if len(c.YawTimeline(20)) != 1 {
		t.Fatalf("expected yaw timeline to only grow on non-disappearing samples, got %d entries", len(c.YawTimeline(20)))
	}
}

func TestDeadShipInvariantAfterShipDestroyed(t *testing.T) {
	c := newTestController()
	c.Process(0, decode.EntityCreate{EntityID: 10, Kind: decode.EntityVehicle})
	c.Process(1, decode.Position{EntityID: 10, Pos: decode.WorldPos{X: 50, Z: 60}})
	c.Process(2, decode.ShipDestroyed{Killer: 11, Victim: 10, Cause: decode.DeathCauseArtillery})

	dead, ok := c.DeadShips()[10]
	if !ok {
		t.Fatalf("expected DeadShip record for entity 10")
	}
	if dead.Position.X != 50 {
		t.Fatalf("expected dead ship position carried from last known position, got %+v", dead.Position)
	}
	if c.EntitiesByID()[10].Vehicle.IsAlive {
		t.Fatalf("expected vehicle marked not alive after ShipDestroyed")
	}
}

func TestShotKillsRemovesMatchingTorpedo(t *testing.T) {
	c := newTestController()
	c.Process(0, decode.TorpedoesReceived{EntityID: 10, Torpedoes: []decode.TorpedoLaunch{
		{Owner: 10, ShotID: 555},
		{Owner: 10, ShotID: 556},
	}})
	if len(c.ActiveTorpedoes()) != 2 {
		t.Fatalf("expected 2 active torpedoes, got %d", len(c.ActiveTorpedoes()))
	}

	c.Process(1, decode.ShotKills{EntityID: 10, Hits: []decode.ShotHit{{Owner: 10, ShotID: 555}}})
	remaining := c.ActiveTorpedoes()
	if len(remaining) != 1 || remaining[0].Torpedo.ShotID != 556 {
		t.Fatalf("expected only shot 556 to remain, got %+v", remaining)
	}
}

func TestTorpedoSafetyTimeoutExpires(t *testing.T) {
	c := newTestController()
	c.Process(0, decode.TorpedoesReceived{EntityID: 10, Torpedoes: []decode.TorpedoLaunch{{Owner: 10, ShotID: 1}}})
	c.Process(200, decode.MinimapUpdate{}) // advance the clock past the safety timeout
	if len(c.ActiveTorpedoes()) != 0 {
		t.Fatalf("expected torpedo to expire after safety timeout, got %d remaining", len(c.ActiveTorpedoes()))
	}
}

func TestCapturePointDenseIndexGrowth(t *testing.T) {
	c := newTestController()
	c.Process(0, decode.EntityCreate{
		EntityID: 30, Kind: decode.EntityInteractiveZone,
		Props: map[string]decode.PropertyValue{"index": {Kind: decode.PropInt, Int: 2}},
	})
	if len(c.CapturePoints()) != 3 {
		t.Fatalf("expected capture_points to grow to include index 2, got len %d", len(c.CapturePoints()))
	}
}

func TestPropertyUpdateTeamScore(t *testing.T) {
	c := newTestController()
	c.Process(0, decode.PropertyUpdate{
		EntityID: 0,
		Path: []decode.PathElem{
			{Key: "state"}, {Key: "missions"}, {Key: "teamsScore"}, {IsIndex: true, Index: 1},
		},
		Action: decode.UpdateAction{Kind: decode.ActionSetKey, Key: "score", Value: decode.PropertyValue{Kind: decode.PropInt, Int: 750}},
	})
	if c.TeamScores()[1] != 750 {
		t.Fatalf("expected team_scores[1] == 750, got %v", c.TeamScores()[1])
	}
}

func TestCaptureLogicPropertyUpdate(t *testing.T) {
	c := newTestController()
	c.Process(0, decode.EntityCreate{
		EntityID: 30, Kind: decode.EntityInteractiveZone,
		Props: map[string]decode.PropertyValue{"index": {Kind: decode.PropInt, Int: 0}},
	})
	c.Process(1, decode.PropertyUpdate{
		EntityID: 30,
		Path:     []decode.PathElem{{Key: "componentsState"}, {Key: "captureLogic"}},
		Action:   decode.UpdateAction{Kind: decode.ActionSetKey, Key: "hasInvaders", Value: decode.PropertyValue{Kind: decode.PropInt, Int: 1}},
	})
	if !c.CapturePoints()[0].HasInvaders {
		t.Fatalf("expected hasInvaders true after PropertyUpdate")
	}
}

func TestChatAppendsGameMessage(t *testing.T) {
	c := newTestController()
	c.Process(3, decode.Chat{SenderID: 1001, Audience: decode.AudienceTeam, Message: "gg"})
	msgs := c.GameChat()
	if len(msgs) != 1 || msgs[0].Message != "gg" {
		t.Fatalf("expected one chat message, got %+v", msgs)
	}
}

func TestInvalidPayloadIsIgnoredNotFatal(t *testing.T) {
	c := newTestController()
	c.Process(0, decode.Invalid{PacketType: 99, Reason: "short read"})
	if c.Clock() != 0 {
		t.Fatalf("clock should still be 0")
	}
}

func TestBuildReportIncludesPlayersAndKills(t *testing.T) {
	c := newTestController()
	c.Process(0, decode.EntityCreate{EntityID: 10, Kind: decode.EntityVehicle})
	c.Process(1, decode.OnArenaStateReceived{
		PlayerStates: []decode.PlayerState{{AvatarID: 1001, Name: "alpha", ShipID: 55, Fields: map[string]decode.PropertyValue{}}},
	})
	c.Process(2, decode.ShipDestroyed{Killer: 11, Victim: 10, Cause: decode.DeathCauseTorpedo})

	report := c.BuildReport()
	if len(report.Kills) != 1 {
		t.Fatalf("expected 1 kill in report, got %d", len(report.Kills))
	}
}
