package advantage

import "testing"

func fullClass(alive int) ClassCount {
	return ClassCount{Alive: alive, Total: alive, HP: float64(alive) * 30000, MaxHP: float64(alive) * 30000}
}

func evenTeams() (TeamState, TeamState) {
	mk := func() TeamState {
		return TeamState{
			Score: 500, ShipsAlive: 5, ShipsTotal: 5, ShipsKnown: 5,
			Destroyers: fullClass(1), Cruisers: fullClass(1), Battleships: fullClass(1),
			Submarines: fullClass(1), Carriers: fullClass(1),
		}
	}
	return mk(), mk()
}

func seconds(s float64) *float64 { return &s }

func TestEvenGameStart(t *testing.T) {
	t0, t1 := evenTeams()
	b := Calculate(t0, t1, DefaultScoringParams(), seconds(600))

	if b.Total(0) != b.Total(1) {
		t.Fatalf("expected equal totals for identical teams, got %v vs %v", b.Total(0), b.Total(1))
	}
	if b.Level != LevelEven {
		t.Fatalf("expected Even level, got %v", b.Level)
	}
	if b.Winner != -1 {
		t.Fatalf("expected no winner, got %d", b.Winner)
	}
}

func TestTeamEliminated(t *testing.T) {
	t0 := TeamState{Score: 500, ShipsAlive: 0, ShipsTotal: 3, ShipsKnown: 3}
	t1 := TeamState{Score: 500, ShipsAlive: 3, ShipsTotal: 3, ShipsKnown: 3, Cruisers: fullClass(3)}

	b := Calculate(t0, t1, DefaultScoringParams(), seconds(300))
	if !b.TeamEliminated {
		t.Fatalf("expected TeamEliminated true")
	}
	if b.Level != LevelAbsolute {
		t.Fatalf("expected Absolute level, got %v", b.Level)
	}
	if b.Winner != 1 {
		t.Fatalf("expected team1 to win, got %d", b.Winner)
	}
	if b.Total(1) != MaxScoreProjection+MaxFleetPower+MaxStrategicThreat {
		t.Fatalf("surviving team should get max total, got %v", b.Total(1))
	}
	if b.Total(0) != 0 {
		t.Fatalf("eliminated team should get 0, got %v", b.Total(0))
	}
}

func TestTeamEliminatedOther(t *testing.T) {
	t0 := TeamState{Score: 500, ShipsAlive: 3, ShipsTotal: 3, ShipsKnown: 3, Battleships: fullClass(3)}
	t1 := TeamState{Score: 500, ShipsAlive: 0, ShipsTotal: 3, ShipsKnown: 3}

	b := Calculate(t0, t1, DefaultScoringParams(), seconds(300))
	if b.Winner != 0 {
		t.Fatalf("expected team0 to win, got %d", b.Winner)
	}
}

func TestBothEliminatedIsEven(t *testing.T) {
	t0 := TeamState{Score: 500, ShipsAlive: 0, ShipsTotal: 3, ShipsKnown: 3}
	t1 := TeamState{Score: 500, ShipsAlive: 0, ShipsTotal: 3, ShipsKnown: 3}

	b := Calculate(t0, t1, DefaultScoringParams(), seconds(300))
	if b.Level != LevelEven || b.Winner != -1 {
		t.Fatalf("expected Even/no-winner for mutual elimination, got level=%v winner=%d", b.Level, b.Winner)
	}
}

func TestZeroShipsTotalIsEven(t *testing.T) {
	t0 := TeamState{ShipsTotal: 0}
	t1 := TeamState{Score: 900, ShipsAlive: 3, ShipsTotal: 3, ShipsKnown: 3, Cruisers: fullClass(3)}

	b := Calculate(t0, t1, DefaultScoringParams(), seconds(300))
	if b.Level != LevelEven {
		t.Fatalf("expected Even for zero-ships side, got %v", b.Level)
	}
}

func TestAllBreakdownValuesNonNegative(t *testing.T) {
	t0 := TeamState{Score: 0, ShipsAlive: 2, ShipsTotal: 3, ShipsKnown: 2, Destroyers: fullClass(2)}
	t1 := TeamState{Score: 900, ShipsAlive: 5, ShipsTotal: 5, ShipsKnown: 5, Battleships: fullClass(5)}
	b := Calculate(t0, t1, DefaultScoringParams(), seconds(0))

	if b.ScoreProjection[0].Points < 0 || b.ScoreProjection[1].Points < 0 {
		t.Fatalf("negative score projection: %+v", b.ScoreProjection)
	}
	if b.FleetPower[0].Points < 0 || b.FleetPower[1].Points < 0 {
		t.Fatalf("negative fleet power: %+v", b.FleetPower)
	}
	if b.StrategicThreat[0].Points < 0 || b.StrategicThreat[1].Points < 0 {
		t.Fatalf("negative strategic threat: %+v", b.StrategicThreat)
	}
}

func TestScoreGapGivesPointsToLeader(t *testing.T) {
	t0 := TeamState{Score: 800, ShipsAlive: 1, ShipsTotal: 1, ShipsKnown: 1, Cruisers: fullClass(1)}
	t1 := TeamState{Score: 200, ShipsAlive: 1, ShipsTotal: 1, ShipsKnown: 1, Cruisers: fullClass(1)}

	b := Calculate(t0, t1, DefaultScoringParams(), seconds(300))
	if b.ScoreProjection[0].Points <= b.ScoreProjection[1].Points {
		t.Fatalf("leading team should score higher projection, got %v vs %v",
			b.ScoreProjection[0].Points, b.ScoreProjection[1].Points)
	}
}

func TestCapAdvantageProjectsWin(t *testing.T) {
	t0 := TeamState{Score: 500, UncontestedCaps: 2, ShipsAlive: 1, ShipsTotal: 1, ShipsKnown: 1, Cruisers: fullClass(1)}
	t1 := TeamState{Score: 500, UncontestedCaps: 0, ShipsAlive: 1, ShipsTotal: 1, ShipsKnown: 1, Cruisers: fullClass(1)}

	b := Calculate(t0, t1, DefaultScoringParams(), seconds(200))
	if b.ScoreProjection[0].Points <= b.ScoreProjection[1].Points {
		t.Fatalf("capturing team should project ahead, got %v vs %v",
			b.ScoreProjection[0].Points, b.ScoreProjection[1].Points)
	}
}

func TestFleetPower12v6StrongAdvantage(t *testing.T) {
	t0 := TeamState{ShipsAlive: 12, ShipsTotal: 12, ShipsKnown: 12, Battleships: fullClass(12)}
	t1 := TeamState{ShipsAlive: 6, ShipsTotal: 6, ShipsKnown: 6, Battleships: fullClass(6)}

	b := Calculate(t0, t1, DefaultScoringParams(), seconds(300))
	if b.FleetPower[0].Points <= b.FleetPower[1].Points {
		t.Fatalf("expected team0 to have more fleet power, got %v vs %v", b.FleetPower[0].Points, b.FleetPower[1].Points)
	}
	ratio := b.FleetPower[0].Points / b.FleetPower[1].Points
	if ratio < 1.8 || ratio > 2.2 {
		t.Fatalf("expected roughly 2:1 split for 12v6, got ratio %v", ratio)
	}
}

func TestFleetPower2v1LessExtreme(t *testing.T) {
	t0 := TeamState{ShipsAlive: 2, ShipsTotal: 2, ShipsKnown: 2, Battleships: fullClass(2)}
	t1 := TeamState{ShipsAlive: 1, ShipsTotal: 1, ShipsKnown: 1, Battleships: fullClass(1)}

	b := Calculate(t0, t1, DefaultScoringParams(), seconds(300))
	if b.FleetPower[0].Points <= b.FleetPower[1].Points {
		t.Fatalf("expected team0 to lead, got %v vs %v", b.FleetPower[0].Points, b.FleetPower[1].Points)
	}
}

func TestDDSurvivalGivesThreatPoints(t *testing.T) {
	t0 := TeamState{ShipsAlive: 3, ShipsTotal: 3, ShipsKnown: 3, Destroyers: fullClass(3)}
	t1 := TeamState{ShipsAlive: 3, ShipsTotal: 3, ShipsKnown: 3, Battleships: fullClass(3)}

	b := Calculate(t0, t1, DefaultScoringParams(), seconds(300))
	if b.StrategicThreat[0].Points <= b.StrategicThreat[1].Points {
		t.Fatalf("destroyer-heavy team should score higher strategic threat, got %v vs %v",
			b.StrategicThreat[0].Points, b.StrategicThreat[1].Points)
	}
}

func TestSubmarineHardToKill(t *testing.T) {
	t0 := TeamState{ShipsAlive: 2, ShipsTotal: 2, ShipsKnown: 2, Submarines: fullClass(2)}
	t1 := TeamState{ShipsAlive: 2, ShipsTotal: 2, ShipsKnown: 2, Cruisers: fullClass(2)}

	b := Calculate(t0, t1, DefaultScoringParams(), seconds(300))
	if b.StrategicThreat[0].Points <= b.StrategicThreat[1].Points {
		t.Fatalf("submarine team should score higher strategic threat, got %v vs %v",
			b.StrategicThreat[0].Points, b.StrategicThreat[1].Points)
	}
}

func TestClassDiversityBonus(t *testing.T) {
	diverse := TeamState{
		ShipsAlive: 5, ShipsTotal: 5, ShipsKnown: 5,
		Destroyers: fullClass(1), Cruisers: fullClass(1), Battleships: fullClass(1),
		Submarines: fullClass(1), Carriers: fullClass(1),
	}
	uniform := TeamState{ShipsAlive: 5, ShipsTotal: 5, ShipsKnown: 5, Cruisers: fullClass(5)}

	b := Calculate(diverse, uniform, DefaultScoringParams(), seconds(300))
	if b.StrategicThreat[0].Points <= 0 {
		t.Fatalf("diverse fleet should score positive strategic threat, got %v", b.StrategicThreat[0].Points)
	}
}

func TestNoTimeLeftLimitsScoreProjection(t *testing.T) {
	t0 := TeamState{Score: 1000, UncontestedCaps: 1, ShipsAlive: 1, ShipsTotal: 1, ShipsKnown: 1, Cruisers: fullClass(1)}
	t1 := TeamState{Score: 0, ShipsAlive: 1, ShipsTotal: 1, ShipsKnown: 1, Cruisers: fullClass(1)}

	b := Calculate(t0, t1, DefaultScoringParams(), seconds(0))
	// With time_left == 0 the time-to-win subfactor never fires (it needs
	// ttw < time_left) and the projection equals the current scores, so
	// only the current-gap subfactor (cap 4) and the projected-gap
	// subfactor (3 for a 1000-point gap) contribute: 7, short of the cap 10.
	if b.ScoreProjection[0].Points != 7 {
		t.Fatalf("expected score projection of 7 (current gap 4 + projected gap 3) with no time left, got %v",
			b.ScoreProjection[0].Points)
	}
}

func TestIncompleteEntityDataSkipsFleetAndThreat(t *testing.T) {
	t0 := TeamState{Score: 300, ShipsAlive: 2, ShipsTotal: 3, ShipsKnown: 1}
	t1 := TeamState{Score: 700, ShipsAlive: 3, ShipsTotal: 3, ShipsKnown: 3, Cruisers: fullClass(3)}

	b := Calculate(t0, t1, DefaultScoringParams(), seconds(300))
	if b.FleetPower[0].Points != 0 || b.FleetPower[1].Points != 0 {
		t.Fatalf("expected zero fleet power when HP data is incomplete on either side, got %+v", b.FleetPower)
	}
	if b.StrategicThreat[0].Points != 0 || b.StrategicThreat[1].Points != 0 {
		t.Fatalf("expected zero strategic threat when HP data is incomplete, got %+v", b.StrategicThreat)
	}
}

func TestSwapBreakdownFlipsTuplesAndWinner(t *testing.T) {
	t0, t1 := evenTeams()
	t0.Score = 900
	b := Calculate(t0, t1, DefaultScoringParams(), seconds(300))
	swapped := SwapBreakdown(b)

	if swapped.ScoreProjection[0] != b.ScoreProjection[1] || swapped.ScoreProjection[1] != b.ScoreProjection[0] {
		t.Fatalf("score projection not flipped: %+v vs %+v", swapped.ScoreProjection, b.ScoreProjection)
	}
	if swapped.Team0PPS != b.Team1PPS {
		t.Fatalf("pps not flipped: %v vs %v", swapped.Team0PPS, b.Team1PPS)
	}
	if b.Winner == 0 && swapped.Winner != 1 {
		t.Fatalf("winner not flipped: original %d, swapped %d", b.Winner, swapped.Winner)
	}
}
