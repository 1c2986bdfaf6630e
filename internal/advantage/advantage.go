// Package advantage computes each team's capped, point-based strategic
// advantage at a given clock from three independent factors: projected
// score outcome, fleet power, and strategic threat. The evaluator is a
// pure function of its inputs — no entity lookups, no I/O, no global
// state — so it is trivial to unit test exhaustively.
package advantage

import "math"

// Ship-class weights shared by the fleet-power and strategic-threat
// factors. A destroyer or submarine counts for more than its raw
// hitpoints would suggest, reflecting stealth/torpedo potential; a
// carrier's weight reflects strike potential.
const (
	WeightDestroyer  = 1.5
	WeightCruiser    = 1.0
	WeightBattleship = 1.0
	WeightSubmarine  = 1.3
	WeightCarrier    = 1.2
)

// Per-factor point caps.
const (
	MaxScoreProjection = 10.0
	MaxFleetPower      = 10.0
	MaxStrategicThreat = 5.0
)

// ClassCount is one team's per-class tally for a single ship class:
// how many are alive vs. started, and total/max hitpoints across the
// alive ones.
type ClassCount struct {
	Alive, Total int
	HP, MaxHP    float64
}

// TeamState is one team's complete input to the evaluator at a clock.
type TeamState struct {
	Score            float64
	UncontestedCaps  int
	TotalHP, MaxHP   float64
	ShipsAlive       int
	ShipsTotal       int
	ShipsKnown       int // ships whose HP is actually known this clock
	Destroyers       ClassCount
	Cruisers         ClassCount
	Battleships      ClassCount
	Submarines       ClassCount
	Carriers         ClassCount
}

func (t TeamState) hpReliable() bool {
	return t.ShipsKnown == t.ShipsTotal
}

func (t TeamState) eliminated() bool {
	return t.ShipsTotal > 0 && t.ShipsAlive == 0
}

// ScoringParams carries the capture-scoring constants the evaluator
// uses. Nothing in this module reads them from a replay file;
// cmd/timelapse passes DefaultScoringParams for every run.
type ScoringParams struct {
	TeamWinScore float64
	HoldReward   float64
	HoldPeriod   float64
}

// DefaultScoringParams matches the common ranked/random battle
// configuration; cmd/timelapse uses it for every replay.
func DefaultScoringParams() ScoringParams {
	return ScoringParams{TeamWinScore: 1000, HoldReward: 10, HoldPeriod: 5}
}

// AdvantageLevel buckets the gap between the two teams' totals.
type AdvantageLevel int

const (
	LevelEven AdvantageLevel = iota
	LevelWeak
	LevelModerate
	LevelStrong
	LevelAbsolute
)

func levelForGap(gap float64) AdvantageLevel {
	gap = math.Abs(gap)
	switch {
	case gap >= 10:
		return LevelAbsolute
	case gap >= 6:
		return LevelStrong
	case gap >= 3:
		return LevelModerate
	case gap >= 1:
		return LevelWeak
	default:
		return LevelEven
	}
}

// Factor is one team's (points, cap) pair for one of the three factors.
type Factor struct {
	Points float64
	Cap    float64
}

// AdvantageBreakdown is the full evaluator output for both teams.
// Team0PPS/Team1PPS are the raw capture-income points-per-second values
// the HUD prints next to the advantage label ("+0.6 pts/s") — a
// display-facing field not itself part of the point totals.
type AdvantageBreakdown struct {
	ScoreProjection [2]Factor
	FleetPower      [2]Factor
	StrategicThreat [2]Factor
	Team0PPS        float64
	Team1PPS        float64
	TeamEliminated  bool
	Level           AdvantageLevel
	Winner          int // team with the higher total, even when Level is Even; -1 when the totals are equal
}

// Total sums a team's three factor points (team is 0 or 1).
func (b AdvantageBreakdown) Total(team int) float64 {
	return b.ScoreProjection[team].Points + b.FleetPower[team].Points + b.StrategicThreat[team].Points
}

func emptyBreakdown() AdvantageBreakdown {
	return AdvantageBreakdown{
		ScoreProjection: [2]Factor{{0, MaxScoreProjection}, {0, MaxScoreProjection}},
		FleetPower:      [2]Factor{{0, MaxFleetPower}, {0, MaxFleetPower}},
		StrategicThreat: [2]Factor{{0, MaxStrategicThreat}, {0, MaxStrategicThreat}},
		Level:           LevelEven,
		Winner:          -1,
	}
}

// maxBreakdown awards every cap to `winner` and zero to the other side —
// used for the full-elimination short-circuit.
func maxBreakdown(winner int) AdvantageBreakdown {
	b := emptyBreakdown()
	b.ScoreProjection[winner] = Factor{MaxScoreProjection, MaxScoreProjection}
	b.FleetPower[winner] = Factor{MaxFleetPower, MaxFleetPower}
	b.StrategicThreat[winner] = Factor{MaxStrategicThreat, MaxStrategicThreat}
	b.TeamEliminated = true
	b.Level = LevelAbsolute
	b.Winner = winner
	return b
}

// Calculate evaluates both teams' advantage at the current clock.
// timeLeft is the remaining match time in seconds, or nil if unknown
// (Option<time_left_seconds> in the design).
func Calculate(team0, team1 TeamState, params ScoringParams, timeLeft *float64) AdvantageBreakdown {
	if team0.ShipsTotal == 0 || team1.ShipsTotal == 0 {
		return emptyBreakdown()
	}

	elim0, elim1 := team0.eliminated(), team1.eliminated()
	bothReliable := team0.hpReliable() && team1.hpReliable()
	if bothReliable {
		if elim0 && elim1 {
			return emptyBreakdown()
		}
		if elim0 {
			return maxBreakdown(1)
		}
		if elim1 {
			return maxBreakdown(0)
		}
	}

	sp0, sp1, pps0, pps1 := scoreProjection(team0, team1, params, timeLeft)

	var fp0, fp1, st0, st1 float64
	if bothReliable {
		fp0, fp1 = fleetPower(team0, team1)
		st0, st1 = strategicThreat(team0, team1, timeLeft)
	}

	b := AdvantageBreakdown{
		ScoreProjection: [2]Factor{{sp0, MaxScoreProjection}, {sp1, MaxScoreProjection}},
		FleetPower:      [2]Factor{{fp0, MaxFleetPower}, {fp1, MaxFleetPower}},
		StrategicThreat: [2]Factor{{st0, MaxStrategicThreat}, {st1, MaxStrategicThreat}},
		Team0PPS:        pps0,
		Team1PPS:        pps1,
	}
	gap := b.Total(0) - b.Total(1)
	b.Level = levelForGap(gap)
	switch {
	case gap > 0:
		b.Winner = 0
	case gap < 0:
		b.Winner = 1
	default:
		b.Winner = -1
	}
	return b
}

// pps (capture income in points/second) is uncontested_caps * hold_reward
// / hold_period, zero when hold_period is zero.
func pps(caps int, params ScoringParams) float64 {
	if params.HoldPeriod == 0 {
		return 0
	}
	return float64(caps) * params.HoldReward / params.HoldPeriod
}

// scoreProjection implements Factor 1: current-gap, time-to-win, and
// projected-gap subfactors, summing to at most MaxScoreProjection per team.
func scoreProjection(team0, team1 TeamState, params ScoringParams, timeLeft *float64) (p0, p1, pps0, pps1 float64) {
	win := params.TeamWinScore
	if win <= 0 {
		win = DefaultScoringParams().TeamWinScore
	}
	pps0 = pps(team0.UncontestedCaps, params)
	pps1 = pps(team1.UncontestedCaps, params)

	var tLeft float64
	if timeLeft != nil {
		tLeft = *timeLeft
	}

	proj0 := math.Min(win, team0.Score+pps0*tLeft)
	proj1 := math.Min(win, team1.Score+pps1*tLeft)

	ttw0 := math.Inf(1)
	if pps0 > 0 {
		ttw0 = (win - team0.Score) / pps0
	}
	ttw1 := math.Inf(1)
	if pps1 > 0 {
		ttw1 = (win - team1.Score) / pps1
	}

	// Subfactor A: current gap, cap 4, to the leader.
	gapA := math.Min(4, math.Abs(team0.Score-team1.Score)/win*4)
	var a0, a1 float64
	if team0.Score > team1.Score {
		a0 = gapA
	} else if team1.Score > team0.Score {
		a1 = gapA
	}

	// Subfactor B: time-to-win, cap 3, to the faster (lower ttw) side.
	var b0, b1 float64
	ttw0Valid := !math.IsInf(ttw0, 1) && ttw0 < tLeft
	ttw1Valid := !math.IsInf(ttw1, 1) && ttw1 < tLeft
	switch {
	case ttw0Valid && ttw1Valid:
		deltaTTW := math.Abs(ttw0 - ttw1)
		points := ttwBand(deltaTTW)
		if ttw0 < ttw1 {
			b0 = points
		} else if ttw1 < ttw0 {
			b1 = points
		}
	case ttw0Valid:
		b0 = 3
	case ttw1Valid:
		b1 = 3
	}

	// Subfactor C: projected-gap, cap 3.
	deltaProj := math.Abs(proj0 - proj1)
	gapC := projGapBand(deltaProj)
	var c0, c1 float64
	if proj0 > proj1 {
		c0 = gapC
	} else if proj1 > proj0 {
		c1 = gapC
	}

	p0 = math.Min(MaxScoreProjection, a0+b0+c0)
	p1 = math.Min(MaxScoreProjection, a1+b1+c1)
	return
}

func ttwBand(delta float64) float64 {
	switch {
	case delta > 30:
		return 3
	case delta > 10:
		return 2
	case delta > 3:
		return 1
	default:
		return 0
	}
}

func projGapBand(delta float64) float64 {
	switch {
	case delta >= 300:
		return 3
	case delta >= 150:
		return 2
	case delta >= 50:
		return 1
	default:
		return 0
	}
}

// fleetPower implements Factor 2: per-class contribution
// w_c * alive_c * (hp_c/max_hp_c), split MaxFleetPower by each team's
// share of the combined total.
func fleetPower(team0, team1 TeamState) (p0, p1 float64) {
	w0 := classContribution(team0)
	w1 := classContribution(team1)
	total := w0 + w1
	if total <= 0 {
		return 0, 0
	}
	return w0 / total * MaxFleetPower, w1 / total * MaxFleetPower
}

func classContribution(t TeamState) float64 {
	return classWeight(t.Destroyers, WeightDestroyer) +
		classWeight(t.Cruisers, WeightCruiser) +
		classWeight(t.Battleships, WeightBattleship) +
		classWeight(t.Submarines, WeightSubmarine) +
		classWeight(t.Carriers, WeightCarrier)
}

func classWeight(c ClassCount, weight float64) float64 {
	if c.MaxHP <= 0 {
		return 0
	}
	return weight * float64(c.Alive) * (c.HP / c.MaxHP)
}

// strategicThreat implements Factor 3: DD/SS survival, class diversity,
// and a carrier-count edge, time-weighted so a large fleet late in a
// near-finished match doesn't overstate future threat.
func strategicThreat(team0, team1 TeamState, timeLeft *float64) (p0, p1 float64) {
	var tLeft float64
	if timeLeft != nil {
		tLeft = *timeLeft
	}
	tw := clamp(tLeft/300.0, 0.2, 1.0)

	survival0 := math.Min(2.5, 1.0*float64(team0.Destroyers.Alive)+0.8*float64(team0.Submarines.Alive)) * tw
	survival1 := math.Min(2.5, 1.0*float64(team1.Destroyers.Alive)+0.8*float64(team1.Submarines.Alive)) * tw

	diversity0 := diversityBonus(team0)
	diversity1 := diversityBonus(team1)

	var carrier0, carrier1 float64
	if team0.Carriers.Alive > team1.Carriers.Alive {
		carrier0 = 1.0
	} else if team1.Carriers.Alive > team0.Carriers.Alive {
		carrier1 = 1.0
	}

	p0 = math.Min(MaxStrategicThreat, survival0+diversity0+carrier0)
	p1 = math.Min(MaxStrategicThreat, survival1+diversity1+carrier1)
	return
}

func diversityBonus(t TeamState) float64 {
	n := 0
	for _, alive := range []int{t.Destroyers.Alive, t.Cruisers.Alive, t.Battleships.Alive, t.Submarines.Alive, t.Carriers.Alive} {
		if alive > 0 {
			n++
		}
	}
	switch {
	case n >= 4:
		return 1.5
	case n == 3:
		return 1.0
	case n == 2:
		return 0.5
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SwapBreakdown returns a copy of b with every team0/team1 tuple and the
// winner index flipped, so the recording player's team is always index 0
// regardless of which side the replay's packet stream labels team 0.
func SwapBreakdown(b AdvantageBreakdown) AdvantageBreakdown {
	swapped := AdvantageBreakdown{
		ScoreProjection: [2]Factor{b.ScoreProjection[1], b.ScoreProjection[0]},
		FleetPower:      [2]Factor{b.FleetPower[1], b.FleetPower[0]},
		StrategicThreat: [2]Factor{b.StrategicThreat[1], b.StrategicThreat[0]},
		Team0PPS:        b.Team1PPS,
		Team1PPS:        b.Team0PPS,
		TeamEliminated:  b.TeamEliminated,
		Level:           b.Level,
		Winner:          b.Winner,
	}
	switch b.Winner {
	case 0:
		swapped.Winner = 1
	case 1:
		swapped.Winner = 0
	}
	return swapped
}
