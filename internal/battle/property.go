package battle

import (
	"wows-timelapse/internal/decode"
	"wows-timelapse/internal/diag"
)

// propInt reads an integer-valued property out of an EntityCreate's
// initial props map, or returns fallback when absent.
func propInt(props map[string]decode.PropertyValue, name string, fallback int) int {
	v, ok := props[name]
	if !ok {
		return fallback
	}
	return int(v.Int)
}

func propFloat(props map[string]decode.PropertyValue, name string, fallback float64) float64 {
	v, ok := props[name]
	if !ok {
		return fallback
	}
	switch v.Kind {
	case decode.PropFloat:
		return v.Float
	case decode.PropInt:
		return float64(v.Int)
	default:
		return fallback
	}
}

func applyVehicleProps(v *VehicleProps, props map[string]decode.PropertyValue) {
	v.Health = propFloat(props, "health", v.Health)
	v.MaxHealth = propFloat(props, "maxHealth", v.MaxHealth)
	v.TeamID = propInt(props, "teamId", v.TeamID)
	if val, ok := props["isBot"]; ok {
		v.IsBot = val.Int != 0
	}
	if val, ok := props["captainId"]; ok {
		v.CaptainID = decode.AccountId(val.Int)
	}
	for k, val := range props {
		switch k {
		case "health", "maxHealth", "teamId", "isBot", "captainId":
		default:
			v.Extra[k] = val
		}
	}
}

func applyBuildingProps(b *BuildingProps, props map[string]decode.PropertyValue) {
	b.TeamID = propInt(props, "teamId", b.TeamID)
	b.ParamsID = decode.GameParamId(propInt(props, "paramsId", int(b.ParamsID)))
	if val, ok := props["hidden"]; ok {
		b.Hidden = val.Int != 0
	}
	if val, ok := props["suppressed"]; ok {
		b.Suppressed = val.Int != 0
	}
}

func applyZoneProps(z *CapturePoint, props map[string]decode.PropertyValue) {
	z.ControlPointType = propInt(props, "controlPointType", z.ControlPointType)
	z.Radius = float32(propFloat(props, "radius", float64(z.Radius)))
	z.OwnerTeam = propInt(props, "teamId", z.OwnerTeam)
}

// setEntityProperty is the generic "update_by_name" dispatch for a
// full-value EntityProperty replace: it looks at the entity's kind and
// applies the one matching field, ignoring names it doesn't recognize
// (forward-compatible with replay fields this pipeline doesn't model).
func setEntityProperty(ent *Entity, name string, val decode.PropertyValue) {
	switch ent.Kind {
	case KindVehicle:
		switch name {
		case "health":
			ent.Vehicle.Health = val.Float
			if val.Kind == decode.PropInt {
				ent.Vehicle.Health = float64(val.Int)
			}
		case "maxHealth":
			ent.Vehicle.MaxHealth = val.Float
			if val.Kind == decode.PropInt {
				ent.Vehicle.MaxHealth = float64(val.Int)
			}
		case "teamId":
			ent.Vehicle.TeamID = int(val.Int)
		case "isAlive":
			ent.Vehicle.IsAlive = val.Int != 0
		case "selectedWeapon":
			ent.Vehicle.SelectedWeapon = val.Str
		default:
			ent.Vehicle.Extra[name] = val
		}
	case KindBuilding:
		switch name {
		case "hidden":
			ent.Building.Hidden = val.Int != 0
		case "suppressed":
			ent.Building.Suppressed = val.Int != 0
		case "teamId":
			ent.Building.TeamID = int(val.Int)
		}
	}
}

// applyPropertyUpdate interprets one PropertyUpdate's path+action. Only a
// finite, known set of paths has a modeled effect (the design's own
// "known triggers" list); anything else is silently ignored, matching
// the "don't synthesize structure for unrecognized paths" rule.
func (c *Controller) applyPropertyUpdate(p decode.PropertyUpdate) {
	if idx, ok := matchTeamScorePath(p.Path); ok && p.Action.Kind == decode.ActionSetKey && p.Action.Key == "score" {
		c.teamScores[idx] = p.Action.Value.Float
		if p.Action.Value.Kind == decode.PropInt {
			c.teamScores[idx] = float64(p.Action.Value.Int)
		}
		return
	}

	ent, ok := c.entitiesByID[p.EntityID]
	if !ok {
		if c.diag != nil {
			c.diag.Record(diag.MissingEntity, uint32(p.EntityID), float32(c.clock), "PropertyUpdate: unknown entity")
		}
		return
	}

	if ent.Kind == KindSmokeScreen && matchesKey(p.Path, "points") {
		applySmokeRangeAction(ent.Smoke, p.Action)
		return
	}

	if ent.Kind == KindInteractiveZone && matchesPrefix(p.Path, "componentsState", "captureLogic") {
		applyCaptureLogicAction(&c.capturePoints[ent.ZoneIndex], p.Action)
		return
	}
}

// matchTeamScorePath recognizes state.missions.teamsScore[i] and returns i.
func matchTeamScorePath(path []decode.PathElem) (int, bool) {
	if len(path) != 4 {
		return 0, false
	}
	if path[0].Key != "state" || path[1].Key != "missions" || path[2].Key != "teamsScore" {
		return 0, false
	}
	if !path[3].IsIndex {
		return 0, false
	}
	return path[3].Index, true
}

func matchesKey(path []decode.PathElem, key string) bool {
	return len(path) == 1 && !path[0].IsIndex && path[0].Key == key
}

func matchesPrefix(path []decode.PathElem, keys ...string) bool {
	if len(path) < len(keys) {
		return false
	}
	for i, k := range keys {
		if path[i].IsIndex || path[i].Key != k {
			return false
		}
	}
	return true
}

func applySmokeRangeAction(s *SmokeProps, action decode.UpdateAction) {
	switch action.Kind {
	case decode.ActionSetRange:
		for i, v := range action.RangeValues {
			idx := action.RangeStart + i
			pos := decode.WorldPos{X: float32(v.Float), Z: 0}
			for len(s.Puffs) <= idx {
				s.Puffs = append(s.Puffs, decode.WorldPos{})
			}
			s.Puffs[idx] = pos
		}
	case decode.ActionRemoveRange:
		if action.RangeStart < 0 || action.RangeStop > len(s.Puffs) || action.RangeStart > action.RangeStop {
			return
		}
		s.Puffs = append(s.Puffs[:action.RangeStart], s.Puffs[action.RangeStop:]...)
	}
}

// clamp01 keeps a progress fraction within [0, 1]: the replay occasionally
// emits a marginally out-of-range value on the packet that crosses a capture
// threshold, and the renderer's progress arc assumes a valid fraction.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func applyCaptureLogicAction(z *CapturePoint, action decode.UpdateAction) {
	if action.Kind != decode.ActionSetKey {
		return
	}
	switch action.Key {
	case "hasInvaders":
		z.HasInvaders = action.Value.Int != 0
	case "invaderTeam":
		z.InvaderTeam = int(action.Value.Int)
	case "progress":
		frac := action.Value.Float
		if action.Value.Kind == decode.PropInt {
			frac = float64(action.Value.Int)
		}
		z.ProgressFraction = float32(clamp01(frac))
	case "bothInside":
		z.BothInside = action.Value.Int != 0
	}
}
