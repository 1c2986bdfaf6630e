package decode

import "fmt"

// keyTable maps a pickled dictionary's integer key_id to its semantic field
// name for one replay-version schema. Three schemas are known; the decoder
// picks the table matching the replay's version threshold.
type keyTable map[int]string

// Three known PlayerStateData schemas, gated by version threshold. Key ids
// below the table's threshold version use an older mapping; 2 -> avatar_id
// and 25 -> name are stable across all three, 33 -> ship_id only appears
// starting with the latest schema.
var (
	schemaLegacy = keyTable{
		2:  "avatar_id",
		25: "name",
		30: "ship_id",
	}
	schemaMid = keyTable{
		2:  "avatar_id",
		25: "name",
		31: "ship_id",
		40: "clan_tag",
	}
	schemaLatest = keyTable{
		2:  "avatar_id",
		25: "name",
		33: "ship_id",
		40: "clan_tag",
		52: "division_id",
	}
)

var (
	minSupported    = Version{Major: 0, Minor: 9, Patch: 0, Build: 0}
	midThreshold    = Version{Major: 0, Minor: 10, Patch: 0, Build: 0}
	latestThreshold = Version{Major: 0, Minor: 11, Patch: 6, Build: 0}
)

// keyTableFor selects the PlayerStateData key table for a replay version.
// Returns an error when the version predates every known schema.
func keyTableFor(v Version) (keyTable, error) {
	switch {
	case v.Before(minSupported):
		return nil, fmt.Errorf("no key table covers client version %s", v)
	case v.Before(midThreshold):
		return schemaLegacy, nil
	case v.Before(latestThreshold):
		return schemaMid, nil
	default:
		return schemaLatest, nil
	}
}

// decodePlayerState decodes a pickled list-of-tuples [(key_id, value), ...]
// into a name-keyed PlayerState using the version-specific key table.
// Tuples whose key_id is absent from the table are kept under their raw
// numeric name ("key_17") rather than dropped, so future schema drift never
// loses data silently.
func decodePlayerState(c *cursor, table keyTable) (PlayerState, error) {
	ps := PlayerState{Fields: make(map[string]PropertyValue)}

	n, err := c.readUvarint()
	if err != nil {
		return ps, fmt.Errorf("decode: player state tuple count: %w", err)
	}

	for i := uint64(0); i < n; i++ {
		keyID, err := c.readUvarint()
		if err != nil {
			return ps, fmt.Errorf("decode: player state key %d: %w", i, err)
		}
		val, err := c.readPropertyValue()
		if err != nil {
			return ps, fmt.Errorf("decode: player state value %d: %w", i, err)
		}

		name, ok := table[int(keyID)]
		if !ok {
			name = fmt.Sprintf("key_%d", keyID)
		}
		ps.Fields[name] = val

		switch name {
		case "avatar_id":
			ps.AvatarID = AccountId(val.Int)
		case "name":
			ps.Name = val.Str
		case "ship_id":
			ps.ShipID = GameParamId(val.Int)
		}
	}
	return ps, nil
}
