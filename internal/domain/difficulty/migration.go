package difficulty

import (
	"encoding/json"
	"strconv"
)

// SchemaVersion identifies the per-game record layout. Version 0 is the flat
// {"1": true, "2": false} map without a game dimension.
const SchemaVersion = 1

// Decode parses a stored progress record and migrates it to the current
// layout. It reports whether legacy flat levels were found and folded into
// the GlobalKey entry. Decoding is lenient: unknown or corrupt values are
// dropped and every entry is normalized. Running it on migrated data is a
// no-op.
func Decode(raw string) (Progress, bool) {
	out := Progress{}
	var fields map[string]json.RawMessage
	if raw == "" || json.Unmarshal([]byte(raw), &fields) != nil {
		return out, false
	}

	legacy := map[int]bool{}
	for key, value := range fields {
		if entry, ok := decodeEntry(value); ok {
			out[key] = entry
			continue
		}
		if level, done, ok := decodeLegacyLevel(key, value); ok {
			legacy[level] = done
		}
	}
	if len(legacy) == 0 {
		return out, false
	}
	if _, exists := out[GlobalKey]; !exists {
		out[GlobalKey] = Entry{Completed: legacy, CurrentLevel: 1}.Normalize()
	}
	return out, true
}

// Encode serializes progress in the current layout.
func Encode(p Progress) (string, error) {
	if p == nil {
		p = Progress{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeEntry(raw json.RawMessage) (Entry, bool) {
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil || fields == nil {
		return Entry{}, false
	}
	e := Entry{Completed: map[int]bool{}}
	var completed map[string]json.RawMessage
	if json.Unmarshal(fields["completed"], &completed) == nil {
		for k, v := range completed {
			if level, done, ok := decodeLegacyLevel(k, v); ok && done {
				e.Completed[level] = true
			}
		}
	}
	var current float64
	if json.Unmarshal(fields["currentLevel"], &current) == nil {
		e.CurrentLevel = int(current)
	}
	return e.Normalize(), true
}

func decodeLegacyLevel(key string, raw json.RawMessage) (int, bool, bool) {
	level, err := strconv.Atoi(key)
	if err != nil || !ValidLevel(level) {
		return 0, false, false
	}
	var done bool
	if json.Unmarshal(raw, &done) != nil {
		return 0, false, false
	}
	return level, done, true
}
