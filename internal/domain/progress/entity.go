// Package progress keeps the per-user progress ledger: named counters,
// unique-event sets, one-shot flags and the daily challenge streak.
// Records live under achievementProgress:<userId> in the key-value store.
package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"

	"github.com/nuri-app/nuri-progress-sync/pkg/timeutil"
)

// Well-known counter, category and flag names.
const (
	CounterGamesPlayed      = "gamesPlayed"
	CounterPracticeSessions = "practiceSessions"
	CounterTapPerfectWins   = "tapPerfectWins"

	CategoryPrayers      = "prayers"
	CategoryQuotes       = "quotes"
	CategoryGrade1Lesson = "grade1Lessons"

	FlagProfileAvatar = "profileAvatar"
)

// Daily tracks the daily challenge streak. LastDate is a YYYY-MM-DD key in
// the user's local calendar.
type Daily struct {
	LastDate *string `json:"lastDate"`
	Streak   int     `json:"streak"`
}

// DailyResult is the outcome of recording a daily challenge.
type DailyResult struct {
	Streak   int
	Repeated bool
	Day      string
}

// Record applies a completion on today. A repeat on the same day leaves the
// streak alone; yesterday extends it; any gap restarts it at 1.
func (d *Daily) Record(today, yesterday string) DailyResult {
	if d.LastDate != nil && *d.LastDate == today {
		return DailyResult{Streak: d.Streak, Repeated: true, Day: today}
	}
	if d.LastDate != nil && *d.LastDate == yesterday {
		d.Streak = AddCount(d.Streak, 1)
	} else {
		d.Streak = 1
	}
	day := today
	d.LastDate = &day
	return DailyResult{Streak: d.Streak, Day: today}
}

// Entry is one user's progress record.
type Entry struct {
	Counters map[string]int      `json:"counters"`
	Uniques  map[string][]string `json:"uniques"`
	Flags    map[string]bool     `json:"flags"`
	Daily    Daily               `json:"daily"`
}

// DefaultEntry returns a structurally complete empty entry.
func DefaultEntry() Entry {
	return Entry{
		Counters: map[string]int{},
		Uniques:  map[string][]string{},
		Flags:    map[string]bool{},
	}
}

// Counter returns the value of a named counter.
func (e Entry) Counter(key string) int {
	return e.Counters[key]
}

// UniqueCount returns the size of a unique-event set.
func (e Entry) UniqueCount(category string) int {
	return len(e.Uniques[category])
}

// HasUnique reports whether itemKey is in the category set.
func (e Entry) HasUnique(category, itemKey string) bool {
	for _, k := range e.Uniques[category] {
		if k == itemKey {
			return true
		}
	}
	return false
}

// HasFlag reports whether a one-shot flag is set.
func (e Entry) HasFlag(flag string) bool {
	return e.Flags[flag]
}

// ═══════════════════════════════════════════════════════════════════════════
// Lenient decoding
// ═══════════════════════════════════════════════════════════════════════════

// DecodeEntry decodes a stored record against DefaultEntry. Each field is
// decoded on its own so one corrupt field falls back to its default without
// discarding the rest. Absent or malformed input yields the default entry.
func DecodeEntry(raw string) Entry {
	e := DefaultEntry()
	var fields map[string]json.RawMessage
	if raw == "" || json.Unmarshal([]byte(raw), &fields) != nil {
		return e
	}
	decodeCounters(fields["counters"], e.Counters)
	decodeUniques(fields["uniques"], e.Uniques)
	decodeFlags(fields["flags"], e.Flags)
	e.Daily = decodeDaily(fields["daily"])
	return e
}

// Encode serializes the entry.
func (e Entry) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeObject(raw json.RawMessage) map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]json.RawMessage
	if json.Unmarshal(raw, &m) != nil {
		return nil
	}
	return m
}

func decodeCounters(raw json.RawMessage, dst map[string]int) {
	for k, v := range decodeObject(raw) {
		if n, ok := decodeCount(v); ok {
			dst[k] = n
		}
	}
}

// decodeCount accepts any non-negative JSON number. Values beyond the int
// range saturate at math.MaxInt so a stored counter never reads back lower.
func decodeCount(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' {
		return 0, false
	}
	var n json.Number
	if json.Unmarshal(raw, &n) != nil {
		return 0, false
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		if i < 0 {
			return 0, false
		}
		return int(min(i, int64(math.MaxInt))), true
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	switch {
	case math.IsNaN(f) || f < 0:
		return 0, false
	case f >= math.MaxInt:
		return math.MaxInt, true
	}
	return int(f), true
}

// AddCount adds amount to n, saturating at math.MaxInt.
func AddCount(n, amount int) int {
	if amount > 0 && n > math.MaxInt-amount {
		return math.MaxInt
	}
	return n + amount
}

// Sets are normally stored as arrays; older records stored them as
// {"key": true} objects.
func decodeUniques(raw json.RawMessage, dst map[string][]string) {
	for category, v := range decodeObject(raw) {
		var items []json.RawMessage
		if json.Unmarshal(v, &items) == nil {
			dst[category] = dedupeStrings(items)
			continue
		}
		var legacy map[string]bool
		if json.Unmarshal(v, &legacy) == nil {
			keys := make([]string, 0, len(legacy))
			for k, present := range legacy {
				if present {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			dst[category] = keys
		}
	}
}

func dedupeStrings(items []json.RawMessage) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) != nil || s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func decodeFlags(raw json.RawMessage, dst map[string]bool) {
	for k, v := range decodeObject(raw) {
		var b bool
		if json.Unmarshal(v, &b) == nil && b {
			dst[k] = true
		}
	}
}

func decodeDaily(raw json.RawMessage) Daily {
	fields := decodeObject(raw)
	var d Daily
	if fields == nil {
		return d
	}
	var last string
	if json.Unmarshal(fields["lastDate"], &last) == nil && timeutil.IsValidDateKey(last) {
		d.LastDate = &last
	}
	if n, ok := decodeCount(fields["streak"]); ok {
		d.Streak = n
	}
	return d
}
