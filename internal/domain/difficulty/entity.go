// Package difficulty tracks which difficulty levels a user completed in each
// game, the highest level unlocked, and the level currently selected.
//
// A level unlocks only once every level below it is completed, so the
// highest unlocked level is always derived from the completed set. Stored
// highestUnlocked and currentLevel values are a cache: they are recomputed
// and clamped whenever a record is decoded.
package difficulty

// MaxLevel is the highest difficulty level of every game.
const MaxLevel = 3

// GlobalKey is the reserved game key used for progress recorded before
// games had their own records. It is read as a fallback only.
const GlobalKey = "__global"

// Entry is the difficulty state of one game.
type Entry struct {
	Completed       map[int]bool `json:"completed"`
	HighestUnlocked int          `json:"highestUnlocked"`
	CurrentLevel    int          `json:"currentLevel"`
}

// Progress maps a game id (or GlobalKey) to its entry.
type Progress map[string]Entry

// DefaultEntry returns a fresh entry: level 1 selected and nothing beyond
// it unlocked.
func DefaultEntry() Entry {
	return Entry{Completed: map[int]bool{}, HighestUnlocked: 1, CurrentLevel: 1}
}

// ValidLevel reports whether level is in [1, MaxLevel].
func ValidLevel(level int) bool {
	return level >= 1 && level <= MaxLevel
}

// HighestUnlocked returns the longest run of completed levels starting at 1,
// plus one, capped at MaxLevel.
func HighestUnlocked(completed map[int]bool) int {
	prefix := 0
	for level := 1; level <= MaxLevel; level++ {
		if !completed[level] {
			break
		}
		prefix = level
	}
	return min(prefix+1, MaxLevel)
}

// Normalize returns a copy of e with out-of-range levels dropped, the
// highest unlocked level recomputed and the current level clamped to
// [1, HighestUnlocked].
func (e Entry) Normalize() Entry {
	out := Entry{Completed: make(map[int]bool, len(e.Completed))}
	for level, done := range e.Completed {
		if done && ValidLevel(level) {
			out.Completed[level] = true
		}
	}
	out.HighestUnlocked = HighestUnlocked(out.Completed)
	out.CurrentLevel = clamp(e.CurrentLevel, 1, out.HighestUnlocked)
	return out
}

// IsCompleted reports whether level was completed.
func (e Entry) IsCompleted(level int) bool {
	return e.Completed[level]
}

// Equal reports whether two entries describe the same state.
func (e Entry) Equal(other Entry) bool {
	if e.HighestUnlocked != other.HighestUnlocked || e.CurrentLevel != other.CurrentLevel {
		return false
	}
	for level := 1; level <= MaxLevel; level++ {
		if e.Completed[level] != other.Completed[level] {
			return false
		}
	}
	return true
}

func (e Entry) clone() Entry {
	c := e
	c.Completed = make(map[int]bool, len(e.Completed))
	for k, v := range e.Completed {
		c.Completed[k] = v
	}
	return c
}

// ResolveOptions controls ResolveEntry.
type ResolveOptions struct {
	// FallbackToGlobal returns the GlobalKey entry when the game has none.
	FallbackToGlobal bool
}

// ResolveEntry returns the game's entry, the global entry when the game has
// none and opts allow it, or DefaultEntry. The result is always normalized
// and never aliases p.
func ResolveEntry(p Progress, gameID string, opts ResolveOptions) Entry {
	if e, ok := p[gameKey(gameID)]; ok {
		return e.Normalize()
	}
	if opts.FallbackToGlobal {
		if e, ok := p[GlobalKey]; ok {
			return e.Normalize()
		}
	}
	return DefaultEntry()
}

// MarkLevelCompleted marks level completed for the game, recomputes the
// unlock state and raises the current level to at least the highest
// unlocked one. When the game has no entry yet it starts from the global
// entry. Nothing changes for an out-of-range level or an already recorded
// completion; p is then returned as is with changed=false. Otherwise a new
// map is returned and p is left untouched.
func MarkLevelCompleted(p Progress, gameID string, level int) (Progress, bool) {
	if !ValidLevel(level) {
		return p, false
	}
	key := gameKey(gameID)
	next := ResolveEntry(p, gameID, ResolveOptions{FallbackToGlobal: true}).clone()
	next.Completed[level] = true
	next.HighestUnlocked = HighestUnlocked(next.Completed)
	next.CurrentLevel = max(next.CurrentLevel, next.HighestUnlocked)
	return put(p, key, next)
}

// SetSelectedLevel selects level for the game, clamped to
// [1, HighestUnlocked] so an unearned level can never be selected.
func SetSelectedLevel(p Progress, gameID string, level int) (Progress, bool) {
	key := gameKey(gameID)
	next := ResolveEntry(p, gameID, ResolveOptions{FallbackToGlobal: true}).clone()
	next.CurrentLevel = clamp(level, 1, next.HighestUnlocked)
	return put(p, key, next)
}

func put(p Progress, key string, next Entry) (Progress, bool) {
	if stored, ok := p[key]; ok && stored.Normalize().Equal(next) {
		return p, false
	}
	out := make(Progress, len(p)+1)
	for k, v := range p {
		out[k] = v.clone()
	}
	out[key] = next
	return out, true
}

func gameKey(gameID string) string {
	if gameID == "" {
		return GlobalKey
	}
	return gameID
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
