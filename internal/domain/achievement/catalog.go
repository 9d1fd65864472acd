package achievement

import (
	"fmt"
	"strconv"
)

// Catalog achievement ids.
const (
	IDFirstGame        = "first_game"
	IDTenGames         = "ten_games"
	IDPracticeChampion = "practice_champion"
	IDPerfectTap       = "perfect_tap"
	IDFirstPrayer      = "first_prayer"
	IDFivePrayers      = "five_prayers"
	IDTenPrayers       = "ten_prayers"
	IDFirstQuote       = "first_quote"
	IDFiveQuotes       = "five_quotes"
	IDFifteenQuotes    = "fifteen_quotes"
	IDGrade1Complete   = "grade1_complete"
	IDStreak3          = "streak_3"
	IDStreak7          = "streak_7"
	IDStreak30         = "streak_30"
	IDProfileAvatar    = "profile_avatar"
)

// Catalog is an ordered, immutable list of achievements with lookup by id.
type Catalog struct {
	entries []Achievement
	index   map[string]int
}

// NewCatalog builds a catalog. Entries are stored unearned; ids must be
// non-empty and unique.
func NewCatalog(entries ...Achievement) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Achievement, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("catalog entry %q: empty id", e.Title)
		}
		if _, dup := c.index[e.ID]; dup {
			return nil, fmt.Errorf("catalog entry %q: duplicate id", e.ID)
		}
		if e.Points < 0 {
			return nil, fmt.Errorf("catalog entry %q: negative points", e.ID)
		}
		e.Earned = false
		e.DateEarned = nil
		c.index[e.ID] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// MustCatalog is like NewCatalog but panics on invalid entries.
func MustCatalog(entries ...Achievement) *Catalog {
	c, err := NewCatalog(entries...)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Entries returns a copy of the catalog in order.
func (c *Catalog) Entries() []Achievement {
	if c == nil {
		return []Achievement{}
	}
	return Clone(c.entries)
}

// Lookup returns the static entry for id.
func (c *Catalog) Lookup(id string) (Achievement, bool) {
	if c == nil {
		return Achievement{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return Achievement{}, false
	}
	return c.entries[i], true
}

// Synthesize returns the static entry for id, or a zero-point placeholder
// titled with the id when the catalog does not know it.
func (c *Catalog) Synthesize(id string) Achievement {
	if a, ok := c.Lookup(id); ok {
		return a
	}
	return Achievement{ID: id, Title: id}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bundled catalog
// ═══════════════════════════════════════════════════════════════════════════

// Game screens with per-level badges.
const (
	ScreenMemoryMatch = "MemoryMatch"
	ScreenLetterTap   = "LetterTap"
	ScreenWordPuzzle  = "WordPuzzle"
)

var gameScreens = []struct {
	screen string
	slug   string
	title  string
}{
	{ScreenMemoryMatch, "memory_match", "Memory Match"},
	{ScreenLetterTap, "letter_tap", "Letter Tap"},
	{ScreenWordPuzzle, "word_puzzle", "Word Puzzle"},
}

// levelPoints is the badge value per difficulty level.
var levelPoints = [...]int{1: 10, 2: 20, 3: 30}

var defaultEntries = []Achievement{
	{ID: IDFirstGame, Title: "First Game", Description: "Play your first game", Points: 10},
	{ID: IDTenGames, Title: "Game Explorer", Description: "Play 10 games", Points: 25},
	{ID: IDPracticeChampion, Title: "Practice Champion", Description: "Win 20 practice sessions", Points: 40},
	{ID: IDPerfectTap, Title: "Perfect Tap", Description: "Finish a tap game without a mistake", Points: 20},
	{ID: IDFirstPrayer, Title: "First Prayer", Description: "Learn your first prayer", Points: 10},
	{ID: IDFivePrayers, Title: "Prayer Learner", Description: "Learn 5 prayers", Points: 25},
	{ID: IDTenPrayers, Title: "Prayer Keeper", Description: "Learn 10 prayers", Points: 50},
	{ID: IDFirstQuote, Title: "First Quote", Description: "Read your first quote", Points: 10},
	{ID: IDFiveQuotes, Title: "Quote Reader", Description: "Read 5 quotes", Points: 25},
	{ID: IDFifteenQuotes, Title: "Quote Scholar", Description: "Read 15 quotes", Points: 60},
	{ID: IDGrade1Complete, Title: "Grade 1 Graduate", Description: "Complete every grade 1 lesson", Points: 100},
	{ID: IDStreak3, Title: "On a Roll", Description: "Complete the daily challenge 3 days in a row", Points: 15},
	{ID: IDStreak7, Title: "Week Warrior", Description: "Complete the daily challenge 7 days in a row", Points: 35},
	{ID: IDStreak30, Title: "Monthly Master", Description: "Complete the daily challenge 30 days in a row", Points: 150},
	{ID: IDProfileAvatar, Title: "Looking Good", Description: "Choose an avatar for your profile", Points: 5},
}

var defaultCatalog = buildDefaultCatalog()

func buildDefaultCatalog() *Catalog {
	entries := append([]Achievement(nil), defaultEntries...)
	for _, g := range gameScreens {
		for level := 1; level < len(levelPoints); level++ {
			entries = append(entries, Achievement{
				ID:          GameLevelID(g.slug, level),
				Title:       g.title + " Level " + strconv.Itoa(level),
				Description: "Complete " + g.title + " on level " + strconv.Itoa(level),
				Points:      levelPoints[level],
			})
		}
	}
	return MustCatalog(entries...)
}

// DefaultCatalog returns the bundled catalog. It is shared and immutable.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// GameLevelID builds the badge id for a game slug and level.
func GameLevelID(slug string, level int) string {
	return slug + "_level_" + strconv.Itoa(level)
}

type screenLevel struct {
	screen string
	level  int
}

var gameAchievements = func() map[screenLevel]string {
	table := make(map[screenLevel]string)
	for _, g := range gameScreens {
		for level := 1; level < len(levelPoints); level++ {
			table[screenLevel{g.screen, level}] = GameLevelID(g.slug, level)
		}
	}
	return table
}()

// LookupGameAchievement maps a game screen and level to its badge id.
// Combinations without a badge return false.
func LookupGameAchievement(screen string, level int) (string, bool) {
	id, ok := gameAchievements[screenLevel{screen, level}]
	return id, ok
}
