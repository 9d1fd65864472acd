package achievement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalogRejectsInvalidEntries(t *testing.T) {
	_, err := NewCatalog(Achievement{ID: "a"}, Achievement{ID: "a"})
	assert.ErrorContains(t, err, "duplicate id")

	_, err = NewCatalog(Achievement{Title: "nameless"})
	assert.ErrorContains(t, err, "empty id")

	_, err = NewCatalog(Achievement{ID: "neg", Points: -1})
	assert.ErrorContains(t, err, "negative points")
}

func TestCatalogStoresEntriesUnearned(t *testing.T) {
	now := time.Now()
	c, err := NewCatalog(Achievement{ID: "a", Points: 5, Earned: true, DateEarned: &now})
	require.NoError(t, err)

	a, ok := c.Lookup("a")
	require.True(t, ok)
	assert.False(t, a.Earned)
	assert.Nil(t, a.DateEarned)
}

func TestCatalogEntriesIsACopy(t *testing.T) {
	c := MustCatalog(Achievement{ID: "a", Title: "A"})
	entries := c.Entries()
	entries[0].Title = "changed"

	a, _ := c.Lookup("a")
	assert.Equal(t, "A", a.Title)
}

func TestSynthesizeUnknownID(t *testing.T) {
	c := MustCatalog(Achievement{ID: "a", Title: "A", Points: 5})

	assert.Equal(t, Achievement{ID: "a", Title: "A", Points: 5}, c.Synthesize("a"))
	assert.Equal(t, Achievement{ID: "mystery", Title: "mystery"}, c.Synthesize("mystery"))
}

func TestDefaultCatalogHasEveryRecorderID(t *testing.T) {
	c := DefaultCatalog()
	for _, id := range []string{
		IDFirstGame, IDTenGames, IDPracticeChampion, IDPerfectTap,
		IDFirstPrayer, IDFivePrayers, IDTenPrayers,
		IDFirstQuote, IDFiveQuotes, IDFifteenQuotes,
		IDGrade1Complete, IDStreak3, IDStreak7, IDStreak30, IDProfileAvatar,
	} {
		_, ok := c.Lookup(id)
		assert.True(t, ok, id)
	}
}

func TestLookupGameAchievement(t *testing.T) {
	id, ok := LookupGameAchievement(ScreenMemoryMatch, 2)
	require.True(t, ok)
	assert.Equal(t, "memory_match_level_2", id)
	_, inCatalog := DefaultCatalog().Lookup(id)
	assert.True(t, inCatalog)

	_, ok = LookupGameAchievement(ScreenLetterTap, 4)
	assert.False(t, ok)
	_, ok = LookupGameAchievement("Unknown", 1)
	assert.False(t, ok)
}

func TestTotalEarnedPointsIgnoresUnearned(t *testing.T) {
	list := []Achievement{
		{ID: "a", Points: 10, Earned: true},
		{ID: "b", Points: 99},
		{ID: "c", Points: 5, Earned: true},
	}
	assert.Equal(t, 15, TotalEarnedPoints(list))
	assert.True(t, IsEarned(list, "a"))
	assert.False(t, IsEarned(list, "b"))
	assert.False(t, IsEarned(list, "zz"))
}

func TestMarkEarnedKeepsOriginalDate(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Achievement{ID: "a"}.MarkEarned(first)
	again := a.MarkEarned(first.Add(time.Hour))

	require.NotNil(t, again.DateEarned)
	assert.Equal(t, first, *again.DateEarned)
}
