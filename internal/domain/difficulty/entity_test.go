package difficulty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContiguousUnlockRule(t *testing.T) {
	p := Progress{}

	p, changed := MarkLevelCompleted(p, "memory", 2)
	require.True(t, changed)
	assert.Equal(t, 1, p["memory"].HighestUnlocked, "level 2 alone unlocks nothing")

	p, _ = MarkLevelCompleted(p, "memory", 1)
	assert.Equal(t, 3, p["memory"].HighestUnlocked, "1 and 2 unlock 3")
	assert.Equal(t, 3, p["memory"].CurrentLevel)

	only3, _ := MarkLevelCompleted(Progress{}, "tap", 3)
	assert.Equal(t, 1, only3["tap"].HighestUnlocked)
	assert.Equal(t, 1, only3["tap"].CurrentLevel)
}

func TestHighestUnlockedCapped(t *testing.T) {
	assert.Equal(t, 1, HighestUnlocked(nil))
	assert.Equal(t, 2, HighestUnlocked(map[int]bool{1: true}))
	assert.Equal(t, MaxLevel, HighestUnlocked(map[int]bool{1: true, 2: true, 3: true}))
	assert.Equal(t, 2, HighestUnlocked(map[int]bool{1: true, 3: true}))
}

func TestMarkLevelCompletedUnchangedReturnsSameMap(t *testing.T) {
	p, changed := MarkLevelCompleted(Progress{}, "memory", 1)
	require.True(t, changed)

	again, changed := MarkLevelCompleted(p, "memory", 1)
	assert.False(t, changed)
	// Same map value: a write through one is visible through the other.
	again["probe"] = DefaultEntry()
	_, aliased := p["probe"]
	assert.True(t, aliased)
}

func TestMarkLevelCompletedDoesNotMutateInput(t *testing.T) {
	p, _ := MarkLevelCompleted(Progress{}, "memory", 1)
	next, changed := MarkLevelCompleted(p, "memory", 2)
	require.True(t, changed)

	assert.False(t, p["memory"].IsCompleted(2))
	assert.True(t, next["memory"].IsCompleted(2))
}

func TestMarkLevelCompletedIgnoresOutOfRange(t *testing.T) {
	p := Progress{}
	for _, level := range []int{0, -1, MaxLevel + 1} {
		out, changed := MarkLevelCompleted(p, "memory", level)
		assert.False(t, changed)
		assert.Empty(t, out)
	}
}

func TestSetSelectedLevelClamps(t *testing.T) {
	p, _ := MarkLevelCompleted(Progress{}, "memory", 1)

	p, changed := SetSelectedLevel(p, "memory", 3)
	assert.False(t, changed, "already at the highest unlocked level")
	assert.Equal(t, 2, p["memory"].CurrentLevel)

	p, changed = SetSelectedLevel(p, "memory", 1)
	assert.True(t, changed)
	assert.Equal(t, 1, p["memory"].CurrentLevel)

	p, _ = SetSelectedLevel(p, "memory", 0)
	assert.Equal(t, 1, p["memory"].CurrentLevel)
}

func TestResolveEntryFallback(t *testing.T) {
	global := Entry{Completed: map[int]bool{1: true}, HighestUnlocked: 2, CurrentLevel: 2}
	p := Progress{GlobalKey: global}

	assert.Equal(t, DefaultEntry(), ResolveEntry(p, "memory", ResolveOptions{}))
	assert.Equal(t, global, ResolveEntry(p, "memory", ResolveOptions{FallbackToGlobal: true}))

	// A new game starts from the global entry.
	next, _ := MarkLevelCompleted(p, "memory", 2)
	assert.Equal(t, 3, next["memory"].HighestUnlocked)
	assert.Equal(t, 2, next[GlobalKey].HighestUnlocked)
}

func TestResolveEntryValidatesCachedFields(t *testing.T) {
	p := Progress{"memory": {Completed: map[int]bool{2: true, 9: true}, HighestUnlocked: 3, CurrentLevel: 3}}

	e := ResolveEntry(p, "memory", ResolveOptions{})
	assert.Equal(t, 1, e.HighestUnlocked)
	assert.Equal(t, 1, e.CurrentLevel)
	assert.Equal(t, map[int]bool{2: true}, e.Completed)
}
