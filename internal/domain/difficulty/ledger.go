package difficulty

import (
	"context"
	"sync"

	"github.com/nuri-app/nuri-progress-sync/internal/domain/shared"
)

const domain = "difficulty"

// StorageKey returns the key holding a user's whole progress map. The bare
// key is used when no user is signed in.
func StorageKey(userID string) string {
	if userID == "" {
		return shared.DifficultyKey
	}
	return shared.DifficultyKey + ":" + userID
}

// LevelResult is the outcome of a persisted difficulty change.
type LevelResult struct {
	Entry           Entry
	Changed         bool
	PreviousHighest int
}

// Unlocked reports whether the change raised the highest unlocked level.
func (r LevelResult) Unlocked() bool {
	return r.Entry.HighestUnlocked > r.PreviousHighest
}

// Ledger persists Progress maps.
type Ledger struct {
	store shared.KeyValueStore
	mu    sync.Mutex
}

// NewLedger creates a Ledger.
func NewLedger(store shared.KeyValueStore) *Ledger {
	return &Ledger{store: store}
}

// Load returns the user's progress map. A record in the flat legacy layout
// is migrated and rewritten. When the user has no record, the device-wide
// legacy key is migrated into it and then removed.
func (l *Ledger) Load(ctx context.Context, userID string) (Progress, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx, userID)
}

func (l *Ledger) load(ctx context.Context, userID string) (Progress, error) {
	key := StorageKey(userID)
	raw, found, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, shared.StorageError(domain, "Load", key, err)
	}
	if found {
		p, migrated := Decode(raw)
		if migrated {
			if err := l.save(ctx, "Load", key, p); err != nil {
				return nil, err
			}
		}
		return p, nil
	}

	legacy, found, err := l.store.Get(ctx, shared.LegacyDifficultyKey)
	if err != nil {
		return nil, shared.StorageError(domain, "Load", shared.LegacyDifficultyKey, err)
	}
	if !found {
		return Progress{}, nil
	}
	p, _ := Decode(legacy)
	if err := l.save(ctx, "Load", key, p); err != nil {
		return nil, err
	}
	if err := l.store.Remove(ctx, shared.LegacyDifficultyKey); err != nil {
		return nil, shared.StorageError(domain, "Load", shared.LegacyDifficultyKey, err)
	}
	return p, nil
}

func (l *Ledger) save(ctx context.Context, op, key string, p Progress) error {
	raw, err := Encode(p)
	if err != nil {
		return shared.WrapError(domain, op, shared.ErrInvalidFormat, "encode progress", err)
	}
	if err := l.store.Set(ctx, key, raw); err != nil {
		return shared.StorageError(domain, op, key, err)
	}
	return nil
}

// Resolve loads the user's map and resolves one game's entry.
func (l *Ledger) Resolve(ctx context.Context, userID, gameID string, opts ResolveOptions) (Entry, error) {
	p, err := l.Load(ctx, userID)
	if err != nil {
		return Entry{}, err
	}
	return ResolveEntry(p, gameID, opts), nil
}

// MarkLevelCompleted records a completed level and persists the map only
// when it changed.
func (l *Ledger) MarkLevelCompleted(ctx context.Context, userID, gameID string, level int) (LevelResult, error) {
	return l.apply(ctx, "MarkLevelCompleted", userID, gameID, func(p Progress) (Progress, bool) {
		return MarkLevelCompleted(p, gameID, level)
	})
}

// SetSelectedLevel selects a level and persists the map only when it
// changed.
func (l *Ledger) SetSelectedLevel(ctx context.Context, userID, gameID string, level int) (LevelResult, error) {
	return l.apply(ctx, "SetSelectedLevel", userID, gameID, func(p Progress) (Progress, bool) {
		return SetSelectedLevel(p, gameID, level)
	})
}

func (l *Ledger) apply(ctx context.Context, op, userID, gameID string, change func(Progress) (Progress, bool)) (LevelResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := l.load(ctx, userID)
	if err != nil {
		return LevelResult{}, err
	}
	before := ResolveEntry(p, gameID, ResolveOptions{FallbackToGlobal: true})
	next, changed := change(p)
	result := LevelResult{
		Entry:           ResolveEntry(next, gameID, ResolveOptions{FallbackToGlobal: true}),
		Changed:         changed,
		PreviousHighest: before.HighestUnlocked,
	}
	if !changed {
		return result, nil
	}
	if err := l.save(ctx, op, StorageKey(userID), next); err != nil {
		return LevelResult{}, err
	}
	return result, nil
}

// Wipe removes the user's progress map.
func (l *Ledger) Wipe(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := StorageKey(userID)
	if err := l.store.Remove(ctx, key); err != nil {
		return shared.StorageError(domain, "Wipe", key, err)
	}
	return nil
}
