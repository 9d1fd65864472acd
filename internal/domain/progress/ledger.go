package progress

import (
	"context"
	"sync"

	"github.com/nuri-app/nuri-progress-sync/internal/domain/shared"
	"github.com/nuri-app/nuri-progress-sync/pkg/timeutil"
)

const domain = "progress"

// Key returns the storage key of a user's progress record.
func Key(userID string) string {
	return shared.ProgressKeyPrefix + userID
}

// UniqueResult is the outcome of recording a unique item.
type UniqueResult struct {
	Count int
	Added bool
}

// Ledger reads and mutates progress records. Read-modify-write cycles are
// serialized within the process; writers in other processes are not
// coordinated with.
type Ledger struct {
	store    shared.KeyValueStore
	calendar *timeutil.Calendar
	mu       sync.Mutex
}

// NewLedger creates a Ledger. A nil calendar uses the system clock in the
// local zone.
func NewLedger(store shared.KeyValueStore, calendar *timeutil.Calendar) *Ledger {
	if calendar == nil {
		calendar = timeutil.NewCalendar(nil, nil)
	}
	return &Ledger{store: store, calendar: calendar}
}

// LoadEntry returns the user's record, or the default entry when it is
// absent, malformed or userID is empty.
func (l *Ledger) LoadEntry(ctx context.Context, userID string) (Entry, error) {
	if userID == "" {
		return DefaultEntry(), nil
	}
	return l.load(ctx, "LoadEntry", userID)
}

func (l *Ledger) load(ctx context.Context, op, userID string) (Entry, error) {
	key := Key(userID)
	raw, found, err := l.store.Get(ctx, key)
	if err != nil {
		return Entry{}, shared.StorageError(domain, op, key, err)
	}
	if !found {
		return DefaultEntry(), nil
	}
	return DecodeEntry(raw), nil
}

// update runs one read-modify-write cycle. mutate reports whether the entry
// changed; unchanged entries are not written back.
func (l *Ledger) update(ctx context.Context, op, userID string, mutate func(*Entry) bool) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, err := l.load(ctx, op, userID)
	if err != nil {
		return Entry{}, err
	}
	if !mutate(&entry) {
		return entry, nil
	}

	raw, err := entry.Encode()
	if err != nil {
		return Entry{}, shared.WrapError(domain, op, shared.ErrInvalidFormat, "encode entry", err)
	}
	key := Key(userID)
	if err := l.store.Set(ctx, key, raw); err != nil {
		return Entry{}, shared.StorageError(domain, op, key, err)
	}
	return entry, nil
}

// Increment adds one to a counter.
func (l *Ledger) Increment(ctx context.Context, userID, key string) (int, error) {
	return l.IncrementCounter(ctx, userID, key, 1)
}

// IncrementCounter adds amount to a counter and returns the new value.
// Counters never decrease, so a non-positive amount counts as 1, and they
// saturate instead of overflowing.
func (l *Ledger) IncrementCounter(ctx context.Context, userID, key string, amount int) (int, error) {
	if userID == "" || key == "" {
		return 0, nil
	}
	if amount <= 0 {
		amount = 1
	}
	entry, err := l.update(ctx, "IncrementCounter", userID, func(e *Entry) bool {
		e.Counters[key] = AddCount(e.Counters[key], amount)
		return true
	})
	if err != nil {
		return 0, err
	}
	return entry.Counters[key], nil
}

// RecordUniqueItem adds itemKey to a category set. Recording a key that is
// already present reports Added=false and leaves the count unchanged.
func (l *Ledger) RecordUniqueItem(ctx context.Context, userID, category, itemKey string) (UniqueResult, error) {
	if userID == "" || category == "" || itemKey == "" {
		return UniqueResult{}, nil
	}
	var added bool
	entry, err := l.update(ctx, "RecordUniqueItem", userID, func(e *Entry) bool {
		if e.HasUnique(category, itemKey) {
			return false
		}
		e.Uniques[category] = append(e.Uniques[category], itemKey)
		added = true
		return true
	})
	if err != nil {
		return UniqueResult{}, err
	}
	return UniqueResult{Count: entry.UniqueCount(category), Added: added}, nil
}

// RecordDailyChallenge records today's daily challenge in the ledger's
// local calendar. A second call on the same day is reported as Repeated and
// is not written.
func (l *Ledger) RecordDailyChallenge(ctx context.Context, userID string) (DailyResult, error) {
	if userID == "" {
		return DailyResult{}, nil
	}
	today, yesterday := l.calendar.TodayKey(), l.calendar.YesterdayKey()
	var result DailyResult
	_, err := l.update(ctx, "RecordDailyChallenge", userID, func(e *Entry) bool {
		result = e.Daily.Record(today, yesterday)
		return !result.Repeated
	})
	if err != nil {
		return DailyResult{}, err
	}
	return result, nil
}

// EnsureFlag sets a one-shot flag and reports whether this call set it.
func (l *Ledger) EnsureFlag(ctx context.Context, userID, flag string) (bool, error) {
	if userID == "" || flag == "" {
		return false, nil
	}
	var set bool
	_, err := l.update(ctx, "EnsureFlag", userID, func(e *Entry) bool {
		if e.Flags[flag] {
			return false
		}
		e.Flags[flag] = true
		set = true
		return true
	})
	if err != nil {
		return false, err
	}
	return set, nil
}

// Wipe removes the user's record.
func (l *Ledger) Wipe(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := Key(userID)
	if err := l.store.Remove(ctx, key); err != nil {
		return shared.StorageError(domain, "Wipe", key, err)
	}
	return nil
}
