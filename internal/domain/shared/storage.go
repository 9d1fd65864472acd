package shared

import "context"

// KeyValueStore is the durable string-keyed store every ledger persists to.
// Values are JSON documents. Implementations must survive process restarts
// (except the in-memory store used in tests) and be safe for concurrent use.
type KeyValueStore interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// MultiRemove deletes every key in keys.
	MultiRemove(ctx context.Context, keys ...string) error

	// Keys lists stored keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Key namespaces. Each ledger kind owns one so records never collide.
const (
	ProgressKeyPrefix       = "achievementProgress:"
	DifficultyKey           = "difficultyProgress"
	LegacyDifficultyKey     = "completedDifficulties"
	LessonProgressKeyPrefix = "progress:"
	LessonProgressDefault   = "progress:default"
)
