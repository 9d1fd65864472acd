package progress

import (
	"context"
	"encoding/json"

	"github.com/nuri-app/nuri-progress-sync/internal/domain/shared"
)

// LessonOverride pins the lesson a profile resumes at.
type LessonOverride struct {
	SetNumber    *int `json:"setNumber,omitempty"`
	LessonNumber *int `json:"lessonNumber,omitempty"`
}

// IsZero reports whether neither field is set.
func (o LessonOverride) IsZero() bool {
	return o.SetNumber == nil && o.LessonNumber == nil
}

// LessonKey returns the storage key of a profile's lesson override.
func LessonKey(profileID string) string {
	if profileID == "" {
		return shared.LessonProgressDefault
	}
	return shared.LessonProgressKeyPrefix + profileID
}

// LessonStore persists lesson overrides.
type LessonStore struct {
	store shared.KeyValueStore
}

// NewLessonStore creates a LessonStore.
func NewLessonStore(store shared.KeyValueStore) *LessonStore {
	return &LessonStore{store: store}
}

// Load returns the stored override. Absent or malformed records, and
// non-positive numbers, load as unset.
func (s *LessonStore) Load(ctx context.Context, profileID string) (LessonOverride, error) {
	key := LessonKey(profileID)
	raw, found, err := s.store.Get(ctx, key)
	if err != nil {
		return LessonOverride{}, shared.StorageError(domain, "LoadLesson", key, err)
	}
	if !found {
		return LessonOverride{}, nil
	}
	var fields map[string]json.RawMessage
	if json.Unmarshal([]byte(raw), &fields) != nil {
		return LessonOverride{}, nil
	}
	return LessonOverride{
		SetNumber:    positive(fields["setNumber"]),
		LessonNumber: positive(fields["lessonNumber"]),
	}, nil
}

func positive(raw json.RawMessage) *int {
	n, ok := decodeCount(raw)
	if !ok || n < 1 {
		return nil
	}
	return &n
}

// Save stores the override. A zero override clears the record.
func (s *LessonStore) Save(ctx context.Context, profileID string, o LessonOverride) error {
	if o.IsZero() {
		return s.Clear(ctx, profileID)
	}
	key := LessonKey(profileID)
	b, err := json.Marshal(o)
	if err != nil {
		return shared.WrapError(domain, "SaveLesson", shared.ErrInvalidFormat, "encode override", err)
	}
	if err := s.store.Set(ctx, key, string(b)); err != nil {
		return shared.StorageError(domain, "SaveLesson", key, err)
	}
	return nil
}

// Clear removes the override.
func (s *LessonStore) Clear(ctx context.Context, profileID string) error {
	key := LessonKey(profileID)
	if err := s.store.Remove(ctx, key); err != nil {
		return shared.StorageError(domain, "ClearLesson", key, err)
	}
	return nil
}
