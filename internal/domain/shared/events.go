package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types published while recording progress.
const (
	EventAchievementEarned EventType = "achievement.earned"
	EventAchievementSynced EventType = "achievement.synced"
	EventStreakUpdated     EventType = "progress.streak_updated"
	EventLevelUnlocked     EventType = "difficulty.level_unlocked"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ledger key of the user that produced it.
	AggregateID() string
}

// EventHandler handles a published event.
type EventHandler func(Event) error

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	UserKey   string    `json:"user_key"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.UserKey
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, userKey string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Timestamp: at,
		UserKey:   userKey,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementEarnedEvent is emitted the moment an award is applied locally.
// It carries the notification the UI shows.
type AchievementEarnedEvent struct {
	BaseEvent
	NotificationID string `json:"notification_id"`
	AchievementID  string `json:"achievement_id"`
	Title          string `json:"title"`
	Points         int    `json:"points"`
}

// NewAchievementEarnedEvent creates an AchievementEarnedEvent.
func NewAchievementEarnedEvent(userKey, notificationID, achievementID, title string, points int, at time.Time) AchievementEarnedEvent {
	return AchievementEarnedEvent{
		BaseEvent:      NewBaseEvent(EventAchievementEarned, userKey, at),
		NotificationID: notificationID,
		AchievementID:  achievementID,
		Title:          title,
		Points:         points,
	}
}

// AchievementSyncedEvent is emitted when the server acknowledged a grant and
// the local list was replaced with its response.
type AchievementSyncedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
	TotalPoints   int    `json:"total_points"`
}

// NewAchievementSyncedEvent creates an AchievementSyncedEvent.
func NewAchievementSyncedEvent(userKey, achievementID string, totalPoints int, at time.Time) AchievementSyncedEvent {
	return AchievementSyncedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementSynced, userKey, at),
		AchievementID: achievementID,
		TotalPoints:   totalPoints,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakUpdatedEvent is emitted when a daily challenge advances or resets
// the streak. Same-day repeats do not emit.
type StreakUpdatedEvent struct {
	BaseEvent
	Streak int    `json:"streak"`
	Day    string `json:"day"`
}

// NewStreakUpdatedEvent creates a StreakUpdatedEvent.
func NewStreakUpdatedEvent(userKey string, streak int, day string, at time.Time) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent: NewBaseEvent(EventStreakUpdated, userKey, at),
		Streak:    streak,
		Day:       day,
	}
}

// LevelUnlockedEvent is emitted when completing a level raised the highest
// unlocked difficulty of a game.
type LevelUnlockedEvent struct {
	BaseEvent
	GameID          string `json:"game_id"`
	HighestUnlocked int    `json:"highest_unlocked"`
}

// NewLevelUnlockedEvent creates a LevelUnlockedEvent.
func NewLevelUnlockedEvent(userKey, gameID string, highest int, at time.Time) LevelUnlockedEvent {
	return LevelUnlockedEvent{
		BaseEvent:       NewBaseEvent(EventLevelUnlocked, userKey, at),
		GameID:          gameID,
		HighestUnlocked: highest,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}
