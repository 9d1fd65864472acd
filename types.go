package progresssync

import (
	"github.com/nuri-app/nuri-progress-sync/internal/application/command"
	"github.com/nuri-app/nuri-progress-sync/internal/application/eventhandler"
	"github.com/nuri-app/nuri-progress-sync/internal/application/saga"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/achievement"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/difficulty"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/profile"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/progress"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/shared"
)

// Profile and achievements.
type (
	// UserProfile is the current user. The recorder and the coordinator
	// update Achievements and TotalPoints in place, so a profile must not be
	// shared between goroutines while an event is being recorded.
	UserProfile = profile.UserProfile
	Achievement = achievement.Achievement
	Catalog     = achievement.Catalog
	MergeResult = achievement.MergeResult
)

// Recorder events and results.
type (
	Recorder       = eventhandler.ProgressRecorder
	LessonEvent    = eventhandler.LessonEvent
	GameLevelEvent = eventhandler.GameLevelEvent
	RecordOutcome  = eventhandler.RecordOutcome
)

// Grants.
type (
	GrantCoordinator = saga.GrantCoordinator
	GrantInput       = saga.GrantInput
	GameGrantInput   = saga.GameGrantInput
	GrantResult      = saga.GrantResult
	GrantStatus      = saga.GrantStatus
	SkipReason       = saga.SkipReason
	Notification     = saga.Notification
	Notifier         = saga.Notifier
	NotifierFunc     = saga.NotifierFunc
	ProfileSaver     = saga.ProfileSaver
	ProfileSaverFunc = saga.ProfileSaverFunc
)

const (
	GrantSkipped    = saga.GrantSkipped
	GrantOptimistic = saga.GrantOptimistic
	GrantReconciled = saga.GrantReconciled

	SkipMissingInput  = saga.SkipMissingInput
	SkipAlreadyEarned = saga.SkipAlreadyEarned
	SkipInFlight      = saga.SkipInFlight
	SkipNoMapping     = saga.SkipNoMapping
)

// ErrCoordinatorClosed is returned by grants after Close.
var ErrCoordinatorClosed = saga.ErrCoordinatorClosed

// Local ledgers.
type (
	ProgressLedger     = progress.Ledger
	ProgressEntry      = progress.Entry
	DailyResult        = progress.DailyResult
	UniqueResult       = progress.UniqueResult
	LessonStore        = progress.LessonStore
	LessonOverride     = progress.LessonOverride
	DifficultyLedger   = difficulty.Ledger
	DifficultyProgress = difficulty.Progress
	DifficultyEntry    = difficulty.Entry
	ResolveOptions     = difficulty.ResolveOptions
	LevelResult        = difficulty.LevelResult
	WipeAccountResult  = command.WipeAccountResult
)

// Storage and events.
type (
	KeyValueStore          = shared.KeyValueStore
	Event                  = shared.Event
	EventType              = shared.EventType
	EventHandler           = shared.EventHandler
	EventSubscriber        = shared.EventSubscriber
	AchievementEarnedEvent = shared.AchievementEarnedEvent
	AchievementSyncedEvent = shared.AchievementSyncedEvent
	StreakUpdatedEvent     = shared.StreakUpdatedEvent
	LevelUnlockedEvent     = shared.LevelUnlockedEvent
)

const (
	EventAchievementEarned = shared.EventAchievementEarned
	EventAchievementSynced = shared.EventAchievementSynced
	EventStreakUpdated     = shared.EventStreakUpdated
	EventLevelUnlocked     = shared.EventLevelUnlocked
)

// Game screens with per-level badges.
const (
	ScreenMemoryMatch = achievement.ScreenMemoryMatch
	ScreenLetterTap   = achievement.ScreenLetterTap
	ScreenWordPuzzle  = achievement.ScreenWordPuzzle
)

// DefaultCatalog returns the bundled achievement catalog.
func DefaultCatalog() *Catalog { return achievement.DefaultCatalog() }
