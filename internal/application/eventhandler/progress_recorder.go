// Package eventhandler turns app events into progress ledger updates and
// achievement grants.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nuri-app/nuri-progress-sync/internal/application/saga"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/achievement"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/difficulty"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/profile"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/progress"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/shared"
	"github.com/nuri-app/nuri-progress-sync/pkg/logger"
	"github.com/nuri-app/nuri-progress-sync/pkg/timeutil"
)

// ═══════════════════════════════════════════════════════════════════════════
// PROGRESS EVENT RECORDER
// Every threshold is an exact match on the value returned by the ledger
// operation that just ran, so each milestone fires once: the counter only
// passes through a given value one time.
// ═══════════════════════════════════════════════════════════════════════════

// Granter awards achievements.
type Granter interface {
	Grant(ctx context.Context, in saga.GrantInput) (saga.GrantResult, error)
	GrantGameAchievement(ctx context.Context, in saga.GameGrantInput) (saga.GrantResult, error)
}

// Events the recorder understands.
type (
	// LessonEvent is a completed lesson.
	LessonEvent struct {
		Grade     int
		Set       int
		Lesson    int
		HasPrayer bool
		HasQuote  bool
	}

	// GameLevelEvent is a game finished on a difficulty level.
	GameLevelEvent struct {
		GameID string
		Screen string
		Level  int
	}
)

// Key identifies the lesson in the unique sets.
func (e LessonEvent) Key() string {
	return fmt.Sprintf("g%d-s%d-l%d", e.Grade, e.Set, e.Lesson)
}

// RecordOutcome lists the grants an event triggered. Skipped grants are
// included.
type RecordOutcome struct {
	Granted []saga.GrantResult

	// Streak is set by OnDailyChallenge.
	Streak *progress.DailyResult
	// Level is set by OnGameLevelCompleted.
	Level *difficulty.LevelResult
}

// Applied returns the ids of grants that were applied.
func (o RecordOutcome) Applied() []string {
	var ids []string
	for _, g := range o.Granted {
		if g.Applied() {
			ids = append(ids, g.AchievementID)
		}
	}
	return ids
}

// Milestones maps an exact counter value to the achievement it unlocks.
type Milestones map[int]string

var (
	gamesPlayedMilestones = Milestones{1: achievement.IDFirstGame, 10: achievement.IDTenGames}
	practiceMilestones    = Milestones{20: achievement.IDPracticeChampion}
	perfectTapMilestones  = Milestones{1: achievement.IDPerfectTap}
	prayerMilestones      = Milestones{1: achievement.IDFirstPrayer, 5: achievement.IDFivePrayers, 10: achievement.IDTenPrayers}
	quoteMilestones       = Milestones{1: achievement.IDFirstQuote, 5: achievement.IDFiveQuotes, 15: achievement.IDFifteenQuotes}
	streakMilestones      = Milestones{3: achievement.IDStreak3, 7: achievement.IDStreak7, 30: achievement.IDStreak30}
)

// RecorderConfig configures the recorder.
type RecorderConfig struct {
	// Grade1LessonTotal is the number of distinct grade-1 lessons that
	// completes the grade.
	Grade1LessonTotal int
}

// DefaultRecorderConfig returns the default configuration.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{Grade1LessonTotal: 10}
}

// ProgressRecorder handles app events. Each handler updates the profile it
// is given in place: a guest key is assigned when it has no identifier and
// every applied grant replaces Achievements and TotalPoints. Callers must not
// share one profile between concurrent handler calls.
type ProgressRecorder struct {
	ledger    *progress.Ledger
	levels    *difficulty.Ledger
	granter   Granter
	publisher shared.EventPublisher
	clock     timeutil.Clock
	logger    *slog.Logger
	config    RecorderConfig
}

// NewProgressRecorder creates a recorder. levels and publisher may be nil.
func NewProgressRecorder(
	ledger *progress.Ledger,
	levels *difficulty.Ledger,
	granter Granter,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
	log *slog.Logger,
	config RecorderConfig,
) *ProgressRecorder {
	if config.Grade1LessonTotal <= 0 {
		config.Grade1LessonTotal = DefaultRecorderConfig().Grade1LessonTotal
	}
	if clock == nil {
		clock = timeutil.SystemClock
	}
	return &ProgressRecorder{
		ledger:    ledger,
		levels:    levels,
		granter:   granter,
		publisher: publisher,
		clock:     clock,
		logger:    logger.OrNop(log).With(slog.String("handler", "progress_recorder")),
		config:    config,
	}
}

// OnGamePlayed counts a finished game.
func (r *ProgressRecorder) OnGamePlayed(ctx context.Context, p *profile.UserProfile) RecordOutcome {
	return r.count(ctx, p, progress.CounterGamesPlayed, gamesPlayedMilestones)
}

// OnPracticeWon counts a won practice session.
func (r *ProgressRecorder) OnPracticeWon(ctx context.Context, p *profile.UserProfile) RecordOutcome {
	return r.count(ctx, p, progress.CounterPracticeSessions, practiceMilestones)
}

// OnPerfectTapWin counts a tap game won without a mistake.
func (r *ProgressRecorder) OnPerfectTapWin(ctx context.Context, p *profile.UserProfile) RecordOutcome {
	return r.count(ctx, p, progress.CounterTapPerfectWins, perfectTapMilestones)
}

// OnLessonCompleted records the prayer, quote and grade-1 sets for a
// lesson. Repeating a lesson adds nothing and grants nothing.
func (r *ProgressRecorder) OnLessonCompleted(ctx context.Context, p *profile.UserProfile, e LessonEvent) RecordOutcome {
	var out RecordOutcome
	userID := p.EnsureGuestKey()
	key := e.Key()

	if e.HasPrayer {
		if res, ok := r.unique(ctx, userID, progress.CategoryPrayers, key); ok && res.Added {
			r.milestone(ctx, p, &out, prayerMilestones, res.Count)
		}
	}
	if e.HasQuote {
		if res, ok := r.unique(ctx, userID, progress.CategoryQuotes, key); ok && res.Added {
			r.milestone(ctx, p, &out, quoteMilestones, res.Count)
		}
	}
	if e.Grade == 1 {
		res, ok := r.unique(ctx, userID, progress.CategoryGrade1Lesson, key)
		if ok && res.Added && res.Count == r.config.Grade1LessonTotal {
			r.grant(ctx, p, &out, achievement.IDGrade1Complete)
		}
	}
	return out
}

// OnDailyChallenge records today's challenge. Streak badges only fire on the
// first completion of a day.
func (r *ProgressRecorder) OnDailyChallenge(ctx context.Context, p *profile.UserProfile) RecordOutcome {
	var out RecordOutcome
	userID := p.EnsureGuestKey()

	res, err := r.ledger.RecordDailyChallenge(ctx, userID)
	if err != nil {
		r.logger.Error("record daily challenge failed", logger.UserID(userID), logger.Err(err))
		return out
	}
	out.Streak = &res
	if res.Repeated {
		return out
	}

	r.publish(shared.NewStreakUpdatedEvent(userID, res.Streak, res.Day, r.clock.Now()))
	r.milestone(ctx, p, &out, streakMilestones, res.Streak)
	return out
}

// OnProfileUpdated grants the avatar badge the first time a profile shows
// an avatar.
func (r *ProgressRecorder) OnProfileUpdated(ctx context.Context, p *profile.UserProfile) RecordOutcome {
	var out RecordOutcome
	if !p.HasAvatar() {
		return out
	}
	userID := p.EnsureGuestKey()

	set, err := r.ledger.EnsureFlag(ctx, userID, progress.FlagProfileAvatar)
	if err != nil {
		r.logger.Error("ensure avatar flag failed", logger.UserID(userID), logger.Err(err))
		return out
	}
	if set {
		r.grant(ctx, p, &out, achievement.IDProfileAvatar)
	}
	return out
}

// OnGameLevelCompleted marks a difficulty level completed and grants the
// game's level badge.
func (r *ProgressRecorder) OnGameLevelCompleted(ctx context.Context, p *profile.UserProfile, e GameLevelEvent) RecordOutcome {
	var out RecordOutcome
	userID := p.EnsureGuestKey()

	if r.levels != nil && difficulty.ValidLevel(e.Level) {
		res, err := r.levels.MarkLevelCompleted(ctx, userID, e.GameID, e.Level)
		if err != nil {
			r.logger.Error("mark level completed failed",
				logger.UserID(userID), logger.GameID(e.GameID), logger.Err(err))
		} else {
			out.Level = &res
			if res.Unlocked() {
				r.publish(shared.NewLevelUnlockedEvent(userID, e.GameID, res.Entry.HighestUnlocked, r.clock.Now()))
			}
		}
	}

	if r.granter == nil {
		return out
	}
	res, err := r.granter.GrantGameAchievement(ctx, saga.GameGrantInput{Screen: e.Screen, Level: e.Level, Profile: p})
	badgeID, _ := achievement.LookupGameAchievement(e.Screen, e.Level)
	r.collect(p, &out, badgeID, res, err)
	return out
}

func (r *ProgressRecorder) count(ctx context.Context, p *profile.UserProfile, counter string, m Milestones) RecordOutcome {
	var out RecordOutcome
	userID := p.EnsureGuestKey()

	n, err := r.ledger.Increment(ctx, userID, counter)
	if err != nil {
		r.logger.Error("increment counter failed", logger.UserID(userID), "counter", counter, logger.Err(err))
		return out
	}
	r.milestone(ctx, p, &out, m, n)
	return out
}

func (r *ProgressRecorder) unique(ctx context.Context, userID, category, key string) (progress.UniqueResult, bool) {
	res, err := r.ledger.RecordUniqueItem(ctx, userID, category, key)
	if err != nil {
		r.logger.Error("record unique item failed",
			logger.UserID(userID), "category", category, "item", key, logger.Err(err))
		return progress.UniqueResult{}, false
	}
	return res, true
}

func (r *ProgressRecorder) milestone(ctx context.Context, p *profile.UserProfile, out *RecordOutcome, m Milestones, value int) {
	if id, ok := m[value]; ok {
		r.grant(ctx, p, out, id)
	}
}

func (r *ProgressRecorder) grant(ctx context.Context, p *profile.UserProfile, out *RecordOutcome, id string) {
	if r.granter == nil {
		return
	}
	res, err := r.granter.Grant(ctx, saga.GrantInput{AchievementID: id, Profile: p})
	r.collect(p, out, id, res, err)
}

// collect applies a grant to p so later grants from the same event see it.
func (r *ProgressRecorder) collect(p *profile.UserProfile, out *RecordOutcome, id string, res saga.GrantResult, err error) {
	if err != nil {
		r.logger.Warn("grant rejected", logger.AchievementID(id), logger.Err(err))
		return
	}
	res.ApplyTo(p)
	out.Granted = append(out.Granted, res)
}

func (r *ProgressRecorder) publish(e shared.Event) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(e); err != nil {
		r.logger.Warn("publish event failed", "event_type", e.EventType(), logger.Err(err))
	}
}
