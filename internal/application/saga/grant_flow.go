// Package saga contains the multi-step business processes of the progress
// sync library.
package saga

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/nuri-app/nuri-progress-sync/internal/domain/achievement"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/profile"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/shared"
	"github.com/nuri-app/nuri-progress-sync/pkg/logger"
	"github.com/nuri-app/nuri-progress-sync/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT GRANT FLOW
// Flow: Guard → In-flight Guard → Optimistic Mark → Notify → Save Snapshot →
//
//	Remote Grant → Reconcile (or keep optimistic state) → Release Guard
//
// An award the user has seen is never rolled back. The remote service is
// authoritative once it acknowledges a grant; until then the optimistic
// state stands.
// ══════════════════════════════════════════════════════════════════════════════

// ErrCoordinatorClosed is returned by Grant after Close.
var ErrCoordinatorClosed = errors.New("grant coordinator is closed")

// RemoteGranter grants one achievement on the remote service and returns
// the user's authoritative list.
type RemoteGranter interface {
	GrantAchievement(ctx context.Context, userID, achievementID string, totalPoints *int) (achievement.RemotePayload, error)
}

// ProfileSaver persists a profile snapshot.
type ProfileSaver interface {
	SaveProfile(ctx context.Context, p *profile.UserProfile) error
}

// ProfileSaverFunc adapts a function to ProfileSaver.
type ProfileSaverFunc func(ctx context.Context, p *profile.UserProfile) error

// SaveProfile implements ProfileSaver.
func (f ProfileSaverFunc) SaveProfile(ctx context.Context, p *profile.UserProfile) error {
	return f(ctx, p)
}

// Notification is the payload the UI shows when an achievement is awarded.
type Notification struct {
	ID            string `json:"id"`
	AchievementID string `json:"achievementId"`
	Title         string `json:"title"`
	Points        int    `json:"points"`
}

// Notifier delivers award notifications.
type Notifier interface {
	Notify(ctx context.Context, userKey string, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, userKey string, n Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, userKey string, n Notification) {
	f(ctx, userKey, n)
}

// IDGenerator generates notification ids.
type IDGenerator interface {
	// GenerateID generates a new unique ID.
	GenerateID() string
}

type uuidGenerator struct{}

func (uuidGenerator) GenerateID() string { return uuid.NewString() }

// GrantStatus is the final state of one grant attempt.
type GrantStatus string

const (
	// GrantSkipped means nothing was applied.
	GrantSkipped GrantStatus = "skipped"
	// GrantOptimistic means the award was applied locally only.
	GrantOptimistic GrantStatus = "optimistic"
	// GrantReconciled means the server acknowledged and its state was adopted.
	GrantReconciled GrantStatus = "reconciled"
)

// SkipReason explains a skipped grant.
type SkipReason string

const (
	SkipMissingInput  SkipReason = "missing_input"
	SkipAlreadyEarned SkipReason = "already_earned"
	SkipInFlight      SkipReason = "in_flight"
	SkipNoMapping     SkipReason = "no_mapping"
)

// GrantStep is a step of the grant flow, used in logs.
type GrantStep string

const (
	StepGuard       GrantStep = "guard"
	StepOptimistic  GrantStep = "optimistic"
	StepSaveProfile GrantStep = "save_profile"
	StepRemoteGrant GrantStep = "remote_grant"
	StepReconcile   GrantStep = "reconcile"
)

// GrantInput identifies the achievement and the user to award it to.
type GrantInput struct {
	AchievementID string
	Profile       *profile.UserProfile
}

// GameGrantInput identifies a game level badge.
type GameGrantInput struct {
	Screen  string
	Level   int
	Profile *profile.UserProfile
}

// GrantResult is the outcome of a grant. For non-skipped results,
// Achievements and TotalPoints are the state the UI should adopt.
type GrantResult struct {
	Status        GrantStatus
	SkipReason    SkipReason
	AchievementID string
	Achievements  []achievement.Achievement
	TotalPoints   int
	Notification  *Notification

	// RemoteErrorCode is set when the remote grant failed.
	RemoteErrorCode string
	// RemoteRetryable is set when the failure came from the service being
	// down or erroring rather than from it refusing the grant.
	RemoteRetryable bool
}

// Applied reports whether the award was applied.
func (r GrantResult) Applied() bool {
	return r.Status == GrantOptimistic || r.Status == GrantReconciled
}

// ApplyTo copies the resulting state into p. Skipped results leave p alone.
func (r GrantResult) ApplyTo(p *profile.UserProfile) {
	if p == nil || !r.Applied() {
		return
	}
	p.Achievements = achievement.Clone(r.Achievements)
	p.TotalPoints = r.TotalPoints
}

// GrantOption configures a GrantCoordinator.
type GrantOption func(*GrantCoordinator)

// WithClock sets the clock used for earned dates.
func WithClock(clock timeutil.Clock) GrantOption {
	return func(c *GrantCoordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithIDGenerator sets the notification id generator.
func WithIDGenerator(gen IDGenerator) GrantOption {
	return func(c *GrantCoordinator) {
		if gen != nil {
			c.ids = gen
		}
	}
}

// WithPublisher publishes an AchievementEarnedEvent for every applied award
// and an AchievementSyncedEvent after each reconcile.
func WithPublisher(p shared.EventPublisher) GrantOption {
	return func(c *GrantCoordinator) {
		c.publisher = p
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// GRANT COORDINATOR
// ══════════════════════════════════════════════════════════════════════════════

// GrantCoordinator awards achievements. The in-flight guard set belongs to
// the instance and lives until Close, so separate coordinators never share
// state.
type GrantCoordinator struct {
	catalog   *achievement.Catalog
	remote    RemoteGranter
	profiles  ProfileSaver
	notifier  Notifier
	publisher shared.EventPublisher
	logger    *slog.Logger
	clock     timeutil.Clock
	ids       IDGenerator

	mu       sync.Mutex
	inFlight map[string]struct{}
	closed   bool
}

// NewGrantCoordinator creates a coordinator. remote, profiles and notifier
// may be nil: without a remote every grant stays optimistic.
func NewGrantCoordinator(
	catalog *achievement.Catalog,
	remote RemoteGranter,
	profiles ProfileSaver,
	notifier Notifier,
	log *slog.Logger,
	opts ...GrantOption,
) *GrantCoordinator {
	if catalog == nil {
		catalog = achievement.DefaultCatalog()
	}
	c := &GrantCoordinator{
		catalog:  catalog,
		remote:   remote,
		profiles: profiles,
		notifier: notifier,
		logger:   logger.OrNop(log).With(logger.Component("grant-coordinator")),
		clock:    timeutil.SystemClock,
		ids:      uuidGenerator{},
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GrantGameAchievement resolves the badge for a game screen and level and
// grants it. Combinations without a badge are skipped silently.
func (c *GrantCoordinator) GrantGameAchievement(ctx context.Context, in GameGrantInput) (GrantResult, error) {
	id, ok := achievement.LookupGameAchievement(in.Screen, in.Level)
	if !ok {
		return GrantResult{Status: GrantSkipped, SkipReason: SkipNoMapping}, nil
	}
	return c.Grant(ctx, GrantInput{AchievementID: id, Profile: in.Profile})
}

// Grant awards one achievement. Remote failures never surface as errors;
// they are logged and reported through RemoteErrorCode. The only error is
// ErrCoordinatorClosed. Once past the guards the flow runs to completion
// even if ctx is canceled.
func (c *GrantCoordinator) Grant(ctx context.Context, in GrantInput) (GrantResult, error) {
	p, id := in.Profile, in.AchievementID

	// Step 1: guard
	if p == nil || id == "" {
		return GrantResult{Status: GrantSkipped, SkipReason: SkipMissingInput, AchievementID: id}, nil
	}
	if achievement.IsEarned(p.Achievements, id) {
		return GrantResult{Status: GrantSkipped, SkipReason: SkipAlreadyEarned, AchievementID: id}, nil
	}

	// Step 2: in-flight guard
	guardKey := p.GuardKey() + ":" + id
	acquired, err := c.acquire(guardKey)
	if err != nil {
		return GrantResult{}, err
	}
	if !acquired {
		c.logger.Debug("grant already in flight", logger.AchievementID(id), "guard", guardKey)
		return GrantResult{Status: GrantSkipped, SkipReason: SkipInFlight, AchievementID: id}, nil
	}
	defer c.release(guardKey)

	ctx = context.WithoutCancel(ctx)
	log := c.logger.With(logger.UserID(p.LedgerKey()), logger.AchievementID(id))

	// Step 3: optimistic mark
	snapshot := p.Clone()
	idx := achievement.IndexOf(snapshot.Achievements, id)
	if idx < 0 {
		snapshot.Achievements = append(snapshot.Achievements, c.catalog.Synthesize(id))
		idx = len(snapshot.Achievements) - 1
	}
	awarded := snapshot.Achievements[idx].MarkEarned(c.clock.Now())
	snapshot.Achievements[idx] = awarded
	snapshot.TotalPoints += awarded.Points

	notification := Notification{
		ID:            c.ids.GenerateID(),
		AchievementID: id,
		Title:         awarded.Title,
		Points:        awarded.Points,
	}
	if c.notifier != nil {
		c.notifier.Notify(ctx, p.LedgerKey(), notification)
	}
	c.publish(log, shared.NewAchievementEarnedEvent(
		p.LedgerKey(), notification.ID, id, notification.Title, notification.Points, c.clock.Now()))
	c.save(ctx, log, StepOptimistic, snapshot)

	result := GrantResult{
		Status:        GrantOptimistic,
		AchievementID: id,
		Achievements:  achievement.Clone(snapshot.Achievements),
		TotalPoints:   snapshot.TotalPoints,
		Notification:  &notification,
	}

	// Step 4: reconcile only users the server knows
	remoteID := p.RemoteUserID()
	if remoteID == "" || c.remote == nil {
		return result, nil
	}

	// Step 5: remote grant
	total := snapshot.TotalPoints
	payload, err := c.remote.GrantAchievement(ctx, remoteID, id, &total)
	if err != nil {
		// Step 6: classify; the optimistic state is final either way
		code := shared.ErrorCode(err)
		if code == "" {
			code = "REQUEST_FAILED"
		}
		result.RemoteErrorCode = code
		switch {
		case errors.Is(err, shared.ErrAlreadyExists) || shared.IsNotFound(err):
			log.Warn("remote grant refused, keeping local award", "step", StepRemoteGrant, "code", code)
		case shared.IsExternalService(err):
			result.RemoteRetryable = true
			log.Warn("achievement service failed, keeping local award", "step", StepRemoteGrant, "code", code, logger.Err(err))
		default:
			log.Error("remote grant failed, keeping local award", "step", StepRemoteGrant, "code", code, logger.Err(err))
		}
		return result, nil
	}

	merged := achievement.Merge(c.catalog, payload)
	snapshot.Achievements = merged.Achievements
	snapshot.TotalPoints = merged.TotalPoints
	c.save(ctx, log, StepReconcile, snapshot)

	c.publish(log, shared.NewAchievementSyncedEvent(p.LedgerKey(), id, merged.TotalPoints, c.clock.Now()))

	result.Status = GrantReconciled
	result.Achievements = achievement.Clone(merged.Achievements)
	result.TotalPoints = merged.TotalPoints
	log.Info("achievement granted", logger.Points(merged.TotalPoints))
	return result, nil
}

func (c *GrantCoordinator) save(ctx context.Context, log *slog.Logger, step GrantStep, snapshot *profile.UserProfile) {
	if c.profiles == nil {
		return
	}
	if err := c.profiles.SaveProfile(ctx, snapshot.Clone()); err != nil {
		// Continue: the award itself already happened
		log.Error("save profile snapshot failed", "step", step, logger.Err(err))
	}
}

func (c *GrantCoordinator) publish(log *slog.Logger, event shared.Event) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(event); err != nil {
		log.Warn("publish event failed", "event_type", event.EventType(), logger.Err(err))
	}
}

func (c *GrantCoordinator) acquire(key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrCoordinatorClosed
	}
	if _, busy := c.inFlight[key]; busy {
		return false, nil
	}
	c.inFlight[key] = struct{}{}
	return true, nil
}

func (c *GrantCoordinator) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, key)
}

// InFlight returns the number of grants currently running.
func (c *GrantCoordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inFlight)
}

// Close clears the guard set and rejects further grants.
func (c *GrantCoordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	clear(c.inFlight)
}
