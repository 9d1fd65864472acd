// Package progresssync tracks a child's learning progress on the device,
// awards achievements optimistically and reconciles them with the remote
// achievement service.
//
// Open wires every component from a config.Config:
//
//	cfg, err := config.Load()
//	svc, err := progresssync.Open(ctx, *cfg, progresssync.WithNotifier(n))
//	defer svc.Close()
//
//	p := &progresssync.UserProfile{ID: "u1"}
//	out := svc.Recorder().OnGamePlayed(ctx, p)
package progresssync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nuri-app/nuri-progress-sync/config"
	"github.com/nuri-app/nuri-progress-sync/internal/application/command"
	"github.com/nuri-app/nuri-progress-sync/internal/application/eventhandler"
	"github.com/nuri-app/nuri-progress-sync/internal/application/query"
	"github.com/nuri-app/nuri-progress-sync/internal/application/saga"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/achievement"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/difficulty"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/progress"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/shared"
	"github.com/nuri-app/nuri-progress-sync/internal/infrastructure/external/achievements"
	"github.com/nuri-app/nuri-progress-sync/internal/infrastructure/messaging"
	"github.com/nuri-app/nuri-progress-sync/internal/infrastructure/persistence/memory"
	"github.com/nuri-app/nuri-progress-sync/internal/infrastructure/persistence/postgres"
	"github.com/nuri-app/nuri-progress-sync/internal/infrastructure/persistence/redis"
	"github.com/nuri-app/nuri-progress-sync/internal/infrastructure/persistence/sqlite"
	"github.com/nuri-app/nuri-progress-sync/pkg/logger"
	"github.com/nuri-app/nuri-progress-sync/pkg/timeutil"
)

// eventBus is what both bus implementations provide.
type eventBus interface {
	shared.EventPublisher
	shared.EventSubscriber
	io.Closer
}

// Service is the assembled library.
type Service struct {
	store      shared.KeyValueStore
	catalog    *achievement.Catalog
	calendar   *timeutil.Calendar
	progress   *progress.Ledger
	difficulty *difficulty.Ledger
	lessons    *progress.LessonStore
	grants     *saga.GrantCoordinator
	refresh    *query.AchievementsQuery
	recorder   *eventhandler.ProgressRecorder
	wipe       *command.WipeAccountHandler
	events     eventBus
	client     *achievements.Client
	logger     *slog.Logger

	closers []io.Closer
}

// Open builds a Service from cfg. The storage backend is opened unless
// WithStore supplies one.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = timeutil.SystemClock
	}
	if o.catalog == nil {
		o.catalog = achievement.DefaultCatalog()
	}
	if o.logger == nil {
		o.logger = logger.New(logger.Options{
			Output: os.Stderr,
			Level:  logger.ParseLevel(cfg.Log.Level),
			Format: logger.Format(cfg.Log.Format),
		})
	}

	s := &Service{
		catalog:  o.catalog,
		calendar: timeutil.NewCalendar(o.clock, cfg.App.Location()),
		logger:   o.logger,
	}

	var redisStore *redis.Store
	if o.store != nil {
		s.store = o.store
	} else {
		store, err := openStore(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
		}
		s.store = store
		if closer, ok := store.(io.Closer); ok {
			s.closers = append(s.closers, closer)
		}
		redisStore, _ = store.(*redis.Store)
	}

	bus, err := openEventBus(ctx, cfg.Storage, redisStore, o.logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.events = bus
	// Closed before the store it may share a client with.
	s.closers = append([]io.Closer{bus}, s.closers...)

	var (
		granter saga.RemoteGranter
		fetcher query.RemoteFetcher
	)
	if cfg.Remote.Enabled() {
		s.client = achievements.NewClient(achievements.ClientConfig{
			BaseURL:          cfg.Remote.BaseURL,
			Timeout:          cfg.Remote.Timeout,
			BreakerThreshold: cfg.Remote.BreakerThreshold,
			BreakerCooldown:  cfg.Remote.BreakerCooldown,
			HTTPClient:       o.httpClient,
			Logger:           o.logger,
		})
		granter, fetcher = s.client, s.client
	}

	s.progress = progress.NewLedger(s.store, s.calendar)
	s.difficulty = difficulty.NewLedger(s.store)
	s.lessons = progress.NewLessonStore(s.store)
	s.grants = saga.NewGrantCoordinator(o.catalog, granter, o.profiles, o.notifier, o.logger,
		saga.WithClock(o.clock),
		saga.WithPublisher(bus),
	)
	s.refresh = query.NewAchievementsQuery(o.catalog, fetcher, o.logger)
	s.recorder = eventhandler.NewProgressRecorder(s.progress, s.difficulty, s.grants, bus, o.clock, o.logger,
		eventhandler.RecorderConfig{Grade1LessonTotal: cfg.Progress.Grade1LessonTotal})
	s.wipe = command.NewWipeAccountHandler(s.store, o.logger)

	o.logger.Debug("progress sync opened",
		"backend", cfg.Storage.Backend,
		"remote", cfg.Remote.Enabled(),
	)
	return s, nil
}

func openStore(ctx context.Context, cfg config.StorageConfig) (shared.KeyValueStore, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case config.BackendRedis:
		rc := redis.DefaultConfig()
		rc.URL = cfg.RedisURL
		rc.Prefix = cfg.RedisPrefix
		return redis.Open(ctx, rc)
	case config.BackendPostgres:
		pc := postgres.DefaultConfig()
		pc.DSN = cfg.PostgresDSN
		pc.MaxConns = cfg.PostgresMaxConns
		return postgres.Open(ctx, pc)
	default:
		return memory.NewStore(), nil
	}
}

func openEventBus(ctx context.Context, cfg config.StorageConfig, store *redis.Store, log *slog.Logger) (eventBus, error) {
	local := messaging.DefaultInMemoryEventBusConfig()
	local.Logger = log
	if cfg.RedisEventsChannel == "" || store == nil {
		return messaging.NewInMemoryEventBus(local), nil
	}
	bus, err := messaging.NewRedisEventBus(ctx, messaging.RedisEventBusConfig{
		Client:         store.Client(),
		ChannelName:    cfg.RedisEventsChannel,
		LocalBusConfig: local,
		Logger:         log,
	})
	if err != nil {
		return nil, fmt.Errorf("open event bus: %w", err)
	}
	return bus, nil
}

// Recorder returns the event recorder, the main entry point for the UI.
func (s *Service) Recorder() *Recorder { return s.recorder }

// Grants returns the grant coordinator.
func (s *Service) Grants() *GrantCoordinator { return s.grants }

// Progress returns the progress ledger.
func (s *Service) Progress() *ProgressLedger { return s.progress }

// Difficulty returns the difficulty ledger.
func (s *Service) Difficulty() *DifficultyLedger { return s.difficulty }

// Lessons returns the lesson override store.
func (s *Service) Lessons() *LessonStore { return s.lessons }

// Catalog returns the achievement catalog.
func (s *Service) Catalog() *Catalog { return s.catalog }

// Events returns the subscriber side of the event bus.
func (s *Service) Events() EventSubscriber { return s.events }

// Refresh fetches and merges the user's achievements. It never fails; see
// query.AchievementsQuery.
func (s *Service) Refresh(ctx context.Context, p *UserProfile) MergeResult {
	return s.refresh.Execute(ctx, p)
}

// WipeAccount removes everything stored for userID.
func (s *Service) WipeAccount(ctx context.Context, userID string) (WipeAccountResult, error) {
	return s.wipe.Execute(ctx, userID)
}

// Close stops the coordinator and releases what Open opened.
func (s *Service) Close() error {
	if s.grants != nil {
		s.grants.Close()
	}
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
