package progresssync

import (
	"log/slog"
	"net/http"

	"github.com/nuri-app/nuri-progress-sync/internal/application/saga"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/achievement"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/shared"
	"github.com/nuri-app/nuri-progress-sync/pkg/timeutil"
)

// Option configures Open.
type Option func(*options)

type options struct {
	clock      timeutil.Clock
	httpClient *http.Client
	store      shared.KeyValueStore
	notifier   saga.Notifier
	profiles   saga.ProfileSaver
	logger     *slog.Logger
	catalog    *achievement.Catalog
}

// WithClock overrides the clock used for streak days and earned dates.
func WithClock(clock timeutil.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithHTTPClient sets the HTTP client used for the achievement service.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithStore uses store instead of the configured backend. The caller keeps
// ownership: Close does not close it.
func WithStore(store KeyValueStore) Option {
	return func(o *options) { o.store = store }
}

// WithNotifier receives a notification for every applied award.
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithProfileSaver persists profile snapshots after each award.
func WithProfileSaver(s ProfileSaver) Option {
	return func(o *options) { o.profiles = s }
}

// WithLogger replaces the logger built from the log configuration.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCatalog replaces the bundled achievement catalog.
func WithCatalog(c *Catalog) Option {
	return func(o *options) { o.catalog = c }
}
