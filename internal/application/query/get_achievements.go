// Package query contains read operations.
package query

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nuri-app/nuri-progress-sync/internal/domain/achievement"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/profile"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/shared"
	"github.com/nuri-app/nuri-progress-sync/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACHIEVEMENTS QUERY
// Refreshes the full achievement list from the remote service and merges it
// with the bundled catalog. The refresh never fails: on any error the caller
// gets the empty state and keeps whatever it already shows.
// ══════════════════════════════════════════════════════════════════════════════

// RemoteFetcher fetches a user's achievements from the remote service.
type RemoteFetcher interface {
	FetchAchievements(ctx context.Context, userID string) (achievement.RemotePayload, error)
}

// AchievementsQuery is the refresh operation.
type AchievementsQuery struct {
	catalog *achievement.Catalog
	remote  RemoteFetcher
	logger  *slog.Logger
	group   singleflight.Group
}

// NewAchievementsQuery creates the query. A nil remote makes every refresh
// return the empty state.
func NewAchievementsQuery(catalog *achievement.Catalog, remote RemoteFetcher, log *slog.Logger) *AchievementsQuery {
	if catalog == nil {
		catalog = achievement.DefaultCatalog()
	}
	return &AchievementsQuery{
		catalog: catalog,
		remote:  remote,
		logger:  logger.OrNop(log).With(logger.Component("achievements-query")),
	}
}

// Execute fetches and merges the achievements of p. Guests get the empty
// state without a network call. Concurrent calls for the same user share
// one request.
func (q *AchievementsQuery) Execute(ctx context.Context, p *profile.UserProfile) achievement.MergeResult {
	userID := p.RemoteUserID()
	if userID == "" || q.remote == nil {
		return achievement.EmptyResult()
	}

	v, err, dup := q.group.Do(userID, func() (any, error) {
		start := time.Now()
		payload, err := q.remote.FetchAchievements(context.WithoutCancel(ctx), userID)
		if err != nil {
			return nil, err
		}
		q.logger.Debug("achievements fetched", logger.UserID(userID), logger.Latency(time.Since(start)))
		return achievement.Merge(q.catalog, payload), nil
	})
	if err != nil {
		q.logger.Warn("achievement refresh failed",
			logger.UserID(userID),
			"code", shared.ErrorCode(err),
			logger.Err(err),
		)
		return achievement.EmptyResult()
	}

	result := v.(achievement.MergeResult)
	if dup {
		// Callers may mutate what they get back.
		result.Achievements = achievement.Clone(result.Achievements)
	}
	return result
}
