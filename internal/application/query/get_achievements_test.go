package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuri-app/nuri-progress-sync/internal/domain/achievement"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/profile"
)

type stubFetcher struct {
	calls   atomic.Int32
	payload achievement.RemotePayload
	err     error
	gate    chan struct{}
}

func (f *stubFetcher) FetchAchievements(context.Context, string) (achievement.RemotePayload, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.payload, f.err
}

func TestExecuteMergesRemoteList(t *testing.T) {
	fetcher := &stubFetcher{payload: achievement.RemotePayload{
		Achievements: achievement.RemoteEntries{achievement.BareID(achievement.IDFirstGame)},
	}}
	q := NewAchievementsQuery(nil, fetcher, nil)

	res := q.Execute(context.Background(), &profile.UserProfile{MongoID: "u1"})

	assert.Len(t, res.Achievements, achievement.DefaultCatalog().Len())
	assert.True(t, achievement.IsEarned(res.Achievements, achievement.IDFirstGame))
	first, _ := achievement.DefaultCatalog().Lookup(achievement.IDFirstGame)
	assert.Equal(t, first.Points, res.TotalPoints)
}

func TestExecuteGuestSkipsNetwork(t *testing.T) {
	fetcher := &stubFetcher{}
	q := NewAchievementsQuery(nil, fetcher, nil)

	res := q.Execute(context.Background(), &profile.UserProfile{Guest: true, MongoID: "u1"})

	assert.Equal(t, achievement.EmptyResult(), res)
	assert.Zero(t, fetcher.calls.Load())
}

func TestExecuteFailureReturnsEmpty(t *testing.T) {
	q := NewAchievementsQuery(nil, &stubFetcher{err: errors.New("offline")}, nil)

	res := q.Execute(context.Background(), &profile.UserProfile{ID: "u1"})

	assert.Empty(t, res.Achievements)
	assert.NotNil(t, res.Achievements)
	assert.Zero(t, res.TotalPoints)
}

func TestExecuteWithoutRemote(t *testing.T) {
	q := NewAchievementsQuery(nil, nil, nil)
	assert.Equal(t, achievement.EmptyResult(), q.Execute(context.Background(), &profile.UserProfile{ID: "u1"}))
}

func TestConcurrentRefreshesShareRequest(t *testing.T) {
	fetcher := &stubFetcher{gate: make(chan struct{})}
	q := NewAchievementsQuery(nil, fetcher, nil)
	p := &profile.UserProfile{MongoID: "u1"}

	var wg sync.WaitGroup
	results := make([]achievement.MergeResult, 5)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = q.Execute(context.Background(), p)
		}()
	}

	require.Eventually(t, func() bool { return fetcher.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(fetcher.gate)
	wg.Wait()

	assert.LessOrEqual(t, fetcher.calls.Load(), int32(5))
	for _, r := range results {
		assert.Len(t, r.Achievements, achievement.DefaultCatalog().Len())
	}
}
