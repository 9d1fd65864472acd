package messaging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuri-app/nuri-progress-sync/internal/domain/shared"
)

var eventTime = time.Date(2026, time.July, 1, 12, 0, 0, 0, time.UTC)

func TestSyncBusDeliversToTypedAndGlobalHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	defer bus.Close()

	var typed, all int
	require.NoError(t, bus.Subscribe(shared.EventStreakUpdated, func(shared.Event) error { typed++; return nil }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { all++; return nil }))

	require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("u1", 3, "2026-07-01", eventTime)))
	require.NoError(t, bus.Publish(shared.NewLevelUnlockedEvent("u1", "memory", 2, eventTime)))

	assert.Equal(t, 1, typed)
	assert.Equal(t, 2, all)
	assert.Equal(t, int64(2), bus.Metrics().Snapshot().TotalPublished)
}

func TestHandlerPanicIsContained(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	defer bus.Close()

	var after bool
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { after = true; return nil }))

	require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("u1", 1, "2026-07-01", eventTime)))
	assert.True(t, after)
	assert.Equal(t, int64(1), bus.Metrics().Snapshot().HandlerFailures)
}

func TestAsyncBusCloseWaitsForHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2})

	var mu sync.Mutex
	count := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}))
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("u1", i, "2026-07-01", eventTime)))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, 5, count)
	assert.ErrorIs(t, bus.Publish(shared.NewStreakUpdatedEvent("u1", 1, "2026-07-01", eventTime)), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestSubscribeNilHandler(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	assert.ErrorIs(t, bus.Subscribe(shared.EventStreakUpdated, nil), ErrNilHandler)
}

func TestRedisBusMirrorsEventsBetweenInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	newBus := func(id string) *RedisEventBus {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
		t.Cleanup(func() { _ = client.Close() })
		bus, err := NewRedisEventBus(ctx, RedisEventBusConfig{Client: client, InstanceID: id})
		require.NoError(t, err)
		t.Cleanup(func() { _ = bus.Close() })
		return bus
	}
	a, b := newBus("a"), newBus("b")

	var mu sync.Mutex
	var localOnA int
	var received []*RemoteEvent
	require.NoError(t, a.SubscribeAll(func(shared.Event) error {
		mu.Lock()
		defer mu.Unlock()
		localOnA++
		return nil
	}))
	require.NoError(t, b.Subscribe(shared.EventAchievementEarned, func(e shared.Event) error {
		mu.Lock()
		defer mu.Unlock()
		if re, ok := e.(*RemoteEvent); ok {
			received = append(received, re)
		}
		return nil
	}))

	sent := shared.NewAchievementEarnedEvent("u1", "note-1", "first_game", "First Game", 10, eventTime)
	require.NoError(t, a.Publish(sent))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, localOnA)
	got := received[0]
	assert.Equal(t, "a", got.Origin)
	assert.Equal(t, "u1", got.AggregateID())
	assert.True(t, eventTime.Equal(got.OccurredAt()))

	var decoded shared.AchievementEarnedEvent
	require.NoError(t, got.Decode(&decoded))
	assert.Equal(t, "first_game", decoded.AchievementID)
	assert.Equal(t, 10, decoded.Points)
}

func TestRedisBusRequiresClient(t *testing.T) {
	_, err := NewRedisEventBus(context.Background(), RedisEventBusConfig{})
	assert.Error(t, err)
}
