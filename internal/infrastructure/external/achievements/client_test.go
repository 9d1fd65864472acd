package achievements

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuri-app/nuri-progress-sync/internal/domain/achievement"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/shared"
	"github.com/nuri-app/nuri-progress-sync/pkg/circuitbreaker"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := DefaultClientConfig(srv.URL + "/")
	cfg.Timeout = 2 * time.Second
	return NewClient(cfg)
}

func TestFetchAchievements(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/achievements/user%201", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"achievements": ["first_game", {"id": "x", "title": "X"}], "totalPoints": 15}`))
	})

	payload, err := client.FetchAchievements(context.Background(), "user 1")
	require.NoError(t, err)
	assert.Len(t, payload.Achievements, 2)
	total, ok := payload.TotalPoints.Int()
	assert.True(t, ok)
	assert.Equal(t, 15, total)
}

func TestFetchAchievementsDecodeFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	_, err := client.FetchAchievements(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, CodeDecodeFailed, shared.ErrorCode(err))
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)
}

func TestGrantAchievementSendsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/achievement", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req GrantRequestDTO
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "u1", req.UserID)
		assert.Equal(t, "first_game", req.AchievementID)
		if assert.NotNil(t, req.TotalPoints) {
			assert.Equal(t, 10, *req.TotalPoints)
		}

		_, _ = w.Write([]byte(`{"user": {"achievements": [{"achievement": {"_id": "first_game"}, "earned": true}], "totalPoints": 10}}`))
	})

	points := 10
	payload, err := client.GrantAchievement(context.Background(), "u1", "first_game", &points)
	require.NoError(t, err)

	merged := achievement.Merge(achievement.DefaultCatalog(), payload)
	assert.True(t, achievement.IsEarned(merged.Achievements, "first_game"))
	assert.Equal(t, 10, merged.TotalPoints)
}

func TestGrantAchievementMissingUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": true}`))
	})

	_, err := client.GrantAchievement(context.Background(), "u1", "first_game", nil)
	assert.ErrorContains(t, err, "response has no user")
}

func TestGrantAchievementClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
		kind   error
	}{
		{"already earned", http.StatusConflict, `{"message": "Achievement Already Earned"}`, ErrAlreadyEarned, shared.ErrAlreadyExists},
		{"user not found", http.StatusNotFound, `User not found`, ErrUserNotFound, shared.ErrNotFound},
		{"other", http.StatusInternalServerError, `database down`, &APIError{Code: CodeRequestFailed}, shared.ErrExternalService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.GrantAchievement(context.Background(), "u1", "first_game", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.kind)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}
}

func TestBenignErrorsDoNotOpenCircuit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`already earned`))
	})

	for i := 0; i < 5; i++ {
		_, err := client.GrantAchievement(context.Background(), "u1", "first_game", nil)
		assert.ErrorIs(t, err, ErrAlreadyEarned)
	}
	assert.Equal(t, circuitbreaker.StateClosed, client.BreakerState())
}

func TestCircuitOpensAndFailsFast(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 3; i++ {
		_, err := client.FetchAchievements(context.Background(), "u1")
		assert.Equal(t, CodeRequestFailed, shared.ErrorCode(err))
	}
	require.Equal(t, circuitbreaker.StateOpen, client.BreakerState())

	_, err := client.FetchAchievements(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	assert.Equal(t, int32(3), calls.Load(), "no request while open")
}

func TestTransportFailure(t *testing.T) {
	cfg := DefaultClientConfig("http://127.0.0.1:1")
	cfg.Timeout = 500 * time.Millisecond
	client := NewClient(cfg)

	_, err := client.FetchAchievements(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, CodeRequestFailed, shared.ErrorCode(err))
}
