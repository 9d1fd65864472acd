// Package achievements implements the client of the remote achievement
// service: fetch-all and grant-one. Calls are never retried; a circuit
// breaker fails fast while the service keeps failing.
package achievements

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nuri-app/nuri-progress-sync/internal/domain/achievement"
	"github.com/nuri-app/nuri-progress-sync/pkg/circuitbreaker"
	"github.com/nuri-app/nuri-progress-sync/pkg/logger"
)

// maxErrorBody bounds how much of a failed response is kept in an error.
const maxErrorBody = 512

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the achievement service client.
type ClientConfig struct {
	// BaseURL is the service base URL, without a trailing slash.
	BaseURL string

	// Timeout is the HTTP request timeout. It is the only timeout applied.
	Timeout time.Duration

	// BreakerThreshold is the number of consecutive failures that opens the
	// circuit.
	BreakerThreshold int

	// BreakerCooldown is how long the circuit stays open.
	BreakerCooldown time.Duration

	// HTTPClient overrides the HTTP client. Timeout is ignored when set.
	HTTPClient *http.Client

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:          baseURL,
		Timeout:          10 * time.Second,
		BreakerThreshold: 3,
		BreakerCooldown:  30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the achievement service client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	breaker    *circuitbreaker.Breaker
}

// NewClient creates a new achievement service client.
func NewClient(config ClientConfig) *Client {
	log := logger.OrNop(config.Logger).With(logger.Component("achievements-client"))

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	breaker := circuitbreaker.New("achievement-service",
		circuitbreaker.WithFailureThreshold(config.BreakerThreshold),
		circuitbreaker.WithCooldown(config.BreakerCooldown),
		circuitbreaker.WithIsFailure(countsAsFailure),
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
		}),
	)

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		logger:     log,
		breaker:    breaker,
	}
}

func countsAsFailure(err error) bool {
	if isBenign(err) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// BreakerState returns the circuit breaker state.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

// ══════════════════════════════════════════════════════════════════════════════
// OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// FetchAchievements calls GET /achievements/{userId}.
func (c *Client) FetchAchievements(ctx context.Context, userID string) (achievement.RemotePayload, error) {
	var payload achievement.RemotePayload
	err := c.doRequest(ctx, http.MethodGet, "/achievements/"+url.PathEscape(userID), nil, func(body []byte) error {
		p, err := achievement.DecodePayload(body)
		if err != nil {
			return err
		}
		payload = p
		return nil
	})
	if err != nil {
		return achievement.RemotePayload{}, err
	}
	return payload, nil
}

// GrantAchievement calls POST /achievement and returns the user's
// authoritative achievement list from the response.
func (c *Client) GrantAchievement(ctx context.Context, userID, achievementID string, totalPoints *int) (achievement.RemotePayload, error) {
	req := GrantRequestDTO{UserID: userID, AchievementID: achievementID, TotalPoints: totalPoints}
	var payload achievement.RemotePayload
	err := c.doRequest(ctx, http.MethodPost, "/achievement", req, func(body []byte) error {
		var resp GrantResponseDTO
		if err := json.Unmarshal(body, &resp); err != nil {
			return err
		}
		if resp.User == nil {
			return errors.New("response has no user")
		}
		payload = *resp.User
		return nil
	})
	if err != nil {
		return achievement.RemotePayload{}, err
	}
	return payload, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP
// ══════════════════════════════════════════════════════════════════════════════

func (c *Client) doRequest(ctx context.Context, method, path string, body any, decode func([]byte) error) error {
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.doSingleRequest(ctx, method, path, body, decode)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return ErrCircuitOpen
	}
	return err
}

func (c *Client) doSingleRequest(ctx context.Context, method, path string, body any, decode func([]byte) error) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Code: CodeRequestFailed, Message: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Code: CodeRequestFailed, Status: resp.StatusCode, Message: "read response", Err: err}
	}

	c.logger.Debug("achievement service call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		logger.Latency(time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(resp.StatusCode, respBody)
	}
	if err := decode(respBody); err != nil {
		return &APIError{Code: CodeDecodeFailed, Status: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}

// classify maps a non-2xx response onto an error code by inspecting the body.
func classify(status int, body []byte) *APIError {
	text := strings.ToLower(string(body))
	switch {
	case strings.Contains(text, "already earned"):
		return &APIError{Code: CodeAlreadyEarned, Status: status, Message: "achievement already earned"}
	case strings.Contains(text, "user not found"):
		return &APIError{Code: CodeUserNotFound, Status: status, Message: "user not found"}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Code: CodeRequestFailed, Status: status, Message: msg}
}
