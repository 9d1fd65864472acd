package achievements

import (
	"fmt"

	"github.com/nuri-app/nuri-progress-sync/internal/domain/achievement"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / RESPONSE DTOs
// ══════════════════════════════════════════════════════════════════════════════

// GrantRequestDTO is the body of POST /achievement.
type GrantRequestDTO struct {
	UserID        string `json:"userId"`
	AchievementID string `json:"achievementId"`
	TotalPoints   *int   `json:"totalPoints,omitempty"`
}

// GrantResponseDTO is the success body of POST /achievement.
type GrantResponseDTO struct {
	User *achievement.RemotePayload `json:"user"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// Error codes.
const (
	CodeAlreadyEarned = "ALREADY_EARNED"
	CodeUserNotFound  = "USER_NOT_FOUND"
	CodeRequestFailed = "REQUEST_FAILED"
	CodeDecodeFailed  = "DECODE_FAILED"
	CodeCircuitOpen   = "CIRCUIT_OPEN"
)

// APIError is a classified failure of an achievement service call.
type APIError struct {
	Code    string
	Status  int
	Message string
	Err     error
}

// Sentinels for errors.Is.
var (
	ErrAlreadyEarned = &APIError{Code: CodeAlreadyEarned, Message: "achievement already earned"}
	ErrUserNotFound  = &APIError{Code: CodeUserNotFound, Message: "user not found"}
	ErrCircuitOpen   = &APIError{Code: CodeCircuitOpen, Message: "achievement service circuit open"}
)

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// ErrorCode returns the error code.
func (e *APIError) ErrorCode() string {
	return e.Code
}

// Is matches any APIError with the same code.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// Unwrap maps the code onto the domain error kinds, so callers can classify
// the failure without importing this package.
func (e *APIError) Unwrap() []error {
	var kind error
	switch e.Code {
	case CodeAlreadyEarned:
		kind = shared.ErrAlreadyExists
	case CodeUserNotFound:
		kind = shared.ErrNotFound
	case CodeCircuitOpen:
		kind = shared.ErrServiceUnavailable
	case CodeDecodeFailed:
		kind = shared.ErrInvalidFormat
	default:
		kind = shared.ErrExternalService
	}
	if e.Err != nil {
		return []error{kind, e.Err}
	}
	return []error{kind}
}

// isBenign reports whether err is an expected refusal rather than an outage.
func isBenign(err error) bool {
	code := shared.ErrorCode(err)
	return code == CodeAlreadyEarned || code == CodeUserNotFound
}
