// Package command contains write operations that span several ledgers.
package command

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/nuri-app/nuri-progress-sync/internal/domain/difficulty"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/progress"
	"github.com/nuri-app/nuri-progress-sync/internal/domain/shared"
	"github.com/nuri-app/nuri-progress-sync/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// WIPE ACCOUNT COMMAND
// Removes everything stored locally for one user: the progress ledger, the
// difficulty map and the lesson override. Records of other users are left
// alone even when their id extends this one.
// ══════════════════════════════════════════════════════════════════════════════

// ErrMissingUserID is returned when no user id is given.
var ErrMissingUserID = errors.New("user id is required")

// WipeAccountResult reports what was removed.
type WipeAccountResult struct {
	RemovedKeys []string
}

// WipeAccountHandler executes the wipe.
type WipeAccountHandler struct {
	store  shared.KeyValueStore
	logger *slog.Logger
}

// NewWipeAccountHandler creates the handler.
func NewWipeAccountHandler(store shared.KeyValueStore, log *slog.Logger) *WipeAccountHandler {
	return &WipeAccountHandler{
		store:  store,
		logger: logger.OrNop(log).With(slog.String("command", "wipe_account")),
	}
}

// Execute removes the user's keys in one MultiRemove call.
func (h *WipeAccountHandler) Execute(ctx context.Context, userID string) (WipeAccountResult, error) {
	if userID == "" {
		return WipeAccountResult{}, ErrMissingUserID
	}

	known := []string{
		progress.Key(userID),
		difficulty.StorageKey(userID),
		progress.LessonKey(userID),
	}
	// Keys is a prefix match, so "u1" also lists records of a user "u1:x".
	// Only exact matches are this user's.
	var present []string
	for _, key := range known {
		found, err := h.store.Keys(ctx, key)
		if err != nil {
			return WipeAccountResult{}, shared.StorageError("account", "Wipe", key, err)
		}
		if slices.Contains(found, key) && !slices.Contains(present, key) {
			present = append(present, key)
		}
	}
	if len(present) == 0 {
		return WipeAccountResult{}, nil
	}

	if err := h.store.MultiRemove(ctx, present...); err != nil {
		return WipeAccountResult{}, shared.StorageError("account", "Wipe", userID, err)
	}
	h.logger.Info("account wiped", logger.UserID(userID), slog.Int("keys", len(present)))
	return WipeAccountResult{RemovedKeys: present}, nil
}
