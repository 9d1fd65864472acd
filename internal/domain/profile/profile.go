// Package profile models the signed-in (or guest) user as the progress sync
// library consumes it. Profiles are loaded elsewhere; this package only
// derives identifiers from them.
package profile

import (
	"strings"

	"github.com/google/uuid"

	"github.com/nuri-app/nuri-progress-sync/internal/domain/achievement"
)

// GuardBucketLocal is the in-flight guard bucket shared by profiles without
// a remote identity.
const GuardBucketLocal = "local"

// UserProfile is a snapshot of the current user.
type UserProfile struct {
	MongoID      string                    `json:"_id,omitempty"`
	ID           string                    `json:"id,omitempty"`
	NuriUserID   string                    `json:"nuriUserId,omitempty"`
	GuestKey     string                    `json:"guestKey,omitempty"`
	Guest        bool                      `json:"guest"`
	Name         string                    `json:"name,omitempty"`
	Avatar       string                    `json:"avatar,omitempty"`
	Achievements []achievement.Achievement `json:"achievements"`
	TotalPoints  int                       `json:"totalPoints"`
}

// LedgerKey returns the identifier local ledgers are keyed by: the first
// non-empty of _id, id and nuriUserId, else the guest key. It is empty only
// for a guest whose key was never ensured.
func (p *UserProfile) LedgerKey() string {
	if p == nil {
		return ""
	}
	return firstNonEmpty(p.MongoID, p.ID, p.NuriUserID, p.GuestKey)
}

// RemoteUserID returns the id the achievement service knows the user by.
// Guests never sync, so it is empty for them.
func (p *UserProfile) RemoteUserID() string {
	if p == nil || p.Guest {
		return ""
	}
	return firstNonEmpty(p.MongoID, p.NuriUserID, p.ID)
}

// GuardKey returns the in-flight guard bucket for the profile.
func (p *UserProfile) GuardKey() string {
	if id := p.RemoteUserID(); id != "" {
		return id
	}
	return GuardBucketLocal
}

// HasAvatar reports whether an avatar was chosen.
func (p *UserProfile) HasAvatar() bool {
	return p != nil && strings.TrimSpace(p.Avatar) != ""
}

// EnsureGuestKey assigns a synthesized guest key when the profile has no
// identifier at all, and returns the resulting ledger key.
func (p *UserProfile) EnsureGuestKey() string {
	if p == nil {
		return ""
	}
	if key := p.LedgerKey(); key != "" {
		return key
	}
	p.GuestKey = "guest-" + uuid.NewString()
	return p.GuestKey
}

// Clone returns a deep copy of the profile.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.Achievements = achievement.Clone(p.Achievements)
	return &c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
