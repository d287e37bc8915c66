// Package auth gates access to the shop. A Firebase ID token only opens
// a session when a Firestore profile exists for the user and carries a
// role; the session then holds the backend token pair for the reports
// proxy.
package auth

import (
	"context"
	"errors"
	"time"

	"alltech-shop/internal/models"
)

var (
	// ErrAccessDenied means the identity is real but not provisioned: no
	// profile document, or a profile without a role.
	ErrAccessDenied = errors.New("auth: access denied")

	// ErrInvalidToken means the ID token failed verification.
	ErrInvalidToken = errors.New("auth: invalid id token")

	ErrSessionNotFound = errors.New("auth: session not found")
)

// Session is the server-side record behind a gateway JWT. IntroShownOn
// and LastUser carry the bits of client state the shop UI wants to
// survive a reload: the per-day walkthrough flag and the previous user.
type Session struct {
	ID           string    `json:"id"`
	UID          string    `json:"uid"`
	Role         string    `json:"role"`
	Access       string    `json:"access"`
	Refresh      string    `json:"refresh"`
	IntroShownOn string    `json:"intro_shown_on,omitempty"`
	LastUser     string    `json:"last_user,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionStore persists sessions for their lifetime.
type SessionStore interface {
	Save(ctx context.Context, s Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	// Mutate applies fn to the stored session without touching its
	// remaining lifetime.
	Mutate(ctx context.Context, id string, fn func(*Session)) error
}

// Verifier checks a Firebase ID token and returns the user ID.
type Verifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
}

// ProfileStore reads the provisioning documents that gate access.
type ProfileStore interface {
	// Profile returns the user's profile and whether it exists.
	Profile(ctx context.Context, uid string) (models.UserProfile, bool, error)
	TouchLastLogin(ctx context.Context, uid string) error
}
