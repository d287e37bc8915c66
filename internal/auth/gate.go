package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"alltech-shop/internal/services/reports"
	"alltech-shop/pkg/logger"
)

// TokenExchanger trades a verified ID token for the backend token pair.
type TokenExchanger interface {
	ExchangeIDToken(ctx context.Context, idToken string) (reports.TokenPair, error)
}

// Gate runs the login flow: verify the ID token, require a provisioned
// profile with a role, exchange the token with the backend, and open a
// session.
type Gate struct {
	verifier Verifier
	profiles ProfileStore
	backend  TokenExchanger
	sessions SessionStore
	issuer   *TokenIssuer
	ttl      time.Duration
	log      *logger.Logger
}

func NewGate(verifier Verifier, profiles ProfileStore, backend TokenExchanger,
	sessions SessionStore, issuer *TokenIssuer, ttl time.Duration, log *logger.Logger) *Gate {
	return &Gate{
		verifier: verifier,
		profiles: profiles,
		backend:  backend,
		sessions: sessions,
		issuer:   issuer,
		ttl:      ttl,
		log:      log.WithComponent("auth"),
	}
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UID       string    `json:"uid"`
	Role      string    `json:"role"`
}

// Login opens a session for the holder of a valid ID token. Users with
// no profile document, or a profile without a role, are denied even when
// the token verifies.
func (g *Gate) Login(ctx context.Context, idToken string) (LoginResult, error) {
	uid, err := g.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return LoginResult{}, err
	}

	profile, ok, err := g.profiles.Profile(ctx, uid)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		return LoginResult{}, fmt.Errorf("%w: no profile for %s", ErrAccessDenied, uid)
	}
	if profile.Role == "" {
		return LoginResult{}, fmt.Errorf("%w: %s has no role", ErrAccessDenied, uid)
	}

	pair, err := g.backend.ExchangeIDToken(ctx, idToken)
	if err != nil {
		return LoginResult{}, err
	}

	session := Session{
		ID:        uuid.NewString(),
		UID:       uid,
		Role:      profile.Role,
		Access:    pair.Access,
		Refresh:   pair.Refresh,
		LastUser:  profile.Email,
		CreatedAt: time.Now(),
	}
	if err := g.sessions.Save(ctx, session, g.ttl); err != nil {
		return LoginResult{}, err
	}

	// Best effort; a login must not fail on the audit stamp.
	if err := g.profiles.TouchLastLogin(ctx, uid); err != nil {
		g.log.Warn("failed to stamp last login", "uid", uid, "error", err)
	}

	token, exp, err := g.issuer.Generate(session)
	if err != nil {
		return LoginResult{}, err
	}
	g.log.Info("session opened", "uid", uid, "role", profile.Role, "session", session.ID)
	return LoginResult{Token: token, ExpiresAt: exp, UID: uid, Role: profile.Role}, nil
}

// Logout discards the session.
func (g *Gate) Logout(ctx context.Context, sessionID string) error {
	return g.sessions.Delete(ctx, sessionID)
}

// Session resolves a live session by ID.
func (g *Gate) Session(ctx context.Context, sessionID string) (Session, error) {
	return g.sessions.Get(ctx, sessionID)
}

// TokenSource exposes a session's backend tokens to the reports client.
func (g *Gate) TokenSource(sessionID string) reports.TokenSource {
	return &sessionTokenSource{store: g.sessions, id: sessionID}
}

type sessionTokenSource struct {
	store SessionStore
	id    string
}

func (s *sessionTokenSource) Tokens(ctx context.Context) (reports.TokenPair, error) {
	sess, err := s.store.Get(ctx, s.id)
	if err != nil {
		return reports.TokenPair{}, err
	}
	return reports.TokenPair{Access: sess.Access, Refresh: sess.Refresh}, nil
}

func (s *sessionTokenSource) UpdateAccess(ctx context.Context, access string) error {
	return s.store.Mutate(ctx, s.id, func(sess *Session) {
		sess.Access = access
	})
}

const introDayFormat = "2006-01-02"

// IntroState reports whether the walkthrough was already shown today,
// plus the last-user marker the login screen prefills from.
type IntroState struct {
	Shown    bool   `json:"shown"`
	LastUser string `json:"last_user,omitempty"`
}

func (g *Gate) IntroState(ctx context.Context, sessionID string) (IntroState, error) {
	s, err := g.sessions.Get(ctx, sessionID)
	if err != nil {
		return IntroState{}, err
	}
	return IntroState{
		Shown:    s.IntroShownOn == time.Now().Format(introDayFormat),
		LastUser: s.LastUser,
	}, nil
}

// MarkIntroShown stamps the walkthrough as shown for today.
func (g *Gate) MarkIntroShown(ctx context.Context, sessionID string) error {
	return g.sessions.Mutate(ctx, sessionID, func(s *Session) {
		s.IntroShownOn = time.Now().Format(introDayFormat)
	})
}
