package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alltech-shop/internal/models"
	"alltech-shop/internal/services/reports"
	"alltech-shop/pkg/logger"
)

type fakeExchanger struct {
	pair  reports.TokenPair
	err   error
	calls int
}

func (f *fakeExchanger) ExchangeIDToken(ctx context.Context, idToken string) (reports.TokenPair, error) {
	f.calls++
	if f.err != nil {
		return reports.TokenPair{}, f.err
	}
	return f.pair, nil
}

type gateFixture struct {
	gate      *Gate
	profiles  *MemoryProfiles
	sessions  *MemorySessions
	exchanger *fakeExchanger
	issuer    *TokenIssuer
}

func newGate(t *testing.T) *gateFixture {
	t.Helper()
	profiles := NewMemoryProfiles()
	sessions := NewMemorySessions()
	exchanger := &fakeExchanger{pair: reports.TokenPair{Access: "a1", Refresh: "r1"}}
	issuer := NewTokenIssuer("test-secret", time.Hour)
	verifier := &StaticVerifier{Tokens: map[string]string{"good-token": "uid-1"}}
	gate := NewGate(verifier, profiles, exchanger, sessions, issuer, time.Hour,
		logger.New(logger.DefaultConfig()))
	return &gateFixture{gate: gate, profiles: profiles, sessions: sessions, exchanger: exchanger, issuer: issuer}
}

func TestLoginOpensSession(t *testing.T) {
	f := newGate(t)
	f.profiles.Put("uid-1", models.UserProfile{Email: "jane@shop", Role: models.RoleAdmin})

	result, err := f.gate.Login(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", result.UID)
	assert.Equal(t, models.RoleAdmin, result.Role)
	require.NotEmpty(t, result.Token)

	claims, err := f.issuer.Parse(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.UID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	session, err := f.sessions.Get(context.Background(), claims.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "a1", session.Access)
	assert.Equal(t, "r1", session.Refresh)

	assert.Equal(t, 1, f.profiles.Touched("uid-1"))
}

func TestLoginRejectsInvalidToken(t *testing.T) {
	f := newGate(t)

	_, err := f.gate.Login(context.Background(), "bad-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Zero(t, f.exchanger.calls, "the backend never sees an unverified token")
}

func TestLoginDeniesMissingProfile(t *testing.T) {
	f := newGate(t)

	_, err := f.gate.Login(context.Background(), "good-token")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Zero(t, f.exchanger.calls)
}

func TestLoginDeniesProfileWithoutRole(t *testing.T) {
	f := newGate(t)
	f.profiles.Put("uid-1", models.UserProfile{Email: "jane@shop"})

	_, err := f.gate.Login(context.Background(), "good-token")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Zero(t, f.exchanger.calls)
}

func TestLoginFailsWhenExchangeFails(t *testing.T) {
	f := newGate(t)
	f.profiles.Put("uid-1", models.UserProfile{Role: "staff"})
	f.exchanger.err = errors.New("backend down")

	_, err := f.gate.Login(context.Background(), "good-token")
	require.Error(t, err)
}

func TestLogoutDropsSession(t *testing.T) {
	f := newGate(t)
	f.profiles.Put("uid-1", models.UserProfile{Role: "staff"})

	result, err := f.gate.Login(context.Background(), "good-token")
	require.NoError(t, err)
	claims, err := f.issuer.Parse(result.Token)
	require.NoError(t, err)

	require.NoError(t, f.gate.Logout(context.Background(), claims.SessionID))
	_, err = f.sessions.Get(context.Background(), claims.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTokenSourceReadsAndUpdatesSession(t *testing.T) {
	f := newGate(t)
	f.profiles.Put("uid-1", models.UserProfile{Role: "staff"})

	result, err := f.gate.Login(context.Background(), "good-token")
	require.NoError(t, err)
	claims, err := f.issuer.Parse(result.Token)
	require.NoError(t, err)

	ts := f.gate.TokenSource(claims.SessionID)
	pair, err := ts.Tokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reports.TokenPair{Access: "a1", Refresh: "r1"}, pair)

	require.NoError(t, ts.UpdateAccess(context.Background(), "a2"))
	pair, err = ts.Tokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a2", pair.Access)
	assert.Equal(t, "r1", pair.Refresh, "the refresh token survives an access update")
}

func TestIntroShownOncePerDay(t *testing.T) {
	f := newGate(t)
	f.profiles.Put("uid-1", models.UserProfile{Email: "jane@shop", Role: "staff"})

	result, err := f.gate.Login(context.Background(), "good-token")
	require.NoError(t, err)
	claims, err := f.issuer.Parse(result.Token)
	require.NoError(t, err)

	state, err := f.gate.IntroState(context.Background(), claims.SessionID)
	require.NoError(t, err)
	assert.False(t, state.Shown)
	assert.Equal(t, "jane@shop", state.LastUser)

	require.NoError(t, f.gate.MarkIntroShown(context.Background(), claims.SessionID))

	state, err = f.gate.IntroState(context.Background(), claims.SessionID)
	require.NoError(t, err)
	assert.True(t, state.Shown)
}

func TestIntroStateMissingSession(t *testing.T) {
	f := newGate(t)

	_, err := f.gate.IntroState(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestIssuerRejectsForeignSignature(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", time.Hour)
	other := NewTokenIssuer("secret-b", time.Hour)

	token, _, err := issuer.Generate(Session{ID: "s1", UID: "u1", Role: "staff"})
	require.NoError(t, err)

	_, err = other.Parse(token)
	assert.Error(t, err)
}

func TestIssuerRejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("secret", -time.Minute)

	token, _, err := issuer.Generate(Session{ID: "s1", UID: "u1"})
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	assert.Error(t, err)
}
