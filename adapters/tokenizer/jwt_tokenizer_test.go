package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/ports"
)

func newTokenizer(t *testing.T) ports.Tokenizer {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return NewJWTTokenizer(key)
}

func TestChallengeTokenRoundTrip(t *testing.T) {
	tk := newTokenizer(t)
	now := time.Now().Truncate(time.Second)

	challenge := &core.Challenge{
		ID:        "chal-1",
		Account:   "alice",
		Nonce:     "deadbeef",
		IssuedAt:  now,
		ExpiresAt: now.Add(5 * time.Minute),
	}

	token, err := tk.ChallengeToToken(challenge)
	require.NoError(t, err)

	parsed, err := tk.TokenToChallenge(token)
	require.NoError(t, err)
	assert.Equal(t, challenge.ID, parsed.ID)
	assert.Equal(t, challenge.Account, parsed.Account)
	assert.Equal(t, challenge.Nonce, parsed.Nonce)
	assert.Equal(t, challenge.ExpiresAt.Unix(), parsed.ExpiresAt.Unix())
}

func TestSessionTokenRoundTrip(t *testing.T) {
	tk := newTokenizer(t)
	now := time.Now().Truncate(time.Second)

	session := &core.Session{
		ID:            "sess-1",
		Account:       "alice",
		Level:         core.LevelActive,
		IssuedAt:      now,
		AccessExpiry:  now.Add(5 * time.Minute),
		RefreshExpiry: now.Add(5 * 24 * time.Hour),
		RefreshID:     "refresh-1",
	}

	access, err := tk.SessionToAccessToken(session)
	require.NoError(t, err)
	refresh, err := tk.SessionToRefreshToken(session)
	require.NoError(t, err)

	fromAccess, err := tk.AccessTokenToSession(access)
	require.NoError(t, err)
	assert.Equal(t, "alice", fromAccess.Account)
	assert.Equal(t, core.LevelActive, fromAccess.Level)
	assert.Equal(t, "refresh-1", fromAccess.RefreshID)

	fromRefresh, err := tk.RefreshTokenToSession(refresh)
	require.NoError(t, err)
	assert.Equal(t, "alice", fromRefresh.Account)
	assert.Equal(t, "refresh-1", fromRefresh.RefreshID)
	assert.Equal(t, session.RefreshExpiry.Unix(), fromRefresh.RefreshExpiry.Unix())
}

func TestTokenAudiencesAreDisjoint(t *testing.T) {
	tk := newTokenizer(t)
	now := time.Now()

	session := &core.Session{
		ID:            "sess-1",
		Account:       "alice",
		Level:         core.LevelPosting,
		IssuedAt:      now,
		AccessExpiry:  now.Add(5 * time.Minute),
		RefreshExpiry: now.Add(24 * time.Hour),
		RefreshID:     "refresh-1",
	}
	access, err := tk.SessionToAccessToken(session)
	require.NoError(t, err)

	// An access token can never stand in for a challenge or a refresh
	// token.
	_, err = tk.TokenToChallenge(access)
	assert.Error(t, err)
	_, err = tk.RefreshTokenToSession(access)
	assert.Error(t, err)
}

func TestExpiredTokenMapsToSentinel(t *testing.T) {
	tk := newTokenizer(t)
	now := time.Now()

	token, err := tk.ChallengeToToken(&core.Challenge{
		ID:        "chal-1",
		IssuedAt:  now.Add(-10 * time.Minute),
		ExpiresAt: now.Add(-5 * time.Minute),
	})
	require.NoError(t, err)

	_, err = tk.TokenToChallenge(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestTokenSignatureIsChecked(t *testing.T) {
	tk := newTokenizer(t)
	other := newTokenizer(t)
	now := time.Now()

	token, err := tk.ChallengeToToken(&core.Challenge{
		ID:        "chal-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Minute),
	})
	require.NoError(t, err)

	// A token minted under one key fails verification under another.
	_, err = other.TokenToChallenge(token)
	assert.Error(t, err)

	_, err = tk.TokenToChallenge(token + "tampered")
	assert.Error(t, err)
}
