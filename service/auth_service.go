package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/internal/chain"
	"github.com/hivelink/warden/ports"
)

// AuthService issues login challenges and turns verified signature sets
// into sessions.
type AuthService struct {
	tokenizer ports.Tokenizer
	store     ports.Store
	authority *AuthorityService
	eventPub  ports.EventPublisher
	log       *logrus.Entry

	challengeTTL time.Duration
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

// NewAuthService creates the authentication service.
func NewAuthService(
	tokenizer ports.Tokenizer,
	store ports.Store,
	authority *AuthorityService,
	eventPub ports.EventPublisher,
	log *logrus.Entry,
) *AuthService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &AuthService{
		tokenizer:    tokenizer,
		store:        store,
		authority:    authority,
		eventPub:     eventPub,
		log:          log.WithField("component", "auth"),
		challengeTTL: 5 * time.Minute,
		accessTTL:    5 * time.Minute,
		refreshTTL:   5 * 24 * time.Hour, // 5 days
	}
}

// CreateChallenge generates a new login challenge token. The token is set
// as a cookie by the transport layer and embedded verbatim into the
// message the client signs.
func (s *AuthService) CreateChallenge(account string) (string, error) {
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := time.Now()
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Account:   account,
		Nonce:     hex.EncodeToString(nonceBytes),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}

	token, err := s.tokenizer.ChallengeToToken(challenge)
	if err != nil {
		return "", fmt.Errorf("failed to create token: %w", err)
	}
	return token, nil
}

// Login verifies that the signature set satisfies the account's on-chain
// authority at the required level, consumes the challenge exactly once and
// issues access and refresh tokens.
func (s *AuthService) Login(ctx context.Context, challengeToken, account string, level core.AuthorityLevel, sigs core.SignatureSet) (string, string, error) {
	challenge, err := s.tokenizer.TokenToChallenge(challengeToken)
	if err != nil {
		return "", "", fmt.Errorf("invalid challenge token: %w", err)
	}
	if time.Now().After(challenge.ExpiresAt) {
		return "", "", core.ErrTokenExpired
	}
	if challenge.Account != "" && challenge.Account != account {
		return "", "", core.ErrInvalidChallenge
	}
	if sigs.Empty() {
		return "", "", core.ErrVerificationFailed
	}

	// Both sides serialize {"token":"<challenge>"} identically; any
	// divergence fails verification rather than silently passing.
	digest := chain.Digest(core.LoginMessage(challengeToken))

	verdict, err := s.authority.VerifyAuthority(ctx, digest, account, level, sigs)
	if err != nil {
		return "", "", fmt.Errorf("authority check failed: %w", err)
	}
	if !verdict.Authenticated {
		s.log.WithFields(logrus.Fields{
			"account":   account,
			"level":     level,
			"weight":    verdict.WeightSum,
			"threshold": verdict.Threshold,
			"mode":      verdict.Mode,
		}).Info("login rejected by authority check")
		return "", "", core.ErrVerificationFailed
	}

	// Consume the challenge only after the proof is good, and exactly
	// once: a replayed signature set must not mint a second session.
	keepUntil := time.Until(challenge.ExpiresAt) + time.Hour
	fresh, err := s.store.ConsumeChallenge(ctx, challenge.ID, keepUntil)
	if err != nil {
		return "", "", fmt.Errorf("failed to consume challenge: %w", err)
	}
	if !fresh {
		return "", "", core.ErrChallengeUsed
	}

	now := time.Now()
	session := &core.Session{
		ID:            uuid.New().String(),
		Account:       account,
		Level:         level,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create access token: %w", err)
	}
	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create refresh token: %w", err)
	}

	if err := s.eventPub.PublishLogin(ctx, account, level); err != nil {
		s.log.WithError(err).Warn("failed to publish login event")
	}

	return accessToken, refreshToken, nil
}

// Refresh rotates the refresh token and issues new access and refresh
// tokens.
func (s *AuthService) Refresh(ctx context.Context, refreshTokenStr string) (string, string, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", err)
	}

	if time.Now().After(session.RefreshExpiry) {
		return "", "", core.ErrTokenExpired
	}

	invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
	if err != nil {
		return "", "", fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return "", "", core.ErrTokenInvalidated
	}

	// Invalidate the old refresh token for its remaining lifetime.
	remaining := time.Until(session.RefreshExpiry)
	if err := s.store.InvalidateToken(ctx, session.RefreshID, remaining); err != nil {
		return "", "", fmt.Errorf("failed to invalidate old token: %w", err)
	}

	now := time.Now()
	newSession := &core.Session{
		ID:            uuid.New().String(),
		Account:       session.Account,
		Level:         session.Level,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(newSession)
	if err != nil {
		return "", "", fmt.Errorf("failed to create new access token: %w", err)
	}
	refreshToken, err := s.tokenizer.SessionToRefreshToken(newSession)
	if err != nil {
		return "", "", fmt.Errorf("failed to create new refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// Logout invalidates a refresh token. Relay session artifacts held by the
// client are cleared by the caller at the same time.
func (s *AuthService) Logout(ctx context.Context, refreshTokenStr string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return fmt.Errorf("invalid refresh token: %w", err)
	}

	// Even an expired token is recorded briefly so it cannot be replayed
	// by an out-of-sync clock.
	remaining := time.Until(session.RefreshExpiry)
	if remaining <= 0 {
		remaining = time.Hour
	}

	if err := s.store.InvalidateToken(ctx, session.RefreshID, remaining); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	if err := s.eventPub.PublishLogout(ctx, session.Account, session.RefreshID); err != nil {
		s.log.WithError(err).Warn("failed to publish logout event")
	}
	return nil
}

// ValidateAccessToken parses and validates an access token, returning the
// session it represents.
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	if time.Now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	// Access tokens die with their refresh token.
	if session.RefreshID != "" {
		invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}
		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}
