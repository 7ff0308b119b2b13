package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/ports"
)

const AudienceChallenge = "session:challenge"
const AudienceAccess = "session:access"
const AudienceRefresh = "session:refresh"

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs.
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey}
}

// ChallengeToToken converts a Challenge to a JWT token
func (j *JWTTokenizer) ChallengeToToken(challenge *core.Challenge) (string, error) {
	claims := ChallengeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   challenge.Account,
			ID:        challenge.ID,
			ExpiresAt: jwt.NewNumericDate(challenge.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(challenge.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceChallenge},
		},
		Nonce: challenge.Nonce,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signedToken, nil
}

// TokenToChallenge converts a JWT token back to a Challenge
func (j *JWTTokenizer) TokenToChallenge(tokenStr string) (*core.Challenge, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &ChallengeClaims{}, j.keyFunc, jwt.WithAudience(AudienceChallenge))
	if err != nil {
		return nil, translateParseError(err)
	}
	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*ChallengeClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}

	return &core.Challenge{
		ID:        claims.ID,
		Account:   claims.Subject,
		Nonce:     claims.Nonce,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// SessionToAccessToken converts a Session to an access JWT token
func (j *JWTTokenizer) SessionToAccessToken(session *core.Session) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Account,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.AccessExpiry),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
		RefreshID: session.RefreshID,
		Level:     string(session.Level),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signedToken, nil
}

// SessionToRefreshToken converts a Session to a refresh JWT token
func (j *JWTTokenizer) SessionToRefreshToken(session *core.Session) (string, error) {
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: session.Account,
			// The JWT ID is the refresh token ID so revocation keys off it.
			ID:        session.RefreshID,
			ExpiresAt: jwt.NewNumericDate(session.RefreshExpiry),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceRefresh},
		},
		Level: string(session.Level),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signedToken, nil
}

// AccessTokenToSession parses an access token and returns the associated session
func (j *JWTTokenizer) AccessTokenToSession(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, j.keyFunc, jwt.WithAudience(AudienceAccess))
	if err != nil {
		return nil, translateParseError(err)
	}
	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}

	return &core.Session{
		ID:           claims.ID,
		Account:      claims.Subject,
		Level:        core.AuthorityLevel(claims.Level),
		IssuedAt:     claims.IssuedAt.Time,
		AccessExpiry: claims.ExpiresAt.Time,
		RefreshID:    claims.RefreshID,
	}, nil
}

// RefreshTokenToSession parses a refresh token and returns the associated session
func (j *JWTTokenizer) RefreshTokenToSession(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &RefreshClaims{}, j.keyFunc, jwt.WithAudience(AudienceRefresh))
	if err != nil {
		return nil, translateParseError(err)
	}
	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}

	// Refresh tokens carry partial session info; the access expiry is
	// zeroed and unused on this path.
	return &core.Session{
		Account:       claims.Subject,
		Level:         core.AuthorityLevel(claims.Level),
		IssuedAt:      claims.IssuedAt.Time,
		RefreshExpiry: claims.ExpiresAt.Time,
		RefreshID:     claims.ID,
	}, nil
}

// translateParseError maps the JWT library's failures onto the domain
// taxonomy so callers and handlers key off sentinel errors only.
func translateParseError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return core.ErrTokenExpired
	}
	return fmt.Errorf("failed to parse token: %w", err)
}

func (j *JWTTokenizer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return &j.signKey.PublicKey, nil
}
