package ports

import (
	"context"
	"time"

	"github.com/hivelink/warden/core"
)

// Store persists token revocations, challenge consumption marks and
// consent records.
type Store interface {
	// InvalidateToken marks a refresh token ID as revoked for ttl.
	InvalidateToken(ctx context.Context, tokenID string, ttl time.Duration) error

	// IsTokenInvalidated reports whether a token ID has been revoked.
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)

	// ConsumeChallenge marks a challenge ID as used. It returns false
	// when the challenge was already consumed; ttl bounds how long the
	// consumption mark is kept.
	ConsumeChallenge(ctx context.Context, challengeID string, ttl time.Duration) (bool, error)

	// SaveConsent stores a sticky consent decision.
	SaveConsent(ctx context.Context, record *core.ConsentRecord) error

	// FindConsent returns the stored decision for (account, client), or
	// nil when the user never decided.
	FindConsent(ctx context.Context, account, clientID string) (*core.ConsentRecord, error)
}
