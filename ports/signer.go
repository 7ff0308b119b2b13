package ports

import (
	"context"

	"github.com/hivelink/warden/core"
)

// Signer is the contract every signer backend satisfies: produce a
// hex-encoded signature over the message using a key of the requested
// authority level. Implementations may block indefinitely pending human
// action and must honor context cancellation.
//
// Failures are reported through the core taxonomy: ErrUserRejected,
// ErrExpired, ErrInvalidCredentials, ErrBackendUnavailable.
type Signer interface {
	Sign(ctx context.Context, message []byte, level core.AuthorityLevel) (string, error)
}
