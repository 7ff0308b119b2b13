package core

import "errors"

var (
	// Signer backend failures, one per user-facing category.
	ErrUserRejected       = errors.New("request rejected by user")
	ErrExpired            = errors.New("request expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrBackendUnavailable = errors.New("signer backend unavailable")

	// ErrLoginInFlight is returned when a second login attempt is started
	// while one is already pending for the same session.
	ErrLoginInFlight = errors.New("login attempt already in flight")

	// ErrAttachFailed is returned when relay session resumption fails
	// after the retry budget is exhausted.
	ErrAttachFailed = errors.New("relay reconnect failed")

	// ErrVerificationFailed is returned when a signature is present but
	// does not satisfy the required authority threshold.
	ErrVerificationFailed = errors.New("signature does not satisfy authority")

	// ErrProtocolState is returned when an OAuth entry point is hit
	// outside the prompt it serves.
	ErrProtocolState = errors.New("interaction is in an unexpected state")

	// ErrUnknownAccount is returned when the claimed account has no
	// on-chain authority record.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrConsentDenied is returned when a sticky consent denial
	// short-circuits an authorization request.
	ErrConsentDenied = errors.New("consent previously denied")

	// Token lifecycle errors.
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidChallenge = errors.New("invalid challenge")
	ErrChallengeUsed    = errors.New("challenge already consumed")
	ErrInvalidSignature = errors.New("invalid signature")
)
