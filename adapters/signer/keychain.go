package signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/ports"
)

// KeychainBridge is the injected browser-extension signing object. The
// extension holds the keys; this process only forwards requests and
// surfaces the user's decision.
type KeychainBridge interface {
	// RequestSignBuffer asks the extension to sign message with the
	// account's key of the given level. Blocks until the user decides.
	RequestSignBuffer(ctx context.Context, account string, message []byte, level core.AuthorityLevel) (string, error)
}

// KeychainSigner satisfies the signer contract via a KeychainBridge.
type KeychainSigner struct {
	bridge  KeychainBridge
	account string
}

// NewKeychainSigner wires a bridge for one account. A nil bridge means the
// extension is not installed.
func NewKeychainSigner(bridge KeychainBridge, account string) ports.Signer {
	return &KeychainSigner{bridge: bridge, account: account}
}

func (s *KeychainSigner) Sign(ctx context.Context, message []byte, level core.AuthorityLevel) (string, error) {
	if s.bridge == nil {
		return "", fmt.Errorf("keychain extension not present: %w", core.ErrBackendUnavailable)
	}

	sig, err := s.bridge.RequestSignBuffer(ctx, s.account, message, level)
	if err != nil {
		// Bridges that already classify their failures pass through.
		if errors.Is(err, core.ErrUserRejected) || errors.Is(err, core.ErrExpired) ||
			errors.Is(err, core.ErrInvalidCredentials) || errors.Is(err, core.ErrBackendUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%v: %w", err, core.ErrBackendUnavailable)
	}
	return sig, nil
}
