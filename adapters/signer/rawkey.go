package signer

import (
	"context"
	"fmt"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/internal/chain"
	"github.com/hivelink/warden/ports"
)

// RawKeySigner signs locally with a user-supplied WIF private key. The
// same key is used regardless of the requested level; the authority check
// decides whether it actually carries that level.
type RawKeySigner struct {
	key *chain.PrivateKey
}

// NewRawKeySigner parses the WIF string eagerly so a malformed key fails
// before any challenge is consumed.
func NewRawKeySigner(wif string) (ports.Signer, error) {
	key, err := chain.ParseWIF(wif)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, core.ErrInvalidCredentials)
	}
	return &RawKeySigner{key: key}, nil
}

// Sign produces a deterministic signature over the message digest.
func (s *RawKeySigner) Sign(_ context.Context, message []byte, _ core.AuthorityLevel) (string, error) {
	sig, err := s.key.SignDigest(chain.Digest(message))
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, core.ErrInvalidCredentials)
	}
	return sig, nil
}

// PublicKey returns the key the signer will sign with. Used by callers
// that want to pre-check authority membership.
func (s *RawKeySigner) PublicKey() chain.PublicKey {
	return s.key.PublicKey()
}
