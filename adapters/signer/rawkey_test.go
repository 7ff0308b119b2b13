package signer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/internal/chain"
)

// A well-known uncompressed-WIF test vector.
const testWIF = "5HueCGU8rMjxEXxiPuD5BDku4MkFqeZyd4dZ1jvhTVqvbTLvyTJ"

func TestRawKeySignerSigns(t *testing.T) {
	s, err := NewRawKeySigner(testWIF)
	require.NoError(t, err)

	message := core.LoginMessage("abc123")
	sig, err := s.Sign(context.Background(), message, core.LevelPosting)
	require.NoError(t, err)

	raw := s.(*RawKeySigner)
	assert.True(t, chain.VerifyDigest(chain.Digest(message), sig, raw.PublicKey()))
}

func TestRawKeySignerRejectsMalformedWIF(t *testing.T) {
	_, err := NewRawKeySigner("definitely-not-a-wif")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	// The key is validated before any challenge is touched.
	_, err = NewRawKeySigner("")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}
