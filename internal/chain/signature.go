package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// SignatureLength is the size of a compact recoverable signature:
// 1-byte recovery header followed by r and s.
const SignatureLength = 65

// Digest returns the signing digest of an arbitrary message.
func Digest(message []byte) []byte {
	sum := sha256.Sum256(message)
	return sum[:]
}

// SignDigest produces a hex-encoded compact recoverable signature over a
// 32-byte digest.
func (p *PrivateKey) SignDigest(digest []byte) (string, error) {
	if len(digest) != sha256.Size {
		return "", fmt.Errorf("digest must be %d bytes, got %d", sha256.Size, len(digest))
	}
	sig := ecdsa.SignCompact(p.key, digest, true)
	return hex.EncodeToString(sig), nil
}

// RecoverDigest recovers the public key that produced a hex-encoded
// compact signature over the digest.
func RecoverDigest(digest []byte, sigHex string) (PublicKey, error) {
	if len(digest) != sha256.Size {
		return PublicKey{}, fmt.Errorf("digest must be %d bytes, got %d", sha256.Size, len(digest))
	}

	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return PublicKey{}, fmt.Errorf("signature hex decode: %w", err)
	}
	if len(sig) != SignatureLength {
		return PublicKey{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}

	key, _, err := ecdsa.RecoverCompact(sig, digest)
	if err != nil {
		return PublicKey{}, fmt.Errorf("recover public key: %w", err)
	}

	return PublicKey{key: key}, nil
}

// VerifyDigest reports whether the signature over the digest was produced
// by the given public key.
func VerifyDigest(digest []byte, sigHex string, pub PublicKey) bool {
	recovered, err := RecoverDigest(digest, sigHex)
	if err != nil {
		return false
	}
	return recovered.Equal(pub)
}
