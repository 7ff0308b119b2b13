package chain

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // chain key checksums are defined over ripemd160
)

// AddressPrefix is prepended to encoded public keys.
const AddressPrefix = "STM"

// PublicKey wraps a secp256k1 public key in its chain encoding.
type PublicKey struct {
	key *btcec.PublicKey
}

// ParsePublicKey decodes a base58 public key of the form
// STM<base58(compressed||checksum4)>.
func ParsePublicKey(s string) (PublicKey, error) {
	if len(s) <= len(AddressPrefix) || s[:len(AddressPrefix)] != AddressPrefix {
		return PublicKey{}, fmt.Errorf("public key %q: missing %s prefix", s, AddressPrefix)
	}

	raw, err := base58.Decode(s[len(AddressPrefix):])
	if err != nil {
		return PublicKey{}, fmt.Errorf("public key base58 decode: %w", err)
	}
	if len(raw) != 33+4 {
		return PublicKey{}, fmt.Errorf("public key payload must be 37 bytes, got %d", len(raw))
	}

	body, checksum := raw[:33], raw[33:]
	if !bytes.Equal(keyChecksum(body), checksum) {
		return PublicKey{}, fmt.Errorf("public key checksum mismatch")
	}

	key, err := btcec.ParsePubKey(body)
	if err != nil {
		return PublicKey{}, fmt.Errorf("parse public key point: %w", err)
	}

	return PublicKey{key: key}, nil
}

// String encodes the key as STM<base58(compressed||checksum4)>.
func (p PublicKey) String() string {
	body := p.key.SerializeCompressed()
	return AddressPrefix + base58.Encode(append(body, keyChecksum(body)...))
}

// Equal reports whether two public keys are the same curve point.
func (p PublicKey) Equal(other PublicKey) bool {
	if p.key == nil || other.key == nil {
		return p.key == other.key
	}
	return p.key.IsEqual(other.key)
}

// keyChecksum is the first four bytes of ripemd160 over the compressed key.
func keyChecksum(body []byte) []byte {
	h := ripemd160.New()
	h.Write(body)
	return h.Sum(nil)[:4]
}

// PrivateKey wraps a secp256k1 private key decoded from WIF.
type PrivateKey struct {
	key *btcec.PrivateKey
}

// ParseWIF decodes a wallet-import-format private key string.
func ParseWIF(s string) (*PrivateKey, error) {
	wif, err := btcutil.DecodeWIF(s)
	if err != nil {
		return nil, fmt.Errorf("decode wif: %w", err)
	}
	return &PrivateKey{key: wif.PrivKey}, nil
}

// NewPrivateKey generates a fresh random key. Used by tests and tooling.
func NewPrivateKey() (*PrivateKey, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: key}, nil
}

// PublicKey returns the corresponding public key.
func (p *PrivateKey) PublicKey() PublicKey {
	return PublicKey{key: p.key.PubKey()}
}
