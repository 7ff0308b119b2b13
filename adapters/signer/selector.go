package signer

import (
	"fmt"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/ports"
	"github.com/hivelink/warden/relay"
)

// BackendSet selects a signer backend per login type. Shared backends
// (keychain bridge, relay client) are wired once; per-credential backends
// are built at selection time.
type BackendSet struct {
	// Keychain is the injected extension bridge, nil when absent.
	Keychain KeychainBridge

	// Relay is the shared pairing relay client, nil when disabled.
	Relay *relay.Client

	// CustodyEndpoint is the base URL of the local key-custody service.
	CustodyEndpoint string
}

// Select returns the backend for the given login type.
func (b BackendSet) Select(loginType core.LoginType, username, secret string) (ports.Signer, error) {
	switch loginType {
	case core.LoginTypeKey:
		return NewRawKeySigner(secret)

	case core.LoginTypeKeychain:
		return NewKeychainSigner(b.Keychain, username), nil

	case core.LoginTypeHiveAuth:
		if b.Relay == nil {
			return nil, fmt.Errorf("relay signing disabled: %w", core.ErrBackendUnavailable)
		}
		return NewRelaySigner(b.Relay, username), nil

	case core.LoginTypeHiveSigner:
		if b.CustodyEndpoint == "" {
			return nil, fmt.Errorf("custody signing disabled: %w", core.ErrBackendUnavailable)
		}
		return NewCustodySigner(b.CustodyEndpoint, username, secret), nil
	}

	return nil, fmt.Errorf("unknown login type %q", loginType)
}
