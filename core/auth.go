package core

import (
	"encoding/json"
	"time"
)

// LoginType selects which signer backend produces the login proof.
type LoginType string

const (
	// LoginTypeKey signs locally with a user-supplied WIF private key.
	LoginTypeKey LoginType = "key"

	// LoginTypeKeychain delegates to an injected browser-extension signer.
	LoginTypeKeychain LoginType = "keychain"

	// LoginTypeHiveAuth delegates to the remote pairing relay.
	LoginTypeHiveAuth LoginType = "hiveauth"

	// LoginTypeHiveSigner delegates to the local key-custody service.
	LoginTypeHiveSigner LoginType = "hivesigner"
)

// Challenge represents a server-issued login challenge. The token form of
// the challenge is what the client embeds into the signed login message.
type Challenge struct {
	ID        string    // Unique identifier, used for one-shot consumption
	Account   string    // Account name the challenge was issued for
	Nonce     string    // Random nonce bound into the token
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Session represents an authenticated user session.
type Session struct {
	ID            string         // Unique session identifier
	Account       string         // Blockchain account name of the user
	Level         AuthorityLevel // Highest authority level proven at login
	IssuedAt      time.Time      // When the session was created
	RefreshExpiry time.Time      // When the refresh capability expires
	AccessExpiry  time.Time      // When the access capability expires
	RefreshID     string         // Unique identifier for the refresh token
}

// loginMessage is the canonical payload signed during login. Field order
// and the absence of whitespace are load-bearing: the server re-serializes
// the same structure and the digests must match byte-for-byte.
type loginMessage struct {
	Token string `json:"token"`
}

// LoginMessage returns the exact bytes a client must sign to prove control
// of an account for the given challenge token.
func LoginMessage(challengeToken string) []byte {
	b, _ := json.Marshal(loginMessage{Token: challengeToken})
	return b
}
