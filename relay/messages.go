package relay

import "encoding/json"

// EventType names one wire event on the relay channel.
type EventType string

// Server-to-client events.
const (
	EventConnected EventType = "Connected"

	EventAuthPending EventType = "AuthPending"
	EventAuthSuccess EventType = "AuthSuccess"
	EventAuthFailure EventType = "AuthFailure"

	EventSignPending EventType = "SignPending"
	EventSignSuccess EventType = "SignSuccess"
	EventSignFailure EventType = "SignFailure"
	EventSignError   EventType = "SignError"

	EventChallengePending EventType = "ChallengePending"
	EventChallengeSuccess EventType = "ChallengeSuccess"
	EventChallengeFailure EventType = "ChallengeFailure"
	EventChallengeError   EventType = "ChallengeError"

	EventRequestExpired EventType = "RequestExpired"
	EventAttachSuccess  EventType = "AttachSuccess"
	EventAttachFailure  EventType = "AttachFailure"
)

// Client-to-server commands.
const (
	cmdAttachReq    = "attach_req"
	cmdAuthReq      = "auth_req"
	cmdChallengeReq = "challenge_req"
	cmdSignReq      = "sign_req"
)

// AuthData carries the resumable session credentials handed out on a
// successful pairing. Token and Key are secrets equivalent to a live
// session credential.
type AuthData struct {
	Token  string `json:"token"`
	Key    string `json:"key"`
	Expire int64  `json:"expire"` // unix milliseconds
}

// ChallengeAck is the signed proof carried inside an approval. Signature
// is the hex compact signature over the challenge bytes; the relay's own
// success report is never trusted without verifying it.
type ChallengeAck struct {
	Pubkey    string `json:"pubkey"`
	Signature string `json:"challenge"`
}

// envelope is the single wire frame shape used in both directions. Unused
// fields are omitted per message kind.
type envelope struct {
	Cmd  string          `json:"cmd"`
	UUID string          `json:"uuid,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`

	// Pending notifications carry the approval key and expiry.
	Account string `json:"account,omitempty"`
	Expire  int64  `json:"expire,omitempty"`
	Key     string `json:"key,omitempty"`

	// Attach and auth requests.
	Token string `json:"token,omitempty"`

	// Request bodies.
	KeyType string `json:"key_type,omitempty"`

	// Approval payload.
	AuthData *AuthData `json:"auth_data,omitempty"`

	// Failure detail, logged but never shown verbatim to the user.
	Error string `json:"error,omitempty"`
}

// challengeData is the payload of challenge_req / auth_req data fields
// and of success frames.
type challengeData struct {
	Challenge string        `json:"challenge,omitempty"`
	Ack       *ChallengeAck `json:"ack,omitempty"`
}
