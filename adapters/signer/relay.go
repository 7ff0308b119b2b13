package signer

import (
	"context"
	"errors"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/ports"
	"github.com/hivelink/warden/relay"
)

// RelaySigner satisfies the signer contract through the pairing relay. A
// signature may take arbitrarily long: a human approves it on another
// device. Cancellation deregisters the request and leaves the relay
// channel connected for the next operation.
type RelaySigner struct {
	client  *relay.Client
	account string
}

// NewRelaySigner wires the shared relay client for one account.
func NewRelaySigner(client *relay.Client, account string) ports.Signer {
	return &RelaySigner{client: client, account: account}
}

func (s *RelaySigner) Sign(ctx context.Context, message []byte, level core.AuthorityLevel) (string, error) {
	// With a resumable session a challenge request is enough. Without one
	// a fresh pairing is run; its approval already carries a verified
	// signature over the same message.
	ack, err := s.client.Challenge(ctx, s.account, level, message)
	if errors.Is(err, relay.ErrNoSession) {
		_, ack, err = s.client.Authenticate(ctx, s.account, message)
	}
	if err != nil {
		return "", err
	}
	return ack.Signature, nil
}
