package relay

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// PairingURIScheme prefixes every pairing deep link.
const PairingURIScheme = "has://auth_req/"

type pairingPayload struct {
	UUID    string `json:"uuid"`
	Account string `json:"account"`
	Key     string `json:"key"`
	Host    string `json:"host"`
}

// PairingURI encodes an out-of-band approval link. The URI is rendered as
// a QR code and a clickable deep link by the UI; host is the literal relay
// WebSocket URL so the approving device talks to the same relay.
func PairingURI(uuid, account, key, host string) string {
	payload, _ := json.Marshal(pairingPayload{
		UUID:    uuid,
		Account: account,
		Key:     key,
		Host:    host,
	})
	return PairingURIScheme + base64.StdEncoding.EncodeToString(payload)
}

// DecodePairingURI parses a pairing deep link back into its parts. Used by
// tests and by tooling that renders the QR payload.
func DecodePairingURI(uri string) (uuid, account, key, host string, err error) {
	if !strings.HasPrefix(uri, PairingURIScheme) {
		return "", "", "", "", fmt.Errorf("pairing uri missing %s prefix", PairingURIScheme)
	}
	raw, err := base64.StdEncoding.DecodeString(uri[len(PairingURIScheme):])
	if err != nil {
		return "", "", "", "", err
	}
	var payload pairingPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", "", "", "", err
	}
	return payload.UUID, payload.Account, payload.Key, payload.Host, nil
}
