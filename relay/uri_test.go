package relay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairingURIRoundTrip(t *testing.T) {
	uri := PairingURI("uuid-1", "alice", "pair-key", "wss://relay.example")
	assert.True(t, strings.HasPrefix(uri, PairingURIScheme))

	uuid, account, key, host, err := DecodePairingURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", uuid)
	assert.Equal(t, "alice", account)
	assert.Equal(t, "pair-key", key)
	assert.Equal(t, "wss://relay.example", host)
}

func TestDecodePairingURIRejectsMalformed(t *testing.T) {
	_, _, _, _, err := DecodePairingURI("https://not-a-pairing-link")
	assert.Error(t, err)

	_, _, _, _, err = DecodePairingURI(PairingURIScheme + "%%%not-base64")
	assert.Error(t, err)

	_, _, _, _, err = DecodePairingURI("")
	assert.Error(t, err)
}
