package signer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivelink/warden/core"
)

func TestBackendSetSelect(t *testing.T) {
	set := BackendSet{
		Keychain:        &fakeBridge{},
		CustodyEndpoint: "http://127.0.0.1:3000",
	}

	s, err := set.Select(core.LoginTypeKey, "alice", testWIF)
	require.NoError(t, err)
	assert.IsType(t, &RawKeySigner{}, s)

	s, err = set.Select(core.LoginTypeKeychain, "alice", "")
	require.NoError(t, err)
	assert.IsType(t, &KeychainSigner{}, s)

	s, err = set.Select(core.LoginTypeHiveSigner, "alice", "hunter2")
	require.NoError(t, err)
	assert.IsType(t, &CustodySigner{}, s)

	_, err = set.Select(core.LoginType("carrier-pigeon"), "alice", "")
	assert.Error(t, err)
}

func TestBackendSetDisabledBackends(t *testing.T) {
	set := BackendSet{}

	_, err := set.Select(core.LoginTypeHiveAuth, "alice", "")
	assert.ErrorIs(t, err, core.ErrBackendUnavailable)

	_, err = set.Select(core.LoginTypeHiveSigner, "alice", "hunter2")
	assert.ErrorIs(t, err, core.ErrBackendUnavailable)
}
