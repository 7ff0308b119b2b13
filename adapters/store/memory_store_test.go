package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivelink/warden/core"
)

func TestMemoryStoreChallengeConsumedOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	fresh, err := s.ConsumeChallenge(ctx, "chal-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = s.ConsumeChallenge(ctx, "chal-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, fresh)

	// A different challenge is unaffected.
	fresh, err = s.ConsumeChallenge(ctx, "chal-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestMemoryStoreTokenInvalidation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	invalidated, err := s.IsTokenInvalidated(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, invalidated)

	require.NoError(t, s.InvalidateToken(ctx, "tok-1", time.Minute))

	invalidated, err = s.IsTokenInvalidated(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, invalidated)

	// An already-expired entry does not count.
	require.NoError(t, s.InvalidateToken(ctx, "tok-2", -time.Second))
	invalidated, err = s.IsTokenInvalidated(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, invalidated)
}

func TestMemoryStoreConsent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	record, err := s.FindConsent(ctx, "alice", "client-1")
	require.NoError(t, err)
	assert.Nil(t, record)

	decided := time.Now()
	require.NoError(t, s.SaveConsent(ctx, &core.ConsentRecord{
		Account:   "alice",
		ClientID:  "client-1",
		Granted:   true,
		DecidedAt: decided,
	}))

	record, err = s.FindConsent(ctx, "alice", "client-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.Granted)
	assert.WithinDuration(t, decided, record.DecidedAt, time.Second)

	// Decisions are scoped to the account+client pair.
	record, err = s.FindConsent(ctx, "alice", "client-2")
	require.NoError(t, err)
	assert.Nil(t, record)
}
