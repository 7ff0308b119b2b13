package store

import (
	"context"
	"sync"
	"time"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/ports"
)

// MemoryStore is an in-memory implementation of the Store interface.
// Suitable for tests and single-instance deployments.
type MemoryStore struct {
	mu                 sync.RWMutex
	invalidatedTokens  map[string]time.Time
	consumedChallenges map[string]time.Time
	consents           map[string]*core.ConsentRecord
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() ports.Store {
	return &MemoryStore{
		invalidatedTokens:  make(map[string]time.Time),
		consumedChallenges: make(map[string]time.Time),
		consents:           make(map[string]*core.ConsentRecord),
	}
}

// InvalidateToken marks a token as invalidated.
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidatedTokens[tokenID] = time.Now().Add(expiry)
	return nil
}

// IsTokenInvalidated checks if a token is invalidated.
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiry, exists := s.invalidatedTokens[tokenID]
	if !exists || time.Now().After(expiry) {
		return false, nil
	}
	return true, nil
}

// ConsumeChallenge marks a challenge as used, reporting whether this call
// was the first to do so.
func (s *MemoryStore) ConsumeChallenge(ctx context.Context, challengeID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, exists := s.consumedChallenges[challengeID]; exists && time.Now().Before(expiry) {
		return false, nil
	}
	s.consumedChallenges[challengeID] = time.Now().Add(ttl)
	return true, nil
}

// SaveConsent stores a consent decision.
func (s *MemoryStore) SaveConsent(ctx context.Context, record *core.ConsentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.consents[record.Account+"/"+record.ClientID] = &copied
	return nil
}

// FindConsent returns a stored consent decision, or nil when undecided.
func (s *MemoryStore) FindConsent(ctx context.Context, account, clientID string) (*core.ConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.consents[account+"/"+clientID]
	if !exists {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}
