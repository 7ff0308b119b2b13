// Package accounts provides account-authority sources. The production
// source is the blockchain RPC client, an external collaborator; the
// in-memory source serves tests and development.
package accounts

import (
	"context"
	"sync"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/ports"
)

// MemorySource holds account authorities in process memory.
type MemorySource struct {
	mu    sync.RWMutex
	auths map[string]map[core.AuthorityLevel]*core.Authority
}

// NewMemorySource creates an empty in-memory account source.
func NewMemorySource() *MemorySource {
	return &MemorySource{auths: make(map[string]map[core.AuthorityLevel]*core.Authority)}
}

// SetAuthority registers an account's authority at one level.
func (s *MemorySource) SetAuthority(account string, level core.AuthorityLevel, authority *core.Authority) {
	s.mu.Lock()
	defer s.mu.Unlock()

	levels, ok := s.auths[account]
	if !ok {
		levels = make(map[core.AuthorityLevel]*core.Authority)
		s.auths[account] = levels
	}
	copied := *authority
	levels[level] = &copied
}

// Authority implements ports.AccountSource.
func (s *MemorySource) Authority(ctx context.Context, account string, level core.AuthorityLevel) (*core.Authority, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	levels, ok := s.auths[account]
	if !ok {
		return nil, core.ErrUnknownAccount
	}
	authority, ok := levels[level]
	if !ok {
		return nil, core.ErrUnknownAccount
	}
	copied := *authority
	return &copied, nil
}

var _ ports.AccountSource = (*MemorySource)(nil)
