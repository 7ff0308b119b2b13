// Package provider contains provider-library facades. The real OIDC
// engine is an external collaborator; the in-memory provider backs tests
// and development wiring.
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/ports"
)

// MemoryProvider is a minimal in-process stand-in for the provider
// library: it stores interactions, clients and grants in maps and records
// the completion result per interaction.
type MemoryProvider struct {
	mu           sync.Mutex
	interactions map[string]*core.Interaction
	clients      map[string]*core.OAuthClient
	grants       map[string]*core.Grant
	finished     map[string]core.InteractionResult
}

// NewMemoryProvider creates an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		interactions: make(map[string]*core.Interaction),
		clients:      make(map[string]*core.OAuthClient),
		grants:       make(map[string]*core.Grant),
		finished:     make(map[string]core.InteractionResult),
	}
}

// AddInteraction registers a pending interaction.
func (p *MemoryProvider) AddInteraction(interaction *core.Interaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	copied := *interaction
	p.interactions[interaction.UID] = &copied
}

// AddClient registers a client.
func (p *MemoryProvider) AddClient(client *core.OAuthClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	copied := *client
	p.clients[client.ID] = &copied
}

// Finished returns the recorded completion for an interaction, if any.
func (p *MemoryProvider) Finished(uid string) (core.InteractionResult, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	result, ok := p.finished[uid]
	return result, ok
}

func (p *MemoryProvider) InteractionDetails(ctx context.Context, uid string) (*core.Interaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	interaction, ok := p.interactions[uid]
	if !ok {
		return nil, fmt.Errorf("interaction %s not found", uid)
	}
	copied := *interaction
	return &copied, nil
}

func (p *MemoryProvider) FinishInteraction(ctx context.Context, uid string, result core.InteractionResult) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	interaction, ok := p.interactions[uid]
	if !ok {
		return "", fmt.Errorf("interaction %s not found", uid)
	}
	p.finished[uid] = result
	return interaction.ReturnTo, nil
}

func (p *MemoryProvider) Client(ctx context.Context, clientID string) (*core.OAuthClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	client, ok := p.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("client %s not registered", clientID)
	}
	copied := *client
	return &copied, nil
}

func (p *MemoryProvider) Grant(ctx context.Context, grantID string) (*core.Grant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	grant, ok := p.grants[grantID]
	if !ok {
		return nil, fmt.Errorf("grant %s not found", grantID)
	}
	copied := *grant
	return &copied, nil
}

func (p *MemoryProvider) SaveGrant(ctx context.Context, grant *core.Grant) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if grant.ID == "" {
		grant.ID = uuid.New().String()
	}
	copied := *grant
	p.grants[grant.ID] = &copied
	return grant.ID, nil
}

var _ ports.Provider = (*MemoryProvider)(nil)
