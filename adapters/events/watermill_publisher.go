package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/ports"
)

const (
	loginTopic  = "warden.login"
	logoutTopic = "warden.logout"
)

// LoginEvent notifies other instances about a fresh session.
type LoginEvent struct {
	Account string `json:"account"`
	Level   string `json:"level"`
}

// LogoutEvent notifies other instances that a refresh token died.
type LogoutEvent struct {
	Account string `json:"account"`
	TokenID string `json:"token_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, account string, level core.AuthorityLevel) error {
	return p.publish(loginTopic, uuid.New().String(), LoginEvent{
		Account: account,
		Level:   string(level),
	})
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, account string, tokenID string) error {
	return p.publish(logoutTopic, tokenID, LogoutEvent{
		Account: account,
		TokenID: tokenID,
	})
}

func (p *WatermillPublisher) publish(topic, id string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.publisher.Publish(topic, message.NewMessage(id, payload)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
