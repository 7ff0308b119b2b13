package ports

import (
	"context"

	"github.com/hivelink/warden/core"
)

// EventPublisher notifies other instances about session lifecycle changes.
type EventPublisher interface {
	PublishLogin(ctx context.Context, account string, level core.AuthorityLevel) error
	PublishLogout(ctx context.Context, account string, tokenID string) error
}
