package ports

import (
	"context"

	"github.com/hivelink/warden/core"
)

// Provider is the facade over the OIDC provider library. The wire
// protocol, interaction storage and grant persistence all live there;
// this service only reads interactions and reports completion.
type Provider interface {
	// InteractionDetails loads the pending interaction for uid.
	InteractionDetails(ctx context.Context, uid string) (*core.Interaction, error)

	// FinishInteraction completes the interaction and returns the URL the
	// user agent should be redirected to.
	FinishInteraction(ctx context.Context, uid string, result core.InteractionResult) (string, error)

	// Client returns the registered client's display metadata.
	Client(ctx context.Context, clientID string) (*core.OAuthClient, error)

	// Grant loads an existing grant by ID.
	Grant(ctx context.Context, grantID string) (*core.Grant, error)

	// SaveGrant persists a new or extended grant and returns its ID.
	SaveGrant(ctx context.Context, grant *core.Grant) (string, error)
}
