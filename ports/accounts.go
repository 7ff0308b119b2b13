package ports

import (
	"context"

	"github.com/hivelink/warden/core"
)

// AccountSource looks up on-chain account authorities. The blockchain RPC
// client behind it is an external collaborator.
type AccountSource interface {
	// Authority returns the weighted-threshold authority of an account at
	// the given level, or core.ErrUnknownAccount.
	Authority(ctx context.Context, account string, level core.AuthorityLevel) (*core.Authority, error)
}
