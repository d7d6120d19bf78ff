package ports

import (
	"context"

	"profiledir/internal/types"
)

// TeamNotifier delivers team lifecycle events to one endpoint at a time.
// Delivery is fire-and-forget: callers log failures and move on, there is no
// retry at this layer.
type TeamNotifier interface {
	TeamCreated(ctx context.Context, endpoint types.WebhookEndpoint, snap types.TeamSnapshot) error
	TeamUpdated(ctx context.Context, endpoint types.WebhookEndpoint, snap types.TeamSnapshot) error
	TeamDeleted(ctx context.Context, endpoint types.WebhookEndpoint, snap types.TeamSnapshot) error
}
