package ports

import (
	"context"

	"github.com/edustream/session-system/internal/core/domain"
)

// Notifier delivers user-facing events asynchronously. Publish must not
// block the caller; delivery is best effort.
type Notifier interface {
	Publish(n domain.Notification)
}

// PushRegistrar registers and revokes push-notification tokens with the
// external push service. Failures are logged and never affect the published
// auth state.
type PushRegistrar interface {
	Register(ctx context.Context, accountID, deviceID string) error
	Unregister(ctx context.Context, accountID, deviceID string) error
}
