package ports

import (
	"context"

	"github.com/edustream/session-system/internal/core/domain"
)

// DeviceRegistry is the server-authoritative store of registered devices.
// Register must be a single indivisible check-and-write: re-registering a
// known device refreshes last_seen_at, a new device is admitted only below
// the quota, and at the quota it returns domain.ErrDeviceLimitExceeded
// without writing. It is the only path that mutates device records.
type DeviceRegistry interface {
	Register(ctx context.Context, accountID string, device domain.Device) error
	Unregister(ctx context.Context, accountID, deviceID string) error
	ResetAll(ctx context.Context, accountID string) error
	List(ctx context.Context, accountID string) ([]domain.Device, error)
}
