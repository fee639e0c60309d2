package ports

import (
	"context"

	"github.com/edustream/session-system/internal/core/domain"
)

// RegisterDeviceInput carries one device-registration request.
type RegisterDeviceInput struct {
	AccountID  string
	DeviceID   string
	DeviceName string
}

// Removal reasons recorded when a device leaves the registry.
const (
	RemovalLogout = "logout"
	RemovalManual = "manual"
	RemovalReset  = "reset"
)

// DeviceService is the application-facing surface over the quota registry:
// validation, defaulting, logging, and metrics around DeviceRegistry.
type DeviceService interface {
	Register(ctx context.Context, in RegisterDeviceInput) error
	Unregister(ctx context.Context, accountID, deviceID, reason string) error
	ResetAll(ctx context.Context, accountID string) error
	List(ctx context.Context, accountID string) ([]domain.Device, error)
}
