// Package memory provides in-process implementations of the storage ports,
// used in tests and for dependency-free local development.
package memory

import (
	"context"
	"sync"

	"github.com/edustream/session-system/internal/core/domain"
)

// DeviceRegistry enforces the device quota with a single lock around the
// check-and-insert, mirroring the serialized server-side semantics of the
// Mongo implementation.
type DeviceRegistry struct {
	mu         sync.Mutex
	maxDevices int
	devices    map[string][]domain.Device
}

func NewDeviceRegistry(maxDevices int) *DeviceRegistry {
	if maxDevices <= 0 {
		maxDevices = domain.DefaultMaxDevices
	}
	return &DeviceRegistry{
		maxDevices: maxDevices,
		devices:    make(map[string][]domain.Device),
	}
}

func (r *DeviceRegistry) Register(_ context.Context, accountID string, device domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.devices[accountID]
	for i, d := range list {
		if d.DeviceID == device.DeviceID {
			list[i].LastSeenAt = device.LastSeenAt
			list[i].DeviceName = device.DeviceName
			return nil
		}
	}
	if len(list) >= r.maxDevices {
		return domain.ErrDeviceLimitExceeded
	}
	r.devices[accountID] = append(list, device)
	return nil
}

func (r *DeviceRegistry) Unregister(_ context.Context, accountID, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.devices[accountID]
	for i, d := range list {
		if d.DeviceID == deviceID {
			r.devices[accountID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *DeviceRegistry) ResetAll(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, accountID)
	return nil
}

func (r *DeviceRegistry) List(_ context.Context, accountID string) ([]domain.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Device, len(r.devices[accountID]))
	copy(out, r.devices[accountID])
	return out, nil
}
