package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edustream/session-system/internal/metrics"
	"github.com/edustream/session-system/internal/core/domain"
	"github.com/edustream/session-system/internal/core/ports"
)

var errInvalidDeviceInput = errors.New("account id and device id are required")

const defaultDeviceName = "unnamed device"

type deviceService struct {
	registry ports.DeviceRegistry
	log      zerolog.Logger
}

// NewDeviceService returns the application-facing surface over the quota
// registry. Quota enforcement itself stays in the registry; this layer adds
// validation, defaulting, logging, and metrics.
func NewDeviceService(registry ports.DeviceRegistry, log zerolog.Logger) ports.DeviceService {
	return &deviceService{registry: registry, log: log}
}

func (s *deviceService) Register(ctx context.Context, in ports.RegisterDeviceInput) error {
	if in.AccountID == "" || in.DeviceID == "" {
		return errInvalidDeviceInput
	}
	name := in.DeviceName
	if name == "" {
		name = defaultDeviceName
	}

	device := domain.Device{
		DeviceID:   in.DeviceID,
		DeviceName: name,
		AccountID:  in.AccountID,
		LastSeenAt: time.Now().UTC(),
	}

	err := s.registry.Register(ctx, in.AccountID, device)
	switch {
	case err == nil:
		metrics.DeviceRegistrationsTotal.WithLabelValues("ok").Inc()
		s.log.Info().
			Str("account_id", in.AccountID).
			Str("device_id", in.DeviceID).
			Msg("device registered")
		return nil
	case errors.Is(err, domain.ErrDeviceLimitExceeded):
		metrics.DeviceRegistrationsTotal.WithLabelValues("limit_exceeded").Inc()
		s.log.Warn().
			Str("account_id", in.AccountID).
			Str("device_id", in.DeviceID).
			Msg("device registration rejected: quota reached")
		return err
	default:
		metrics.DeviceRegistrationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("register device: %w", err)
	}
}

func (s *deviceService) Unregister(ctx context.Context, accountID, deviceID, reason string) error {
	if accountID == "" || deviceID == "" {
		return errInvalidDeviceInput
	}
	if reason == "" {
		reason = ports.RemovalLogout
	}
	if err := s.registry.Unregister(ctx, accountID, deviceID); err != nil {
		return fmt.Errorf("unregister device: %w", err)
	}
	metrics.DeviceUnregistrationsTotal.WithLabelValues(reason).Inc()
	s.log.Info().
		Str("account_id", accountID).
		Str("device_id", deviceID).
		Str("reason", reason).
		Msg("device unregistered")
	return nil
}

func (s *deviceService) ResetAll(ctx context.Context, accountID string) error {
	if accountID == "" {
		return errInvalidDeviceInput
	}
	if err := s.registry.ResetAll(ctx, accountID); err != nil {
		return fmt.Errorf("reset devices: %w", err)
	}
	metrics.DeviceUnregistrationsTotal.WithLabelValues(ports.RemovalReset).Inc()
	s.log.Info().Str("account_id", accountID).Msg("all devices reset")
	return nil
}

func (s *deviceService) List(ctx context.Context, accountID string) ([]domain.Device, error) {
	if accountID == "" {
		return nil, errInvalidDeviceInput
	}
	devices, err := s.registry.List(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}
