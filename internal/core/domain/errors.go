package domain

import (
	"context"
	"errors"
	"net"
)

// Transient failures: worth retrying, the store may come back.
var ErrStoreUnavailable = errors.New("backing store unavailable")

// Fatal failures: retrying cannot help.
var (
	ErrDeviceLimitExceeded = errors.New("device limit exceeded")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrMalformedProfile    = errors.New("malformed account profile")
)

var (
	ErrProfileNotFound = errors.New("account profile not found")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrSessionNotFound = errors.New("session not found")
)

// IsTransient reports whether err is worth retrying. Repositories normalize
// driver failures onto ErrStoreUnavailable; timeouts and net errors that
// escape them are still treated as transient here.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
