package domain

import "time"

// Status is the authentication dimension of the published state.
type Status string

const (
	StatusInitializing        Status = "initializing"
	StatusResolving           Status = "resolving"
	StatusAuthenticated       Status = "authenticated"
	StatusDeviceLimitExceeded Status = "device_limit_exceeded"
	StatusUnauthenticated     Status = "unauthenticated"
	StatusError               Status = "error"
)

// Connectivity is the store-reachability dimension, tracked independently of
// Status: a transient outage is Reconnecting, never a spurious
// Unauthenticated.
type Connectivity string

const (
	ConnectivityOnline       Connectivity = "online"
	ConnectivityReconnecting Connectivity = "reconnecting"
	ConnectivityOffline      Connectivity = "offline"
)

// AuthState is the composed snapshot published to subscribers after every
// synchronizer transition. Account is non-nil only when Status is
// StatusAuthenticated.
type AuthState struct {
	Status       Status       `json:"status"`
	Connectivity Connectivity `json:"connectivity"`
	Account      *Account     `json:"account,omitempty"`
}

// Notification is a non-blocking, user-facing event (e.g. the device limit
// was reached). Read acknowledgement is kept in memory for the session only;
// it is deliberately not persisted.
type Notification struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification kinds emitted by the session subsystem.
const (
	NotificationDeviceLimit = "device_limit_reached"
)
