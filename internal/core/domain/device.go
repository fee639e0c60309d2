package domain

import "time"

// DefaultMaxDevices is the number of devices an account may keep registered
// simultaneously. The registry enforces it; clients never do.
const DefaultMaxDevices = 2

// Device is one client installation (browser profile or app install),
// identified by a derived fingerprint. Created on first successful
// registration, refreshed on re-registration, removed on logout or
// administrative reset.
type Device struct {
	DeviceID   string    `json:"device_id" bson:"device_id"`
	DeviceName string    `json:"device_name" bson:"device_name"`
	AccountID  string    `json:"account_id" bson:"account_id"`
	LastSeenAt time.Time `json:"last_seen_at" bson:"last_seen_at"`
}
