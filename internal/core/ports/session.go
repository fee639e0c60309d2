package ports

import (
	"context"
	"time"
)

// SessionTokens mints and revokes the opaque routing tokens carried by the
// session cookie. Issuing a new token for a device invalidates the
// superseded one even if it has not expired yet.
type SessionTokens interface {
	Issue(ctx context.Context, accountID, deviceID string, ttl time.Duration) (string, error)
	Validate(ctx context.Context, token string) (accountID string, err error)
	Revoke(ctx context.Context, token string) error
}

// SessionCookie is the local slot holding the current routing credential.
// Issue and Clear are pure local operations: they never fail, never block,
// and work regardless of network reachability.
type SessionCookie interface {
	Issue(token string, maxAge time.Duration)
	Clear()
}
