package ports

import (
	"context"
	"time"
)

// Credential is a renewable identity token issued by the external identity
// provider. A nil credential on the stream means the provider reports no
// active session (explicit sign-out or credential loss).
type Credential struct {
	AccountID string
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IdentityProvider is the external issuer of identity credentials. The
// session subsystem only consumes its refresh stream and calls SignOut; it
// never issues credentials itself.
type IdentityProvider interface {
	// Credentials emits a value whenever a new or refreshed credential is
	// available, including the very first sign-in. The channel is closed on
	// provider teardown.
	Credentials() <-chan *Credential
	SignOut(ctx context.Context) error
}
