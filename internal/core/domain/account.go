package domain

import "time"

// Role determines what an account may do on the platform.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// Account is the platform-side profile attached to an identity-provider user.
// It is created on first login with RoleStudent and mutated only by the
// profile store.
type Account struct {
	ID                 string    `json:"id" bson:"_id,omitempty"`
	Email              string    `json:"email,omitempty" bson:"email,omitempty"`
	Role               string    `json:"role" bson:"role"`
	SubscriptionActive bool      `json:"subscription_active" bson:"subscription_active"`
	SubscriptionExpiry time.Time `json:"subscription_expiry,omitempty" bson:"subscription_expiry,omitempty"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" bson:"updated_at"`
}

// IsAdmin reports whether the account holds the administrative role.
func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// HasActiveSubscription reports whether the subscription is usable at t.
func (a *Account) HasActiveSubscription(t time.Time) bool {
	if a == nil || !a.SubscriptionActive {
		return false
	}
	return a.SubscriptionExpiry.IsZero() || t.Before(a.SubscriptionExpiry)
}
