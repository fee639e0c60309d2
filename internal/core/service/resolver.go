package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/edustream/session-system/internal/metrics"
	"github.com/edustream/session-system/internal/core/domain"
	"github.com/edustream/session-system/internal/core/ports"
	"github.com/edustream/session-system/pkg/retry"
)

// DefaultTokenTTL is the routing-credential lifetime when none is configured.
const DefaultTokenTTL = time.Hour

// Resolver runs the credential-resolution pipeline shared by the
// synchronizer and the session HTTP handler: fetch or create the account
// profile, register the device against the quota, and mint a routing token.
// Transient store failures are retried under the policy; fatal failures
// (quota, permission, malformed profile) propagate immediately.
type Resolver struct {
	profiles ports.ProfileStore
	devices  ports.DeviceService
	tokens   ports.SessionTokens
	policy   retry.Policy
	tokenTTL time.Duration
	log      zerolog.Logger
}

// ResolveResult is a successfully resolved session.
type ResolveResult struct {
	Account *domain.Account
	Token   string
}

func NewResolver(
	profiles ports.ProfileStore,
	devices ports.DeviceService,
	tokens ports.SessionTokens,
	policy retry.Policy,
	tokenTTL time.Duration,
	log zerolog.Logger,
) *Resolver {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	if policy.IsTransient == nil {
		policy.IsTransient = domain.IsTransient
	}
	return &Resolver{
		profiles: profiles,
		devices:  devices,
		tokens:   tokens,
		policy:   policy,
		tokenTTL: tokenTTL,
		log:      log,
	}
}

// TokenTTL returns the configured routing-credential lifetime.
func (r *Resolver) TokenTTL() time.Duration {
	return r.tokenTTL
}

// Resolve executes the pipeline for one credential-refresh event. Possible
// failures: domain.ErrDeviceLimitExceeded (quota), ctx errors (superseded or
// torn down), any fatal profile error, or the last transient error once the
// retry budget is exhausted.
func (r *Resolver) Resolve(ctx context.Context, accountID, deviceID, deviceName string) (*ResolveResult, error) {
	account, err := retry.DoValue(ctx, r.policy, func(ctx context.Context) (*domain.Account, error) {
		return r.fetchOrCreateProfile(ctx, accountID)
	})
	if err != nil {
		return nil, err
	}

	err = r.policy.Do(ctx, func(ctx context.Context) error {
		return r.devices.Register(ctx, ports.RegisterDeviceInput{
			AccountID:  accountID,
			DeviceID:   deviceID,
			DeviceName: deviceName,
		})
	})
	if err != nil {
		return nil, err
	}

	token, err := retry.DoValue(ctx, r.policy, func(ctx context.Context) (string, error) {
		return r.tokens.Issue(ctx, accountID, deviceID, r.tokenTTL)
	})
	if err != nil {
		return nil, err
	}
	metrics.TokensIssuedTotal.Inc()

	return &ResolveResult{Account: account, Token: token}, nil
}

// fetchOrCreateProfile loads the account profile, creating it with the
// default student role on first login.
func (r *Resolver) fetchOrCreateProfile(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := r.profiles.Get(ctx, accountID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		now := time.Now().UTC()
		account, err = r.profiles.Create(ctx, &domain.Account{
			ID:        accountID,
			Role:      domain.RoleStudent,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err == nil {
			r.log.Info().Str("account_id", accountID).Msg("profile created on first login")
		}
	}
	if err != nil {
		return nil, err
	}

	if account.Role != domain.RoleAdmin && account.Role != domain.RoleStudent {
		return nil, domain.ErrMalformedProfile
	}
	return account, nil
}
