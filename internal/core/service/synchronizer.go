package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edustream/session-system/internal/metrics"
	"github.com/edustream/session-system/internal/core/domain"
	"github.com/edustream/session-system/internal/core/ports"
)

// DefaultUnregisterTimeout bounds the best-effort device cleanup on logout.
const DefaultUnregisterTimeout = 2 * time.Second

// SynchronizerConfig identifies the local device and bounds teardown work.
type SynchronizerConfig struct {
	DeviceID          string
	DeviceName        string
	UnregisterTimeout time.Duration
}

// Synchronizer reconciles identity-provider credentials with the device
// quota registry and the local routing cookie, publishing one composed
// AuthState snapshot per transition.
//
// Refresh events are serialized per process: a new event supersedes the
// in-flight resolution (its context is cancelled and its generation is
// retired, so it neither retries nor publishes stale state). Publications
// are totally ordered; subscribers always observe a single current status.
type Synchronizer struct {
	resolver *Resolver
	identity ports.IdentityProvider
	devices  ports.DeviceService
	tokens   ports.SessionTokens
	cookie   ports.SessionCookie
	push     ports.PushRegistrar // optional
	notifier ports.Notifier     // optional
	tracker  *ConnectivityTracker
	cfg      SynchronizerConfig
	log      zerolog.Logger

	mu             sync.Mutex
	state          domain.AuthState
	subs           map[int]func(domain.AuthState)
	nextSub        int
	gen            uint64
	cancelInFlight context.CancelFunc
	curAccountID   string
	curToken       string

	wg sync.WaitGroup
}

// NewSynchronizer wires the orchestrator. push and notifier may be nil; the
// corresponding side effects are skipped.
func NewSynchronizer(
	resolver *Resolver,
	identity ports.IdentityProvider,
	devices ports.DeviceService,
	tokens ports.SessionTokens,
	cookie ports.SessionCookie,
	push ports.PushRegistrar,
	notifier ports.Notifier,
	tracker *ConnectivityTracker,
	cfg SynchronizerConfig,
	log zerolog.Logger,
) *Synchronizer {
	if cfg.UnregisterTimeout <= 0 {
		cfg.UnregisterTimeout = DefaultUnregisterTimeout
	}
	if tracker == nil {
		tracker = NewConnectivityTracker()
	}
	return &Synchronizer{
		resolver: resolver,
		identity: identity,
		devices:  devices,
		tokens:   tokens,
		cookie:   cookie,
		push:     push,
		notifier: notifier,
		tracker:  tracker,
		cfg:      cfg,
		log:      log,
		state: domain.AuthState{
			Status:       domain.StatusInitializing,
			Connectivity: domain.ConnectivityOnline,
		},
		subs: make(map[int]func(domain.AuthState)),
	}
}

// Run consumes the identity provider's credential stream until ctx is
// cancelled or the stream closes. Any in-flight resolution is aborted on
// return.
func (s *Synchronizer) Run(ctx context.Context) {
	defer s.abortInFlight()
	defer s.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case cred, ok := <-s.identity.Credentials():
			if !ok {
				return
			}
			s.OnCredentialChange(ctx, cred)
		}
	}
}

// OnCredentialChange processes one refresh event. A non-nil credential
// starts a (superseding) resolution; nil means the provider reports no
// active credential and triggers local teardown.
func (s *Synchronizer) OnCredentialChange(ctx context.Context, cred *ports.Credential) {
	s.mu.Lock()
	if s.cancelInFlight != nil {
		s.cancelInFlight()
		s.cancelInFlight = nil
	}
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	if cred == nil {
		s.signOut(ctx, gen)
		return
	}

	rctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelInFlight = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.resolve(rctx, gen, cred)
	}()
}

// State returns the last published snapshot.
func (s *Synchronizer) State() domain.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for future snapshots and returns the matching
// unsubscribe function. Callbacks run on the publishing goroutine and must
// not block.
func (s *Synchronizer) Subscribe(fn func(domain.AuthState)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Connectivity exposes the tracker for route guards that care about
// reachability only.
func (s *Synchronizer) Connectivity() *ConnectivityTracker {
	return s.tracker
}

func (s *Synchronizer) resolve(ctx context.Context, gen uint64, cred *ports.Credential) {
	s.publish(gen, domain.StatusResolving, nil)

	s.mu.Lock()
	if gen == s.gen {
		s.curAccountID = cred.AccountID
	}
	s.mu.Unlock()

	res, err := s.resolver.Resolve(ctx, cred.AccountID, s.cfg.DeviceID, s.cfg.DeviceName)
	if err != nil {
		if ctx.Err() != nil {
			// Superseded or torn down: publish nothing.
			return
		}
		if errors.Is(err, domain.ErrDeviceLimitExceeded) {
			s.handleDeviceLimit(ctx, gen, cred.AccountID)
			return
		}
		s.log.Error().Err(err).Str("account_id", cred.AccountID).Msg("session resolution failed")
		s.cookie.Clear()
		s.publish(gen, domain.StatusError, nil)
		return
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.curToken = res.Token
	s.mu.Unlock()

	s.cookie.Issue(res.Token, s.resolver.TokenTTL())

	if s.push != nil {
		if err := s.push.Register(ctx, res.Account.ID, s.cfg.DeviceID); err != nil {
			s.log.Warn().Err(err).Msg("push token registration failed")
		}
	}

	s.publish(gen, domain.StatusAuthenticated, res.Account)
}

// handleDeviceLimit enforces the quota rejection: provider sign-out, local
// cookie removal, a non-blocking user notification, and the terminal state.
func (s *Synchronizer) handleDeviceLimit(ctx context.Context, gen uint64, accountID string) {
	if err := s.identity.SignOut(ctx); err != nil {
		s.log.Warn().Err(err).Msg("provider sign-out after quota rejection failed")
	}
	s.cookie.Clear()

	if s.notifier != nil {
		s.notifier.Publish(domain.Notification{
			ID:        uuid.NewString(),
			AccountID: accountID,
			Kind:      domain.NotificationDeviceLimit,
			Message:   "This account is already in use on the maximum number of devices.",
			CreatedAt: time.Now().UTC(),
		})
	}

	s.publish(gen, domain.StatusDeviceLimitExceeded, nil)
}

// signOut tears the session down. The cookie is cleared unconditionally
// first (pure local operation); registry cleanup is best effort within
// UnregisterTimeout and its outcome never blocks the logout.
func (s *Synchronizer) signOut(ctx context.Context, gen uint64) {
	s.mu.Lock()
	accountID := s.curAccountID
	token := s.curToken
	s.curAccountID, s.curToken = "", ""
	s.mu.Unlock()

	if s.push != nil && accountID != "" {
		pctx, cancel := context.WithTimeout(ctx, s.cfg.UnregisterTimeout)
		if err := s.push.Unregister(pctx, accountID, s.cfg.DeviceID); err != nil {
			s.log.Warn().Err(err).Msg("push token unregistration failed")
		}
		cancel()
	}

	s.cookie.Clear()

	if accountID != "" {
		uctx, cancel := context.WithTimeout(ctx, s.cfg.UnregisterTimeout)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if token != "" {
				_ = s.tokens.Revoke(uctx, token)
			}
			if err := s.devices.Unregister(uctx, accountID, s.cfg.DeviceID, ports.RemovalLogout); err != nil {
				s.log.Warn().Err(err).Str("account_id", accountID).Msg("device unregistration failed")
			}
		}()
		select {
		case <-done:
		case <-uctx.Done():
			metrics.UnregisterTimeoutsTotal.Inc()
			s.log.Warn().Str("account_id", accountID).Msg("device unregistration abandoned at deadline")
		}
		cancel()
	}

	s.tracker.Online()
	s.publish(gen, domain.StatusUnauthenticated, nil)
}

// publish installs the snapshot and fans it out, unless gen has been
// superseded. Holding the lock across the fan-out keeps publications totally
// ordered (last-write-wins, single source of truth).
func (s *Synchronizer) publish(gen uint64, status domain.Status, account *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}

	st := domain.AuthState{
		Status:       status,
		Connectivity: s.tracker.Current(),
		Account:      account,
	}
	s.state = st
	metrics.StateTransitionsTotal.WithLabelValues(string(status)).Inc()

	for _, fn := range s.subs {
		fn(st)
	}
}

func (s *Synchronizer) abortInFlight() {
	s.mu.Lock()
	if s.cancelInFlight != nil {
		s.cancelInFlight()
		s.cancelInFlight = nil
	}
	s.mu.Unlock()
}
