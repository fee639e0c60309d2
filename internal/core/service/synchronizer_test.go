package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/edustream/session-system/internal/core/domain"
	"github.com/edustream/session-system/internal/core/ports"
	"github.com/edustream/session-system/pkg/retry"
)

// --- stubs ---

type stubProfiles struct {
	mu    sync.Mutex
	getFn func(ctx context.Context, accountID string) (*domain.Account, error)
	gets  int
}

func (p *stubProfiles) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	p.mu.Lock()
	p.gets++
	fn := p.getFn
	p.mu.Unlock()
	if fn != nil {
		return fn(ctx, accountID)
	}
	return &domain.Account{ID: accountID, Role: domain.RoleStudent}, nil
}

func (p *stubProfiles) Create(_ context.Context, account *domain.Account) (*domain.Account, error) {
	return account, nil
}

type stubDevices struct {
	mu           sync.Mutex
	registerFn   func(ctx context.Context, in ports.RegisterDeviceInput) error
	unregisterFn func(ctx context.Context, accountID, deviceID string) error
	registered   []string
	unregistered []string
}

func (d *stubDevices) Register(ctx context.Context, in ports.RegisterDeviceInput) error {
	d.mu.Lock()
	fn := d.registerFn
	d.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, in); err != nil {
			return err
		}
	}
	d.mu.Lock()
	d.registered = append(d.registered, in.DeviceID)
	d.mu.Unlock()
	return nil
}

func (d *stubDevices) Unregister(ctx context.Context, accountID, deviceID, _ string) error {
	d.mu.Lock()
	fn := d.unregisterFn
	d.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, accountID, deviceID); err != nil {
			return err
		}
	}
	d.mu.Lock()
	d.unregistered = append(d.unregistered, deviceID)
	d.mu.Unlock()
	return nil
}

func (d *stubDevices) ResetAll(context.Context, string) error { return nil }

func (d *stubDevices) List(context.Context, string) ([]domain.Device, error) { return nil, nil }

func (d *stubDevices) unregisteredIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.unregistered...)
}

type stubTokens struct {
	mu      sync.Mutex
	issued  int
	revoked []string
}

func (t *stubTokens) Issue(_ context.Context, _, _ string, _ time.Duration) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.issued++
	return fmt.Sprintf("tok-%d", t.issued), nil
}

func (t *stubTokens) Validate(context.Context, string) (string, error) { return "", nil }

func (t *stubTokens) Revoke(_ context.Context, token string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked = append(t.revoked, token)
	return nil
}

func (t *stubTokens) revokedTokens() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.revoked...)
}

type stubCookie struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (c *stubCookie) Issue(token string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *stubCookie) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.cleared++
}

func (c *stubCookie) current() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.cleared
}

type stubIdentity struct {
	ch       chan *ports.Credential
	mu       sync.Mutex
	signOuts int
}

func newStubIdentity() *stubIdentity {
	return &stubIdentity{ch: make(chan *ports.Credential, 4)}
}

func (i *stubIdentity) Credentials() <-chan *ports.Credential { return i.ch }

func (i *stubIdentity) SignOut(context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.signOuts++
	return nil
}

func (i *stubIdentity) signOutCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.signOuts
}

type captureNotifier struct {
	mu   sync.Mutex
	seen []domain.Notification
}

func (n *captureNotifier) Publish(msg domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, msg)
}

func (n *captureNotifier) notifications() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification(nil), n.seen...)
}

// --- fixture ---

type syncFixture struct {
	profiles *stubProfiles
	devices  *stubDevices
	tokens   *stubTokens
	cookie   *stubCookie
	identity *stubIdentity
	notifier *captureNotifier
	tracker  *ConnectivityTracker
	sync     *Synchronizer
	states   chan domain.AuthState
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	f := &syncFixture{
		profiles: &stubProfiles{},
		devices:  &stubDevices{},
		tokens:   &stubTokens{},
		cookie:   &stubCookie{},
		identity: newStubIdentity(),
		notifier: &captureNotifier{},
		tracker:  NewConnectivityTracker(),
		states:   make(chan domain.AuthState, 32),
	}

	policy := retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		IsTransient: domain.IsTransient,
		Sink:        f.tracker,
	}
	resolver := NewResolver(f.profiles, f.devices, f.tokens, policy, time.Hour, zerolog.Nop())

	f.sync = NewSynchronizer(
		resolver, f.identity, f.devices, f.tokens, f.cookie,
		nil, f.notifier, f.tracker,
		SynchronizerConfig{
			DeviceID:          "dev-1",
			DeviceName:        "test laptop",
			UnregisterTimeout: 50 * time.Millisecond,
		},
		zerolog.Nop(),
	)
	f.sync.Subscribe(func(st domain.AuthState) { f.states <- st })
	return f
}

func waitStatus(t *testing.T, ch <-chan domain.AuthState, want domain.Status) domain.AuthState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-ch:
			if st.Status == want {
				return st
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %q", want)
		}
	}
}

func assertNoPublish(t *testing.T, ch <-chan domain.AuthState) {
	t.Helper()
	select {
	case st := <-ch:
		t.Fatalf("unexpected publication: %+v", st)
	case <-time.After(50 * time.Millisecond):
	}
}

// --- tests ---

func TestSynchronizer_HappyPath(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.sync.OnCredentialChange(ctx, &ports.Credential{AccountID: "acct-1"})

	waitStatus(t, f.states, domain.StatusResolving)
	st := waitStatus(t, f.states, domain.StatusAuthenticated)

	if st.Account == nil || st.Account.ID != "acct-1" {
		t.Fatalf("authenticated state must carry the account, got %+v", st.Account)
	}
	if st.Connectivity != domain.ConnectivityOnline {
		t.Fatalf("expected online connectivity, got %q", st.Connectivity)
	}
	if tok, _ := f.cookie.current(); tok == "" {
		t.Fatalf("routing cookie must be installed after authentication")
	}
}

func TestSynchronizer_RecoversFromTransientFailures(t *testing.T) {
	f := newSyncFixture(t)
	failures := 0
	f.profiles.getFn = func(_ context.Context, accountID string) (*domain.Account, error) {
		failures++
		if failures <= 2 {
			return nil, domain.ErrStoreUnavailable
		}
		return &domain.Account{ID: accountID, Role: domain.RoleStudent}, nil
	}

	f.sync.OnCredentialChange(context.Background(), &ports.Credential{AccountID: "acct-1"})

	st := waitStatus(t, f.states, domain.StatusAuthenticated)
	if st.Connectivity != domain.ConnectivityOnline {
		t.Fatalf("recovery must settle back online, got %q", st.Connectivity)
	}
	if failures != 3 {
		t.Fatalf("expected 2 failures then success, got %d calls", failures)
	}
}

func TestSynchronizer_ExhaustionPublishesError(t *testing.T) {
	f := newSyncFixture(t)
	f.profiles.getFn = func(context.Context, string) (*domain.Account, error) {
		return nil, domain.ErrStoreUnavailable
	}

	f.sync.OnCredentialChange(context.Background(), &ports.Credential{AccountID: "acct-1"})

	st := waitStatus(t, f.states, domain.StatusError)
	if st.Connectivity != domain.ConnectivityOffline {
		t.Fatalf("exhaustion must report offline, got %q", st.Connectivity)
	}
	if tok, cleared := f.cookie.current(); tok != "" || cleared == 0 {
		t.Fatalf("cookie must be cleared on resolution failure")
	}
	if st.Account != nil {
		t.Fatalf("error state must not carry an account")
	}
}

func TestSynchronizer_DeviceLimitExceeded(t *testing.T) {
	f := newSyncFixture(t)
	f.devices.registerFn = func(context.Context, ports.RegisterDeviceInput) error {
		return domain.ErrDeviceLimitExceeded
	}

	f.sync.OnCredentialChange(context.Background(), &ports.Credential{AccountID: "acct-1"})

	st := waitStatus(t, f.states, domain.StatusDeviceLimitExceeded)
	if st.Account != nil {
		t.Fatalf("quota rejection must not carry an account")
	}
	if f.identity.signOutCount() != 1 {
		t.Fatalf("quota rejection must sign the provider out, got %d calls", f.identity.signOutCount())
	}
	if tok, cleared := f.cookie.current(); tok != "" || cleared == 0 {
		t.Fatalf("cookie must be cleared on quota rejection")
	}

	notes := f.notifier.notifications()
	if len(notes) != 1 || notes[0].Kind != domain.NotificationDeviceLimit {
		t.Fatalf("expected one device-limit notification, got %+v", notes)
	}
	if notes[0].AccountID != "acct-1" || notes[0].ID == "" {
		t.Fatalf("notification must identify the account, got %+v", notes[0])
	}
}

func TestSynchronizer_SignOutTearsDown(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.sync.OnCredentialChange(ctx, &ports.Credential{AccountID: "acct-1"})
	waitStatus(t, f.states, domain.StatusAuthenticated)

	f.sync.OnCredentialChange(ctx, nil)

	st := waitStatus(t, f.states, domain.StatusUnauthenticated)
	if st.Account != nil {
		t.Fatalf("unauthenticated state must not carry an account")
	}
	if tok, cleared := f.cookie.current(); tok != "" || cleared == 0 {
		t.Fatalf("cookie must be cleared on sign-out")
	}
	if got := f.devices.unregisteredIDs(); len(got) != 1 || got[0] != "dev-1" {
		t.Fatalf("expected device dev-1 unregistered, got %v", got)
	}
	if got := f.tokens.revokedTokens(); len(got) != 1 {
		t.Fatalf("expected the routing token revoked, got %v", got)
	}
}

func TestSynchronizer_SignOutBoundedByHangingUnregister(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.sync.OnCredentialChange(ctx, &ports.Credential{AccountID: "acct-1"})
	waitStatus(t, f.states, domain.StatusAuthenticated)

	f.devices.unregisterFn = func(ctx context.Context, _, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	}

	start := time.Now()
	f.sync.OnCredentialChange(ctx, nil)
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Fatalf("logout must not block on registry cleanup, took %v", elapsed)
	}
	st := waitStatus(t, f.states, domain.StatusUnauthenticated)
	if tok, _ := f.cookie.current(); tok != "" {
		t.Fatalf("cookie must be cleared even when cleanup hangs")
	}
	if st.Status != domain.StatusUnauthenticated {
		t.Fatalf("logout must still publish unauthenticated, got %q", st.Status)
	}
}

func TestSynchronizer_SupersededResolutionPublishesNothing(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	blocked := make(chan struct{})
	f.profiles.getFn = func(ctx context.Context, accountID string) (*domain.Account, error) {
		if accountID == "acct-slow" {
			close(blocked)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &domain.Account{ID: accountID, Role: domain.RoleStudent}, nil
	}

	f.sync.OnCredentialChange(ctx, &ports.Credential{AccountID: "acct-slow"})
	<-blocked

	f.sync.OnCredentialChange(ctx, &ports.Credential{AccountID: "acct-fast"})

	st := waitStatus(t, f.states, domain.StatusAuthenticated)
	if st.Account.ID != "acct-fast" {
		t.Fatalf("expected superseding account, got %q", st.Account.ID)
	}

	// The aborted resolution must not surface an error or a stale account.
	assertNoPublish(t, f.states)
	if got := f.sync.State(); got.Status != domain.StatusAuthenticated || got.Account.ID != "acct-fast" {
		t.Fatalf("stale resolution leaked into state: %+v", got)
	}
}

func TestSynchronizer_RunConsumesStream(t *testing.T) {
	f := newSyncFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.sync.Run(ctx)
	}()

	f.identity.ch <- &ports.Credential{AccountID: "acct-1"}
	waitStatus(t, f.states, domain.StatusAuthenticated)

	f.identity.ch <- nil
	waitStatus(t, f.states, domain.StatusUnauthenticated)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancellation")
	}
}

func TestSynchronizer_MalformedProfileIsFatal(t *testing.T) {
	f := newSyncFixture(t)
	f.profiles.getFn = func(_ context.Context, accountID string) (*domain.Account, error) {
		return &domain.Account{ID: accountID, Role: "superuser"}, nil
	}

	f.sync.OnCredentialChange(context.Background(), &ports.Credential{AccountID: "acct-1"})

	waitStatus(t, f.states, domain.StatusError)
	if f.profiles.gets != 1 {
		t.Fatalf("a malformed profile must not be retried, got %d fetches", f.profiles.gets)
	}
}

func TestResolver_DeviceLimitPropagatesUnwrapped(t *testing.T) {
	devices := &stubDevices{registerFn: func(context.Context, ports.RegisterDeviceInput) error {
		return domain.ErrDeviceLimitExceeded
	}}
	r := NewResolver(&stubProfiles{}, devices, &stubTokens{}, retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		IsTransient: domain.IsTransient,
	}, time.Hour, zerolog.Nop())

	_, err := r.Resolve(context.Background(), "acct-1", "dev-1", "laptop")
	if !errors.Is(err, domain.ErrDeviceLimitExceeded) {
		t.Fatalf("expected ErrDeviceLimitExceeded, got %v", err)
	}
}

func TestResolver_CreatesProfileOnFirstLogin(t *testing.T) {
	profiles := &stubProfiles{getFn: func(context.Context, string) (*domain.Account, error) {
		return nil, domain.ErrProfileNotFound
	}}
	r := NewResolver(profiles, &stubDevices{}, &stubTokens{}, retry.Policy{
		MaxAttempts: 1,
		BaseDelay:   time.Millisecond,
	}, time.Hour, zerolog.Nop())

	res, err := r.Resolve(context.Background(), "acct-new", "dev-1", "laptop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Account.Role != domain.RoleStudent {
		t.Fatalf("first login must default to the student role, got %q", res.Account.Role)
	}
	if res.Token == "" {
		t.Fatalf("resolution must mint a routing token")
	}
}
