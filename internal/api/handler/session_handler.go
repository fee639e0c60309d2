package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/edustream/session-system/internal/metrics"
	"github.com/edustream/session-system/internal/core/domain"
	"github.com/edustream/session-system/internal/core/ports"
	"github.com/edustream/session-system/internal/core/service"
	"github.com/edustream/session-system/pkg/cookie"
	"github.com/edustream/session-system/pkg/fingerprint"
)

// SessionHandler exposes the credential-refresh and logout flows over HTTP.
// Refresh runs the same resolution pipeline the embedded synchronizer uses,
// with the device identified by request-reported fingerprint signals.
type SessionHandler struct {
	resolver          *service.Resolver
	cookies           *cookie.Manager
	tokens            ports.SessionTokens
	devices           ports.DeviceService
	profiles          ports.ProfileStore
	notifier          ports.Notifier
	unregisterTimeout time.Duration
	log               zerolog.Logger
}

func NewSessionHandler(
	resolver *service.Resolver,
	cookies *cookie.Manager,
	tokens ports.SessionTokens,
	devices ports.DeviceService,
	profiles ports.ProfileStore,
	notifier ports.Notifier,
	unregisterTimeout time.Duration,
	log zerolog.Logger,
) *SessionHandler {
	if unregisterTimeout <= 0 {
		unregisterTimeout = service.DefaultUnregisterTimeout
	}
	return &SessionHandler{
		resolver:          resolver,
		cookies:           cookies,
		tokens:            tokens,
		devices:           devices,
		profiles:          profiles,
		notifier:          notifier,
		unregisterTimeout: unregisterTimeout,
		log:               log,
	}
}

// Refresh reconciles the caller's identity credential with the device quota
// and issues the routing cookie.
//
// @Summary      Refresh the session for the calling device
// @Tags         session
// @Produce      json
// @Success      200  {object}  domain.AuthState
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /session/refresh [post]
func (h *SessionHandler) Refresh(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	deviceID := fingerprint.Generate(fingerprint.FromRequest(c.Request()))
	deviceName := c.Request().Header.Get("X-Client-Device-Name")

	res, err := h.resolver.Resolve(c.Request().Context(), accountID, deviceID, deviceName)
	if err != nil {
		if errors.Is(err, domain.ErrDeviceLimitExceeded) {
			h.cookies.Clear(c.Response())
			if h.notifier != nil {
				h.notifier.Publish(domain.Notification{
					ID:        uuid.NewString(),
					AccountID: accountID,
					Kind:      domain.NotificationDeviceLimit,
					Message:   "This account is already in use on the maximum number of devices.",
					CreatedAt: time.Now().UTC(),
				})
			}
			return c.JSON(http.StatusConflict, map[string]string{"error": "DeviceLimitExceeded"})
		}
		return err
	}

	h.cookies.Issue(c.Response(), res.Token, h.resolver.TokenTTL())

	return c.JSON(http.StatusOK, domain.AuthState{
		Status:       domain.StatusAuthenticated,
		Connectivity: domain.ConnectivityOnline,
		Account:      res.Account,
	})
}

// Logout clears the routing cookie immediately and attempts device cleanup
// within a bounded window. Cleanup failures never block the logout.
//
// @Summary      Log the calling device out
// @Tags         session
// @Produce      json
// @Success      200  {object}  domain.AuthState
// @Router       /session/logout [post]
func (h *SessionHandler) Logout(c echo.Context) error {
	token, ok := h.cookies.Read(c.Request())

	// Local invalidation first: it must succeed regardless of store health.
	h.cookies.Clear(c.Response())

	if ok {
		ctx, cancel := context.WithTimeout(c.Request().Context(), h.unregisterTimeout)
		defer cancel()

		accountID, err := h.tokens.Validate(ctx, token)
		if err == nil {
			deviceID := fingerprint.Generate(fingerprint.FromRequest(c.Request()))
			_ = h.tokens.Revoke(ctx, token)
			if err := h.devices.Unregister(ctx, accountID, deviceID, ports.RemovalLogout); err != nil {
				// Repositories wrap the deadline error, so ask the context
				// directly whether the cleanup window ran out.
				if ctx.Err() != nil {
					metrics.UnregisterTimeoutsTotal.Inc()
				}
				h.log.Warn().Err(err).Str("account_id", accountID).Msg("device unregistration on logout failed")
			}
		}
	}

	return c.JSON(http.StatusOK, domain.AuthState{
		Status:       domain.StatusUnauthenticated,
		Connectivity: domain.ConnectivityOnline,
	})
}

// Current reports the authenticated account behind the routing cookie.
//
// @Summary      Current session state
// @Tags         session
// @Produce      json
// @Success      200  {object}  domain.AuthState
// @Failure      401  {object}  map[string]string
// @Router       /session [get]
func (h *SessionHandler) Current(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	account, err := h.profiles.Get(c.Request().Context(), accountID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, domain.AuthState{
		Status:       domain.StatusAuthenticated,
		Connectivity: domain.ConnectivityOnline,
		Account:      account,
	})
}
