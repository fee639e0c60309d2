package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edustream/session-system/internal/core/domain"
	"github.com/edustream/session-system/internal/core/ports"
	"github.com/edustream/session-system/pkg/cookie"
)

// SessionGate protects routes behind the routing cookie. A missing or
// revoked token is 401; a store outage is 503, never a spurious 401: store
// reachability and authentication are orthogonal.
func SessionGate(cookies *cookie.Manager, tokens ports.SessionTokens) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := cookies.Read(c.Request())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
			}

			accountID, err := tokens.Validate(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrSessionNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
				}
				if domain.IsTransient(err) {
					return echo.NewHTTPError(http.StatusServiceUnavailable, "session store unavailable")
				}
				return err
			}

			c.Set("account_id", accountID)
			c.Set("session_token", token)

			return next(c)
		}
	}
}
