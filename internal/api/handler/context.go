package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxAccountID extracts the account id injected by the Auth or SessionGate
// middleware and fast-fails before any service call: its presence proves the
// middleware ran.
func ctxAccountID(c echo.Context) (string, error) {
	accountID, _ := c.Get("account_id").(string)
	if accountID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return accountID, nil
}
