package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// PushHandler accepts push-notification token registrations on behalf of the
// external push service. Outcomes here never influence the session state.
type PushHandler struct{}

func NewPushHandler() *PushHandler {
	return &PushHandler{}
}

type pushTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// Register accepts and acknowledges a push token.
//
// @Summary      Register a push token
// @Tags         push
// @Accept       json
// @Produce      json
// @Param        body  body      pushTokenRequest  true  "Push token"
// @Success      200   {object}  map[string]bool
// @Failure      400   {object}  map[string]string
// @Router       /push/tokens [post]
func (h *PushHandler) Register(c echo.Context) error {
	var req pushTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
