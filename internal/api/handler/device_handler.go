package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edustream/session-system/internal/core/domain"
	"github.com/edustream/session-system/internal/core/ports"
)

// DeviceHandler exposes the quota-registry RPCs.
type DeviceHandler struct {
	devices ports.DeviceService
}

func NewDeviceHandler(devices ports.DeviceService) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

type registerDeviceRequest struct {
	DeviceID   string `json:"device_id" validate:"required"`
	DeviceName string `json:"device_name"`
}

type deviceListResponse struct {
	Devices []domain.Device `json:"devices"`
}

type resetDevicesRequest struct {
	AccountID string `json:"account_id" validate:"required"`
}

// Register registers the given device for the calling account.
//
// @Summary      Register a device
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body      registerDeviceRequest  true  "Device details"
// @Success      200   {object}  map[string]bool
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /devices [post]
func (h *DeviceHandler) Register(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	var req registerDeviceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.devices.Register(c.Request().Context(), ports.RegisterDeviceInput{
		AccountID:  accountID,
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
	}); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// List returns the devices registered for the calling account.
//
// @Summary      List registered devices
// @Tags         devices
// @Produce      json
// @Success      200  {object}  deviceListResponse
// @Router       /devices [get]
func (h *DeviceHandler) List(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	devices, err := h.devices.List(c.Request().Context(), accountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deviceListResponse{Devices: devices})
}

// Unregister removes one of the calling account's devices.
//
// @Summary      Unregister a device
// @Tags         devices
// @Produce      json
// @Param        deviceId  path      string  true  "Device id"
// @Success      200       {object}  map[string]bool
// @Router       /devices/{deviceId} [delete]
func (h *DeviceHandler) Unregister(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	deviceID := c.Param("deviceId")
	if deviceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "device id is required")
	}

	if err := h.devices.Unregister(c.Request().Context(), accountID, deviceID, ports.RemovalManual); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// Reset clears every device registered for an account. Admin only.
//
// @Summary      Reset an account's devices
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body      resetDevicesRequest  true  "Target account"
// @Success      200   {object}  map[string]bool
// @Failure      403   {object}  map[string]string
// @Router       /devices/reset [post]
func (h *DeviceHandler) Reset(c echo.Context) error {
	var req resetDevicesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.devices.ResetAll(c.Request().Context(), req.AccountID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
