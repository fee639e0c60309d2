package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/edustream/session-system/internal/core/domain"
	"github.com/edustream/session-system/internal/core/ports"
)

func deviceContext(e *echo.Echo, method, target, body string, accountID string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if accountID != "" {
		c.Set("account_id", accountID)
	}
	return c, rec
}

func TestDeviceHandler_Register(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	devices := &stubDevices{}
	h := NewDeviceHandler(devices)

	c, rec := deviceContext(e, http.MethodPost, "/devices",
		`{"device_id":"dev-1","device_name":"laptop"}`, "acct-1")

	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(devices.registered) != 1 || devices.registered[0].DeviceID != "dev-1" {
		t.Fatalf("expected dev-1 registered for acct-1, got %+v", devices.registered)
	}
	if devices.registered[0].AccountID != "acct-1" {
		t.Fatalf("account must come from the auth claims, got %q", devices.registered[0].AccountID)
	}
}

func TestDeviceHandler_RegisterRejectsMissingID(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	h := NewDeviceHandler(&stubDevices{})

	c, _ := deviceContext(e, http.MethodPost, "/devices", `{"device_name":"laptop"}`, "acct-1")

	err := h.Register(c)
	var he *echo.HTTPError
	if err == nil || !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestDeviceHandler_RegisterPropagatesQuotaError(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	devices := &stubDevices{registerErr: domain.ErrDeviceLimitExceeded}
	h := NewDeviceHandler(devices)

	c, _ := deviceContext(e, http.MethodPost, "/devices", `{"device_id":"dev-3"}`, "acct-1")

	err := h.Register(c)
	if err == nil || !strings.Contains(err.Error(), "device limit exceeded") {
		t.Fatalf("quota error must propagate to the error handler, got %v", err)
	}
}

func TestDeviceHandler_List(t *testing.T) {
	e := echo.New()
	devices := &stubDevices{listed: []domain.Device{
		{DeviceID: "dev-1", DeviceName: "laptop", AccountID: "acct-1"},
	}}
	h := NewDeviceHandler(devices)

	c, rec := deviceContext(e, http.MethodGet, "/devices", "", "acct-1")

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp struct {
		Devices []domain.Device `json:"devices"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Devices) != 1 || resp.Devices[0].DeviceID != "dev-1" {
		t.Fatalf("unexpected devices: %+v", resp.Devices)
	}
}

func TestDeviceHandler_Unregister(t *testing.T) {
	e := echo.New()
	devices := &stubDevices{}
	h := NewDeviceHandler(devices)

	c, rec := deviceContext(e, http.MethodDelete, "/devices/dev-1", "", "acct-1")
	c.SetParamNames("deviceId")
	c.SetParamValues("dev-1")

	if err := h.Unregister(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(devices.unregistered) != 1 || devices.unregistered[0] != "dev-1" {
		t.Fatalf("expected dev-1 unregistered, got %v", devices.unregistered)
	}
	if devices.removeReasons[0] != ports.RemovalManual {
		t.Fatalf("user-driven removal must carry the manual reason, got %q", devices.removeReasons[0])
	}
}

func TestDeviceHandler_Reset(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	devices := &stubDevices{}
	h := NewDeviceHandler(devices)

	c, rec := deviceContext(e, http.MethodPost, "/devices/reset",
		`{"account_id":"acct-9"}`, "admin-1")

	if err := h.Reset(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(devices.reset) != 1 || devices.reset[0] != "acct-9" {
		t.Fatalf("expected acct-9 reset, got %v", devices.reset)
	}
}
