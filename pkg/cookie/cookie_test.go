package cookie

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestManager_IssueAttributes(t *testing.T) {
	m := NewManager("edu_session", true)
	rec := httptest.NewRecorder()

	m.Issue(rec, "tok-123", time.Hour)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "edu_session" || c.Value != "tok-123" {
		t.Fatalf("unexpected cookie identity: %+v", c)
	}
	if !c.HttpOnly || !c.Secure {
		t.Fatalf("cookie must be HttpOnly and Secure: %+v", c)
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected SameSite=Lax, got %v", c.SameSite)
	}
	if c.MaxAge != 3600 {
		t.Fatalf("expected Max-Age 3600, got %d", c.MaxAge)
	}
	if c.Path != "/" {
		t.Fatalf("expected Path=/, got %q", c.Path)
	}
}

func TestManager_ClearSerializesMaxAgeZero(t *testing.T) {
	m := NewManager("edu_session", true)
	rec := httptest.NewRecorder()

	m.Clear(rec)

	raw := rec.Header().Get("Set-Cookie")
	if !strings.Contains(raw, "Max-Age=0") {
		t.Fatalf("Clear must serialize Max-Age=0, got %q", raw)
	}
	c := rec.Result().Cookies()[0]
	if c.Value != "" {
		t.Fatalf("cleared cookie must carry an empty value, got %q", c.Value)
	}
}

func TestManager_Read(t *testing.T) {
	m := NewManager("edu_session", false)

	req := httptest.NewRequest("GET", "/", nil)
	if _, ok := m.Read(req); ok {
		t.Fatalf("expected no credential on a bare request")
	}

	req.AddCookie(&http.Cookie{Name: "edu_session", Value: "tok-9"})
	tok, ok := m.Read(req)
	if !ok || tok != "tok-9" {
		t.Fatalf("expected tok-9, got %q ok=%v", tok, ok)
	}
}

func TestSlot_SupersedeAndClear(t *testing.T) {
	s := NewSlot()

	if _, ok := s.Current(); ok {
		t.Fatalf("new slot must be empty")
	}

	s.Issue("first", time.Hour)
	s.Issue("second", time.Hour)
	tok, ok := s.Current()
	if !ok || tok != "second" {
		t.Fatalf("expected superseding credential, got %q ok=%v", tok, ok)
	}

	s.Clear()
	if _, ok := s.Current(); ok {
		t.Fatalf("cleared slot must be empty")
	}
}

func TestSlot_Expiry(t *testing.T) {
	s := NewSlot()
	s.Issue("short", -time.Second)
	if _, ok := s.Current(); ok {
		t.Fatalf("expired credential must not be current")
	}
}
