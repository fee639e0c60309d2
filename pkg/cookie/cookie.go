// Package cookie manages the opaque routing credential: an HTTP cookie
// writer for the server surface and an in-process slot for embedded clients.
// Issuing and clearing are pure local operations; they never fail and never
// touch the network.
package cookie

import (
	"net/http"
	"time"
)

// Manager writes the routing cookie with fixed security attributes:
// HttpOnly, SameSite=Lax, Secure when configured, fixed Max-Age.
type Manager struct {
	name   string
	secure bool
}

func NewManager(name string, secure bool) *Manager {
	return &Manager{name: name, secure: secure}
}

// Name returns the cookie name consumed by the routing middleware.
func (m *Manager) Name() string {
	return m.name
}

// Issue sets the routing credential with the given lifetime.
func (m *Manager) Issue(w http.ResponseWriter, token string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear invalidates the credential immediately. MaxAge -1 serializes as
// Max-Age=0, which removes the cookie regardless of its remaining TTL.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read extracts the routing credential from the request, if present.
func (m *Manager) Read(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
