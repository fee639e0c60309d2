package cookie

import (
	"sync"
	"time"
)

// Slot is the in-process rendition of the credential slot, used where no
// HTTP response is in flight (the embedded synchronizer client). At most one
// credential is current; a superseded one is gone even before its expiry.
type Slot struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewSlot() *Slot {
	return &Slot{}
}

// Issue installs the credential, replacing any previous one.
func (s *Slot) Issue(token string, maxAge time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = time.Now().Add(maxAge)
}

// Clear drops the credential immediately.
func (s *Slot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
}

// Current returns the live credential, if any.
func (s *Slot) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || time.Now().After(s.expiresAt) {
		return "", false
	}
	return s.token, true
}
