// Package fingerprint derives a stable device identifier from local
// environment signals. Generation is deterministic, needs no network access,
// and never fails: when no signals are available it falls back to a constant
// sentinel id.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
)

// Sentinel is returned when every signal is empty (e.g. a non-interactive
// or server context).
const Sentinel = "00000000000000000000000000000000"

// Signals is the tuple of environment characteristics a device reports.
// Identical tuples always produce the same identifier.
type Signals struct {
	UserAgent             string
	Locale                string
	ColorDepth            int
	ScreenResolution      string
	TimezoneOffsetMinutes int
	LogicalCores          int
}

func (s Signals) empty() bool {
	return s == Signals{}
}

// Generate hashes the signal tuple into a 32-character hex device id.
func Generate(s Signals) string {
	if s.empty() {
		return Sentinel
	}

	components := []string{
		s.UserAgent,
		s.Locale,
		strconv.Itoa(s.ColorDepth),
		s.ScreenResolution,
		strconv.Itoa(s.TimezoneOffsetMinutes),
		strconv.Itoa(s.LogicalCores),
	}

	sum := sha256.Sum256([]byte(strings.Join(components, "|")))
	return hex.EncodeToString(sum[:16])
}

// FromRequest collects signals reported by a browser client. The numeric
// signals arrive in X-Client-* headers set by the web frontend; missing or
// malformed values degrade to zero rather than failing.
func FromRequest(r *http.Request) Signals {
	return Signals{
		UserAgent:             r.UserAgent(),
		Locale:                firstToken(r.Header.Get("Accept-Language")),
		ColorDepth:            headerInt(r, "X-Client-Color-Depth"),
		ScreenResolution:      r.Header.Get("X-Client-Screen"),
		TimezoneOffsetMinutes: headerInt(r, "X-Client-Tz-Offset"),
		LogicalCores:          headerInt(r, "X-Client-Cores"),
	}
}

func headerInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.Header.Get(name)))
	if err != nil {
		return 0
	}
	return n
}

func firstToken(acceptLanguage string) string {
	if i := strings.IndexAny(acceptLanguage, ",;"); i >= 0 {
		return strings.TrimSpace(acceptLanguage[:i])
	}
	return strings.TrimSpace(acceptLanguage)
}
