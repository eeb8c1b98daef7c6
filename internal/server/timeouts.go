// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts.
//
// Production hardening recommends:
//
//   • ReadTimeout   – abort slow-loris headers (10 s)
//   • WriteTimeout  – cap total response time (15 s)
//   • IdleTimeout   – close keep-alives on idle clients (60 s)
//
// A login POST waits on the authenticator, so WriteTimeout must exceed the
// auth timeout times its attempts.  Zero values in Timeouts fall back to the
// defaults above.
//

package server

import (
	"net/http"
	"time"
)

// Defaults applied when a Timeouts field is zero.
const (
	DefaultRead  = 10 * time.Second
	DefaultWrite = 15 * time.Second
	DefaultIdle  = 60 * time.Second
)

// Timeouts overrides the server defaults.
type Timeouts struct {
	Read, Write, Idle time.Duration
}

// New constructs an *http.Server.
func New(addr string, handler http.Handler, t Timeouts) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: or(t.Read, DefaultRead),
		ReadTimeout:       or(t.Read, DefaultRead),
		WriteTimeout:      or(t.Write, DefaultWrite),
		IdleTimeout:       or(t.Idle, DefaultIdle),
	}
}

func or(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
