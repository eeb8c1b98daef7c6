// internal/session/session.go
//
// Signed session cookie.
//
// Context
//   A successful login stores the username in a cookie named
//   “login_session”.  The value is encoded with gorilla/securecookie: a
//   timestamped, HMAC-signed JSON payload that cannot be forged or
//   extended.  The payload carries its own expiry so a cookie kept past
//   Expires by the browser is still refused.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package session

import (
	"crypto/rand"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	CookieName = "login_session"
	DefaultTTL = 14 * 24 * time.Hour
)

// payload is what the cookie carries.
type payload struct {
	Username string `json:"u"`
	Expires  int64  `json:"e"`
}

// Manager issues and verifies session cookies.
type Manager struct {
	codec *securecookie.SecureCookie
	ttl   time.Duration
	now   func() time.Time
}

// NewManager returns a Manager signing with key.  A nil key draws a random
// one, which invalidates sessions on restart.
func NewManager(key []byte, ttl time.Duration) (*Manager, error) {
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
	}
	if len(key) < 32 {
		return nil, errors.New("session: key must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	codec := securecookie.New(key, nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(ttl / time.Second))
	return &Manager{codec: codec, ttl: ttl, now: time.Now}, nil
}

// Login sets the session cookie for username.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, username string) error {
	exp := m.now().Add(m.ttl)
	val, err := m.codec.Encode(CookieName, payload{Username: username, Expires: exp.Unix()})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
	return nil
}

// Current returns the username of a valid, unexpired session.
func (m *Manager) Current(r *http.Request) (username string, ok bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	var p payload
	if err := m.codec.Decode(CookieName, c.Value, &p); err != nil {
		return "", false
	}
	if p.Username == "" || m.now().Unix() >= p.Expires {
		return "", false
	}
	return p.Username, true
}
