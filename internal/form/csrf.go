// internal/form/csrf.go
//
// Forms subsystem: stateless CSRF tokens.
//
// Context
//   Rendered forms embed a hidden `csrf_token` input.  The server verifies
//   it on POST to ensure the request came from a form it rendered.  Tokens
//   are stateless:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(key, nonce+unixMicro) )
//
//   •  nonce – 16 random bytes.
//   •  unixMicro – issue time, 8 bytes, big-endian.
//   •  HMAC – keyed with the configured CSRF key.
//
//   Verify checks the signature and that the timestamp is within MaxAge, so
//   any instance sharing the key can verify any other instance's tokens.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"
)

const (
	tokenBytes = 16 + 8 + sha256.Size
	MaxAge     = 2 * time.Hour
	maxSkew    = time.Minute
)

// CSRF issues and verifies tokens under one key.
type CSRF struct {
	key []byte
	now func() time.Time
}

// NewCSRF returns a CSRF signer.  key must be at least 32 bytes; a nil key
// yields an ephemeral random one, valid until restart.
func NewCSRF(key []byte) (*CSRF, error) {
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
	}
	if len(key) < 32 {
		return nil, errors.New("csrf: key must be at least 32 bytes")
	}
	return &CSRF{key: key, now: time.Now}, nil
}

// Token creates a new token.  Call once per form render.
func (c *CSRF) Token() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(c.now().UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, c.sign(nonce, ts)...)

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify reports whether tok passes HMAC and age checks.
func (c *CSRF) Verify(tok string) bool {
	if tok == "" {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}

	nonce, ts, sig := raw[:16], raw[16:24], raw[24:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(ts)))
	age := c.now().Sub(issued)
	if age > MaxAge || age < -maxSkew {
		return false
	}
	return hmac.Equal(sig, c.sign(nonce, ts))
}

func (c *CSRF) sign(nonce, ts []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(nonce)
	mac.Write(ts)
	return mac.Sum(nil)
}
