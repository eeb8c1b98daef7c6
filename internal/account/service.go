// internal/account/service.go
//
// Database-backed authenticator.
//
// Context
// -------
// When the service runs without a remote auth API it checks credentials
// against its own user table:
//
//	user (id PK, username UNIQUE, password_hash, email_verified_at NULL,
//	      last_login_at NULL, deleted_at NULL)
//
// Answers use the same vocabulary as the remote API, so the login form
// cannot tell the two apart:
//
//   • unknown user or wrong password  → “Invalid username or password”
//   • email_verified_at IS NULL       → “Email not verified”
//   • otherwise                       → redirect to the configured page
//
// Notes
// -----
// • Passwords are bcrypt hashes (golang.org/x/crypto/bcrypt).
// • Unknown users still pay for one bcrypt comparison.
// • Oxford commas, two spaces after periods.
package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yanizio/loginform/internal/login"
)

var _ login.Authenticator = (*Service)(nil)

// ErrNotFound is returned by Lookup when no live user matches.
var ErrNotFound = errors.New("account: user not found")

// User is one row of the user table.
type User struct {
	ID              int64        `db:"id"`
	Username        string       `db:"username"`
	PasswordHash    string       `db:"password_hash"`
	EmailVerifiedAt sql.NullTime `db:"email_verified_at"`
}

// Verified reports whether the user confirmed their email address.
func (u *User) Verified() bool { return u.EmailVerifiedAt.Valid }

// Service authenticates against the user table.
type Service struct {
	db       *sqlx.DB
	redirect string
	now      func() time.Time
}

// NewService returns a Service that sends verified users to redirect.
func NewService(db *sqlx.DB, redirect string) *Service {
	return &Service{db: db, redirect: redirect, now: time.Now}
}

const lookupQuery = `SELECT id, username, password_hash, email_verified_at
                       FROM user
                      WHERE username = ? AND deleted_at IS NULL
                      LIMIT 1`

// Lookup returns the live user named username.
func (s *Service) Lookup(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, lookupQuery, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account: lookup %q: %w", username, err)
	}
	return &u, nil
}

// Login implements login.Authenticator.
func (s *Service) Login(ctx context.Context, username, password string) (*login.AuthResult, error) {
	u, err := s.Lookup(ctx, username)
	if errors.Is(err, ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(placeholderHash(), []byte(password))
		return &login.AuthResult{Error: login.ErrorInvalidCredentials}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return &login.AuthResult{Error: login.ErrorInvalidCredentials}, nil
		}
		return nil, fmt.Errorf("account: compare hash for %q: %w", username, err)
	}

	if !u.Verified() {
		return &login.AuthResult{Error: login.ErrorEmailNotVerified}, nil
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE user SET last_login_at = ? WHERE id = ?`, s.now().UTC(), u.ID); err != nil {
		zap.S().Warnw("record last login failed", "user_id", u.ID, "err", err)
	}
	return &login.AuthResult{Redirect: s.redirect}, nil
}

// HashPassword returns the bcrypt hash stored in password_hash.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

var (
	placeholderOnce sync.Once
	placeholder     []byte
)

func placeholderHash() []byte {
	placeholderOnce.Do(func() {
		placeholder, _ = bcrypt.GenerateFromPassword([]byte("placeholder"), bcrypt.DefaultCost)
	})
	return placeholder
}
