package login

import (
	"context"
	"time"
)

// Backend error strings the controller recognizes.
const (
	ErrorInvalidCredentials = "Invalid username or password"
	ErrorEmailNotVerified   = "Email not verified"
)

// Navigation targets owned by the form.
const (
	PathVerifyEmail = "/verifyemail"
	PathSignUp      = "/signup"
)

// VerifyRedirectDelay is how long the unverified-email message stays up
// before the form navigates to PathVerifyEmail.
const VerifyRedirectDelay = 5000 * time.Millisecond

// AuthResult is what the authentication backend answers.  A nil result, or
// one with neither field set, is a no-op.
type AuthResult struct {
	Error    string `json:"error,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// Authenticator performs the login call.  A non-nil error means the call
// itself failed; rejections travel in AuthResult.Error.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*AuthResult, error)
}

// Navigator moves the user to another page.
type Navigator interface {
	Navigate(path string)
}

// OutcomeKind says what a Submit did.
type OutcomeKind int

const (
	OutcomeNone       OutcomeKind = iota // backend answered nothing actionable
	OutcomeInvalid                       // schema failed, backend not contacted
	OutcomeBusy                          // a submission was already pending
	OutcomeRejected                      // invalid credentials
	OutcomeUnverified                    // email not verified, delayed navigation scheduled
	OutcomeRedirect                      // navigated immediately
	OutcomeFailed                        // the auth call itself failed
)

var outcomeNames = [...]string{"none", "invalid", "busy", "rejected", "unverified", "redirect", "failed"}

func (k OutcomeKind) String() string {
	if int(k) < len(outcomeNames) {
		return outcomeNames[k]
	}
	return "unknown"
}

// Outcome describes a finished Submit.  Path and Delay are set when a
// navigation was performed or scheduled.
type Outcome struct {
	Kind  OutcomeKind
	Path  string
	Delay time.Duration
}
