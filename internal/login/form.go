// Package login implements the login form controller.
//
// A Form owns the credentials being typed, their validation errors, and the
// pending flag of an in-flight submission.  It validates against the
// embedded auth/login schema, calls an injected Authenticator, and routes
// the user through an injected Navigator:
//
//   - "Invalid username or password" sets a manual error on username.
//   - "Email not verified" sets a localized manual error on username and
//     navigates to /verifyemail after VerifyRedirectDelay.
//   - Any other answer carrying a redirect navigates there at once.
//
// The delayed navigation belongs to the Form: Close cancels it, and a later
// Submit or SignUp supersedes it.
package login

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/loginform/internal/form"
	"github.com/yanizio/loginform/internal/i18n"
	"github.com/yanizio/loginform/internal/metrics"
)

// Field names declared by the schema.
const (
	FieldUsername = "username"
	FieldPassword = "password"
)

// Button labels.
const (
	SubmitLabel = "Login"
	SignUpLabel = "Create new account"
)

var (
	ErrBusy         = errors.New("login: submission pending")
	ErrClosed       = errors.New("login: form closed")
	ErrUnknownField = errors.New("login: unknown field")
)

//go:embed forms/login.yaml
var schemaYAML []byte

var (
	schemaOnce sync.Once
	schema     *form.FormDef
	schemaErr  error
)

// Schema returns the login form definition, parsed on first use.
func Schema() (*form.FormDef, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = form.Parse("forms/login.yaml", schemaYAML)
	})
	return schema, schemaErr
}

// Credentials are the values typed into the form.
type Credentials struct {
	Username string
	Password string
}

// Localizer turns message keys into display text.
type Localizer interface {
	T(key string) string
}

// Options configures a Form.  Auth and Navigator are required.
type Options struct {
	Auth      Authenticator
	Navigator Navigator
	Clock     Clock              // defaults to RealClock
	Messages  Localizer          // defaults to English
	Logger    *zap.SugaredLogger // defaults to zap.S()
}

// Form is the login form controller.  It is safe for concurrent use.
type Form struct {
	auth   Authenticator
	nav    Navigator
	clock  Clock
	msgs   Localizer
	log    *zap.SugaredLogger
	schema *form.FormDef

	mu      sync.Mutex
	values  map[string]string
	errs    map[string]form.FieldError
	formErr string
	pending bool
	closed  bool
	timer   Timer
	gen     uint64 // bumped whenever a scheduled navigation is superseded
}

// New returns a Form with empty credentials.
func New(opts Options) (*Form, error) {
	if opts.Auth == nil || opts.Navigator == nil {
		return nil, errors.New("login: Auth and Navigator are required")
	}
	fd, err := Schema()
	if err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Messages == nil {
		opts.Messages = i18n.English()
	}
	if opts.Logger == nil {
		opts.Logger = zap.S()
	}
	return &Form{
		auth:   opts.Auth,
		nav:    opts.Navigator,
		clock:  opts.Clock,
		msgs:   opts.Messages,
		log:    opts.Logger,
		schema: fd,
		values: map[string]string{FieldUsername: "", FieldPassword: ""},
		errs:   make(map[string]form.FieldError),
	}, nil
}

/*──────────────────────────── input ───────────────────────────────────────*/

// SetField stores value and revalidates that field, replacing any error it
// carried, manual ones included.
func (f *Form) SetField(name, value string) error {
	fd := f.schema.Field(name)
	if fd == nil {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.values[name] = value
	f.revalidateLocked(fd)
	return nil
}

// Validate runs every schema rule and reports whether the form may submit.
func (f *Form) Validate() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateLocked()
}

func (f *Form) validateLocked() bool {
	ok := true
	for i := range f.schema.Fields {
		if !f.revalidateLocked(&f.schema.Fields[i]) {
			ok = false
		}
	}
	return ok
}

func (f *Form) revalidateLocked(fd *form.FieldDef) bool {
	fe := form.ValidateField(fd, f.values[fd.Name])
	if fe == nil {
		delete(f.errs, fd.Name)
		return true
	}
	fe.Message = f.msgs.T(fe.Key)
	f.errs[fd.Name] = *fe
	return false
}

/*──────────────────────────── actions ─────────────────────────────────────*/

// Submit validates the form and, when valid, authenticates.  It returns
// ErrBusy while another submission is pending and a wrapped error when the
// auth call fails; the form stays usable either way.
func (f *Form) Submit(ctx context.Context) (Outcome, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return Outcome{}, ErrClosed
	}
	if f.pending {
		f.mu.Unlock()
		f.record(Outcome{Kind: OutcomeBusy}, "")
		return Outcome{Kind: OutcomeBusy}, ErrBusy
	}
	if !f.validateLocked() {
		for name, fe := range f.errs {
			metrics.LoginValidationFailures.WithLabelValues(name, string(fe.Kind)).Inc()
		}
		f.mu.Unlock()
		f.record(Outcome{Kind: OutcomeInvalid}, "")
		return Outcome{Kind: OutcomeInvalid}, nil
	}
	f.cancelLocked()
	f.formErr = ""
	f.pending = true
	creds := Credentials{Username: f.values[FieldUsername], Password: f.values[FieldPassword]}
	f.mu.Unlock()

	start := time.Now()
	res, err := f.auth.Login(ctx, creds.Username, creds.Password)
	metrics.AuthDuration.Observe(time.Since(start).Seconds())

	f.mu.Lock()
	f.pending = false
	out, navigateNow := f.applyLocked(res, err)
	f.mu.Unlock()

	if navigateNow {
		f.nav.Navigate(out.Path)
	}
	f.record(out, creds.Username)

	if err != nil {
		metrics.AuthErrorsTotal.Inc()
		f.log.Errorw("login backend failed", "username", creds.Username, "err", err)
		return out, fmt.Errorf("login: authenticate %q: %w", creds.Username, err)
	}
	return out, nil
}

// applyLocked interprets the backend answer.  The two known errors end
// processing; the redirect is honored for any other answer.
func (f *Form) applyLocked(res *AuthResult, err error) (Outcome, bool) {
	if err != nil {
		f.formErr = f.msgs.T(i18n.KeyFailed)
		return Outcome{Kind: OutcomeFailed}, false
	}
	if res == nil {
		return Outcome{Kind: OutcomeNone}, false
	}

	switch res.Error {
	case ErrorInvalidCredentials:
		f.setManualLocked(FieldUsername, ErrorInvalidCredentials)
		return Outcome{Kind: OutcomeRejected}, false

	case ErrorEmailNotVerified:
		f.setManualLocked(FieldUsername, f.msgs.T(i18n.KeyVerificationSent))
		if !f.closed {
			f.scheduleLocked(PathVerifyEmail, VerifyRedirectDelay)
		}
		return Outcome{Kind: OutcomeUnverified, Path: PathVerifyEmail, Delay: VerifyRedirectDelay}, false
	}

	if res.Redirect != "" {
		return Outcome{Kind: OutcomeRedirect, Path: res.Redirect}, !f.closed
	}
	return Outcome{Kind: OutcomeNone}, false
}

func (f *Form) setManualLocked(field, msg string) {
	f.errs[field] = form.FieldError{Field: field, Kind: form.KindManual, Message: msg}
}

// SignUp navigates to the account creation page.  It is refused while a
// submission is pending.
func (f *Form) SignUp() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	if f.pending {
		f.mu.Unlock()
		return ErrBusy
	}
	f.cancelLocked()
	f.mu.Unlock()

	f.nav.Navigate(PathSignUp)
	return nil
}

// Close releases the form.  A scheduled navigation that has not fired is
// cancelled, and an in-flight submission will not navigate when it settles.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cancelLocked()
}

/*──────────────────────────── scheduling ──────────────────────────────────*/

func (f *Form) scheduleLocked(path string, d time.Duration) {
	f.cancelLocked()
	gen := f.gen
	f.timer = f.clock.AfterFunc(d, func() { f.fire(gen, path) })
}

func (f *Form) cancelLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.gen++
}

func (f *Form) fire(gen uint64, path string) {
	f.mu.Lock()
	if f.closed || gen != f.gen {
		f.mu.Unlock()
		return
	}
	f.timer = nil
	f.mu.Unlock()

	f.nav.Navigate(path)
}

/*──────────────────────────── state ───────────────────────────────────────*/

// FieldError returns the error attached to name, if any.
func (f *Form) FieldError(name string) (form.FieldError, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fe, ok := f.errs[name]
	return fe, ok
}

// FormError returns the form-level message set after a failed auth call.
func (f *Form) FormError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.formErr
}

// Pending reports whether an auth call is in flight.
func (f *Form) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

// View is a snapshot for rendering.  The password is never included.
type View struct {
	Username      string
	UsernameError string
	PasswordError string
	FormError     string
	Pending       bool
}

// ButtonsDisabled reports whether both buttons must be disabled.
func (v View) ButtonsDisabled() bool { return v.Pending }

// ShowSpinner reports whether the submit button shows a spinner instead of
// its label.
func (v View) ShowSpinner() bool { return v.Pending }

// View returns the current render snapshot.
func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return View{
		Username:      f.values[FieldUsername],
		UsernameError: f.errs[FieldUsername].Message,
		PasswordError: f.errs[FieldPassword].Message,
		FormError:     f.formErr,
		Pending:       f.pending,
	}
}

func (f *Form) record(out Outcome, username string) {
	metrics.LoginSubmissions.WithLabelValues(out.Kind.String()).Inc()
	if username != "" {
		f.log.Debugw("login submitted", "username", username, "outcome", out.Kind.String(), "path", out.Path)
	}
}
