package login

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yanizio/loginform/internal/form"
	"github.com/yanizio/loginform/internal/i18n"
)

/*──────────────────────────── fakes ───────────────────────────────────────*/

type authFunc func(ctx context.Context, username, password string) (*AuthResult, error)

func (f authFunc) Login(ctx context.Context, u, p string) (*AuthResult, error) { return f(ctx, u, p) }

func answer(res *AuthResult) authFunc {
	return func(context.Context, string, string) (*AuthResult, error) { return res, nil }
}

type navRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (n *navRecorder) Navigate(p string) {
	n.mu.Lock()
	n.paths = append(n.paths, p)
	n.mu.Unlock()
}

func (n *navRecorder) got() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	c       *manualClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{c: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

type fixture struct {
	form  *Form
	nav   *navRecorder
	clock *manualClock
	calls int
}

func newFixture(t *testing.T, auth Authenticator) *fixture {
	t.Helper()
	fx := &fixture{nav: &navRecorder{}, clock: &manualClock{}}
	counting := authFunc(func(ctx context.Context, u, p string) (*AuthResult, error) {
		fx.calls++
		return auth.Login(ctx, u, p)
	})
	f, err := New(Options{Auth: counting, Navigator: fx.nav, Clock: fx.clock})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(f.Close)
	fx.form = f
	return fx
}

func (fx *fixture) fill(t *testing.T, username, password string) {
	t.Helper()
	if err := fx.form.SetField(FieldUsername, username); err != nil {
		t.Fatalf("SetField username: %v", err)
	}
	if err := fx.form.SetField(FieldPassword, password); err != nil {
		t.Fatalf("SetField password: %v", err)
	}
}

/*──────────────────────────── validation ──────────────────────────────────*/

func TestShortUsernameBlocksSubmit(t *testing.T) {
	for _, name := range []string{"", "a", "ก"} {
		fx := newFixture(t, answer(&AuthResult{Redirect: "/dashboard"}))
		fx.fill(t, name, "secret")

		out, err := fx.form.Submit(context.Background())
		if err != nil || out.Kind != OutcomeInvalid {
			t.Fatalf("username %q: outcome %v, err %v", name, out.Kind, err)
		}
		if fx.calls != 0 {
			t.Fatalf("username %q: backend contacted", name)
		}
		fe, ok := fx.form.FieldError(FieldUsername)
		if !ok || fe.Kind != form.KindTooShort || fe.Message != "please enter a valid username" {
			t.Fatalf("username %q: field error %+v", name, fe)
		}
		if len(fx.nav.got()) != 0 {
			t.Fatalf("username %q: navigated", name)
		}
	}
}

func TestEmptyPasswordBlocksSubmit(t *testing.T) {
	fx := newFixture(t, answer(&AuthResult{Redirect: "/dashboard"}))
	fx.fill(t, "alice", "")

	out, _ := fx.form.Submit(context.Background())
	if out.Kind != OutcomeInvalid || fx.calls != 0 {
		t.Fatalf("outcome %v, calls %d", out.Kind, fx.calls)
	}
	fe, ok := fx.form.FieldError(FieldPassword)
	if !ok || fe.Kind != form.KindRequired || fe.Message != "please enter your password" {
		t.Fatalf("field error %+v", fe)
	}
	if _, ok := fx.form.FieldError(FieldUsername); ok {
		t.Fatal("valid username carries an error")
	}
}

func TestSetFieldRevalidates(t *testing.T) {
	fx := newFixture(t, answer(nil))

	_ = fx.form.SetField(FieldUsername, "a")
	if _, ok := fx.form.FieldError(FieldUsername); !ok {
		t.Fatal("no error after short input")
	}
	_ = fx.form.SetField(FieldUsername, "ab")
	if _, ok := fx.form.FieldError(FieldUsername); ok {
		t.Fatal("error kept after valid input")
	}
	if err := fx.form.SetField("email", "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("err = %v, want ErrUnknownField", err)
	}
}

/*──────────────────────────── result branches ─────────────────────────────*/

func TestInvalidCredentials(t *testing.T) {
	fx := newFixture(t, answer(&AuthResult{Error: ErrorInvalidCredentials}))
	fx.fill(t, "alice", "wrong")

	out, err := fx.form.Submit(context.Background())
	if err != nil || out.Kind != OutcomeRejected {
		t.Fatalf("outcome %v, err %v", out.Kind, err)
	}
	fe, _ := fx.form.FieldError(FieldUsername)
	if fe.Kind != form.KindManual || fe.Message != "Invalid username or password" {
		t.Fatalf("field error %+v", fe)
	}

	fx.clock.Advance(time.Minute)
	if got := fx.nav.got(); len(got) != 0 {
		t.Fatalf("navigated to %v", got)
	}
}

func TestEmailNotVerifiedNavigatesAfterDelay(t *testing.T) {
	fx := newFixture(t, answer(&AuthResult{Error: ErrorEmailNotVerified}))
	fx.fill(t, "alice", "secret")

	out, err := fx.form.Submit(context.Background())
	if err != nil || out.Kind != OutcomeUnverified {
		t.Fatalf("outcome %v, err %v", out.Kind, err)
	}
	if out.Path != PathVerifyEmail || out.Delay != 5000*time.Millisecond {
		t.Fatalf("outcome = %+v", out)
	}
	if v := fx.form.View(); v.UsernameError != "A verification email has been sent to your email address" {
		t.Fatalf("username error = %q", v.UsernameError)
	}

	fx.clock.Advance(4999 * time.Millisecond)
	if got := fx.nav.got(); len(got) != 0 {
		t.Fatalf("navigated early: %v", got)
	}
	fx.clock.Advance(time.Millisecond)
	if got := fx.nav.got(); !reflect.DeepEqual(got, []string{"/verifyemail"}) {
		t.Fatalf("navigations = %v", got)
	}
}

func TestEmailNotVerifiedWithRedirectDoesNotRedirect(t *testing.T) {
	fx := newFixture(t, answer(&AuthResult{Error: ErrorEmailNotVerified, Redirect: "/dashboard"}))
	fx.fill(t, "alice", "secret")

	_, _ = fx.form.Submit(context.Background())
	if got := fx.nav.got(); len(got) != 0 {
		t.Fatalf("navigated immediately: %v", got)
	}
}

func TestRedirect(t *testing.T) {
	fx := newFixture(t, answer(&AuthResult{Redirect: "/dashboard"}))
	fx.fill(t, "alice", "secret")

	out, err := fx.form.Submit(context.Background())
	if err != nil || out.Kind != OutcomeRedirect || out.Path != "/dashboard" {
		t.Fatalf("outcome %+v, err %v", out, err)
	}
	if got := fx.nav.got(); !reflect.DeepEqual(got, []string{"/dashboard"}) {
		t.Fatalf("navigations = %v", got)
	}
	v := fx.form.View()
	if v.UsernameError != "" || v.PasswordError != "" || v.FormError != "" {
		t.Fatalf("unexpected errors in view: %+v", v)
	}
}

func TestSubmitLogsAtDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	f, err := New(Options{
		Auth:      answer(&AuthResult{Redirect: "/dashboard"}),
		Navigator: &navRecorder{},
		Clock:     &manualClock{},
		Logger:    zap.New(core).Sugar(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(f.Close)
	_ = f.SetField(FieldUsername, "alice")
	_ = f.SetField(FieldPassword, "secret")
	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	entries := logs.FilterMessage("login submitted").All()
	if len(entries) != 1 || entries[0].Level != zapcore.DebugLevel {
		t.Fatalf("login submitted entries = %+v", entries)
	}
	if n := logs.FilterLevelExact(zapcore.InfoLevel).Len(); n != 0 {
		t.Fatalf("%d info entries, want 0", n)
	}
}

func TestUnknownErrorStillHonorsRedirect(t *testing.T) {
	fx := newFixture(t, answer(&AuthResult{Error: "Account locked", Redirect: "/locked"}))
	fx.fill(t, "alice", "secret")

	out, _ := fx.form.Submit(context.Background())
	if out.Kind != OutcomeRedirect {
		t.Fatalf("outcome = %v", out.Kind)
	}
	if got := fx.nav.got(); !reflect.DeepEqual(got, []string{"/locked"}) {
		t.Fatalf("navigations = %v", got)
	}
}

func TestEmptyResultIsNoop(t *testing.T) {
	for _, res := range []*AuthResult{nil, {}} {
		fx := newFixture(t, answer(res))
		fx.fill(t, "alice", "secret")

		out, err := fx.form.Submit(context.Background())
		if err != nil || out.Kind != OutcomeNone {
			t.Fatalf("outcome %v, err %v", out.Kind, err)
		}
		if len(fx.nav.got()) != 0 {
			t.Fatal("navigated on empty result")
		}
	}
}

/*──────────────────────────── pending state ───────────────────────────────*/

func TestPendingDisablesActions(t *testing.T) {
	release := make(chan struct{})
	fx := newFixture(t, authFunc(func(context.Context, string, string) (*AuthResult, error) {
		<-release
		return &AuthResult{Error: ErrorInvalidCredentials}, nil
	}))
	fx.fill(t, "alice", "secret")

	done := make(chan Outcome)
	go func() {
		out, _ := fx.form.Submit(context.Background())
		done <- out
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !fx.form.Pending() {
		if time.Now().After(deadline) {
			t.Fatal("form never became pending")
		}
		time.Sleep(time.Millisecond)
	}

	v := fx.form.View()
	if !v.ButtonsDisabled() || !v.ShowSpinner() {
		t.Fatalf("view while pending: %+v", v)
	}
	if out, err := fx.form.Submit(context.Background()); !errors.Is(err, ErrBusy) || out.Kind != OutcomeBusy {
		t.Fatalf("second submit: %v, %v", out.Kind, err)
	}
	if err := fx.form.SignUp(); !errors.Is(err, ErrBusy) {
		t.Fatalf("SignUp while pending: %v", err)
	}

	close(release)
	if out := <-done; out.Kind != OutcomeRejected {
		t.Fatalf("outcome = %v", out.Kind)
	}
	v = fx.form.View()
	if v.Pending || v.ButtonsDisabled() || v.ShowSpinner() {
		t.Fatalf("view after settle: %+v", v)
	}
	if fx.calls != 1 {
		t.Fatalf("backend calls = %d, want 1", fx.calls)
	}
}

/*──────────────────────────── failures and lifetime ───────────────────────*/

func TestBackendFailureResetsPending(t *testing.T) {
	boom := errors.New("connection refused")
	fail := true
	fx := newFixture(t, authFunc(func(context.Context, string, string) (*AuthResult, error) {
		if fail {
			return nil, boom
		}
		return &AuthResult{Redirect: "/dashboard"}, nil
	}))
	fx.fill(t, "alice", "secret")

	out, err := fx.form.Submit(context.Background())
	if !errors.Is(err, boom) || out.Kind != OutcomeFailed {
		t.Fatalf("outcome %v, err %v", out.Kind, err)
	}
	if fx.form.Pending() {
		t.Fatal("still pending after failure")
	}
	if got := fx.form.FormError(); got != "Something went wrong, please try again" {
		t.Fatalf("form error = %q", got)
	}

	fail = false
	out, err = fx.form.Submit(context.Background())
	if err != nil || out.Kind != OutcomeRedirect {
		t.Fatalf("retry: %v, %v", out.Kind, err)
	}
	if fx.form.FormError() != "" {
		t.Fatal("form error kept after successful retry")
	}
}

func TestCloseCancelsDelayedNavigation(t *testing.T) {
	fx := newFixture(t, answer(&AuthResult{Error: ErrorEmailNotVerified}))
	fx.fill(t, "alice", "secret")

	_, _ = fx.form.Submit(context.Background())
	fx.form.Close()
	fx.clock.Advance(10 * time.Second)

	if got := fx.nav.got(); len(got) != 0 {
		t.Fatalf("navigated after close: %v", got)
	}
	if _, err := fx.form.Submit(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("submit after close: %v", err)
	}
}

func TestSignUpSupersedesDelayedNavigation(t *testing.T) {
	fx := newFixture(t, answer(&AuthResult{Error: ErrorEmailNotVerified}))
	fx.fill(t, "alice", "secret")

	_, _ = fx.form.Submit(context.Background())
	if err := fx.form.SignUp(); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	fx.clock.Advance(10 * time.Second)

	if got := fx.nav.got(); !reflect.DeepEqual(got, []string{"/signup"}) {
		t.Fatalf("navigations = %v", got)
	}
}

func TestThaiMessages(t *testing.T) {
	cat, err := i18n.New("th")
	if err != nil {
		t.Fatalf("i18n: %v", err)
	}
	f, err := New(Options{
		Auth:      answer(&AuthResult{Error: ErrorEmailNotVerified}),
		Navigator: &navRecorder{},
		Clock:     &manualClock{},
		Messages:  cat.Default(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer f.Close()

	_ = f.SetField(FieldUsername, "a")
	if got := f.View().UsernameError; got != "กรุณากรอกชื่อผู้ใช้งานให้ถูกต้อง" {
		t.Fatalf("username error = %q", got)
	}

	_ = f.SetField(FieldUsername, "alice")
	_ = f.SetField(FieldPassword, "secret")
	_, _ = f.Submit(context.Background())
	if got := f.View().UsernameError; got != "ระบบได้ส่งอีเมล์ยืนยันการสมัครสมาชิกไปยังอีเมล์ของคุณแล้ว" {
		t.Fatalf("verification message = %q", got)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{Navigator: &navRecorder{}}); err == nil {
		t.Fatal("expected error without Auth")
	}
	if _, err := New(Options{Auth: answer(nil)}); err == nil {
		t.Fatal("expected error without Navigator")
	}
}

func TestSchemaRules(t *testing.T) {
	fd, err := Schema()
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	if fd.ID != "auth/login" {
		t.Fatalf("ID = %q", fd.ID)
	}
	u, p := fd.Field(FieldUsername), fd.Field(FieldPassword)
	if u == nil || u.MinLength != 2 || u.ErrorKey != i18n.KeyUsernameInvalid {
		t.Fatalf("username = %+v", u)
	}
	if p == nil || p.MinLength != 1 || p.Type != "password" || p.ErrorKey != i18n.KeyPasswordRequired {
		t.Fatalf("password = %+v", p)
	}
}
