// components/auth/auth.go
//
// Authentication component – login flow.
//
// Context
//   Serves the login page and drives a login.Form per POST.  The form's
//   navigation requests become HTTP answers:
//
//     • immediate navigation  → 303 See Other to the target
//     • delayed navigation    → page re-rendered with a Refresh header
//     • field errors          → 422 with the username pre-filled
//     • backend failure       → 502 with a generic form error
//     • stale CSRF token      → 403 with a fresh token
//
//   A successful login also sets the session cookie.  Each request gets its
//   own Form, closed when the handler returns, so the delayed navigation is
//   expressed through Outcome.Delay and never through a server-side timer.
//
//------------------------------------------------------------------------------

package auth

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/loginform/internal/component"
	"github.com/yanizio/loginform/internal/form"
	"github.com/yanizio/loginform/internal/i18n"
	"github.com/yanizio/loginform/internal/logger"
	"github.com/yanizio/loginform/internal/login"
	"github.com/yanizio/loginform/internal/metrics"
	"github.com/yanizio/loginform/internal/requestinfo"
	"github.com/yanizio/loginform/internal/session"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Form actions posted by the two buttons.
const (
	ActionLogin  = "login"
	ActionSignUp = "signup"
)

// Deps are the runtime collaborators of the component.
type Deps struct {
	Auth     login.Authenticator
	Catalog  *i18n.Catalog
	CSRF     *form.CSRF
	Sessions *session.Manager

	// SuccessRedirect is where a signed-in visitor to GET /login goes.
	SuccessRedirect string
	// AuthTimeout bounds one shared backend call.  Zero means
	// DefaultAuthTimeout.
	AuthTimeout time.Duration
}

// DefaultAuthTimeout bounds a shared backend call when Deps leaves it unset.
const DefaultAuthTimeout = 30 * time.Second

// Component encapsulates login functionality.
type Component struct {
	deps   Deps
	schema *form.FormDef
	pages  *pages
	group  singleflight.Group
}

// New validates deps and parses the embedded templates.
func New(deps Deps) (*Component, error) {
	if deps.Auth == nil || deps.Catalog == nil || deps.CSRF == nil || deps.Sessions == nil {
		return nil, errors.New("auth: Auth, Catalog, CSRF, and Sessions are required")
	}
	fd, err := login.Schema()
	if err != nil {
		return nil, err
	}
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	if deps.SuccessRedirect == "" {
		deps.SuccessRedirect = "/"
	}
	if deps.AuthTimeout <= 0 {
		deps.AuthTimeout = DefaultAuthTimeout
	}
	return &Component{deps: deps, schema: fd, pages: p}, nil
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "auth" }

// Routes builds and returns the router mounted at “/”.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/login", c.handleLoginGET)
	r.Post("/login", c.handleLoginPOST)
	r.Handle("/static/*", staticHandler())
	return r
}

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) handleLoginGET(w http.ResponseWriter, r *http.Request) {
	if _, ok := c.deps.Sessions.Current(r); ok {
		http.Redirect(w, r, c.deps.SuccessRedirect, http.StatusSeeOther)
		return
	}
	tr := c.deps.Catalog.Resolve(r.Header.Get("Accept-Language"))
	c.render(w, r, tr, http.StatusOK, login.View{})
}

func (c *Component) handleLoginPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	tr := c.deps.Catalog.Resolve(r.Header.Get("Accept-Language"))

	sub, err := form.ParseSubmission(r, c.schema, c.deps.CSRF)
	if err != nil && !errors.Is(err, form.ErrBadToken) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	nav := &recorder{}
	f, ferr := login.New(login.Options{
		Auth:      c.deduped(sub.Token),
		Navigator: nav,
		Clock:     noClock{},
		Messages:  tr,
		Logger:    log,
	})
	if ferr != nil {
		log.Errorw("login form init failed", "err", ferr)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	if r.PostForm.Get("action") == ActionSignUp {
		if err := f.SignUp(); err == nil {
			http.Redirect(w, r, nav.path, http.StatusSeeOther)
			return
		}
	}

	if errors.Is(err, form.ErrBadToken) {
		metrics.CSRFRejectsTotal.Inc()
		log.Warnw("login csrf rejected", requestinfo.FromContext(ctx).Fields()...)
		c.render(w, r, tr, http.StatusForbidden, login.View{
			Username:  sub.Values[login.FieldUsername],
			FormError: tr.T(i18n.KeyCSRF),
		})
		return
	}

	if err := fill(f, sub.Values); err != nil {
		log.Errorw("login form fill failed", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	out, err := f.Submit(ctx)
	audit := append([]interface{}{
		"username", sub.Values[login.FieldUsername],
		"outcome", out.Kind.String(),
	}, requestinfo.FromContext(ctx).Fields()...)
	log.Infow("login attempt", audit...)

	switch {
	case err != nil && out.Kind == login.OutcomeFailed:
		c.render(w, r, tr, http.StatusBadGateway, f.View())

	case err != nil:
		log.Errorw("login submit failed", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

	case nav.path != "":
		if out.Kind == login.OutcomeRedirect {
			if err := c.deps.Sessions.Login(w, r, sub.Values[login.FieldUsername]); err != nil {
				log.Errorw("session cookie failed", "err", err)
			}
		}
		http.Redirect(w, r, nav.path, http.StatusSeeOther)

	case out.Kind == login.OutcomeInvalid:
		c.render(w, r, tr, http.StatusUnprocessableEntity, f.View())

	case out.Delay > 0:
		w.Header().Set("Refresh", refresh(out.Delay, out.Path))
		c.render(w, r, tr, http.StatusOK, f.View())

	default:
		c.render(w, r, tr, http.StatusOK, f.View())
	}
}

// fill copies the submitted credentials into f.
func fill(f *login.Form, vals map[string]string) error {
	for _, name := range []string{login.FieldUsername, login.FieldPassword} {
		if err := f.SetField(name, vals[name]); err != nil {
			return fmt.Errorf("auth: set %s: %w", name, err)
		}
	}
	return nil
}

// refresh formats a Refresh header value, rounding up to whole seconds.
func refresh(d time.Duration, path string) string {
	secs := int((d + time.Second - 1) / time.Second)
	return strconv.Itoa(secs) + "; url=" + path
}

/*──────────────────────── Form collaborators ───────────────────────────────*/

// recorder keeps the last navigation the Form asked for.
type recorder struct{ path string }

func (n *recorder) Navigate(path string) { n.path = path }

// noClock never fires.  The page carries the delay in its Refresh header.
type noClock struct{}

func (noClock) AfterFunc(time.Duration, func()) login.Timer { return stopped{} }

type stopped struct{}

func (stopped) Stop() bool { return true }

/*──────────────────────── Duplicate submissions ────────────────────────────*/

// deduped returns an Authenticator whose calls share one in-flight backend
// call with any other POST of the same token and credentials.  The shared
// call is detached from every caller's cancellation and bounded by
// AuthTimeout; a caller that goes away stops waiting without failing the
// others.
func (c *Component) deduped(token string) login.Authenticator {
	return sharedAuth{c: c, token: token}
}

type sharedAuth struct {
	c     *Component
	token string
}

func (s sharedAuth) Login(ctx context.Context, username, password string) (*login.AuthResult, error) {
	key := flightKey(s.token, username, password)
	shared := context.WithoutCancel(ctx)
	ch := s.c.group.DoChan(key, func() (interface{}, error) {
		sctx, cancel := context.WithTimeout(shared, s.c.deps.AuthTimeout)
		defer cancel()
		return s.c.deps.Auth.Login(sctx, username, password)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		res, _ := r.Val.(*login.AuthResult)
		return res, nil
	}
}

func flightKey(token, username, password string) string {
	sum := sha256.Sum256([]byte(token + "\x00" + username + "\x00" + password))
	return fmt.Sprintf("%x", sum)
}
