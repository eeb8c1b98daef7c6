// components/auth/render.go
//
// Page rendering and static assets.
//
// Context
//   The login page is one html/template embedded in the binary.  Field
//   markup comes from form.RenderField so inputs and error spans match every
//   other form.  Pages are rendered into a buffer first; a template error
//   therefore becomes a clean 500 instead of a half-written page.
//
//------------------------------------------------------------------------------

package auth

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/yanizio/loginform/internal/form"
	"github.com/yanizio/loginform/internal/i18n"
	"github.com/yanizio/loginform/internal/logger"
	"github.com/yanizio/loginform/internal/login"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type pages struct {
	login *template.Template
}

func loadPages() (*pages, error) {
	t, err := template.ParseFS(templateFS, "templates/login.html")
	if err != nil {
		return nil, err
	}
	return &pages{login: t}, nil
}

// pageData feeds templates/login.html.
type pageData struct {
	Lang        string
	Title       string
	Username    template.HTML
	Password    template.HTML
	Token       template.HTML
	FormError   string
	Disabled    bool
	Spinner     bool
	SubmitLabel string
	SignUpLabel string
	ActionLogin string
	ActionSign  string
}

func (c *Component) render(w http.ResponseWriter, r *http.Request, tr i18n.Translator, status int, v login.View) {
	log := logger.FromContext(r.Context())

	tok, err := c.deps.CSRF.Token()
	if err != nil {
		log.Errorw("csrf token failed", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	data := pageData{
		Lang:        tr.Locale(),
		Title:       tr.T(i18n.KeyTitle),
		Username:    form.RenderField(c.schema.Field(login.FieldUsername), v.Username, v.UsernameError),
		Password:    form.RenderField(c.schema.Field(login.FieldPassword), "", v.PasswordError),
		Token:       form.Hidden(form.TokenField, tok),
		FormError:   v.FormError,
		Disabled:    v.ButtonsDisabled(),
		Spinner:     v.ShowSpinner(),
		SubmitLabel: login.SubmitLabel,
		SignUpLabel: login.SignUpLabel,
		ActionLogin: ActionLogin,
		ActionSign:  ActionSignUp,
	}

	var buf bytes.Buffer
	if err := c.pages.login.Execute(&buf, data); err != nil {
		log.Errorw("render login page failed", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// staticHandler serves the embedded static directory under /static/.
func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // embedded directory; cannot fail
	}
	files := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		files.ServeHTTP(w, r)
	})
}
