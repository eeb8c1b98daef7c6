// internal/form/submit.go
//
// Forms subsystem: request parsing helper.
//
// Context
//   Handlers want one call that parses the POST body, checks the CSRF
//   token, and returns the raw values of the fields a FormDef declares.
//   Field rules are not applied here; the caller decides when to validate.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"net/http"
)

// TokenField is the hidden input carrying the CSRF token.
const TokenField = "csrf_token"

// ErrBadToken reports a missing, forged, or expired CSRF token.
var ErrBadToken = errors.New("form: invalid CSRF token")

// Submission is a parsed POST for one FormDef.
type Submission struct {
	Token  string
	Values map[string]string
}

// ParseSubmission parses r and extracts fd's fields.  It returns the values
// together with ErrBadToken when the token fails verification, so callers can
// re-render the form pre-filled.
func ParseSubmission(r *http.Request, fd *FormDef, csrf *CSRF) (Submission, error) {
	if err := r.ParseForm(); err != nil {
		return Submission{}, fmt.Errorf("parse form %s: %w", fd.ID, err)
	}

	sub := Submission{
		Token:  r.PostForm.Get(TokenField),
		Values: make(map[string]string, len(fd.Fields)),
	}
	for _, f := range fd.Fields {
		sub.Values[f.Name] = r.PostForm.Get(f.Name)
	}

	if !csrf.Verify(sub.Token) {
		return sub, ErrBadToken
	}
	return sub, nil
}
