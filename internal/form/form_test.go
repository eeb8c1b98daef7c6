package form

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

const loginYAML = `
id: test/login
title: Login
fields:
  - name: username
    label: Username
    type: text
    placeholder: username
    minlength: 2
    error: login.username.invalid
  - name: password
    label: Password
    type: password
    placeholder: password
    required: true
    minlength: 1
    error: login.password.required
`

func mustParse(t *testing.T) *FormDef {
	t.Helper()
	fd, err := Parse("test", []byte(loginYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return fd
}

func TestParseRejectsBadDefinitions(t *testing.T) {
	cases := map[string]string{
		"missing id":   "fields:\n  - {name: a, label: A, type: text}\n",
		"no fields":    "id: x\n",
		"bad type":     "id: x\nfields:\n  - {name: a, label: A, type: radio}\n",
		"duplicate":    "id: x\nfields:\n  - {name: a, label: A, type: text}\n  - {name: a, label: B, type: text}\n",
		"min over max": "id: x\nfields:\n  - {name: a, label: A, type: text, minlength: 5, maxlength: 2}\n",
	}
	for name, raw := range cases {
		if _, err := Parse(name, []byte(raw)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestValidateField(t *testing.T) {
	fd := mustParse(t)
	user, pass := fd.Field("username"), fd.Field("password")

	cases := []struct {
		f     *FieldDef
		value string
		kind  Kind // empty means valid
	}{
		{user, "", KindTooShort},
		{user, "a", KindTooShort},
		{user, "ก", KindTooShort},
		{user, "ab", ""},
		{user, "สม", ""},
		{pass, "", KindRequired},
		{pass, "x", ""},
		{pass, " ", ""},
	}
	for _, tc := range cases {
		fe := ValidateField(tc.f, tc.value)
		switch {
		case tc.kind == "" && fe != nil:
			t.Errorf("%s=%q: unexpected error %+v", tc.f.Name, tc.value, fe)
		case tc.kind != "" && fe == nil:
			t.Errorf("%s=%q: expected %s", tc.f.Name, tc.value, tc.kind)
		case fe != nil && (fe.Kind != tc.kind || fe.Key != tc.f.ErrorKey):
			t.Errorf("%s=%q: got %+v, want kind %s key %s", tc.f.Name, tc.value, fe, tc.kind, tc.f.ErrorKey)
		}
	}
}

func TestCSRFRoundTrip(t *testing.T) {
	c, err := NewCSRF(nil)
	if err != nil {
		t.Fatalf("NewCSRF: %v", err)
	}
	tok, err := c.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if !c.Verify(tok) {
		t.Fatal("fresh token rejected")
	}
	tampered := []byte(tok)
	if tampered[0] == 'A' {
		tampered[0] = 'B'
	} else {
		tampered[0] = 'A'
	}
	if c.Verify(string(tampered)) {
		t.Fatal("tampered token accepted")
	}

	other, _ := NewCSRF(nil)
	if other.Verify(tok) {
		t.Fatal("token accepted under a different key")
	}

	c.now = func() time.Time { return time.Now().Add(MaxAge + time.Minute) }
	if c.Verify(tok) {
		t.Fatal("expired token accepted")
	}
}

func TestNewCSRFRejectsShortKey(t *testing.T) {
	if _, err := NewCSRF([]byte("short")); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestRenderFieldNeverPrefillsPassword(t *testing.T) {
	fd := mustParse(t)

	out := string(RenderField(fd.Field("password"), "hunter2", "please enter your password"))
	if strings.Contains(out, "hunter2") {
		t.Fatalf("password leaked into markup: %s", out)
	}
	if !strings.Contains(out, `type="password"`) || !strings.Contains(out, `aria-invalid="true"`) {
		t.Fatalf("unexpected markup: %s", out)
	}

	out = string(RenderField(fd.Field("username"), `<bob>`, ""))
	if !strings.Contains(out, `value="&lt;bob&gt;"`) {
		t.Fatalf("username not escaped or missing: %s", out)
	}
}

func TestParseSubmission(t *testing.T) {
	fd := mustParse(t)
	c, _ := NewCSRF(nil)
	tok, _ := c.Token()

	post := func(token string) *http.Request {
		body := url.Values{"username": {"bob"}, "password": {"pw"}, TokenField: {token}}
		r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return r
	}

	sub, err := ParseSubmission(post(tok), fd, c)
	if err != nil {
		t.Fatalf("ParseSubmission: %v", err)
	}
	if sub.Values["username"] != "bob" || sub.Values["password"] != "pw" {
		t.Fatalf("values = %v", sub.Values)
	}

	sub, err = ParseSubmission(post("garbage"), fd, c)
	if err != ErrBadToken {
		t.Fatalf("err = %v, want ErrBadToken", err)
	}
	if sub.Values["username"] != "bob" {
		t.Fatal("values dropped on token failure")
	}
}
