// internal/i18n/i18n.go
//
// Localized user-facing messages.
//
// Context
// -------
// The login page speaks Thai by default and English on request.  Messages
// are registered once with go-playground/universal-translator; callers pick
// a Translator per request from the Accept-Language header and ask it for
// keys.  Unknown keys come back verbatim so a missing translation is visible
// but never fatal.
//
// Notes
// -----
//   - Keys are dotted, component first (“login.failed”).
//   - Oxford commas, two spaces after periods.
package i18n

import (
	"fmt"
	"sync"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/th"
	ut "github.com/go-playground/universal-translator"
	"golang.org/x/text/language"
)

// Message keys shared by the form schema, the controller, and templates.
const (
	KeyUsernameInvalid  = "login.username.invalid"
	KeyPasswordRequired = "login.password.required"
	KeyVerificationSent = "login.verification.sent"
	KeyFailed           = "login.failed"
	KeyCSRF             = "login.csrf"
	KeyTitle            = "login.title"
)

// catalog maps locale → key → text.
var catalog = map[string]map[string]string{
	"th": {
		KeyUsernameInvalid:  "กรุณากรอกชื่อผู้ใช้งานให้ถูกต้อง",
		KeyPasswordRequired: "กรุณากรอกรหัสผ่าน",
		KeyVerificationSent: "ระบบได้ส่งอีเมล์ยืนยันการสมัครสมาชิกไปยังอีเมล์ของคุณแล้ว",
		KeyFailed:           "เกิดข้อผิดพลาด กรุณาลองใหม่อีกครั้ง",
		KeyCSRF:             "แบบฟอร์มหมดอายุ กรุณาโหลดหน้าใหม่อีกครั้ง",
		KeyTitle:            "เข้าสู่ระบบ",
	},
	"en": {
		KeyUsernameInvalid:  "please enter a valid username",
		KeyPasswordRequired: "please enter your password",
		KeyVerificationSent: "A verification email has been sent to your email address",
		KeyFailed:           "Something went wrong, please try again",
		KeyCSRF:             "This form has expired.  Please reload the page.",
		KeyTitle:            "Login",
	},
}

// Translator resolves message keys for one locale.
type Translator struct{ t ut.Translator }

// T returns the localized text for key, or key itself when unregistered.
func (t Translator) T(key string) string {
	s, err := t.t.T(key)
	if err != nil || s == "" {
		return key
	}
	return s
}

// Locale reports the locale this Translator serves (“th”, “en”).
func (t Translator) Locale() string { return t.t.Locale() }

// Catalog owns the universal translator and the default locale.
type Catalog struct {
	uni      *ut.UniversalTranslator
	fallback string
}

// New builds a Catalog whose fallback is defaultLocale.  Only locales with
// registered messages are accepted.
func New(defaultLocale string) (*Catalog, error) {
	supported := map[string]locales.Translator{
		"th": th.New(),
		"en": en.New(),
	}
	fb, ok := supported[defaultLocale]
	if !ok {
		return nil, fmt.Errorf("i18n: unsupported default locale %q", defaultLocale)
	}

	uni := ut.New(fb, supported["th"], supported["en"])
	for loc, msgs := range catalog {
		tr, found := uni.GetTranslator(loc)
		if !found {
			return nil, fmt.Errorf("i18n: translator %q not registered", loc)
		}
		for k, v := range msgs {
			if err := tr.Add(k, v, false); err != nil {
				return nil, fmt.Errorf("i18n: add %s/%s: %w", loc, k, err)
			}
		}
	}
	return &Catalog{uni: uni, fallback: defaultLocale}, nil
}

// Translator returns the first matching locale, else the default.
func (c *Catalog) Translator(locales ...string) Translator {
	t, _ := c.uni.FindTranslator(locales...)
	return Translator{t: t}
}

// Resolve picks a Translator from an Accept-Language header value.
func (c *Catalog) Resolve(acceptLanguage string) Translator {
	return c.Translator(Preferences(acceptLanguage)...)
}

// Default returns the Translator for the configured default locale.
func (c *Catalog) Default() Translator { return c.Translator(c.fallback) }

var (
	englishOnce sync.Once
	english     Translator
)

// English returns an English Translator backed by a private Catalog.  It
// serves callers that were not handed a request-scoped Translator.
func English() Translator {
	englishOnce.Do(func() {
		c, err := New("en")
		if err != nil {
			panic(err) // static catalog; cannot fail
		}
		english = c.Default()
	})
	return english
}

// Preferences turns “th-TH,en;q=0.8” into base tags ordered by q, highest
// first, ties keeping header order: ["th", "en"].  A malformed header yields
// no preferences.
func Preferences(acceptLanguage string) []string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil {
		return []string{}
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		base, conf := tag.Base()
		if conf != language.Exact || base.String() == "mul" { // “*” and guesses
			continue
		}
		out = append(out, base.String())
	}
	return out
}
