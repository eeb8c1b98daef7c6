// internal/form/validate.go
//
// Forms subsystem: field validation.
//
// Context
//   FieldDef rules are translated into go-playground/validator tags and
//   checked with Var, so the form schema and the config loader share one
//   validation engine.  Failures come back as FieldError values carrying a
//   Kind and the field's message key; callers localize the key before
//   showing it.
//
//   Values are checked as typed.  Nothing is trimmed, and lengths count
//   runes rather than bytes.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind classifies a FieldError.
type Kind string

const (
	KindRequired Kind = "required"  // empty where a value is mandatory
	KindTooShort Kind = "too_short" // fewer runes than minlength
	KindTooLong  Kind = "too_long"  // more runes than maxlength
	KindInvalid  Kind = "invalid"   // failed a type check (email)
	KindManual   Kind = "manual"    // attached by code after a backend response
)

// FieldError describes a single failure so the template can render a
// field-level message.  Key is the i18n key; Message is display text and may
// be empty until a caller localizes Key.
type FieldError struct {
	Field   string
	Kind    Kind
	Key     string
	Message string
}

var v = validator.New()

// ValidateField checks value against f.  It returns nil when the value
// passes every rule.
func ValidateField(f *FieldDef, value string) *FieldError {
	tag := ruleTag(f)
	if tag == "" {
		return nil
	}
	err := v.Var(value, tag)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &FieldError{Field: f.Name, Kind: KindInvalid, Key: f.ErrorKey}
	}
	return &FieldError{Field: f.Name, Kind: kindFor(verrs[0].Tag()), Key: f.ErrorKey}
}

// ruleTag builds the validator tag for f, e.g. “required,min=1”.
func ruleTag(f *FieldDef) string {
	var rules []string
	if f.Required {
		rules = append(rules, "required")
	}
	if f.MinLength > 0 {
		rules = append(rules, "min="+strconv.Itoa(f.MinLength))
	}
	if f.MaxLength > 0 {
		rules = append(rules, "max="+strconv.Itoa(f.MaxLength))
	}
	if f.Type == "email" {
		rules = append(rules, "email")
	}
	return strings.Join(rules, ",")
}

func kindFor(tag string) Kind {
	switch tag {
	case "required":
		return KindRequired
	case "min":
		return KindTooShort
	case "max":
		return KindTooLong
	default:
		return KindInvalid
	}
}
