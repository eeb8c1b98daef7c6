package i18n

import (
	"reflect"
	"testing"
)

func TestPreferences(t *testing.T) {
	cases := []struct {
		header string
		want   []string
	}{
		{"", []string{}},
		{"th-TH,en;q=0.8", []string{"th", "en"}},
		{"en;q=0.5, th;q=0.9", []string{"th", "en"}},
		{"fr, en-GB;q=0.7, *;q=0.1", []string{"fr", "en"}},
		{"de;q=0", []string{}},
	}
	for _, tc := range cases {
		got := Preferences(tc.header)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Preferences(%q) = %v, want %v", tc.header, got, tc.want)
		}
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	c, err := New("th")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := c.Resolve("fr-FR").Locale(); got != "th" {
		t.Fatalf("locale = %q, want th", got)
	}
	if got := c.Resolve("en-US,th;q=0.5").T(KeyPasswordRequired); got != "please enter your password" {
		t.Fatalf("en message = %q", got)
	}
	if got := c.Default().T(KeyUsernameInvalid); got != "กรุณากรอกชื่อผู้ใช้งานให้ถูกต้อง" {
		t.Fatalf("th message = %q", got)
	}
}

func TestUnknownKeyReturnsKey(t *testing.T) {
	if got := English().T("no.such.key"); got != "no.such.key" {
		t.Fatalf("T = %q, want key echoed", got)
	}
}

func TestNewRejectsUnsupportedLocale(t *testing.T) {
	if _, err := New("fr"); err == nil {
		t.Fatal("expected error for unsupported locale")
	}
}
