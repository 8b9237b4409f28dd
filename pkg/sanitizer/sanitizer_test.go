package sanitizer

import (
	"reflect"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Asha   Rao  ", "Asha Rao"},
		{"Asha\tRao", "Asha Rao"},
		{"Asha Rao", "Asha Rao"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeEmail(t *testing.T) {
	if got := SanitizeEmail("  Asha.Rao@Example.COM "); got != "asha.rao@example.com" {
		t.Errorf("unexpected email: %q", got)
	}
}

func TestSanitizePhone(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"indian without country code", "98765 00000", "+919876500000"},
		{"indian with country code", "+91 98765 00000", "+919876500000"},
		{"us with country code", "+1 415 555 2671", "+14155552671"},
		{"unparseable kept trimmed", "  front desk  ", "front desk"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizePhone(tc.in); got != tc.want {
				t.Errorf("SanitizePhone(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeStringSlice(t *testing.T) {
	in := []string{" Breakfast ", "Breakfast", "", "Airport  transfer"}
	got := SanitizeStringSlice(in, SanitizeName)
	want := []string{"Breakfast", "Airport transfer"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SanitizeStringSlice = %v, want %v", got, want)
	}
}
