// Package sanitizer normalizes free-text input before validation and
// persistence. Strategies are composable so each field type declares
// its own pipeline.
package sanitizer

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reCollapseSpaces = regexp.MustCompile(`\s+`)

	// Phone regions tried in order when a number has no country code.
	supportedRegions = []string{
		"IN",
		"US",
	}
)

func trim(s string) string {
	return strings.TrimSpace(s)
}

func collapseSpaces(s string) string {
	return reCollapseSpaces.ReplaceAllString(s, " ")
}

// SanitizeName normalizes a person name: trimmed, single-spaced.
// Case is preserved since names render back to the customer.
func SanitizeName(input string) string {
	p := Pipeline{
		trim,
		collapseSpaces,
	}
	return p.Apply(input)
}

// SanitizeCity normalizes a city or destination label.
func SanitizeCity(input string) string {
	p := Pipeline{
		trim,
		collapseSpaces,
	}
	return p.Apply(input)
}

// SanitizeEmail lowercases and trims an email address.
func SanitizeEmail(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// SanitizePhone formats a phone number to E.164 when it parses under a
// supported region. Unparseable input is returned trimmed so that
// validation, not sanitization, decides whether to reject it.
func SanitizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	for _, region := range supportedRegions {
		parsed, err := phonenumbers.Parse(phone, region)
		if err != nil {
			continue
		}
		if phonenumbers.IsValidNumber(parsed) {
			return phonenumbers.Format(parsed, phonenumbers.E164)
		}
	}
	return phone
}

// SanitizeStringSlice applies a strategy to each element, dropping
// empties and duplicates while preserving order. Used for inclusion
// and exclusion lists.
func SanitizeStringSlice(values []string, strategy Strategy) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, v := range values {
		s := strategy(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
