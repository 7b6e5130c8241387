// Package rules holds the textual matchers and lookup tables that drive
// shaping, auditing and cleaning of OSM records.
package rules

import (
	"regexp"
)

var (
	lowerRe          = regexp.MustCompile(`^[a-z_]*$`)
	lowerColonRe     = regexp.MustCompile(`^[a-z_]*:[a-z_]*$`)
	problemCharsRe   = regexp.MustCompile(`[=+/&<>;'"?%#$@,. \t\r\n]`)
	digitsRe         = regexp.MustCompile(`^[0-9]+$`)
	containsDigitsRe = regexp.MustCompile(`[0-9]+`)
	postcodeRe       = regexp.MustCompile(`^V[0-9][A-Z] [0-9][A-Z][0-9]$`)
	postcodeLooseRe  = regexp.MustCompile(`^V[0-9][A-Z]\s?[0-9][A-Z][0-9]$`)
	lowerFirstRe     = regexp.MustCompile(`^[a-z]`)
	streetSuffixRe   = regexp.MustCompile(`(?i)\b\S+\.?$`)
)

// IsWellFormedKey reports whether s is made only of lowercase letters and
// underscores. The empty string is well formed.
func IsWellFormedKey(s string) bool {
	return lowerRe.MatchString(s)
}

// IsNamespacedKey reports whether s has the lowercase "prefix:name" form.
func IsNamespacedKey(s string) bool {
	return lowerColonRe.MatchString(s)
}

// HasProblemChar reports whether s contains a character that is not
// allowed in a record key.
func HasProblemChar(s string) bool {
	return problemCharsRe.MatchString(s)
}

// IsDigitsOnly reports whether s is a non-empty run of ASCII digits.
func IsDigitsOnly(s string) bool {
	return digitsRe.MatchString(s)
}

// IsLowercase reports whether s is made only of lowercase letters and
// underscores, the shape of an uncapitalized single-word city.
func IsLowercase(s string) bool {
	return lowerRe.MatchString(s)
}

// IsPostcode reports whether s is a BC postal code in the strict
// "V#L #L#" form.
func IsPostcode(s string) bool {
	return postcodeRe.MatchString(s)
}

// IsPostcodeRelaxed is IsPostcode with the separating space optional.
func IsPostcodeRelaxed(s string) bool {
	return postcodeLooseRe.MatchString(s)
}

// StartsLowercase reports whether the first byte of s is a lowercase
// ASCII letter.
func StartsLowercase(s string) bool {
	return lowerFirstRe.MatchString(s)
}

// StreetSuffix returns the trailing token of a street name, e.g. "Ave."
// for "Main Ave.". The token must start at a word boundary.
func StreetSuffix(s string) (string, bool) {
	loc := streetSuffixRe.FindStringIndex(s)
	if loc == nil {
		return "", false
	}
	return s[loc[0]:loc[1]], true
}

// ReplaceStreetSuffix swaps the trailing token found by StreetSuffix for
// repl. Only the trailing occurrence is rewritten.
func ReplaceStreetSuffix(s, repl string) string {
	loc := streetSuffixRe.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl
}

// FirstDigits returns the first run of digits in s.
func FirstDigits(s string) (string, bool) {
	m := containsDigitsRe.FindString(s)
	return m, m != ""
}

// IsASCII reports whether every byte of s is 7-bit ASCII.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
