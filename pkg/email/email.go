// Package email validates member addresses and derives the placeholder
// addresses some import feeds need when a member has no email on file.
package email

import (
	"regexp"
	"strings"
)

// PlaceholderDomain is reserved (RFC 2606) so placeholders can never be delivered.
const PlaceholderDomain = "noemail.invalid"

var permissive = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Normalize trims and lowercases an address.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// IsValid applies a permissive shape check: something@something.tld.
func IsValid(addr string) bool {
	return permissive.MatchString(strings.TrimSpace(addr))
}

// IsPlaceholder reports whether addr was produced by Placeholder.
func IsPlaceholder(addr string) bool {
	return strings.HasSuffix(Normalize(addr), "@"+PlaceholderDomain)
}

// Placeholder derives a deterministic, undeliverable address from the mobile
// number's digits, falling back to the membership number.
func Placeholder(mobile, membershipNumber string) string {
	if digits := Digits(mobile); digits != "" {
		return digits + "@" + PlaceholderDomain
	}
	local := strings.ToLower(strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, membershipNumber))
	if local == "" {
		local = "member"
	}
	return local + "@" + PlaceholderDomain
}

// Digits keeps only ASCII digits.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
