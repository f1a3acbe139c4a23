// Package sanitizer normalizes user-supplied identifiers before they are used
// for lookups, so that cosmetic variations of the same address cannot split
// one user across two accounts.
package sanitizer

import (
	"regexp"
	"strings"
)

var dotRun = regexp.MustCompile(`\.+`)

// NormalizeEmail lowercases and trims an email address and consolidates
// consecutive dots in the local part. Strings that are not shaped like an
// email are returned lowercased but otherwise untouched.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))

	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return email
	}

	local = dotRun.ReplaceAllString(local, ".")
	local = strings.Trim(local, ".")

	return local + "@" + domain
}

// MaskEmail hides the local part of an address for log output while keeping
// the domain recognizable.
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return email
	}
	if len(local) == 1 {
		return "*@" + domain
	}
	return local[:1] + strings.Repeat("*", len(local)-1) + "@" + domain
}
