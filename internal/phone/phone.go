// Package phone canonicalizes phone numbers to one comparable form.
//
// Every lookup or equality check involving a phone number anywhere in
// the system must pass both sides through Normalize first; raw provider
// strings are never used as keys.
package phone

import "strings"

// Normalize trims whitespace and ensures the international "+" prefix.
// Empty input maps to empty output. Pure function.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "+") {
		s = "+" + s
	}
	return s
}
