// Package signature derives a human display name from a raw email address
// string. The derivation is pure and total: every input yields a name, no
// input produces an error.
package signature

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fallback is returned for empty or unparsable input.
const Fallback = "Hello"

var titleCaser = cases.Title(language.English)

// Extract returns a display name for the given raw address.
//
// "John Doe <john@example.com>" yields "John Doe", "john.doe@company.com"
// yields "John Doe", "john@company.com" yields "John". Local parts are split
// on '.', '_' and '-' and at most the first two tokens are used.
func Extract(rawAddress string) string {
	raw := strings.TrimSpace(rawAddress)
	if raw == "" {
		return Fallback
	}

	// "Display Name <addr>" form: the display name wins.
	if idx := strings.Index(raw, "<"); idx > 0 {
		name := strings.Trim(strings.TrimSpace(raw[:idx]), `"`)
		if name != "" {
			return titleIfLower(name)
		}
	}

	addr := raw
	if start := strings.Index(raw, "<"); start >= 0 {
		addr = raw[start+1:]
		if end := strings.Index(addr, ">"); end >= 0 {
			addr = addr[:end]
		}
	}

	local := addr
	if at := strings.Index(addr, "@"); at >= 0 {
		local = addr[:at]
	}

	tokens := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	if len(tokens) == 0 {
		return Fallback
	}
	if len(tokens) > 2 {
		tokens = tokens[:2]
	}

	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		parts = append(parts, titleCaser.String(tok))
	}
	return strings.Join(parts, " ")
}

// titleIfLower title-cases a name only when it carries no casing of its own,
// so "ACME Billing" and "John Doe" pass through untouched.
func titleIfLower(name string) string {
	if name == strings.ToLower(name) {
		return titleCaser.String(name)
	}
	return name
}
