// Package ident turns externally supplied tool names into identifiers that
// every model provider accepts as a function name.
//
// MCP servers are free to name their tools "notion.search", "get-page" or
// "123lookup". Most function-calling APIs reject such names, so the MCP host
// rewrites each name once at discovery time with [Sanitize] and keeps the
// original name for the wire call.
package ident

import "strings"

// Sanitize maps every rune that is not an ASCII letter, ASCII digit, or
// underscore to a single underscore. A leading digit is replaced as well.
// Adjacent disallowed runes produce adjacent underscores.
//
// Sanitize never fails. The empty string maps to the empty string, which is
// not itself a valid identifier. Distinct inputs may map to the same output;
// callers that key on the result must decide how to treat collisions.
func Sanitize(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	first := true
	for _, r := range name {
		switch {
		case first && isDigit(r):
			sb.WriteByte('_')
		case isLetter(r), isDigit(r), r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
		first = false
	}
	return sb.String()
}

// IsValid reports whether name matches ^[A-Za-z_][A-Za-z0-9_]*$.
func IsValid(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case isLetter(r), r == '_':
		case isDigit(r) && i > 0:
		default:
			return false
		}
	}
	return true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
