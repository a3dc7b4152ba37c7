// Package refcode generates and recognizes the short payment reference codes
// customers put in their bank-transfer memo. A generated code looks like
// PAY_7XK2M9QD: a fixed prefix plus eight characters from an alphabet without
// visually ambiguous glyphs, so a teller or a customer can retype it
// reliably.
package refcode

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

const (
	// Prefix marks a string as one of our codes.
	Prefix = "PAY_"

	// alphabet excludes 0/O, 1/I and L to keep codes human-typable.
	alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	generatedBodyLen = 8

	// Validation accepts a length window rather than the exact generated
	// length so that codes minted before the body length changed still
	// match.
	minBodyLen = 6
	maxBodyLen = 10
)

// codePattern finds candidate codes in free text. Gateways mangle case and
// sometimes drop the underscore, so both forms are recognized. The leading
// word boundary keeps substrings like ZALOPAY from producing false hits.
var codePattern = regexp.MustCompile(`(?i)\bPAY[\s_-]?([A-Z0-9]{6,10})\b`)

// Generator produces collision-resistant reference codes. Uniqueness against
// currently open payments is enforced by the database constraint; callers
// re-roll on conflict.
type Generator struct{}

// NewGenerator creates a new code generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns a fresh reference code. It never blocks; crypto/rand on
// supported platforms reads a non-blocking source.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, generatedBodyLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	var sb strings.Builder
	sb.Grow(len(Prefix) + generatedBodyLen)
	sb.WriteString(Prefix)
	for _, b := range buf {
		sb.WriteByte(alphabet[int(b)%len(alphabet)])
	}
	return sb.String(), nil
}

// IsWellFormed reports whether s plausibly is one of our codes: the fixed
// prefix followed by an uppercase alphanumeric body within the accepted
// length window. It is a pure shape check and never touches storage; use it
// to reject irrelevant transaction text before a lookup.
func (g *Generator) IsWellFormed(s string) bool {
	if !strings.HasPrefix(s, Prefix) {
		return false
	}
	body := s[len(Prefix):]
	if len(body) < minBodyLen || len(body) > maxBodyLen {
		return false
	}
	for i := 0; i < len(body); i++ {
		c := body[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// Extract scans free text for candidate reference codes and returns them in
// canonical form, in order of occurrence. "pay_ab12cd" and "PAY AB12CD" both
// resolve to "PAY_AB12CD".
func (g *Generator) Extract(text string) []string {
	matches := codePattern.FindAllStringSubmatch(text, -1)
	var out []string
	for _, m := range matches {
		candidate := Prefix + strings.ToUpper(m[1])
		if g.IsWellFormed(candidate) {
			out = append(out, candidate)
		}
	}
	return out
}
