// Package slug normalizes the upper-snake keys used for event types and role
// tags ("SALE", "CASH_RECEIPT_TILL").
package slug

import (
	"regexp"
	"strings"
)

var reKey = regexp.MustCompile(`^[A-Z0-9_]{2,40}$`)

// IsKey returns true if s matches ^[A-Z0-9_]{2,40}$
func IsKey(s string) bool {
	return reKey.MatchString(s)
}

// Keyify converts s to a key: uppercase, non [A-Z0-9_] -> '_', collapse repeats,
// trim to 40, and trim leading/trailing '_'.
func Keyify(s string) string {
	if s == "" {
		return s
	}
	out := make([]rune, 0, len(s))
	prevUnderscore := false
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			if r == '_' {
				if prevUnderscore {
					continue
				}
				prevUnderscore = true
			} else {
				prevUnderscore = false
			}
			out = append(out, r)
		} else {
			if !prevUnderscore {
				out = append(out, '_')
				prevUnderscore = true
			}
		}
		if len(out) >= 40 {
			break
		}
	}
	return strings.Trim(string(out), "_")
}
