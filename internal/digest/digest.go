// Package digest fingerprints journal entries so out-of-band tampering with
// posted financial fact can be detected. The digest is recomputed and stored on
// every state change; a mismatch is surfaced, never auto-corrected.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/openbooks/ledger/internal/ledger"
)

// Compute hashes a canonical rendering of the entry: header fields plus every
// line's (account id, debit, credit) sorted by a stable key. Lifecycle fields
// that legitimately change (status, correlative linkage timestamps) are part of
// the canonical string exactly as the current state declares them, so each
// state transition produces a fresh digest.
func Compute(e ledger.JournalEntry) string {
	parts := []string{
		e.ID.String(),
		e.Date.UTC().Format(time.RFC3339),
		e.Description,
		string(e.Status),
		string(e.Origin),
		e.Currency,
		e.ExchangeRate.StringFixed(6),
	}

	lines := make([]string, 0, len(e.Lines))
	for _, ln := range e.Lines {
		lines = append(lines, ln.AccountID.String()+":"+ln.Debit.StringFixed(2)+":"+ln.Credit.StringFixed(2))
	}
	sort.Strings(lines)
	parts = append(parts, lines...)

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the digest and compares it with the stored hash.
func Verify(e ledger.JournalEntry) bool {
	return e.IntegrityHash != "" && e.IntegrityHash == Compute(e)
}
