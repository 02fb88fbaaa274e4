// Package sequence numbers journal entries with gap-free, human-readable
// correlatives of the form "CC-MM-NNNNN": a 2-digit category series code, the
// entry month, and a zero-padded ordinal restarting at 1 for every
// (tenant, category, month).
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openbooks/ledger/internal/dictionary"
	"github.com/openbooks/ledger/internal/errs"
	"github.com/openbooks/ledger/internal/ledger"
)

// MaxOrdinal is the largest ordinal a monthly series can hold.
const MaxOrdinal = 99999

// Locker is the slice of a store transaction the generator needs. The returned
// correlative must be read under an exclusive series lock held until the
// enclosing transaction commits or rolls back, so concurrent generators for
// the same series serialize on it, first insert included.
type Locker interface {
	// LockMaxCorrelative locks the (tenant, prefix) series and returns its
	// highest correlative. ok is false when the series is still empty.
	LockMaxCorrelative(ctx context.Context, tenantID uuid.UUID, prefix string) (correlative string, ok bool, err error)
}

// Format renders a correlative from its series prefix and ordinal.
func Format(prefix string, ordinal int) string {
	return fmt.Sprintf("%s%05d", prefix, ordinal)
}

// Parse splits a correlative into series code, month and ordinal.
func Parse(correlative string) (categoryCode string, month int, ordinal int, err error) {
	parts := strings.SplitN(correlative, "-", 3)
	if len(parts) != 3 || len(parts[0]) != 2 || len(parts[1]) != 2 || len(parts[2]) != 5 {
		return "", 0, 0, fmt.Errorf("sequence: malformed correlative %q", correlative)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return "", 0, 0, fmt.Errorf("sequence: bad month in correlative %q", correlative)
	}
	ordinal, err = strconv.Atoi(parts[2])
	if err != nil || ordinal < 1 {
		return "", 0, 0, fmt.Errorf("sequence: bad ordinal in correlative %q", correlative)
	}
	return parts[0], month, ordinal, nil
}

// Prefix returns the series prefix ("CC-MM-") for a category and date.
func Prefix(cat ledger.EventCategory, date time.Time) (string, error) {
	code, ok := dictionary.CategoryCode(cat)
	if !ok {
		return "", errs.ErrInvalid
	}
	return fmt.Sprintf("%s-%02d-", code, int(date.Month())), nil
}

// Next computes the next correlative for (tenant, category, month of date)
// inside the caller's transaction. The read-increment is covered by the series
// lock taken in tx, so N concurrent callers observe the ordinals 1..N with no
// gaps and no duplicates.
func Next(ctx context.Context, tx Locker, tenantID uuid.UUID, cat ledger.EventCategory, date time.Time) (string, error) {
	prefix, err := Prefix(cat, date)
	if err != nil {
		return "", fmt.Errorf("sequence: no series code for category %q: %w", cat, err)
	}

	max, found, err := tx.LockMaxCorrelative(ctx, tenantID, prefix)
	if err != nil {
		return "", fmt.Errorf("sequence: lock series %s: %w", prefix, err)
	}
	ordinal := 1
	if found {
		_, _, prev, err := Parse(max)
		if err != nil {
			return "", err
		}
		ordinal = prev + 1
	}
	if ordinal > MaxOrdinal {
		return "", fmt.Errorf("sequence: series %s exhausted", prefix)
	}
	return Format(prefix, ordinal), nil
}
