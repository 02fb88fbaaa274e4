package digest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbooks/ledger/internal/ledger"
)

func sampleEntry() ledger.JournalEntry {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	acc1 := uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")
	acc2 := uuid.MustParse("6ba7b812-9dad-11d1-80b4-00c04fd430c8")
	return ledger.JournalEntry{
		ID:           id,
		Date:         time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
		Description:  "invoice F001-123",
		Currency:     "PEN",
		ExchangeRate: decimal.NewFromInt(1),
		Origin:       ledger.OriginManual,
		Status:       ledger.StatusDraft,
		Lines: []ledger.EntryLine{
			{AccountID: acc1, Debit: decimal.RequireFromString("118.00"), Credit: decimal.Zero},
			{AccountID: acc2, Debit: decimal.Zero, Credit: decimal.RequireFromString("118.00")},
		},
	}
}

func TestComputeStable(t *testing.T) {
	e := sampleEntry()
	first := Compute(e)
	require.NotEmpty(t, first)
	assert.Equal(t, first, Compute(e))

	// Line order must not matter.
	e.Lines[0], e.Lines[1] = e.Lines[1], e.Lines[0]
	assert.Equal(t, first, Compute(e))
}

func TestComputeSensitivity(t *testing.T) {
	base := Compute(sampleEntry())

	e := sampleEntry()
	e.Description = "invoice F001-124"
	assert.NotEqual(t, base, Compute(e))

	e = sampleEntry()
	e.Status = ledger.StatusPosted
	assert.NotEqual(t, base, Compute(e))

	e = sampleEntry()
	e.Lines[0].Debit = decimal.RequireFromString("118.01")
	assert.NotEqual(t, base, Compute(e))
}

func TestVerify(t *testing.T) {
	e := sampleEntry()
	e.IntegrityHash = Compute(e)
	assert.True(t, Verify(e))

	e.Lines[1].Credit = decimal.RequireFromString("117.99")
	assert.False(t, Verify(e))

	e.IntegrityHash = ""
	assert.False(t, Verify(e))
}
