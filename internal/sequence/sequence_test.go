package sequence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbooks/ledger/internal/ledger"
)

func TestFormatParseRoundtrip(t *testing.T) {
	prefix, err := Prefix(ledger.CategorySale, time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "01-08-", prefix)

	c := Format(prefix, 42)
	assert.Equal(t, "01-08-00042", c)

	code, month, ordinal, err := Parse(c)
	require.NoError(t, err)
	assert.Equal(t, "01", code)
	assert.Equal(t, 8, month)
	assert.Equal(t, 42, ordinal)
}

func TestPrefixUnknownCategory(t *testing.T) {
	_, err := Prefix(ledger.EventCategory("bogus"), time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"", "01-08", "1-08-00042", "01-13-00001", "01-08-0001", "01-08-abcde", "01-08-00000"} {
		_, _, _, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

type fakeLocker struct {
	max string
}

func (f *fakeLocker) LockMaxCorrelative(_ context.Context, _ uuid.UUID, _ string) (string, bool, error) {
	return f.max, f.max != "", nil
}

func TestNext(t *testing.T) {
	tenant := uuid.New()
	date := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)

	// Empty series starts at 1.
	c, err := Next(context.Background(), &fakeLocker{}, tenant, ledger.CategorySale, date)
	require.NoError(t, err)
	assert.Equal(t, "01-08-00001", c)

	// Increments the current maximum.
	c, err = Next(context.Background(), &fakeLocker{max: "01-08-00041"}, tenant, ledger.CategorySale, date)
	require.NoError(t, err)
	assert.Equal(t, "01-08-00042", c)

	// Exhausted series.
	_, err = Next(context.Background(), &fakeLocker{max: "01-08-99999"}, tenant, ledger.CategorySale, date)
	assert.Error(t, err)

	// Unknown category.
	_, err = Next(context.Background(), &fakeLocker{}, tenant, ledger.EventCategory("bogus"), date)
	assert.Error(t, err)
}
