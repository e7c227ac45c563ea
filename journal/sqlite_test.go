package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwlutz/thats-my-quantv1/portfolio"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestSQLiteTransactionRoundTrip(t *testing.T) {
	j := newTestSQLite(t)

	txn := sampleTxn()
	require.NoError(t, j.RecordTransaction(txn))

	got, err := j.GetTransaction(txn.ID)
	require.NoError(t, err)

	assert.Equal(t, txn.ID, got.ID)
	assert.Equal(t, txn.RoundTripID, got.RoundTripID)
	assert.Equal(t, txn.Ticker, got.Ticker)
	assert.Equal(t, portfolio.KindOpen, got.Kind)
	assert.Equal(t, txn.Shares, got.Shares)
	assert.Equal(t, txn.Price, got.Price)
	assert.Equal(t, txn.NetAmount, got.NetAmount)
	assert.Equal(t, txn.Reason, got.Reason)
	assert.True(t, got.Date.Equal(txn.Date))
}

func TestSQLiteGetTransactionMissing(t *testing.T) {
	j := newTestSQLite(t)

	_, err := j.GetTransaction("nope")
	assert.Error(t, err)
}

func TestSQLiteListByRoundTrip(t *testing.T) {
	j := newTestSQLite(t)

	open := sampleTxn()
	closeTxn := sampleTxn()
	closeTxn.ID = "01J1TXN" // sorts after the open
	closeTxn.Kind = portfolio.KindClose
	closeTxn.Date = day(2024, 1, 20)
	closeTxn.NetAmount = 5500

	other := sampleTxn()
	other.ID = "01J2TXN"
	other.RoundTripID = "01J9RT"

	for _, txn := range []portfolio.Transaction{closeTxn, open, other} {
		require.NoError(t, j.RecordTransaction(txn))
	}

	got, err := j.ListTransactionsByRoundTrip(open.RoundTripID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, open.ID, got[0].ID)
	assert.Equal(t, closeTxn.ID, got[1].ID)
}

func TestSQLiteDuplicateTransactionID(t *testing.T) {
	j := newTestSQLite(t)

	require.NoError(t, j.RecordTransaction(sampleTxn()))
	assert.Error(t, j.RecordTransaction(sampleTxn()))
}

func TestSQLiteListEquityBetween(t *testing.T) {
	j := newTestSQLite(t)

	for i, v := range []float64{100000, 100500, 99800, 101200} {
		require.NoError(t, j.RecordEquity(portfolio.EquityPoint{
			Date: day(2024, 1, 2+i), Value: v,
		}))
	}

	// Half-open interval: the Jan 5 point is excluded.
	got, err := j.ListEquityBetween(day(2024, 1, 3), day(2024, 1, 5))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 100500.0, got[0].Value)
	assert.Equal(t, 99800.0, got[1].Value)

	got, err = j.ListEquityBetween(day(2024, 2, 1), day(2024, 3, 1))
	require.NoError(t, err)
	assert.Empty(t, got)
}
