package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jwlutz/thats-my-quantv1/portfolio"
)

// GetTransaction returns a single logged transaction by ID.
func (j *SQLite) GetTransaction(txnID string) (portfolio.Transaction, error) {
	row := j.db.QueryRow(`
		SELECT txn_id, roundtrip_id, ticker, date, kind, shares, price, net_amount, reason
		FROM transactions
		WHERE txn_id = ?`, txnID)

	rec, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return portfolio.Transaction{}, fmt.Errorf("transaction %q not found", txnID)
		}
		return portfolio.Transaction{}, err
	}
	return rec, nil
}

// ListTransactionsByRoundTrip returns a roundtrip's transactions in ID
// order, which for ULIDs is creation order.
func (j *SQLite) ListTransactionsByRoundTrip(rtID string) ([]portfolio.Transaction, error) {
	rows, err := j.db.Query(`
		SELECT txn_id, roundtrip_id, ticker, date, kind, shares, price, net_amount, reason
		FROM transactions
		WHERE roundtrip_id = ?
		ORDER BY txn_id ASC`, rtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []portfolio.Transaction
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListEquityBetween returns equity points with date within [start, end).
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]portfolio.EquityPoint, error) {
	rows, err := j.db.Query(`
		SELECT date, value
		FROM equity
		WHERE date >= ? AND date < ?
		ORDER BY date ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []portfolio.EquityPoint
	for rows.Next() {
		var pt portfolio.EquityPoint
		if err := rows.Scan(&pt.Date, &pt.Value); err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (portfolio.Transaction, error) {
	var rec portfolio.Transaction
	var kind string
	err := row.Scan(
		&rec.ID,
		&rec.RoundTripID,
		&rec.Ticker,
		&rec.Date,
		&kind,
		&rec.Shares,
		&rec.Price,
		&rec.NetAmount,
		&rec.Reason,
	)
	if err != nil {
		return portfolio.Transaction{}, err
	}
	rec.Kind = portfolio.Kind(kind)
	return rec, nil
}
