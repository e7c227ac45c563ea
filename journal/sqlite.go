package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jwlutz/thats-my-quantv1/portfolio"
)

// SQLite stores the transaction log and equity curve in a SQLite database,
// which keeps whole runs queryable after the fact.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTransaction(t portfolio.Transaction) error {
	_, err := j.db.Exec(`
		INSERT INTO transactions
		(txn_id, roundtrip_id, ticker, date, kind, shares, price, net_amount, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.RoundTripID, t.Ticker, t.Date, string(t.Kind),
		t.Shares, t.Price, t.NetAmount, t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e portfolio.EquityPoint) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (date, value) VALUES (?, ?)`,
		e.Date, e.Value,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
