package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/jwlutz/thats-my-quantv1/portfolio"
)

// CSVJournal writes transactions and equity points to two CSV files.
type CSVJournal struct {
	transactions *csv.Writer
	equity       *csv.Writer
	tf, ef       *os.File
}

func NewCSV(transactionsPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(transactionsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	if err := tw.Write([]string{"txn_id", "roundtrip_id", "ticker", "date", "kind", "shares", "price", "net_amount", "reason"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"date", "value"}); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{tw, ew, tf, ef}, nil
}

func (j *CSVJournal) RecordTransaction(t portfolio.Transaction) error {
	err := j.transactions.Write([]string{
		t.ID,
		t.RoundTripID,
		t.Ticker,
		t.Date.Format(time.DateOnly),
		string(t.Kind),
		f(t.Shares),
		f(t.Price),
		f(t.NetAmount),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.transactions.Flush()
	return j.transactions.Error()
}

func (j *CSVJournal) RecordEquity(e portfolio.EquityPoint) error {
	err := j.equity.Write([]string{
		e.Date.Format(time.DateOnly),
		f(e.Value),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	j.transactions.Flush()
	if err := j.transactions.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
