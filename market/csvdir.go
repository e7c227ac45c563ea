package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CSVProvider loads daily bars from a directory of per-ticker CSV files.
//
// Each file is named TICKER.csv with rows:
//
//	date,open,high,low,close,volume
//
// where date is yyyy-mm-dd. A header row ("date,...") is allowed.
// Empty/short rows are skipped. Everything is loaded up front so the
// simulation loop never touches the filesystem.
type CSVProvider struct {
	*MemoryProvider
}

// NewCSVProvider reads every *.csv file in dir.
func NewCSVProvider(dir string) (*CSVProvider, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no csv files in %q", dir)
	}

	p := &CSVProvider{MemoryProvider: NewMemoryProvider()}
	for _, path := range paths {
		ticker := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), ".csv"))
		if err := p.loadFile(ticker, path); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return p, nil
}

func (p *CSVProvider) loadFile(ticker, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	sawFirst := false
	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		// Allow a single header row
		if !sawFirst {
			sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "date") {
				continue
			}
		}

		day, bar, ok, err := parseBarRow(row)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		p.SetBar(ticker, day, bar)
	}
}

func parseBarRow(row []string) (time.Time, Bar, bool, error) {
	// Need at least: date,open,high,low,close
	if len(row) < 5 {
		return time.Time{}, Bar{}, false, nil
	}

	ds := strings.TrimSpace(row[0])
	if ds == "" {
		return time.Time{}, Bar{}, false, nil
	}
	day, err := time.ParseInLocation("2006-01-02", ds, time.UTC)
	if err != nil {
		return time.Time{}, Bar{}, false, fmt.Errorf("bad date %q: %w", ds, err)
	}

	vals := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return time.Time{}, Bar{}, false, fmt.Errorf("bad value %q: %w", row[i+1], err)
		}
		vals[i] = v
	}

	bar := Bar{Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]}
	if len(row) > 5 {
		if vol, err := strconv.ParseFloat(strings.TrimSpace(row[5]), 64); err == nil {
			bar.Volume = vol
		}
	}
	return day, bar, true, nil
}
