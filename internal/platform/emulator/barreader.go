package emulator

import (
	"bufio"
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/gamma-omg/rating-bot/internal/market"
	"github.com/shopspring/decimal"
)

const csvColumns = 6

type barReader struct {
	rdr *csv.Reader
}

func newBarReader(r io.Reader) *barReader {
	rdr := csv.NewReader(bufio.NewReader(r))
	rdr.FieldsPerRecord = csvColumns
	rdr.ReuseRecord = true

	return &barReader{rdr: rdr}
}

// readSeriesFile loads a timestamp,open,high,low,close,volume csv file.
func readSeriesFile(path string) (market.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open bar data: %w", err)
	}
	defer f.Close()

	return newBarReader(f).Read()
}

// Read returns every bar of the stream ordered from oldest to newest.
func (b *barReader) Read() (market.Series, error) {
	if _, err := b.rdr.Read(); err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	var bars market.Series
	for {
		data, err := b.rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read bar data: %w", err)
		}

		bar, err := parseBar(data)
		if err != nil {
			line, _ := b.rdr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	slices.SortStableFunc(bars, func(a, b market.Bar) int {
		return cmp.Compare(a.Time.UnixNano(), b.Time.UnixNano())
	})
	return bars, nil
}

func parseBar(data []string) (market.Bar, error) {
	timestamp, err := strconv.ParseFloat(data[0], 64)
	if err != nil {
		return market.Bar{}, fmt.Errorf("failed to parse bar time: %w", err)
	}

	var fields [5]decimal.Decimal
	names := [5]string{"open", "high", "low", "close", "volume"}
	for i := range fields {
		fields[i], err = decimal.NewFromString(data[i+1])
		if err != nil {
			return market.Bar{}, fmt.Errorf("failed to read %s: %w", names[i], err)
		}
	}

	return market.Bar{
		Time:   time.Unix(int64(timestamp), 0),
		Open:   fields[0],
		High:   fields[1],
		Low:    fields[2],
		Close:  fields[3],
		Volume: fields[4],
	}, nil
}
