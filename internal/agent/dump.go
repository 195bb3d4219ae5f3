package agent

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type dumpRow struct {
	symbol string
	rating float64
	price  decimal.Decimal
	size   decimal.Decimal
}

// CsvRatingsDump writes the picks of every cycle as
// date,symbol,rating,price,size rows. Size is a share count for backtests and
// a dollar amount for live runs.
type CsvRatingsDump struct {
	w           *csv.Writer
	writeHeader bool
}

func NewCsvRatingsDump(w io.Writer) *CsvRatingsDump {
	return &CsvRatingsDump{csv.NewWriter(w), true}
}

func (d *CsvRatingsDump) ObserveDay(r DayResult) error {
	rows := make([]dumpRow, len(r.Plan))
	for i, a := range r.Plan {
		rows[i] = dumpRow{symbol: a.Symbol, rating: a.Rating, price: a.Price, size: decimal.NewFromInt(a.Shares)}
	}
	return d.dump(r.Day, rows)
}

func (d *CsvRatingsDump) dump(day time.Time, rows []dumpRow) error {
	if d.writeHeader {
		if err := d.w.Write([]string{"date", "symbol", "rating", "price", "size"}); err != nil {
			return fmt.Errorf("failed to write ratings dump csv header: %w", err)
		}
		d.writeHeader = false
	}

	date := day.Format(time.DateOnly)
	for _, r := range rows {
		err := d.w.Write([]string{
			date,
			r.symbol,
			strconv.FormatFloat(r.rating, 'f', -1, 64),
			r.price.String(),
			r.size.String()})

		if err != nil {
			return fmt.Errorf("failed to dump rating of %s: %w", r.symbol, err)
		}
	}

	d.w.Flush()
	return d.w.Error()
}
