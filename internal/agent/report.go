package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type JsonReportBuilder struct {
	log    *slog.Logger
	report JsonReport
	start  decimal.Decimal
	end    decimal.Decimal
	mu     sync.Mutex
}

type JsonReport struct {
	StartCapital   string         `json:"start_capital"`
	EndCapital     string         `json:"end_capital"`
	TotalReturnPct float64        `json:"total_return_pct"`
	Benchmark      *JsonBenchmark `json:"benchmark,omitempty"`
	Days           []JsonDay      `json:"days"`
}

type JsonBenchmark struct {
	Symbol    string  `json:"symbol"`
	ChangePct float64 `json:"change_pct"`
}

type JsonDay struct {
	Date  string     `json:"date"`
	Value string     `json:"value"`
	Picks []JsonPick `json:"picks,omitempty"`
}

type JsonPick struct {
	Symbol string  `json:"symbol"`
	Rating float64 `json:"rating"`
	Price  string  `json:"price"`
	Shares int64   `json:"shares"`
}

func NewJsonReportBuilder(log *slog.Logger, capital decimal.Decimal) *JsonReportBuilder {
	return &JsonReportBuilder{
		log:   log,
		start: capital,
		end:   capital,
		report: JsonReport{
			Days: []JsonDay{},
		},
	}
}

func (r *JsonReportBuilder) ObserveDay(d DayResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	day := JsonDay{
		Date:  d.Day.Format(time.DateOnly),
		Value: d.Value.StringFixed(2),
	}
	for _, a := range d.Plan {
		day.Picks = append(day.Picks, JsonPick{
			Symbol: a.Symbol,
			Rating: a.Rating,
			Price:  a.Price.String(),
			Shares: a.Shares,
		})
	}

	r.report.Days = append(r.report.Days, day)
	r.end = d.Value
	return nil
}

func (r *JsonReportBuilder) SetBenchmark(symbol string, change float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.report.Benchmark = &JsonBenchmark{Symbol: symbol, ChangePct: change * 100}
}

func (r *JsonReportBuilder) Write(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.report.StartCapital = r.start.StringFixed(2)
	r.report.EndCapital = r.end.StringFixed(2)
	if r.start.IsPositive() {
		r.report.TotalReturnPct = r.end.Sub(r.start).Div(r.start).Shift(2).InexactFloat64()
	}

	r.log.Info("backtest finished",
		slog.String("start_capital", r.report.StartCapital),
		slog.String("end_capital", r.report.EndCapital),
		slog.Float64("total_return_pct", r.report.TotalReturnPct))

	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	if err := e.Encode(r.report); err != nil {
		return fmt.Errorf("failed to write backtest report: %w", err)
	}

	return nil
}

func (r *JsonReportBuilder) WriteToFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close report file: %w", cerr))
		}
	}()

	return r.Write(f)
}
