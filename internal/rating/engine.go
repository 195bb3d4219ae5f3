package rating

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gamma-omg/rating-bot/internal/market"
	"github.com/shopspring/decimal"
)

type Crossover struct {
	Short int
	Long  int
}

type Config struct {
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
	// Window is the number of trailing bars the rating looks back over;
	// window+1 bars are needed per symbol.
	Window int
	K      int
	// PositiveOnly drops ratings <= 0 before ranking.
	PositiveOnly bool
	// Crossover, when set, gates the rating on a moving average crossover.
	Crossover *Crossover
}

// Stats counts why symbols were left out of a cycle.
type Stats struct {
	Symbols      int
	Rated        int
	FetchFailed  int
	Insufficient int
	Degenerate   int
	OutOfBand    int
	NoCrossover  int
}

func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("symbols", s.Symbols),
		slog.Int("rated", s.Rated),
		slog.Int("fetch_failed", s.FetchFailed),
		slog.Int("insufficient", s.Insufficient),
		slog.Int("degenerate", s.Degenerate),
		slog.Int("out_of_band", s.OutOfBand),
		slog.Int("no_crossover", s.NoCrossover),
	)
}

type Engine struct {
	log *slog.Logger
	cfg Config
}

func NewEngine(log *slog.Logger, cfg Config) (*Engine, error) {
	if cfg.Window < 1 {
		return nil, fmt.Errorf("invalid rating window: %d", cfg.Window)
	}
	if cfg.MinPrice.GreaterThan(cfg.MaxPrice) {
		return nil, fmt.Errorf("min price %s is greater than max price %s", cfg.MinPrice, cfg.MaxPrice)
	}
	if cfg.K <= 0 || cfg.K > MaxHoldings {
		return nil, fmt.Errorf("holdings count must be in [1, %d], got %d", MaxHoldings, cfg.K)
	}
	if c := cfg.Crossover; c != nil && (c.Short < 1 || c.Long <= c.Short) {
		return nil, fmt.Errorf("invalid crossover periods: %d/%d", c.Short, c.Long)
	}

	return &Engine{log: log, cfg: cfg}, nil
}

// Evaluate rates every symbol of the batch that survives the price band and
// crossover filters. A symbol with bad or missing data is skipped, never
// failing the batch. Ratings come back in batch order.
func (e *Engine) Evaluate(batch []market.SymbolBars) ([]Rating, Stats) {
	stats := Stats{Symbols: len(batch)}
	ratings := make([]Rating, 0, len(batch))

	for _, sb := range batch {
		r, err := e.rate(sb)
		if err != nil {
			e.count(&stats, err)
			e.log.Debug("symbol skipped", slog.String("symbol", sb.Symbol), slog.Any("reason", err))
			continue
		}

		stats.Rated++
		ratings = append(ratings, r)
	}

	return ratings, stats
}

// Cycle runs Evaluate and ranks the result.
func (e *Engine) Cycle(batch []market.SymbolBars) (Selection, Stats) {
	ratings, stats := e.Evaluate(batch)
	sel := SelectTopK(ratings, e.cfg.K, e.cfg.PositiveOnly)

	e.log.Info("rating cycle done", slog.Any("stats", stats), slog.Int("selected", len(sel)))
	return sel, stats
}

var (
	errOutOfBand   = errors.New("price out of band")
	errNoCrossover = errors.New("no moving average crossover")
)

func (e *Engine) rate(sb market.SymbolBars) (Rating, error) {
	if sb.Err != nil {
		return Rating{}, fmt.Errorf("%w: %w", ErrFetchFailure, sb.Err)
	}

	last, err := sb.Bars.Last()
	if err != nil {
		return Rating{}, fmt.Errorf("%w: %w", ErrInsufficientHistory, err)
	}

	price := last.Close
	if !PriceBandFilter(price, e.cfg.MinPrice, e.cfg.MaxPrice) {
		return Rating{}, fmt.Errorf("%w: %s", errOutOfBand, price)
	}

	if c := e.cfg.Crossover; c != nil {
		ok, err := CrossoverPrecondition(sb.Bars, c.Short, c.Long)
		if err != nil {
			return Rating{}, err
		}
		if !ok {
			return Rating{}, errNoCrossover
		}
	}

	v, err := ComputeRating(sb.Bars, e.cfg.Window)
	if err != nil {
		return Rating{}, err
	}

	return Rating{Symbol: sb.Symbol, Value: v, Price: price}, nil
}

func (e *Engine) count(s *Stats, err error) {
	switch {
	case errors.Is(err, ErrFetchFailure):
		s.FetchFailed++
	case errors.Is(err, ErrDegenerateVolume):
		s.Degenerate++
	case errors.Is(err, errOutOfBand):
		s.OutOfBand++
	case errors.Is(err, errNoCrossover):
		s.NoCrossover++
	default:
		s.Insufficient++
	}
}
