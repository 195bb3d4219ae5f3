package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const maxHoldings = 200

type Config struct {
	Rating      Rating            `yaml:"rating"`
	StrategyRef StrategyReference `yaml:"strategy"`
	PlatformRef PlatformReference `yaml:"platform"`
	Report      string            `yaml:"report"`
	Chart       string            `yaml:"chart"`
	RatingsDump string            `yaml:"ratings_dump"`
	Timezone    string            `yaml:"timezone"`
}

// Read parses a yaml config. ${VAR} references are expanded from the
// environment before parsing so credentials can stay out of the file.
func Read(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read config: %w", err)
	}

	cfg := Config{
		Rating:   defaultRating(),
		Timezone: "America/New_York",
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Rating.MinPrice < 0 || c.Rating.MinPrice > c.Rating.MaxPrice {
		errs = append(errs, fmt.Errorf("invalid price band [%v, %v]", c.Rating.MinPrice, c.Rating.MaxPrice))
	}
	if c.Rating.StocksToHold < 1 || c.Rating.StocksToHold > maxHoldings {
		errs = append(errs, fmt.Errorf("stocks_to_hold must be in [1, %d], got %d", maxHoldings, c.Rating.StocksToHold))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err))
	}

	switch s := c.StrategyRef.Strategy.(type) {
	case Overnight:
		errs = append(errs, s.validate())
	case Crossover:
		errs = append(errs, s.validate())
	}

	return errors.Join(errs...)
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Rating struct {
	MinPrice     float64 `yaml:"min_price"`
	MaxPrice     float64 `yaml:"max_price"`
	StocksToHold int     `yaml:"stocks_to_hold"`
}

func defaultRating() Rating {
	return Rating{MinPrice: 6, MaxPrice: 26, StocksToHold: 150}
}

// strategy configs

type StrategyReference struct {
	Strategy Strategy
}

type Strategy interface{}

// Overnight buys the day's best rated symbols at the close and sells them
// at the next day's open.
type Overnight struct {
	Window         int     `yaml:"window"`
	Days           int     `yaml:"days"`
	Capital        float64 `yaml:"capital"`
	LookbackDays   int     `yaml:"lookback_days"`
	BuyCommission  float64 `yaml:"buy_commission"`
	SellCommission float64 `yaml:"sell_commission"`
	Benchmark      string  `yaml:"benchmark"`
}

func defaultOvernight() Overnight {
	return Overnight{Window: 4, Days: 10, Capital: 3000, LookbackDays: 10}
}

func (o Overnight) validate() error {
	if o.Window < 1 {
		return fmt.Errorf("overnight window must be positive, got %d", o.Window)
	}
	if o.Days < 1 {
		return fmt.Errorf("overnight days must be positive, got %d", o.Days)
	}
	if o.Capital <= 0 {
		return fmt.Errorf("overnight capital must be positive, got %v", o.Capital)
	}
	if o.LookbackDays < o.Window {
		return fmt.Errorf("lookback_days %d cannot cover a window of %d bars", o.LookbackDays, o.Window)
	}
	return nil
}

// Crossover buys equal dollar amounts of the best rated symbols whose short
// moving average is above the long one.
type Crossover struct {
	Window       int    `yaml:"window"`
	ShortMA      int    `yaml:"short_ma"`
	LongMA       int    `yaml:"long_ma"`
	LookbackDays int    `yaml:"lookback_days"`
	Schedule     string `yaml:"schedule"`
}

func defaultCrossover() Crossover {
	return Crossover{Window: 19, ShortMA: 10, LongMA: 20, LookbackDays: 40}
}

func (c Crossover) validate() error {
	if c.Window < 1 {
		return fmt.Errorf("crossover window must be positive, got %d", c.Window)
	}
	if c.ShortMA < 1 || c.LongMA <= c.ShortMA {
		return fmt.Errorf("invalid moving averages %d/%d", c.ShortMA, c.LongMA)
	}
	if c.LookbackDays < max(c.Window, c.LongMA) {
		return fmt.Errorf("lookback_days %d is too short", c.LookbackDays)
	}
	return nil
}

func (w *StrategyReference) UnmarshalYAML(value *yaml.Node) error {
	if len(value.Content) == 0 {
		return nil
	}

	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return errors.New("invalid strategy yaml format")
	}

	key := value.Content[0].Value
	switch key {
	case "overnight":
		o := defaultOvernight()
		if err := value.Content[1].Decode(&o); err != nil {
			return fmt.Errorf("failed parsing overnight strategy config: %w", err)
		}
		w.Strategy = o
	case "crossover":
		c := defaultCrossover()
		if err := value.Content[1].Decode(&c); err != nil {
			return fmt.Errorf("failed parsing crossover strategy config: %w", err)
		}
		w.Strategy = c
	default:
		return fmt.Errorf("unknown strategy type: %s", key)
	}

	return nil
}

// platform configs

type PlatformReference struct {
	Platform Platform
}

type Platform interface{}

type Emulator struct {
	Data           map[string]string `yaml:"data"`
	Balance        float64           `yaml:"balance"`
	BuyCommission  float64           `yaml:"buy_commission"`
	SellCommission float64           `yaml:"sell_commission"`
}

type Alpaca struct {
	BaseUrl          string `yaml:"base_url"`
	ApiKey           string `yaml:"api_key"`
	Secret           string `yaml:"secret"`
	DataFeed         string `yaml:"data_feed"`
	FetchConcurrency int    `yaml:"fetch_concurrency"`
}

func defaultAlpaca() Alpaca {
	return Alpaca{
		BaseUrl:          "https://paper-api.alpaca.markets",
		DataFeed:         "iex",
		FetchConcurrency: 16,
	}
}

func (w *PlatformReference) UnmarshalYAML(value *yaml.Node) error {
	if len(value.Content) == 0 {
		return nil
	}

	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return errors.New("invalid platform yaml format")
	}

	key := value.Content[0].Value
	switch key {
	case "emulator":
		var emu Emulator
		if err := value.Content[1].Decode(&emu); err != nil {
			return fmt.Errorf("failed parsing emulator platform config: %w", err)
		}
		w.Platform = emu
	case "alpaca":
		alpaca := defaultAlpaca()
		if err := value.Content[1].Decode(&alpaca); err != nil {
			return fmt.Errorf("failed parsing Alpaca platform config: %w", err)
		}
		w.Platform = alpaca
	default:
		return fmt.Errorf("unknown platform type: %s", key)
	}

	return nil
}
