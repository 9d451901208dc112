package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bracket/internal/types"
)

// SnapshotGenerator generates realistic market snapshots for testing and benchmarking.
type SnapshotGenerator struct {
	rng *rand.Rand
}

// NewSnapshotGenerator creates a new SnapshotGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewSnapshotGenerator(seed int64) *SnapshotGenerator {
	return &SnapshotGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how snapshots are generated.
type GeneratorConfig struct {
	// Symbols are the traded symbols (e.g., "AAPL", "SPY")
	Symbols []string
	// StartTime is the time of the first snapshot
	StartTime time.Time
	// Count is the number of trading day snapshots to generate
	Count int
	// InitialPrice is the starting price of every symbol before per symbol variation
	InitialPrice float64
	// Volatility controls price movement (0.02 = 2% typical daily volatility)
	Volatility float64
	// SignalProbability is the chance a symbol carries a new signal on a given day
	SignalProbability float64
	// MissingPriceProbability is the chance a signal arrives without a price
	MissingPriceProbability float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbols:                 []string{"AAPL", "MSFT", "NVDA"},
		StartTime:               time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC),
		Count:                   250,
		InitialPrice:            100.0,
		Volatility:              0.02,
		SignalProbability:       0.1,
		MissingPriceProbability: 0.02,
	}
}

// Generate creates one snapshot per weekday. Prices follow a geometric Brownian motion and a signal
// stamps the quote with the snapshot time.
func (g *SnapshotGenerator) Generate(config GeneratorConfig) []types.Snapshot {
	snapshots := make([]types.Snapshot, 0, config.Count)
	prices := make(map[string]float64, len(config.Symbols))

	for _, symbol := range config.Symbols {
		// Vary initial price slightly per symbol
		prices[symbol] = config.InitialPrice * (0.8 + g.rng.Float64()*0.4)
	}

	current := config.StartTime
	for len(snapshots) < config.Count {
		if current.Weekday() == time.Saturday || current.Weekday() == time.Sunday {
			current = current.AddDate(0, 0, 1)

			continue
		}

		quotes := make(map[string]types.Quote, len(config.Symbols))

		for _, symbol := range config.Symbols {
			// Using Box-Muller transform for normal distribution
			u1 := g.rng.Float64()
			u2 := g.rng.Float64()
			z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

			next := prices[symbol] * (1 + config.Volatility*z)
			if next <= 0 {
				next = prices[symbol] * 0.99 // Prevent negative prices
			}

			prices[symbol] = next

			quote := types.Quote{
				Price:      optional.Some(roundToDecimals(next, 2)),
				SignalTime: optional.None[time.Time](),
			}

			if g.rng.Float64() < config.SignalProbability {
				quote.SignalTime = optional.Some(current)
				if g.rng.Float64() < config.MissingPriceProbability {
					quote.Price = optional.None[float64]()
				}
			}

			quotes[symbol] = quote
		}

		snapshots = append(snapshots, types.Snapshot{Time: current, Quotes: quotes})
		current = current.AddDate(0, 0, 1)
	}

	return snapshots
}

// GenerateYear is a convenience function to generate a year of daily snapshots
// with default settings for benchmarking.
func GenerateYear(symbols ...string) []types.Snapshot {
	gen := NewSnapshotGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()

	if len(symbols) > 0 {
		config.Symbols = symbols
	}

	return gen.Generate(config)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
