package mocks

import (
	"testing"
	"time"
)

func TestSnapshotGenerator_Generate(t *testing.T) {
	gen := NewSnapshotGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Count = 100

	snapshots := gen.Generate(config)

	if len(snapshots) != 100 {
		t.Errorf("expected 100 snapshots, got %d", len(snapshots))
	}

	// Verify snapshots are in chronological order
	for i := 1; i < len(snapshots); i++ {
		if !snapshots[i].Time.After(snapshots[i-1].Time) {
			t.Errorf("snapshots not in chronological order at index %d", i)
		}
	}

	for i, snapshot := range snapshots {
		if wd := snapshot.Time.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("snapshot %d falls on a weekend: %s", i, snapshot.Time)
		}

		if len(snapshot.Quotes) != len(config.Symbols) {
			t.Errorf("expected %d quotes at index %d, got %d", len(config.Symbols), i, len(snapshot.Quotes))
		}

		for symbol, quote := range snapshot.Quotes {
			if quote.Price.IsSome() && quote.Price.Unwrap() <= 0 {
				t.Errorf("invalid price for %s at index %d: %f", symbol, i, quote.Price.Unwrap())
			}

			if quote.HasSignal() && !quote.SignalTime.Unwrap().Equal(snapshot.Time) {
				t.Errorf("signal time of %s at index %d does not match the snapshot", symbol, i)
			}

			if quote.Price.IsNone() && !quote.HasSignal() {
				t.Errorf("only signals may miss a price: %s at index %d", symbol, i)
			}
		}
	}
}

func TestSnapshotGenerator_Reproducibility(t *testing.T) {
	// Same seed should produce same results
	first := NewSnapshotGenerator(123).Generate(DefaultConfig())
	second := NewSnapshotGenerator(123).Generate(DefaultConfig())

	for i := range first {
		for symbol, quote := range first[i].Quotes {
			other := second[i].Quotes[symbol]
			if quote.Price.TakeOr(-1) != other.Price.TakeOr(-1) || quote.HasSignal() != other.HasSignal() {
				t.Fatalf("snapshots differ at index %d for %s", i, symbol)
			}
		}
	}
}

func TestSnapshotGenerator_SignalsAppear(t *testing.T) {
	config := DefaultConfig()
	config.SignalProbability = 1

	snapshots := NewSnapshotGenerator(7).Generate(config)
	for i, snapshot := range snapshots {
		for symbol, quote := range snapshot.Quotes {
			if !quote.HasSignal() {
				t.Fatalf("expected a signal for %s at index %d", symbol, i)
			}
		}
	}
}

func TestGenerateYear(t *testing.T) {
	snapshots := GenerateYear("SPY")

	if len(snapshots) != DefaultConfig().Count {
		t.Errorf("expected %d snapshots, got %d", DefaultConfig().Count, len(snapshots))
	}

	if _, ok := snapshots[0].Quotes["SPY"]; !ok {
		t.Errorf("expected quotes for SPY")
	}
}
