package types

import (
	"sort"
	"time"

	"github.com/moznion/go-optional"
)

// Side is the direction every event trades in: +1 long, -1 short.
type Side int

const (
	SideLong  Side = 1
	SideShort Side = -1
)

func (s Side) String() string {
	if s == SideShort {
		return "SHORT"
	}

	return "LONG"
}

// Float returns the side as a multiplier.
func (s Side) Float() float64 {
	return float64(s)
}

// Quote is the per-symbol content of a market snapshot.
type Quote struct {
	// Price is None when no tradable price accompanies the tick.
	Price optional.Option[float64]
	// SignalTime is Some when a trading signal is attached to the tick.
	SignalTime optional.Option[time.Time]
}

// HasSignal reports whether the quote carries a trading signal.
func (q Quote) HasSignal() bool {
	return q.SignalTime.IsSome()
}

// Snapshot is the market state delivered once per scheduling tick.
type Snapshot struct {
	Time   time.Time
	Quotes map[string]Quote
}

// Symbols returns the snapshot symbols in sorted order.
func (s Snapshot) Symbols() []string {
	symbols := make([]string, 0, len(s.Quotes))
	for symbol := range s.Quotes {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// Price returns the tradable price for symbol if there is one.
func (s Snapshot) Price(symbol string) optional.Option[float64] {
	quote, ok := s.Quotes[symbol]
	if !ok {
		return optional.None[float64]()
	}

	return quote.Price
}
