package types

import (
	"fmt"
	"strings"
	"time"
)

// EventID identifies a trading signal by symbol and signal time.
// The time is truncated to whole seconds and stored in UTC, so two ids built from the
// same inputs compare equal with == and can be used as map keys.
type EventID struct {
	Symbol     string    `json:"symbol" yaml:"symbol" csv:"symbol"`
	SignalTime time.Time `json:"signal_time" yaml:"signal_time" csv:"signal_time"`
}

// NewEventID derives the identity of a signal.
func NewEventID(symbol string, signalTime time.Time) EventID {
	return EventID{
		Symbol:     strings.TrimSpace(symbol),
		SignalTime: signalTime.UTC().Truncate(time.Second),
	}
}

// String renders the id as SYMBOL@2006-01-02T15:04:05Z.
func (e EventID) String() string {
	return fmt.Sprintf("%s@%s", e.Symbol, e.SignalTime.Format(time.RFC3339))
}

// Less orders ids by symbol, then signal time.
func (e EventID) Less(other EventID) bool {
	if e.Symbol != other.Symbol {
		return e.Symbol < other.Symbol
	}

	return e.SignalTime.Before(other.SignalTime)
}

// Compare returns -1, 0 or 1 and is suitable for slices.SortFunc.
func (e EventID) Compare(other EventID) int {
	switch {
	case e.Less(other):
		return -1
	case other.Less(e):
		return 1
	default:
		return 0
	}
}
