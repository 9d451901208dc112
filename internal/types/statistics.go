package types

// TripSummary aggregates a trip table.
type TripSummary struct {
	// Count of all trips.
	NumberOfTrips int `yaml:"number_of_trips" json:"number_of_trips"`
	// Count of trips with positive pnl.
	NumberOfWinningTrips int `yaml:"number_of_winning_trips" json:"number_of_winning_trips"`
	// Count of trips with negative pnl.
	NumberOfLosingTrips int `yaml:"number_of_losing_trips" json:"number_of_losing_trips"`
	// Winning trips divided by all trips, 0 when there are none.
	WinRate float64 `yaml:"win_rate" json:"win_rate"`
	// Sum of realized pnl over every trip.
	TotalPnL float64 `yaml:"total_pnl" json:"total_pnl"`
	// Smallest single trip pnl.
	MaximumLoss float64 `yaml:"maximum_loss" json:"maximum_loss"`
	// Largest single trip pnl.
	MaximumProfit float64 `yaml:"maximum_profit" json:"maximum_profit"`
	// Absolute shares traded, counting entry and exit.
	TotalShares     float64 `yaml:"total_shares" json:"total_shares"`
	AverageDaysOpen float64 `yaml:"average_days_open" json:"average_days_open"`
	// Trips per exit reason label.
	ExitReasons map[string]int `yaml:"exit_reasons" json:"exit_reasons"`
}
