package report

import "github.com/rxtech-lab/argo-bracket/internal/types"

// TripWriter persists a trip table.
type TripWriter interface {
	WriteTrips(rows []types.TripRow) error
	// OutputPath returns where the trips are written.
	OutputPath() string
	Close() error
}
