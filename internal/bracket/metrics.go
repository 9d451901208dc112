package bracket

import "github.com/prometheus/client_golang/prometheus"

// Admission results reported on bracket_admissions_total.
const (
	admissionAdmitted        = "admitted"
	admissionSkippedPosition = "skipped_position"
	admissionMissingPrice    = "missing_price"
	admissionZeroQuantity    = "zero_quantity"
	admissionCapitalExceeded = "capital_exceeded"
)

// Metrics are the counters the manager updates while processing ticks.
type Metrics struct {
	ordersSubmitted *prometheus.CounterVec
	ordersCancelled *prometheus.CounterVec
	eventsArchived  prometheus.Counter
	admissions      *prometheus.CounterVec
	anomalies       *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them on registerer. A nil registerer leaves them unregistered.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ordersSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bracket_orders_submitted_total",
				Help: "Orders submitted to the broker by slot",
			},
			[]string{"slot"},
		),
		ordersCancelled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bracket_orders_cancelled_total",
				Help: "Cancel requests sent to the broker by slot",
			},
			[]string{"slot"},
		),
		eventsArchived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bracket_events_archived_total",
				Help: "Events moved to the archive",
			},
		),
		admissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bracket_admissions_total",
				Help: "Signal admission decisions by result",
			},
			[]string{"result"},
		),
		anomalies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bracket_anomalies_total",
				Help: "Recoverable anomalies by kind",
			},
			[]string{"kind"},
		),
	}

	if registerer == nil {
		return m, nil
	}

	for _, collector := range m.collectors() {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ordersSubmitted,
		m.ordersCancelled,
		m.eventsArchived,
		m.admissions,
		m.anomalies,
	}
}
