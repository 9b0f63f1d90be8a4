package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments for the reconciliation cycle.
type Metrics struct {
	SituationsAdded   prometheus.Counter
	TimestampsUpdated prometheus.Counter
	RecordsAdded      prometheus.Counter
	MarkedInactive    prometheus.Counter
	Expired           prometheus.Counter
	CycleErrors       prometheus.Counter

	ActiveSituations   prometheus.Gauge
	InactiveSituations prometheus.Gauge
	StoredRecords      prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SituationsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "trafikkvarsel_situations_added_total",
			Help: "Situations inserted by the sync cycle.",
		}),
		TimestampsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "trafikkvarsel_situation_timestamps_updated_total",
			Help: "Situations whose version time moved forward.",
		}),
		RecordsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "trafikkvarsel_records_added_total",
			Help: "New record versions appended to situations.",
		}),
		MarkedInactive: factory.NewCounter(prometheus.CounterOpts{
			Name: "trafikkvarsel_situations_marked_inactive_total",
			Help: "Situations flipped inactive after dropping out of the feed.",
		}),
		Expired: factory.NewCounter(prometheus.CounterOpts{
			Name: "trafikkvarsel_situations_expired_total",
			Help: "Inactive situations deleted after the retention window.",
		}),
		CycleErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "trafikkvarsel_cycle_errors_total",
			Help: "Reconciliation cycles aborted by fetch, parse or storage errors.",
		}),
		ActiveSituations: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trafikkvarsel_situations_active",
			Help: "Situations currently marked active.",
		}),
		InactiveSituations: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trafikkvarsel_situations_inactive",
			Help: "Situations currently marked inactive.",
		}),
		StoredRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trafikkvarsel_records_stored",
			Help: "Record versions currently stored.",
		}),
	}
}
