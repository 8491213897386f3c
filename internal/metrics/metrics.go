package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for ledger activity. Construct with
// a fresh registry in tests to avoid duplicate-registration panics.
type Metrics struct {
	recordsGenerated   prometheus.Counter
	generationFailures prometheus.Counter
	paymentsApplied    prometheus.Counter
	mpesaCallbacks     *prometheus.CounterVec
}

// New constructs the collectors and registers them with reg. Registration
// errors panic, surfacing configuration bugs early.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		recordsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kodi",
			Subsystem: "billing",
			Name:      "rent_records_generated_total",
			Help:      "Rent records created by the monthly generation job.",
		}),
		generationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kodi",
			Subsystem: "billing",
			Name:      "generation_failures_total",
			Help:      "Per-tenant failures during the generation job.",
		}),
		paymentsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kodi",
			Subsystem: "billing",
			Name:      "payments_applied_total",
			Help:      "Payments applied to rent records.",
		}),
		mpesaCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kodi",
			Subsystem: "billing",
			Name:      "mpesa_callbacks_total",
			Help:      "M-Pesa confirmation callbacks by processing outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.recordsGenerated, m.generationFailures, m.paymentsApplied, m.mpesaCallbacks)

	return m
}

func (m *Metrics) RecordGenerated()  { m.recordsGenerated.Inc() }
func (m *Metrics) GenerationFailed() { m.generationFailures.Inc() }
func (m *Metrics) PaymentApplied()   { m.paymentsApplied.Inc() }

func (m *Metrics) MpesaCallback(outcome string) {
	m.mpesaCallbacks.WithLabelValues(outcome).Inc()
}
