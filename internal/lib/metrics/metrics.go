package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wall"

// Relay counts the work of the outbox relay. A nil *Relay is usable and counts nothing
type Relay struct {
	relayed prometheus.Counter
	failed  prometheus.Counter
	idle    prometheus.Counter
}

func NewRelay(reg prometheus.Registerer) *Relay {
	f := promauto.With(reg)

	return &Relay{
		relayed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "events_relayed_total",
			Help:      "Events published to the change feed.",
		}),
		failed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "cycles_failed_total",
			Help:      "Relay cycles ended with an error.",
		}),
		idle: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "cycles_idle_total",
			Help:      "Relay cycles with nothing to publish.",
		}),
	}
}

func (r *Relay) Relayed(n int) {
	if r == nil {
		return
	}
	r.relayed.Add(float64(n))
}

func (r *Relay) Failed() {
	if r == nil {
		return
	}
	r.failed.Inc()
}

func (r *Relay) Idle() {
	if r == nil {
		return
	}
	r.idle.Inc()
}
