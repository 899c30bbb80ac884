package metrics

import (
	"net/http"

	"github.com/assujiar/ugc-business-command-portal-sub003/domain/activity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bizflow"

type Metrics struct {
	Registry *prometheus.Registry

	transitions    *prometheus.CounterVec
	records        *prometheus.CounterVec
	errorResponses *prometheus.CounterVec
	slaBreaches    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Committed state transitions",
			},
			[]string{"entity_type", "from", "to"},
		),
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "activity_records_total",
				Help:      "Stored activity records",
			},
			[]string{"action"},
		),
		errorResponses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "error_responses_total",
				Help:      "Error responses by error code",
			},
			[]string{"code"},
		),
		slaBreaches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sla_breaches_total",
				Help:      "Tickets marked as SLA breached",
			},
		),
	}
	m.Registry.MustRegister(m.transitions, m.records, m.errorResponses, m.slaBreaches, collectors.NewGoCollector())
	return m
}

// ActivityHandler counts every stored record, it never reports a result.
func (m *Metrics) ActivityHandler() activity.Handler {
	return func(r *activity.Record) *activity.HandleResult {
		m.records.WithLabelValues(string(r.Action)).Inc()
		switch r.Action {
		case activity.ActionStatusChanged:
			m.transitions.WithLabelValues(string(r.EntityType), r.Details.From, r.Details.To).Inc()
		case activity.ActionSlaBreached:
			m.slaBreaches.Inc()
		}
		return nil
	}
}

func (m *Metrics) ObserveErrorResponse(code string) {
	m.errorResponses.WithLabelValues(code).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
