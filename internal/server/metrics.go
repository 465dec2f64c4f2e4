package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liesym_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})

	analysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "liesym_analysis_duration_seconds",
		Help:    "Time spent in symmetry analyses by final state.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 9),
	}, []string{"state"})

	validationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liesym_validations_total",
		Help: "Validated generators by result.",
	}, []string{"result"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liesym_cache_lookups_total",
		Help: "Report cache lookups by result.",
	}, []string{"result"})
)

func countValidation(ok bool) {
	if ok {
		validationsTotal.WithLabelValues("ok").Inc()
		return
	}
	validationsTotal.WithLabelValues("failed").Inc()
}
