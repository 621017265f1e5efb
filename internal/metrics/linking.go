package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Linking and gateway Prometheus metrics. Standalone package so the
// session and gateway layers can share collectors without import cycles.

var (
	LinkAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fitlink_link_attempts_total",
		Help: "Linking sessions by provider and terminal outcome",
	}, []string{"provider", "outcome"})

	LinkDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fitlink_link_duration_seconds",
		Help:    "Wall time of a linking session from start to settle",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"provider"})

	GatewayRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fitlink_gateway_requests_total",
		Help: "Backend gateway requests by endpoint and status class",
	}, []string{"endpoint", "status"})

	GatewayLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fitlink_gateway_request_duration_seconds",
		Help:    "Backend gateway request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)

// Register registers the collectors on the given registry (or the default
// if nil). Re-registration is tolerated.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{LinkAttempts, LinkDuration, GatewayRequests, GatewayLatency} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
