package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commsync_cycles_total",
		Help: "The total number of sync cycles run",
	}, []string{"status"})

	RecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commsync_records_total",
		Help: "Opportunity records processed, by reconcile outcome",
	}, []string{"outcome", "source"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "commsync_cycle_duration_seconds",
		Help:    "Wall time of a full fetch-and-reconcile cycle",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	CRMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commsync_crm_requests_total",
		Help: "Outbound GoHighLevel API requests",
	}, []string{"endpoint", "status"})

	CRMLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commsync_crm_latency_seconds",
		Help:    "GoHighLevel API request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commsync_http_latency_seconds",
		Help:    "Inbound request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
