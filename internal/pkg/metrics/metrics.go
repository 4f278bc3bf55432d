package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sampleapi_requests_total",
		Help: "The total number of HTTP requests served",
	}, []string{"method", "endpoint", "status"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sampleapi_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	APILogWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sampleapi_apilog_writes_total",
		Help: "API log records persisted",
	})

	APILogWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sampleapi_apilog_write_failures_total",
		Help: "API log records that could not be persisted",
	}, []string{"reason"})

	LoginFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sampleapi_login_failures_total",
		Help: "Rejected token requests",
	})

	APILogsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sampleapi_apilogs_deleted_total",
		Help: "API log records removed by retention",
	})
)
