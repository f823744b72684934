package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_mutations_total",
		Help: "Total number of resolved mutations",
	}, []string{"operation", "outcome"})

	MutationRollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_mutation_rollbacks_total",
		Help: "Total number of optimistic writes rolled back",
	}, []string{"operation"})

	MutationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_mutation_latency_seconds",
		Help:    "Latency of mutations from trigger to resolution",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	MutationLockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "portal_mutation_lock_wait_seconds",
		Help:    "Time spent waiting for the per-entity mutation lock",
		Buckets: prometheus.DefBuckets,
	})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_cache_hits_total",
		Help: "Total number of reads served from fresh cache",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_cache_misses_total",
		Help: "Total number of reads that required a fetch",
	})

	QueryFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_query_fetches_total",
		Help: "Total number of query fetches by outcome",
	}, []string{"outcome"})

	CacheInvalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_cache_invalidated_keys_total",
		Help: "Total number of cache keys marked stale",
	})

	CacheEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_cache_evictions_total",
		Help: "Total number of inactive cache entries garbage-collected",
	})

	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_backend_request_duration_seconds",
		Help:    "Latency of requests to the backend API",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "resource", "status"})

	SyncEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_sync_events_total",
		Help: "Total number of peer mutation events consumed",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
