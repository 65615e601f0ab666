package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "packtrack"

// ClientMetrics records transport, cache and mutation activity of the data layer.
type ClientMetrics struct {
	requestDuration *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheFetches    *prometheus.CounterVec
	cacheDiscarded  *prometheus.CounterVec
	cacheEvictions  prometheus.Counter
	mutations       *prometheus.CounterVec
}

// NewClientMetrics registers the client collectors on the provided registerer.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return &ClientMetrics{}
	}
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of backend HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "outcome"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Backend HTTP requests by method and outcome.",
	}, []string{"method", "outcome"})
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Query cache lookups by entity and result (hit/miss).",
	}, []string{"entity", "result"})
	cacheFetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_fetches_total",
		Help:      "Fetches issued by the query cache by entity and outcome.",
	}, []string{"entity", "outcome"})
	cacheDiscarded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_discarded_responses_total",
		Help:      "Responses dropped because a newer request or write superseded them.",
	}, []string{"entity"})
	cacheEvictions := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_evictions_total",
		Help:      "Entries removed by garbage collection.",
	})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "Mutations by operation and outcome.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(requestDuration, requests, cacheLookups, cacheFetches, cacheDiscarded, cacheEvictions, mutations)
	return &ClientMetrics{
		requestDuration: requestDuration,
		requests:        requests,
		cacheLookups:    cacheLookups,
		cacheFetches:    cacheFetches,
		cacheDiscarded:  cacheDiscarded,
		cacheEvictions:  cacheEvictions,
		mutations:       mutations,
	}
}

// ObserveRequest records one backend request.
func (m *ClientMetrics) ObserveRequest(method, outcome string, duration time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	method = normalizeLabel(method)
	outcome = normalizeLabel(outcome)
	m.requests.WithLabelValues(method, outcome).Inc()
	m.requestDuration.WithLabelValues(method, outcome).Observe(duration.Seconds())
}

// CacheHit increments the hit counter for entity.
func (m *ClientMetrics) CacheHit(entity string) {
	if m == nil || m.cacheLookups == nil {
		return
	}
	m.cacheLookups.WithLabelValues(normalizeLabel(entity), "hit").Inc()
}

// CacheMiss increments the miss counter for entity.
func (m *ClientMetrics) CacheMiss(entity string) {
	if m == nil || m.cacheLookups == nil {
		return
	}
	m.cacheLookups.WithLabelValues(normalizeLabel(entity), "miss").Inc()
}

// ObserveFetch records the outcome of a cache fetch.
func (m *ClientMetrics) ObserveFetch(entity, outcome string) {
	if m == nil || m.cacheFetches == nil {
		return
	}
	m.cacheFetches.WithLabelValues(normalizeLabel(entity), normalizeLabel(outcome)).Inc()
}

// IncDiscarded records a superseded response.
func (m *ClientMetrics) IncDiscarded(entity string) {
	if m == nil || m.cacheDiscarded == nil {
		return
	}
	m.cacheDiscarded.WithLabelValues(normalizeLabel(entity)).Inc()
}

// AddEvictions records garbage-collected entries.
func (m *ClientMetrics) AddEvictions(n int) {
	if m == nil || m.cacheEvictions == nil || n <= 0 {
		return
	}
	m.cacheEvictions.Add(float64(n))
}

// ObserveMutation records a settled mutation.
func (m *ClientMetrics) ObserveMutation(operation, outcome string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
