package obs

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingCacheEvents counts contents-details cache outcomes by
	// event: hit, miss, invalidate.
	PricingCacheEvents *prometheus.CounterVec
	// DiscountEvalTotal counts discount code resolutions by result:
	// applied, skipped.
	DiscountEvalTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the pricing
// domain collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingCacheEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_cache_events_total",
			Help:      "Contents-details cache hits, misses, and invalidations.",
		}, []string{"event"})
		DiscountEvalTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_evaluations_total",
			Help:      "Discount code resolutions by outcome.",
		}, []string{"result"})

		registerCounterVec(reg, &PricingCacheEvents)
		registerCounterVec(reg, &DiscountEvalTotal)
	})
}

// CacheEvent records a cache outcome. Safe to call before registration.
func CacheEvent(event string) {
	if PricingCacheEvents != nil {
		PricingCacheEvents.WithLabelValues(event).Inc()
	}
}

// DiscountEval records a discount resolution outcome.
func DiscountEval(result string) {
	if DiscountEvalTotal != nil {
		DiscountEvalTotal.WithLabelValues(result).Inc()
	}
}

// HTTPMetrics groups Prometheus collectors for HTTP observability.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
}

// NewHTTPMetrics registers and returns HTTP metrics collectors.
func NewHTTPMetrics(namespace string, buckets []float64, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(buckets) == 0 {
		buckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}
	} else {
		sort.Float64s(buckets)
	}
	m := &HTTPMetrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency distribution in milliseconds.",
			Buckets:   buckets,
		}, []string{"method", "route"}),
	}
	registerCounterVec(reg, &m.ReqTotal)
	registerHistogramVec(reg, &m.ReqDur)
	return m
}

func registerCounterVec(reg prometheus.Registerer, vec **prometheus.CounterVec) {
	if err := reg.Register(*vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				*vec = existing
				return
			}
		}
		panic(fmt.Errorf("register counter: %w", err))
	}
}

func registerHistogramVec(reg prometheus.Registerer, vec **prometheus.HistogramVec) {
	if err := reg.Register(*vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				*vec = existing
				return
			}
		}
		panic(fmt.Errorf("register histogram: %w", err))
	}
}
