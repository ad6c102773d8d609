package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

var (
	reqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wellness",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	reqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wellness", Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"method", "path", "status"},
	)
	loginTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wellness", Name: "login_attempts_total", Help: "Login attempts by outcome"},
		[]string{"outcome"},
	)
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wellness", Name: "metric_records_submitted_total", Help: "Metric records stored by metric type"},
		[]string{"metric_type"},
	)
	policyDecisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wellness", Name: "policy_decisions_total", Help: "Authorization decisions by action, engine and outcome"},
		[]string{"action", "engine", "decision"},
	)
	// External ops (report webhooks)
	externalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "wellness", Name: "external_op_duration_seconds", Help: "Duration of external operations"},
		[]string{"op", "outcome"},
	)
	externalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wellness", Name: "external_op_total", Help: "Total external operations"},
		[]string{"op", "outcome"},
	)
	breakerOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "wellness", Name: "circuit_breaker_open", Help: "Circuit breaker state: 1=open, 0=closed"},
		[]string{"breaker"},
	)
	cacheHitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wellness", Name: "cache_hit_total", Help: "Cache hits by component"},
		[]string{"component"},
	)
	cacheMissTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wellness", Name: "cache_miss_total", Help: "Cache misses by component"},
		[]string{"component"},
	)
	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "wellness", Name: "rate_limited_total", Help: "Requests rejected by rate limiting"},
		[]string{"limiter"},
	)
)

func init() {
	prometheus.MustRegister(reqDuration, reqTotal, loginTotal, submissionsTotal, policyDecisionTotal, externalDuration, externalTotal, breakerOpen, cacheHitTotal, cacheMissTotal, rateLimitedTotal)
}

// MetricsMiddleware records basic HTTP metrics
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start).Seconds()
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		labels := []string{c.Request.Method, path, toStr(status)}
		observer := reqDuration.WithLabelValues(labels...)
		// attach exemplar with trace_id if present
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.IsValid() {
			if eo, ok := observer.(prometheus.ExemplarObserver); ok {
				eo.ObserveWithExemplar(dur, prometheus.Labels{"trace_id": sc.TraceID().String()})
			} else {
				observer.Observe(dur)
			}
		} else {
			observer.Observe(dur)
		}
		reqTotal.With(prometheus.Labels{"method": c.Request.Method, "path": path, "status": toStr(status)}).Inc()
	}
}

func toStr(i int) string { return strconv.Itoa(i) }

// RecordLogin counts a login attempt: success, bad_credentials, inactive or rate_limited.
func RecordLogin(outcome string) { loginTotal.WithLabelValues(outcome).Inc() }

// RecordSubmission counts stored metric records of one type.
func RecordSubmission(metricType string, n int) {
	submissionsTotal.WithLabelValues(metricType).Add(float64(n))
}

// RecordPolicyDecision counts an authorization decision.
func RecordPolicyDecision(action, engine string, allow bool) {
	d := "deny"
	if allow {
		d = "allow"
	}
	policyDecisionTotal.WithLabelValues(action, engine, d).Inc()
}

// RecordExternalOp records an external operation metric with duration and outcome
func RecordExternalOp(op string, dur time.Duration, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	externalDuration.WithLabelValues(op, outcome).Observe(dur.Seconds())
	externalTotal.WithLabelValues(op, outcome).Inc()
}

// SetBreakerState updates the breaker state gauge (1=open, 0=closed)
func SetBreakerState(name string, open bool) {
	if open {
		breakerOpen.WithLabelValues(name).Set(1)
	} else {
		breakerOpen.WithLabelValues(name).Set(0)
	}
}

// RecordCacheHit increments the cache hit counter for a component
func RecordCacheHit(component string) { cacheHitTotal.WithLabelValues(component).Inc() }

// RecordCacheMiss increments the cache miss counter for a component
func RecordCacheMiss(component string) { cacheMissTotal.WithLabelValues(component).Inc() }

// RecordRateLimited counts a rejected request.
func RecordRateLimited(limiter string) { rateLimitedTotal.WithLabelValues(limiter).Inc() }
