package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	authAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsboard_auth_attempts_total",
			Help: "Registration and login attempts by outcome.",
		},
		[]string{"op", "outcome"},
	)

	authRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsboard_auth_rejections_total",
			Help: "Requests rejected by the access gate, by reason.",
		},
		[]string{"transport", "reason"},
	)

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "opsboard_ready",
		Help: "1 when the last readiness probe succeeded.",
	})

	initOnce sync.Once
)

// routes are the label values allowed for the path label; anything else is
// collapsed to keep cardinality bounded.
var routes = map[string]struct{}{
	"/":                 {},
	"/health":           {},
	"/readyz":           {},
	"/metrics":          {},
	"/openapi.yaml":     {},
	"/auth/register":    {},
	"/auth/login":       {},
	"/auth/me":          {},
	"/projects":         {},
	"/work-logs":        {},
	"/manager/overview": {},
}

// Init registers metrics in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration, authAttempts, authRejections, ready)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAuthAttempt counts a register/login outcome.
func RecordAuthAttempt(op, outcome string) {
	authAttempts.WithLabelValues(op, outcome).Inc()
}

// RecordAuthRejection counts an access gate rejection.
func RecordAuthRejection(transport, reason string) {
	authRejections.WithLabelValues(transport, reason).Inc()
}

// SetReady records the result of the latest readiness probe.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// CanonicalPath maps a request path onto a bounded set of label values.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if _, ok := routes[path]; ok {
		return path
	}
	return "other"
}

// Instrument records RPS, latency and in-flight requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
