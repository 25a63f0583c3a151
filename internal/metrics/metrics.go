// Package metrics provides Prometheus instrumentation for the options
// analytics engine.
package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ChainsGenerated counts generated chains, partitioned by data source
	// (LIVE or THEORETICAL).
	ChainsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nifty_chains_generated_total",
		Help: "Total options chains generated",
	}, []string{"source"})

	// ChainGenerationDuration tracks full chain build latency.
	ChainGenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nifty_chain_generation_duration_seconds",
		Help:    "Options chain generation latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// ChainRows counts priced rows by data source.
	ChainRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nifty_chain_rows_total",
		Help: "Total chain rows priced",
	}, []string{"source"})

	// IVSolveFailures counts rows where the solver reported not-found and
	// pricing fell back to exchange or flat volatility.
	IVSolveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nifty_iv_solve_failures_total",
		Help: "Implied volatility solves that did not converge",
	})

	// SpotPrice tracks the last spot price served.
	SpotPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nifty_spot_price",
		Help: "Last NIFTY spot price served",
	})

	// SourceErrors counts upstream data source failures by operation.
	SourceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nifty_source_errors_total",
		Help: "Market data source failures",
	}, []string{"op"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nifty_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nifty_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nifty_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the API surface is small and
		// parameter-free, so cardinality stays bounded.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack passes through so WebSocket upgrades work behind the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hj.Hijack()
}
