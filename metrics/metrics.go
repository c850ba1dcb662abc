// Package metrics provides Prometheus instrumentation for the ledger.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// InstructionsTotal counts executed instructions by name and outcome.
	InstructionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wagerledger_instructions_total",
		Help: "Total instructions processed",
	}, []string{"instruction", "result"})

	// InstructionLatency tracks end to end instruction latency.
	InstructionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wagerledger_instruction_latency_seconds",
		Help:    "Instruction execution latency in seconds",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"instruction"})

	// EscrowLamports counts lamports moved into and out of vaults.
	EscrowLamports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wagerledger_escrow_lamports_total",
		Help: "Cumulative lamports moved through escrow vaults",
	}, []string{"direction"})

	// OpenBets tracks bets currently waiting for an acceptor.
	OpenBets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wagerledger_open_bets",
		Help: "Number of bets in the open state",
	})

	// CacheRequests counts account cache lookups by outcome.
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wagerledger_account_cache_requests_total",
		Help: "Account cache lookups",
	}, []string{"result"})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wagerledger_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wagerledger_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

const (
	EscrowDeposit  = "deposit"
	EscrowPayout   = "payout"
	EscrowRefund   = "refund"
	ResultSuccess  = "success"
	CacheHit       = "hit"
	CacheMiss      = "miss"
	CacheError     = "error"
	unmatchedRoute = "unmatched"
)

// ObserveInstruction records one instruction outcome. result is either
// ResultSuccess or the error code of the rejection.
func ObserveInstruction(instruction, result string, started time.Time) {
	InstructionsTotal.WithLabelValues(instruction, result).Inc()
	InstructionLatency.WithLabelValues(instruction).Observe(time.Since(started).Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Route patterns keep label cardinality bounded
		path := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
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
