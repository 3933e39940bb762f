package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeBlocked = "blocked"
	OutcomeError   = "error"
)

var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitehunt_search_requests_total",
			Help: "Total number of search result pages requested",
		},
		[]string{"engine", "outcome"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitehunt_search_duration_seconds",
			Help:    "Duration of search page loads in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 8, 10, 15, 30, 60},
		},
		[]string{"engine"},
	)

	BlocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitehunt_blocks_total",
			Help: "Total number of block or challenge pages seen",
		},
		[]string{"engine", "source"},
	)

	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitehunt_lookups_total",
			Help: "Total number of company lookups by result",
		},
		[]string{"result"},
	)

	LookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitehunt_lookup_duration_seconds",
			Help:    "Duration of a company lookup across all engines",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 120},
		},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitehunt_proxy_failures_total",
			Help: "Total number of proxy failures during searches",
		},
		[]string{"proxy_url"},
	)
)

// RecordSearch counts one results page load.
func RecordSearch(engine, outcome string, d time.Duration) {
	SearchRequestsTotal.WithLabelValues(engine, outcome).Inc()
	SearchDuration.WithLabelValues(engine).Observe(d.Seconds())
}

// RecordBlock counts a challenge page.
func RecordBlock(engine, source string) {
	BlocksTotal.WithLabelValues(engine, source).Inc()
}

// RecordLookup counts a finished company lookup. result is "found",
// "not_found" or "failed".
func RecordLookup(result string, d time.Duration) {
	LookupsTotal.WithLabelValues(result).Inc()
	LookupDuration.Observe(d.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
