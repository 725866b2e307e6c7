package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// Metrics exposes run counters in Prometheus text exposition format. The
// counters themselves live on types.RunStats so the engine stays free of
// any HTTP concern; this handler only reads them.
type Metrics struct {
	stats      *types.RunStats
	queueDepth func() int
	logger     *slog.Logger
}

// NewMetrics wraps the run counters for HTTP exposition. queueDepth reports
// the current frontier depth and may be nil.
func NewMetrics(stats *types.RunStats, queueDepth func() int, logger *slog.Logger) *Metrics {
	return &Metrics{
		stats:      stats,
		queueDepth: queueDepth,
		logger:     logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	counters := []struct {
		name  string
		help  string
		value int64
	}{
		{"gradharvest_entries_attempted_total", "Detail fetches attempted", m.stats.Attempted.Load()},
		{"gradharvest_entries_succeeded_total", "Entries fetched and parsed successfully", m.stats.Succeeded.Load()},
		{"gradharvest_entries_failed_total", "Entries that exhausted retries or failed to parse", m.stats.Failed.Load()},
		{"gradharvest_entries_duplicate_total", "Duplicate entry ids dropped", m.stats.Duplicates.Load()},
		{"gradharvest_pages_walked_total", "Listing pages fetched", m.stats.PagesWalked.Load()},
		{"gradharvest_page_failures_total", "Listing page fetch failures", m.stats.PageFailures.Load()},
	}

	for _, c := range counters {
		fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", c.name)
		fmt.Fprintf(w, "%s %d\n", c.name, c.value)
	}

	depth := int64(0)
	if m.queueDepth != nil {
		depth = int64(m.queueDepth())
	}
	fmt.Fprintf(w, "# HELP gradharvest_frontier_depth Stubs waiting in the frontier\n")
	fmt.Fprintf(w, "# TYPE gradharvest_frontier_depth gauge\n")
	fmt.Fprintf(w, "gradharvest_frontier_depth %d\n", depth)

	fmt.Fprintf(w, "# HELP gradharvest_run_duration_seconds Seconds since the run started\n")
	fmt.Fprintf(w, "# TYPE gradharvest_run_duration_seconds gauge\n")
	fmt.Fprintf(w, "gradharvest_run_duration_seconds %.0f\n", time.Since(m.stats.StartTime).Seconds())
}

// StartServer starts the metrics HTTP server in the background.
func (m *Metrics) StartServer(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
}
