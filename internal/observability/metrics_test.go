package observability

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/Pjroelofsen/gradharvest/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestMetricsExposition(t *testing.T) {
	stats := types.NewRunStats()
	stats.Attempted.Store(42)
	stats.Succeeded.Store(40)
	stats.Failed.Store(2)
	stats.PagesWalked.Store(7)

	m := NewMetrics(stats, func() int { return 3 }, testLogger)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}

	for _, want := range []string{
		"gradharvest_entries_attempted_total 42",
		"gradharvest_entries_succeeded_total 40",
		"gradharvest_entries_failed_total 2",
		"gradharvest_pages_walked_total 7",
		"gradharvest_frontier_depth 3",
		"# TYPE gradharvest_frontier_depth gauge",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMetricsNilQueueDepth(t *testing.T) {
	m := NewMetrics(types.NewRunStats(), nil, testLogger)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "gradharvest_frontier_depth 0") {
		t.Error("nil depth func should report 0")
	}
}
