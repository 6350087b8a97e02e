package web

import (
	"net/http"
	"time"

	"groomdesk/internal/adapters/http/perf"
)

// handleAdminPerf handles GET /admin/perf?minutes=N (default 60).
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if _, ok := requireOwner(w, r); !ok {
		return
	}
	if perfCollector == nil {
		writeJSON(w, http.StatusOK, perf.Snapshot{})
		return
	}
	minutes := queryInt(r, "minutes", 60)
	since := timeNow().Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(since, 10))
}
