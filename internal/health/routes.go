package health

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the provider health endpoints. The snapshot
// store may be nil when persistence is disabled.
func RegisterRoutes(r chi.Router, tracker *Tracker, monitor *Monitor, store *SnapshotStore) {
	r.Get("/api/health/providers", func(w http.ResponseWriter, req *http.Request) {
		out := struct {
			System    SystemSnapshot `json:"system"`
			RateLimit Stats          `json:"rate_limits"`
		}{
			System:    monitor.Snapshot(req.Context()),
			RateLimit: tracker.Stats(),
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Get("/api/health/snapshots", func(w http.ResponseWriter, req *http.Request) {
		if store == nil {
			http.Error(w, "snapshot history is not enabled", http.StatusNotFound)
			return
		}

		limit := 50
		if raw := req.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		snapshots, err := store.Recent(req.URL.Query().Get("provider"), limit)
		if err != nil {
			http.Error(w, "query failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, snapshots)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
