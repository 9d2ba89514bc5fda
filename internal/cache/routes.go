package cache

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type clearRequest struct {
	Project string `json:"project,omitempty"`
	Intent  string `json:"intent,omitempty"`
	Expired bool   `json:"expired,omitempty"`
	All     bool   `json:"all,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// RegisterRoutes mounts the cache inspection and maintenance endpoints.
func (c *Cache) RegisterRoutes(r chi.Router) {
	r.Get("/api/cache/stats", c.handleStats)
	r.Post("/api/cache/clear", c.handleClear)
	r.Get("/api/cache/invalidations", c.handleInvalidations)
}

func (c *Cache) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.Statistics())
}

func (c *Cache) handleClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "api request"
	}

	var cleared int64
	var err error
	switch {
	case req.Project != "":
		cleared, err = c.ClearByProject(req.Project, reason)
	case req.Intent != "":
		cleared, err = c.ClearByIntent(req.Intent, reason)
	case req.Expired:
		cleared, err = c.ClearExpired()
	case req.All:
		cleared, err = c.ClearAll(reason)
	default:
		http.Error(w, "one of project, intent, expired, or all is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "clear failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"cleared": cleared})
}

func (c *Cache) handleInvalidations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	invalidations, err := c.Invalidations(limit)
	if err != nil {
		http.Error(w, "query failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, invalidations)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
