package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type messageRequest struct {
	UserID   string `json:"user_id"`
	Text     string `json:"text"`
	Priority string `json:"priority,omitempty"`
	Project  string `json:"project,omitempty"`
}

type messageResponse struct {
	Response  string `json:"response"`
	RequestID string `json:"request_id"`
	Layer     string `json:"layer"`
	Intent    string `json:"intent,omitempty"`
	CacheHit  bool   `json:"cache_hit"`
}

// RegisterRoutes mounts the message dispatch endpoints.
func (g *Gateway) RegisterRoutes(r chi.Router) {
	r.Post("/api/messages", g.handleMessage)
	r.Post("/api/sessions/new", g.handleNewSession)
	r.Get("/api/status", g.handleStatus)
	r.Get("/api/chat/ws", g.handleChatWS)
}

func (g *Gateway) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Text == "" {
		http.Error(w, "user_id and text are required", http.StatusBadRequest)
		return
	}

	result := g.Dispatch(r.Context(), Request{
		UserID:   req.UserID,
		Text:     req.Text,
		Priority: req.Priority,
		Project:  req.Project,
	})

	writeJSON(w, http.StatusOK, messageResponse{
		Response:  result.Response,
		RequestID: result.RequestID,
		Layer:     string(result.Layer),
		Intent:    string(result.Intent),
		CacheHit:  result.CacheHit,
	})
}

func (g *Gateway) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": g.NewSession(r.Context(), req.UserID),
	})
}

func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": g.Status(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
