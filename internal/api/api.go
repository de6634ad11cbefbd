// Package api exposes the inbound webhook endpoint and a small read-only
// records API for operators.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joescharf/revbot/internal/models"
	"github.com/joescharf/revbot/internal/router"
	"github.com/joescharf/revbot/internal/store"
)

// maxPayloadBytes bounds webhook request bodies.
const maxPayloadBytes = 25 << 20

// Server provides the HTTP handlers.
type Server struct {
	router *router.Router
	store  store.Store
	logger *slog.Logger
}

// NewServer creates the webhook API server.
func NewServer(r *router.Router, s store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{router: r, store: s, logger: logger}
}

// Router returns an http.Handler for all routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("GET /api/v1/records", s.listRecords)
	mux.HandleFunc("GET /api/v1/record", s.getRecord)
	mux.HandleFunc("GET /healthz", s.healthz)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleWebhook decodes a GitHub delivery and hands it to the event router.
// Deliveries that do not qualify are acknowledged with 200 so GitHub does not
// redeliver them.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	event := r.Header.Get("X-GitHub-Event")
	if event == "" {
		writeError(w, http.StatusBadRequest, "missing X-GitHub-Event header")
		return
	}

	var payload models.WebhookPayload
	body := http.MaxBytesReader(w, r.Body, maxPayloadBytes)
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode payload: %v", err))
		return
	}

	if err := s.router.Handle(r.Context(), event, payload); err != nil {
		s.logger.Error("webhook handling failed", "event", event, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := s.store.ListRecords(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// getRecord looks a record up by its canonical PR URL, passed in the "url"
// query parameter.
func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}
	rec, err := s.store.GetRecord(r.Context(), url)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
