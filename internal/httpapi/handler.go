// Package httpapi exposes the run orchestrator over HTTP.
//
// Routes:
//
//	GET  /health        → liveness plus enabled jurisdiction ids (no auth)
//	GET  /scrapers      → jurisdiction inventory
//	POST /scrape/{id}   → run one jurisdiction, return its result
//	POST /scrape/batch  → run many jurisdictions, return results and totals
//
// Mutating routes require the X-API-Key header when a key is configured.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"rfpsonar/internal/config"
	"rfpsonar/internal/logger"
	"rfpsonar/internal/models"
)

// Runner is the orchestrator surface the API triggers.
type Runner interface {
	RunJurisdiction(ctx context.Context, id string) models.SyncResult
	RunBatch(ctx context.Context, ids []string) map[string]models.SyncResult
}

// Handler serves the trigger routes.
type Handler struct {
	cfg    *config.Config
	runner Runner
	log    *logger.Logger
}

// NewHandler returns a handler over the given runner.
func NewHandler(cfg *config.Config, runner Runner, log *logger.Logger) *Handler {
	return &Handler{
		cfg:    cfg,
		runner: runner,
		log:    log.With("component", "httpapi"),
	}
}

// RegisterRoutes mounts all trigger routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /scrapers", h.handleScrapers)
	mux.HandleFunc("POST /scrape/batch", h.requireKey(h.handleScrapeBatch))
	mux.HandleFunc("POST /scrape/{id}", h.requireKey(h.handleScrapeOne))
}

type healthResponse struct {
	Status        string   `json:"status"`
	Jurisdictions []string `json:"jurisdictions"`
}

type scraperInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	Enabled       bool   `json:"enabled"`
	RequiresLogin bool   `json:"requiresLogin"`
}

type batchRequest struct {
	Jurisdictions []string `json:"jurisdictions"`
}

type batchResponse struct {
	Results map[string]models.SyncResult `json:"results"`
	Status  map[string]models.RunStatus  `json:"status"`
	Totals  models.Totals                `json:"totals"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Jurisdictions: h.cfg.EnabledIDs(),
	})
}

func (h *Handler) handleScrapers(w http.ResponseWriter, r *http.Request) {
	infos := make([]scraperInfo, 0, len(h.cfg.Jurisdictions))
	for _, j := range h.cfg.Jurisdictions {
		infos = append(infos, scraperInfo{
			ID:            j.ID,
			Name:          j.Name,
			URL:           j.URL,
			Enabled:       j.Enabled,
			RequiresLogin: j.RequiresLogin(),
		})
	}

	h.writeJSON(w, http.StatusOK, infos)
}

func (h *Handler) handleScrapeOne(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.cfg.GetJurisdiction(id); !ok {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown jurisdiction %q", id))
		return
	}

	h.log.Info("scrape triggered", "jurisdiction", id, "remote", r.RemoteAddr)

	result := h.runner.RunJurisdiction(r.Context(), id)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleScrapeBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	for _, id := range req.Jurisdictions {
		if _, ok := h.cfg.GetJurisdiction(id); !ok {
			h.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown jurisdiction %q", id))
			return
		}
	}

	h.log.Info("batch triggered", "requested", len(req.Jurisdictions), "remote", r.RemoteAddr)

	results := h.runner.RunBatch(r.Context(), req.Jurisdictions)

	status := make(map[string]models.RunStatus, len(results))
	for id, res := range results {
		status[id] = res.Status
	}

	h.writeJSON(w, http.StatusOK, batchResponse{
		Results: results,
		Status:  status,
		Totals:  models.Summarize(results),
	})
}

// requireKey guards mutating routes. With no key configured the guard is a
// pass-through.
func (h *Handler) requireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		want := h.cfg.Server.APIKey()
		if want != "" && r.Header.Get("X-API-Key") != want {
			h.writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		next(w, r)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("response encode failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, code int, msg string) {
	h.writeJSON(w, code, map[string]string{"error": msg})
}
