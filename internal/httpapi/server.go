package httpapi

import (
	"net/http"
	"time"

	"rfpsonar/internal/config"
)

// NewServer builds the trigger HTTP server with the handler's routes
// mounted. Scrape responses are written only after the run completes, so the
// write timeout has to outlast a full batch.
func NewServer(cfg *config.ServerConfig, h *Handler) *http.Server {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute,
	}
}
