package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/wardrobe/internal/core"
	"github.com/JonMunkholm/wardrobe/internal/logging"
	"github.com/JonMunkholm/wardrobe/internal/web/templates"
)

// healthPingTimeout bounds the storage check in /healthz.
const healthPingTimeout = 2 * time.Second

// handleCatalog renders the catalog page for the current query.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	q := parseQuery(r)
	page := templates.CatalogPage{
		Query:  q,
		Result: core.Run(s.store.Items(), q),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Catalog(page).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render catalog", "error", err)
	}
}

// handleHealth reports liveness, storage reachability and import load.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	resp := map[string]any{
		"status":  "ok",
		"items":   s.store.Len(),
		"imports": s.imports.Status(),
	}

	if s.storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if err := s.storage.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Error("storage health check failed", "error", err)
			status = http.StatusServiceUnavailable
			resp["status"] = "unavailable"
			resp["storage"] = core.MapError(err).Message
		}
	}

	writeJSON(w, r, status, resp)
}
