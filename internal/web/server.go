// Package web provides the HTTP server and handlers for the inventory UI.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/JonMunkholm/wardrobe/internal/config"
	"github.com/JonMunkholm/wardrobe/internal/core"
	"github.com/JonMunkholm/wardrobe/internal/imaging"
	"github.com/JonMunkholm/wardrobe/internal/logging"
	webmw "github.com/JonMunkholm/wardrobe/internal/web/middleware"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server for the inventory application.
type Server struct {
	cfg      *config.Config
	store    *core.Store
	storage  Pinger
	importer *core.Importer
	imports  *core.ImportLimiter
	images   imaging.Processor

	// Identity and clock for items created through the API.
	newID func() string
	now   func() time.Time

	router   *chi.Mux
	server   *http.Server
	limiters []*rateLimiter
}

// NewServer creates a new Server instance. storage may be nil.
func NewServer(cfg *config.Config, store *core.Store, storage Pinger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		storage:  storage,
		importer: core.NewImporter(),
		imports:  core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWait),
		images: imaging.Processor{
			MaxDimension: cfg.Images.MaxDimension,
			Quality:      cfg.Images.JPEGQuality,
			MaxPixels:    cfg.Images.MaxPixels,
		},
		newID:  uuid.NewString,
		now:    time.Now,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(webmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Pages
	s.router.Get("/", s.handleCatalog)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)

		// Items
		r.Get("/items", s.handleListItems)
		r.Post("/items", s.handleCreateItem)
		r.Post("/items/blank", s.handleAddBlank)
		r.Post("/items/bulk-edit", s.handleBulkEdit)
		r.Post("/items/delete", s.handleDeleteItems)
		r.Get("/items/{id}", s.handleGetItem)
		r.Put("/items/{id}", s.handleUpdateItem)
		r.Patch("/items/{id}", s.handlePatchItem)

		r.Post("/price-paid", s.handlePricePaid)

		// Export
		r.Get("/export/json", s.handleExportJSON)
		r.Get("/export/csv", s.handleExportCSV)

		// File uploads get a tighter per-IP budget.
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(s.newRateLimiter(s.cfg.Rate.ImportLimit).middleware)
			}
			r.Post("/import/csv", s.handleImportCSV)
			r.Post("/import/json", s.handleImportJSON)
			r.Post("/images", s.handleUploadImage)
		})
	})
}

// newRateLimiter creates a per-minute limiter owned by the server.
func (s *Server) newRateLimiter(perMinute int) *rateLimiter {
	rl := newRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for running imports.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.imports.WaitForDrain(ctx)
}

// ImportStatus reports how many imports are running.
func (s *Server) ImportStatus() core.ImportLimiterStatus {
	return s.imports.Status()
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// Item photos are embedded as data URIs or linked from the web.
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self'")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
