// Package api is the HTTP collaborator around the sync engine: it feeds
// text into the model, issues mutation requests, drives mode switches,
// and republishes engine events. The engine itself does no I/O.
package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/docsync/docsync/internal/config"
	"github.com/docsync/docsync/internal/event"
	"github.com/docsync/docsync/internal/model"
	"github.com/docsync/docsync/internal/viewmode"
)

// Server is the HTTP API server for docsync.
type Server struct {
	router chi.Router
	log    *slog.Logger
	cfg    config.Config

	// The engine is single-threaded; one mutex at this boundary
	// serializes all access to it.
	mu     sync.Mutex
	model  *model.Model
	view   *viewmode.Manager
	events *eventLog
}

// NewServer creates and configures the HTTP server. It subscribes to the
// engine's events and keeps a bounded log of them for GET /api/events.
func NewServer(m *model.Model, v *viewmode.Manager, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		model:  m,
		view:   v,
		log:    log,
		cfg:    cfg,
		events: newEventLog(cfg.EventBufferSize),
	}
	m.Subscribe(func(e event.Event) {
		s.events.append(e)
	})
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Put("/api/document", s.handleLoadDocument)
		r.Get("/api/document", s.handleGetDocument)
		r.Get("/api/source", s.handleGetSource)
		r.Get("/api/formats", s.handleListFormats)

		r.Post("/api/nodes", s.handleAddNode)
		r.Get("/api/nodes/{nodeID}", s.handleGetNode)
		r.Patch("/api/nodes/{nodeID}", s.handleUpdateNode)
		r.Delete("/api/nodes/{nodeID}", s.handleDeleteNode)
		r.Post("/api/nodes/{nodeID}/move", s.handleMoveNode)

		r.Get("/api/mode", s.handleGetMode)
		r.Post("/api/mode/{mode}", s.handleSwitchMode)

		r.Get("/api/events", s.handleListEvents)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
