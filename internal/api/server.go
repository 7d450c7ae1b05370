package api

import (
	"context"
	"encoding/json"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dgallion1/docview/internal/config"
	"github.com/dgallion1/docview/internal/content"
	"github.com/dgallion1/docview/internal/docs"
	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/viewer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
)

// Server is the HTTP server for docview.
type Server struct {
	router   chi.Router
	store    *viewer.Store
	loader   *content.Loader
	docs     fs.FS
	page     *template.Template
	upgrader websocket.Upgrader
	opts     viewer.Options
	log      *slog.Logger
	cfg      config.Config

	// Sessions outlive the request that created them.
	baseCtx context.Context
}

// NewServer creates and configures the HTTP server. Sessions are bound to
// ctx and stop when it is canceled.
func NewServer(ctx context.Context, store *viewer.Store, loader *content.Loader, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store:   store,
		loader:  loader,
		docs:    docs.FS,
		page:    pageTemplate,
		log:     log,
		cfg:     cfg,
		baseCtx: ctx,
		opts: viewer.Options{
			Settle:       cfg.SettleDelay,
			CopyFeedback: cfg.CopyFeedback,
			Mode:         viewer.ObserverMode(cfg.ObserverMode),
			Band:         cfg.ActiveBand,
			Titles: map[doctree.ContentSource]string{
				doctree.Primary:   cfg.PrimaryTitle,
				doctree.Reference: cfg.ReferenceTitle,
			},
		},
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	if cfg.DocsDir != "" {
		s.docs = os.DirFS(cfg.DocsDir)
	}
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
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleIndex)
	r.Get("/static/*", s.handleStatic)

	// The two documents the loader fetches.
	r.Get(s.cfg.PrimaryPath, s.handleMarkdown)
	r.Get(s.cfg.ReferencePath, s.handleMarkdown)

	r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Delete("/", s.handleDeleteSession)
		r.Get("/sections", s.handleSections)
		r.Post("/select", s.handleSelect)
		r.Post("/sidebar", s.handleSidebar)
	})

	r.Get("/ws", s.handleWebSocket)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.store.Len(),
		"loads":    s.loader.Stats(),
	})
}

// newSession creates, loads and registers a session. A failed load still
// yields a session in the failed phase so the page can show the error.
func (s *Server) newSession(ctx context.Context) *viewer.Session {
	sess := viewer.NewSession(s.baseCtx, s.loader, s.opts, s.log)
	s.store.Put(sess)

	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.FetchTimeout+5*time.Second)
	defer cancel()
	if err := sess.Load(loadCtx); err != nil {
		s.log.Warn("session load failed", "session_id", sess.ID, "error", err)
	}
	return sess
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
