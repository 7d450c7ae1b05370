package api

import (
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/dgallion1/docview/internal/nav"
	"github.com/dgallion1/docview/internal/parser"
	"github.com/dgallion1/docview/internal/viewer"
)

// handleMarkdown serves raw markdown for the loader to fetch.
func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	if !parser.IsMarkdown(r.URL.Path) {
		jsonError(w, "not a markdown document: "+r.URL.Path, http.StatusNotFound)
		return
	}
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	data, err := fs.ReadFile(s.docs, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			jsonError(w, "document not found: "+r.URL.Path, http.StatusNotFound)
			return
		}
		s.log.Error("read document failed", "path", r.URL.Path, "error", err)
		jsonError(w, "failed to read document", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write(data)
}

type pageData struct {
	SiteTitle string
	SessionID string
	Mode      string
	Band      float64
	Phase     viewer.Phase
	Error     string
	Groups    []viewer.Group
	Nav       nav.State
	Content   template.HTML // Trusted: rendered from our own documents
}

// handleIndex starts a session and renders the page for it.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.newSession(r.Context())

	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		jsonError(w, "failed to read session: "+err.Error(), http.StatusInternalServerError)
		return
	}

	data := pageData{
		SiteTitle: s.cfg.SiteTitle,
		SessionID: snap.ID,
		Mode:      s.cfg.ObserverMode,
		Band:      s.cfg.ActiveBand,
		Phase:     snap.Phase,
		Error:     snap.Error,
		Groups:    snap.Groups,
		Nav:       snap.Nav,
		Content:   template.HTML(snap.HTML),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.log.Error("render page failed", "session_id", snap.ID, "error", err)
	}
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))).ServeHTTP(w, r)
}
