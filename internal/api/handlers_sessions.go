package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/viewer"
	"github.com/go-chi/chi/v5"
)

type selectRequest struct {
	Source string `json:"source"`
	ID     string `json:"id"`
}

type sidebarRequest struct {
	Open *bool `json:"open"` // Omitted toggles
}

// session looks up the session named in the URL, writing a 404 if absent.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *viewer.Session {
	id := chi.URLParam(r, "sessionID")
	sess := s.store.Get(id)
	if sess == nil {
		jsonError(w, "session not found: "+id, http.StatusNotFound)
	}
	return sess
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		jsonError(w, "failed to read session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	s.store.Delete(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	sections, err := sess.Sections(r.Context())
	if err != nil {
		jsonError(w, "failed to read sections: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if sections == nil {
		sections = []doctree.Section{}
	}
	writeJSON(w, map[string]any{"sections": sections})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	src, err := doctree.ParseSource(req.Source)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		jsonError(w, "id is required", http.StatusBadRequest)
		return
	}

	if err := sess.Select(r.Context(), src, req.ID); err != nil {
		jsonError(w, err.Error(), selectStatus(err))
		return
	}
	// Let a cross-source scroll run before reporting state.
	if err := sess.Sync(r.Context()); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, sess.Navigation())
}

func selectStatus(err error) int {
	switch {
	case errors.Is(err, viewer.ErrUnknownSection):
		return http.StatusNotFound
	case errors.Is(err, viewer.ErrNotReady):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleSidebar(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}

	var req sidebarRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	var err error
	if req.Open == nil {
		err = sess.ToggleSidebar(r.Context())
	} else {
		err = sess.SetSidebar(r.Context(), *req.Open)
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, sess.Navigation())
}
