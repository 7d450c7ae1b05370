package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/scroll"
	"github.com/dgallion1/docview/internal/viewer"
	"github.com/gorilla/websocket"
)

// checkOrigin applies allowed_origins to websocket upgrades, which the
// CORS middleware does not cover. Requests without an Origin header and
// same-host pages are always accepted.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// clientMessage is the incoming WebSocket message format.
type clientMessage struct {
	Type string `json:"type"` // select, sidebar, visibility, layout, scroll, copy

	Source string `json:"source,omitempty"`
	ID     string `json:"id,omitempty"`

	Open *bool `json:"open,omitempty"`

	Entries  []scroll.Entry `json:"entries,omitempty"`
	Boxes    []scroll.Box   `json:"boxes,omitempty"`
	Viewport float64        `json:"viewport,omitempty"`
	Top      float64        `json:"top,omitempty"`

	Index int `json:"index,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	sess := s.store.Get(id)
	if sess == nil {
		jsonError(w, "session not found: "+id, http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "session_id", id, "error", err)
		return
	}
	defer conn.Close()

	log := s.log.With("session_id", id)
	ctx := r.Context()

	out := make(chan viewer.Event, 64)
	done := make(chan struct{})
	defer close(done)

	send := func(ev viewer.Event) {
		select {
		case out <- ev:
		case <-done:
		default:
			log.Warn("websocket send buffer full, dropping event", "type", ev.Type)
		}
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case ev := <-out:
				if err := conn.WriteJSON(ev); err != nil {
					log.Debug("websocket write failed", "error", err)
					conn.Close()
					return
				}
			}
		}
	}()

	cancel, err := sess.Connect(ctx, send)
	if err != nil {
		log.Warn("attach to session failed", "error", err)
		return
	}
	defer cancel()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			send(viewer.Event{Type: viewer.EventError, Error: "invalid message format"})
			continue
		}
		if err := s.dispatch(r, sess, msg); err != nil {
			log.Warn("websocket message rejected", "type", msg.Type, "error", err)
			send(viewer.Event{Type: viewer.EventError, Error: err.Error()})
		}
	}
}

func (s *Server) dispatch(r *http.Request, sess *viewer.Session, msg clientMessage) error {
	ctx := r.Context()
	switch msg.Type {
	case "select":
		src, err := doctree.ParseSource(msg.Source)
		if err != nil {
			return err
		}
		return sess.Select(ctx, src, msg.ID)
	case "sidebar":
		if msg.Open == nil {
			return sess.ToggleSidebar(ctx)
		}
		return sess.SetSidebar(ctx, *msg.Open)
	case "visibility":
		return sess.Visibility(msg.Entries)
	case "layout":
		return sess.Layout(msg.Boxes, msg.Viewport)
	case "scroll":
		return sess.Scroll(msg.Top)
	case "copy":
		return sess.Copy(ctx, msg.Index)
	default:
		return errors.New("unknown message type: " + msg.Type)
	}
}
