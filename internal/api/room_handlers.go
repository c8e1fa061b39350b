package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"colourstream/internal/logging"
	"colourstream/internal/rooms"
)

type createRoomRequest struct {
	Name      string     `json:"name"`
	Password  string     `json:"password,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.deps.Rooms.List(r.Context())
		if err != nil {
			s.log().Error("room list failed", logging.Error(err))
			s.writeError(w, http.StatusInternalServerError, "room list failed")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"rooms": list})
	case http.MethodPost:
		var req createRoomRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		room, err := s.deps.Rooms.Create(r.Context(), rooms.CreateParams{
			Name:      req.Name,
			Password:  req.Password,
			ExpiresAt: req.ExpiresAt,
		})
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if s.deps.Notifier != nil {
			if err := s.deps.Notifier.NotifyRoomCreated(r.Context(), room.Name); err != nil {
				s.log().Warn("room notification failed", logging.Error(err))
			}
		}
		s.writeJSON(w, http.StatusCreated, room)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type joinRoomRequest struct {
	DisplayName string `json:"displayName"`
	Password    string `json:"password,omitempty"`
	Presenter   bool   `json:"presenter,omitempty"`
}

func (s *Server) handleRoomItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	if rest == "" {
		s.writeError(w, http.StatusNotFound, "room not found")
		return
	}

	if id, found := strings.CutSuffix(rest, "/join"); found {
		s.handleRoomJoin(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		s.writeError(w, http.StatusNotFound, "room not found")
		return
	}
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		room, err := s.deps.Rooms.Get(r.Context(), rest)
		if err != nil {
			if errors.Is(err, rooms.ErrRoomNotFound) {
				s.writeError(w, http.StatusNotFound, "room not found")
				return
			}
			s.log().Error("room lookup failed", logging.Error(err))
			s.writeError(w, http.StatusInternalServerError, "room lookup failed")
			return
		}
		s.writeJSON(w, http.StatusOK, room)
	case http.MethodDelete:
		if err := s.deps.Rooms.Delete(r.Context(), rest); err != nil {
			if errors.Is(err, rooms.ErrRoomNotFound) {
				s.writeError(w, http.StatusNotFound, "room not found")
				return
			}
			s.log().Error("room delete failed", logging.Error(err))
			s.writeError(w, http.StatusInternalServerError, "room delete failed")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleRoomJoin is the one public room route: guests exchange the room
// password for a signed conference link.
func (s *Server) handleRoomJoin(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req joinRoomRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		s.writeError(w, http.StatusBadRequest, "displayName is required")
		return
	}

	// Presenter links are only handed to authenticated admins.
	if req.Presenter {
		if _, ok := s.authenticate(w, r); !ok {
			return
		}
	}

	link, err := s.deps.Rooms.JoinLink(r.Context(), id, req.DisplayName, req.Password, req.Presenter)
	if err != nil {
		switch {
		case errors.Is(err, rooms.ErrRoomNotFound):
			s.writeError(w, http.StatusNotFound, "room not found")
		case errors.Is(err, rooms.ErrWrongPassword):
			s.writeError(w, http.StatusUnauthorized, "wrong room password")
		default:
			s.log().Error("room join failed", logging.Error(err))
			s.writeError(w, http.StatusInternalServerError, "room join failed")
		}
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"joinUrl": link})
}
