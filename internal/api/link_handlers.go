package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"colourstream/internal/logging"
	"colourstream/internal/objectstore"
	"colourstream/internal/store"
)

type createUploadLinkRequest struct {
	ClientName  string     `json:"clientName"`
	ProjectName string     `json:"projectName"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

func (s *Server) handleUploadLinks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		links, err := s.deps.Store.ListUploadLinks(r.Context())
		if err != nil {
			s.log().Error("upload link list failed", logging.Error(err))
			s.writeError(w, http.StatusInternalServerError, "upload link list failed")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"links": links})
	case http.MethodPost:
		var req createUploadLinkRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.ClientName) == "" || strings.TrimSpace(req.ProjectName) == "" {
			s.writeError(w, http.StatusBadRequest, "clientName and projectName are required")
			return
		}
		link := &store.UploadLink{
			Token:       strings.ReplaceAll(uuid.NewString(), "-", ""),
			ClientName:  strings.TrimSpace(req.ClientName),
			ProjectName: strings.TrimSpace(req.ProjectName),
			ExpiresAt:   req.ExpiresAt,
		}
		if err := s.deps.Store.CreateUploadLink(r.Context(), link); err != nil {
			s.log().Error("upload link create failed", logging.Error(err))
			s.writeError(w, http.StatusInternalServerError, "upload link create failed")
			return
		}
		s.writeJSON(w, http.StatusCreated, link)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleUploadLinkItem(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.URL.Path, "/api/upload-links/")
	if token == "" || strings.Contains(token, "/") {
		s.writeError(w, http.StatusNotFound, "upload link not found")
		return
	}
	if r.Method != http.MethodDelete {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	purge := r.URL.Query().Get("purge") == "true"
	if purge && s.deps.Objects == nil {
		s.writeError(w, http.StatusServiceUnavailable, "object storage unavailable")
		return
	}

	// The link is fetched before deletion so the purge still knows which
	// client/project prefix to clear.
	link, err := s.deps.Store.GetUploadLink(r.Context(), token)
	if err != nil {
		s.log().Error("upload link lookup failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "upload link lookup failed")
		return
	}
	if link == nil {
		s.writeError(w, http.StatusNotFound, "upload link not found")
		return
	}
	if _, err := s.deps.Store.DeleteUploadLink(r.Context(), token); err != nil {
		s.log().Error("upload link delete failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "upload link delete failed")
		return
	}

	resp := map[string]any{"status": "deleted"}
	if purge {
		prefix := objectstore.ObjectPrefix(link.ClientName, link.ProjectName)
		removed, err := s.deps.Objects.DeletePrefix(r.Context(), prefix)
		if err != nil {
			s.log().Error("upload purge failed",
				logging.String("prefix", prefix), logging.Error(err))
			s.writeError(w, http.StatusBadGateway, "upload purge failed")
			return
		}
		resp["objectsRemoved"] = removed
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// resolveUploadLink validates an upload token and bumps its usage counter.
// It returns nil (after writing the error response) when the token is
// missing, unknown, or expired.
func (s *Server) resolveUploadLink(w http.ResponseWriter, r *http.Request, token string) *store.UploadLink {
	token = strings.TrimSpace(token)
	if token == "" {
		s.writeError(w, http.StatusUnauthorized, "upload token is required")
		return nil
	}
	link, err := s.deps.Store.GetUploadLink(r.Context(), token)
	if err != nil {
		s.log().Error("upload link lookup failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "upload link lookup failed")
		return nil
	}
	if link == nil || link.Expired(time.Now()) {
		s.writeError(w, http.StatusUnauthorized, "invalid upload token")
		return nil
	}
	if err := s.deps.Store.TouchUploadLink(r.Context(), token); err != nil {
		s.log().Warn("upload link touch failed", logging.Error(err))
	}
	return link
}
