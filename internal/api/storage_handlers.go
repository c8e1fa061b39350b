package api

import (
	"net/http"
	"strconv"
	"strings"

	"colourstream/internal/logging"
	"colourstream/internal/objectstore"
	"colourstream/internal/uploads"
)

type presignUploadRequest struct {
	Token    string `json:"token"`
	Filename string `json:"filename"`
}

// handlePresignUpload hands browsers a time limited PUT URL so files can go
// straight to object storage. Completion is reported back through the
// s3-callback and client progress endpoints.
func (s *Server) handlePresignUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.deps.Objects == nil {
		s.writeError(w, http.StatusServiceUnavailable, "object storage unavailable")
		return
	}
	var req presignUploadRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		s.writeError(w, http.StatusBadRequest, "filename is required")
		return
	}
	link := s.resolveUploadLink(w, r, req.Token)
	if link == nil {
		return
	}

	key := objectstore.ObjectKey(link.ClientName, link.ProjectName, req.Filename)
	url, err := s.deps.Objects.PresignPut(r.Context(), key)
	if err != nil {
		s.log().Error("upload presign failed", logging.Error(err))
		s.writeError(w, http.StatusBadGateway, "upload presign failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"url": url,
		"key": key,
	})
}

// handleStorageObject serves the admin-side object operations: a presigned
// download URL on GET and object removal on DELETE.
func (s *Server) handleStorageObject(w http.ResponseWriter, r *http.Request) {
	if s.deps.Objects == nil {
		s.writeError(w, http.StatusServiceUnavailable, "object storage unavailable")
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		s.writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		exists, err := s.deps.Objects.Exists(r.Context(), key)
		if err != nil {
			s.log().Error("object lookup failed", logging.Error(err))
			s.writeError(w, http.StatusBadGateway, "object lookup failed")
			return
		}
		if !exists {
			s.writeError(w, http.StatusNotFound, "object not found")
			return
		}
		url, err := s.deps.Objects.PresignGet(r.Context(), key)
		if err != nil {
			s.log().Error("download presign failed", logging.Error(err))
			s.writeError(w, http.StatusBadGateway, "download presign failed")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"url": url})
	case http.MethodDelete:
		if err := s.deps.Objects.Delete(r.Context(), key); err != nil {
			s.log().Error("object delete failed", logging.Error(err))
			s.writeError(w, http.StatusBadGateway, "object delete failed")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type multipartCreateRequest struct {
	Token       string `json:"token"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
}

// handleMultipartCreate opens a multipart session in object storage and
// returns the identifiers the client needs to sign parts.
func (s *Server) handleMultipartCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.deps.Objects == nil {
		s.writeError(w, http.StatusServiceUnavailable, "object storage unavailable")
		return
	}
	var req multipartCreateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		s.writeError(w, http.StatusBadRequest, "filename is required")
		return
	}
	link := s.resolveUploadLink(w, r, req.Token)
	if link == nil {
		return
	}

	key := objectstore.ObjectKey(link.ClientName, link.ProjectName, req.Filename)
	uploadID, err := s.deps.Objects.CreateMultipart(r.Context(), key, req.ContentType)
	if err != nil {
		s.log().Error("multipart create failed", logging.Error(err))
		s.writeError(w, http.StatusBadGateway, "multipart create failed")
		return
	}

	s.deps.Tracker.Track(uploads.Record{
		ID:   "s3-" + uploadID,
		Size: 0,
		Metadata: map[string]string{
			uploads.MetaFilename: req.Filename,
			uploads.MetaClient:   link.ClientName,
			uploads.MetaProject:  link.ProjectName,
			uploads.MetaToken:    link.Token,
			uploads.MetaStorage:  "s3",
		},
	})
	s.writeJSON(w, http.StatusCreated, map[string]string{
		"uploadId": uploadID,
		"key":      key,
	})
}

type multipartCompleteRequest struct {
	Key   string                    `json:"key"`
	Parts []objectstore.CompletedPart `json:"parts"`
}

// handleMultipartItem routes the per-session multipart operations:
//
//	GET    /api/upload/multipart/{uploadId}?key=&partNumber=  sign one part
//	POST   /api/upload/multipart/{uploadId}/complete          finalize
//	DELETE /api/upload/multipart/{uploadId}?key=              abort
func (s *Server) handleMultipartItem(w http.ResponseWriter, r *http.Request) {
	if s.deps.Objects == nil {
		s.writeError(w, http.StatusServiceUnavailable, "object storage unavailable")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/upload/multipart/")
	uploadID, action, _ := strings.Cut(rest, "/")
	if uploadID == "" {
		s.writeError(w, http.StatusNotFound, "multipart session not found")
		return
	}

	switch {
	case r.Method == http.MethodGet && action == "":
		key := r.URL.Query().Get("key")
		partNumber, err := strconv.ParseInt(r.URL.Query().Get("partNumber"), 10, 32)
		if key == "" || err != nil || partNumber < 1 {
			s.writeError(w, http.StatusBadRequest, "key and partNumber are required")
			return
		}
		url, err := s.deps.Objects.PresignPart(r.Context(), key, uploadID, int32(partNumber))
		if err != nil {
			s.log().Error("part presign failed", logging.Error(err))
			s.writeError(w, http.StatusBadGateway, "part presign failed")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"url": url})

	case r.Method == http.MethodPost && action == "complete":
		var req multipartCompleteRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if req.Key == "" || len(req.Parts) == 0 {
			s.writeError(w, http.StatusBadRequest, "key and parts are required")
			return
		}
		if err := s.deps.Objects.CompleteMultipart(r.Context(), req.Key, uploadID, req.Parts); err != nil {
			s.log().Error("multipart complete failed", logging.Error(err))
			s.writeError(w, http.StatusBadGateway, "multipart complete failed")
			return
		}
		s.deps.Tracker.Complete("s3-" + uploadID)
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "complete"})

	case r.Method == http.MethodDelete && action == "":
		key := r.URL.Query().Get("key")
		if key == "" {
			s.writeError(w, http.StatusBadRequest, "key is required")
			return
		}
		if err := s.deps.Objects.AbortMultipart(r.Context(), key, uploadID); err != nil {
			s.log().Error("multipart abort failed", logging.Error(err))
			s.writeError(w, http.StatusBadGateway, "multipart abort failed")
			return
		}
		s.deps.Tracker.Track(uploads.Record{
			ID:       "s3-" + uploadID,
			Metadata: map[string]string{uploads.MetaError: "multipart upload aborted"},
			Complete: true,
		})
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "aborted"})

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
