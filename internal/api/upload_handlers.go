package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"colourstream/internal/logging"
	"colourstream/internal/objectstore"
	"colourstream/internal/uploads"
)

// tusHook is the webhook envelope emitted by a tusd server.
type tusHook struct {
	Type  string `json:"Type"`
	Event struct {
		Upload struct {
			ID       string            `json:"ID"`
			Size     int64             `json:"Size"`
			Offset   int64             `json:"Offset"`
			MetaData map[string]string `json:"MetaData"`
		} `json:"Upload"`
	} `json:"Event"`
}

func (s *Server) handleTusHook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var hook tusHook
	if !s.decodeJSON(w, r, &hook) {
		return
	}
	upload := hook.Event.Upload

	switch hook.Type {
	case "pre-create":
		// Reject the upload before tusd accepts any bytes when the token
		// is missing or expired.
		if link := s.resolveUploadLink(w, r, upload.MetaData[uploads.MetaToken]); link == nil {
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case "post-create", "post-receive":
		s.deps.Tracker.Track(uploads.Record{
			ID:       upload.ID,
			Size:     upload.Size,
			Offset:   upload.Offset,
			Metadata: upload.MetaData,
		})
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case "post-finish":
		s.deps.Tracker.Complete(upload.ID)
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case "post-terminate":
		meta := map[string]string{}
		for k, v := range upload.MetaData {
			meta[k] = v
		}
		meta[uploads.MetaError] = "upload terminated by client"
		s.deps.Tracker.Track(uploads.Record{
			ID:       upload.ID,
			Size:     upload.Size,
			Offset:   upload.Offset,
			Metadata: meta,
			Complete: true,
		})
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown hook type %q", hook.Type))
	}
}

// handleXHRUpload receives a whole file in one multipart form request,
// brokers it into object storage and reports progress around the transfer.
func (s *Server) handleXHRUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	link := s.resolveUploadLink(w, r, r.FormValue("token"))
	if link == nil {
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	id := "xhr-" + uuid.NewString()
	meta := map[string]string{
		uploads.MetaFilename: header.Filename,
		uploads.MetaFiletype: header.Header.Get("Content-Type"),
		uploads.MetaClient:   link.ClientName,
		uploads.MetaProject:  link.ProjectName,
		uploads.MetaToken:    link.Token,
		uploads.MetaStorage:  "s3",
	}
	s.deps.Tracker.Track(uploads.Record{
		ID:       id,
		Size:     header.Size,
		Offset:   0,
		Metadata: meta,
	})

	if s.deps.Objects == nil {
		s.failUpload(w, id, header.Size, meta, "object storage unavailable")
		return
	}
	key := objectstore.ObjectKey(link.ClientName, link.ProjectName, header.Filename)
	if err := s.deps.Objects.Put(r.Context(), key, file, header.Size, meta[uploads.MetaFiletype]); err != nil {
		s.log().Error("xhr upload store failed", logging.String(logging.FieldUploadID, id), logging.Error(err))
		s.failUpload(w, id, header.Size, meta, "storing upload failed")
		return
	}

	s.deps.Tracker.Track(uploads.Record{
		ID:       id,
		Size:     header.Size,
		Offset:   header.Size,
		Metadata: meta,
	})
	s.deps.Tracker.Complete(id)
	s.writeJSON(w, http.StatusOK, map[string]string{
		"uploadId": id,
		"key":      key,
	})
}

// failUpload records a terminal error state for an upload and answers the
// client. The tracker keeps the errored record for the retention window so
// operators can see what went wrong.
func (s *Server) failUpload(w http.ResponseWriter, id string, size int64, meta map[string]string, message string) {
	failed := map[string]string{}
	for k, v := range meta {
		failed[k] = v
	}
	failed[uploads.MetaError] = message
	s.deps.Tracker.Track(uploads.Record{
		ID:       id,
		Size:     size,
		Offset:   0,
		Metadata: failed,
		Complete: true,
	})
	s.writeError(w, http.StatusBadGateway, message)
}

type s3CallbackRequest struct {
	FileID      string `json:"fileId"`
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ClientName  string `json:"clientName"`
	ProjectName string `json:"projectName"`
}

// handleS3Callback accepts completion callbacks for uploads that went
// straight to object storage (browser direct or through Companion). These
// arrive as a single already-complete snapshot.
func (s *Server) handleS3Callback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req s3CallbackRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	var id string
	switch {
	case strings.TrimSpace(req.FileID) != "":
		id = "s3-" + req.FileID
	case strings.TrimSpace(req.Key) != "":
		id = "s3-companion-" + req.Key
	default:
		s.writeError(w, http.StatusBadRequest, "fileId or key is required")
		return
	}

	filename := req.Filename
	if filename == "" {
		filename = req.Key
	}
	s.deps.Tracker.Track(uploads.Record{
		ID:     id,
		Size:   req.Size,
		Offset: req.Size,
		Metadata: map[string]string{
			uploads.MetaFilename: filename,
			uploads.MetaClient:   req.ClientName,
			uploads.MetaProject:  req.ProjectName,
			uploads.MetaStorage:  "s3",
		},
	})
	s.deps.Tracker.Complete(id)
	s.writeJSON(w, http.StatusOK, map[string]string{"uploadId": id})
}

type clientProgressRequest struct {
	UploadID      string `json:"uploadId"`
	BytesUploaded int64  `json:"bytesUploaded"`
	BytesTotal    int64  `json:"bytesTotal"`
	Filename      string `json:"filename"`
	ClientName    string `json:"clientName"`
	ProjectName   string `json:"projectName"`
}

// handleClientProgress forwards browser-reported progress straight to the
// notifier. These snapshots never enter the tracker map, so they do not show
// up in the active or all listings; the browser is the only observer of
// direct-to-cloud transfers and its reports are treated as telemetry.
func (s *Server) handleClientProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req clientProgressRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UploadID) == "" {
		s.writeError(w, http.StatusBadRequest, "uploadId is required")
		return
	}

	if s.deps.Notifier != nil {
		rec := uploads.Record{
			ID:     req.UploadID,
			Size:   req.BytesTotal,
			Offset: req.BytesUploaded,
			Metadata: map[string]string{
				uploads.MetaFilename: req.Filename,
				uploads.MetaClient:   req.ClientName,
				uploads.MetaProject:  req.ProjectName,
			},
			Complete: req.BytesTotal > 0 && req.BytesUploaded >= req.BytesTotal,
		}
		if err := s.deps.Notifier.NotifyUploadProgress(r.Context(), rec); err != nil {
			s.log().Warn("client progress notification failed",
				logging.String(logging.FieldUploadID, req.UploadID),
				logging.Error(err))
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleActiveUploads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"uploads": s.deps.Tracker.Active()})
}

func (s *Server) handleAllUploads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"uploads": s.deps.Tracker.All()})
}

func (s *Server) handleUploadItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/upload/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "upload not found")
		return
	}
	rec, ok := s.deps.Tracker.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "upload not found")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}
