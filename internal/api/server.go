package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"colourstream/internal/auth"
	"colourstream/internal/config"
	"colourstream/internal/logging"
	"colourstream/internal/notifications"
	"colourstream/internal/objectstore"
	"colourstream/internal/obs"
	"colourstream/internal/ome"
	"colourstream/internal/rooms"
	"colourstream/internal/store"
	"colourstream/internal/uploads"
)

// Deps carries the services the HTTP layer dispatches into. OBS, OME and
// object storage are optional; their routes answer 503 when unset.
type Deps struct {
	Store    *store.Store
	Auth     *auth.Service
	Rooms    *rooms.Service
	Tracker  *uploads.Tracker
	Notifier notifications.Service
	OBS      *obs.Client
	OME      *ome.Client
	Objects  *objectstore.Client
}

// Server serves the colourstream HTTP API.
type Server struct {
	bind   string
	logger *slog.Logger
	deps   Deps

	listener net.Listener
	server   *http.Server
}

// New builds a server bound to the address in cfg.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	bind := strings.TrimSpace(cfg.Server.APIBind)
	if bind == "" {
		return nil, errors.New("server.api_bind is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	srv := &Server{
		bind:   bind,
		logger: logger,
		deps:   deps,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", srv.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/auth/login", srv.handleLogin)
	mux.HandleFunc("/api/auth/password", srv.requireAuth(srv.handleChangePassword))

	mux.HandleFunc("/api/rooms", srv.requireAuth(srv.handleRooms))
	mux.HandleFunc("/api/rooms/", srv.handleRoomItem)

	mux.HandleFunc("/api/upload-links", srv.requireAuth(srv.handleUploadLinks))
	mux.HandleFunc("/api/upload-links/", srv.requireAuth(srv.handleUploadLinkItem))

	mux.HandleFunc("/api/upload/hooks", srv.handleTusHook)
	mux.HandleFunc("/api/upload/xhr", srv.handleXHRUpload)
	mux.HandleFunc("/api/upload/s3-callback", srv.handleS3Callback)
	mux.HandleFunc("/api/upload/progress", srv.handleClientProgress)
	mux.HandleFunc("/api/upload/presign", srv.handlePresignUpload)
	mux.HandleFunc("/api/upload/multipart", srv.handleMultipartCreate)
	mux.HandleFunc("/api/upload/multipart/", srv.handleMultipartItem)
	mux.HandleFunc("/api/upload/active", srv.requireAuth(srv.handleActiveUploads))
	mux.HandleFunc("/api/upload/all", srv.requireAuth(srv.handleAllUploads))
	mux.HandleFunc("/api/upload/", srv.requireAuth(srv.handleUploadItem))

	mux.HandleFunc("/api/storage/object", srv.requireAuth(srv.handleStorageObject))

	mux.HandleFunc("/api/obs/settings", srv.requireAuth(srv.handleOBSSettings))
	mux.HandleFunc("/api/obs/stream/start", srv.requireAuth(srv.handleOBSStart))
	mux.HandleFunc("/api/obs/stream/stop", srv.requireAuth(srv.handleOBSStop))
	mux.HandleFunc("/api/obs/status", srv.requireAuth(srv.handleOBSStatus))

	mux.HandleFunc("/api/ome/streams", srv.requireAuth(srv.handleOMEStreams))
	mux.HandleFunc("/api/ome/streams/", srv.requireAuth(srv.handleOMEStreamStats))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Handler exposes the routing table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving in the background. The server shuts down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down immediately.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound listen address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	payload := map[string]any{"status": "ok"}
	if s.deps.Store != nil {
		if stats, err := s.deps.Store.Stats(r.Context()); err == nil {
			payload["rooms"] = stats.Rooms
			payload["uploadLinks"] = stats.UploadLinks
		}
	}
	if s.deps.Tracker != nil {
		payload["activeUploads"] = len(s.deps.Tracker.Active())
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(out); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}
