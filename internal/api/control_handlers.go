package api

import (
	"net/http"
	"strings"

	"colourstream/internal/logging"
	"colourstream/internal/obs"
)

type obsSettingsRequest struct {
	Server string `json:"server"`
	Key    string `json:"key,omitempty"`
}

func (s *Server) handleOBSSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.deps.OBS == nil {
		s.writeError(w, http.StatusServiceUnavailable, "obs control unavailable")
		return
	}
	var req obsSettingsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Server) == "" {
		s.writeError(w, http.StatusBadRequest, "server is required")
		return
	}
	err := s.deps.OBS.SetStreamSettings(r.Context(), obs.StreamSettings{
		Server: req.Server,
		Key:    req.Key,
	})
	if err != nil {
		s.log().Error("obs settings update failed", logging.Error(err))
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleOBSStart(w http.ResponseWriter, r *http.Request) {
	s.obsAction(w, r, "start", func() error {
		return s.deps.OBS.StartStream(r.Context())
	})
}

func (s *Server) handleOBSStop(w http.ResponseWriter, r *http.Request) {
	s.obsAction(w, r, "stop", func() error {
		return s.deps.OBS.StopStream(r.Context())
	})
}

func (s *Server) obsAction(w http.ResponseWriter, r *http.Request, action string, run func() error) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.deps.OBS == nil {
		s.writeError(w, http.StatusServiceUnavailable, "obs control unavailable")
		return
	}
	if err := run(); err != nil {
		s.log().Error("obs stream "+action+" failed", logging.Error(err))
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": action + "ed"})
}

func (s *Server) handleOBSStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.deps.OBS == nil {
		s.writeError(w, http.StatusServiceUnavailable, "obs control unavailable")
		return
	}
	status, err := s.deps.OBS.GetStreamStatus(r.Context())
	if err != nil {
		s.log().Error("obs status fetch failed", logging.Error(err))
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

const defaultVHost = "default"

func (s *Server) handleOMEStreams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.deps.OME == nil {
		s.writeError(w, http.StatusServiceUnavailable, "media engine unavailable")
		return
	}
	app := r.URL.Query().Get("app")
	if app == "" {
		s.writeError(w, http.StatusBadRequest, "app is required")
		return
	}
	streams, err := s.deps.OME.ListStreams(r.Context(), defaultVHost, app)
	if err != nil {
		s.log().Error("stream list failed", logging.Error(err))
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"streams": streams})
}

func (s *Server) handleOMEStreamStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.deps.OME == nil {
		s.writeError(w, http.StatusServiceUnavailable, "media engine unavailable")
		return
	}
	stream := strings.TrimPrefix(r.URL.Path, "/api/ome/streams/")
	if stream == "" || strings.Contains(stream, "/") {
		s.writeError(w, http.StatusNotFound, "stream not found")
		return
	}
	app := r.URL.Query().Get("app")
	if app == "" {
		s.writeError(w, http.StatusBadRequest, "app is required")
		return
	}
	stats, err := s.deps.OME.GetStreamStats(r.Context(), defaultVHost, app, stream)
	if err != nil {
		s.log().Error("stream stats fetch failed", logging.Error(err))
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}
