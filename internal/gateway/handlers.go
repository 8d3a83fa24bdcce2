package gateway

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"vidaq/internal/ingest"
	"vidaq/internal/logging"
	"vidaq/internal/playback"
	"vidaq/internal/services"
)

const (
	uploadField = "video"
	pitchField  = "pitch"

	// multipartMemory is the part of a multipart body kept in memory; the
	// rest spills to temporary files.
	multipartMemory   = 32 << 20
	retryAfterSeconds = "5"
)

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status string `json:"status"`
	Items  int    `json:"items"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "upload exceeds the configured size limit")
			return
		}
		s.writeError(w, r, http.StatusBadRequest, "malformed multipart body")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	result, err := s.ingest.Ingest(r.Context(), ingest.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
		Pitch:       r.FormValue(pitchField),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeText(w, http.StatusOK, strconv.FormatInt(result.ItemID, 10))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, err := playback.ParseID(r.URL.Query().Get("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	url, err := s.playback.Locate(r.Context(), id, s.hostBaseURL(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeText(w, http.StatusOK, url)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.catalog.Count(r.Context())
	if err != nil {
		logging.WithContext(r.Context(), s.logger).Warn("health check failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "health_check_failed"),
			logging.String(logging.FieldErrorHint, "inspect the catalog database"),
			logging.String(logging.FieldImpact, "health endpoint reports unavailable"),
		)
		s.writeJSON(w, r, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}
	s.writeJSON(w, r, http.StatusOK, HealthResponse{Status: "ok", Items: count})
}

// hostBaseURL is the scheme://host prefix written into rewritten playlists.
func (s *Server) hostBaseURL(r *http.Request) string {
	if s.cfg.Server.PublicBaseURL != "" {
		return s.cfg.Server.PublicBaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if s.cfg.Server.TrustForwardedProto {
		switch proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); proto {
		case "http", "https":
			scheme = proto
		}
	}
	if r.Host == "" {
		return ""
	}
	return scheme + "://" + r.Host
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	logger := logging.WithContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logging.ErrorWithContext(logger, "request failed", "request_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ffmpeg output and catalog state"),
		)
		s.writeError(w, r, status, "internal error")
		return
	}
	logger.Info("request rejected", logging.Int("status", status), logging.Error(err))
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	s.writeError(w, r, status, err.Error())
}

func (s *Server) writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.WithContext(r.Context(), s.logger).Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeJSON(w, r, status, map[string]string{"error": message})
}
