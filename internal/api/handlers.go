package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"musicscan/internal/identification"
	"musicscan/internal/logging"
	"musicscan/internal/scan"
	"musicscan/internal/store"
)

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.identifier == nil {
		s.writeError(w, http.StatusServiceUnavailable, "identification pipeline unavailable")
		return
	}

	var body ScanRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, "request body required")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	kinds := make([]scan.ImageKind, 0, len(body.ImageKinds))
	for _, raw := range body.ImageKinds {
		kind, err := scan.ParseImageKind(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		kinds = append(kinds, kind)
	}

	outcome, err := s.identifier.Identify(r.Context(), identification.Request{
		SessionID:  body.SessionID,
		UserID:     body.UserID,
		ImageURLs:  body.ImageURLs,
		ImageKinds: kinds,
	})
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "scan failed", "scan_failed",
				logging.Error(err),
				logging.Int("http_status", status))
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, FromOutcome(outcome))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		s.writeJSON(w, http.StatusOK, SessionListResponse{Sessions: []scan.SessionSummary{}})
		return
	}

	query := r.URL.Query()
	var filter store.ListFilter
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := scan.ParseSessionStatus(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(query.Get("matchStatus")); raw != "" {
		status, err := scan.ParseMatchStatus(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.MatchStatus = status
	}
	filter.UserID = strings.TrimSpace(query.Get("userId"))
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		filter.Limit = limit
	}

	sessions, err := s.sessions.ListSessions(r.Context(), filter)
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	if sessions == nil {
		sessions = []scan.SessionSummary{}
	}
	s.writeJSON(w, http.StatusOK, SessionListResponse{Sessions: sessions})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		s.writeError(w, http.StatusNotFound, "scan session not found")
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	detail, err := s.sessions.GetSessionDetail(r.Context(), id)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusNotFound {
			s.writeError(w, status, "scan session not found")
			return
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "ok", Model: s.model}
	status := http.StatusOK
	if s.sessions == nil {
		resp.Database = "unavailable"
	} else if err := s.sessions.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}
