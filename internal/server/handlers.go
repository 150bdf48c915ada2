package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/masterrlv/log-2/internal/auth"
	"github.com/masterrlv/log-2/internal/domain"
	"github.com/masterrlv/log-2/internal/search"
	"github.com/masterrlv/log-2/internal/uploads"
)

// maxUploadBytes caps the multipart form kept in memory per upload.
const maxUploadBytes = 32 << 20

func (s *Server) handleSubmitUpload(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, fmt.Sprintf("invalid form data: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("file required: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	upload, err := s.uploads.Submit(r.Context(), principal, header.Filename, file)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to accept upload: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, upload)
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	limit, err := intParam(r, "limit", 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.uploads.List(r.Context(), principal, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid upload id", http.StatusBadRequest)
		return
	}

	result, err := s.uploads.Get(r.Context(), principal, id)
	if err != nil {
		switch {
		case errors.Is(err, uploads.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, uploads.ErrForbidden):
			http.Error(w, err.Error(), http.StatusForbidden)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSearchLogs(w http.ResponseWriter, r *http.Request) {
	filter := domain.SearchFilter{
		Query:  r.URL.Query().Get("q"),
		Level:  r.URL.Query().Get("log_level"),
		Source: r.URL.Query().Get("source"),
	}

	var err error
	if filter.StartTime, err = timeParam(r, "start_time"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if filter.EndTime, err = timeParam(r, "end_time"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := intParam(r, "page", 1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	perPage, err := intParam(r, "per_page", 20)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.search.SearchLogs(r.Context(), filter, page, perPage)
	if err != nil {
		writeSearchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	start, err := requiredTimeParam(r, "start_time")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := requiredTimeParam(r, "end_time")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "hour"
	}

	result, err := s.search.TimeSeries(
		r.Context(),
		start,
		end,
		interval,
		r.URL.Query().Get("log_level"),
		r.URL.Query().Get("source"),
	)
	if err != nil {
		writeSearchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	field := r.URL.Query().Get("field")
	if field == "" {
		field = "log_level"
	}

	start, err := timeParam(r, "start_time")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := timeParam(r, "end_time")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.search.Distribution(r.Context(), field, start, end)
	if err != nil {
		writeSearchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTopErrors(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 10)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start, err := timeParam(r, "start_time")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := timeParam(r, "end_time")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.search.TopErrors(r.Context(), limit, start, end)
	if err != nil {
		writeSearchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeSearchError(w http.ResponseWriter, err error) {
	if errors.Is(err, search.ErrInvalidInput) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return value, nil
}

func timeParam(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", name, err)
	}
	return &value, nil
}

func requiredTimeParam(r *http.Request, name string) (time.Time, error) {
	value, err := timeParam(r, name)
	if err != nil {
		return time.Time{}, err
	}
	if value == nil {
		return time.Time{}, fmt.Errorf("%s is required", name)
	}
	return *value, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
