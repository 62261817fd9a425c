package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/query"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error     string `json:"error" example:"invalid request body"`
	Field     string `json:"field,omitempty" example:"query.must[0].field"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// AutocompleteResponse wraps autocomplete suggestions
// @Description Autocomplete suggestions
type AutocompleteResponse struct {
	Suggestions []domain.Suggestion `json:"suggestions"`
}

// IndexesResponse lists the configured indexes
// @Description Configured indexes
type IndexesResponse struct {
	Indexes []domain.IndexInfo `json:"indexes"`
}

// ReloadResponse reports a successful configuration reload
// @Description Configuration reload result
type ReloadResponse struct {
	Status  string   `json:"status" example:"reloaded"`
	Indexes []string `json:"indexes"`
}

// retryAfterSeconds is advertised on transient backend failures
const retryAfterSeconds = "1"

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (pings the search backend and shared cache)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "Backend unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.backend != nil {
		if err := s.backend.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "component", "backend", "error", err)
			writeError(w, http.StatusServiceUnavailable, "search backend unavailable")
			return
		}
	}
	if s.cache != nil {
		if err := s.cache.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "component", "cache", "error", err)
			writeError(w, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// Search endpoints

// handleSearch godoc
// @Summary      Search an index
// @Description  Runs a structured full-text query against the named index
// @Tags         Search
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        index    path      string         true  "Index name"
// @Param        request  body      query.Request  true  "Search request"
// @Success      200      {object}  domain.SearchResponse
// @Failure      400      {object}  ErrorResponse  "Invalid query"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      404      {object}  ErrorResponse  "Unknown index"
// @Failure      503      {object}  ErrorResponse  "Transient backend failure"
// @Failure      504      {object}  ErrorResponse  "Deadline exceeded"
// @Failure      500      {object}  ErrorResponse  "Search failed"
// @Router       /indexes/{index}/search [post]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	index := r.PathValue("index")

	var req query.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeValidationError(w, ve)
			return
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.searchService.Search(r.Context(), index, req)
	if err != nil {
		s.writeSearchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleAutocomplete godoc
// @Summary      Autocomplete
// @Description  Suggests completions of a prefix from the index's suggest fields
// @Tags         Search
// @Produce      json
// @Security     BearerAuth
// @Param        index  path      string  true   "Index name"
// @Param        q      query     string  true   "Prefix"
// @Param        limit  query     int     false  "Maximum suggestions"
// @Success      200    {object}  AutocompleteResponse
// @Failure      400    {object}  ErrorResponse  "Missing prefix or invalid limit"
// @Failure      404    {object}  ErrorResponse  "Unknown index"
// @Router       /indexes/{index}/autocomplete [get]
func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	index := r.PathValue("index")
	prefix := r.URL.Query().Get("q")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeValidationError(w, domain.NewValidationError("limit", "must be a non-negative integer, got %q", raw))
			return
		}
		limit = n
	}

	suggestions, err := s.searchService.Autocomplete(r.Context(), index, prefix, limit)
	if err != nil {
		s.writeSearchError(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []domain.Suggestion{}
	}

	writeJSON(w, http.StatusOK, AutocompleteResponse{Suggestions: suggestions})
}

// handleListIndexes godoc
// @Summary      List indexes
// @Description  Describes every configured index
// @Tags         Search
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  IndexesResponse
// @Router       /indexes [get]
func (s *Server) handleListIndexes(w http.ResponseWriter, r *http.Request) {
	infos := s.searchService.Indexes()
	if infos == nil {
		infos = []domain.IndexInfo{}
	}
	writeJSON(w, http.StatusOK, IndexesResponse{Indexes: infos})
}

// Admin endpoints

// handleReload godoc
// @Summary      Reload configuration
// @Description  Re-reads the index configuration file and invalidates cached results
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ReloadResponse
// @Failure      400  {object}  ErrorResponse  "Invalid configuration"
// @Failure      403  {object}  ErrorResponse  "Admin access required"
// @Failure      500  {object}  ErrorResponse  "Reload failed"
// @Router       /admin/reload [post]
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.reloader.Reload(r.Context()); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeValidationError(w, ve)
			return
		}
		s.logger.Error("config reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload failed")
		return
	}

	infos := s.searchService.Indexes()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	writeJSON(w, http.StatusOK, ReloadResponse{Status: "reloaded", Indexes: names})
}

// writeSearchError maps search failures onto status codes. Backend details
// are logged by the service and never echoed to callers.
func (s *Server) writeSearchError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeValidationError(w, ve)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrCancelled):
		writeJSON(w, http.StatusGatewayTimeout, ErrorResponse{Error: "search cancelled", Cancelled: true})
	case domain.IsTransient(err):
		w.Header().Set("Retry-After", retryAfterSeconds)
		writeError(w, http.StatusServiceUnavailable, "search temporarily unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "search failed")
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeValidationError(w http.ResponseWriter, ve *domain.ValidationError) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ve.Reason, Field: ve.Field})
}
