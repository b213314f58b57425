package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lamim/reportforge/internal/report"
	"github.com/lamim/reportforge/pkg/models"
)

// Client-facing error messages
const (
	msgMissingFields   = "Missing required fields: topic or question."
	msgInvalidJSON     = "Invalid JSON body"
	msgBodyTooLarge    = "Request body too large"
	msgGenerateFailed  = "Failed to generate report"
	msgTooManyRequests = "Too many requests, please try again later."
)

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		logger.Debug("Rejected malformed request body", "error", err)
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	rep, err := s.generator.Generate(r.Context(), req.Topic, req.Question)
	if err != nil {
		var inputErr *report.InputError
		switch {
		case errors.Is(err, report.ErrMissingFields):
			writeError(w, http.StatusBadRequest, msgMissingFields)
		case errors.As(err, &inputErr):
			writeError(w, http.StatusBadRequest, inputErr.Error())
		default:
			logger.Error("Error generating report", "error", err)
			writeError(w, http.StatusInternalServerError, msgGenerateFailed)
		}
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// Headers are already sent, so an encode error can only be dropped.
	_ = json.NewEncoder(w).Encode(v)
}
