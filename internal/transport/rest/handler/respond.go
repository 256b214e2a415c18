package handler

import (
	"certo/internal/log"
	"certo/internal/repository"
	"certo/internal/service"
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code"`
	QuestionIndex *int   `json:"questionIndex,omitempty"`
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeServiceError maps service and gateway errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		verr *service.ValidationError
		serr *service.SubmissionError
		gerr *repository.GatewayError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "invalid_request", verr.Error())
	case errors.As(err, &serr):
		resp := ErrorResponse{Error: serr.Error(), Code: string(serr.Kind)}
		if serr.QuestionIndex >= 0 {
			idx := serr.QuestionIndex
			resp.QuestionIndex = &idx
		}
		writeJSON(w, submissionStatus(serr.Kind), resp)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "survey not found")
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, service.ErrSettlementNotNeeded):
		writeError(w, http.StatusConflict, "settlement_not_retryable", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, service.ErrUnknownProvider):
		writeError(w, http.StatusNotFound, "unknown_provider", err.Error())
	case errors.Is(err, service.ErrNotVerified):
		writeError(w, http.StatusForbidden, "not_verified", err.Error())
	case errors.As(err, &gerr):
		log.Errorf("gateway failure: %v", err)
		writeError(w, http.StatusBadGateway, "gateway_error", "storage unavailable")
	default:
		log.Errorf("unhandled error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func submissionStatus(kind service.SubmissionKind) int {
	switch kind {
	case service.SubmissionClosed:
		return http.StatusGone
	case service.SubmissionQuotaExceeded:
		return http.StatusConflict
	case service.SubmissionNotEligible:
		return http.StatusForbidden
	default:
		return http.StatusUnprocessableEntity
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return false
	}
	return true
}
