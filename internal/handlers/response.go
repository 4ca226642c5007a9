package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"tutorly-backend/internal/apperr"
	"tutorly-backend/internal/models"
)

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	resp := errorResp(code, message, r)
	resp.Error.Fields = fields
	return resp
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindPreconditionMissing:
		return http.StatusPreconditionFailed
	case apperr.KindTurnInFlight:
		return http.StatusConflict
	case apperr.KindPersistenceDenied:
		return http.StatusForbidden
	case apperr.KindGenerationFailed, apperr.KindAudioSynthesisFailed:
		return http.StatusBadGateway
	case apperr.KindPersistenceFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var kindMessages = map[apperr.Kind]string{
	apperr.KindValidation:           "Validation failed",
	apperr.KindNotFound:             "Resource not found",
	apperr.KindPreconditionMissing:  "Complete your profile first",
	apperr.KindTurnInFlight:         "Please wait for the current answer before asking again",
	apperr.KindPersistenceDenied:    "You do not have permission to save this data",
	apperr.KindGenerationFailed:     "The tutor could not generate a response. Please try again.",
	apperr.KindAudioSynthesisFailed: "The tutor could not generate audio. Please try again.",
	apperr.KindPersistenceFailed:    "Could not reach storage. Please try again.",
}

// handleServiceError maps an error kind onto the JSON error envelope.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	code := string(kind)
	message, ok := kindMessages[kind]
	if !ok {
		code = "INTERNAL_ERROR"
		message = "An unexpected error occurred"
	}

	resp := errorResp(code, message, r)
	var e *apperr.Error
	if errors.As(err, &e) {
		resp.Error.Fields = e.Fields
		if kind == apperr.KindNotFound && e.Message != "" {
			resp.Error.Message = e.Message
		}
	}
	resp.Error.Retryable = apperr.Retryable(kind)

	writeJSON(w, statusForKind(kind), resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("VALIDATION_ERROR", "Request body too large", r))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return false
	}
	return true
}

// preconditionIfMissing turns a missing profile into the error the client acts on.
func preconditionIfMissing(err error, op string) error {
	if apperr.IsKind(err, apperr.KindNotFound) {
		return apperr.New(apperr.KindPreconditionMissing, op, "complete your profile first")
	}
	return err
}
