package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tutorly-backend/internal/middleware"
	"tutorly-backend/internal/models"
)

// Attachments are capped at 20MB; base64 adds a third on top.
const maxTurnBody = 32 << 20

type tutorService interface {
	Open(ctx context.Context, userID uuid.UUID) (*models.Conversation, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Conversation, error)
	Ask(ctx context.Context, userID, conversationID uuid.UUID, req models.AskRequest) (*models.AskResponse, error)
}

type TutorHandler struct {
	svc tutorService
}

func NewTutorHandler(svc tutorService) *TutorHandler {
	return &TutorHandler{svc: svc}
}

func (h *TutorHandler) Open(w http.ResponseWriter, r *http.Request) {
	conv, err := h.svc.Open(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (h *TutorHandler) Get(w http.ResponseWriter, r *http.Request) {
	convID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid conversation ID", r))
		return
	}

	conv, err := h.svc.Get(r.Context(), middleware.GetUserID(r.Context()), convID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *TutorHandler) Ask(w http.ResponseWriter, r *http.Request) {
	convID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid conversation ID", r))
		return
	}

	var req models.AskRequest
	if !decodeBody(w, r, maxTurnBody, &req) {
		return
	}

	resp, err := h.svc.Ask(r.Context(), middleware.GetUserID(r.Context()), convID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
