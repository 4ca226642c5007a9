package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"tutorly-backend/internal/middleware"
	"tutorly-backend/internal/models"
)

type profileRepository interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.StudentProfile, error)
	Upsert(ctx context.Context, userID uuid.UUID, u models.ProfileUpdate) (*models.StudentProfile, error)
}

type ProfileHandler struct {
	repo profileRepository
}

func NewProfileHandler(repo profileRepository) *ProfileHandler {
	return &ProfileHandler{repo: repo}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.repo.GetByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Update merges the supplied fields into the learner's profile, creating it if needed.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileUpdate
	if !decodeBody(w, r, 64<<10, &req) {
		return
	}

	fields := map[string]string{}
	if req.Age != nil && (*req.Age < 3 || *req.Age > 120) {
		fields["age"] = "must be between 3 and 120"
	}
	if req.Name != nil && len(*req.Name) > 200 {
		fields["name"] = "must be at most 200 characters"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	profile, err := h.repo.Upsert(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
