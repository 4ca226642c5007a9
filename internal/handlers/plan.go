package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tutorly-backend/internal/middleware"
	"tutorly-backend/internal/models"
	"tutorly-backend/internal/planner"
)

type planRepository interface {
	Create(ctx context.Context, p *models.StudyPlan) error
	GetLatest(ctx context.Context, profileID uuid.UUID) (*models.StudyPlan, error)
}

type planBuilder interface {
	Build(ctx context.Context, profile *models.StudentProfile, req models.GeneratePlanRequest) (*models.StudyPlan, error)
}

type PlanHandler struct {
	profiles profileRepository
	plans    planRepository
	builder  planBuilder
	loc      *time.Location
	now      func() time.Time
}

func NewPlanHandler(profiles profileRepository, plans planRepository, builder planBuilder, loc *time.Location) *PlanHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &PlanHandler{profiles: profiles, plans: plans, builder: builder, loc: loc, now: time.Now}
}

// Generate asks the model for a new plan and saves it as the learner's latest.
func (h *PlanHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GeneratePlanRequest
	if !decodeBody(w, r, 1<<20, &req) {
		return
	}

	profile, err := h.profiles.GetByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, preconditionIfMissing(err, "plans.generate"))
		return
	}

	plan, err := h.builder.Build(r.Context(), profile, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := h.plans.Create(r.Context(), plan); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, plan)
}

func (h *PlanHandler) Latest(w http.ResponseWriter, r *http.Request) {
	plan, err := h.latestPlan(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// NextSession returns the upcoming session card, or {"session":null}.
func (h *PlanHandler) NextSession(w http.ResponseWriter, r *http.Request) {
	plan, err := h.latestPlan(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	next := planner.Locate(plan, h.now(), h.loc)
	if next == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"session": nil})
		return
	}
	writeJSON(w, http.StatusOK, next)
}

func (h *PlanHandler) latestPlan(r *http.Request) (*models.StudyPlan, error) {
	profile, err := h.profiles.GetByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		return nil, preconditionIfMissing(err, "plans.latest")
	}
	return h.plans.GetLatest(r.Context(), profile.ID)
}
