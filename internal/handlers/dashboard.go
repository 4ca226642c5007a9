package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tutorly-backend/internal/apperr"
	"tutorly-backend/internal/middleware"
	"tutorly-backend/internal/models"
	"tutorly-backend/internal/progress"
)

const maxImportRecords = 1000

type progressRepository interface {
	AppendBatch(ctx context.Context, recs []models.ProgressRecord) error
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]models.ProgressRecord, error)
}

type DashboardHandler struct {
	profiles profileRepository
	plans    planRepository
	progress progressRepository
	loc      *time.Location
	now      func() time.Time
}

func NewDashboardHandler(profiles profileRepository, plans planRepository, progressRepo progressRepository, loc *time.Location) *DashboardHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardHandler{profiles: profiles, plans: plans, progress: progressRepo, loc: loc, now: time.Now}
}

func (h *DashboardHandler) latestPlan(ctx context.Context, op string) (*models.StudyPlan, error) {
	profile, err := h.profiles.GetByUser(ctx, middleware.GetUserID(ctx))
	if err != nil {
		return nil, preconditionIfMissing(err, op)
	}
	return h.plans.GetLatest(ctx, profile.ID)
}

// Progress returns the dashboard statistics for the learner's latest plan.
// A learner without a plan gets an empty dashboard rather than an error.
func (h *DashboardHandler) Progress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	plan, err := h.latestPlan(ctx, "dashboard.progress")
	if apperr.IsKind(err, apperr.KindNotFound) {
		writeJSON(w, http.StatusOK, progress.Aggregate(nil, nil, h.now(), h.loc))
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	records, err := h.progress.ListByPlan(ctx, plan.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, progress.Aggregate(plan, records, h.now(), h.loc))
}

// Import appends previously exported progress records to the latest plan.
// Records without a plan id are attached to it; records naming another plan are rejected.
func (h *DashboardHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req models.ImportProgressRequest
	if !decodeBody(w, r, 4<<20, &req) {
		return
	}

	if len(req.Records) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "records is required", r))
		return
	}
	if len(req.Records) > maxImportRecords {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", fmt.Sprintf("at most %d records per import", maxImportRecords), r))
		return
	}

	plan, err := h.latestPlan(r.Context(), "progress.import")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	fields := map[string]string{}
	for i := range req.Records {
		rec := &req.Records[i]
		if rec.PlanID == uuid.Nil {
			rec.PlanID = plan.ID
		}
		if rec.PlanID != plan.ID {
			fields[fmt.Sprintf("records[%d].study_plan_id", i)] = "must reference your current study plan"
		}
		if rec.Date != nil {
			rec.Date = rec.Date.Anchored(h.loc)
		}
		if rec.DurationMinutes != nil && *rec.DurationMinutes < 0 {
			fields[fmt.Sprintf("records[%d].duration_minutes", i)] = "must not be negative"
		}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	if err := h.progress.AppendBatch(r.Context(), req.Records); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"imported": len(req.Records),
		"records":  req.Records,
	})
}
