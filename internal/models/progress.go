package models

import (
	"time"

	"github.com/google/uuid"
)

// ProgressRecord is append-only evidence of time spent on a plan session.
// Date is nil and DurationMinutes is nil only for malformed legacy rows.
type ProgressRecord struct {
	ID              uuid.UUID `json:"id"`
	PlanID          uuid.UUID `json:"study_plan_id"`
	SessionID       *string   `json:"study_session_id"`
	Date            *Instant  `json:"date"`
	DurationMinutes *int      `json:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at"`
}

type ImportProgressRequest struct {
	Records []ProgressRecord `json:"records"`
}

type MonthlyMinutes struct {
	Month   string `json:"date"`
	Minutes int    `json:"minutes"`
}

type ProgressStats struct {
	Year              int              `json:"year"`
	Monthly           []MonthlyMinutes `json:"monthly"`
	TotalMinutes      int              `json:"total_minutes"`
	TimeStudied       string           `json:"time_studied"`
	LessonsCompleted  int              `json:"lessons_completed"`
	LessonsPlanned    int              `json:"lessons_planned"`
	CompletionPercent int              `json:"completion_percent"`
	ActiveDays        int              `json:"active_days"`
	CurrentGoal       string           `json:"current_goal"`
}
