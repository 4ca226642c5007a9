package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SessionDateLayout = "2006-01-02"
	SessionTimeLayout = "15:04"
)

type StudyPlan struct {
	ID        uuid.UUID      `json:"id"`
	ProfileID uuid.UUID      `json:"profile_id"`
	Subject   string         `json:"subject"`
	Content   string         `json:"content"`
	Schedule  []StudySession `json:"schedule"`
	CreatedAt time.Time      `json:"created_at"`
}

// StudySession is one scheduled unit inside a plan. ID is the join key for progress records.
type StudySession struct {
	ID                string `json:"id"`
	Topic             string `json:"topic"`
	Date              string `json:"date"` // YYYY-MM-DD
	Time              string `json:"time"` // HH:MM, 24-hour
	DurationMinutes   int    `json:"duration_minutes"`
	LearningObjective string `json:"learning_objective"`
	Activity          string `json:"activity"`
}

type GeneratePlanRequest struct {
	Subject                 string `json:"subject"`
	Curriculum              string `json:"curriculum"`
	EducationalMaterials    string `json:"educational_materials"`
	StudyTimePreference     string `json:"study_time_preference"`
	StudyDurationPreference string `json:"study_duration_preference"`
}

// NextSession is the locator result shaped for the "next scheduled session" card.
type NextSession struct {
	Session         StudySession `json:"session"`
	PlanID          uuid.UUID    `json:"plan_id"`
	Subject         string       `json:"subject"`
	StartsAt        time.Time    `json:"starts_at"`
	DurationSeconds int          `json:"duration_seconds"`
}
