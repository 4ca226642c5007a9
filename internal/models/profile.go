package models

import (
	"time"

	"github.com/google/uuid"
)

type StudentProfile struct {
	ID                        uuid.UUID `json:"id"`
	UserID                    uuid.UUID `json:"user_id"`
	Name                      string    `json:"name"`
	Age                       int       `json:"age"`
	GradeLevel                string    `json:"grade_level"`
	Country                   string    `json:"country"`
	PreferredLearningLanguage string    `json:"preferred_learning_language"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// ProfileUpdate carries a partial profile; nil fields keep their stored value.
type ProfileUpdate struct {
	Name                      *string `json:"name"`
	Age                       *int    `json:"age"`
	GradeLevel                *string `json:"grade_level"`
	Country                   *string `json:"country"`
	PreferredLearningLanguage *string `json:"preferred_learning_language"`
}
