package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleLearner = "user"
	RoleTutor   = "model"

	GeneralQuestionTopic = "General Question"
)

// ChatTurn is one side of a tutoring exchange. Learner turns carry Question,
// tutor turns carry the explanation, example and their audio renderings.
type ChatTurn struct {
	Role             string    `json:"role"`
	Question         string    `json:"question,omitempty"`
	AttachmentName   string    `json:"attachment_name,omitempty"`
	Explanation      string    `json:"explanation,omitempty"`
	Example          string    `json:"example,omitempty"`
	ExplanationAudio string    `json:"explanation_audio,omitempty"`
	ExampleAudio     string    `json:"example_audio,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Attachment is a learner-supplied file encoded as a data URI.
type Attachment struct {
	Name    string `json:"name"`
	DataURI string `json:"data_uri"`
}

type Conversation struct {
	ID              uuid.UUID     `json:"id"`
	UserID          uuid.UUID     `json:"user_id"`
	ProfileID       uuid.UUID     `json:"profile_id"`
	PlanID          *uuid.UUID    `json:"plan_id,omitempty"`
	ActiveSession   *StudySession `json:"active_session,omitempty"`
	SessionStart    *time.Time    `json:"session_start,omitempty"`
	History         []ChatTurn    `json:"history"`
	CreatedAt       time.Time     `json:"created_at"`
	LastInteraction time.Time     `json:"last_interaction"`
}

type AskRequest struct {
	Question   string      `json:"question"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

type AskResponse struct {
	Turn           ChatTurn      `json:"turn"`
	Topic          string        `json:"topic"`
	ActiveSession  *StudySession `json:"active_session,omitempty"`
	ProgressQueued bool          `json:"progress_queued"`
}
