package models

import (
	"github.com/google/uuid"
)

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ProgressErrorEvent tells the learner that time spent in a session was not saved.
type ProgressErrorEvent struct {
	PlanID    uuid.UUID `json:"plan_id"`
	SessionID string    `json:"session_id"`
	ErrorCode string    `json:"error_code"`
	Message   string    `json:"message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
