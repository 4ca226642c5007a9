package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so that callers can decide how to surface it.
type Kind string

const (
	KindUnknown              Kind = ""
	KindGenerationFailed     Kind = "GENERATION_FAILED"
	KindAudioSynthesisFailed Kind = "AUDIO_SYNTHESIS_FAILED"
	KindPersistenceDenied    Kind = "PERSISTENCE_DENIED"
	KindPersistenceFailed    Kind = "PERSISTENCE_FAILED"
	KindPreconditionMissing  Kind = "PRECONDITION_MISSING"
	KindNotFound             Kind = "NOT_FOUND"
	KindValidation           Kind = "VALIDATION_ERROR"
	KindTurnInFlight         Kind = "TURN_IN_FLIGHT"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind != KindUnknown && t.Kind == e.Kind
}

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: "validation failed", Fields: fields}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the learner can simply try the same request again.
func Retryable(kind Kind) bool {
	switch kind {
	case KindGenerationFailed, KindAudioSynthesisFailed, KindPersistenceFailed, KindTurnInFlight:
		return true
	default:
		return false
	}
}
