package progress

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tutorly-backend/internal/apperr"
	"tutorly-backend/internal/models"
)

// Job is one progress record waiting to be written on behalf of a learner.
type Job struct {
	UserID uuid.UUID
	Record models.ProgressRecord
}

// Enqueuer accepts jobs without waiting for them to be written.
type Enqueuer interface {
	Enqueue(job Job) error
}

// Recorder turns a completed tutor turn into a progress record.
type Recorder struct {
	queue    Enqueuer
	failures *Failures
	now      func() time.Time
}

func NewRecorder(queue Enqueuer, failures *Failures) *Recorder {
	return &Recorder{queue: queue, failures: failures, now: time.Now}
}

// SessionMinutes is the whole minutes elapsed since start, never less than 1.
// A start in the future (clock skew) also counts as 1 minute.
func SessionMinutes(start, now time.Time) int {
	minutes := int(now.Sub(start) / time.Minute)
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Record queues a progress record for the active session. Nothing is recorded
// when the conversation has no active session or no start time. The turn never
// fails because of recording; problems go to the failure stream instead.
func (r *Recorder) Record(ctx context.Context, userID, planID uuid.UUID, session *models.StudySession, start *time.Time) bool {
	if session == nil || start == nil || planID == uuid.Nil {
		return false
	}

	now := r.now()
	minutes := SessionMinutes(*start, now)
	sessionID := session.ID

	job := Job{
		UserID: userID,
		Record: models.ProgressRecord{
			ID:              uuid.New(),
			PlanID:          planID,
			SessionID:       &sessionID,
			Date:            models.NewInstant(now),
			DurationMinutes: &minutes,
		},
	}

	if err := r.queue.Enqueue(job); err != nil {
		r.failures.Report(ctx, Failure{
			UserID:    userID,
			PlanID:    planID,
			SessionID: sessionID,
			Kind:      apperr.KindPersistenceFailed,
			Err:       err,
		})
		return false
	}
	return true
}
