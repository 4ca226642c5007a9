package progress

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tutorly-backend/internal/apperr"
	"tutorly-backend/internal/logger"
	"tutorly-backend/internal/models"
)

// Failure describes a progress record that could not be saved.
type Failure struct {
	UserID    uuid.UUID
	PlanID    uuid.UUID
	SessionID string
	Kind      apperr.Kind
	Err       error
	At        time.Time
}

// Publisher forwards failures to the learner's live channel.
type Publisher interface {
	PublishProgressError(ctx context.Context, userID uuid.UUID, evt models.ProgressErrorEvent) error
}

// Failures is the observable failure stream for progress writes. Reports are
// logged, fanned out to in-process subscribers and, when a publisher is set,
// pushed to the learner.
type Failures struct {
	log       *logger.Logger
	publisher Publisher

	mu   sync.RWMutex
	subs map[int]chan Failure
	next int
}

func NewFailures(log *logger.Logger, publisher Publisher) *Failures {
	return &Failures{
		log:       log,
		publisher: publisher,
		subs:      make(map[int]chan Failure),
	}
}

// Subscribe returns a channel of future failures and a func that ends the
// subscription. Slow subscribers miss failures rather than block reporters.
func (f *Failures) Subscribe(buffer int) (<-chan Failure, func()) {
	ch := make(chan Failure, buffer)

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (f *Failures) Report(ctx context.Context, fl Failure) {
	if fl.At.IsZero() {
		fl.At = time.Now().UTC()
	}
	if fl.Kind == apperr.KindUnknown {
		fl.Kind = apperr.KindPersistenceFailed
	}

	f.log.Error("Failed to save progress",
		"user_id", fl.UserID.String(),
		"plan_id", fl.PlanID.String(),
		"session_id", fl.SessionID,
		"kind", string(fl.Kind),
		"error", fl.Err,
	)

	f.mu.RLock()
	for _, ch := range f.subs {
		select {
		case ch <- fl:
		default:
		}
	}
	f.mu.RUnlock()

	if f.publisher == nil {
		return
	}
	evt := models.ProgressErrorEvent{
		PlanID:    fl.PlanID,
		SessionID: fl.SessionID,
		ErrorCode: string(fl.Kind),
		Message:   failureMessage(fl.Kind),
	}
	if err := f.publisher.PublishProgressError(ctx, fl.UserID, evt); err != nil {
		f.log.Warn("Failed to publish progress error", "user_id", fl.UserID.String(), "error", err)
	}
}

func failureMessage(kind apperr.Kind) string {
	if kind == apperr.KindPersistenceDenied {
		return "Your study time could not be saved because access was denied. Please sign in again."
	}
	return "Your study time for this session could not be saved."
}
