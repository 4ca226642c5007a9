package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tutorly-backend/internal/apperr"
	"tutorly-backend/internal/logger"
	"tutorly-backend/internal/models"
	"tutorly-backend/internal/progress"
)

type stubStore struct {
	mu       sync.Mutex
	failures []error
	calls    int
	saved    []models.ProgressRecord
	done     chan struct{}
}

func (s *stubStore) Append(_ context.Context, rec *models.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return err
	}
	s.saved = append(s.saved, *rec)
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	return nil
}

type capturedFailures struct {
	mu  sync.Mutex
	got []progress.Failure
	ch  chan struct{}
}

func (c *capturedFailures) Report(_ context.Context, fl progress.Failure) {
	c.mu.Lock()
	c.got = append(c.got, fl)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func newJob() progress.Job {
	sessionID := "s1"
	minutes := 5
	return progress.Job{
		UserID: uuid.New(),
		Record: models.ProgressRecord{
			ID:              uuid.New(),
			PlanID:          uuid.New(),
			SessionID:       &sessionID,
			Date:            models.NewInstant(time.Now()),
			DurationMinutes: &minutes,
		},
	}
}

func newTestPool(store ProgressStore, failures FailureReporter) *Pool {
	p := NewPool(store, failures, logger.Nop(), 2, 8)
	p.backoff = func(int) time.Duration { return time.Millisecond }
	return p
}

func TestPool_WritesJob(t *testing.T) {
	defer goleak.VerifyNone(t)

	done := make(chan struct{})
	store := &stubStore{done: done}
	p := newTestPool(store, &capturedFailures{ch: make(chan struct{}, 1)})
	p.Start()

	job := newJob()
	require.NoError(t, p.Enqueue(job))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not written")
	}
	p.Stop()

	require.Len(t, store.saved, 1)
	assert.Equal(t, job.Record.ID, store.saved[0].ID)
}

func TestPool_RetriesTransientFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	transient := apperr.Wrap(apperr.KindPersistenceFailed, "progress.append", errors.New("connection reset"))
	done := make(chan struct{})
	store := &stubStore{failures: []error{transient, transient}, done: done}
	p := newTestPool(store, &capturedFailures{ch: make(chan struct{}, 1)})
	p.Start()

	require.NoError(t, p.Enqueue(newJob()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not written after retries")
	}
	p.Stop()

	assert.Equal(t, 3, store.calls)
	assert.Len(t, store.saved, 1)
}

func TestPool_DeniedIsReportedWithoutRetry(t *testing.T) {
	defer goleak.VerifyNone(t)

	denied := apperr.Wrap(apperr.KindPersistenceDenied, "progress.append", errors.New("permission denied"))
	store := &stubStore{failures: []error{denied}}
	failures := &capturedFailures{ch: make(chan struct{}, 1)}
	p := newTestPool(store, failures)
	p.Start()

	job := newJob()
	require.NoError(t, p.Enqueue(job))

	select {
	case <-failures.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("failure was not reported")
	}
	p.Stop()

	assert.Equal(t, 1, store.calls)
	require.Len(t, failures.got, 1)
	assert.Equal(t, apperr.KindPersistenceDenied, failures.got[0].Kind)
	assert.Equal(t, job.Record.PlanID, failures.got[0].PlanID)
	assert.Equal(t, "s1", failures.got[0].SessionID)
	assert.Equal(t, job.UserID, failures.got[0].UserID)
}

func TestPool_GivesUpAfterMaxAttempts(t *testing.T) {
	defer goleak.VerifyNone(t)

	transient := apperr.Wrap(apperr.KindPersistenceFailed, "progress.append", errors.New("connection reset"))
	store := &stubStore{failures: []error{transient, transient, transient}}
	failures := &capturedFailures{ch: make(chan struct{}, 1)}
	p := newTestPool(store, failures)
	p.Start()

	require.NoError(t, p.Enqueue(newJob()))

	select {
	case <-failures.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("failure was not reported")
	}
	p.Stop()

	assert.Equal(t, 3, store.calls)
	assert.Empty(t, store.saved)
	assert.Equal(t, apperr.KindPersistenceFailed, failures.got[0].Kind)
}

func TestPool_UnclassifiedErrorIsNotRetried(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &stubStore{failures: []error{errors.New("store unavailable")}}
	failures := &capturedFailures{ch: make(chan struct{}, 1)}
	p := newTestPool(store, failures)
	p.Start()

	require.NoError(t, p.Enqueue(newJob()))

	select {
	case <-failures.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("failure was not reported")
	}
	p.Stop()

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, apperr.KindPersistenceFailed, failures.got[0].Kind)
}

func TestPool_EnqueueAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := newTestPool(&stubStore{}, &capturedFailures{ch: make(chan struct{}, 1)})
	p.Start()
	p.Stop()
	p.Stop()

	assert.ErrorIs(t, p.Enqueue(newJob()), ErrPoolStopped)
}

func TestPool_QueueFull(t *testing.T) {
	p := NewPool(&stubStore{}, &capturedFailures{ch: make(chan struct{}, 1)}, logger.Nop(), 1, 1)

	// workers not started, so the single slot fills up
	require.NoError(t, p.Enqueue(newJob()))
	assert.ErrorIs(t, p.Enqueue(newJob()), ErrQueueFull)
}
