package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"tutorly-backend/internal/apperr"
	"tutorly-backend/internal/logger"
	"tutorly-backend/internal/models"
	"tutorly-backend/internal/progress"
)

var (
	ErrPoolStopped = errors.New("progress pool is stopped")
	ErrQueueFull   = errors.New("progress queue is full")
)

const (
	defaultMaxAttempts = 3
	writeTimeout       = 10 * time.Second
)

// ProgressStore is where progress records end up.
type ProgressStore interface {
	Append(ctx context.Context, rec *models.ProgressRecord) error
}

// FailureReporter receives records that could not be written.
type FailureReporter interface {
	Report(ctx context.Context, fl progress.Failure)
}

// Pool writes progress records in the background so tutor turns never wait
// on the store.
type Pool struct {
	store       ProgressStore
	failures    FailureReporter
	log         *logger.Logger
	jobs        chan progress.Job
	workerCount int
	maxAttempts int
	backoff     func(attempt int) time.Duration
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewPool(store ProgressStore, failures FailureReporter, log *logger.Logger, workerCount, queueSize int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		store:       store,
		failures:    failures,
		log:         log,
		jobs:        make(chan progress.Job, queueSize),
		workerCount: workerCount,
		maxAttempts: defaultMaxAttempts,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
		stopChan: make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.log.Info("Started progress workers", "count", p.workerCount)
}

// Stop waits for the workers to finish. Jobs still queued get one write attempt.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
	p.wg.Wait()
}

// Enqueue hands a job to the workers without blocking.
func (p *Pool) Enqueue(job progress.Job) error {
	select {
	case <-p.stopChan:
		return ErrPoolStopped
	default:
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			p.drain(id)
			p.log.Debug("Progress worker shutting down", "worker", id)
			return
		case job := <-p.jobs:
			p.process(job, p.maxAttempts)
		}
	}
}

func (p *Pool) drain(id int) {
	for {
		select {
		case job := <-p.jobs:
			p.process(job, 1)
		default:
			return
		}
	}
}

func (p *Pool) process(job progress.Job, maxAttempts int) {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = p.write(job)
		if err == nil {
			return
		}
		if !apperr.Retryable(apperr.KindOf(err)) || attempt == maxAttempts {
			break
		}

		p.log.Warn("Progress write failed, retrying",
			"plan_id", job.Record.PlanID.String(),
			"attempt", attempt,
			"error", err,
		)
		select {
		case <-p.stopChan:
			// shutting down: stop backing off and give up on this job
			p.handleFailure(job, err)
			return
		case <-time.After(p.backoff(attempt)):
		}
	}
	p.handleFailure(job, err)
}

func (p *Pool) write(job progress.Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	rec := job.Record
	return p.store.Append(ctx, &rec)
}

func (p *Pool) handleFailure(job progress.Job, err error) {
	kind := apperr.KindOf(err)
	if kind != apperr.KindPersistenceDenied {
		kind = apperr.KindPersistenceFailed
	}

	sessionID := ""
	if job.Record.SessionID != nil {
		sessionID = *job.Record.SessionID
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	p.failures.Report(ctx, progress.Failure{
		UserID:    job.UserID,
		PlanID:    job.Record.PlanID,
		SessionID: sessionID,
		Kind:      kind,
		Err:       err,
	})
}
