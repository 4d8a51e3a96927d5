// Package jobs dispatches ingestion work: one job per upload, executed
// asynchronously by a pool of workers. Different uploads may process in
// parallel; the ingest service's per-upload guard handles the rest.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProcessUploadJob asks for one ingestion run of an upload. Password is only
// set for password-protected bank statements.
type ProcessUploadJob struct {
	JobID      string
	UploadID   uuid.UUID
	Password   string
	EnqueuedAt time.Time
}

// Handler executes one job. The returned error is logged; retry is an
// explicit user action, never automatic.
type Handler func(ctx context.Context, job *ProcessUploadJob) error

// Queue is an in-memory job queue backed by a channel. Suitable for a
// single-instance deployment.
type Queue struct {
	jobChan   chan *ProcessUploadJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	log       zerolog.Logger
}

// NewQueue creates a queue. bufferSize bounds how many jobs can wait before
// Publish blocks.
func NewQueue(bufferSize int, log zerolog.Logger) *Queue {
	return &Queue{
		jobChan:   make(chan *ProcessUploadJob, bufferSize),
		closeChan: make(chan struct{}),
		log:       log,
	}
}

// Publish enqueues a job for asynchronous processing.
func (q *Queue) Publish(ctx context.Context, job *ProcessUploadJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start launches workerCount workers consuming jobs until the context is
// cancelled or the queue is closed.
func (q *Queue) Start(ctx context.Context, workerCount int, handler Handler) {
	for i := 0; i < workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
}

func (q *Queue) worker(ctx context.Context, handler Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.process(ctx, job, handler)
		}
	}
}

func (q *Queue) process(ctx context.Context, job *ProcessUploadJob, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error().Str("job_id", job.JobID).Interface("panic", r).
				Msg("job handler panicked")
		}
	}()

	if err := handler(ctx, job); err != nil {
		q.log.Error().Err(err).Str("job_id", job.JobID).
			Str("upload_id", job.UploadID.String()).
			Msg("job failed")
	}
}

// Close stops accepting jobs and waits for in-flight work to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	q.wg.Wait()
}
