package jobs

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apartment-ledger-backend/internal/logger"
)

func TestQueue_DeliversJobsToHandler(t *testing.T) {
	q := NewQueue(8, logger.NewWithWriter(io.Discard))
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	seen := make(map[uuid.UUID]string)
	done := make(chan struct{}, 2)

	q.Start(ctx, 2, func(ctx context.Context, job *ProcessUploadJob) error {
		mu.Lock()
		seen[job.UploadID] = job.Password
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	first := uuid.New()
	second := uuid.New()
	require.NoError(t, q.Publish(ctx, &ProcessUploadJob{UploadID: first}))
	require.NoError(t, q.Publish(ctx, &ProcessUploadJob{UploadID: second, Password: "secret"}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, first)
	assert.Equal(t, "secret", seen[second])
}

func TestQueue_FillsJobDefaults(t *testing.T) {
	q := NewQueue(1, logger.NewWithWriter(io.Discard))
	defer q.Close()

	job := &ProcessUploadJob{UploadID: uuid.New()}
	require.NoError(t, q.Publish(context.Background(), job))
	assert.NotEmpty(t, job.JobID)
	assert.False(t, job.EnqueuedAt.IsZero())
}

func TestQueue_HandlerPanicDoesNotKillWorker(t *testing.T) {
	q := NewQueue(8, logger.NewWithWriter(io.Discard))
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan uuid.UUID, 2)
	q.Start(ctx, 1, func(ctx context.Context, job *ProcessUploadJob) error {
		if job.Password == "boom" {
			panic("handler exploded")
		}
		done <- job.UploadID
		return nil
	})

	survivor := uuid.New()
	require.NoError(t, q.Publish(ctx, &ProcessUploadJob{UploadID: uuid.New(), Password: "boom"}))
	require.NoError(t, q.Publish(ctx, &ProcessUploadJob{UploadID: survivor}))

	select {
	case got := <-done:
		assert.Equal(t, survivor, got)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
}

func TestQueue_PublishAfterCloseFails(t *testing.T) {
	q := NewQueue(1, logger.NewWithWriter(io.Discard))
	q.Close()
	q.Close() // idempotent

	err := q.Publish(context.Background(), &ProcessUploadJob{UploadID: uuid.New()})
	assert.Error(t, err)
}

func TestQueue_PublishRespectsContextWhenFull(t *testing.T) {
	q := NewQueue(1, logger.NewWithWriter(io.Discard))
	defer q.Close()

	// No workers running; the single buffer slot fills and the second
	// publish must give up with the context.
	require.NoError(t, q.Publish(context.Background(), &ProcessUploadJob{UploadID: uuid.New()}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := q.Publish(ctx, &ProcessUploadJob{UploadID: uuid.New()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
