package schedulerengine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"gitlab.com/fcv-grader.net/internal/adapter/logging"
	"gitlab.com/fcv-grader.net/internal/config"
	"gitlab.com/fcv-grader.net/internal/domain"
	"gitlab.com/fcv-grader.net/internal/static/errs"
)

type chanQueue struct {
	jobs     chan *domain.GradingJob
	mu       sync.Mutex
	failures int
}

func (q *chanQueue) Push(_ context.Context, job *domain.GradingJob) error {
	q.jobs <- job
	return nil
}

func (q *chanQueue) Pop(ctx context.Context, timeout time.Duration) (*domain.GradingJob, error) {
	q.mu.Lock()
	if q.failures > 0 {
		q.failures--
		q.mu.Unlock()
		return nil, errors.New("connection reset")
	}
	q.mu.Unlock()

	select {
	case job := <-q.jobs:
		return job, nil
	case <-time.After(timeout):
		return nil, errs.ErrQueueEmpty
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *chanQueue) SetStatus(context.Context, uuid.UUID, domain.SubmissionStatus) error {
	return nil
}

func (q *chanQueue) Status(context.Context, uuid.UUID) (domain.SubmissionStatus, error) {
	return "", nil
}

type recordingProcessor struct {
	mu        sync.Mutex
	processed []uuid.UUID
	done      chan struct{}
	want      int
}

func (p *recordingProcessor) Submit(context.Context, *domain.GradeRequest) (*domain.Submission, error) {
	return nil, nil
}

func (p *recordingProcessor) Get(context.Context, uuid.UUID) (*domain.Submission, error) {
	return nil, nil
}

func (p *recordingProcessor) Process(_ context.Context, job *domain.GradingJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, job.SubmissionID)
	if len(p.processed) == p.want {
		close(p.done)
	}
	return nil
}

func TestGradingEngineProcessesQueuedJobs(t *testing.T) {
	queue := &chanQueue{jobs: make(chan *domain.GradingJob, 8), failures: 1}
	proc := &recordingProcessor{done: make(chan struct{}), want: 5}
	engine := NewGradingEngine(&config.GradingSvcCfg{
		Workers:     3,
		PollTimeout: 10 * time.Millisecond,
	}, queue, proc, logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	engine.Start(ctx)

	for i := 0; i < 5; i++ {
		_ = queue.Push(ctx, domain.NewGradingJob(uuid.New()))
	}

	select {
	case <-proc.done:
	case <-time.After(5 * time.Second):
		t.Fatal("jobs were not processed")
	}

	cancel()
	stopped := make(chan struct{})
	go func() {
		engine.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("consumers did not stop after cancellation")
	}
}
