package schedulerengine

import (
	"context"
	"errors"
	"sync"
	"time"

	"gitlab.com/fcv-grader.net/internal/config"
	"gitlab.com/fcv-grader.net/internal/core/ports/primary"
	"gitlab.com/fcv-grader.net/internal/core/ports/secondary"
	"gitlab.com/fcv-grader.net/internal/core/services/submission"
	"gitlab.com/fcv-grader.net/internal/static/errs"
)

const maxBackoff = 30 * time.Second

// GradingEngine runs the queue consumers that grade submissions in the background
type GradingEngine struct {
	cfg         *config.GradingSvcCfg
	queue       secondary.GradingQueue
	submissions submission.ISubmissionService
	logger      primary.Logger
	wg          sync.WaitGroup
}

func NewGradingEngine(
	cfg *config.GradingSvcCfg,
	queue secondary.GradingQueue,
	submissions submission.ISubmissionService,
	logger primary.Logger,
) *GradingEngine {
	return &GradingEngine{
		cfg:         cfg,
		queue:       queue,
		submissions: submissions,
		logger:      logger,
	}
}

// Start launches cfg.Workers consumers; they stop when ctx is cancelled
func (e *GradingEngine) Start(ctx context.Context) {
	workers := e.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(id int) {
			defer e.wg.Done()
			e.consume(ctx, id)
		}(i)
	}
	e.logger.Info("Grading engine started", "workers", workers, "queue", e.cfg.QueueKey)
}

// Wait blocks until every consumer has returned
func (e *GradingEngine) Wait() {
	e.wg.Wait()
}

func (e *GradingEngine) consume(ctx context.Context, id int) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := e.queue.Pop(ctx, e.cfg.PollTimeout)
		switch {
		case err == nil:
			backoff = time.Second
		case errors.Is(err, errs.ErrQueueEmpty):
			continue
		case ctx.Err() != nil:
			return
		default:
			e.logger.Error("Failed to pop grading job", "worker", id, "error", err, "retryIn", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		e.logger.Debug("Grading job received", "worker", id, "submissionId", job.SubmissionID)
		if err := e.submissions.Process(ctx, job); err != nil {
			e.logger.Error("Failed to process grading job", "worker", id, "submissionId", job.SubmissionID, "error", err)
		}
	}
}
