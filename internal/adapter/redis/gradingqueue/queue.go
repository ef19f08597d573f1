package gradingqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"gitlab.com/fcv-grader.net/internal/config"
	"gitlab.com/fcv-grader.net/internal/core/ports/primary"
	"gitlab.com/fcv-grader.net/internal/core/ports/secondary"
	"gitlab.com/fcv-grader.net/internal/domain"
	"gitlab.com/fcv-grader.net/internal/static/errs"
)

const statusKeyPrefix = "grader:status:"

var _ secondary.GradingQueue = (*Queue)(nil)

// Queue implements the GradingQueue interface with a Redis list.
// Jobs are LPUSHed and BRPOPed, so the oldest job is served first.
type Queue struct {
	redisClient redis.Cmdable
	key         string
	statusTTL   time.Duration
	logger      primary.Logger
}

// NewQueue creates a new Redis grading queue
func NewQueue(redisClient redis.Cmdable, cfg *config.GradingSvcCfg, logger primary.Logger) *Queue {
	return &Queue{
		redisClient: redisClient,
		key:         cfg.QueueKey,
		statusTTL:   cfg.StatusTTL,
		logger:      logger,
	}
}

// Push appends a job to the queue
func (q *Queue) Push(ctx context.Context, job *domain.GradingJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal grading job: %w", err)
	}

	if err := q.redisClient.LPush(ctx, q.key, data).Err(); err != nil {
		q.logger.Error("Failed to push grading job", "submissionId", job.SubmissionID, "error", err)
		return fmt.Errorf("failed to push grading job: %w", err)
	}
	return nil
}

// Pop waits for the next job
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*domain.GradingJob, error) {
	res, err := q.redisClient.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errs.ErrQueueEmpty
		}
		return nil, fmt.Errorf("failed to pop grading job: %w", err)
	}
	// BRPOP replies with [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply with %d elements", len(res))
	}

	var job domain.GradingJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		q.logger.Error("Dropping malformed grading job", "payload", res[1], "error", err)
		return nil, fmt.Errorf("failed to unmarshal grading job: %w", err)
	}
	return &job, nil
}

// SetStatus caches the status of a submission for StatusTTL
func (q *Queue) SetStatus(ctx context.Context, id uuid.UUID, status domain.SubmissionStatus) error {
	if err := q.redisClient.Set(ctx, statusKey(id), string(status), q.statusTTL).Err(); err != nil {
		return fmt.Errorf("failed to set submission status: %w", err)
	}
	return nil
}

// Status reads the cached status of a submission
func (q *Queue) Status(ctx context.Context, id uuid.UUID) (domain.SubmissionStatus, error) {
	val, err := q.redisClient.Get(ctx, statusKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get submission status: %w", err)
	}
	return domain.SubmissionStatus(val), nil
}

func statusKey(id uuid.UUID) string {
	return statusKeyPrefix + id.String()
}
