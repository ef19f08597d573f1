package secondary

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gitlab.com/fcv-grader.net/internal/domain"
)

// SubmissionRepository persists submissions and their reports
type SubmissionRepository interface {
	Save(ctx context.Context, submission *domain.Submission) error
	// Get returns errs.ErrSubmissionNotFound when no row matches
	Get(ctx context.Context, id uuid.UUID) (*domain.Submission, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, status domain.SubmissionStatus, report *domain.AggregateReport, errMsg *string) error
}

// GradingQueue carries grading jobs from the API to the background consumers
type GradingQueue interface {
	Push(ctx context.Context, job *domain.GradingJob) error
	// Pop blocks up to timeout and returns errs.ErrQueueEmpty when nothing arrived
	Pop(ctx context.Context, timeout time.Duration) (*domain.GradingJob, error)

	SetStatus(ctx context.Context, id uuid.UUID, status domain.SubmissionStatus) error
	// Status returns an empty status when none is cached
	Status(ctx context.Context, id uuid.UUID) (domain.SubmissionStatus, error)
}
