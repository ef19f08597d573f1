package submission

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/fcv-grader.net/internal/domain"
)

// ISubmissionService manages asynchronous grading of submissions
type ISubmissionService interface {
	// Submit validates and stores a submission, then queues it for grading
	Submit(ctx context.Context, req *domain.GradeRequest) (*domain.Submission, error)

	// Get retrieves a submission with the freshest known status
	Get(ctx context.Context, id uuid.UUID) (*domain.Submission, error)

	// Process grades one queued job and stores the report
	Process(ctx context.Context, job *domain.GradingJob) error
}
