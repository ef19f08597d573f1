package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gitlab.com/fcv-grader.net/internal/config"
	"gitlab.com/fcv-grader.net/internal/core/ports/primary"
	"gitlab.com/fcv-grader.net/internal/core/ports/secondary"
	"gitlab.com/fcv-grader.net/internal/core/services/grading"
	"gitlab.com/fcv-grader.net/internal/domain"
)

var _ ISubmissionService = (*SubmissionService)(nil)

// SubmissionService implements the ISubmissionService interface
type SubmissionService struct {
	repo   secondary.SubmissionRepository
	queue  secondary.GradingQueue
	grader grading.IGradingService
	cfg    *config.GradingSvcCfg
	engine *config.EngineConfig
	logger primary.Logger
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(
	repo secondary.SubmissionRepository,
	queue secondary.GradingQueue,
	grader grading.IGradingService,
	cfg *config.GradingSvcCfg,
	engine *config.EngineConfig,
	logger primary.Logger,
) *SubmissionService {
	return &SubmissionService{
		repo:   repo,
		queue:  queue,
		grader: grader,
		cfg:    cfg,
		engine: engine,
		logger: logger,
	}
}

// Submit validates and stores a submission, then queues it for grading
func (s *SubmissionService) Submit(ctx context.Context, req *domain.GradeRequest) (*domain.Submission, error) {
	if err := s.grader.Validate(req); err != nil {
		return nil, err
	}

	timeout := s.engine.ClampTimeout(req.Timeout)
	submission := domain.NewSubmission(
		req.Code,
		req.Language,
		req.FunctionSignature,
		req.TestCases,
		int(timeout/time.Second),
	)

	if err := s.repo.Save(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	if err := s.queue.Push(ctx, domain.NewGradingJob(submission.ID)); err != nil {
		// keep the row consistent with what actually happened
		msg := "failed to queue submission"
		if cerr := s.repo.Complete(ctx, submission.ID, domain.SubmissionStatusFailed, nil, &msg); cerr != nil {
			s.logger.Error("Failed to mark unqueued submission", "submissionId", submission.ID, "error", cerr)
		}
		return nil, fmt.Errorf("failed to queue submission: %w", err)
	}
	s.cacheStatus(ctx, submission.ID, domain.SubmissionStatusPending)

	s.logger.Info("Submission queued",
		"submissionId", submission.ID,
		"language", submission.Language,
		"testCases", len(submission.TestCases))
	return submission, nil
}

// Get retrieves a submission; a cached status is preferred while the row is not final yet
func (s *SubmissionService) Get(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	submission, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !submission.Status.IsTerminal() {
		status, err := s.queue.Status(ctx, id)
		if err != nil {
			s.logger.Warn("Failed to read cached status", "submissionId", id, "error", err)
		} else if status != "" {
			submission.Status = status
		}
	}
	return submission, nil
}

// Process grades one queued job and stores the report
func (s *SubmissionService) Process(ctx context.Context, job *domain.GradingJob) error {
	submission, err := s.repo.Get(ctx, job.SubmissionID)
	if err != nil {
		return fmt.Errorf("failed to load submission %s: %w", job.SubmissionID, err)
	}
	if submission.Status.IsTerminal() {
		s.logger.Warn("Skipping already graded submission", "submissionId", submission.ID, "status", submission.Status)
		return nil
	}

	if err := s.repo.MarkRunning(ctx, submission.ID); err != nil {
		return fmt.Errorf("failed to mark submission running: %w", err)
	}
	s.cacheStatus(ctx, submission.ID, domain.SubmissionStatusRunning)

	gradeCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	report, gradeErr := s.grader.GradeAll(gradeCtx, submission.GradeRequest())

	status := domain.SubmissionStatusCompleted
	var errMsg *string
	switch {
	case gradeErr != nil:
		status = domain.SubmissionStatusFailed
		msg := gradeErr.Error()
		errMsg = &msg
	case errors.Is(gradeCtx.Err(), context.DeadlineExceeded):
		status = domain.SubmissionStatusFailed
		msg := fmt.Sprintf("grading exceeded %s", s.cfg.JobTimeout)
		errMsg = &msg
	case gradeCtx.Err() != nil:
		status = domain.SubmissionStatusFailed
		msg := "grading interrupted"
		errMsg = &msg
	}

	// the job context may already be cancelled by shutdown; the final write must still land
	saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer saveCancel()
	if err := s.repo.Complete(saveCtx, submission.ID, status, report, errMsg); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	s.cacheStatus(saveCtx, submission.ID, status)

	fields := []interface{}{
		"submissionId", submission.ID,
		"status", status,
		"duration", time.Since(start),
	}
	if report != nil {
		fields = append(fields, "passed", report.PassedCount(), "total", report.Total())
	}
	s.logger.Info("Submission processed", fields...)
	return nil
}

// cacheStatus is best effort; the database row stays authoritative
func (s *SubmissionService) cacheStatus(ctx context.Context, id uuid.UUID, status domain.SubmissionStatus) {
	if err := s.queue.SetStatus(ctx, id, status); err != nil {
		s.logger.Warn("Failed to cache submission status", "submissionId", id, "status", status, "error", err)
	}
}
