package grading

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gitlab.com/fcv-grader.net/internal/config"
	"gitlab.com/fcv-grader.net/internal/core/ports/primary"
	"gitlab.com/fcv-grader.net/internal/core/ports/secondary"
	"gitlab.com/fcv-grader.net/internal/core/pyjson"
	"gitlab.com/fcv-grader.net/internal/core/signature"
	"gitlab.com/fcv-grader.net/internal/domain"
	"gitlab.com/fcv-grader.net/internal/static/errs"
)

var _ IGradingService = (*GradingService)(nil)

// Executors holds one executor per invocation strategy
type Executors struct {
	Python     secondary.LanguageExecutor
	Legacy     secondary.LanguageExecutor
	JavaScript secondary.LanguageExecutor
}

// GradingService dispatches test cases to the language executors
type GradingService struct {
	executors Executors
	cfg       *config.EngineConfig
	logger    primary.Logger
	now       func() time.Time
}

// NewGradingService creates a new grading service
func NewGradingService(executors Executors, cfg *config.EngineConfig, logger primary.Logger) *GradingService {
	return &GradingService{
		executors: executors,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// GradeAll grades every test case and collects the results
func (s *GradingService) GradeAll(ctx context.Context, req *domain.GradeRequest) (*domain.AggregateReport, error) {
	return s.GradeStream(ctx, req, nil)
}

// GradeStream grades every test case, reporting each result to sink as it completes
func (s *GradingService) GradeStream(ctx context.Context, req *domain.GradeRequest, sink ResultSink) (*domain.AggregateReport, error) {
	start := s.now()
	if err := s.checkLimits(req); err != nil {
		return nil, err
	}
	executor, err := s.executorFor(req)
	if err != nil {
		return nil, err
	}

	emit := synchronized(sink)
	results := make([]domain.ExecutionResult, len(req.TestCases))

	var sig *domain.FunctionSignature
	switch {
	case req.HasSignature():
		sig, err = signature.Parse(req.FunctionSignature, req.Language)
		if err != nil {
			s.logger.Error("Invalid function signature",
				"language", req.Language,
				"signature", req.FunctionSignature,
				"error", err)
			return s.failAll(req, results, domain.ErrorKindSignature, err.Error(), s.now().Sub(start), emit), nil
		}
	case req.Language == domain.LanguageJavaScript:
		s.logger.Warn("Rejecting JavaScript submission without signature", "testCases", len(req.TestCases))
		return s.failAll(req, results, domain.ErrorKindSignature, errs.ErrSignatureRequired.Error(), s.now().Sub(start), emit), nil
	}

	timeout := s.cfg.ClampTimeout(req.Timeout)
	s.logger.Debug("Grading submission",
		"language", req.Language,
		"legacy", sig == nil,
		"testCases", len(req.TestCases),
		"timeout", timeout)

	var g errgroup.Group
	g.SetLimit(max(s.cfg.MaxParallel, 1))

	for i := range req.TestCases {
		tc := req.TestCases[i]
		if ctx.Err() != nil {
			results[i] = cancelled(tc.ID, 0)
			emit(i, results[i])
			continue
		}

		g.Go(func() error {
			res := s.gradeOne(ctx, executor, req.Code, sig, tc, timeout)
			res.TestCaseID = tc.ID
			results[i] = res
			emit(i, res)
			return nil
		})
	}
	_ = g.Wait()

	report := domain.NewAggregateReport(results, "")
	s.logger.Info("Submission graded",
		"language", req.Language,
		"passed", report.PassedCount(),
		"total", report.Total())
	return report, nil
}

func (s *GradingService) gradeOne(
	ctx context.Context,
	executor secondary.LanguageExecutor,
	code string,
	sig *domain.FunctionSignature,
	tc domain.TestCase,
	timeout time.Duration,
) domain.ExecutionResult {
	start := s.now()
	// the slot may have been queued behind others while the caller went away
	if ctx.Err() != nil {
		return cancelled(tc.ID, s.now().Sub(start))
	}

	inv, failure := prepare(code, sig, tc, timeout)
	if failure != nil {
		failure.Elapsed = s.now().Sub(start)
		s.logger.Debug("Test case rejected before execution", "testCaseId", tc.ID, "kind", failure.ErrorKind)
		return *failure
	}

	res := executor.Execute(ctx, inv)
	s.logger.Debug("Test case executed",
		"testCaseId", tc.ID,
		"passed", res.Passed,
		"kind", res.ErrorKind,
		"elapsed", res.Elapsed)
	return res
}

// prepare validates one test case and builds its invocation.
// In signature mode the checks run in order: input JSON, expected JSON, arity.
// Rejections leave Elapsed for the caller to fill in.
func prepare(code string, sig *domain.FunctionSignature, tc domain.TestCase, timeout time.Duration) (*domain.Invocation, *domain.ExecutionResult) {
	if sig == nil {
		return &domain.Invocation{
			Code:        code,
			RawInput:    tc.InputData,
			RawExpected: tc.ExpectedOutput,
			Timeout:     timeout,
		}, nil
	}

	input, err := pyjson.Decode(tc.InputData)
	if err != nil {
		return nil, reject(domain.ErrorKindInputDecode, "Invalid JSON input: "+err.Error())
	}
	args, ok := input.([]any)
	if !ok {
		args = []any{input}
	}

	expected, err := pyjson.Decode(tc.ExpectedOutput)
	if err != nil {
		return nil, reject(domain.ErrorKindExpectedDecode, "Invalid JSON expected output: "+err.Error())
	}

	if len(args) != sig.Arity() {
		return nil, reject(domain.ErrorKindArity, fmt.Sprintf("Expected %d arguments, got %d", sig.Arity(), len(args)))
	}

	return &domain.Invocation{
		Code:      code,
		Signature: sig,
		Args:      args,
		Expected:  expected,
		Timeout:   timeout,
	}, nil
}

func reject(kind domain.ErrorKind, message string) *domain.ExecutionResult {
	res := domain.NewFailure(kind, message, 0)
	return &res
}

func cancelled(testCaseID string, elapsed time.Duration) domain.ExecutionResult {
	res := domain.NewFailure(domain.ErrorKindCancelled, domain.CancelledMessage, elapsed)
	res.TestCaseID = testCaseID
	return res
}

// failAll gives every test case the same up-front failure and records it on the report
func (s *GradingService) failAll(
	req *domain.GradeRequest,
	results []domain.ExecutionResult,
	kind domain.ErrorKind,
	message string,
	elapsed time.Duration,
	emit ResultSink,
) *domain.AggregateReport {
	for i, tc := range req.TestCases {
		results[i] = domain.NewFailure(kind, message, elapsed)
		results[i].TestCaseID = tc.ID
		emit(i, results[i])
	}
	return domain.NewAggregateReport(results, message)
}

func (s *GradingService) executorFor(req *domain.GradeRequest) (secondary.LanguageExecutor, error) {
	var executor secondary.LanguageExecutor
	switch req.Language {
	case domain.LanguagePython:
		executor = s.executors.Python
		if !req.HasSignature() {
			executor = s.executors.Legacy
		}
	case domain.LanguageJavaScript:
		executor = s.executors.JavaScript
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedLanguage, req.Language)
	}
	if executor == nil {
		return nil, fmt.Errorf("%w: no executor configured for %s", errs.ErrUnsupportedLanguage, req.Language)
	}
	return executor, nil
}

// Validate rejects empty submissions and out-of-range timeouts on top of the batch limits
func (s *GradingService) Validate(req *domain.GradeRequest) error {
	if strings.TrimSpace(req.Code) == "" {
		return fmt.Errorf("%w: solution code is empty", errs.ErrInvalidRequest)
	}
	if len(req.TestCases) == 0 {
		return fmt.Errorf("%w: at least one test case is required", errs.ErrInvalidRequest)
	}
	if req.Timeout < 0 || req.Timeout > s.cfg.MaxTimeout {
		return fmt.Errorf("%w: timeout must be between 1 and %d seconds", errs.ErrInvalidRequest, int(s.cfg.MaxTimeout.Seconds()))
	}
	if _, err := s.executorFor(req); err != nil {
		return err
	}
	return s.checkLimits(req)
}

func (s *GradingService) checkLimits(req *domain.GradeRequest) error {
	if s.cfg.MaxSourceBytes > 0 && len(req.Code) > s.cfg.MaxSourceBytes {
		return fmt.Errorf("%w: code is %d bytes, limit is %d", errs.ErrInvalidRequest, len(req.Code), s.cfg.MaxSourceBytes)
	}
	if s.cfg.MaxTestCases > 0 && len(req.TestCases) > s.cfg.MaxTestCases {
		return fmt.Errorf("%w: %d test cases, limit is %d", errs.ErrInvalidRequest, len(req.TestCases), s.cfg.MaxTestCases)
	}
	return nil
}

// synchronized serialises calls to sink; a nil sink becomes a no-op
func synchronized(sink ResultSink) ResultSink {
	if sink == nil {
		return func(int, domain.ExecutionResult) {}
	}
	var mu sync.Mutex
	return func(index int, result domain.ExecutionResult) {
		mu.Lock()
		defer mu.Unlock()
		sink(index, result)
	}
}
