package execution

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"gitlab.com/fcv-grader.net/internal/domain"
	"gitlab.com/fcv-grader.net/internal/static/errs"
)

// ExecuteRequest is the body of the execute, submission and stream endpoints.
// Test cases may carry extra fields (problem_id, created_at) which are ignored.
type ExecuteRequest struct {
	SolutionCode      string            `json:"solution_code"`
	Language          string            `json:"language"`
	FunctionSignature string            `json:"function_signature"`
	TestCases         []domain.TestCase `json:"test_cases"`
	TimeoutSeconds    int               `json:"timeout_seconds"`
}

// ToGradeRequest builds the engine call; querySignature is used when the body has no signature
func (r *ExecuteRequest) ToGradeRequest(querySignature string) (*domain.GradeRequest, error) {
	lang, err := domain.ParseLanguage(r.Language)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedLanguage, r.Language)
	}
	if r.TimeoutSeconds < 0 {
		return nil, fmt.Errorf("%w: timeout_seconds must be positive", errs.ErrInvalidRequest)
	}

	signature := r.FunctionSignature
	if signature == "" {
		signature = querySignature
	}

	return &domain.GradeRequest{
		Code:              r.SolutionCode,
		Language:          lang,
		FunctionSignature: signature,
		TestCases:         r.TestCases,
		Timeout:           time.Duration(r.TimeoutSeconds) * time.Second,
	}, nil
}

// SubmitResponse is returned when a submission is accepted for grading
type SubmitResponse struct {
	SubmissionID uuid.UUID               `json:"submission_id"`
	Status       domain.SubmissionStatus `json:"status"`
}

// streamMessage is one frame sent on the grading stream
type streamMessage struct {
	Type   string                  `json:"type"`
	Index  *int                    `json:"index,omitempty"`
	Result *domain.ExecutionResult `json:"result,omitempty"`
	Report *domain.AggregateReport `json:"report,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

const (
	messageResult = "result"
	messageReport = "report"
	messageError  = "error"
)
