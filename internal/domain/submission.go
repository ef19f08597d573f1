package domain

import (
	"time"

	"github.com/google/uuid"
)

// GradeRequest is one grading call: a source blob, an optional signature and a batch of test cases
type GradeRequest struct {
	Code     string
	Language Language
	// FunctionSignature is empty in legacy mode
	FunctionSignature string
	TestCases         []TestCase
	Timeout           time.Duration
}

// HasSignature reports whether the request runs in signature mode
func (r *GradeRequest) HasSignature() bool {
	return r.FunctionSignature != ""
}

// Submission represents a code submission queued for asynchronous grading
type Submission struct {
	ID                uuid.UUID        `db:"id" json:"id"`
	Code              string           `db:"code" json:"solution_code"`
	Language          Language         `db:"language" json:"language"`
	FunctionSignature string           `db:"function_signature" json:"function_signature,omitempty"`
	TestCases         []TestCase       `db:"-" json:"test_cases"`
	TimeoutSeconds    int              `db:"timeout_seconds" json:"timeout_seconds"`
	Status            SubmissionStatus `db:"status" json:"status"`
	Report            *AggregateReport `db:"-" json:"report,omitempty"`
	Error             *string          `db:"error" json:"error,omitempty"`
	SubmittedAt       time.Time        `db:"submitted_at" json:"submitted_at"`
	CompletedAt       *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
}

// NewSubmission creates a new pending submission
func NewSubmission(code string, language Language, signature string, testCases []TestCase, timeoutSeconds int) *Submission {
	return &Submission{
		ID:                uuid.New(),
		Code:              code,
		Language:          language,
		FunctionSignature: signature,
		TestCases:         testCases,
		TimeoutSeconds:    timeoutSeconds,
		Status:            SubmissionStatusPending,
		SubmittedAt:       time.Now(),
	}
}

// GradeRequest converts the submission into an engine call
func (s *Submission) GradeRequest() *GradeRequest {
	return &GradeRequest{
		Code:              s.Code,
		Language:          s.Language,
		FunctionSignature: s.FunctionSignature,
		TestCases:         s.TestCases,
		Timeout:           time.Duration(s.TimeoutSeconds) * time.Second,
	}
}
