package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus represents the grading status of a submission
type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "PENDING"
	SubmissionStatusRunning   SubmissionStatus = "RUNNING"
	SubmissionStatusCompleted SubmissionStatus = "COMPLETED"
	SubmissionStatusFailed    SubmissionStatus = "FAILED"
)

// IsTerminal reports whether no further transition is expected
func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionStatusCompleted || s == SubmissionStatusFailed
}

type SubmissionTable struct {
	ID                string
	Code              string
	Language          string
	FunctionSignature string
	TestCases         string
	TimeoutSeconds    string
	Status            string
	Report            string
	Error             string
	SubmittedAt       string
	CompletedAt       string
}

func GetSubmissionTable() SubmissionTable {
	return SubmissionTable{
		ID:                "id",
		Code:              "code",
		Language:          "language",
		FunctionSignature: "function_signature",
		TestCases:         "test_cases",
		TimeoutSeconds:    "timeout_seconds",
		Status:            "status",
		Report:            "report",
		Error:             "error",
		SubmittedAt:       "submitted_at",
		CompletedAt:       "completed_at",
	}
}

func (SubmissionTable) TableName() string {
	return "submissions"
}

// GradingJob is the message pushed on the grading queue
type GradingJob struct {
	SubmissionID uuid.UUID `json:"submissionId"`
	EnqueuedAt   time.Time `json:"enqueuedAt"`
	Attempt      int       `json:"attempt"`
}

// NewGradingJob creates the queue message for a submission
func NewGradingJob(submissionID uuid.UUID) *GradingJob {
	return &GradingJob{
		SubmissionID: submissionID,
		EnqueuedAt:   time.Now(),
	}
}
