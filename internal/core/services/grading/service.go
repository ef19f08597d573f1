package grading

import (
	"context"

	"gitlab.com/fcv-grader.net/internal/domain"
)

// ResultSink receives each result as soon as its test case finishes.
// index is the position of the test case in the request.
type ResultSink func(index int, result domain.ExecutionResult)

// IGradingService grades one submission against a batch of test cases
type IGradingService interface {
	// GradeAll returns one result per test case, in input order.
	// An error is returned only for requests rejected before grading starts.
	GradeAll(ctx context.Context, req *domain.GradeRequest) (*domain.AggregateReport, error)

	// GradeStream behaves like GradeAll and also hands every result to sink as it completes
	GradeStream(ctx context.Context, req *domain.GradeRequest, sink ResultSink) (*domain.AggregateReport, error)

	// Validate applies the request rules enforced at the API boundary
	Validate(req *domain.GradeRequest) error
}
