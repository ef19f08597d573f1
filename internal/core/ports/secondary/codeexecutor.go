package secondary

import (
	"context"

	"gitlab.com/fcv-grader.net/internal/domain"
)

// LanguageExecutor runs one invocation and turns every outcome into a verdict.
// It never returns an error: load, lookup, runtime, timeout and infrastructure
// faults are all reported through the ExecutionResult.
type LanguageExecutor interface {
	Execute(ctx context.Context, inv *domain.Invocation) domain.ExecutionResult
}
