// Package executor runs submissions through generated harness programs inside a sandbox
// and maps whatever the interpreter leaves behind onto grading verdicts.
package executor

import (
	"context"
	"time"

	"gitlab.com/fcv-grader.net/internal/core/coercion"
	"gitlab.com/fcv-grader.net/internal/core/ports/primary"
	"gitlab.com/fcv-grader.net/internal/core/ports/secondary"
	"gitlab.com/fcv-grader.net/internal/domain"
)

var _ secondary.LanguageExecutor = (*PythonExecutor)(nil)

// PythonExecutor calls a declared function with coerced positional arguments.
// The source is executed into a fresh namespace by a harness process, one process per test case.
type PythonExecutor struct {
	sandbox secondary.Sandbox
	runtime *domain.RuntimeProfile
	logger  primary.Logger
}

func NewPythonExecutor(sandbox secondary.Sandbox, runtime *domain.RuntimeProfile, logger primary.Logger) *PythonExecutor {
	return &PythonExecutor{
		sandbox: sandbox,
		runtime: runtime,
		logger:  logger,
	}
}

func (e *PythonExecutor) Execute(ctx context.Context, inv *domain.Invocation) domain.ExecutionResult {
	start := time.Now()
	sig := inv.Signature

	// a coercion failure is only reported once the source has loaded and the function was found
	args, coercionErr := coercion.Args(inv.Args, sig.Parameters)

	harness, err := renderPythonHarness(sig.Name, args, inv.Expected, coercionErr != nil)
	if err != nil {
		e.logger.Error("Failed to render harness", "function", sig.Name, "error", err)
		return domain.NewFailure(domain.ErrorKindInfrastructure, err.Error(), time.Since(start))
	}

	out, err := e.sandbox.Run(ctx, &secondary.Program{
		Runtime: e.runtime,
		Files: []secondary.File{
			{Name: pythonHarnessFile, Content: harness},
			{Name: pythonSolutionFile, Content: []byte(inv.Code)},
		},
		Entry:   pythonHarnessFile,
		Timeout: inv.Timeout,
	})
	if err != nil {
		e.logger.Debug("Sandbox run failed", "function", sig.Name, "sandbox", e.sandbox.Name(), "error", err)
		return sandboxFailure(err, time.Since(start))
	}

	return finish(out, inv, coercionErr)
}
