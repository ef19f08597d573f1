package executor

import (
	"context"
	"time"

	"gitlab.com/fcv-grader.net/internal/core/ports/primary"
	"gitlab.com/fcv-grader.net/internal/core/ports/secondary"
	"gitlab.com/fcv-grader.net/internal/domain"
	"gitlab.com/fcv-grader.net/internal/static/errs"
)

var _ secondary.LanguageExecutor = (*JavaScriptExecutor)(nil)

// JavaScriptExecutor appends a call trailer to the verbatim source and runs it with node.
// Arguments are passed as decoded JSON without coercion.
type JavaScriptExecutor struct {
	sandbox secondary.Sandbox
	runtime *domain.RuntimeProfile
	logger  primary.Logger
}

func NewJavaScriptExecutor(sandbox secondary.Sandbox, runtime *domain.RuntimeProfile, logger primary.Logger) *JavaScriptExecutor {
	return &JavaScriptExecutor{
		sandbox: sandbox,
		runtime: runtime,
		logger:  logger,
	}
}

func (e *JavaScriptExecutor) Execute(ctx context.Context, inv *domain.Invocation) domain.ExecutionResult {
	start := time.Now()
	if inv.Signature == nil {
		return domain.NewFailure(domain.ErrorKindSignature, errs.ErrSignatureRequired.Error(), time.Since(start))
	}
	sig := inv.Signature

	harness, err := renderJavaScriptHarness(inv.Code, sig.Name, inv.Args)
	if err != nil {
		e.logger.Error("Failed to render harness", "function", sig.Name, "error", err)
		return domain.NewFailure(domain.ErrorKindInfrastructure, err.Error(), time.Since(start))
	}

	out, err := e.sandbox.Run(ctx, &secondary.Program{
		Runtime: e.runtime,
		Files:   []secondary.File{{Name: jsHarnessFile, Content: harness}},
		Entry:   jsHarnessFile,
		Timeout: inv.Timeout,
	})
	if err != nil {
		e.logger.Debug("Sandbox run failed", "function", sig.Name, "sandbox", e.sandbox.Name(), "error", err)
		return sandboxFailure(err, time.Since(start))
	}

	return finish(out, inv, nil)
}
