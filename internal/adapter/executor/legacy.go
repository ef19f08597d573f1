package executor

import (
	"context"
	"strings"
	"time"

	"gitlab.com/fcv-grader.net/internal/core/ports/primary"
	"gitlab.com/fcv-grader.net/internal/core/ports/secondary"
	"gitlab.com/fcv-grader.net/internal/core/pyjson"
	"gitlab.com/fcv-grader.net/internal/domain"
)

const legacyLookupMessage = "No 'solution' function found"

var _ secondary.LanguageExecutor = (*LegacyExecutor)(nil)

// LegacyExecutor grades submissions written against the old solution(input) -> str contract.
// The raw input string is passed untouched and outputs are compared as trimmed strings.
type LegacyExecutor struct {
	sandbox secondary.Sandbox
	runtime *domain.RuntimeProfile
	logger  primary.Logger
}

func NewLegacyExecutor(sandbox secondary.Sandbox, runtime *domain.RuntimeProfile, logger primary.Logger) *LegacyExecutor {
	return &LegacyExecutor{
		sandbox: sandbox,
		runtime: runtime,
		logger:  logger,
	}
}

func (e *LegacyExecutor) Execute(ctx context.Context, inv *domain.Invocation) domain.ExecutionResult {
	start := time.Now()

	harness, err := renderLegacyHarness(inv.RawInput)
	if err != nil {
		e.logger.Error("Failed to render legacy harness", "error", err)
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
		e.logger.Debug("Sandbox run failed", "entry", legacyEntryPoint, "sandbox", e.sandbox.Name(), "error", err)
		return sandboxFailure(err, time.Since(start))
	}

	if out.TimedOut {
		return timeoutResult(inv.Timeout, out.Elapsed)
	}
	h := parseOutput(out)
	if h.exitCode != 0 {
		return h.failure(legacyLookupMessage, nil, out.Elapsed)
	}
	if out.Elapsed > inv.Timeout {
		return timeoutResult(inv.Timeout, out.Elapsed)
	}

	v, err := pyjson.Decode(h.payload)
	text, ok := v.(string)
	if err != nil || !ok {
		return domain.NewFailure(domain.ErrorKindInvalidOutput, "Function returned invalid JSON: "+h.payload, out.Elapsed)
	}

	actual := strings.TrimSpace(text)
	expected := strings.TrimSpace(inv.RawExpected)
	return domain.NewVerdict(actual == expected, actual, expected, out.Elapsed)
}
