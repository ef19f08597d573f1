package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"gitlab.com/fcv-grader.net/internal/config"
	"gitlab.com/fcv-grader.net/internal/core/ports/primary"
	"gitlab.com/fcv-grader.net/internal/core/ports/secondary"
	"gitlab.com/fcv-grader.net/internal/static/errs"
)

var _ secondary.Sandbox = (*LocalSandbox)(nil)

// LocalSandbox runs interpreters as child processes of the grader.
// Each run gets its own process group, killed as a whole on timeout or cancellation.
type LocalSandbox struct {
	cfg    *config.SandboxConfig
	logger primary.Logger
}

func NewLocalSandbox(cfg *config.SandboxConfig, logger primary.Logger) *LocalSandbox {
	return &LocalSandbox{
		cfg:    cfg,
		logger: logger,
	}
}

func (s *LocalSandbox) Name() string {
	return config.SandboxLocal
}

func (s *LocalSandbox) Run(ctx context.Context, prog *secondary.Program) (*secondary.RunOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	binary, err := exec.LookPath(prog.Runtime.Binary)
	if err != nil {
		s.logger.Warn("Interpreter not found", "binary", prog.Runtime.Binary, "error", err)
		return nil, &errs.RuntimeMissingError{Runtime: prog.Runtime.DisplayName, Binary: prog.Runtime.Binary}
	}

	ws, err := newWorkspace(s.cfg.TempDir, prog.Files, 0o700, 0o600, s.logger)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	runCtx, cancel := context.WithTimeout(ctx, prog.Timeout)
	defer cancel()

	argv := prog.Runtime.Command(prog.Entry)
	cmd := exec.CommandContext(runCtx, binary, argv[1:]...)
	cmd.Dir = ws.dir
	cmd.Env = append([]string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + ws.dir,
		"LANG=C.UTF-8",
	}, prog.Runtime.Env...)

	stdout := newCappedBuffer(s.cfg.MaxOutputBytes)
	stderr := newCappedBuffer(s.cfg.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd)
	}
	cmd.WaitDelay = s.cfg.KillGrace

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runErr != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	outcome := &secondary.RunOutcome{
		Stdout:  stdout.Bytes(),
		Stderr:  stderr.Bytes(),
		Elapsed: elapsed,
	}
	if stdout.truncated || stderr.truncated {
		s.logger.Warn("Interpreter output truncated", "limit", s.cfg.MaxOutputBytes)
	}

	if runErr != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		outcome.TimedOut = true
		outcome.ExitCode = -1
		outcome.Elapsed = prog.Timeout
		return outcome, nil
	}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		outcome.ExitCode = 0
	case errors.As(runErr, &exitErr):
		outcome.ExitCode = exitErr.ExitCode()
	case errors.Is(runErr, exec.ErrWaitDelay) && cmd.ProcessState != nil:
		// the interpreter exited but something it spawned kept the pipes open
		outcome.ExitCode = cmd.ProcessState.ExitCode()
	default:
		return nil, fmt.Errorf("failed to run %s: %w", prog.Runtime.Binary, runErr)
	}
	return outcome, nil
}
