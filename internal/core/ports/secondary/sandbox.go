package secondary

import (
	"context"
	"time"

	"gitlab.com/fcv-grader.net/internal/domain"
)

// File is a file materialised in the sandbox working directory
type File struct {
	Name    string
	Content []byte
}

// Program is a generated harness ready to be run by a sandbox
type Program struct {
	Runtime *domain.RuntimeProfile
	Files   []File
	// Entry is the file passed to the interpreter
	Entry   string
	Timeout time.Duration
}

// RunOutcome is what the interpreter process left behind
type RunOutcome struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	TimedOut bool
	Elapsed  time.Duration
}

// Sandbox runs a Program in a fresh working directory that is removed on every exit path.
// A non-nil error means the program could not be run at all (missing interpreter,
// unavailable container daemon) or that ctx was cancelled.
type Sandbox interface {
	Run(ctx context.Context, prog *Program) (*RunOutcome, error)
	Name() string
}
