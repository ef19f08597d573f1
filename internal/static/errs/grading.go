package errs

import (
	"errors"
	"fmt"
)

var (
	ErrRuntimeNotInstalled = errors.New("runtime is not installed or not in PATH")
	ErrSandboxUnavailable  = errors.New("sandbox is unavailable")
	ErrSignatureRequired   = errors.New("Function signature is required for JavaScript execution")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrQueueEmpty          = errors.New("grading queue is empty")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrWorkspace           = errors.New("failed to prepare workspace")
)

// SignatureError reports a signature string that is not a valid declaration for its language
type SignatureError struct {
	Signature string
	Reason    string
}

func (e *SignatureError) Error() string {
	return "Invalid function signature: " + e.Reason
}

// CoercionError reports a declared parameter type rejecting the supplied value
type CoercionError struct {
	Parameter string
	Err       error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("Type conversion error for parameter '%s': %s", e.Parameter, e.Err)
}

func (e *CoercionError) Unwrap() error {
	return e.Err
}

// RuntimeMissingError reports an interpreter binary that could not be located
type RuntimeMissingError struct {
	Runtime string
	Binary  string
}

func (e *RuntimeMissingError) Error() string {
	return fmt.Sprintf("%s is not installed or not in PATH", e.Runtime)
}

func (e *RuntimeMissingError) Is(target error) bool {
	return target == ErrRuntimeNotInstalled
}
