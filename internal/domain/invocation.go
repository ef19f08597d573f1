package domain

import "time"

// Invocation is a single validated test-case run handed to a language executor.
// Signature is nil in legacy mode, where RawInput and RawExpected are used instead of Args and Expected.
type Invocation struct {
	Code      string
	Signature *FunctionSignature

	// Args are the decoded positional arguments, not yet coerced
	Args     []any
	Expected any

	RawInput    string
	RawExpected string

	Timeout time.Duration
}

// IsLegacy reports whether the invocation uses the fixed solution(input) entry point
func (i *Invocation) IsLegacy() bool {
	return i.Signature == nil
}
