package domain

// ErrorKind classifies why a test case did not produce a comparison verdict
type ErrorKind string

const (
	ErrorKindNone           ErrorKind = ""
	ErrorKindSignature      ErrorKind = "signature"
	ErrorKindInputDecode    ErrorKind = "input_decode"
	ErrorKindExpectedDecode ErrorKind = "expected_decode"
	ErrorKindArity          ErrorKind = "arity"
	ErrorKindCoercion       ErrorKind = "coercion"
	ErrorKindLoad           ErrorKind = "load"
	ErrorKindLookup         ErrorKind = "lookup"
	ErrorKindRuntime        ErrorKind = "runtime"
	ErrorKindInvalidOutput  ErrorKind = "invalid_output"
	ErrorKindTimeout        ErrorKind = "timeout"
	ErrorKindInfrastructure ErrorKind = "infrastructure"
	ErrorKindCancelled      ErrorKind = "cancelled"
)

// CancelledMessage is reported for test cases abandoned because the caller went away
const CancelledMessage = "Execution cancelled"
