package executor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gitlab.com/fcv-grader.net/internal/core/ports/secondary"
	"gitlab.com/fcv-grader.net/internal/core/pyjson"
	"gitlab.com/fcv-grader.net/internal/domain"
	"gitlab.com/fcv-grader.net/internal/static/errs"
)

// harnessOutput is a finished harness run split into its protocol parts
type harnessOutput struct {
	exitCode int
	payload  string
	message  string
	marked   bool
	stderr   string
	// equal is the harness's own == verdict, nil when it did not report one
	equal *bool
}

func parseOutput(out *secondary.RunOutcome) harnessOutput {
	h := harnessOutput{
		exitCode: out.ExitCode,
		stderr:   strings.TrimSpace(string(out.Stderr)),
	}

	stdout := string(out.Stdout)
	if i := strings.LastIndex(stdout, resultMarker); i >= 0 {
		line, _, _ := strings.Cut(stdout[i+len(resultMarker):], "\n")
		h.payload = strings.TrimSpace(line)
	} else {
		h.payload = strings.TrimSpace(stdout)
	}
	if i := strings.LastIndex(stdout, equalMarker); i >= 0 {
		line, _, _ := strings.Cut(stdout[i+len(equalMarker):], "\n")
		if v, err := strconv.ParseBool(strings.TrimSpace(line)); err == nil {
			h.equal = &v
		}
	}

	stderr := string(out.Stderr)
	if i := strings.LastIndex(stderr, errorMarker); i >= 0 {
		h.marked = true
		h.message = strings.TrimSpace(stderr[i+len(errorMarker):])
	}
	return h
}

// failure maps a non-zero exit to a verdict. Exits the harness did not mark are
// crashes of the interpreter itself and are reported with their stderr.
func (h harnessOutput) failure(lookupMessage string, coercionErr error, elapsed time.Duration) domain.ExecutionResult {
	if !h.marked {
		msg := interpreterError(h.stderr)
		if msg == "" {
			msg = fmt.Sprintf("process exited with status %d", h.exitCode)
		}
		return domain.NewFailure(domain.ErrorKindRuntime, "Runtime error: "+msg, elapsed)
	}

	switch h.exitCode {
	case exitLoad:
		return domain.NewFailure(domain.ErrorKindLoad, "Error loading code: "+h.message, elapsed)
	case exitLookup:
		return domain.NewFailure(domain.ErrorKindLookup, lookupMessage, elapsed)
	case exitCoercion:
		if coercionErr != nil {
			return domain.NewFailure(domain.ErrorKindCoercion, coercionErr.Error(), elapsed)
		}
	}
	return domain.NewFailure(domain.ErrorKindRuntime, "Runtime error: "+h.message, elapsed)
}

var (
	// absolute paths of the generated files, host workspace or container mount alike
	workspacePath = regexp.MustCompile(`(?:[A-Za-z]:)?[^\s:'"()]*[/\\]((?:harness|solution)\.(?:py|cjs))`)
	errorLine     = regexp.MustCompile(`^[A-Za-z_$][\w$.]*(?:Error|Exception|Exit|Interrupt)\b.*`)
)

// interpreterError shortens the stderr of a crashed interpreter to its first line
// and the line naming the error, with workspace paths reduced to file names.
func interpreterError(stderr string) string {
	stderr = workspacePath.ReplaceAllString(stderr, "$1")

	var lines []string
	for _, line := range strings.Split(stderr, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimRight(line, " \t\r"))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	for _, line := range lines[1:] {
		if errorLine.MatchString(line) {
			return lines[0] + "\n" + line
		}
	}
	return lines[0]
}

func lookupMessage(sig *domain.FunctionSignature) string {
	return fmt.Sprintf("Function '%s' not found. Please define: %s", sig.Name, sig.Source)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func timeoutResult(timeout, elapsed time.Duration) domain.ExecutionResult {
	return domain.NewFailure(domain.ErrorKindTimeout, fmt.Sprintf("Execution timed out after %s seconds", formatSeconds(timeout)), elapsed)
}

// sandboxFailure maps an error from Sandbox.Run, which means the harness never produced a verdict
func sandboxFailure(err error, elapsed time.Duration) domain.ExecutionResult {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.NewFailure(domain.ErrorKindCancelled, domain.CancelledMessage, elapsed)
	case errors.Is(err, errs.ErrWorkspace):
		return domain.NewFailure(domain.ErrorKindLoad, "Error loading code: "+err.Error(), elapsed)
	default:
		return domain.NewFailure(domain.ErrorKindInfrastructure, err.Error(), elapsed)
	}
}

func decodePayload(payload string) (any, error) {
	v, err := pyjson.Decode(payload)
	if err != nil {
		return nil, err
	}
	return restoreNonFinite(v), nil
}

func restoreNonFinite(v any) any {
	switch t := v.(type) {
	case []any:
		for i := range t {
			t[i] = restoreNonFinite(t[i])
		}
		return t
	case *pyjson.Object:
		if t.Len() == 1 {
			if raw, ok := t.Get(floatTag); ok {
				switch raw {
				case "nan":
					return math.NaN()
				case "inf":
					return math.Inf(1)
				case "-inf":
					return math.Inf(-1)
				}
			}
		}
		for _, k := range t.Keys() {
			val, _ := t.Get(k)
			t.Set(k, restoreNonFinite(val))
		}
		return t
	}
	return v
}

// display renders a value for the report: strings verbatim, everything else as json.dumps would
func display(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return pyjson.Dumps(v)
}

// compare prefers the verdict the harness computed with the language's own equality
func compare(actual, expected any, harnessEqual *bool, elapsed time.Duration) domain.ExecutionResult {
	passed := pyjson.Equal(actual, expected)
	if harnessEqual != nil {
		passed = *harnessEqual
	}
	return domain.NewVerdict(passed, display(actual), display(expected), elapsed)
}

// finish turns a completed structured-mode run into a verdict
func finish(out *secondary.RunOutcome, inv *domain.Invocation, coercionErr error) domain.ExecutionResult {
	if out.TimedOut {
		return timeoutResult(inv.Timeout, out.Elapsed)
	}

	h := parseOutput(out)
	if h.exitCode != 0 {
		return h.failure(lookupMessage(inv.Signature), coercionErr, out.Elapsed)
	}
	if out.Elapsed > inv.Timeout {
		return timeoutResult(inv.Timeout, out.Elapsed)
	}

	actual, err := decodePayload(h.payload)
	if err != nil {
		return domain.NewFailure(domain.ErrorKindInvalidOutput, "Function returned invalid JSON: "+h.payload, out.Elapsed)
	}
	return compare(actual, inv.Expected, h.equal, out.Elapsed)
}
