package executor

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"gitlab.com/fcv-grader.net/internal/adapter/logging"
	"gitlab.com/fcv-grader.net/internal/adapter/sandbox"
	"gitlab.com/fcv-grader.net/internal/config"
	"gitlab.com/fcv-grader.net/internal/core/pyjson"
	"gitlab.com/fcv-grader.net/internal/core/signature"
	"gitlab.com/fcv-grader.net/internal/domain"
)

func localSandbox(t *testing.T, binary string) (*sandbox.LocalSandbox, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping interpreter test in short mode")
	}
	if _, err := exec.LookPath(binary); err != nil {
		t.Skipf("%s is not available", binary)
	}
	dir := t.TempDir()
	cfg := &config.SandboxConfig{
		Kind:           config.SandboxLocal,
		TempDir:        dir,
		MaxOutputBytes: 1 << 20,
		KillGrace:      500 * time.Millisecond,
	}
	return sandbox.NewLocalSandbox(cfg, logging.NewNopLogger()), dir
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temporary artifacts left behind: %d entries", len(entries))
	}
}

func invocation(t *testing.T, lang domain.Language, code, sig, args, expected string, timeout time.Duration) *domain.Invocation {
	t.Helper()
	parsed, err := signature.Parse(sig, lang)
	if err != nil {
		t.Fatalf("parse signature: %v", err)
	}
	a, err := pyjson.Decode(args)
	if err != nil {
		t.Fatal(err)
	}
	e, err := pyjson.Decode(expected)
	if err != nil {
		t.Fatal(err)
	}
	return &domain.Invocation{Code: code, Signature: parsed, Args: a.([]any), Expected: e, Timeout: timeout}
}

func TestPythonIntegration(t *testing.T) {
	sb, dir := localSandbox(t, "python3")
	py := NewPythonExecutor(sb, domain.DefaultRuntimeProfiles()[domain.LanguagePython], logging.NewNopLogger())
	ctx := context.Background()

	const addSig = "def add(a: int, b: int) -> int:"
	tests := []struct {
		name     string
		code     string
		sig      string
		args     string
		expected string
		passed   bool
		actual   string
		errPart  string
	}{
		{name: "correct", code: "def add(a, b):\n    print('debug')\n    return a + b\n", sig: addSig, args: "[2, 3]", expected: "5", passed: true, actual: "5"},
		{name: "wrong", code: "def add(a, b):\n    return a + b + 1\n", sig: addSig, args: "[2, 3]", expected: "5", actual: "6"},
		{name: "coerced strings", code: "def add(a, b):\n    return a + b\n", sig: addSig, args: `["2", 3.9]`, expected: "5", passed: true, actual: "5"},
		{name: "bool coercion", code: "def f(flag):\n    return flag is True\n", sig: "def f(flag: bool) -> bool:", args: `["yes"]`, expected: "true", passed: true, actual: "true"},
		{name: "list result", code: "def f(xs):\n    return sorted(xs)\n", sig: "def f(xs: list[int]) -> list[int]:", args: "[[3, 1, 2]]", expected: "[1, 2, 3]", passed: true, actual: "[1, 2, 3]"},
		{name: "dict result", code: "def f(k):\n    return {k: [1.5, None]}\n", sig: "def f(k: str) -> dict:", args: `["a"]`, expected: `{"a": [1.5, null]}`, passed: true, actual: `{"a": [1.5, null]}`},
		{name: "missing function", code: "def bar():\n    pass\n", sig: "def foo(x):", args: "[1]", expected: "1", errPart: "Function 'foo' not found"},
		{name: "lookup before coercion", code: "def bar():\n    pass\n", sig: addSig, args: `["x", 1]`, expected: "1", errPart: "Function 'add' not found"},
		{name: "coercion failure", code: "def add(a, b):\n    return a + b\n", sig: addSig, args: `["x", 1]`, expected: "1", errPart: "Type conversion error for parameter 'a'"},
		{name: "syntax error", code: "def add(a, b)\n    return a\n", sig: addSig, args: "[1, 2]", expected: "3", errPart: "Error loading code:"},
		{name: "module level exception", code: "raise ValueError('nope')\n", sig: addSig, args: "[1, 2]", expected: "3", errPart: "Error loading code: nope"},
		{name: "runtime error", code: "def add(a, b):\n    return a / 0\n", sig: addSig, args: "[1, 2]", expected: "3", errPart: "Runtime error: division by zero"},
		{name: "sys exit in call", code: "import sys\ndef add(a, b):\n    sys.exit(7)\n", sig: addSig, args: "[1, 2]", expected: "3", errPart: "Runtime error: 7"},
		{name: "tuple is not a list", code: "def f(a, b):\n    return (a, b)\n", sig: "def f(a: int, b: int):", args: "[1, 2]", expected: "[1, 2]", actual: "[1, 2]"},
		{name: "int keys are not string keys", code: "def f(a, b):\n    return {a: b}\n", sig: "def f(a: int, b: int):", args: "[1, 2]", expected: `{"1": 2}`, actual: `{"1": 2}`},
		{name: "int key equals int key", code: "def f(a, b):\n    return {str(a): b}\n", sig: "def f(a: int, b: int):", args: "[1, 2]", expected: `{"1": 2}`, passed: true, actual: `{"1": 2}`},
		{name: "unserialisable result", code: "def add(a, b):\n    return {a, b}\n", sig: addSig, args: "[1, 2]", expected: "3", errPart: "Runtime error: Object of type set is not JSON serializable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := py.Execute(ctx, invocation(t, domain.LanguagePython, tt.code, tt.sig, tt.args, tt.expected, 10*time.Second))
			if res.Passed != tt.passed {
				t.Fatalf("passed = %v, want %v (%+v)", res.Passed, tt.passed, res)
			}
			if tt.actual != "" && (res.ActualOutput == nil || *res.ActualOutput != tt.actual) {
				t.Errorf("actual = %v, want %s", res.ActualOutput, tt.actual)
			}
			if tt.errPart != "" && !strings.Contains(res.Error, tt.errPart) {
				t.Errorf("error = %q, want it to contain %q", res.Error, tt.errPart)
			}
			if tt.errPart == "" && res.HasError() {
				t.Errorf("unexpected error %q", res.Error)
			}
		})
	}
	requireEmptyDir(t, dir)
}

func TestPythonIntegrationTimeout(t *testing.T) {
	sb, dir := localSandbox(t, "python3")
	py := NewPythonExecutor(sb, domain.DefaultRuntimeProfiles()[domain.LanguagePython], logging.NewNopLogger())

	inv := invocation(t, domain.LanguagePython, "def spin(x):\n    while True:\n        pass\n", "def spin(x):", "[1]", "1", time.Second)
	res := py.Execute(context.Background(), inv)
	if !strings.Contains(res.Error, "timed out") || res.ErrorKind != domain.ErrorKindTimeout {
		t.Fatalf("expected timeout, got %+v", res)
	}
	if res.Elapsed != time.Second {
		t.Errorf("elapsed = %v, want 1s", res.Elapsed)
	}
	requireEmptyDir(t, dir)
}

func TestLegacyIntegration(t *testing.T) {
	sb, dir := localSandbox(t, "python3")
	legacy := NewLegacyExecutor(sb, domain.DefaultRuntimeProfiles()[domain.LanguagePython], logging.NewNopLogger())

	res := legacy.Execute(context.Background(), &domain.Invocation{
		Code:        "def solution(s):\n    return s.upper()\n",
		RawInput:    "hello",
		RawExpected: "  HELLO \n",
		Timeout:     10 * time.Second,
	})
	if !res.Passed {
		t.Fatalf("expected pass, got %+v", res)
	}

	res = legacy.Execute(context.Background(), &domain.Invocation{
		Code:        "def solution(s):\n    return len(s)\n",
		RawInput:    "hello",
		RawExpected: "5",
		Timeout:     10 * time.Second,
	})
	if !res.Passed || *res.ActualOutput != "5" {
		t.Fatalf("non-string results should go through str(), got %+v", res)
	}
	requireEmptyDir(t, dir)
}

func TestJavaScriptIntegration(t *testing.T) {
	sb, dir := localSandbox(t, "node")
	js := NewJavaScriptExecutor(sb, domain.DefaultRuntimeProfiles()[domain.LanguageJavaScript], logging.NewNopLogger())
	ctx := context.Background()

	tests := []struct {
		name    string
		code    string
		sig     string
		passed  bool
		errPart string
	}{
		{name: "declaration", code: "function add(a, b) { console.log('hi'); return a + b; }", sig: "function add(a, b)", passed: true},
		{name: "arrow", code: "const add = (a, b) => a + b;", sig: "const add = (a, b) =>", passed: true},
		{name: "async", code: "async function add(a, b) { return a + b; }", sig: "function add(a, b)", passed: true},
		{name: "throws", code: "function add(a, b) { throw new Error('bad input'); }", sig: "function add(a, b)", errPart: "Runtime error: bad input"},
		{name: "missing", code: "function other() {}", sig: "function add(a, b)", errPart: "Function 'add' not found"},
		{name: "timer left running", code: "function add(a, b) { setInterval(function () {}, 1000); return a + b; }", sig: "function add(a, b)", passed: true},
		{name: "syntax error", code: "function add(a, b { return a }", sig: "function add(a, b)", errPart: "SyntaxError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := js.Execute(ctx, invocation(t, domain.LanguageJavaScript, tt.code, tt.sig, "[2, 3]", "5", 10*time.Second))
			if res.Passed != tt.passed {
				t.Fatalf("passed = %v, want %v (%+v)", res.Passed, tt.passed, res)
			}
			if tt.errPart != "" && !strings.Contains(res.Error, tt.errPart) {
				t.Errorf("error = %q, want it to contain %q", res.Error, tt.errPart)
			}
		})
	}

	res := js.Execute(ctx, invocation(t, domain.LanguageJavaScript, "function add(a, b { return a }", "function add(a, b)", "[2, 3]", "5", 10*time.Second))
	if strings.Contains(res.Error, dir) || strings.Contains(res.Error, "node:internal") {
		t.Errorf("crash report should not leak paths or stack frames: %q", res.Error)
	}

	res = js.Execute(ctx, invocation(t, domain.LanguageJavaScript, "function spin() { for (;;) {} }", "function spin()", "[]", "1", time.Second))
	if res.ErrorKind != domain.ErrorKindTimeout || res.Elapsed != time.Second {
		t.Errorf("expected timeout after 1s, got %+v", res)
	}
	requireEmptyDir(t, dir)
}
