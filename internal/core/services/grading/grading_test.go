package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"gitlab.com/fcv-grader.net/internal/adapter/logging"
	"gitlab.com/fcv-grader.net/internal/config"
	"gitlab.com/fcv-grader.net/internal/domain"
	"gitlab.com/fcv-grader.net/internal/static/errs"
)

type stubExecutor struct {
	mu     sync.Mutex
	calls  []*domain.Invocation
	result func(inv *domain.Invocation) domain.ExecutionResult
}

func (e *stubExecutor) Execute(_ context.Context, inv *domain.Invocation) domain.ExecutionResult {
	e.mu.Lock()
	e.calls = append(e.calls, inv)
	e.mu.Unlock()
	if e.result != nil {
		return e.result(inv)
	}
	return domain.NewVerdict(true, "ok", "ok", time.Millisecond)
}

func (e *stubExecutor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type fixture struct {
	python *stubExecutor
	legacy *stubExecutor
	js     *stubExecutor
	svc    *GradingService
}

func newFixture(parallel int) *fixture {
	f := &fixture{
		python: &stubExecutor{},
		legacy: &stubExecutor{},
		js:     &stubExecutor{},
	}
	cfg := &config.EngineConfig{
		DefaultTimeout: 5 * time.Second,
		MaxTimeout:     30 * time.Second,
		MaxParallel:    parallel,
		MaxSourceBytes: 1024,
		MaxTestCases:   10,
	}
	f.svc = NewGradingService(Executors{
		Python:     f.python,
		Legacy:     f.legacy,
		JavaScript: f.js,
	}, cfg, logging.NewNopLogger())
	return f
}

// tickingClock advances by step on every reading
type tickingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func cases(pairs ...string) []domain.TestCase {
	out := make([]domain.TestCase, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.TestCase{
			ID:             fmt.Sprintf("tc-%d", i/2+1),
			InputData:      pairs[i],
			ExpectedOutput: pairs[i+1],
		})
	}
	return out
}

func TestGradeAllValidation(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		kind     domain.ErrorKind
		contains string
	}{
		{"invalid input", "[1,", "3", domain.ErrorKindInputDecode, "Invalid JSON input: "},
		{"invalid expected", "[1, 2]", "nope", domain.ErrorKindExpectedDecode, "Invalid JSON expected output: "},
		{"input checked before expected", "{", "}", domain.ErrorKindInputDecode, "Invalid JSON input: "},
		{"too few", "[1]", "3", domain.ErrorKindArity, "Expected 2 arguments, got 1"},
		{"too many", "[1, 2, 3]", "3", domain.ErrorKindArity, "Expected 2 arguments, got 3"},
		{"scalar wrapped", "7", "3", domain.ErrorKindArity, "Expected 2 arguments, got 1"},
		{"expected checked before arity", "[1]", "x", domain.ErrorKindExpectedDecode, "Invalid JSON expected output: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(1)
			report, err := f.svc.GradeAll(context.Background(), &domain.GradeRequest{
				Code:              "def add(a, b): return a + b",
				Language:          domain.LanguagePython,
				FunctionSignature: "def add(a: int, b: int) -> int:",
				TestCases:         cases(tt.input, tt.expected),
			})
			if err != nil {
				t.Fatalf("GradeAll: %v", err)
			}
			res := report.Results[0]
			if res.Passed || res.ErrorKind != tt.kind || !strings.Contains(res.Error, tt.contains) {
				t.Fatalf("got %+v, want kind %s containing %q", res, tt.kind, tt.contains)
			}
			if f.python.count() != 0 {
				t.Fatal("executor called for a rejected test case")
			}
		})
	}
}

func TestGradeAllWrapsScalarInput(t *testing.T) {
	f := newFixture(1)
	_, err := f.svc.GradeAll(context.Background(), &domain.GradeRequest{
		Code:              "def up(s): return s.upper()",
		Language:          domain.LanguagePython,
		FunctionSignature: "def up(s: str) -> str:",
		TestCases:         cases(`"hi"`, `"HI"`, `[["a", "b"]]`, `["A", "B"]`),
	})
	if err != nil {
		t.Fatalf("GradeAll: %v", err)
	}
	if f.python.count() != 2 {
		t.Fatalf("calls = %d, want 2", f.python.count())
	}
	first := f.python.calls[0]
	if len(first.Args) != 1 || first.Args[0] != "hi" {
		t.Fatalf("args = %#v, want [hi]", first.Args)
	}
	if first.Expected != "HI" {
		t.Fatalf("expected = %#v", first.Expected)
	}
	if len(f.python.calls[1].Args) != 1 {
		t.Fatalf("array input should not be wrapped again: %#v", f.python.calls[1].Args)
	}
}

func TestGradeAllOneResultPerTestCase(t *testing.T) {
	for _, parallel := range []int{1, 4} {
		t.Run(fmt.Sprintf("parallel=%d", parallel), func(t *testing.T) {
			f := newFixture(parallel)
			f.python.result = func(inv *domain.Invocation) domain.ExecutionResult {
				// stagger completion so results finish out of order
				n := inv.Args[0].(string)
				if n == "a" {
					time.Sleep(20 * time.Millisecond)
				}
				return domain.NewVerdict(n != "c", n, n, time.Millisecond)
			}
			tcs := cases(`["a"]`, `"a"`, `["b"]`, `"b"`, `bad`, `"x"`, `["c"]`, `"c"`, `["d", "e"]`, `"d"`)

			report, err := f.svc.GradeAll(context.Background(), &domain.GradeRequest{
				Code:              "def f(x): return x",
				Language:          domain.LanguagePython,
				FunctionSignature: "def f(x):",
				TestCases:         tcs,
			})
			if err != nil {
				t.Fatalf("GradeAll: %v", err)
			}
			if report.Total() != len(tcs) {
				t.Fatalf("total = %d, want %d", report.Total(), len(tcs))
			}
			for i, res := range report.Results {
				if res.TestCaseID != tcs[i].ID {
					t.Fatalf("result %d has id %s, want %s", i, res.TestCaseID, tcs[i].ID)
				}
				if res.Passed && res.HasError() {
					t.Fatalf("result %d passed with error %q", i, res.Error)
				}
			}
			if !report.Results[0].Passed || !report.Results[1].Passed {
				t.Fatal("first two test cases should pass")
			}
			if report.Results[2].ErrorKind != domain.ErrorKindInputDecode {
				t.Fatalf("result 2 kind = %s", report.Results[2].ErrorKind)
			}
			if report.Results[3].Passed {
				t.Fatal("result 3 should fail")
			}
			if report.Results[4].ErrorKind != domain.ErrorKindArity {
				t.Fatalf("result 4 kind = %s", report.Results[4].ErrorKind)
			}
			if report.AllPassed || report.PassedCount() != 2 {
				t.Fatalf("all passed = %v, passed = %d", report.AllPassed, report.PassedCount())
			}
		})
	}
}

func TestGradeAllInvalidSignature(t *testing.T) {
	f := newFixture(1)
	var streamed []int
	report, err := f.svc.GradeStream(context.Background(), &domain.GradeRequest{
		Code:              "def f(): pass",
		Language:          domain.LanguagePython,
		FunctionSignature: "not a signature",
		TestCases:         cases(`[]`, `1`, `[]`, `2`),
	}, func(index int, _ domain.ExecutionResult) {
		streamed = append(streamed, index)
	})
	if err != nil {
		t.Fatalf("GradeStream: %v", err)
	}
	if !strings.HasPrefix(report.Error, "Invalid function signature: ") {
		t.Fatalf("report error = %q", report.Error)
	}
	if len(report.Results) != 2 || len(streamed) != 2 {
		t.Fatalf("results = %d, streamed = %d", len(report.Results), len(streamed))
	}
	for _, res := range report.Results {
		if res.ErrorKind != domain.ErrorKindSignature || res.Error != report.Error {
			t.Fatalf("unexpected result %+v", res)
		}
	}
	if f.python.count() != 0 {
		t.Fatal("executor called with invalid signature")
	}
}

func TestGradeAllDispatch(t *testing.T) {
	t.Run("legacy without signature", func(t *testing.T) {
		f := newFixture(1)
		_, err := f.svc.GradeAll(context.Background(), &domain.GradeRequest{
			Code:      "def solution(s): return s.upper()",
			Language:  domain.LanguagePython,
			TestCases: cases("hello", "  HELLO  "),
			Timeout:   2 * time.Second,
		})
		if err != nil {
			t.Fatalf("GradeAll: %v", err)
		}
		if f.legacy.count() != 1 || f.python.count() != 0 {
			t.Fatalf("legacy = %d, python = %d", f.legacy.count(), f.python.count())
		}
		inv := f.legacy.calls[0]
		if !inv.IsLegacy() || inv.RawInput != "hello" || inv.RawExpected != "  HELLO  " || inv.Timeout != 2*time.Second {
			t.Fatalf("unexpected invocation %+v", inv)
		}
	})

	t.Run("javascript", func(t *testing.T) {
		f := newFixture(1)
		_, err := f.svc.GradeAll(context.Background(), &domain.GradeRequest{
			Code:              "function add(a, b) { return a + b }",
			Language:          domain.LanguageJavaScript,
			FunctionSignature: "function add(a, b)",
			TestCases:         cases(`[1, 2]`, `3`),
		})
		if err != nil {
			t.Fatalf("GradeAll: %v", err)
		}
		if f.js.count() != 1 {
			t.Fatalf("js calls = %d", f.js.count())
		}
		if f.js.calls[0].Signature.Name != "add" {
			t.Fatalf("signature = %+v", f.js.calls[0].Signature)
		}
	})

	t.Run("javascript without signature", func(t *testing.T) {
		f := newFixture(1)
		report, err := f.svc.GradeAll(context.Background(), &domain.GradeRequest{
			Code:      "function add(a, b) { return a + b }",
			Language:  domain.LanguageJavaScript,
			TestCases: cases(`[1, 2]`, `3`),
		})
		if err != nil {
			t.Fatalf("GradeAll: %v", err)
		}
		if f.js.count() != 0 {
			t.Fatal("js executor should not run without a signature")
		}
		if report.Results[0].Error != errs.ErrSignatureRequired.Error() {
			t.Fatalf("error = %q", report.Results[0].Error)
		}
	})

	t.Run("unsupported language", func(t *testing.T) {
		f := newFixture(1)
		_, err := f.svc.GradeAll(context.Background(), &domain.GradeRequest{
			Code:      "puts 1",
			Language:  domain.Language("ruby"),
			TestCases: cases(`[]`, `1`),
		})
		if !errors.Is(err, errs.ErrUnsupportedLanguage) {
			t.Fatalf("err = %v, want ErrUnsupportedLanguage", err)
		}
	})
}

func TestGradeAllTimeoutClamped(t *testing.T) {
	tests := []struct {
		requested time.Duration
		want      time.Duration
	}{
		{0, 5 * time.Second},
		{3 * time.Second, 3 * time.Second},
		{time.Hour, 30 * time.Second},
	}
	for _, tt := range tests {
		f := newFixture(1)
		_, err := f.svc.GradeAll(context.Background(), &domain.GradeRequest{
			Code:              "def f(x): return x",
			Language:          domain.LanguagePython,
			FunctionSignature: "def f(x):",
			TestCases:         cases(`[1]`, `1`),
			Timeout:           tt.requested,
		})
		if err != nil {
			t.Fatalf("GradeAll: %v", err)
		}
		if got := f.python.calls[0].Timeout; got != tt.want {
			t.Fatalf("timeout for %s = %s, want %s", tt.requested, got, tt.want)
		}
	}
}

func TestGradeAllLimits(t *testing.T) {
	f := newFixture(1)

	_, err := f.svc.GradeAll(context.Background(), &domain.GradeRequest{
		Code:      strings.Repeat("x", 2048),
		Language:  domain.LanguagePython,
		TestCases: cases("a", "a"),
	})
	if !errors.Is(err, errs.ErrInvalidRequest) {
		t.Fatalf("oversized code: err = %v", err)
	}

	many := make([]domain.TestCase, 11)
	_, err = f.svc.GradeAll(context.Background(), &domain.GradeRequest{
		Code:      "def solution(x): return x",
		Language:  domain.LanguagePython,
		TestCases: many,
	})
	if !errors.Is(err, errs.ErrInvalidRequest) {
		t.Fatalf("too many test cases: err = %v", err)
	}
}

func TestGradeAllCancellation(t *testing.T) {
	f := newFixture(1)
	ctx, cancel := context.WithCancel(context.Background())
	f.legacy.result = func(inv *domain.Invocation) domain.ExecutionResult {
		if inv.RawInput == "stop" {
			cancel()
			return domain.NewFailure(domain.ErrorKindCancelled, domain.CancelledMessage, time.Millisecond)
		}
		return domain.NewVerdict(true, inv.RawInput, inv.RawExpected, time.Millisecond)
	}

	report, err := f.svc.GradeAll(ctx, &domain.GradeRequest{
		Code:      "def solution(x): return x",
		Language:  domain.LanguagePython,
		TestCases: cases("a", "a", "stop", "stop", "b", "b", "c", "c"),
	})
	if err != nil {
		t.Fatalf("GradeAll: %v", err)
	}
	if len(report.Results) != 4 {
		t.Fatalf("results = %d, want 4", len(report.Results))
	}
	if !report.Results[0].Passed {
		t.Fatal("first test case ran before cancellation and should pass")
	}
	for i := 1; i < 4; i++ {
		res := report.Results[i]
		if res.ErrorKind != domain.ErrorKindCancelled || res.Error != domain.CancelledMessage {
			t.Fatalf("result %d = %+v, want cancelled", i, res)
		}
		if res.TestCaseID == "" {
			t.Fatalf("result %d lost its test case id", i)
		}
	}
	if f.legacy.count() != 2 {
		t.Fatalf("legacy calls = %d, want 2", f.legacy.count())
	}
}

func TestGradeStreamReportsEveryIndex(t *testing.T) {
	f := newFixture(3)
	seen := map[int]string{}
	var mu sync.Mutex
	report, err := f.svc.GradeStream(context.Background(), &domain.GradeRequest{
		Code:              "def f(x): return x",
		Language:          domain.LanguagePython,
		FunctionSignature: "def f(x):",
		TestCases:         cases(`[1]`, `1`, `[2]`, `2`, `[3]`, `3`),
	}, func(index int, res domain.ExecutionResult) {
		mu.Lock()
		defer mu.Unlock()
		seen[index] = res.TestCaseID
	})
	if err != nil {
		t.Fatalf("GradeStream: %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("streamed %d results, want 3", len(seen))
	}
	for i, res := range report.Results {
		if seen[i] != res.TestCaseID {
			t.Fatalf("index %d streamed %s, report has %s", i, seen[i], res.TestCaseID)
		}
	}
	if !report.AllPassed {
		t.Fatal("all test cases should pass")
	}
}

func TestValidate(t *testing.T) {
	f := newFixture(1)
	valid := func() *domain.GradeRequest {
		return &domain.GradeRequest{
			Code:      "def solution(x): return x",
			Language:  domain.LanguagePython,
			TestCases: cases("a", "a"),
			Timeout:   5 * time.Second,
		}
	}

	if err := f.svc.Validate(valid()); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(r *domain.GradeRequest)
		want   error
	}{
		{"blank code", func(r *domain.GradeRequest) { r.Code = "  \n" }, errs.ErrInvalidRequest},
		{"no test cases", func(r *domain.GradeRequest) { r.TestCases = nil }, errs.ErrInvalidRequest},
		{"negative timeout", func(r *domain.GradeRequest) { r.Timeout = -time.Second }, errs.ErrInvalidRequest},
		{"timeout over max", func(r *domain.GradeRequest) { r.Timeout = time.Minute }, errs.ErrInvalidRequest},
		{"unknown language", func(r *domain.GradeRequest) { r.Language = "cobol" }, errs.ErrUnsupportedLanguage},
		{"oversized code", func(r *domain.GradeRequest) { r.Code = strings.Repeat("#", 2000) }, errs.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			if err := f.svc.Validate(req); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGradeAllRejectionsCarryElapsedTime(t *testing.T) {
	const step = 3 * time.Millisecond
	tests := []struct {
		name      string
		signature string
		language  domain.Language
		input     string
		want      time.Duration
	}{
		{name: "invalid input", signature: "def add(a: int, b: int) -> int:", language: domain.LanguagePython, input: "[1,", want: step},
		{name: "arity", signature: "def add(a: int, b: int) -> int:", language: domain.LanguagePython, input: "[1]", want: step},
		{name: "invalid signature", signature: "add(a, b)", language: domain.LanguagePython, input: "[1, 2]", want: step},
		{name: "javascript without signature", language: domain.LanguageJavaScript, input: "[1, 2]", want: step},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(1)
			f.svc.now = (&tickingClock{now: time.Unix(0, 0), step: step}).Now

			report, err := f.svc.GradeAll(context.Background(), &domain.GradeRequest{
				Code:              "def add(a, b): return a + b",
				Language:          tt.language,
				FunctionSignature: tt.signature,
				TestCases:         cases(tt.input, "3"),
			})
			if err != nil {
				t.Fatalf("GradeAll: %v", err)
			}
			res := report.Results[0]
			if !res.HasError() {
				t.Fatalf("expected a rejection, got %+v", res)
			}
			if res.Elapsed != tt.want {
				t.Errorf("elapsed = %v, want %v", res.Elapsed, tt.want)
			}
		})
	}
}
