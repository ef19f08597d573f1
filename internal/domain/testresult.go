package domain

import (
	"encoding/json"
	"time"
)

// ExecutionResult represents the result of a single test case execution.
// Error and Passed are mutually exclusive.
type ExecutionResult struct {
	TestCaseID     string
	Passed         bool
	ActualOutput   *string
	ExpectedOutput *string
	Error          string
	ErrorKind      ErrorKind
	Elapsed        time.Duration
}

// NewFailure builds a failing result for a fault that prevented comparison
func NewFailure(kind ErrorKind, message string, elapsed time.Duration) ExecutionResult {
	return ExecutionResult{
		Passed:    false,
		Error:     message,
		ErrorKind: kind,
		Elapsed:   elapsed,
	}
}

// NewVerdict builds a result for a completed comparison
func NewVerdict(passed bool, actual, expected string, elapsed time.Duration) ExecutionResult {
	return ExecutionResult{
		Passed:         passed,
		ActualOutput:   &actual,
		ExpectedOutput: &expected,
		Elapsed:        elapsed,
	}
}

// HasError reports whether the result carries an error instead of a verdict
func (r ExecutionResult) HasError() bool {
	return r.Error != ""
}

type executionResultJSON struct {
	TestCaseID     string    `json:"test_case_id"`
	Passed         bool      `json:"passed"`
	ActualOutput   *string   `json:"actual_output,omitempty"`
	ExpectedOutput *string   `json:"expected_output,omitempty"`
	Error          string    `json:"error,omitempty"`
	ErrorKind      ErrorKind `json:"error_kind,omitempty"`
	ExecutionTime  float64   `json:"execution_time"`
}

// MarshalJSON renders the elapsed time as seconds, the unit the API has always used
func (r ExecutionResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(executionResultJSON{
		TestCaseID:     r.TestCaseID,
		Passed:         r.Passed,
		ActualOutput:   r.ActualOutput,
		ExpectedOutput: r.ExpectedOutput,
		Error:          r.Error,
		ErrorKind:      r.ErrorKind,
		ExecutionTime:  r.Elapsed.Seconds(),
	})
}

func (r *ExecutionResult) UnmarshalJSON(data []byte) error {
	var raw executionResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = ExecutionResult{
		TestCaseID:     raw.TestCaseID,
		Passed:         raw.Passed,
		ActualOutput:   raw.ActualOutput,
		ExpectedOutput: raw.ExpectedOutput,
		Error:          raw.Error,
		ErrorKind:      raw.ErrorKind,
		Elapsed:        time.Duration(raw.ExecutionTime * float64(time.Second)),
	}
	return nil
}

// AggregateReport represents the result of a submission against a batch of test cases.
// Results keep the order of the input test cases.
type AggregateReport struct {
	Results   []ExecutionResult `json:"results"`
	AllPassed bool              `json:"all_passed"`
	// Error is set when the whole call failed up front (malformed signature)
	Error string `json:"error,omitempty"`
}

// NewAggregateReport derives AllPassed as the conjunction of every result
func NewAggregateReport(results []ExecutionResult, callError string) *AggregateReport {
	allPassed := true
	for _, r := range results {
		if !r.Passed {
			allPassed = false
			break
		}
	}
	return &AggregateReport{
		Results:   results,
		AllPassed: allPassed,
		Error:     callError,
	}
}

// PassedCount returns how many test cases passed
func (r *AggregateReport) PassedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed {
			n++
		}
	}
	return n
}

// Total returns the number of graded test cases
func (r *AggregateReport) Total() int {
	return len(r.Results)
}
